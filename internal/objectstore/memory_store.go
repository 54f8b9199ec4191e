package objectstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotFound indicates that the requested object does not exist.
var ErrNotFound = errors.New("object not found")

type memoryObject struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process core.ObjectStore used when no NATS server is configured.
// Objects expire after the TTL, like the JetStream bucket; expired objects are dropped on
// access and on every upload.
type MemoryStore struct {
	mutex   sync.Mutex
	ttl     time.Duration
	objects map[string]memoryObject
}

// NewMemoryStore creates an empty MemoryStore. A ttl of zero keeps objects until deleted.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		mutex:   sync.Mutex{},
		ttl:     ttl,
		objects: make(map[string]memoryObject),
	}
}

// Download returns a copy of the stored object.
func (m *MemoryStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	object, ok := m.objects[key]
	if ok && m.expired(object, time.Now()) {
		delete(m.objects, key)

		ok = false
	}

	if !ok {
		return nil, fmt.Errorf("%w: '%s'", ErrNotFound, key)
	}

	return append([]byte(nil), object.data...), nil
}

// Upload stores a copy of data under key, replacing any previous object.
func (m *MemoryStore) Upload(_ context.Context, key string, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	now := time.Now()
	m.sweep(now)

	object := memoryObject{data: append([]byte(nil), data...)}
	if m.ttl > 0 {
		object.expires = now.Add(m.ttl)
	}

	m.objects[key] = object

	return nil
}

// Delete removes the object stored under key.
func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	delete(m.objects, key)

	return nil
}

// Len returns the number of objects held, expired ones included until the next sweep.
func (m *MemoryStore) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return len(m.objects)
}

func (m *MemoryStore) sweep(now time.Time) {
	for key, object := range m.objects {
		if m.expired(object, now) {
			delete(m.objects, key)
		}
	}
}

func (m *MemoryStore) expired(object memoryObject, now time.Time) bool {
	return !object.expires.IsZero() && !now.Before(object.expires)
}
