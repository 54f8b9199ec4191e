// Package core defines the domain types and interfaces shared by the pdf-audiobook stages.
package core

import "context"

// ObjectStore defines the interface for interacting with a key-value blob store.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	Upload(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Translator translates a single piece of text into the target language.
// An empty source means the provider should detect it.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// SpeechSynthesizer turns text into MPEG audio spoken in the given language.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// SpeechLimiter is implemented by synthesizers that only accept short inputs.
type SpeechLimiter interface {
	MaxChars() int
}
