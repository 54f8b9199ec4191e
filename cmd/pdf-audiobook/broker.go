package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/objectstore"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

const embeddedReadyTimeout = 10 * time.Second

var (
	// ErrNATSNotConfigured indicates neither nats.url nor nats.embedded is set.
	ErrNATSNotConfigured = errors.New("NATS is not configured: set nats.url or nats.embedded")
	// ErrEmbeddedNATSNotReady indicates the embedded server did not start in time.
	ErrEmbeddedNATSNotReady = errors.New("embedded NATS server did not become ready")
)

// broker is a NATS connection with its artifact store and, optionally, the embedded
// server it is connected to.
type broker struct {
	conn     *nats.Conn
	store    *objectstore.NatsObjectStore
	embedded *server.Server
}

func (b *broker) Close() {
	b.conn.Close()

	if b.embedded != nil {
		b.embedded.Shutdown()
		b.embedded.WaitForShutdown()
	}
}

// openBroker connects to the configured NATS server, starting an embedded JetStream
// server first when nats.embedded is set. It returns nil when NATS is not configured.
func openBroker(cfg *config.Config, log *logger.Logger) (*broker, error) {
	var embedded *server.Server

	url := cfg.NATS.URL

	if cfg.NATS.Embedded {
		started, err := startEmbeddedServer(cfg.NATS.StoreDir)
		if err != nil {
			return nil, err
		}

		embedded = started
		url = embedded.ClientURL()
		log.Info("Embedded NATS server listening on %s", url)
	}

	if url == "" {
		return nil, nil
	}

	conn, err := nats.Connect(url, nats.Name("pdf-audiobook"))
	if err != nil {
		shutdown(embedded)

		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", url, err)
	}

	jetstreamContext, err := conn.JetStream()
	if err != nil {
		conn.Close()
		shutdown(embedded)

		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	store, err := objectstore.New(jetstreamContext, cfg.NATS.ArtifactBucket, artifactTTL(cfg))
	if err != nil {
		conn.Close()
		shutdown(embedded)

		return nil, err
	}

	return &broker{conn: conn, store: store, embedded: embedded}, nil
}

// openStore returns the artifact store for the HTTP shell: JetStream when NATS is
// configured, otherwise an in-process memory store.
func openStore(cfg *config.Config, log *logger.Logger) (core.ObjectStore, func(), error) {
	b, err := openBroker(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	if b == nil {
		log.Warn("NATS is not configured; artifacts are kept in memory")

		return objectstore.NewMemoryStore(artifactTTL(cfg)), func() {}, nil
	}

	return b.store, b.Close, nil
}

func artifactTTL(cfg *config.Config) time.Duration {
	return time.Duration(cfg.NATS.ArtifactTTLMinutes) * time.Minute
}

func startEmbeddedServer(storeDir string) (*server.Server, error) {
	opts := &server.Options{
		ServerName: "pdf-audiobook-embedded",
		Host:       "127.0.0.1",
		Port:       server.RANDOM_PORT,
		JetStream:  true,
		StoreDir:   storeDir,
		NoSigs:     true,
	}

	embedded, err := server.NewServer(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}

	embedded.Start()

	if !embedded.ReadyForConnections(embeddedReadyTimeout) {
		shutdown(embedded)

		return nil, ErrEmbeddedNATSNotReady
	}

	return embedded, nil
}

func shutdown(embedded *server.Server) {
	if embedded != nil {
		embedded.Shutdown()
	}
}
