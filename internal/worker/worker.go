// Package worker provides a NATS worker that processes translation jobs.
package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/pipeline"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	handleMessageTimeout = 10 * time.Minute
	queueGroup           = "pdf-audiobook-workers"
)

var (
	// ErrDocumentKeyEmpty indicates that the request names no source document.
	ErrDocumentKeyEmpty = errors.New("document key cannot be empty")
	// ErrWorkflowIDEmpty indicates that the request header carries no workflow ID.
	ErrWorkflowIDEmpty = errors.New("workflow id cannot be empty")
)

// Runner executes one pipeline request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// NatsWorker listens for translation jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subject        string
	store          core.ObjectStore
	runner         Runner
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subject string,
	store core.ObjectStore,
	runner Runner,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subject:        subject,
		store:          store,
		runner:         runner,
		log:            log,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled, then drains the subscription.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.QueueSubscribe(w.subject, queueGroup, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subject, err)
	}

	w.log.Info("Worker listening on '%s'", w.subject)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)
		w.reply(msg, &TranslationCompletedEvent{Header: replyHeader(events.EventHeader{}), Error: err.Error()})

		return
	}

	reply, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to process job for workflow %s: %v", event.Header.WorkflowID, processErr)

		reply = &TranslationCompletedEvent{Header: replyHeader(event.Header), Error: processErr.Error()}
	}

	w.reply(msg, reply)
}

// processJob downloads the document, runs the pipeline and uploads the artifacts.
func (w *NatsWorker) processJob(ctx context.Context, event *TranslationRequestedEvent) (*TranslationCompletedEvent, error) {
	documentData, err := w.store.Download(ctx, event.DocumentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download document for key '%s': %w", event.DocumentKey, err)
	}

	result, err := w.runner.Run(ctx, pipeline.Request{
		Document:       bytes.NewReader(documentData),
		Filename:       event.Filename,
		TargetLanguage: event.TargetLanguage,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", err)
	}

	artifacts, publishErr := pipeline.Publish(ctx, w.store, result)

	reply := &TranslationCompletedEvent{
		Header:      replyHeader(event.Header),
		JobID:       result.JobID,
		PDFKey:      artifacts.PDFKey,
		AudioKey:    artifacts.AudioKey,
		ManifestKey: artifacts.ManifestKey,
		FailedPages: result.Manifest.Failed(),
	}

	switch {
	case result.DocumentErr != nil:
		reply.PDFError = result.DocumentErr.Error()
	case artifacts.PDFErr != nil:
		reply.PDFError = artifacts.PDFErr.Error()
	}

	switch {
	case result.AudioErr != nil:
		reply.AudioError = result.AudioErr.Error()
	case artifacts.AudioErr != nil:
		reply.AudioError = artifacts.AudioErr.Error()
	}

	if publishErr != nil {
		w.log.Error("Job %s: failed to publish artifacts: %v", result.JobID, publishErr)
		reply.Error = fmt.Sprintf("failed to publish artifacts for job %s: %v", result.JobID, publishErr)
	}

	return reply, nil
}

// reply marshals and responds with the TranslationCompletedEvent.
func (w *NatsWorker) reply(msg *nats.Msg, replyEvent *TranslationCompletedEvent) {
	if msg.Reply == "" {
		return
	}

	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		w.log.Error("Failed to marshal reply event: %v", err)

		return
	}

	err = msg.Respond(replyData)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", replyEvent.Header.WorkflowID, err)
	}
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*TranslationRequestedEvent, error) {
	var event TranslationRequestedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Header.WorkflowID == "" {
		return nil, ErrWorkflowIDEmpty
	}

	if strings.TrimSpace(event.DocumentKey) == "" {
		return nil, ErrDocumentKeyEmpty
	}

	return &event, nil
}

// replyHeader keeps the workflow identity of the request under a fresh event ID.
func replyHeader(request events.EventHeader) events.EventHeader {
	return events.EventHeader{
		Timestamp:  time.Now(),
		WorkflowID: request.WorkflowID,
		EventID:    uuid.NewString(),
		UserID:     request.UserID,
		TenantID:   request.TenantID,
	}
}
