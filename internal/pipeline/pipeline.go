// Package pipeline runs a PDF through extraction, translation, document building and
// narration for a single request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/document"
	"github.com/book-expert/pdf-audiobook/internal/extract"
	"github.com/book-expert/pdf-audiobook/internal/manifest"
	"github.com/book-expert/pdf-audiobook/internal/translate"
	"github.com/book-expert/pdf-audiobook/internal/tts"
	"github.com/google/uuid"
)

// Log formats.
const (
	logFmtJobStarted   = "Job %s: processing '%s' into '%s'"
	logFmtExtracted    = "Job %s: extracted %d pages in %s"
	logFmtTranslated   = "Job %s: translated %d pages (%d failed) in %s"
	logFmtDocumentErr  = "Job %s: document build failed: %v"
	logFmtAudioErr     = "Job %s: narration failed: %v"
	logFmtJobCompleted = "Job %s: completed in %s"
)

var (
	// ErrTargetLanguageRequired is returned when the target language is blank.
	ErrTargetLanguageRequired = fmt.Errorf("%w: target language is required", core.ErrInputValidation)
	// ErrDocumentRequired is returned when no PDF stream was supplied.
	ErrDocumentRequired = fmt.Errorf("%w: a PDF document is required", core.ErrInputValidation)
)

// PageExtractor reads the text pages of a PDF.
type PageExtractor interface {
	Extract(ctx context.Context, r io.Reader) ([]core.Page, error)
}

// PageTranslator translates pages with a best-effort policy.
type PageTranslator interface {
	TranslatePages(ctx context.Context, pages []core.Page, target string) []core.Translation
}

// DocumentBuilder renders one output page per text.
type DocumentBuilder interface {
	Build(texts []string) ([]byte, error)
}

// AudiobookNarrator turns translations into a single audio stream.
type AudiobookNarrator interface {
	Narrate(ctx context.Context, translations []core.Translation, targetLanguage string) (*core.Audiobook, error)
}

// Request is one unit of work.
type Request struct {
	Document       io.Reader
	Filename       string
	TargetLanguage string
}

// Result is everything a request produced. DocumentErr and AudioErr are independent:
// either output may exist without the other.
type Result struct {
	JobID          string
	TargetLanguage string
	Pages          []core.Page
	Translations   []core.Translation
	PDF            []byte
	DocumentErr    error
	Audiobook      *core.Audiobook
	AudioErr       error
	Manifest       *manifest.Manifest
}

// Audio returns the assembled audio, or nil when narration failed.
func (r *Result) Audio() []byte {
	if r.AudioErr != nil || r.Audiobook == nil {
		return nil
	}

	return r.Audiobook.Audio
}

// Pipeline wires the four stages together.
type Pipeline struct {
	extractor  PageExtractor
	translator PageTranslator
	builder    DocumentBuilder
	narrator   AudiobookNarrator
	closers    []io.Closer
	log        *logger.Logger
}

// New creates a Pipeline from its stages.
func New(
	extractor PageExtractor,
	translator PageTranslator,
	builder DocumentBuilder,
	narrator AudiobookNarrator,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		extractor:  extractor,
		translator: translator,
		builder:    builder,
		narrator:   narrator,
		closers:    nil,
		log:        log,
	}
}

// FromConfig builds the production pipeline described by cfg.
func FromConfig(cfg *config.Config, log *logger.Logger) (*Pipeline, error) {
	translator, err := translate.NewTranslator(cfg.Translator)
	if err != nil {
		return nil, fmt.Errorf("failed to create translator: %w", err)
	}

	synth, err := tts.NewSynthesizer(cfg.TTS)
	if err != nil {
		return nil, fmt.Errorf("failed to create speech synthesizer: %w", err)
	}

	extractor := extract.New(extract.Options{
		KeepBlankPages: cfg.Extractor.KeepBlankPages,
		OCRFallback:    cfg.Extractor.OCRFallback,
		OCRLanguage:    cfg.Extractor.OCRLanguage,
	}, log)

	pipeline := New(
		extractor,
		translate.NewService(translator, cfg.Translator.SourceLanguage, cfg.Translator.MaxChars, log),
		document.NewBuilder(document.OptionsFromConfig(cfg.Document), log),
		tts.NewNarrator(synth, tts.NewLanguageResolver(cfg.TTS.Language), cfg.TTS.Workers, log),
		log,
	)
	pipeline.closers = append(pipeline.closers, extractor)

	return pipeline, nil
}

// Close releases stage resources.
func (p *Pipeline) Close() error {
	var errs []error

	for _, closer := range p.closers {
		closeErr := closer.Close()
		if closeErr != nil {
			errs = append(errs, closeErr)
		}
	}

	return errors.Join(errs...)
}

// Run processes one request. It fails only for invalid input or an unreadable PDF;
// document and audio failures are reported in the Result.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	target := strings.TrimSpace(req.TargetLanguage)
	if target == "" {
		return nil, ErrTargetLanguageRequired
	}

	if req.Document == nil {
		return nil, ErrDocumentRequired
	}

	jobID := uuid.New().String()
	started := time.Now()

	p.log.Info(logFmtJobStarted, jobID, req.Filename, target)

	pages, err := p.extractor.Extract(ctx, req.Document)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}

	extractTime := time.Since(started)
	p.log.Info(logFmtExtracted, jobID, len(pages), extractTime)

	translateStarted := time.Now()
	translations := p.translator.TranslatePages(ctx, pages, target)
	translateTime := time.Since(translateStarted)

	result := &Result{
		JobID:          jobID,
		TargetLanguage: target,
		Pages:          pages,
		Translations:   translations,
		PDF:            nil,
		DocumentErr:    nil,
		Audiobook:      nil,
		AudioErr:       nil,
		Manifest:       nil,
	}

	p.log.Info(logFmtTranslated, jobID, len(translations), countFailed(translations), translateTime)

	documentTime, audioTime := p.buildOutputs(ctx, result)

	result.Manifest = manifest.New(jobID, req.Filename, target, translations, result.Audiobook)
	result.Manifest.Timings = manifest.StageTimings{
		Extract:   extractTime,
		Translate: translateTime,
		Document:  documentTime,
		Audio:     audioTime,
	}

	if result.DocumentErr != nil {
		result.Manifest.Document.Error = result.DocumentErr.Error()
	}

	if result.AudioErr != nil {
		result.Manifest.Audio.Error = result.AudioErr.Error()
	}

	p.log.Info(logFmtJobCompleted, jobID, time.Since(started))

	return result, nil
}

// buildOutputs runs the document builder and the narrator concurrently. Neither
// outcome affects the other.
func (p *Pipeline) buildOutputs(ctx context.Context, result *Result) (time.Duration, time.Duration) {
	var (
		waitGroup    sync.WaitGroup
		documentTime time.Duration
		audioTime    time.Duration
	)

	waitGroup.Add(2)

	go func() {
		defer waitGroup.Done()

		started := time.Now()
		result.PDF, result.DocumentErr = p.builder.Build(core.Texts(result.Translations))
		documentTime = time.Since(started)

		if result.DocumentErr != nil {
			result.PDF = nil
			p.log.Error(logFmtDocumentErr, result.JobID, result.DocumentErr)
		}
	}()

	go func() {
		defer waitGroup.Done()

		started := time.Now()
		result.Audiobook, result.AudioErr = p.narrator.Narrate(ctx, result.Translations, result.TargetLanguage)
		audioTime = time.Since(started)

		if result.AudioErr != nil {
			p.log.Error(logFmtAudioErr, result.JobID, result.AudioErr)
		}
	}()

	waitGroup.Wait()

	return documentTime, audioTime
}

func countFailed(translations []core.Translation) int {
	failed := 0

	for _, translation := range translations {
		if translation.Failed() {
			failed++
		}
	}

	return failed
}
