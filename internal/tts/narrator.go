package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/text"
	"github.com/book-expert/pdf-audiobook/internal/tts/audio"
)

// HealthCheckTimeout bounds a TTS service health check.
const HealthCheckTimeout = 10 * time.Second

const (
	sampleMaxRunes = 1000

	logFmtNarrationStarted = "Narrating %d pages in '%s' with %d workers"
	logFmtPageNarrated     = "Narrated page %d (%d bytes)"
	logFmtPageFailed       = "Failed to narrate page %d: %v"
	logFmtPageSkipped      = "Skipping page %d: translation failed"
	logFmtNarrationDone    = "Audiobook assembled: %d bytes, %d of %d pages skipped"
	errFmtChunkFailed      = "chunk %d/%d failed: %w"
)

var (
	// ErrNoAudio indicates that no page produced any audio.
	ErrNoAudio = errors.New("no audio was produced")
	// ErrTranslationFailed marks a page skipped because its translation failed.
	ErrTranslationFailed = errors.New("translation failed, page not narrated")
	// ErrNothingToSay marks a page whose text is empty after speech cleanup.
	ErrNothingToSay = errors.New("no speakable text")
)

// Narrator synthesizes each translated page independently and concatenates the
// results in page order.
type Narrator struct {
	synth        core.SpeechSynthesizer
	preprocessor *text.Preprocessor
	resolver     *LanguageResolver
	workers      int
	log          *logger.Logger
}

// NewNarrator creates a Narrator running at most workers synthesis calls at once.
func NewNarrator(
	synth core.SpeechSynthesizer,
	resolver *LanguageResolver,
	workers int,
	log *logger.Logger,
) *Narrator {
	if workers < 1 {
		workers = 1
	}

	if resolver == nil {
		resolver = NewLanguageResolver("")
	}

	return &Narrator{
		synth:        synth,
		preprocessor: text.NewPreprocessor(),
		resolver:     resolver,
		workers:      workers,
		log:          log,
	}
}

// NewSynthesizer builds the speech provider selected in the configuration.
func NewSynthesizer(cfg config.TTSConfig) (core.SpeechSynthesizer, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case config.ProviderGoogle:
		return NewGoogleSpeechClient(cfg.BaseURL, timeout), nil
	case config.ProviderService:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("tts: %w", config.ErrServiceURLEmpty)
		}

		return NewHTTPClient(cfg.BaseURL, cfg.Temperature, timeout), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownSpeech, cfg.Provider)
	}
}

// Narrate produces one audiobook from translations. Pages whose translation failed
// are not spoken, and a page whose synthesis fails is logged and left out. Every
// page gets an entry in Audiobook.Segments. When no page yields audio the error
// wraps core.ErrBuild and ErrNoAudio.
func (n *Narrator) Narrate(
	ctx context.Context,
	translations []core.Translation,
	targetLanguage string,
) (*core.Audiobook, error) {
	spokenLanguage := n.resolver.Resolve(targetLanguage, sampleText(translations))
	n.log.Info(logFmtNarrationStarted, len(translations), spokenLanguage, n.workers)

	segments := make([]core.Segment, len(translations))
	parts := make([][]byte, len(translations))

	var waitGroup sync.WaitGroup

	workerPool := make(chan struct{}, n.workers)

	for index, translation := range translations {
		if translation.Failed() {
			n.log.Warn(logFmtPageSkipped, translation.Page)

			segments[index] = core.Segment{Page: translation.Page, Bytes: 0, Err: ErrTranslationFailed}

			continue
		}

		waitGroup.Add(1)

		go func(slot int, page int, content string) {
			defer waitGroup.Done()

			workerPool <- struct{}{}

			defer func() { <-workerPool }()

			data, err := n.narratePage(ctx, content, spokenLanguage)
			if err != nil {
				n.log.Error(logFmtPageFailed, page, err)

				segments[slot] = core.Segment{Page: page, Bytes: 0, Err: err}

				return
			}

			parts[slot] = data
			segments[slot] = core.Segment{Page: page, Bytes: len(data), Err: nil}

			n.log.Info(logFmtPageNarrated, page, len(data))
		}(index, translation.Page, translation.Text)
	}

	waitGroup.Wait()

	ctxErr := ctx.Err()
	if ctxErr != nil {
		return nil, fmt.Errorf("narration cancelled: %w", ctxErr)
	}

	var assembled bytes.Buffer

	for index := range segments {
		if segments[index].Err == nil {
			assembled.Write(parts[index])
		}
	}

	book := &core.Audiobook{Audio: assembled.Bytes(), Segments: segments}
	n.log.Info(logFmtNarrationDone, assembled.Len(), len(book.Skipped()), len(segments))

	if assembled.Len() == 0 {
		return book, fmt.Errorf("%w: %w", core.ErrBuild, ErrNoAudio)
	}

	return book, nil
}

// narratePage cleans one page for speech, synthesizes it chunk by chunk and returns
// the concatenated MP3 bytes.
func (n *Narrator) narratePage(ctx context.Context, content, spokenLanguage string) ([]byte, error) {
	cleaned := n.preprocessor.PreprocessText(content)

	chunks := text.Split(cleaned, n.maxChars())
	if len(chunks) == 0 {
		return nil, ErrNothingToSay
	}

	var segment bytes.Buffer

	for index, chunk := range chunks {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, fmt.Errorf(errFmtChunkFailed, index+1, len(chunks), ctxErr)
		}

		data, err := n.synth.Synthesize(ctx, chunk, spokenLanguage)
		if err != nil {
			return nil, fmt.Errorf(errFmtChunkFailed, index+1, len(chunks), err)
		}

		validateErr := audio.ValidateMPEG(data)
		if validateErr != nil {
			return nil, fmt.Errorf(errFmtChunkFailed, index+1, len(chunks), validateErr)
		}

		segment.Write(data)
	}

	return segment.Bytes(), nil
}

func (n *Narrator) maxChars() int {
	limiter, ok := n.synth.(core.SpeechLimiter)
	if !ok {
		return 0
	}

	return limiter.MaxChars()
}

// sampleText collects successfully translated text for language detection.
func sampleText(translations []core.Translation) string {
	var builder strings.Builder

	for _, translation := range translations {
		if translation.Failed() {
			continue
		}

		builder.WriteString(translation.Text)
		builder.WriteByte(' ')

		if utf8.RuneCountInString(builder.String()) >= sampleMaxRunes {
			break
		}
	}

	return strings.TrimSpace(builder.String())
}
