package translate

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/text"
)

// Service translates page sequences with a best-effort policy: a failing page is
// recorded as a failed core.Translation and the batch continues.
type Service struct {
	translator core.Translator
	source     string
	maxChars   int
	log        *logger.Logger
}

// NewService creates a Service. Page text longer than maxChars is translated in
// sentence-aligned chunks; zero disables chunking.
func NewService(translator core.Translator, source string, maxChars int, log *logger.Logger) *Service {
	return &Service{
		translator: translator,
		source:     source,
		maxChars:   maxChars,
		log:        log,
	}
}

// NewTranslator builds the provider selected in the configuration.
func NewTranslator(cfg config.TranslatorConfig) (core.Translator, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch cfg.Provider {
	case config.ProviderGoogle:
		return NewGoogleWebTranslator(cfg.BaseURL, timeout), nil
	case config.ProviderLibreTranslate:
		return NewLibreTranslateClient(cfg.BaseURL, cfg.APIKey, timeout), nil
	default:
		return nil, fmt.Errorf("%w: '%s'", config.ErrUnknownTranslator, cfg.Provider)
	}
}

// TranslatePages returns exactly one Translation per input page, in order.
func (s *Service) TranslatePages(ctx context.Context, pages []core.Page, target string) []core.Translation {
	translations := make([]core.Translation, len(pages))

	for index, page := range pages {
		translated, err := s.translatePage(ctx, page.Text, target)
		if err != nil {
			s.log.Error("Translation error on page %d: %v", page.Number, err)

			translations[index] = core.Translation{
				Page:   page.Number,
				Source: page.Text,
				Text:   core.TranslationErrorText,
				Err:    fmt.Errorf("%w: page %d: %w", core.ErrTranslation, page.Number, err),
			}

			continue
		}

		translations[index] = core.Translation{
			Page:   page.Number,
			Source: page.Text,
			Text:   translated,
			Err:    nil,
		}
	}

	return translations
}

func (s *Service) translatePage(ctx context.Context, content, target string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return content, nil
	}

	chunks := text.SplitParagraphs(content, s.maxChars)

	var translated strings.Builder

	for index, chunk := range chunks {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return "", fmt.Errorf("translation cancelled: %w", ctxErr)
		}

		result, err := s.translator.Translate(ctx, chunk.Text, s.source, target)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", index+1, len(chunks), err)
		}

		translated.WriteString(chunk.Separator)
		translated.WriteString(result)
	}

	return translated.String(), nil
}
