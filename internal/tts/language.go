package tts

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
	"golang.org/x/text/language"
)

// LanguageResolver picks the synthesis language for a narration.
//
// Order: the configured language, then the base subtag of the requested target
// language, then the language detected in the translated text, then "en".
type LanguageResolver struct {
	configured string
	once       sync.Once
	detector   lingua.LanguageDetector
}

// NewLanguageResolver creates a resolver. A non-empty configured language always wins.
func NewLanguageResolver(configured string) *LanguageResolver {
	return &LanguageResolver{
		configured: strings.TrimSpace(configured),
		once:       sync.Once{},
		detector:   nil,
	}
}

// Resolve returns an ISO 639-1 code for the given target language and text sample.
func (r *LanguageResolver) Resolve(target, sample string) string {
	if r.configured != "" {
		return r.configured
	}

	code, ok := baseLanguage(target)
	if ok {
		return code
	}

	code, ok = r.detect(sample)
	if ok {
		return code
	}

	return defaultLanguage
}

// baseLanguage parses free-form target input such as "fr", "pt-BR" or "zh_Hant".
func baseLanguage(target string) (string, bool) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(target), "_", "-")
	if trimmed == "" {
		return "", false
	}

	tag, err := language.Parse(trimmed)
	if err != nil {
		return "", false
	}

	base, confidence := tag.Base()
	if confidence == language.No || base.String() == "und" {
		return "", false
	}

	return base.String(), true
}

func (r *LanguageResolver) detect(sample string) (string, bool) {
	if strings.TrimSpace(sample) == "" {
		return "", false
	}

	// Models are loaded on first use only.
	r.once.Do(func() {
		r.detector = lingua.NewLanguageDetectorBuilder().
			FromAllLanguages().
			WithLowAccuracyMode().
			Build()
	})

	detected, ok := r.detector.DetectLanguageOf(sample)
	if !ok {
		return "", false
	}

	return strings.ToLower(detected.IsoCode639_1().String()), true
}
