// Package text provides text cleanup and chunking shared by the translation and
// narration stages.
package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Regex patterns for text preprocessing.
const (
	referenceRegexPattern  = `\[\d+(?:\s*[,–-]\s*\d+)*\]|[¹²³⁴⁵⁶⁷⁸⁹⁰]+`
	hyphenBreakPattern     = `(\p{L})-\s*\n\s*(\p{L})`
	whitespaceRegexPattern = `\s+`
	urlRegexPattern        = `https?://\S+`
)

// Punctuation and formatting constants.
const (
	emDash       = "—"
	enDash       = "–"
	figureDash   = "‒"
	ellipsis     = "..."
	ellipsisChar = "…"
	softHyphen   = "­"
)

// Preprocessor cleans extracted page text before it is spoken. It is language neutral:
// translated text can be in any language, so nothing is expanded or transliterated.
type Preprocessor struct {
	referencePattern   *regexp.Regexp
	hyphenBreakPattern *regexp.Regexp
	whitespacePattern  *regexp.Regexp
	urlPattern         *regexp.Regexp
	punctuation        *strings.Replacer
}

// NewPreprocessor creates a new text preprocessor with compiled patterns and replacers.
func NewPreprocessor() *Preprocessor {
	return &Preprocessor{
		referencePattern:   regexp.MustCompile(referenceRegexPattern),
		hyphenBreakPattern: regexp.MustCompile(hyphenBreakPattern),
		whitespacePattern:  regexp.MustCompile(whitespaceRegexPattern),
		urlPattern:         regexp.MustCompile(urlRegexPattern),
		punctuation: strings.NewReplacer(
			emDash, ", ",
			enDash, "-",
			figureDash, "-",
			ellipsisChar, ellipsis,
			softHyphen, "",
			"“", `"`, "”", `"`, "„", `"`,
			"‘", "'", "’", "'",
		),
	}
}

// PreprocessText prepares text for speech synthesis.
func (p *Preprocessor) PreprocessText(text string) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}

	// Words split across lines by the PDF layout are joined first, while the newlines
	// are still there to identify them.
	cleaned := p.hyphenBreakPattern.ReplaceAllString(text, "$1$2")
	cleaned = p.urlPattern.ReplaceAllString(cleaned, "")
	cleaned = p.referencePattern.ReplaceAllString(cleaned, "")
	cleaned = p.punctuation.Replace(cleaned)
	cleaned = p.whitespacePattern.ReplaceAllString(cleaned, " ")
	cleaned = removeRepeatedPunctuation(strings.TrimSpace(cleaned))

	return ensureSentenceEnding(cleaned)
}

// removeRepeatedPunctuation collapses runs of the same punctuation mark ("!!!" -> "!").
// Runs of periods are kept as written so ellipses survive.
func removeRepeatedPunctuation(text string) string {
	var (
		builder strings.Builder
		last    rune
	)

	builder.Grow(len(text))

	for _, char := range text {
		if char == last && unicode.IsPunct(char) && char != '.' {
			continue
		}

		builder.WriteRune(char)

		last = char
	}

	return builder.String()
}

// ensureSentenceEnding appends a period when the text does not end a sentence, so the
// synthesizer closes the page with a falling intonation.
func ensureSentenceEnding(text string) string {
	if text == "" {
		return ""
	}

	lastChar, _ := utf8.DecodeLastRuneInString(text)
	if isTerminator(lastChar) || lastChar == '"' || lastChar == '\'' || lastChar == ')' {
		return text
	}

	if unicode.IsPunct(lastChar) {
		return strings.TrimRightFunc(text, unicode.IsPunct) + "."
	}

	return text + "."
}
