package document

import (
	"strings"
	"unicode"

	"github.com/book-expert/pdf-audiobook/internal/config"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

const (
	replacementChar = '?'
	maxFontRune     = 0xFFFF
)

// sanitize makes arbitrary text safe to lay out with a TrueType font: invalid UTF-8 is
// replaced, the text is NFC normalized and control characters other than newline and tab
// are dropped. Runes outside the Basic Multilingual Plane are replaced because the font
// width tables only cover it. The latin1 encoding additionally replaces every rune that
// ISO-8859-1 cannot represent.
func sanitize(text, encoding string) string {
	normalized := norm.NFC.String(strings.ToValidUTF8(text, string(unicode.ReplacementChar)))
	normalized = strings.ReplaceAll(normalized, "\r\n", "\n")

	var builder strings.Builder

	builder.Grow(len(normalized))

	for _, char := range normalized {
		switch {
		case char == '\n':
			builder.WriteRune(char)
		case char == '\t':
			builder.WriteRune(' ')
		case unicode.IsControl(char):
			continue
		case char > maxFontRune:
			builder.WriteRune(replacementChar)
		case encoding == config.EncodingLatin1 && !isLatin1(char):
			builder.WriteRune(replacementChar)
		default:
			builder.WriteRune(char)
		}
	}

	return builder.String()
}

func isLatin1(char rune) bool {
	_, ok := charmap.ISO8859_1.EncodeRune(char)

	return ok
}

func ellipsis(encoding string) string {
	if encoding == config.EncodingLatin1 {
		return "..."
	}

	return "…"
}
