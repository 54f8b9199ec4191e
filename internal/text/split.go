package text

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Split breaks text into chunks of at most maxChars runes. It prefers sentence
// boundaries, then word boundaries, and only cuts inside a word that is itself longer
// than maxChars. A maxChars of zero or less disables splitting.
func Split(text string, maxChars int) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if maxChars <= 0 || utf8.RuneCountInString(trimmed) <= maxChars {
		return []string{trimmed}
	}

	chunker := &chunker{maxChars: maxChars}

	for _, sentence := range Sentences(trimmed) {
		if utf8.RuneCountInString(sentence) <= maxChars {
			chunker.add(sentence)

			continue
		}

		for _, word := range strings.Fields(sentence) {
			if utf8.RuneCountInString(word) <= maxChars {
				chunker.add(word)

				continue
			}

			for _, part := range hardSplit(word, maxChars) {
				chunker.add(part)
			}
		}
	}

	return chunker.finish()
}

// Chunk is one piece of a split text and the separator that preceded it in the source.
type Chunk struct {
	Text      string
	Separator string
}

var lineBreak = regexp.MustCompile(`[ \t]*\n\s*`)

// SplitParagraphs breaks text into chunks of at most maxChars runes without losing its
// line breaks. Consecutive paragraphs are packed into one chunk with their breaks intact;
// the break between two chunks becomes the Separator of the second. A paragraph longer
// than maxChars is cut with Split and its pieces are separated by a space.
func SplitParagraphs(text string, maxChars int) []Chunk {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	if maxChars <= 0 || utf8.RuneCountInString(trimmed) <= maxChars {
		return []Chunk{{Text: trimmed}}
	}

	paragraphs := lineBreak.Split(trimmed, -1)
	breaks := lineBreak.FindAllString(trimmed, -1)
	packer := &paragraphPacker{maxChars: maxChars}

	for index, paragraph := range paragraphs {
		separator := ""
		if index > 0 {
			separator = breaks[index-1]
		}

		packer.add(paragraph, separator)
	}

	return packer.finish()
}

type paragraphPacker struct {
	maxChars  int
	chunks    []Chunk
	current   strings.Builder
	length    int
	separator string
}

func (p *paragraphPacker) add(paragraph, separator string) {
	length := utf8.RuneCountInString(paragraph)

	if length > p.maxChars {
		p.flush()

		for index, piece := range Split(paragraph, p.maxChars) {
			pieceSeparator := " "
			if index == 0 {
				pieceSeparator = separator
			}

			p.chunks = append(p.chunks, Chunk{Text: piece, Separator: pieceSeparator})
		}

		return
	}

	separatorLength := utf8.RuneCountInString(separator)

	if p.length > 0 && p.length+separatorLength+length > p.maxChars {
		p.flush()
	}

	if p.length == 0 {
		p.separator = separator
	} else {
		p.current.WriteString(separator)
		p.length += separatorLength
	}

	p.current.WriteString(paragraph)
	p.length += length
}

func (p *paragraphPacker) flush() {
	if p.length == 0 {
		return
	}

	p.chunks = append(p.chunks, Chunk{Text: p.current.String(), Separator: p.separator})
	p.current.Reset()
	p.length = 0
}

func (p *paragraphPacker) finish() []Chunk {
	p.flush()

	return p.chunks
}

// Sentences splits text after sentence terminators that are followed by whitespace.
func Sentences(text string) []string {
	var sentences []string

	runes := []rune(text)
	start := 0

	for index, char := range runes {
		atBoundary := index+1 == len(runes) || unicode.IsSpace(runes[index+1]) || isFullWidth(char)
		if !isTerminator(char) || !atBoundary {
			continue
		}

		sentence := strings.TrimSpace(string(runes[start : index+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}

		start = index + 1
	}

	rest := strings.TrimSpace(string(runes[start:]))
	if rest != "" {
		sentences = append(sentences, rest)
	}

	return sentences
}

type chunker struct {
	maxChars int
	chunks   []string
	current  strings.Builder
	length   int
}

func (c *chunker) add(piece string) {
	pieceLength := utf8.RuneCountInString(piece)

	if c.length > 0 && c.length+1+pieceLength > c.maxChars {
		c.flush()
	}

	if c.length > 0 {
		c.current.WriteByte(' ')
		c.length++
	}

	c.current.WriteString(piece)
	c.length += pieceLength
}

func (c *chunker) flush() {
	if c.length == 0 {
		return
	}

	c.chunks = append(c.chunks, c.current.String())
	c.current.Reset()
	c.length = 0
}

func (c *chunker) finish() []string {
	c.flush()

	return c.chunks
}

func hardSplit(word string, maxChars int) []string {
	runes := []rune(word)
	parts := make([]string, 0, len(runes)/maxChars+1)

	for start := 0; start < len(runes); start += maxChars {
		end := min(start+maxChars, len(runes))
		parts = append(parts, string(runes[start:end]))
	}

	return parts
}

// isFullWidth reports terminators of scripts that do not put spaces between sentences.
func isFullWidth(char rune) bool {
	return char == '。' || char == '！' || char == '？'
}

func isTerminator(char rune) bool {
	switch char {
	case '.', '!', '?', ';', '。', '！', '？', '؟', '।':
		return true
	default:
		return false
	}
}
