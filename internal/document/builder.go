// Package document renders translated page text into a PDF with exactly one output page
// per input string.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/go-pdf/fpdf"
	"golang.org/x/image/font/gofont/goregular"
)

// Layout constants. Sizes are in points, lengths in millimetres.
const (
	fontFamily     = "body"
	pageOrient     = "P"
	pageUnit       = "mm"
	pageSize       = "A4"
	fontSizeStep   = 0.5
	documentTitle  = "Translated document"
	documentAuthor = "pdf-audiobook"
)

// Error messages.
const (
	errFmtFontNotFound = "font file not found: %s"
	errFmtRenderPage   = "failed to render page %d: %w"
)

var (
	// ErrNoPages indicates there was nothing to render.
	ErrNoPages = errors.New("no pages to render")
	// ErrNoPrintableArea indicates the margins leave no room for a single line.
	ErrNoPrintableArea = errors.New("no printable area for one line of text")
)

// Options controls the typography of the generated document.
type Options struct {
	FontPath    string
	FontSize    float64
	MinFontSize float64
	Margin      float64
	Encoding    string
}

// OptionsFromConfig maps the [document] configuration section onto builder options.
func OptionsFromConfig(cfg config.DocumentConfig) Options {
	return Options{
		FontPath:    cfg.FontPath,
		FontSize:    cfg.FontSize,
		MinFontSize: cfg.MinFontSize,
		Margin:      cfg.Margin,
		Encoding:    cfg.Encoding,
	}
}

// Builder renders page text with a single TrueType font.
type Builder struct {
	options Options
	log     *logger.Logger
}

// NewBuilder creates a Builder. An empty FontPath selects the embedded Go Regular font.
func NewBuilder(options Options, log *logger.Logger) *Builder {
	defaults := OptionsFromConfig(config.Default().Document)

	if options.FontSize <= 0 {
		options.FontSize = defaults.FontSize
	}

	if options.MinFontSize <= 0 || options.MinFontSize > options.FontSize {
		options.MinFontSize = min(defaults.MinFontSize, options.FontSize)
	}

	if options.Margin <= 0 {
		options.Margin = defaults.Margin
	}

	if !config.MarginFits(options.Margin, options.MinFontSize) {
		log.Warn("Margin %.1f mm leaves no room for text; using %.1f mm", options.Margin, defaults.Margin)
		options.Margin = defaults.Margin
	}

	if options.Encoding == "" {
		options.Encoding = config.EncodingUTF8
	}

	return &Builder{options: options, log: log}
}

// Build returns a PDF containing one page per element of texts, in order.
func (b *Builder) Build(texts []string) ([]byte, error) {
	fontBytes, err := b.loadFont()
	if err != nil {
		return nil, err
	}

	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: %w", core.ErrBuild, ErrNoPages)
	}

	pdf := fpdf.New(pageOrient, pageUnit, pageSize, "")
	pdf.SetTitle(documentTitle, true)
	pdf.SetCreator(documentAuthor, true)
	pdf.SetMargins(b.options.Margin, b.options.Margin, b.options.Margin)
	pdf.SetAutoPageBreak(false, b.options.Margin)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontBytes)

	if pdf.Err() {
		return nil, fmt.Errorf("%w: failed to load font: %w", core.ErrBuild, pdf.Error())
	}

	for index, pageText := range texts {
		renderErr := b.renderPage(pdf, sanitize(pageText, b.options.Encoding), index+1)
		if renderErr != nil {
			return nil, fmt.Errorf("%w: "+errFmtRenderPage, core.ErrBuild, index+1, renderErr)
		}

		if pdf.Err() {
			return nil, fmt.Errorf("%w: "+errFmtRenderPage, core.ErrBuild, index+1, pdf.Error())
		}
	}

	var output bytes.Buffer

	outputErr := pdf.Output(&output)
	if outputErr != nil {
		return nil, fmt.Errorf("%w: failed to write PDF: %w", core.ErrBuild, outputErr)
	}

	b.log.Info("Built PDF with %d pages (%d bytes)", len(texts), output.Len())

	return output.Bytes(), nil
}

func (b *Builder) loadFont() ([]byte, error) {
	if b.options.FontPath == "" {
		return goregular.TTF, nil
	}

	fontBytes, err := os.ReadFile(b.options.FontPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: "+errFmtFontNotFound, core.ErrResourceNotFound, b.options.FontPath)
		}

		return nil, fmt.Errorf("%w: failed to read font %s: %w", core.ErrBuild, b.options.FontPath, err)
	}

	return fontBytes, nil
}

// renderPage adds one page. The font shrinks until the wrapped text fits the printable
// area; at the minimum size surplus lines are cut and the last kept line ends in an
// ellipsis.
func (b *Builder) renderPage(pdf *fpdf.Fpdf, pageText string, pageNumber int) error {
	pdf.AddPage()

	pageWidth, pageHeight := pdf.GetPageSize()
	left, top, right, bottom := pdf.GetMargins()
	width := pageWidth - left - right
	height := pageHeight - top - bottom

	var (
		lines      []string
		lineHeight float64
	)

	size := b.options.FontSize
	for {
		pdf.SetFont(fontFamily, "", size)
		lineHeight = size * config.LineHeightPerPoint
		lines = pdf.SplitText(pageText, width)

		if float64(len(lines))*lineHeight <= height || size-fontSizeStep < b.options.MinFontSize {
			break
		}

		size -= fontSizeStep
	}

	maxLines := int(math.Floor(height / lineHeight))
	if maxLines < 1 {
		return fmt.Errorf("%w: %.1f x %.1f mm", ErrNoPrintableArea, width, height)
	}

	if len(lines) > maxLines {
		b.log.Warn("Page %d does not fit at %.1f pt; truncating %d of %d lines",
			pageNumber, size, len(lines)-maxLines, len(lines))

		lines = lines[:maxLines]
		lines[maxLines-1] = strings.TrimRight(lines[maxLines-1], " ") + ellipsis(b.options.Encoding)
	}

	pdf.SetXY(left, top)
	pdf.MultiCell(width, lineHeight, strings.Join(lines, "\n"), "", "L", false)

	return nil
}
