// Package extract reads the text of a PDF page by page.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/tsawler/tabula"
	"github.com/tsawler/tabula/ocr"
	"github.com/tsawler/tabula/reader"
)

const tempFilePattern = "pdf-audiobook-source-*.pdf"

// ErrEmptyDocument indicates the uploaded stream contained no bytes.
var ErrEmptyDocument = errors.New("document is empty")

// Recognizer performs OCR on a PNG image.
type Recognizer interface {
	RecognizeImage(imageData []byte) (string, error)
	Close() error
}

// Options controls extraction policy.
type Options struct {
	// KeepBlankPages keeps an empty placeholder for pages without text instead of
	// dropping them.
	KeepBlankPages bool
	// OCRFallback runs OCR on the images of pages without a text layer.
	OCRFallback bool
	OCRLanguage string
}

// Extractor turns a PDF stream into an ordered sequence of page texts.
type Extractor struct {
	options    Options
	recognizer Recognizer
	log        *logger.Logger
}

// New creates an Extractor. When OCR is requested but unavailable in this build, the
// fallback is disabled and a warning is logged.
func New(options Options, log *logger.Logger) *Extractor {
	extractor := &Extractor{
		options:    options,
		recognizer: nil,
		log:        log,
	}

	if options.OCRFallback {
		extractor.recognizer = newTesseract(options.OCRLanguage, log)
	}

	return extractor
}

// NewWithRecognizer creates an Extractor that uses the given OCR engine for pages without
// a text layer.
func NewWithRecognizer(options Options, recognizer Recognizer, log *logger.Logger) *Extractor {
	options.OCRFallback = recognizer != nil

	return &Extractor{
		options:    options,
		recognizer: recognizer,
		log:        log,
	}
}

// Close releases the OCR engine, if any.
func (e *Extractor) Close() error {
	if e.recognizer == nil {
		return nil
	}

	return e.recognizer.Close()
}

// Extract reads the PDF from r and returns one Page per source page that has text.
// Blank pages are omitted unless KeepBlankPages is set, so the result length is not the
// source page count. Unreadable input yields an error wrapping core.ErrParse.
func (e *Extractor) Extract(ctx context.Context, r io.Reader) ([]core.Page, error) {
	sourceFile, err := spool(r)
	if err != nil {
		return nil, err
	}

	defer func() {
		removeErr := os.Remove(sourceFile.Name())
		if removeErr != nil {
			e.log.Warn("Failed to remove temp file '%s': %v", sourceFile.Name(), removeErr)
		}
	}()

	pdfReader, err := reader.NewReader(sourceFile)
	if err != nil {
		_ = sourceFile.Close()

		return nil, fmt.Errorf("%w: %w", core.ErrParse, err)
	}
	defer pdfReader.Close()

	pageCount, err := pdfReader.PageCount()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read page tree: %w", core.ErrParse, err)
	}

	pages := make([]core.Page, 0, pageCount)

	for pageNumber := 1; pageNumber <= pageCount; pageNumber++ {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return nil, fmt.Errorf("extraction cancelled at page %d: %w", pageNumber, ctxErr)
		}

		text := e.pageText(pdfReader, pageNumber)
		if text == "" && !e.options.KeepBlankPages {
			e.log.Info("Skipping page %d: no extractable text", pageNumber)

			continue
		}

		pages = append(pages, core.Page{Number: pageNumber, Text: text})
	}

	e.log.Info("Extracted %d of %d pages", len(pages), pageCount)

	return pages, nil
}

func (e *Extractor) pageText(pdfReader *reader.Reader, pageNumber int) string {
	text, warnings, err := tabula.FromReader(pdfReader).Pages(pageNumber).Text()
	if err != nil {
		e.log.Warn("Failed to extract text from page %d: %v", pageNumber, err)

		text = ""
	}

	for _, warning := range warnings {
		e.log.Warn("Page %d: %s", pageNumber, warning.Message)
	}

	text = strings.TrimSpace(text)
	if text != "" || e.recognizer == nil {
		return text
	}

	return e.recognizePage(pdfReader, pageNumber)
}

// recognizePage runs OCR over every image on the page and joins the results.
func (e *Extractor) recognizePage(pdfReader *reader.Reader, pageNumber int) string {
	page, err := pdfReader.GetPage(pageNumber - 1)
	if err != nil {
		e.log.Warn("OCR: failed to load page %d: %v", pageNumber, err)

		return ""
	}

	images, err := pdfReader.ExtractPageImages(page)
	if err != nil {
		e.log.Warn("OCR: failed to extract images from page %d: %v", pageNumber, err)

		return ""
	}

	var parts []string

	for index, image := range images {
		png, pngErr := image.ToPNG()
		if pngErr != nil {
			e.log.Warn("OCR: page %d image %d: %v", pageNumber, index, pngErr)

			continue
		}

		recognized, ocrErr := e.recognizer.RecognizeImage(png)
		if ocrErr != nil {
			e.log.Warn("OCR: page %d image %d: %v", pageNumber, index, ocrErr)

			continue
		}

		if recognized != "" {
			parts = append(parts, recognized)
		}
	}

	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// spool copies the stream into a temp file owned by the caller, positioned at offset 0.
func spool(r io.Reader) (*os.File, error) {
	sourceFile, err := os.CreateTemp("", tempFilePattern)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file for source document: %w", err)
	}

	written, copyErr := io.Copy(sourceFile, r)
	if copyErr == nil && written == 0 {
		copyErr = fmt.Errorf("%w: %w", core.ErrParse, ErrEmptyDocument)
	}

	if copyErr == nil {
		_, copyErr = sourceFile.Seek(0, io.SeekStart)
	}

	if copyErr != nil {
		_ = sourceFile.Close()
		_ = os.Remove(sourceFile.Name())

		if errors.Is(copyErr, core.ErrParse) {
			return nil, copyErr
		}

		return nil, fmt.Errorf("failed to spool source document: %w", copyErr)
	}

	return sourceFile, nil
}

func newTesseract(language string, log *logger.Logger) Recognizer {
	client, err := ocr.New()
	if err != nil {
		log.Warn("OCR fallback disabled: %v", err)

		return nil
	}

	if language != "" {
		langErr := client.SetLanguage(language)
		if langErr != nil {
			log.Warn("OCR: failed to set language '%s': %v", language, langErr)
		}
	}

	return client
}
