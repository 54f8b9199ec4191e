package document_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/document"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"
)

const pageMarker = "<</Type /Page\n"

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "document-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

func writeFont(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "goregular.ttf")
	require.NoError(t, os.WriteFile(path, goregular.TTF, 0o600))

	return path
}

func pageCount(pdf []byte) int {
	return bytes.Count(pdf, []byte(pageMarker))
}

func TestBuild_OnePagePerString(t *testing.T) {
	t.Parallel()

	builder := document.NewBuilder(document.Options{FontPath: writeFont(t)}, newTestLogger(t))

	tests := []struct {
		name  string
		texts []string
	}{
		{name: "single", texts: []string{"Bonjour"}},
		{name: "two", texts: []string{"Bonjour", "Monde"}},
		{name: "with sentinel", texts: []string{"Bonjour", core.TranslationErrorText, "Monde"}},
		{name: "empty string page", texts: []string{"", "Hallo"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pdf, err := builder.Build(tt.texts)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")))
			assert.Equal(t, len(tt.texts), pageCount(pdf))
		})
	}
}

func TestBuild_LongTextStaysOnOnePage(t *testing.T) {
	t.Parallel()

	builder := document.NewBuilder(document.Options{}, newTestLogger(t))

	long := strings.Repeat("Ceci est une phrase assez longue pour remplir la page. ", 2000)

	pdf, err := builder.Build([]string{long, "fin"})
	require.NoError(t, err)
	assert.Equal(t, 2, pageCount(pdf))
}

func TestBuild_EmbeddedFontWhenPathEmpty(t *testing.T) {
	t.Parallel()

	pdf, err := document.NewBuilder(document.Options{}, newTestLogger(t)).Build([]string{"Grüße, ça va ?"})
	require.NoError(t, err)
	assert.Equal(t, 1, pageCount(pdf))
}

func TestBuild_OversizedMarginFallsBackToDefault(t *testing.T) {
	t.Parallel()

	for _, margin := range []float64{148.5, 149, 1000} {
		builder := document.NewBuilder(document.Options{Margin: margin}, newTestLogger(t))

		pdf, err := builder.Build([]string{strings.Repeat("word ", 500), "fin"})
		require.NoError(t, err, "margin %.1f", margin)
		assert.Equal(t, 2, pageCount(pdf))
	}
}

func TestMarginFits(t *testing.T) {
	t.Parallel()

	assert.True(t, config.MarginFits(15, 6))
	assert.True(t, config.MarginFits(0, 12))
	assert.False(t, config.MarginFits(-1, 12))
	assert.False(t, config.MarginFits(148.5, 6))
	assert.False(t, config.MarginFits(104, 6))
}

func TestBuild_MissingFont(t *testing.T) {
	t.Parallel()

	builder := document.NewBuilder(document.Options{
		FontPath: filepath.Join(t.TempDir(), "missing.ttf"),
	}, newTestLogger(t))

	pdf, err := builder.Build([]string{"Hello"})
	require.ErrorIs(t, err, core.ErrResourceNotFound)
	assert.Nil(t, pdf)
}

func TestBuild_NoPages(t *testing.T) {
	t.Parallel()

	_, err := document.NewBuilder(document.Options{}, newTestLogger(t)).Build(nil)
	require.ErrorIs(t, err, core.ErrBuild)
	require.ErrorIs(t, err, document.ErrNoPages)
}

func TestBuild_Latin1AndHostileInput(t *testing.T) {
	t.Parallel()

	builder := document.NewBuilder(document.Options{Encoding: config.EncodingLatin1}, newTestLogger(t))

	texts := []string{
		"Café crème, 東京, emoji 🙂",
		"bad bytes \xff\xfe and control \x00\x07 chars\r\nnext line",
	}

	pdf, err := builder.Build(texts)
	require.NoError(t, err)
	assert.Equal(t, len(texts), pageCount(pdf))
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	cfg := config.Default().Document
	cfg.FontPath = "/fonts/a.ttf"

	options := document.OptionsFromConfig(cfg)
	assert.Equal(t, "/fonts/a.ttf", options.FontPath)
	assert.InDelta(t, cfg.FontSize, options.FontSize, 0.001)
	assert.Equal(t, cfg.Encoding, options.Encoding)
}
