package translate_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 5 * time.Second

var errProviderDown = errors.New("provider down")

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "translate-test.log")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	return log
}

// fakeTranslator uppercases its input and fails for any text containing failOn.
type fakeTranslator struct {
	failOn string
	calls  atomic.Int32
	seen   []string
}

func (f *fakeTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	f.calls.Add(1)
	f.seen = append(f.seen, text)

	if f.failOn != "" && strings.Contains(text, f.failOn) {
		return "", errProviderDown
	}

	return fmt.Sprintf("[%s] %s", target, strings.ToUpper(text)), nil
}

func TestGoogleWebTranslator_Translate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/m", r.URL.Path)
		assert.Equal(t, "auto", r.URL.Query().Get("sl"))
		assert.Equal(t, "fr", r.URL.Query().Get("tl"))
		assert.Equal(t, "Hello world", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><body><div class="result-container"> Bonjour le monde </div></body></html>`))
	}))
	defer server.Close()

	translator := translate.NewGoogleWebTranslator(server.URL, testTimeout)

	result, err := translator.Translate(context.Background(), "Hello world", "", "fr")
	require.NoError(t, err)
	assert.Equal(t, "Bonjour le monde", result)
}

func TestGoogleWebTranslator_LegacySelector(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body><div class="t0">Hallo</div></body></html>`))
	}))
	defer server.Close()

	result, err := translate.NewGoogleWebTranslator(server.URL, testTimeout).
		Translate(context.Background(), "Hello", "en", "de")
	require.NoError(t, err)
	assert.Equal(t, "Hallo", result)
}

func TestGoogleWebTranslator_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing result", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`<html><body><p>nothing here</p></body></html>`))
		}))
		defer server.Close()

		_, err := translate.NewGoogleWebTranslator(server.URL, testTimeout).
			Translate(context.Background(), "Hello", "", "fr")
		require.ErrorIs(t, err, translate.ErrNoTranslation)
	})

	t.Run("non-OK status", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "bad language", http.StatusBadRequest)
		}))
		defer server.Close()

		_, err := translate.NewGoogleWebTranslator(server.URL, testTimeout).
			Translate(context.Background(), "Hello", "", "zz")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "400")
		assert.Contains(t, err.Error(), "bad language")
	})

	t.Run("empty target", func(t *testing.T) {
		t.Parallel()

		_, err := translate.NewGoogleWebTranslator("http://127.0.0.1:1", testTimeout).
			Translate(context.Background(), "Hello", "", "")
		require.ErrorIs(t, err, translate.ErrTargetLanguageEmpty)
	})
}

func TestLibreTranslateClient_Translate(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/translate", r.URL.Path)

		var payload map[string]string

		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Good morning", payload["q"])
		assert.Equal(t, "auto", payload["source"])
		assert.Equal(t, "es", payload["target"])
		assert.Equal(t, "secret", payload["api_key"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"translatedText":"Buenos días"}`))
	}))
	defer server.Close()

	client := translate.NewLibreTranslateClient(server.URL, "secret", testTimeout)

	result, err := client.Translate(context.Background(), "Good morning", "", "es")
	require.NoError(t, err)
	assert.Equal(t, "Buenos días", result)
}

func TestLibreTranslateClient_ErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"zz is not supported"}`))
	}))
	defer server.Close()

	_, err := translate.NewLibreTranslateClient(server.URL, "", testTimeout).
		Translate(context.Background(), "Hello", "en", "zz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zz is not supported")
}

func TestNewTranslator(t *testing.T) {
	t.Parallel()

	google, err := translate.NewTranslator(config.TranslatorConfig{Provider: config.ProviderGoogle, TimeoutSeconds: 1})
	require.NoError(t, err)
	assert.IsType(t, &translate.GoogleWebTranslator{}, google)

	libre, err := translate.NewTranslator(config.TranslatorConfig{
		Provider: config.ProviderLibreTranslate, BaseURL: "http://localhost:5000", TimeoutSeconds: 1,
	})
	require.NoError(t, err)
	assert.IsType(t, &translate.LibreTranslateClient{}, libre)

	_, err = translate.NewTranslator(config.TranslatorConfig{Provider: "babelfish"})
	require.ErrorIs(t, err, config.ErrUnknownTranslator)
}

func TestService_TranslatePages_PreservesLengthAndOrder(t *testing.T) {
	t.Parallel()

	fake := &fakeTranslator{failOn: "broken"}
	service := translate.NewService(fake, "auto", 0, newTestLogger(t))

	pages := []core.Page{
		{Number: 1, Text: "first page"},
		{Number: 2, Text: "broken page"},
		{Number: 3, Text: "third page"},
	}

	translations := service.TranslatePages(context.Background(), pages, "fr")
	require.Len(t, translations, len(pages))

	assert.Equal(t, "[fr] FIRST PAGE", translations[0].Text)
	assert.False(t, translations[0].Failed())
	assert.Equal(t, 1, translations[0].Page)

	assert.True(t, translations[1].Failed())
	assert.Equal(t, core.TranslationErrorText, translations[1].Text)
	require.ErrorIs(t, translations[1].Err, core.ErrTranslation)
	require.ErrorIs(t, translations[1].Err, errProviderDown)
	assert.Equal(t, "broken page", translations[1].Source)

	assert.Equal(t, "[fr] THIRD PAGE", translations[2].Text)
	assert.Equal(t, 3, translations[2].Page)
}

func TestService_TranslatePages_WhitespaceUntouched(t *testing.T) {
	t.Parallel()

	fake := &fakeTranslator{}
	service := translate.NewService(fake, "auto", 0, newTestLogger(t))

	translations := service.TranslatePages(context.Background(), []core.Page{{Number: 1, Text: "  \n "}}, "de")
	require.Len(t, translations, 1)
	assert.Equal(t, "  \n ", translations[0].Text)
	assert.False(t, translations[0].Failed())
	assert.Equal(t, int32(0), fake.calls.Load())
}

func TestService_TranslatePages_ChunkingKeepsParagraphBreaks(t *testing.T) {
	t.Parallel()

	fake := &fakeTranslator{}
	service := translate.NewService(fake, "auto", 12, newTestLogger(t))

	translations := service.TranslatePages(context.Background(),
		[]core.Page{{Number: 1, Text: "Uno.\nDos.\n\nTres cuatro cinco."}}, "es")
	require.Len(t, translations, 1)
	require.False(t, translations[0].Failed())

	assert.Equal(t, "[es] UNO.\nDOS.\n\n[es] TRES CUATRO [es] CINCO.", translations[0].Text)
}

func TestService_TranslatePages_ChunksLongText(t *testing.T) {
	t.Parallel()

	fake := &fakeTranslator{}
	service := translate.NewService(fake, "auto", 20, newTestLogger(t))

	translations := service.TranslatePages(context.Background(),
		[]core.Page{{Number: 1, Text: "One sentence. Two sentences."}}, "it")
	require.Len(t, translations, 1)
	assert.Equal(t, int32(2), fake.calls.Load())

	for _, chunk := range fake.seen {
		assert.LessOrEqual(t, len([]rune(chunk)), 20)
	}

	assert.Equal(t, "[it] ONE SENTENCE. [it] TWO SENTENCES.", translations[0].Text)
}

func TestService_TranslatePages_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := translate.NewService(&fakeTranslator{}, "auto", 0, newTestLogger(t))

	translations := service.TranslatePages(ctx, []core.Page{{Number: 1, Text: "Hello"}}, "fr")
	require.Len(t, translations, 1)
	assert.True(t, translations[0].Failed())
	require.ErrorIs(t, translations[0].Err, context.Canceled)
}

func TestService_TranslatePages_Empty(t *testing.T) {
	t.Parallel()

	service := translate.NewService(&fakeTranslator{}, "auto", 0, newTestLogger(t))

	assert.Empty(t, service.TranslatePages(context.Background(), nil, "fr"))
}
