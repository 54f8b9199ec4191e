package tts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Google translate_tts endpoint.
const (
	DefaultGoogleSpeechURL = "https://translate.google.com"
	apiTranslateTTS        = "/translate_tts"
	googleClientID         = "tw-ob"
	googleMaxChars         = 100
	browserUserAgent       = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

// GoogleSpeechClient synthesizes MP3 speech through the Google Translate speech
// endpoint. Requests are limited to MaxChars runes.
type GoogleSpeechClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewGoogleSpeechClient creates a client for baseURL (DefaultGoogleSpeechURL when empty).
func NewGoogleSpeechClient(baseURL string, timeout time.Duration) *GoogleSpeechClient {
	if baseURL == "" {
		baseURL = DefaultGoogleSpeechURL
	}

	return &GoogleSpeechClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// MaxChars implements core.SpeechLimiter.
func (g *GoogleSpeechClient) MaxChars() int {
	return googleMaxChars
}

// Synthesize implements core.SpeechSynthesizer.
func (g *GoogleSpeechClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrTextEmpty
	}

	if language == "" {
		language = defaultLanguage
	}

	query := url.Values{}
	query.Set("ie", "UTF-8")
	query.Set("client", googleClientID)
	query.Set("tl", language)
	query.Set("q", text)
	query.Set("total", "1")
	query.Set("idx", "0")
	query.Set("textlen", strconv.Itoa(utf8.RuneCountInString(text)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		g.baseURL+apiTranslateTTS+"?"+query.Encode(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerUserAgent, browserUserAgent)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to %s: %w", g.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

		return nil, fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, strings.TrimSpace(string(body)))
	}

	return readAudio(resp)
}
