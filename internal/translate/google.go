// Package translate maps page text into a target language through a machine translation
// provider, one page at a time.
package translate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Google web endpoint and scraping selectors.
const (
	DefaultGoogleBaseURL = "https://translate.google.com"
	googleMobilePath     = "/m"
	resultSelector       = "div.result-container"
	legacyResultSelector = "div.t0"
	browserUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	autoLanguage         = "auto"
	maxErrorBodyBytes    = 512
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerUserAgent   = "User-Agent"
	contentTypeJSON   = "application/json"
)

// Error messages.
const (
	errFmtNonOKStatus = "translation service returned non-OK status: %s, body: %s"
)

var (
	// ErrTargetLanguageEmpty indicates the caller did not provide a target language.
	ErrTargetLanguageEmpty = errors.New("target language cannot be empty")
	// ErrNoTranslation indicates the provider answered without a translation.
	ErrNoTranslation = errors.New("no translation found in response")
)

// GoogleWebTranslator translates through the public Google Translate mobile page and
// scrapes the result from the returned HTML.
type GoogleWebTranslator struct {
	httpClient *http.Client
	baseURL    string
}

// NewGoogleWebTranslator creates a translator for the given base URL (DefaultGoogleBaseURL
// when empty). The timeout applies to every request.
func NewGoogleWebTranslator(baseURL string, timeout time.Duration) *GoogleWebTranslator {
	if baseURL == "" {
		baseURL = DefaultGoogleBaseURL
	}

	return &GoogleWebTranslator{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Translate implements core.Translator.
func (g *GoogleWebTranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if target == "" {
		return "", ErrTargetLanguageEmpty
	}

	if source == "" {
		source = autoLanguage
	}

	query := url.Values{}
	query.Set("sl", source)
	query.Set("tl", target)
	query.Set("q", text)

	requestURL := g.baseURL + googleMobilePath + "?" + query.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, http.NoBody)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerUserAgent, browserUserAgent)

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request to %s: %w", g.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nonOKError(resp)
	}

	document, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse translation page: %w", err)
	}

	translated := strings.TrimSpace(document.Find(resultSelector).First().Text())
	if translated == "" {
		translated = strings.TrimSpace(document.Find(legacyResultSelector).First().Text())
	}

	if translated == "" {
		return "", ErrNoTranslation
	}

	return translated, nil
}

func nonOKError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	return fmt.Errorf(errFmtNonOKStatus, resp.Status, strings.TrimSpace(string(body)))
}
