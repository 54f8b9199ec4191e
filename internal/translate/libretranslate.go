package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const (
	apiTranslate = "/translate"
	formatText   = "text"
)

// libreRequest is the JSON payload of a LibreTranslate /translate call.
type libreRequest struct {
	Query  string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type libreResponse struct {
	TranslatedText string `json:"translatedText"`
	Error          string `json:"error,omitempty"`
}

// LibreTranslateClient translates through a LibreTranslate-compatible HTTP API.
type LibreTranslateClient struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewLibreTranslateClient creates a client for the service at baseURL.
func NewLibreTranslateClient(baseURL, apiKey string, timeout time.Duration) *LibreTranslateClient {
	return &LibreTranslateClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Translate implements core.Translator.
func (c *LibreTranslateClient) Translate(ctx context.Context, text, source, target string) (string, error) {
	if target == "" {
		return "", ErrTargetLanguageEmpty
	}

	if source == "" {
		source = autoLanguage
	}

	requestBody, err := json.Marshal(libreRequest{
		Query:  text,
		Source: source,
		Target: target,
		Format: formatText,
		APIKey: c.apiKey,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiTranslate, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeJSON)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send request to LibreTranslate at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	var decoded libreResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&decoded)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && decoded.Error != "" {
			return "", fmt.Errorf("LibreTranslate error (%s): %s", resp.Status, decoded.Error)
		}

		return "", fmt.Errorf("LibreTranslate returned non-OK status: %s", resp.Status)
	}

	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode LibreTranslate response: %w", decodeErr)
	}

	if strings.TrimSpace(decoded.TranslatedText) == "" {
		return "", ErrNoTranslation
	}

	return decoded.TranslatedText, nil
}
