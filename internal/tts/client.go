// Package tts turns translated pages into a single MP3 audiobook through a speech
// synthesis provider.
package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/pdf-audiobook/internal/tts/audio"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	headerUserAgent   = "User-Agent"
	contentTypeJSON   = "application/json"
)

// Default values.
const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
	maxErrorBodyBytes  = 512
)

// Error messages.
const (
	errUnexpectedContentType   = "unexpected content type: expected audio/mpeg, got %s"
	errFmtServiceErrorWithCode = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "TTS service returned non-OK status: %s, body: %s"
)

var (
	// ErrTextEmpty indicates an empty synthesis request.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrEmptyAudio indicates the provider answered without audio.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// HTTPClient is a client for a standalone TTS HTTP service that returns MP3 audio.
type HTTPClient struct {
	httpClient  *http.Client
	baseURL     string
	temperature float64
}

// TTSRequest defines the JSON payload of a speech generation request.
type TTSRequest struct {
	// Text is the input to speak.
	Text string `json:"text"`

	// SpeakerRefPath optionally names a server-side voice reference.
	SpeakerRefPath string `json:"speaker_ref_path,omitempty"`

	// Language is the ISO 639-1 code of the spoken text.
	Language string `json:"language"`

	// Temperature controls sampling randomness, 0.0 to 2.0.
	Temperature float64 `json:"temperature"`
}

// TTSErrorResponse is the structured error body returned by the service.
type TTSErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPClient creates a client for the service at baseURL (for example
// "http://localhost:8000"). The timeout applies to every request.
func NewHTTPClient(baseURL string, temperature float64, timeout time.Duration) *HTTPClient {
	if temperature == 0 {
		temperature = defaultTemperature
	}

	return &HTTPClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		temperature: temperature,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Synthesize implements core.SpeechSynthesizer.
func (c *HTTPClient) Synthesize(ctx context.Context, text, language string) ([]byte, error) {
	return c.GenerateSpeech(ctx, TTSRequest{
		Text:           text,
		SpeakerRefPath: "",
		Language:       language,
		Temperature:    c.temperature,
	})
}

// GenerateSpeech sends a generation request and returns the MP3 bytes.
func (c *HTTPClient) GenerateSpeech(ctx context.Context, req TTSRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrTextEmpty
	}

	if req.Temperature == 0 {
		req.Temperature = c.temperature
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+apiGenerateSpeech,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, audio.ContentTypeMPEG)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to TTS service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	return readAudio(resp)
}

// HealthCheck verifies that the TTS service reports itself healthy.
func (c *HTTPClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// readAudio checks the declared content type and returns the non-empty body.
func readAudio(resp *http.Response) ([]byte, error) {
	mediaType, _, err := mime.ParseMediaType(resp.Header.Get(headerContentType))
	if err != nil || mediaType != audio.ContentTypeMPEG {
		return nil, fmt.Errorf(errUnexpectedContentType, resp.Header.Get(headerContentType))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// parseErrorResponse decodes a structured error, falling back to the raw body.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	var errorResp TTSErrorResponse

	err := parseJSON(body, &errorResp)
	if err == nil && errorResp.Detail != "" {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	return fmt.Errorf(
		errFmtServiceNonOKStatus,
		resp.Status,
		strings.TrimSpace(string(body)),
	)
}
