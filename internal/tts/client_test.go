package tts

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Test constants.
const (
	testHelloWorld                     = "Hello, world!"
	testMP3Frame                       = "\xff\xfb\x90\x64audio"
	testErrMsgInvalidSpeakerPath       = "Invalid speaker reference path"
	testErrCodeInvalidSpeakerPath      = "INVALID_SPEAKER_PATH"
	testErrExpectedPostRequest         = "Expected POST request, got %s"
	testErrExpectedGeneratePath        = "Expected /v1/generate/speech path, got %s"
	testErrExpectedJSONContentType     = "Expected application/json content type"
	testErrExpectedMPEGAccept          = "Expected audio/mpeg accept type"
	testErrFailedToDecodeRequest       = "Failed to decode request: %v"
	testErrExpectedHelloWorld          = "Expected 'Hello, world!', got '%s'"
	testErrExpectedTemperature         = "Expected temperature 0.8, got %f"
	testErrExpectedLanguage            = "Expected language '%s', got '%s'"
	testErrGenerateSpeechFailed        = "GenerateSpeech failed: %v"
	testErrExpectedAudio               = "Expected MP3 audio data, got %q"
	testErrExpectedForEmptyText        = "Expected ErrTextEmpty, got: %v"
	testErrExpectedSpecificError       = "Expected specific error message, got: %v"
	testErrExpectedErrorCode           = "Expected error code in message, got: %v"
	testErrExpectedForWrongContentType = "Expected error for wrong content type"
	testErrExpectedContentTypeError    = "Expected content type error, got: %v"
	testErrExpectedHealthPath          = "Expected /health path, got %s"
	testErrExpectedGetRequest          = "Expected GET request, got %s"
	testErrHealthCheckFailed           = "HealthCheck failed: %v"
	testErrExpectedForUnreachable      = "Expected error for unreachable service"
	testErrExpectedQuery               = "Expected query %s=%s, got %s"
	testErrExpectedMaxChars            = "Expected MaxChars 100, got %d"
)

func TestHTTPClient_GenerateSpeech_Success(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, request *http.Request) {
				if request.Method != http.MethodPost {
					t.Errorf(testErrExpectedPostRequest, request.Method)
				}

				if request.URL.Path != apiGenerateSpeech {
					t.Errorf(testErrExpectedGeneratePath, request.URL.Path)
				}

				if request.Header.Get(headerContentType) != contentTypeJSON {
					t.Error(testErrExpectedJSONContentType)
				}

				if request.Header.Get(headerAccept) != "audio/mpeg" {
					t.Error(testErrExpectedMPEGAccept)
				}

				var req TTSRequest

				err := json.NewDecoder(request.Body).Decode(&req)
				if err != nil {
					t.Errorf(testErrFailedToDecodeRequest, err)
				}

				if req.Text != testHelloWorld {
					t.Errorf(testErrExpectedHelloWorld, req.Text)
				}

				if req.Temperature != 0.8 {
					t.Errorf(testErrExpectedTemperature, req.Temperature)
				}

				if req.Language != "fr" {
					t.Errorf(testErrExpectedLanguage, "fr", req.Language)
				}

				responseWriter.Header().Set(headerContentType, "audio/mpeg")
				responseWriter.WriteHeader(http.StatusOK)
				_, _ = responseWriter.Write([]byte(testMP3Frame))
			},
		),
	)
	defer server.Close()

	client := NewHTTPClient(server.URL, 0.8, 10*time.Second)

	audioData, err := client.Synthesize(context.Background(), testHelloWorld, "fr")
	if err != nil {
		t.Fatalf(testErrGenerateSpeechFailed, err)
	}

	if string(audioData) != testMP3Frame {
		t.Errorf(testErrExpectedAudio, audioData)
	}
}

func TestHTTPClient_GenerateSpeech_DefaultLanguage(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, request *http.Request) {
				var req TTSRequest

				_ = json.NewDecoder(request.Body).Decode(&req)

				if req.Language != defaultLanguage {
					t.Errorf(testErrExpectedLanguage, defaultLanguage, req.Language)
				}

				responseWriter.Header().Set(headerContentType, "audio/mpeg; charset=binary")
				_, _ = responseWriter.Write([]byte(testMP3Frame))
			},
		),
	)
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, 10*time.Second)

	_, err := client.GenerateSpeech(context.Background(), TTSRequest{Text: testHelloWorld})
	if err != nil {
		t.Fatalf(testErrGenerateSpeechFailed, err)
	}
}

func TestHTTPClient_GenerateSpeech_EmptyText(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient("http://localhost:8000", 0, 10*time.Second)

	_, err := client.Synthesize(context.Background(), "   ", "en")
	if !errors.Is(err, ErrTextEmpty) {
		t.Errorf(testErrExpectedForEmptyText, err)
	}
}

func TestHTTPClient_GenerateSpeech_ServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, _ *http.Request) {
				responseWriter.Header().Set(headerContentType, contentTypeJSON)
				responseWriter.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(responseWriter).Encode(TTSErrorResponse{
					Detail:    testErrMsgInvalidSpeakerPath,
					ErrorCode: testErrCodeInvalidSpeakerPath,
				})
			},
		),
	)
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, 10*time.Second)

	_, err := client.GenerateSpeech(context.Background(), TTSRequest{
		Text:           testHelloWorld,
		SpeakerRefPath: "/invalid/path.wav",
	})
	if err == nil || !strings.Contains(err.Error(), testErrMsgInvalidSpeakerPath) {
		t.Errorf(testErrExpectedSpecificError, err)
	}

	if err != nil && !strings.Contains(err.Error(), testErrCodeInvalidSpeakerPath) {
		t.Errorf(testErrExpectedErrorCode, err)
	}
}

func TestHTTPClient_GenerateSpeech_PlainTextError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, _ *http.Request) {
				http.Error(responseWriter, "model not loaded", http.StatusServiceUnavailable)
			},
		),
	)
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, 10*time.Second)

	_, err := client.Synthesize(context.Background(), testHelloWorld, "en")
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf(testErrExpectedSpecificError, err)
	}
}

func TestHTTPClient_GenerateSpeech_WrongContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, _ *http.Request) {
				responseWriter.Header().Set(headerContentType, "audio/wav")
				_, _ = responseWriter.Write([]byte("RIFF....WAVE"))
			},
		),
	)
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, 10*time.Second)

	_, err := client.Synthesize(context.Background(), testHelloWorld, "en")
	if err == nil {
		t.Fatal(testErrExpectedForWrongContentType)
	}

	if !strings.Contains(err.Error(), "unexpected content type") {
		t.Errorf(testErrExpectedContentTypeError, err)
	}
}

func TestHTTPClient_HealthCheck(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, request *http.Request) {
				if request.URL.Path != apiHealth {
					t.Errorf(testErrExpectedHealthPath, request.URL.Path)
				}

				if request.Method != http.MethodGet {
					t.Errorf(testErrExpectedGetRequest, request.Method)
				}

				responseWriter.WriteHeader(http.StatusOK)
			},
		),
	)
	defer server.Close()

	client := NewHTTPClient(server.URL, 0, 10*time.Second)

	err := client.HealthCheck(context.Background())
	if err != nil {
		t.Errorf(testErrHealthCheckFailed, err)
	}
}

func TestHTTPClient_HealthCheck_Unreachable(t *testing.T) {
	t.Parallel()

	client := NewHTTPClient("http://127.0.0.1:1", 0, time.Second)

	err := client.HealthCheck(context.Background())
	if err == nil {
		t.Error(testErrExpectedForUnreachable)
	}
}

func TestGoogleSpeechClient_Synthesize(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, request *http.Request) {
				if request.Method != http.MethodGet {
					t.Errorf(testErrExpectedGetRequest, request.Method)
				}

				query := request.URL.Query()
				expected := map[string]string{
					"tl":      "de",
					"q":       testHelloWorld,
					"client":  googleClientID,
					"textlen": "13",
				}

				for key, value := range expected {
					if query.Get(key) != value {
						t.Errorf(testErrExpectedQuery, key, value, query.Get(key))
					}
				}

				responseWriter.Header().Set(headerContentType, "audio/mpeg")
				_, _ = responseWriter.Write([]byte(testMP3Frame))
			},
		),
	)
	defer server.Close()

	client := NewGoogleSpeechClient(server.URL, 10*time.Second)

	if client.MaxChars() != 100 {
		t.Errorf(testErrExpectedMaxChars, client.MaxChars())
	}

	audioData, err := client.Synthesize(context.Background(), testHelloWorld, "de")
	if err != nil {
		t.Fatalf(testErrGenerateSpeechFailed, err)
	}

	if string(audioData) != testMP3Frame {
		t.Errorf(testErrExpectedAudio, audioData)
	}
}

func TestGoogleSpeechClient_RateLimited(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(
		http.HandlerFunc(
			func(responseWriter http.ResponseWriter, _ *http.Request) {
				http.Error(responseWriter, "too many requests", http.StatusTooManyRequests)
			},
		),
	)
	defer server.Close()

	_, err := NewGoogleSpeechClient(server.URL, 10*time.Second).
		Synthesize(context.Background(), testHelloWorld, "en")
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf(testErrExpectedSpecificError, err)
	}
}
