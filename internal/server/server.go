// Package server is the browser-facing shell: an upload form that runs the pipeline and
// offers the produced PDF and audiobook for download.
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/fileutil"
	"github.com/book-expert/pdf-audiobook/internal/objectstore"
	"github.com/book-expert/pdf-audiobook/internal/pipeline"
)

// Form fields and user-facing messages.
const (
	fieldDocument = "document"
	fieldLanguage = "language"

	msgLanguageRequired = "Please enter a target language."
	msgDocumentRequired = "Please choose a PDF file."
	msgUploadTooLarge   = "The uploaded file is too large (limit %d MB)."
	msgUnreadablePDF    = "Could not read the PDF: %v"
	msgProcessingFailed = "Processing failed: %v"
	msgPublishFailed    = "Could not store the results: %v"
)

// HTTP timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
	bytesPerMB        = 1 << 20
	multipartOverhead = 1 << 20
)

//go:embed templates/index.html
var templateFS embed.FS

// Runner executes one pipeline request.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) (*pipeline.Result, error)
}

// Server serves the upload form, processes submissions and streams artifacts back.
type Server struct {
	runner         Runner
	store          core.ObjectStore
	maxUploadBytes int64
	page           *template.Template
	log            *logger.Logger
}

type pageData struct {
	Error          string
	TargetLanguage string
	Job            *jobView
}

type jobView struct {
	JobID        string
	PDFURL       string
	PDFError     string
	AudioURL     string
	AudioError   string
	ManifestURL  string
	FailedPages  []int
	SkippedPages []int
}

// New creates a Server. maxUploadMB caps the size of an uploaded PDF.
func New(runner Runner, store core.ObjectStore, maxUploadMB int64, log *logger.Logger) (*Server, error) {
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		runner:         runner,
		store:          store,
		maxUploadBytes: maxUploadMB * bytesPerMB,
		page:           page,
		log:            log,
	}, nil
}

// Handler returns the routes of the shell.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /process", s.handleProcess)
	mux.HandleFunc("GET /artifacts/{jobID}/{name}", s.handleArtifact)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)

	go func() {
		s.log.Info("HTTP shell listening on %s", addr)
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		s.log.Info("Shutting down HTTP shell")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdownErr := httpServer.Shutdown(shutdownCtx)
		if shutdownErr != nil {
			return fmt.Errorf("http shutdown failed: %w", shutdownErr)
		}

		return nil
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, pageData{Error: "", TargetLanguage: "", Job: nil})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+multipartOverhead)

	parseErr := r.ParseMultipartForm(s.maxUploadBytes)

	var tooLarge *http.MaxBytesError
	if errors.As(parseErr, &tooLarge) {
		s.render(w, http.StatusRequestEntityTooLarge,
			pageData{Error: fmt.Sprintf(msgUploadTooLarge, s.maxUploadBytes/bytesPerMB)})

		return
	}

	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	// Non-multipart bodies still carry the language field in r.Form.
	data := pageData{TargetLanguage: strings.TrimSpace(r.FormValue(fieldLanguage))}

	if data.TargetLanguage == "" {
		data.Error = msgLanguageRequired
		s.render(w, http.StatusBadRequest, data)

		return
	}

	if parseErr != nil {
		data.Error = msgDocumentRequired
		s.render(w, http.StatusBadRequest, data)

		return
	}

	file, header, fileErr := r.FormFile(fieldDocument)
	if fileErr != nil {
		data.Error = msgDocumentRequired
		s.render(w, http.StatusBadRequest, data)

		return
	}
	defer file.Close()

	result, runErr := s.runner.Run(r.Context(), pipeline.Request{
		Document:       file,
		Filename:       fileutil.SanitizeFilename(header.Filename),
		TargetLanguage: data.TargetLanguage,
	})
	if runErr != nil {
		s.renderRunError(w, data, runErr)

		return
	}

	artifacts, publishErr := pipeline.Publish(r.Context(), s.store, result)
	data.Job = newJobView(result, artifacts)

	if publishErr != nil {
		s.log.Error("Job %s: failed to publish artifacts: %v", result.JobID, publishErr)
		data.Error = fmt.Sprintf(msgPublishFailed, publishErr)
		s.render(w, http.StatusInternalServerError, data)

		return
	}

	s.render(w, http.StatusOK, data)
}

func (s *Server) renderRunError(w http.ResponseWriter, data pageData, runErr error) {
	switch {
	case errors.Is(runErr, pipeline.ErrTargetLanguageRequired):
		data.Error = msgLanguageRequired
		s.render(w, http.StatusBadRequest, data)
	case errors.Is(runErr, core.ErrInputValidation):
		data.Error = msgDocumentRequired
		s.render(w, http.StatusBadRequest, data)
	case errors.Is(runErr, core.ErrParse):
		data.Error = fmt.Sprintf(msgUnreadablePDF, runErr)
		s.render(w, http.StatusUnprocessableEntity, data)
	default:
		s.log.Error("Processing failed: %v", runErr)
		data.Error = fmt.Sprintf(msgProcessingFailed, runErr)
		s.render(w, http.StatusInternalServerError, data)
	}
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobID")
	name := r.PathValue("name")

	if !pipeline.IsArtifactName(name) {
		http.NotFound(w, r)

		return
	}

	data, err := s.store.Download(r.Context(), pipeline.ArtifactKey(jobID, name))
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			http.NotFound(w, r)

			return
		}

		s.log.Error("Failed to download artifact %s/%s: %v", jobID, name, err)
		http.Error(w, "artifact unavailable", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", fileutil.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	_, _ = w.Write(data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)

	err := s.page.Execute(w, data)
	if err != nil {
		s.log.Error("Failed to render page: %v", err)
	}
}

func newJobView(result *pipeline.Result, artifacts pipeline.Artifacts) *jobView {
	view := &jobView{
		JobID:       result.JobID,
		FailedPages: result.Manifest.Failed(),
	}

	if artifacts.PDFKey != "" {
		view.PDFURL = "/artifacts/" + artifacts.PDFKey
	}

	switch {
	case result.DocumentErr != nil:
		view.PDFError = result.DocumentErr.Error()
	case artifacts.PDFErr != nil:
		view.PDFError = artifacts.PDFErr.Error()
	}

	if artifacts.AudioKey != "" {
		view.AudioURL = "/artifacts/" + artifacts.AudioKey
	}

	switch {
	case result.AudioErr != nil:
		view.AudioError = result.AudioErr.Error()
	case artifacts.AudioErr != nil:
		view.AudioError = artifacts.AudioErr.Error()
	}

	if artifacts.ManifestKey != "" {
		view.ManifestURL = "/artifacts/" + artifacts.ManifestKey
	}

	if result.Audiobook != nil {
		view.SkippedPages = result.Audiobook.Skipped()
	}

	return view
}
