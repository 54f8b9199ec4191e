package worker

import "github.com/book-expert/events"

// TranslationRequestedEvent asks a worker to translate and narrate a PDF that is already
// in the object store.
type TranslationRequestedEvent struct {
	Header         events.EventHeader `json:"header"`
	DocumentKey    string             `json:"document_key"`
	Filename       string             `json:"filename"`
	TargetLanguage string             `json:"target_language"`
}

// TranslationCompletedEvent is the reply to a TranslationRequestedEvent. Error is set
// when the job did not run at all; PDFError and AudioError report the individual
// outputs of a job that did.
type TranslationCompletedEvent struct {
	Header      events.EventHeader `json:"header"`
	JobID       string             `json:"job_id,omitempty"`
	PDFKey      string             `json:"pdf_key,omitempty"`
	AudioKey    string             `json:"audio_key,omitempty"`
	ManifestKey string             `json:"manifest_key,omitempty"`
	FailedPages []int              `json:"failed_pages,omitempty"`
	PDFError    string             `json:"pdf_error,omitempty"`
	AudioError  string             `json:"audio_error,omitempty"`
	Error       string             `json:"error,omitempty"`
}
