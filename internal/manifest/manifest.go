// Package manifest describes the outcome of one translation job as a YAML document that
// is stored next to the generated artifacts.
package manifest

import (
	"fmt"
	"time"

	"github.com/book-expert/pdf-audiobook/internal/core"
	"gopkg.in/yaml.v3"
)

// Page status values.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// Manifest is the YAML job summary.
type Manifest struct {
	JobID          string       `yaml:"job_id"`
	SourceFile     string       `yaml:"source_file"`
	TargetLanguage string       `yaml:"target_language"`
	CreatedAt      time.Time    `yaml:"created_at"`
	Pages          []PageStatus `yaml:"pages"`
	Document       StageOutcome `yaml:"document"`
	Audio          StageOutcome `yaml:"audio"`
	Timings        StageTimings `yaml:"timings"`
}

// PageStatus tracks one extracted page through translation and narration.
type PageStatus struct {
	SourcePage       int    `yaml:"source_page"`
	Translation      string `yaml:"translation"`
	TranslationError string `yaml:"translation_error,omitempty"`
	Narration        string `yaml:"narration"`
	NarrationError   string `yaml:"narration_error,omitempty"`
	AudioBytes       int    `yaml:"audio_bytes,omitempty"`
}

// StageOutcome records whether an output artifact was produced.
type StageOutcome struct {
	Artifact string `yaml:"artifact,omitempty"`
	Bytes    int    `yaml:"bytes,omitempty"`
	Error    string `yaml:"error,omitempty"`
}

// StageTimings are wall-clock durations per stage.
type StageTimings struct {
	Extract   time.Duration `yaml:"extract"`
	Translate time.Duration `yaml:"translate"`
	Document  time.Duration `yaml:"document"`
	Audio     time.Duration `yaml:"audio"`
}

// New builds the per-page section from the translations and, when narration ran, the
// audiobook segments. Segments are matched to pages by source page number.
func New(jobID, sourceFile, targetLanguage string, translations []core.Translation, book *core.Audiobook) *Manifest {
	segments := make(map[int]core.Segment)

	if book != nil {
		for _, segment := range book.Segments {
			segments[segment.Page] = segment
		}
	}

	pages := make([]PageStatus, len(translations))

	for index, translation := range translations {
		status := PageStatus{
			SourcePage:  translation.Page,
			Translation: StatusOK,
			Narration:   StatusSkipped,
		}

		if translation.Failed() {
			status.Translation = StatusFailed
			status.TranslationError = translation.Err.Error()
		}

		segment, found := segments[translation.Page]

		switch {
		case !found || translation.Failed():
		case segment.Err != nil:
			status.Narration = StatusFailed
			status.NarrationError = segment.Err.Error()
		default:
			status.Narration = StatusOK
			status.AudioBytes = segment.Bytes
		}

		pages[index] = status
	}

	return &Manifest{
		JobID:          jobID,
		SourceFile:     sourceFile,
		TargetLanguage: targetLanguage,
		CreatedAt:      time.Now().UTC(),
		Pages:          pages,
	}
}

// Failed returns the source page numbers whose translation failed.
func (m *Manifest) Failed() []int {
	var failed []int

	for _, page := range m.Pages {
		if page.Translation == StatusFailed {
			failed = append(failed, page.SourcePage)
		}
	}

	return failed
}

// Marshal encodes the manifest as YAML.
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}

	return data, nil
}

// Parse decodes a YAML manifest.
func Parse(data []byte) (*Manifest, error) {
	var manifest Manifest

	err := yaml.Unmarshal(data, &manifest)
	if err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &manifest, nil
}
