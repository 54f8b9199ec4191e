package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/book-expert/pdf-audiobook/internal/core"
	"github.com/book-expert/pdf-audiobook/internal/manifest"
)

// Artifact names under a job's key prefix.
const (
	PDFName      = "translated_output.pdf"
	AudioName    = "audiobook.mp3"
	ManifestName = "manifest.yaml"
)

const errFmtUpload = "failed to upload %s: %w"

// ErrUnknownArtifact is returned for names other than the job artifacts.
var ErrUnknownArtifact = errors.New("unknown artifact")

// Artifacts are the object store keys written for a job. Empty keys were not produced
// or could not be stored; PDFErr and AudioErr hold the upload failure of each output.
type Artifacts struct {
	PDFKey      string
	AudioKey    string
	ManifestKey string
	PDFErr      error
	AudioErr    error
}

// ArtifactKey returns the object store key of a job artifact.
func ArtifactKey(jobID, name string) string {
	return path.Join(jobID, name)
}

// IsArtifactName reports whether name is one of the artifacts a job can produce.
func IsArtifactName(name string) bool {
	switch name {
	case PDFName, AudioName, ManifestName:
		return true
	default:
		return false
	}
}

// Publish uploads the produced outputs and the manifest. Outputs that failed are
// skipped. Every upload is attempted even when an earlier one fails; the manifest is
// written last so it records the final keys and upload errors. The returned error joins
// all upload failures.
func Publish(ctx context.Context, store core.ObjectStore, result *Result) (Artifacts, error) {
	var artifacts Artifacts

	if result.DocumentErr == nil && len(result.PDF) > 0 {
		artifacts.PDFKey, artifacts.PDFErr = upload(ctx, store, result.JobID, PDFName, result.PDF,
			&result.Manifest.Document)
	}

	audioData := result.Audio()
	if len(audioData) > 0 {
		artifacts.AudioKey, artifacts.AudioErr = upload(ctx, store, result.JobID, AudioName, audioData,
			&result.Manifest.Audio)
	}

	publishErr := errors.Join(artifacts.PDFErr, artifacts.AudioErr)

	manifestData, err := result.Manifest.Marshal()
	if err != nil {
		return artifacts, errors.Join(publishErr, err)
	}

	key := ArtifactKey(result.JobID, ManifestName)

	uploadErr := store.Upload(ctx, key, manifestData)
	if uploadErr != nil {
		return artifacts, errors.Join(publishErr, fmt.Errorf(errFmtUpload, key, uploadErr))
	}

	artifacts.ManifestKey = key

	return artifacts, publishErr
}

// upload stores one output and records the outcome in the manifest stage.
func upload(
	ctx context.Context,
	store core.ObjectStore,
	jobID, name string,
	data []byte,
	outcome *manifest.StageOutcome,
) (string, error) {
	key := ArtifactKey(jobID, name)

	uploadErr := store.Upload(ctx, key, data)
	if uploadErr != nil {
		err := fmt.Errorf(errFmtUpload, key, uploadErr)
		outcome.Error = err.Error()

		return "", err
	}

	outcome.Artifact = key
	outcome.Bytes = len(data)

	return key, nil
}
