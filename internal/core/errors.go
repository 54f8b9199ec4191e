package core

import "errors"

// Error taxonomy shared by all stages. Stage errors wrap one of these so callers can
// classify them with errors.Is.
var (
	// ErrInputValidation indicates the request itself is unusable (e.g. no target language).
	ErrInputValidation = errors.New("invalid input")
	// ErrParse indicates the source document could not be read.
	ErrParse = errors.New("failed to parse document")
	// ErrTranslation marks a per-page translation failure.
	ErrTranslation = errors.New("translation failed")
	// ErrResourceNotFound indicates a required resource such as a font is missing.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrBuild indicates the document or audio artifact could not be assembled.
	ErrBuild = errors.New("build failed")
)
