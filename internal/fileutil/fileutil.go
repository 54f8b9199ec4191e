// Package fileutil provides file, naming and formatting helpers shared by the CLI, the
// HTTP shell and the artifact store.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"
)

// Permissions for files and directories written by the application.
const (
	defaultDirPermissions  = 0o750
	defaultFilePermissions = 0o600
)

// Time and size formatting constants.
const (
	formatSeconds = "%.1fs"
	formatMinutes = "%dm %.1fs"
	formatHours   = "%dh %dm"
	formatGB      = "%.1f GB"
	formatMB      = "%.1f MB"
	formatKB      = "%.1f KB"
	formatBytes   = "%d B"
)

// File extensions of the artifacts and their content types.
const (
	extPDF  = ".pdf"
	extMP3  = ".mp3"
	extYAML = ".yaml"
	extYML  = ".yml"
	extJSON = ".json"
	extTXT  = ".txt"

	contentTypePDF    = "application/pdf"
	contentTypeMPEG   = "audio/mpeg"
	contentTypeYAML   = "application/yaml"
	contentTypeJSON   = "application/json"
	contentTypeText   = "text/plain; charset=utf-8"
	contentTypeBinary = "application/octet-stream"
)

// Error message format strings.
const (
	errFmtFailedToCreateDir = "failed to create directory %s: %w"
	errFmtFailedToWriteFile = "failed to write %s: %w"
	fallbackFilename        = "document"
)

// EnsureDir ensures a directory exists at the given path, creating it if it doesn't.
func EnsureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtFailedToCreateDir, path, mkdirErr)
		}
	}

	return nil
}

// WriteFile writes data into dir/name, creating dir when needed, and returns the path.
func WriteFile(dir, name string, data []byte) (string, error) {
	dirErr := EnsureDir(dir)
	if dirErr != nil {
		return "", dirErr
	}

	path := filepath.Join(dir, name)

	writeErr := os.WriteFile(path, data, defaultFilePermissions)
	if writeErr != nil {
		return "", fmt.Errorf(errFmtFailedToWriteFile, path, writeErr)
	}

	return path, nil
}

// SanitizeFilename removes or replaces characters that are invalid in most filesystems
// and strips any directory components a client may have sent.
func SanitizeFilename(filename string) string {
	base := filename
	if index := strings.LastIndexAny(base, `/\`); index >= 0 {
		base = base[index+1:]
	}

	replacer := strings.NewReplacer(
		"<", "_",
		">", "_",
		":", "_",
		"\"", "_",
		"|", "_",
		"?", "_",
		"*", "_",
	)

	cleaned := strings.Map(func(char rune) rune {
		if unicode.IsControl(char) {
			return -1
		}

		return char
	}, replacer.Replace(base))

	cleaned = strings.Trim(strings.TrimSpace(cleaned), ".")
	if cleaned == "" {
		return fallbackFilename
	}

	return cleaned
}

// ContentType returns the MIME type served for an artifact name.
func ContentType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case extPDF:
		return contentTypePDF
	case extMP3:
		return contentTypeMPEG
	case extYAML, extYML:
		return contentTypeYAML
	case extJSON:
		return contentTypeJSON
	case extTXT:
		return contentTypeText
	default:
		return contentTypeBinary
	}
}

// FormatDuration formats a duration in a human-readable string (e.g., "1h 15m", "5m
// 30.5s", "45.2s").
func FormatDuration(duration time.Duration) string {
	seconds := duration.Seconds()

	if duration < time.Minute {
		return fmt.Sprintf(formatSeconds, seconds)
	}

	if duration < time.Hour {
		minutes := int(duration / time.Minute)
		remaining := (duration - time.Duration(minutes)*time.Minute).Seconds()

		return fmt.Sprintf(formatMinutes, minutes, remaining)
	}

	hours := int(duration / time.Hour)
	minutes := int((duration - time.Duration(hours)*time.Hour) / time.Minute)

	return fmt.Sprintf(formatHours, hours, minutes)
}

// FormatFileSize formats a file size in a human-readable string (e.g., "1.2 GB", "500.5
// MB").
func FormatFileSize(bytes int64) string {
	const (
		kilobyte = 1024
		megabyte = kilobyte * 1024
		gigabyte = megabyte * 1024
	)

	switch {
	case bytes >= gigabyte:
		return fmt.Sprintf(formatGB, float64(bytes)/gigabyte)
	case bytes >= megabyte:
		return fmt.Sprintf(formatMB, float64(bytes)/megabyte)
	case bytes >= kilobyte:
		return fmt.Sprintf(formatKB, float64(bytes)/kilobyte)
	default:
		return fmt.Sprintf(formatBytes, bytes)
	}
}
