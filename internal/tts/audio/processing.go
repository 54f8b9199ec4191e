// Package audio identifies synthesized audio payloads so that only MPEG segments are
// concatenated into an audiobook.
package audio

import (
	"bytes"
	"errors"
	"fmt"
)

// Format represents an audio container recognized by Sniff.
type Format string

// Recognized formats.
const (
	FormatUnknown Format = "unknown"
	FormatMP3     Format = "mp3"
	FormatWAV     Format = "wav"
	FormatOGG     Format = "ogg"
	FormatFLAC    Format = "flac"
)

// Content types.
const (
	ContentTypeMPEG = "audio/mpeg"
	ContentTypeWAV  = "audio/wav"
	ContentTypeOGG  = "audio/ogg"
	ContentTypeFLAC = "audio/flac"
	contentTypeBin  = "application/octet-stream"
)

const (
	frameSyncByte = 0xFF
	frameSyncMask = 0xE0
	riffHeaderLen = 12
)

var (
	id3Magic  = []byte("ID3")
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
	oggMagic  = []byte("OggS")
	flacMagic = []byte("fLaC")
)

var (
	// ErrEmptyAudio indicates a zero-length payload.
	ErrEmptyAudio = errors.New("empty audio data")
	// ErrNotMPEG indicates a payload that is not an MPEG audio stream.
	ErrNotMPEG = errors.New("audio is not MPEG")
)

// Sniff inspects the leading bytes of data.
func Sniff(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, id3Magic):
		return FormatMP3
	case len(data) >= 2 && data[0] == frameSyncByte && data[1]&frameSyncMask == frameSyncMask:
		return FormatMP3
	case len(data) >= riffHeaderLen && bytes.HasPrefix(data, riffMagic) && bytes.Equal(data[8:12], waveMagic):
		return FormatWAV
	case bytes.HasPrefix(data, oggMagic):
		return FormatOGG
	case bytes.HasPrefix(data, flacMagic):
		return FormatFLAC
	default:
		return FormatUnknown
	}
}

// ValidateMPEG returns an error unless data looks like an MP3 stream.
func ValidateMPEG(data []byte) error {
	if len(data) == 0 {
		return ErrEmptyAudio
	}

	format := Sniff(data)
	if format != FormatMP3 {
		return fmt.Errorf("%w: detected %s", ErrNotMPEG, format)
	}

	return nil
}

// ContentType maps a format to its MIME type.
func ContentType(format Format) string {
	switch format {
	case FormatMP3:
		return ContentTypeMPEG
	case FormatWAV:
		return ContentTypeWAV
	case FormatOGG:
		return ContentTypeOGG
	case FormatFLAC:
		return ContentTypeFLAC
	case FormatUnknown:
		return contentTypeBin
	default:
		return contentTypeBin
	}
}
