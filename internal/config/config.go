// Package config provides the configuration structure for the pdf-audiobook service.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
	"github.com/pelletier/go-toml/v2"
)

// Providers and encodings understood by the service.
const (
	ProviderGoogle         = "google"
	ProviderLibreTranslate = "libretranslate"
	ProviderService        = "service"

	EncodingUTF8   = "utf8"
	EncodingLatin1 = "latin1"
)

// A4 page geometry in millimetres, and the height of one text line per point of font size.
const (
	PageWidthMM        = 210.0
	PageHeightMM       = 297.0
	LineHeightPerPoint = 25.4 / 72 * 1.4
)

// Default values applied to zero fields.
const (
	defaultListenAddr         = ":8501"
	defaultMaxUploadMB        = 50
	defaultTranslateSubject   = "pdf.translate.requested"
	defaultArtifactBucket     = "PDF_AUDIOBOOK_ARTIFACTS"
	defaultArtifactTTLMinutes = 60
	defaultTranslatorTimeout  = 30
	defaultTranslatorMaxChars = 5000
	defaultSourceLanguage     = "auto"
	defaultTTSTimeout         = 60
	defaultTTSWorkers         = 1
	defaultTTSTemperature     = 0.75
	defaultFontSize           = 12.0
	defaultMinFontSize        = 6.0
	defaultMargin             = 15.0
	defaultOCRLanguage        = "eng"
)

var (
	// ErrUnknownTranslator indicates the translator provider is not supported.
	ErrUnknownTranslator = errors.New("unknown translator provider")
	// ErrUnknownSpeech indicates the speech provider is not supported.
	ErrUnknownSpeech = errors.New("unknown tts provider")
	// ErrUnknownEncoding indicates the document encoding is not supported.
	ErrUnknownEncoding = errors.New("unknown document encoding")
	// ErrServiceURLEmpty indicates a provider requires a base URL that is missing.
	ErrServiceURLEmpty = errors.New("base_url is required for this provider")
	// ErrFontSizeRange indicates min_font_size is larger than font_size.
	ErrFontSizeRange = errors.New("min_font_size must be > 0 and <= font_size")
	// ErrWorkersRange indicates the worker count is not positive.
	ErrWorkersRange = errors.New("tts workers must be >= 1")
	// ErrMarginRange indicates the page margin leaves no room for a line of text.
	ErrMarginRange = errors.New("document margin leaves no printable area")
)

// MarginFits reports whether an A4 page with the given margin on every side still holds
// one line of text at fontSize.
func MarginFits(margin, fontSize float64) bool {
	line := fontSize * LineHeightPerPoint

	return margin >= 0 && PageWidthMM-2*margin > line && PageHeightMM-2*margin > line
}

// ServerConfig holds the configuration for the HTTP upload form.
type ServerConfig struct {
	ListenAddr  string `toml:"listen_addr"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
}

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                string `toml:"url"`
	Embedded           bool   `toml:"embedded"`
	StoreDir           string `toml:"store_dir"`
	TranslateSubject   string `toml:"translate_subject"`
	ArtifactBucket     string `toml:"artifact_bucket"`
	ArtifactTTLMinutes int    `toml:"artifact_ttl_minutes"`
}

// TranslatorConfig holds the configuration for the machine translation provider.
type TranslatorConfig struct {
	Provider       string `toml:"provider"`
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	SourceLanguage string `toml:"source_language"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxChars       int    `toml:"max_chars"`
}

// TTSConfig holds the configuration for the speech synthesis provider.
type TTSConfig struct {
	Provider       string  `toml:"provider"`
	BaseURL        string  `toml:"base_url"`
	Language       string  `toml:"language"`
	Temperature    float64 `toml:"temperature"`
	TimeoutSeconds int     `toml:"timeout_seconds"`
	Workers        int     `toml:"workers"`
}

// DocumentConfig holds the configuration for the translated PDF.
type DocumentConfig struct {
	FontPath    string  `toml:"font_path"`
	FontSize    float64 `toml:"font_size"`
	MinFontSize float64 `toml:"min_font_size"`
	Margin      float64 `toml:"margin"`
	Encoding    string  `toml:"encoding"`
}

// ExtractorConfig holds the configuration for PDF text extraction.
type ExtractorConfig struct {
	KeepBlankPages bool   `toml:"keep_blank_pages"`
	OCRFallback    bool   `toml:"ocr_fallback"`
	OCRLanguage    string `toml:"ocr_language"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	NATS       NATSConfig       `toml:"nats"`
	Translator TranslatorConfig `toml:"translator"`
	TTS        TTSConfig        `toml:"tts"`
	Document   DocumentConfig   `toml:"document"`
	Extractor  ExtractorConfig  `toml:"extractor"`
	Paths      PathsConfig      `toml:"paths"`
}

// Load loads the configuration through the central configurator.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return finish(&cfg)
}

// LoadFile loads the configuration from a TOML file on disk.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	return Parse(data)
}

// Parse decodes TOML data into a Config, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	err := toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOML configuration: %w", err)
	}

	return finish(&cfg)
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()

	return cfg
}

func finish(cfg *Config) (*Config, error) {
	cfg.ApplyDefaults()

	validationErr := cfg.Validate()
	if validationErr != nil {
		return nil, validationErr
	}

	return cfg, nil
}

// ApplyDefaults fills zero-valued fields with defaults.
func (c *Config) ApplyDefaults() {
	setString(&c.Server.ListenAddr, defaultListenAddr)
	setInt64(&c.Server.MaxUploadMB, defaultMaxUploadMB)

	setString(&c.NATS.TranslateSubject, defaultTranslateSubject)
	setString(&c.NATS.ArtifactBucket, defaultArtifactBucket)
	setInt(&c.NATS.ArtifactTTLMinutes, defaultArtifactTTLMinutes)

	setString(&c.Translator.Provider, ProviderGoogle)
	setString(&c.Translator.SourceLanguage, defaultSourceLanguage)
	setInt(&c.Translator.TimeoutSeconds, defaultTranslatorTimeout)
	setInt(&c.Translator.MaxChars, defaultTranslatorMaxChars)

	setString(&c.TTS.Provider, ProviderGoogle)
	setInt(&c.TTS.TimeoutSeconds, defaultTTSTimeout)
	setInt(&c.TTS.Workers, defaultTTSWorkers)

	if c.TTS.Temperature == 0 {
		c.TTS.Temperature = defaultTTSTemperature
	}

	setString(&c.Document.Encoding, EncodingUTF8)

	if c.Document.FontSize == 0 {
		c.Document.FontSize = defaultFontSize
	}

	if c.Document.MinFontSize == 0 {
		c.Document.MinFontSize = defaultMinFontSize
	}

	if c.Document.Margin == 0 {
		c.Document.Margin = defaultMargin
	}

	setString(&c.Extractor.OCRLanguage, defaultOCRLanguage)

	if c.Paths.BaseLogsDir == "" {
		c.Paths.BaseLogsDir = os.TempDir()
	}
}

// Validate checks the provider names and numeric ranges.
func (c *Config) Validate() error {
	switch c.Translator.Provider {
	case ProviderGoogle:
	case ProviderLibreTranslate:
		if c.Translator.BaseURL == "" {
			return fmt.Errorf("translator: %w", ErrServiceURLEmpty)
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownTranslator, c.Translator.Provider)
	}

	switch c.TTS.Provider {
	case ProviderGoogle:
	case ProviderService:
		if c.TTS.BaseURL == "" {
			return fmt.Errorf("tts: %w", ErrServiceURLEmpty)
		}
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownSpeech, c.TTS.Provider)
	}

	if c.TTS.Workers < 1 {
		return fmt.Errorf("%w: got %d", ErrWorkersRange, c.TTS.Workers)
	}

	switch c.Document.Encoding {
	case EncodingUTF8, EncodingLatin1:
	default:
		return fmt.Errorf("%w: '%s'", ErrUnknownEncoding, c.Document.Encoding)
	}

	if c.Document.MinFontSize <= 0 || c.Document.MinFontSize > c.Document.FontSize {
		return fmt.Errorf("%w: got %.1f/%.1f", ErrFontSizeRange, c.Document.MinFontSize, c.Document.FontSize)
	}

	if !MarginFits(c.Document.Margin, c.Document.MinFontSize) {
		return fmt.Errorf("%w: got %.1f mm", ErrMarginRange, c.Document.Margin)
	}

	return nil
}

func setString(field *string, value string) {
	if *field == "" {
		*field = value
	}
}

func setInt(field *int, value int) {
	if *field == 0 {
		*field = value
	}
}

func setInt64(field *int64, value int64) {
	if *field == 0 {
		*field = value
	}
}
