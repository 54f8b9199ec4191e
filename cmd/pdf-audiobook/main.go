// main package for the pdf-audiobook command.
package main

import (
	"fmt"
	"os"

	"github.com/book-expert/logger"
	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/urfave/cli/v2"
)

// Application metadata and flag names.
const (
	appName    = "pdf-audiobook"
	appUsage   = "Translate PDF documents and narrate them as MP3 audiobooks"
	appVersion = "0.1.0"

	flagConfig = "config"
	flagInput  = "input"
	flagLang   = "lang"
	flagOutput = "output"

	bootstrapLogFile = "pdf-audiobook-bootstrap.log"
	finalLogFile     = "pdf-audiobook.log"
)

// runtimeEnv is what every command needs after bootstrap.
type runtimeEnv struct {
	cfg *config.Config
	log *logger.Logger
}

func (e *runtimeEnv) Close() {
	closeErr := e.log.Close()
	if closeErr != nil {
		fmt.Fprintf(os.Stderr, "error closing final logger: %v\n", closeErr)
	}
}

func setupLogger(logPath, fileName string) (*logger.Logger, error) {
	log, err := logger.New(logPath, fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger in %s: %w", logPath, err)
	}

	return log, nil
}

// bootstrap creates a temporary logger, loads the configuration and then opens the
// final logger in the configured directory.
func bootstrap(c *cli.Context) (*runtimeEnv, error) {
	bootstrapLog, err := setupLogger(os.TempDir(), bootstrapLogFile)
	if err != nil {
		return nil, err
	}

	defer func() { _ = bootstrapLog.Close() }()

	bootstrapLog.Info("Bootstrap logger created.")

	cfg, err := loadConfig(c.String(flagConfig), bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	bootstrapLog.Info("Configuration loaded successfully.")

	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir, finalLogFile)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return nil, err
	}

	return &runtimeEnv{cfg: cfg, log: finalLog}, nil
}

// loadConfig reads an explicit file when given, otherwise asks the configurator. A
// missing project configuration falls back to the built-in defaults.
func loadConfig(path string, log *logger.Logger) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}

	cfg, err := config.Load(log)
	if err != nil {
		log.Warn("No project configuration available (%v); using defaults", err)

		return config.Default(), nil
	}

	return cfg, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:    appName,
		Usage:   appUsage,
		Version: appVersion,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "path to a TOML configuration file (default: configurator lookup)",
				EnvVars: []string{"PDF_AUDIOBOOK_CONFIG"},
			},
		},
		Commands: []*cli.Command{
			serveCommand(),
			translateCommand(),
			workerCommand(),
			healthCommand(),
		},
	}
}

func main() {
	err := newApp().Run(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s exited with error: %v\n", appName, err)
		os.Exit(1)
	}
}
