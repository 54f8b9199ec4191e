package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/book-expert/pdf-audiobook/internal/config"
	"github.com/book-expert/pdf-audiobook/internal/fileutil"
	"github.com/book-expert/pdf-audiobook/internal/pipeline"
	"github.com/book-expert/pdf-audiobook/internal/server"
	"github.com/book-expert/pdf-audiobook/internal/tts"
	"github.com/book-expert/pdf-audiobook/internal/worker"
	"github.com/urfave/cli/v2"
)

// ErrHealthNeedsService indicates the configured speech provider has no health endpoint.
var ErrHealthNeedsService = errors.New("health check requires tts.provider = \"service\"")

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the upload form over HTTP",
		Action: func(c *cli.Context) error {
			env, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			store, closeStore, err := openStore(env.cfg, env.log)
			if err != nil {
				return err
			}
			defer closeStore()

			runner, err := pipeline.FromConfig(env.cfg, env.log)
			if err != nil {
				return err
			}
			defer func() { _ = runner.Close() }()

			shell, err := server.New(runner, store, env.cfg.Server.MaxUploadMB, env.log)
			if err != nil {
				return err
			}

			env.log.System("pdf-audiobook serving on %s", env.cfg.Server.ListenAddr)

			return shell.ListenAndServe(ctx, env.cfg.Server.ListenAddr)
		},
	}
}

func translateCommand() *cli.Command {
	return &cli.Command{
		Name:  "translate",
		Usage: "translate one PDF and write the PDF, audiobook and manifest to a directory",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: flagInput, Aliases: []string{"i"}, Usage: "source PDF", Required: true},
			&cli.StringFlag{Name: flagLang, Aliases: []string{"l"}, Usage: "target language, e.g. 'fr'"},
			&cli.StringFlag{Name: flagOutput, Aliases: []string{"o"}, Usage: "output directory", Value: "."},
		},
		Action: func(c *cli.Context) error {
			env, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer env.Close()

			return translateFile(c, env)
		},
	}
}

func translateFile(c *cli.Context, env *runtimeEnv) error {
	input, err := os.Open(c.String(flagInput))
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer input.Close()

	runner, err := pipeline.FromConfig(env.cfg, env.log)
	if err != nil {
		return err
	}
	defer func() { _ = runner.Close() }()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := runner.Run(ctx, pipeline.Request{
		Document:       input,
		Filename:       fileutil.SanitizeFilename(c.String(flagInput)),
		TargetLanguage: c.String(flagLang),
	})
	if err != nil {
		return err
	}

	outputDir := c.String(flagOutput)
	out := c.App.Writer

	if result.DocumentErr != nil {
		fmt.Fprintf(c.App.ErrWriter, "Error creating PDF: %v\n", result.DocumentErr)
	} else {
		path, writeErr := fileutil.WriteFile(outputDir, pipeline.PDFName, result.PDF)
		if writeErr != nil {
			return writeErr
		}

		result.Manifest.Document.Artifact = pipeline.PDFName
		result.Manifest.Document.Bytes = len(result.PDF)
		fmt.Fprintf(out, "Translated PDF: %s (%s)\n", path, fileutil.FormatFileSize(int64(len(result.PDF))))
	}

	if result.AudioErr != nil {
		fmt.Fprintf(c.App.ErrWriter, "Error creating audiobook: %v\n", result.AudioErr)
	} else {
		audioData := result.Audio()

		path, writeErr := fileutil.WriteFile(outputDir, pipeline.AudioName, audioData)
		if writeErr != nil {
			return writeErr
		}

		result.Manifest.Audio.Artifact = pipeline.AudioName
		result.Manifest.Audio.Bytes = len(audioData)
		fmt.Fprintf(out, "Audiobook: %s (%s)\n", path, fileutil.FormatFileSize(int64(len(audioData))))
	}

	manifestData, err := result.Manifest.Marshal()
	if err != nil {
		return err
	}

	manifestPath, err := fileutil.WriteFile(outputDir, pipeline.ManifestName, manifestData)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Manifest: %s\n", manifestPath)

	timings := result.Manifest.Timings
	fmt.Fprintf(out, "Timings: extract %s, translate %s, document %s, audio %s\n",
		fileutil.FormatDuration(timings.Extract),
		fileutil.FormatDuration(timings.Translate),
		fileutil.FormatDuration(timings.Document),
		fileutil.FormatDuration(timings.Audio))

	failed := result.Manifest.Failed()
	if len(failed) > 0 {
		fmt.Fprintf(out, "Pages that could not be translated: %v\n", failed)
	}

	return nil
}

func workerCommand() *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "process translation requests from NATS until interrupted",
		Action: func(c *cli.Context) error {
			env, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer env.Close()

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			broker, err := openBroker(env.cfg, env.log)
			if err != nil {
				return err
			}

			if broker == nil {
				return ErrNATSNotConfigured
			}
			defer broker.Close()

			runner, err := pipeline.FromConfig(env.cfg, env.log)
			if err != nil {
				return err
			}
			defer func() { _ = runner.Close() }()

			natsWorker, err := worker.NewNatsWorker(broker.conn, env.cfg.NATS.TranslateSubject, broker.store, runner, env.log)
			if err != nil {
				return err
			}

			env.log.System("pdf-audiobook worker listening for jobs on subject: %s", env.cfg.NATS.TranslateSubject)

			return natsWorker.Run(ctx)
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "check the configured TTS service",
		Action: func(c *cli.Context) error {
			env, err := bootstrap(c)
			if err != nil {
				return err
			}
			defer env.Close()

			return checkHealth(c, env.cfg)
		},
	}
}

func checkHealth(c *cli.Context, cfg *config.Config) error {
	if cfg.TTS.Provider != config.ProviderService {
		return ErrHealthNeedsService
	}

	ctx, cancel := context.WithTimeout(c.Context, tts.HealthCheckTimeout)
	defer cancel()

	client := tts.NewHTTPClient(cfg.TTS.BaseURL, cfg.TTS.Temperature, tts.HealthCheckTimeout)

	err := client.HealthCheck(ctx)
	if err != nil {
		fmt.Fprintf(c.App.ErrWriter, "TTS service is not healthy: %v\n", err)

		return err
	}

	fmt.Fprintln(c.App.Writer, "TTS service is healthy")

	return nil
}
