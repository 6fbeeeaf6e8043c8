package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/giobyte8/imgbatch/internal/config"
	"github.com/giobyte8/imgbatch/internal/encoder"
	"github.com/giobyte8/imgbatch/internal/models"
	"github.com/giobyte8/imgbatch/internal/services"
	"github.com/giobyte8/imgbatch/internal/telemetry"
)

func setupLogging() {
	var log_level slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "DEBUG", "debug":
		log_level = slog.LevelDebug
	case "WARN", "warn":
		log_level = slog.LevelWarn
	case "ERROR", "error":
		log_level = slog.LevelError
	default:
		log_level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     log_level,
		AddSource: false,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {

			// Format time to show only the time (HH:MM:SS)
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format("15:04:05"))
			}

			return a
		},
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)
}

func loadEnv() {
	if _, err := os.Stat(".env"); os.IsNotExist(err) {
		slog.Warn("No .env file found, using environment variables directly.")
		return
	}

	err := godotenv.Load(".env")
	if err != nil {
		slog.Error("Error loading .env file", "error", err)
		os.Exit(1)
	}
}

// readSourceImages loads every regular file of dir, sorted by name so
// runs over the same directory are reproducible.
func readSourceImages(dir string) ([]models.SourceImage, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list source directory %s: %w", dir, err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	var images []models.SourceImage
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}

		absPath := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(absPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read source file %s: %w", absPath, err)
		}

		images = append(images, models.SourceImage{
			Name: entry.Name(),
			Data: data,
		})
	}

	return images, nil
}

func prepareBatchService(
	cfg *config.Config,
	telemetry *telemetry.TelemetrySvc,
) (*services.BatchService, error) {
	enc, err := encoder.New(cfg.EncoderBackend, telemetry)
	if err != nil {
		return nil, err
	}

	format := models.Format(cfg.Format)
	if !encoder.Supports(enc, format) {
		return nil, fmt.Errorf(
			"encoder backend %s cannot write %s",
			cfg.EncoderBackend,
			format,
		)
	}

	if cfg.StripMetadata {
		slog.Debug("Output never carries source metadata, STRIP_METADATA has no effect")
	}

	var emitter services.Emitter
	if cfg.EmitIndividual {
		emitter = services.NewDirEmitter(filepath.Join(cfg.DirOutput, cfg.ArchiveName))
	}

	return services.NewBatchService(cfg.Batch(), enc, emitter, telemetry), nil
}

func run(ctx context.Context, cfg *config.Config, telemetry *telemetry.TelemetrySvc) error {
	batchSvc, err := prepareBatchService(cfg, telemetry)
	if err != nil {
		return err
	}

	images, err := readSourceImages(cfg.DirSourceImages)
	if err != nil {
		return err
	}

	result, err := batchSvc.Run(ctx, services.BatchRequest{
		Images:     images,
		Sizes:      cfg.Sizes,
		Naming:     cfg.Naming(),
		Processing: cfg.Processing(),
		Export:     cfg.Export(),
	})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DirOutput, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", cfg.DirOutput, err)
	}

	archivePath := filepath.Join(cfg.DirOutput, result.ArchiveFileName)
	if err := os.WriteFile(archivePath, result.Archive, 0644); err != nil {
		return fmt.Errorf("failed to write archive %s: %w", archivePath, err)
	}

	slog.Info(
		"Archive written",
		"runId", result.RunID,
		"path", archivePath,
		"variants", len(result.Items),
	)
	return nil
}

func main() {
	loadEnv()
	setupLogging()

	slog.Info("Starting imgbatch...")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Init telemetry services
	telemetry, err := telemetry.NewTelemetrySvc(ctx, cfg.OtelEnabled)
	if err != nil {
		slog.Error("Failed to initialize Telemetry services", "error", err)
		os.Exit(1)
	}

	// Cancel the run between pairs on OS signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigChan:
			slog.Info("Received OS signal, cancelling batch run...", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	runErr := run(ctx, cfg, telemetry)

	// Telemetry gets a fresh context, ctx may already be cancelled
	if err := telemetry.Shutdown(context.Background()); err != nil {
		slog.Error("Failed to shutdown telemetry services", "error", err)
	}

	if runErr != nil {
		slog.Error("Batch run failed", "error", runErr)
		os.Exit(1)
	}
	slog.Info("imgbatch finished.")
}
