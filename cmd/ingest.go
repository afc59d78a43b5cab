package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abroadinquiry/advisor/internal/app"
	"github.com/abroadinquiry/advisor/internal/config"
	"github.com/abroadinquiry/advisor/internal/log"
)

// runIngest loads one or more files into the knowledge base.
func runIngest(logger log.Logger) error {
	paths := os.Args[2:]
	if len(paths) == 0 {
		return fmt.Errorf("usage: advisor ingest <file>...")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	total := 0
	for _, path := range paths {
		result, err := a.Ingestor.IngestFile(ctx, path)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}
		fmt.Printf("%s: %d chunks in %s\n", result.Source, result.ChunksAdded, result.Duration.Round(time.Millisecond))
		total += result.ChunksAdded
	}

	count, err := a.Store.Count(ctx)
	if err != nil {
		return fmt.Errorf("counting documents: %w", err)
	}
	fmt.Printf("done: %d chunks added, %d documents in the knowledge base\n", total, count)
	return nil
}
