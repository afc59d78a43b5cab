package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/abroadinquiry/advisor/api"
	"github.com/abroadinquiry/advisor/internal/app"
	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/config"
	"github.com/abroadinquiry/advisor/internal/log"
	"github.com/abroadinquiry/advisor/internal/messenger"
)

// runServe starts the HTTP server with the chat API and the Messenger
// webhook relay.
func runServe(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	var serveArgs []string
	if len(os.Args) > 2 {
		serveArgs = os.Args[2:]
	}
	addr, err := serveAddr(serveArgs)
	if err != nil {
		return fmt.Errorf("parsing address: %w", err)
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

	engine, err := a.CreateEngine()
	if err != nil {
		return fmt.Errorf("creating chat engine: %w", err)
	}
	flow := chat.NewFlow(a.Genkit, engine)

	graphClient, err := messenger.NewClient(cfg.GraphBaseURL, cfg.PageAccessToken, logger)
	if err != nil {
		return fmt.Errorf("creating graph client: %w", err)
	}
	relay, err := messenger.NewRelay(cfg.VerifyToken, engine, graphClient, logger)
	if err != nil {
		return fmt.Errorf("creating messenger relay: %w", err)
	}

	srv := api.NewServer(a.DBPool, flow, relay, logger)

	logger.Info("advisor ready", "addr", addr, "version", Version)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return relay.Run(ctx)
	})
	g.Go(func() error {
		return srv.Run(ctx, addr)
	})
	return g.Wait()
}
