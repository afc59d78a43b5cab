package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/firebase/genkit/go/ai"

	"github.com/abroadinquiry/advisor/internal/app"
	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/config"
	"github.com/abroadinquiry/advisor/internal/log"
)

// runAsk sends a one-shot question to the advisor and streams the answer to
// stdout.
func runAsk(logger log.Logger) error {
	question := strings.TrimSpace(strings.Join(os.Args[2:], " "))
	if question == "" {
		return fmt.Errorf("usage: advisor ask <question>")
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

	engine, err := a.CreateEngine()
	if err != nil {
		return fmt.Errorf("creating chat engine: %w", err)
	}

	streamed := false
	cb := func(_ context.Context, chunk *ai.ModelResponseChunk) error {
		text := chunk.Text()
		if text != "" {
			streamed = true
			fmt.Print(text)
		}
		return nil
	}

	answer, err := engine.Respond(ctx, []chat.Message{
		{Role: chat.RoleUser, Content: question},
	}, cb)
	if err != nil {
		return fmt.Errorf("generating answer: %w", err)
	}

	// Streaming printed the answer already; only print the final text when
	// nothing was streamed.
	if !streamed {
		fmt.Print(answer)
	}
	fmt.Println()
	return nil
}
