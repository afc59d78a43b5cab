// Package cmd provides the CLI commands for the advisor service.
//
// Commands:
//   - serve: HTTP server with the chat API and Messenger webhook
//   - ingest: load documents into the knowledge base
//   - ask: one-shot question against the advisor from the terminal
//
// All long-running commands handle SIGINT/SIGTERM via context cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/abroadinquiry/advisor/internal/log"
)

// Execute is the entry point for the advisor CLI.
func Execute() error {
	logger := log.New(log.Config{
		Level: logLevel(),
		JSON:  os.Getenv("ADVISOR_LOG_JSON") != "",
	})
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe(logger)
	case "ingest":
		return runIngest(logger)
	case "ask":
		return runAsk(logger)
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

func logLevel() slog.Level {
	if os.Getenv("DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("Advisor - study-abroad consultancy chatbot")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  advisor serve [addr]      Start the HTTP server (default: 127.0.0.1:3400)")
	fmt.Println("  advisor ingest <file>...  Load documents into the knowledge base")
	fmt.Println("  advisor ask <question>    Ask the advisor a one-shot question")
	fmt.Println("  advisor --version         Show version information")
	fmt.Println("  advisor --help            Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY        Required: Gemini API key")
	fmt.Println("  FB_VERIFY_TOKEN       Required for serve: Messenger webhook verify token")
	fmt.Println("  FB_PAGE_ACCESS_TOKEN  Required for serve: Messenger page access token")
	fmt.Println("  DEBUG                 Optional: enable debug logging")
	fmt.Println("  ADVISOR_LOG_JSON      Optional: log in JSON format")
}
