package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abroadinquiry/advisor/db"
	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/chunk"
	"github.com/abroadinquiry/advisor/internal/config"
	"github.com/abroadinquiry/advisor/internal/embed"
	"github.com/abroadinquiry/advisor/internal/ingest"
	"github.com/abroadinquiry/advisor/internal/knowledge"
	"github.com/abroadinquiry/advisor/internal/log"
	"github.com/abroadinquiry/advisor/internal/tools"
)

// dbConnectTimeout bounds the initial connect and ping.
const dbConnectTimeout = 10 * time.Second

// Setup initializes the application: connects to PostgreSQL, runs
// migrations, initializes Genkit with the Google AI plugin, and builds the
// knowledge pipeline. On error everything already initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if cfg == nil {
		return nil, config.ErrConfigNil
	}

	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit with Google AI plugin")
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return nil, fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	embedSvc := embed.NewService(embedder)
	a.Store = knowledge.NewStore(pool, logger)
	a.Searcher = knowledge.NewSearcher(embedSvc, a.Store, cfg.SearchLimit, cfg.SearchThreshold, logger)

	splitter, err := chunk.New(cfg.ChunkSize, cfg.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("creating splitter: %w", err)
	}
	a.Ingestor = ingest.New(splitter, embedSvc, a.Store, logger)

	kt, err := tools.NewKnowledge(a.Searcher, logger)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge tool: %w", err)
	}
	tool, err := tools.Register(g, kt)
	if err != nil {
		return nil, fmt.Errorf("registering knowledge tool: %w", err)
	}
	a.KnowledgeTool = tool

	logger.Info("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel,
		"search_limit", cfg.SearchLimit,
		"search_threshold", cfg.SearchThreshold)
	return a, nil
}

// CreateEngine builds the chat engine with the consultancy system prompt
// and the registered knowledge tool.
func (a *App) CreateEngine() (*chat.Engine, error) {
	prompt, err := chat.SystemPrompt(a.Config.PromptPath)
	if err != nil {
		return nil, fmt.Errorf("loading system prompt: %w", err)
	}
	return chat.NewEngine(a.Genkit, a.Config.ModelName, prompt,
		[]ai.ToolRef{a.KnowledgeTool}, a.Config.MaxSteps, a.Logger)
}

// provideDBPool connects to PostgreSQL, verifies the connection, and runs
// pending migrations.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	connCtx, cancel := context.WithTimeout(ctx, dbConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(connCtx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(connCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	logger.Debug("database ready", "host", cfg.PostgresHost, "database", cfg.PostgresDBName)
	return pool, nil
}
