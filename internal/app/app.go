// Package app wires the application together: configuration, database,
// Genkit, the knowledge pipeline, and the chat engine.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/abroadinquiry/advisor/internal/config"
	"github.com/abroadinquiry/advisor/internal/ingest"
	"github.com/abroadinquiry/advisor/internal/knowledge"
	"github.com/abroadinquiry/advisor/internal/log"
)

// App is the application container. Setup builds it; Close releases it.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Store    *knowledge.Store
	Searcher *knowledge.Searcher
	Ingestor *ingest.Ingestor

	// KnowledgeTool is the registered search tool, passed to the chat
	// engine so the model can consult the knowledge base.
	KnowledgeTool ai.Tool
}

// Close releases held resources.
func (a *App) Close() error {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
