package config

import (
	"fmt"
	"net/url"
	"os"
)

// Validate validates configuration required by every command.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// API key is required for all AI operations (embedding and generation).
	// Read directly by Genkit; only presence is checked here.
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	if c.ModelName == "" {
		return fmt.Errorf("%w: model_name cannot be empty", ErrInvalidModelName)
	}
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}

	if c.MaxSteps < 1 || c.MaxSteps > 10 {
		return fmt.Errorf("%w: must be between 1 and 10, got %d", ErrInvalidMaxSteps, c.MaxSteps)
	}

	// Overlap must stay below size or the splitter cannot make progress.
	if c.ChunkSize < 1 {
		return fmt.Errorf("%w: chunk_size must be positive, got %d", ErrInvalidChunking, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be in [0, chunk_size), got %d with size %d",
			ErrInvalidChunking, c.ChunkOverlap, c.ChunkSize)
	}

	if c.SearchLimit < 1 || c.SearchLimit > 10 {
		return fmt.Errorf("%w: search_limit must be between 1 and 10, got %d",
			ErrInvalidSearch, c.SearchLimit)
	}
	if c.SearchThreshold < 0 || c.SearchThreshold >= 1 {
		return fmt.Errorf("%w: search_threshold must be in [0, 1), got %.2f",
			ErrInvalidSearch, c.SearchThreshold)
	}

	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}

	return nil
}

// ValidateServe validates configuration additionally required by serve mode.
// The Messenger relay cannot acknowledge webhooks or deliver replies without
// these, so serving must fail at startup rather than mid-request.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.VerifyToken == "" {
		return fmt.Errorf("%w: set FB_VERIFY_TOKEN or verify_token in config.yaml",
			ErrMissingVerifyToken)
	}
	if c.PageAccessToken == "" {
		return fmt.Errorf("%w: set FB_PAGE_ACCESS_TOKEN or page_access_token in config.yaml",
			ErrMissingPageToken)
	}

	u, err := url.Parse(c.GraphBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidGraphBaseURL, c.GraphBaseURL)
	}

	return nil
}
