package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/abroadinquiry/advisor/internal/log"
)

// EmptyResponseFallback is returned when the model finishes without
// producing any text, so callers always have something to show the user.
const EmptyResponseFallback = "I'm sorry, I couldn't come up with an answer just now. Please try again."

// StreamCallback receives partial model output as it is produced.
type StreamCallback = func(context.Context, *ai.ModelResponseChunk) error

// Engine generates advisory replies. The model may call the registered
// tools; the tool loop is bounded by maxTurns so a misbehaving model cannot
// spin on retrieval.
type Engine struct {
	g            *genkit.Genkit
	modelName    string
	systemPrompt string
	toolRefs     []ai.ToolRef
	maxTurns     int
	logger       log.Logger
}

// NewEngine creates an Engine.
func NewEngine(g *genkit.Genkit, modelName, systemPrompt string, toolRefs []ai.ToolRef, maxTurns int, logger log.Logger) (*Engine, error) {
	if g == nil {
		return nil, fmt.Errorf("genkit instance is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if systemPrompt == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	if maxTurns < 1 {
		return nil, fmt.Errorf("maxTurns must be at least 1, got %d", maxTurns)
	}
	return &Engine{
		g:            g,
		modelName:    modelName,
		systemPrompt: systemPrompt,
		toolRefs:     toolRefs,
		maxTurns:     maxTurns,
		logger:       logger,
	}, nil
}

// Respond generates a reply to the conversation in history. When cb is
// non-nil, partial output is streamed through it as it arrives; the full
// reply is returned either way.
func (e *Engine) Respond(ctx context.Context, history []Message, cb StreamCallback) (string, error) {
	msgs, err := toAIMessages(history)
	if err != nil {
		return "", err
	}

	opts := []ai.GenerateOption{
		ai.WithModelName(e.modelName),
		ai.WithSystem(e.systemPrompt),
		ai.WithMessages(msgs...),
		ai.WithTools(e.toolRefs...),
		ai.WithMaxTurns(e.maxTurns),
	}
	if cb != nil {
		opts = append(opts, ai.WithStreaming(cb))
	}

	resp, err := genkit.Generate(ctx, e.g, opts...)
	if err != nil {
		e.logger.Error("generation failed", "model", e.modelName, "error", err)
		return "", fmt.Errorf("%w: %w", ErrGenerateFailed, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		e.logger.Warn("model returned empty response", "model", e.modelName)
		return EmptyResponseFallback, nil
	}

	e.logger.Debug("response generated", "model", e.modelName, "chars", len(text))
	return text, nil
}
