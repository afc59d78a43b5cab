package chat

import (
	"context"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

// Input is the request payload for the advisory chat flow.
type Input struct {
	Messages []Message `json:"messages"`
}

// Output is the flow's final result.
type Output struct {
	Response string `json:"response"`
}

// ToolCall records a tool invocation observed in the stream: the request
// carries Name and Input, the result carries Name and Output.
type ToolCall struct {
	Name   string `json:"name"`
	Input  any    `json:"input,omitempty"`
	Output any    `json:"output,omitempty"`
}

// StreamChunk carries one stream increment to clients: either a partial
// text delta or a tool invocation record, never both.
type StreamChunk struct {
	Text string    `json:"text,omitempty"`
	Tool *ToolCall `json:"tool,omitempty"`
}

// FlowName is the registered name of the chat flow in Genkit.
const FlowName = "advisor/chat"

// Flow is the Genkit streaming flow type for the advisory chat.
type Flow = core.Flow[Input, Output, StreamChunk]

// DefineStreamingFlow panics on re-registration, so the flow is a
// package-level singleton.
var (
	flowOnce sync.Once
	flow     *Flow
)

// NewFlow returns the chat flow singleton, defining it on first call.
// Later calls return the existing flow and ignore the arguments.
func NewFlow(g *genkit.Genkit, engine *Engine) *Flow {
	flowOnce.Do(func() {
		flow = defineFlow(g, engine)
	})
	return flow
}

// ResetFlowForTesting clears the singleton so tests can define the flow
// against their own Genkit instance. Not safe for concurrent use.
func ResetFlowForTesting() {
	flowOnce = sync.Once{}
	flow = nil
}

func defineFlow(g *genkit.Genkit, engine *Engine) *Flow {
	return genkit.DefineStreamingFlow(g, FlowName,
		func(ctx context.Context, input Input, streamCb func(context.Context, StreamChunk) error) (Output, error) {
			var cb StreamCallback
			if streamCb != nil {
				cb = func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
					if chunk == nil {
						return nil
					}
					for _, part := range chunk.Content {
						out, ok := chunkFor(part)
						if !ok {
							continue
						}
						if err := streamCb(ctx, out); err != nil {
							return err
						}
					}
					return nil
				}
			}

			text, err := engine.Respond(ctx, input.Messages, cb)
			if err != nil {
				return Output{}, err
			}
			return Output{Response: text}, nil
		})
}

// chunkFor maps one model response part to a stream chunk. Parts that carry
// neither text nor a tool invocation are dropped.
func chunkFor(part *ai.Part) (StreamChunk, bool) {
	switch {
	case part.ToolRequest != nil:
		return StreamChunk{Tool: &ToolCall{
			Name:  part.ToolRequest.Name,
			Input: part.ToolRequest.Input,
		}}, true
	case part.ToolResponse != nil:
		return StreamChunk{Tool: &ToolCall{
			Name:   part.ToolResponse.Name,
			Output: part.ToolResponse.Output,
		}}, true
	case part.Text != "":
		return StreamChunk{Text: part.Text}, true
	}
	return StreamChunk{}, false
}
