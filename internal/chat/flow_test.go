package chat

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/abroadinquiry/advisor/internal/log"
	"github.com/abroadinquiry/advisor/internal/testutil"
)

func TestNewFlowSingleton(t *testing.T) {
	ResetFlowForTesting()
	t.Cleanup(ResetFlowForTesting)

	g := genkit.Init(context.Background())
	mock := testutil.NewMockModel("flow reply")
	mock.Register(g)

	engine, err := NewEngine(g, "mock/advisor", "test advisor", nil, 2, log.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	first := NewFlow(g, engine)
	second := NewFlow(g, engine)
	if first != second {
		t.Error("NewFlow returned different instances")
	}
}

func TestFlowStreamsChunks(t *testing.T) {
	ResetFlowForTesting()
	t.Cleanup(ResetFlowForTesting)

	g := genkit.Init(context.Background())
	mock := testutil.NewMockModel("partial text from the advisor")
	mock.Register(g)

	engine, err := NewEngine(g, "mock/advisor", "test advisor", nil, 2, log.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flow := NewFlow(g, engine)

	input := Input{Messages: []Message{{Role: RoleUser, Content: "hello"}}}

	var streamed string
	var final Output
	for result, err := range flow.Stream(context.Background(), input) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if result.Done {
			final = result.Output
		} else {
			streamed += result.Stream.Text
		}
	}

	if final.Response != "partial text from the advisor" {
		t.Errorf("final response = %q", final.Response)
	}
	if streamed == "" {
		t.Error("no chunks were streamed")
	}
}

func TestFlowStreamsToolRecords(t *testing.T) {
	ResetFlowForTesting()
	t.Cleanup(ResetFlowForTesting)

	g := genkit.Init(context.Background())
	mock := testutil.NewMockModel("fallback")
	mock.AddToolResponse("visa",
		[]*ai.ToolRequest{{
			Name:  "lookupVisa",
			Input: map[string]any{"query": "visa processing"},
		}},
		"Processing takes 4-6 weeks.")
	mock.Register(g)

	tool := genkit.DefineTool(g, "lookupVisa", "Look up visa information.",
		func(_ *ai.ToolContext, input struct {
			Query string `json:"query"`
		}) (string, error) {
			return "[1] Processing takes 4-6 weeks.", nil
		})

	engine, err := NewEngine(g, "mock/advisor", "test advisor", []ai.ToolRef{tool}, 2, log.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flow := NewFlow(g, engine)

	input := Input{Messages: []Message{{Role: RoleUser, Content: "How long is visa processing?"}}}

	var toolRecords []*ToolCall
	var streamed string
	for result, err := range flow.Stream(context.Background(), input) {
		if err != nil {
			t.Fatalf("stream error: %v", err)
		}
		if result.Done {
			continue
		}
		if result.Stream.Tool != nil {
			toolRecords = append(toolRecords, result.Stream.Tool)
		}
		streamed += result.Stream.Text
	}

	if len(toolRecords) == 0 {
		t.Fatal("no tool invocation records were streamed")
	}
	if toolRecords[0].Name != "lookupVisa" {
		t.Errorf("tool record name = %q, want lookupVisa", toolRecords[0].Name)
	}
	if streamed == "" {
		t.Error("no text was streamed alongside the tool records")
	}
}

func TestFlowRejectsBadInput(t *testing.T) {
	ResetFlowForTesting()
	t.Cleanup(ResetFlowForTesting)

	g := genkit.Init(context.Background())
	mock := testutil.NewMockModel("ok")
	mock.Register(g)

	engine, err := NewEngine(g, "mock/advisor", "test advisor", nil, 2, log.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	flow := NewFlow(g, engine)

	if _, err := flow.Run(context.Background(), Input{}); err == nil {
		t.Error("Run with no messages should fail")
	}
}
