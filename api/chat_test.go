package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/log"
	"github.com/abroadinquiry/advisor/internal/testutil"
)

func newTestFlow(t *testing.T, reply string) *chat.Flow {
	t.Helper()
	chat.ResetFlowForTesting()
	t.Cleanup(chat.ResetFlowForTesting)

	g := genkit.Init(context.Background())
	mock := testutil.NewMockModel(reply)
	mock.Register(g)

	engine, err := chat.NewEngine(g, "mock/advisor", "test advisor policy", nil, 2, log.NewNop())
	require.NoError(t, err)

	return chat.NewFlow(g, engine)
}

func TestChatStreamHappyPath(t *testing.T) {
	flow := newTestFlow(t, "advisory reply text")
	srv := NewServer(nil, flow, nil, log.NewNop())
	handler := srv.Handler()

	body := `{"messages":[{"role":"user","content":"Which universities fit my profile?"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	out := w.Body.String()
	assert.Contains(t, out, "event: chunk")
	assert.Contains(t, out, "event: done")
	assert.Contains(t, out, `"response":"advisory reply text"`)
	assert.NotContains(t, out, "event: error")
}

func TestChatStreamEmitsToolEvents(t *testing.T) {
	chat.ResetFlowForTesting()
	t.Cleanup(chat.ResetFlowForTesting)

	g := genkit.Init(context.Background())
	mock := testutil.NewMockModel("fallback")
	mock.AddToolResponse("scholarship",
		[]*ai.ToolRequest{{
			Name:  "lookupScholarships",
			Input: map[string]any{"query": "scholarship"},
		}},
		"Merit grants cover up to half of tuition.")
	mock.Register(g)

	tool := genkit.DefineTool(g, "lookupScholarships", "Look up scholarships.",
		func(_ *ai.ToolContext, input struct {
			Query string `json:"query"`
		}) (string, error) {
			return "[1] merit grants", nil
		})

	engine, err := chat.NewEngine(g, "mock/advisor", "test advisor policy", []ai.ToolRef{tool}, 2, log.NewNop())
	require.NoError(t, err)
	flow := chat.NewFlow(g, engine)

	srv := NewServer(nil, flow, nil, log.NewNop())
	handler := srv.Handler()

	body := `{"messages":[{"role":"user","content":"Any scholarship options?"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	out := w.Body.String()
	assert.Contains(t, out, "event: tool")
	assert.Contains(t, out, `"name":"lookupScholarships"`)
	assert.Contains(t, out, "event: done")
	assert.NotContains(t, out, "event: error")
}

func TestChatStreamMissingMessages(t *testing.T) {
	flow := newTestFlow(t, "unused")
	srv := NewServer(nil, flow, nil, log.NewNop())
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{}`))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	out := w.Body.String()
	assert.Contains(t, out, "event: error")
	assert.Contains(t, out, "MISSING_MESSAGES")
	assert.NotContains(t, out, "event: done")
}

func TestChatStreamInvalidBody(t *testing.T) {
	flow := newTestFlow(t, "unused")
	srv := NewServer(nil, flow, nil, log.NewNop())
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"messages": [`))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	out := w.Body.String()
	assert.Contains(t, out, "event: error")
	assert.Contains(t, out, "INVALID_REQUEST")
}

func TestChatStreamEngineFailure(t *testing.T) {
	flow := newTestFlow(t, "unused")
	srv := NewServer(nil, flow, nil, log.NewNop())
	handler := srv.Handler()

	// History ending with a model turn is rejected by the engine, which
	// surfaces as a stream error event.
	body := `{"messages":[{"role":"user","content":"hi"},{"role":"model","content":"hello"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(body))
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	out := w.Body.String()
	assert.Contains(t, out, "event: error")
	assert.Contains(t, out, "STREAM_ERROR")
}

func TestWebhookRoutesRegistered(t *testing.T) {
	flow := newTestFlow(t, "relay reply")

	engine := &relayResponderStub{}
	sender := &relaySenderStub{}
	relay := newRelayForTest(t, engine, sender)

	srv := NewServer(nil, flow, relay, log.NewNop())
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet,
		"/webhook?hub.mode=subscribe&hub.verify_token=verify-secret&hub.challenge=777", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "777", w.Body.String())
}
