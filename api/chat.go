package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/firebase/genkit/go/genkit"

	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/log"
)

// ChatHandler handles chat endpoints via the Genkit flow.
//
// Endpoints:
//   - POST /api/chat        - synchronous chat (JSON request/response)
//   - POST /api/chat/stream - streaming chat (Server-Sent Events)
type ChatHandler struct {
	chatFlow *chat.Flow
	logger   log.Logger
}

// NewChatHandler creates a chat handler for the given flow.
func NewChatHandler(flow *chat.Flow, logger log.Logger) *ChatHandler {
	return &ChatHandler{chatFlow: flow, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	if h.chatFlow == nil {
		if h.logger != nil {
			h.logger.Warn("chat flow is nil, chat endpoints not registered")
		}
		return
	}
	mux.Handle("POST /api/chat", genkit.Handler(h.chatFlow))
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
}

// SSEChunkData is the data for "chunk" events carrying partial text.
type SSEChunkData struct {
	Text string `json:"text"`
}

// SSEDoneData is the data for "done" events.
type SSEDoneData struct {
	Response string `json:"response"`
}

// SSEErrorData is the data for "error" events.
type SSEErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleStream serves the SSE streaming endpoint.
//
// Request body: {"messages": [{"role": "user", "content": "..."}]}
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	var input chat.Input
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeSSEError(w, flusher, "INVALID_REQUEST", fmt.Sprintf("Invalid request body: %v", err))
		return
	}
	if len(input.Messages) == 0 {
		h.writeSSEError(w, flusher, "MISSING_MESSAGES", "messages is required")
		return
	}

	ctx := r.Context()
	h.logger.Debug("SSE stream started", "messages", len(input.Messages))

	var finalOutput chat.Output
	var streamErr error
	hasChunks := false

	for streamValue, err := range h.chatFlow.Stream(ctx, input) {
		select {
		case <-ctx.Done():
			h.logger.Debug("client disconnected")
			return
		default:
		}

		if err != nil {
			streamErr = err
			break
		}

		if streamValue.Done {
			finalOutput = streamValue.Output
			break
		}

		if streamValue.Stream.Tool != nil {
			h.writeSSETool(w, flusher, streamValue.Stream.Tool)
		}
		if streamValue.Stream.Text != "" {
			hasChunks = true
			h.writeSSEChunk(w, flusher, streamValue.Stream.Text)
		}
	}

	if streamErr != nil {
		h.logger.Error("stream failed", "error", streamErr)
		h.writeSSEError(w, flusher, "STREAM_ERROR", streamErr.Error())
		return
	}

	h.writeSSEDone(w, flusher, finalOutput.Response)
	h.logger.Debug("SSE stream completed",
		"hasChunks", hasChunks,
		"responseLen", len(finalOutput.Response))
}

// writeSSEChunk writes a chunk event to the SSE stream.
func (h *ChatHandler) writeSSEChunk(w http.ResponseWriter, flusher http.Flusher, text string) {
	data, _ := json.Marshal(SSEChunkData{Text: text})
	fmt.Fprintf(w, "event: chunk\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSETool writes a tool event carrying an invocation record.
func (h *ChatHandler) writeSSETool(w http.ResponseWriter, flusher http.Flusher, call *chat.ToolCall) {
	data, err := json.Marshal(call)
	if err != nil {
		h.logger.Warn("tool record not serializable", "tool", call.Name, "error", err)
		return
	}
	fmt.Fprintf(w, "event: tool\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEDone writes a done event to the SSE stream.
func (h *ChatHandler) writeSSEDone(w http.ResponseWriter, flusher http.Flusher, response string) {
	data, _ := json.Marshal(SSEDoneData{Response: response})
	fmt.Fprintf(w, "event: done\ndata: %s\n\n", data)
	flusher.Flush()
}

// writeSSEError writes an error event to the SSE stream.
func (h *ChatHandler) writeSSEError(w http.ResponseWriter, flusher http.Flusher, code, message string) {
	data, _ := json.Marshal(SSEErrorData{Code: code, Message: message})
	fmt.Fprintf(w, "event: error\ndata: %s\n\n", data)
	flusher.Flush()
}
