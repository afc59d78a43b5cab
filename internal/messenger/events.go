// Package messenger relays Facebook Messenger conversations through the
// advisory chat engine. It verifies the webhook subscription, accepts
// inbound message batches, and sends replies through the Graph API. The
// webhook acknowledges immediately; replies are generated and sent by
// background workers so Facebook never waits on model latency.
package messenger

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// EventKind classifies a webhook event before any business logic sees it.
type EventKind string

const (
	KindMessage  EventKind = "message"
	KindEcho     EventKind = "echo"
	KindDelivery EventKind = "delivery"
	KindRead     EventKind = "read"
	KindUnknown  EventKind = "unknown"
)

// InboundEvent is one user message extracted from a webhook delivery. ID is
// assigned at parse time and correlates the delivery, the generation, and
// the outbound send in the logs.
type InboundEvent struct {
	ID       string
	SenderID string
	Text     string
	Kind     EventKind
}

// Webhook deliveries come in two shapes: the classic entry[].messaging[]
// array, and the field-tagged entry[].changes[] array where message events
// carry field "messages". Both are accepted.
type webhookPayload struct {
	Object string       `json:"object"`
	Entry  []entryBlock `json:"entry"`
}

type entryBlock struct {
	Messaging []messagingEvent `json:"messaging,omitempty"`
	Changes   []changeEvent    `json:"changes,omitempty"`
}

type changeEvent struct {
	Field string          `json:"field"`
	Value *messagingEvent `json:"value,omitempty"`
}

type messagingEvent struct {
	Sender   participant     `json:"sender"`
	Message  *eventMessage   `json:"message,omitempty"`
	Delivery json.RawMessage `json:"delivery,omitempty"`
	Read     json.RawMessage `json:"read,omitempty"`
}

type participant struct {
	ID string `json:"id"`
}

type eventMessage struct {
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

// ParseEvents extracts user messages from a webhook delivery body. Events
// that carry no replyable text are skipped rather than failing the batch:
// echoes of the page's own messages, attachment-only messages, delivery
// receipts, and change events for other fields. The skipped count is
// returned for logging.
func ParseEvents(body []byte) (events []InboundEvent, skipped int, err error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, 0, fmt.Errorf("decoding webhook payload: %w", err)
	}

	for _, entry := range payload.Entry {
		for _, ev := range entry.Messaging {
			if e, ok := inboundFrom(ev); ok {
				events = append(events, e)
			} else {
				skipped++
			}
		}
		for _, ch := range entry.Changes {
			if ch.Field != "messages" || ch.Value == nil {
				skipped++
				continue
			}
			if e, ok := inboundFrom(*ch.Value); ok {
				events = append(events, e)
			} else {
				skipped++
			}
		}
	}
	return events, skipped, nil
}

// classify resolves the event's kind before any business logic touches it,
// instead of probing payload fields downstream.
func classify(ev messagingEvent) EventKind {
	switch {
	case len(ev.Delivery) > 0:
		return KindDelivery
	case len(ev.Read) > 0:
		return KindRead
	case ev.Message == nil:
		return KindUnknown
	case ev.Message.IsEcho:
		return KindEcho
	default:
		return KindMessage
	}
}

func inboundFrom(ev messagingEvent) (InboundEvent, bool) {
	kind := classify(ev)
	if kind != KindMessage || ev.Message.Text == "" || ev.Sender.ID == "" {
		return InboundEvent{}, false
	}
	return InboundEvent{
		ID:       uuid.NewString(),
		SenderID: ev.Sender.ID,
		Text:     ev.Message.Text,
		Kind:     kind,
	}, true
}
