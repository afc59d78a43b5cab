package messenger

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/abroadinquiry/advisor/internal/chat"
	"github.com/abroadinquiry/advisor/internal/log"
)

// FallbackMessage is sent when generating a reply fails, so the user always
// hears back.
const FallbackMessage = "Sorry, I'm busy. Our team will reply soon! 😊"

const (
	// replyTimeout bounds generation plus delivery for one event.
	replyTimeout = 60 * time.Second

	// maxWebhookBody caps the accepted webhook payload size.
	maxWebhookBody = 1 << 20 // 1 MiB

	defaultQueueSize = 64
	defaultWorkers   = 4
)

// Responder generates a reply to a conversation. Satisfied by chat.Engine.
type Responder interface {
	Respond(ctx context.Context, history []chat.Message, cb chat.StreamCallback) (string, error)
}

// Sender delivers a text message to a user. Satisfied by Client.
type Sender interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// Relay accepts Messenger webhook deliveries and answers them
// asynchronously. The webhook handler only validates and enqueues, then
// acknowledges; workers pick events off the queue, run the chat engine, and
// send the reply.
type Relay struct {
	verifyToken string
	responder   Responder
	sender      Sender
	queue       chan InboundEvent
	workers     int
	logger      log.Logger
}

// RelayOption customizes a Relay.
type RelayOption func(*Relay)

// WithQueueSize sets the inbound event buffer size.
func WithQueueSize(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.queue = make(chan InboundEvent, n)
		}
	}
}

// WithWorkers sets how many events are processed concurrently.
func WithWorkers(n int) RelayOption {
	return func(r *Relay) {
		if n > 0 {
			r.workers = n
		}
	}
}

// NewRelay creates a Relay. Run must be called before deliveries arrive for
// replies to be produced.
func NewRelay(verifyToken string, responder Responder, sender Sender, logger log.Logger, opts ...RelayOption) (*Relay, error) {
	if verifyToken == "" {
		return nil, fmt.Errorf("verify token is required")
	}
	if responder == nil {
		return nil, fmt.Errorf("responder is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}

	r := &Relay{
		verifyToken: verifyToken,
		responder:   responder,
		sender:      sender,
		queue:       make(chan InboundEvent, defaultQueueSize),
		workers:     defaultWorkers,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// RegisterRoutes registers the webhook endpoints on mux.
func (r *Relay) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /webhook", r.handleVerify)
	mux.HandleFunc("POST /webhook", r.handleDelivery)
}

// Run processes queued events until ctx is cancelled, then drains nothing
// further and returns.
func (r *Relay) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < r.workers; i++ {
		g.Go(func() error {
			r.worker(ctx)
			return nil
		})
	}
	return g.Wait()
}

func (r *Relay) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-r.queue:
			r.process(ctx, ev)
		}
	}
}

// process answers one event. A panic in the engine or sender must not take
// down the worker, so it is contained here.
func (r *Relay) process(ctx context.Context, ev InboundEvent) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic while processing event", "event", ev.ID, "sender", ev.SenderID, "panic", rec)
		}
	}()

	genCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	reply, err := r.responder.Respond(genCtx, []chat.Message{
		{Role: chat.RoleUser, Content: ev.Text},
	}, nil)
	cancel()
	if err != nil {
		r.logger.Error("reply generation failed", "event", ev.ID, "sender", ev.SenderID, "error", err)
		reply = FallbackMessage
	}
	if reply == "" {
		reply = FallbackMessage
	}

	// The send must not inherit the generation deadline: a timed-out
	// generation still owes the user a fallback.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := r.sender.SendText(sendCtx, ev.SenderID, reply); err != nil {
		r.logger.Error("reply delivery failed", "event", ev.ID, "sender", ev.SenderID, "error", err)
		if reply == FallbackMessage {
			return
		}
		if err := r.sender.SendText(sendCtx, ev.SenderID, FallbackMessage); err != nil {
			r.logger.Error("fallback delivery failed", "event", ev.ID, "sender", ev.SenderID, "error", err)
		}
	}
}

// queueFullFallback answers an event that could not be queued. The delivery
// is acknowledged by the time the queue check happens and the platform will
// not retry it, so the user at least hears the canned reply.
func (r *Relay) queueFullFallback(ev InboundEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := r.sender.SendText(ctx, ev.SenderID, FallbackMessage); err != nil {
		r.logger.Error("fallback delivery failed", "event", ev.ID, "sender", ev.SenderID, "error", err)
	}
}

// handleVerify answers the subscription handshake: Facebook sends hub.mode,
// hub.verify_token and hub.challenge; on a token match the challenge is
// echoed back verbatim.
func (r *Relay) handleVerify(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && subtle.ConstantTimeCompare([]byte(token), []byte(r.verifyToken)) == 1 {
		r.logger.Info("webhook verified")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(challenge))
		return
	}

	r.logger.Warn("webhook verification rejected", "mode", mode)
	http.Error(w, "Forbidden", http.StatusForbidden)
}

// handleDelivery accepts a message batch. Every parseable event is
// enqueued, then the delivery is acknowledged; Facebook retries deliveries
// that are not answered quickly, so nothing here waits on the model.
func (r *Relay) handleDelivery(w http.ResponseWriter, req *http.Request) {
	body, err := io.ReadAll(io.LimitReader(req.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	events, skipped, err := ParseEvents(body)
	if err != nil {
		r.logger.Warn("malformed webhook delivery", "error", err)
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if skipped > 0 {
		r.logger.Debug("webhook events skipped", "count", skipped)
	}

	dropped := 0
	for _, ev := range events {
		select {
		case r.queue <- ev:
		default:
			dropped++
			go r.queueFullFallback(ev)
		}
	}
	if dropped > 0 {
		r.logger.Warn("event queue full, answering with fallback", "count", dropped)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
