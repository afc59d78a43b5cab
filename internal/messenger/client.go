package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/abroadinquiry/advisor/internal/log"
)

const (
	// sendTimeout bounds one Graph API round trip.
	sendTimeout = 10 * time.Second

	// Graph API rate limits are generous per page, but a runaway reply
	// loop must not hammer the endpoint. 5 sends per second with a small
	// burst is well under the platform limit.
	sendRatePerSecond = 5
	sendBurst         = 10
)

// Client sends messages through the Facebook Graph API Send API.
type Client struct {
	baseURL    string
	pageToken  string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     log.Logger
}

// NewClient creates a Graph API client. baseURL is the versioned API root,
// e.g. https://graph.facebook.com/v20.0.
func NewClient(baseURL, pageToken string, logger log.Logger) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("graph base URL is required")
	}
	if pageToken == "" {
		return nil, fmt.Errorf("page access token is required")
	}
	return &Client{
		baseURL:    baseURL,
		pageToken:  pageToken,
		httpClient: &http.Client{Timeout: sendTimeout},
		limiter:    rate.NewLimiter(rate.Limit(sendRatePerSecond), sendBurst),
		logger:     logger,
	}, nil
}

type sendRequest struct {
	Recipient participant `json:"recipient"`
	Message   sendText    `json:"message"`
}

type sendText struct {
	Text string `json:"text"`
}

// SendText delivers a text message to the given page-scoped user ID.
func (c *Client) SendText(ctx context.Context, recipientID, text string) error {
	if recipientID == "" {
		return fmt.Errorf("recipient ID is required")
	}
	if text == "" {
		return fmt.Errorf("message text is required")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for send slot: %w", err)
	}

	body, err := json.Marshal(sendRequest{
		Recipient: participant{ID: recipientID},
		Message:   sendText{Text: text},
	})
	if err != nil {
		return fmt.Errorf("encoding send request: %w", err)
	}

	endpoint := c.baseURL + "/me/messages?access_token=" + url.QueryEscape(c.pageToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling graph API: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph API returned %d: %s", resp.StatusCode, detail)
	}

	c.logger.Debug("message sent", "recipient", recipientID, "chars", len(text))
	return nil
}
