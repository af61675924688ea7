package convo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/safepath/buddy/internal/httpc"
	"github.com/safepath/buddy/internal/log"
)

// HTTPClient implements Client against the backend's /chat endpoint.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a chat client for the given backend API root.
func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	if baseURL == "" {
		return nil, ErrNoBaseURL
	}
	if timeout <= 0 {
		timeout = httpc.DefaultTimeout
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  httpc.NewClient(timeout),
	}, nil
}

// Chat sends one utterance and decodes the reply. A reply with status
// "error" is NOT a Go error: its message is meant to be spoken to the user.
func (c *HTTPClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if req == nil || strings.TrimSpace(req.Message) == "" {
		// Travel mode follow-ups carry no message but do carry the
		// pending parse.
		if req == nil || req.PendingParsed == nil {
			return nil, ErrEmptyMsg
		}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("convo: marshal request: %w", err)
	}

	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("convo: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("convo: chat request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("convo: read reply: %w", err)
	}

	var reply ChatResponse
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("convo: decode reply (HTTP %d): %w", resp.StatusCode, err)
	}
	if reply.Status == "" {
		return nil, fmt.Errorf("convo: reply missing status (HTTP %d)", resp.StatusCode)
	}

	log.Debug("chat reply",
		"status", reply.Status,
		"has_route", reply.RouteData != nil,
		"has_audio", reply.HasAudio(),
		"latency_ms", time.Since(start).Milliseconds(),
	)
	return &reply, nil
}
