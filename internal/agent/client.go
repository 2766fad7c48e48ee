package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/suyashmankar/interview-studio/internal/reliability"
)

// Reply is the normalized agent response: the next interviewer utterance
// plus optional structured evaluation data.
type Reply struct {
	Text       string
	Structured map[string]any
}

// Client produces the next agent utterance for a running conversation.
type Client interface {
	Respond(ctx context.Context, participantID, sessionID, message string) (Reply, error)
}

type HTTPConfig struct {
	URL     string
	APIKey  string
	AgentID string
}

// HTTPClient talks to a Lyzr-style inference endpoint.
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "https://agent-prod.studio.lyzr.ai/v3/inference/chat/"
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) Respond(ctx context.Context, participantID, sessionID, message string) (Reply, error) {
	payload, err := json.Marshal(map[string]string{
		"user_id":    participantID,
		"agent_id":   c.cfg.AgentID,
		"session_id": sessionID,
		"message":    message,
	})
	if err != nil {
		return Reply{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return Reply{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return Reply{}, &reliability.Error{
			Kind:   reliability.KindAgent,
			Code:   "agent_unreachable",
			Detail: err.Error(),
		}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return Reply{}, reliability.RateLimitedFromResponse("agent", res)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Reply{}, &reliability.Error{
			Kind:      reliability.KindAgent,
			Code:      fmt.Sprintf("agent_http_%d", res.StatusCode),
			Detail:    strings.TrimSpace(string(detail)),
			Retryable: reliability.IsRetryableHTTPStatus(res.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Reply{}, fmt.Errorf("read response: %w", err)
	}
	return NormalizeReply(body)
}
