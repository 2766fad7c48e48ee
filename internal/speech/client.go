package speech

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

// Voice is one selectable synthesis voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Voices is the enumerated set accepted by the synthesizer.
var Voices = []Voice{
	{ID: "alloy", Name: "Alloy"},
	{ID: "echo", Name: "Echo"},
	{ID: "fable", Name: "Fable"},
	{ID: "onyx", Name: "Onyx"},
	{ID: "nova", Name: "Nova"},
	{ID: "shimmer", Name: "Shimmer"},
}

const (
	SpeedMin = 0.25
	SpeedMax = 4.0
)

// ValidVoice reports whether id is in the enumerated voice set.
func ValidVoice(id string) bool {
	for _, v := range Voices {
		if v.ID == id {
			return true
		}
	}
	return false
}

// ValidateOutput checks voice and speed against the supported ranges.
func ValidateOutput(voice string, speed float64) error {
	if !ValidVoice(voice) {
		return reliability.New(reliability.KindValidation, "invalid_voice",
			fmt.Sprintf("voice %q is not in the supported set", voice))
	}
	if speed < SpeedMin || speed > SpeedMax {
		return reliability.New(reliability.KindValidation, "invalid_speed",
			fmt.Sprintf("speed %.2f outside [%.2f, %.2f]", speed, SpeedMin, SpeedMax))
	}
	return nil
}

// ValidateRequest rejects malformed synthesis parameters before any
// network I/O.
func ValidateRequest(text, voice string, speed float64) error {
	if strings.TrimSpace(text) == "" {
		return reliability.New(reliability.KindValidation, "empty_text", "no text to synthesize")
	}
	return ValidateOutput(voice, speed)
}

// Client converts text into playable audio.
type Client interface {
	Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error)
}

type HTTPConfig struct {
	URL    string
	APIKey string
	Model  string
}

// HTTPClient talks to an OpenAI-style speech endpoint returning raw audio
// bytes.
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "https://api.openai.com/v1/audio/speech"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "tts-1"
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) Synthesize(ctx context.Context, text, voice string, speed float64) ([]byte, error) {
	if err := ValidateRequest(text, voice, speed); err != nil {
		return nil, err
	}

	payload, err := json.Marshal(map[string]any{
		"model":           c.cfg.Model,
		"input":           text,
		"voice":           voice,
		"speed":           speed,
		"response_format": "mp3",
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, &reliability.Error{
			Kind:   reliability.KindSynthesis,
			Code:   "synthesis_unreachable",
			Detail: err.Error(),
		}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return nil, reliability.RateLimitedFromResponse("synthesis", res)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return nil, &reliability.Error{
			Kind:      reliability.KindSynthesis,
			Code:      fmt.Sprintf("synthesis_http_%d", res.StatusCode),
			Detail:    strings.TrimSpace(string(detail)),
			Retryable: reliability.IsRetryableHTTPStatus(res.StatusCode),
		}
	}

	audio, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &reliability.Error{
			Kind:   reliability.KindSynthesis,
			Code:   "synthesis_read_failed",
			Detail: err.Error(),
		}
	}
	return audio, nil
}
