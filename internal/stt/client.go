package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/suyashmankar/interview-studio/internal/reliability"
)

// MaxUploadBytes caps the audio blob size accepted for transcription.
const MaxUploadBytes = 15 << 20

// Result is a finished transcription with its confidence indicator.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Client converts an audio blob into text plus a confidence score.
type Client interface {
	Transcribe(ctx context.Context, audio []byte, encoding string) (Result, error)
}

type HTTPConfig struct {
	URL    string
	APIKey string
	Model  string
}

// HTTPClient uploads recordings to a Whisper-compatible transcription
// endpoint as multipart form data.
type HTTPClient struct {
	cfg    HTTPConfig
	client *http.Client
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if strings.TrimSpace(cfg.URL) == "" {
		cfg.URL = "https://api.openai.com/v1/audio/transcriptions"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = "whisper-1"
	}
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *HTTPClient) Transcribe(ctx context.Context, audio []byte, encoding string) (Result, error) {
	if len(audio) == 0 {
		return Result{}, reliability.New(reliability.KindValidation, "empty_audio", "no audio data to transcribe")
	}
	if len(audio) > MaxUploadBytes {
		return Result{}, reliability.New(reliability.KindValidation, "audio_too_large",
			fmt.Sprintf("audio blob %d bytes exceeds %dMB limit", len(audio), MaxUploadBytes>>20))
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", uploadFilename(encoding))
	if err != nil {
		return Result{}, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(audio); err != nil {
		return Result{}, fmt.Errorf("write audio part: %w", err)
	}
	if err := mw.WriteField("model", c.cfg.Model); err != nil {
		return Result{}, fmt.Errorf("write model field: %w", err)
	}
	if err := mw.WriteField("response_format", "verbose_json"); err != nil {
		return Result{}, fmt.Errorf("write response_format field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return Result{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, &body)
	if err != nil {
		return Result{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	res, err := c.client.Do(req)
	if err != nil {
		return Result{}, &reliability.Error{
			Kind:   reliability.KindTranscription,
			Code:   "transcription_unreachable",
			Detail: err.Error(),
		}
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusTooManyRequests {
		return Result{}, reliability.RateLimitedFromResponse("transcription", res)
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Result{}, &reliability.Error{
			Kind:      reliability.KindTranscription,
			Code:      fmt.Sprintf("transcription_http_%d", res.StatusCode),
			Detail:    strings.TrimSpace(string(detail)),
			Retryable: reliability.IsRetryableHTTPStatus(res.StatusCode),
		}
	}

	var payload struct {
		Text       string  `json:"text"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Result{}, &reliability.Error{
			Kind:   reliability.KindTranscription,
			Code:   "transcription_bad_response",
			Detail: err.Error(),
		}
	}

	out := Result{Text: payload.Text, Confidence: payload.Confidence}
	if out.Confidence == 0 {
		out.Confidence = estimateConfidence(out.Text)
	}
	return out, nil
}

// estimateConfidence derives a confidence score when the provider omits
// one: degenerate transcripts score low, everything else normal.
func estimateConfidence(text string) float64 {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < 3 {
		return 0.5
	}
	return 0.95
}

func uploadFilename(encoding string) string {
	switch {
	case strings.HasPrefix(encoding, "audio/ogg"):
		return "recording.ogg"
	case strings.HasPrefix(encoding, "audio/wav"):
		return "recording.wav"
	case strings.HasPrefix(encoding, "audio/mp4"):
		return "recording.m4a"
	default:
		return "recording.webm"
	}
}
