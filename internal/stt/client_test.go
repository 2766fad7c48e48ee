package stt

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/suyashmankar/interview-studio/internal/reliability"
)

func TestTranscribeUploadsMultipart(t *testing.T) {
	var gotModel, gotFilename string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		gotModel = r.FormValue("model")
		if files := r.MultipartForm.File["file"]; len(files) == 1 {
			gotFilename = files[0].Filename
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"What is your biggest strength?","confidence":0.92}`))
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	res, err := c.Transcribe(context.Background(), []byte("audio-bytes"), "audio/webm;codecs=opus")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Text != "What is your biggest strength?" || res.Confidence != 0.92 {
		t.Fatalf("Result = %+v", res)
	}
	if gotModel != "whisper-1" {
		t.Fatalf("model field = %q", gotModel)
	}
	if gotFilename != "recording.webm" {
		t.Fatalf("filename = %q", gotFilename)
	}
}

func TestTranscribeSizeCapBeforeNetwork(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	oversized := make([]byte, MaxUploadBytes+1)
	_, err := c.Transcribe(context.Background(), oversized, "audio/webm")
	if reliability.KindOf(err) != reliability.KindValidation {
		t.Fatalf("error kind = %q, want validation", reliability.KindOf(err))
	}
	if calls != 0 {
		t.Fatalf("oversized blob must be rejected before any network call, saw %d calls", calls)
	}
}

func TestTranscribeRateLimited(t *testing.T) {
	resetAt := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", resetAt.Format(time.RFC3339))
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	_, err := c.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	rl, ok := reliability.IsRateLimited(err)
	if !ok {
		t.Fatalf("error = %v, want rate-limited", err)
	}
	if !rl.ResetAt.Equal(resetAt) {
		t.Fatalf("ResetAt = %v, want %v", rl.ResetAt, resetAt)
	}
}

func TestTranscribeServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	_, err := c.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	if reliability.KindOf(err) != reliability.KindTranscription {
		t.Fatalf("error kind = %q, want transcription", reliability.KindOf(err))
	}
}

func TestTranscribeConfidenceHeuristic(t *testing.T) {
	body := []byte(`{"text":"hm"}`)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	res, err := c.Transcribe(context.Background(), []byte("audio"), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Confidence != 0.5 {
		t.Fatalf("degenerate transcript confidence = %v, want 0.5", res.Confidence)
	}

	body = []byte(`{"text":"a full sentence of speech"}`)
	res, err = c.Transcribe(context.Background(), bytes.Repeat([]byte("a"), 10), "audio/webm")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if res.Confidence != 0.95 {
		t.Fatalf("normal transcript confidence = %v, want 0.95", res.Confidence)
	}
}

func TestTranscribeEmptyAudioRejected(t *testing.T) {
	c := NewHTTPClient(HTTPConfig{URL: "http://127.0.0.1:0"})
	_, err := c.Transcribe(context.Background(), nil, "audio/webm")
	if reliability.KindOf(err) != reliability.KindValidation {
		t.Fatalf("error kind = %q, want validation", reliability.KindOf(err))
	}
}
