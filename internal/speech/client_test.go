package speech

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/suyashmankar/interview-studio/internal/reliability"
)

func TestSynthesizeReturnsAudioBytes(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write([]byte("mp3-bytes"))
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	audio, err := c.Synthesize(context.Background(), "Great question...", "onyx", 1.0)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if string(audio) != "mp3-bytes" {
		t.Fatalf("audio = %q", audio)
	}
	if got["voice"] != "onyx" || got["speed"] != 1.0 || got["model"] != "tts-1" {
		t.Fatalf("request = %v", got)
	}
}

func TestSynthesizeSpeedRejectedBeforeNetwork(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	_, err := c.Synthesize(context.Background(), "hello", "onyx", 5.0)
	if reliability.KindOf(err) != reliability.KindValidation {
		t.Fatalf("error kind = %q, want validation", reliability.KindOf(err))
	}
	if calls != 0 {
		t.Fatalf("out-of-range speed must not reach the remote service, saw %d calls", calls)
	}
}

func TestValidateRequest(t *testing.T) {
	if err := ValidateRequest("hi", "nova", 0.25); err != nil {
		t.Fatalf("lower speed bound rejected: %v", err)
	}
	if err := ValidateRequest("hi", "nova", 4.0); err != nil {
		t.Fatalf("upper speed bound rejected: %v", err)
	}
	if err := ValidateRequest("hi", "bogus", 1.0); err == nil {
		t.Fatalf("unknown voice accepted")
	}
	if err := ValidateRequest("   ", "nova", 1.0); err == nil {
		t.Fatalf("blank text accepted")
	}
	if err := ValidateRequest("hi", "nova", 0.2); err == nil {
		t.Fatalf("speed below minimum accepted")
	}
}

func TestSynthesizeServerErrorClassified(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	c := NewHTTPClient(HTTPConfig{URL: ts.URL})
	_, err := c.Synthesize(context.Background(), "hello", "alloy", 1.0)
	if reliability.KindOf(err) != reliability.KindSynthesis {
		t.Fatalf("error kind = %q, want synthesis", reliability.KindOf(err))
	}
}

func TestVoiceSetSize(t *testing.T) {
	if len(Voices) != 6 {
		t.Fatalf("len(Voices) = %d, want 6", len(Voices))
	}
	for _, v := range Voices {
		if !ValidVoice(v.ID) {
			t.Fatalf("voice %q not valid in its own set", v.ID)
		}
	}
}
