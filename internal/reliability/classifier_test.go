package reliability

import (
	"fmt"
	"net/http"
	"testing"
	"time"
)

func TestKindOf(t *testing.T) {
	err := New(KindAgent, "agent_http_error", "status 502")
	if got := KindOf(err); got != KindAgent {
		t.Fatalf("KindOf() = %q, want %q", got, KindAgent)
	}
	wrapped := fmt.Errorf("submit failed: %w", err)
	if got := KindOf(wrapped); got != KindAgent {
		t.Fatalf("KindOf(wrapped) = %q, want %q", got, KindAgent)
	}
	if got := KindOf(fmt.Errorf("plain")); got != "" {
		t.Fatalf("KindOf(plain) = %q, want empty", got)
	}
}

func TestRateLimitedFromResponse(t *testing.T) {
	resetAt := time.Now().UTC().Add(30 * time.Second).Truncate(time.Second)
	res := &http.Response{Header: http.Header{}}
	res.Header.Set("X-RateLimit-Remaining", "0")
	res.Header.Set("X-RateLimit-Reset", resetAt.Format(time.RFC3339))

	err := RateLimitedFromResponse("transcription", res)
	if err.Kind != KindRateLimit {
		t.Fatalf("Kind = %q, want %q", err.Kind, KindRateLimit)
	}
	if err.Code != "transcription_rate_limited" {
		t.Fatalf("Code = %q", err.Code)
	}
	if !err.ResetAt.Equal(resetAt) {
		t.Fatalf("ResetAt = %v, want %v", err.ResetAt, resetAt)
	}
	if !err.Retryable {
		t.Fatalf("rate limited outcomes must be retryable")
	}

	got, ok := IsRateLimited(fmt.Errorf("wrapped: %w", err))
	if !ok || got.Remaining != 0 {
		t.Fatalf("IsRateLimited() = %+v, %v", got, ok)
	}
}

func TestRateLimitedRetryAfterFallback(t *testing.T) {
	res := &http.Response{Header: http.Header{}}
	res.Header.Set("Retry-After", "15")

	err := RateLimitedFromResponse("agent", res)
	if err.ResetAt.IsZero() {
		t.Fatalf("ResetAt should be derived from Retry-After")
	}
	if until := time.Until(err.ResetAt); until <= 0 || until > 16*time.Second {
		t.Fatalf("ResetAt %v not within Retry-After window", err.ResetAt)
	}
}

func TestIsRetryableHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should be retryable", code)
		}
	}
	for _, code := range []int{200, 400, 401, 404, 422} {
		if IsRetryableHTTPStatus(code) {
			t.Fatalf("status %d should not be retryable", code)
		}
	}
}
