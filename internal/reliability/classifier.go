package reliability

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Kind names a failure class in the interview pipeline.
type Kind string

const (
	KindDevice        Kind = "device"
	KindTranscription Kind = "transcription"
	KindAgent         Kind = "agent"
	KindSynthesis     Kind = "synthesis"
	KindRateLimit     Kind = "rate_limit"
	KindValidation    Kind = "validation"
)

// Error carries a classified failure. Rate-limited outcomes additionally
// carry the remaining-quota and reset-time context reported by the service.
type Error struct {
	Kind      Kind
	Code      string
	Detail    string
	Retryable bool
	Remaining int
	ResetAt   time.Time
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Code, e.Detail)
}

// New builds a classified error.
func New(kind Kind, code, detail string) *Error {
	return &Error{Kind: kind, Code: code, Detail: detail}
}

// RateLimited builds the distinguished over-quota outcome for a service.
func RateLimited(source string, remaining int, resetAt time.Time) *Error {
	detail := "request rate ceiling exceeded"
	if !resetAt.IsZero() {
		detail = fmt.Sprintf("request rate ceiling exceeded, resets at %s", resetAt.UTC().Format(time.RFC3339))
	}
	return &Error{
		Kind:      KindRateLimit,
		Code:      source + "_rate_limited",
		Detail:    detail,
		Retryable: true,
		Remaining: remaining,
		ResetAt:   resetAt,
	}
}

// RateLimitedFromResponse reads the quota headers of a 429 response.
func RateLimitedFromResponse(source string, res *http.Response) *Error {
	remaining := 0
	if v := strings.TrimSpace(res.Header.Get("X-RateLimit-Remaining")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			remaining = n
		}
	}
	var resetAt time.Time
	if v := strings.TrimSpace(res.Header.Get("X-RateLimit-Reset")); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			resetAt = t
		}
	}
	if resetAt.IsZero() {
		if v := strings.TrimSpace(res.Header.Get("Retry-After")); v != "" {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				resetAt = time.Now().UTC().Add(time.Duration(secs) * time.Second)
			}
		}
	}
	return RateLimited(source, remaining, resetAt)
}

// KindOf returns the classification of err, or "" when unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsRateLimited reports whether err is an over-quota outcome and returns it.
func IsRateLimited(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindRateLimit {
		return e, true
	}
	return nil, false
}

// IsRetryableHTTPStatus classifies retryable HTTP status codes.
func IsRetryableHTTPStatus(code int) bool {
	switch code {
	case 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
