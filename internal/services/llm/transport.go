package llm

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

type retryHintKey struct{}

// retryHint carries the server's Retry-After back out of the transport for
// a single attempt.
type retryHint struct {
	after time.Duration
}

// appTransport adds the OpenRouter app headers and records Retry-After on
// error responses.
type appTransport struct {
	base    http.RoundTripper
	referer string
	title   string
}

func (t *appTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.referer != "" || t.title != "" {
		req = req.Clone(req.Context())
		if t.referer != "" {
			req.Header.Set("HTTP-Referer", t.referer)
			req.Header.Set("Referer", t.referer)
		}
		if t.title != "" {
			req.Header.Set("X-Title", t.title)
		}
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp.StatusCode < http.StatusBadRequest {
		return resp, err
	}
	if hint, ok := req.Context().Value(retryHintKey{}).(*retryHint); ok {
		hint.after, _ = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return resp, nil
}

// parseRetryAfter accepts delta-seconds or an HTTP date.
func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	when, err := http.ParseTime(value)
	if err != nil {
		return 0, false
	}
	if delay := time.Until(when); delay > 0 {
		return delay, true
	}
	return 0, false
}
