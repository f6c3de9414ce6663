package llm

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// absoluteThreshold separates delta-seconds from absolute timestamps in a
// numeric Retry-After value. Anything at or above it is an epoch value and is
// reported exactly as received.
const absoluteThreshold = 1_000_000_000

type sinkKey struct{}

type retryAfterSink struct {
	mu sync.Mutex
	at int64
}

func (s *retryAfterSink) set(v int64) {
	s.mu.Lock()
	s.at = v
	s.mu.Unlock()
}

func (s *retryAfterSink) get() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.at
}

// WithRetryAfterCapture returns a context that records the Retry-After hint
// of any 429 response seen by RetryAfterTransport, and a getter for it. The
// getter returns zero when no hint was seen.
func WithRetryAfterCapture(ctx context.Context) (context.Context, func() int64) {
	s := &retryAfterSink{}
	return context.WithValue(ctx, sinkKey{}, s), s.get
}

// RecordRetryAfter stores a hint in ctx's capture, if any. Clients that do
// not go through RetryAfterTransport can use it to report their own hints.
func RecordRetryAfter(ctx context.Context, v int64) {
	if s, ok := ctx.Value(sinkKey{}).(*retryAfterSink); ok && v > 0 {
		s.set(v)
	}
}

// RetryAfterTransport reports Retry-After headers of 429 responses to the
// capture installed by WithRetryAfterCapture.
type RetryAfterTransport struct {
	Base http.RoundTripper
	// Now defaults to time.Now.
	Now func() time.Time
}

func (t *RetryAfterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	resp, err := base.RoundTrip(req)
	if err != nil || resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return resp, err
	}
	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	RecordRetryAfter(req.Context(), ParseRetryAfter(resp.Header.Get("Retry-After"), now()))
	return resp, err
}

// ParseRetryAfter converts a Retry-After header to a unix timestamp in
// seconds. Delta-seconds and HTTP dates are resolved against now; numeric
// values that already look like epoch timestamps are returned untouched.
func ParseRetryAfter(v string, now time.Time) int64 {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n >= absoluteThreshold {
			return n
		}
		if n < 0 {
			return 0
		}
		return now.Add(time.Duration(n) * time.Second).Unix()
	}
	if at, err := http.ParseTime(v); err == nil {
		return at.Unix()
	}
	return 0
}
