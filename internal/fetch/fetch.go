// Package fetch retrieves recipe pages over HTTP with a hard timeout, an
// optional on-disk cache and a guard against private network targets.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/hyperifyio/gorecipe/internal/cache"
)

// DefaultUserAgent mimics a desktop browser; many recipe sites refuse
// unknown agents.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/115.0.0.0 Safari/537.36"

// DefaultMaxBodyBytes caps how much of a page is read.
const DefaultMaxBodyBytes = 5 << 20

var (
	// ErrInvalidURL reports a URL that is malformed or not http(s).
	ErrInvalidURL = errors.New("invalid URL")
	// ErrBlockedHost reports a loopback, private or link-local target.
	ErrBlockedHost = errors.New("host not allowed")
	// ErrUnsupportedContent reports a response that is not an HTML document.
	ErrUnsupportedContent = errors.New("unsupported content type")
)

// Client wraps http.Client and provides timeouts and limited retry on transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Zero means one attempt.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for HTTP GET bodies and headers.
	Cache *cache.HTTPCache
	// If true, bypass cache entirely and fetch fresh (no conditional headers),
	// but still save the latest response to cache.
	BypassCache bool
	// AllowPrivateHosts disables the private network guard.
	AllowPrivateHosts bool
	// MaxBodyBytes caps the body size. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// RedirectMaxHops caps redirect following to avoid loops. Zero means default (5).
	RedirectMaxHops int
	// MaxConcurrent limits concurrent in-flight requests per client instance.
	// Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once

	httpOnce sync.Once
	http     *http.Client
}

// ValidateURL checks that raw is an absolute http(s) URL with a host.
func ValidateURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !isHTTPScheme(u) || u.Hostname() == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	return u, nil
}

// IsTimeout reports whether err came from a deadline rather than the remote end.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// getHTTPClient clones the configured client once, attaching the redirect
// policy and the private network guard.
func (c *Client) getHTTPClient() *http.Client {
	c.httpOnce.Do(func() {
		var base http.Client
		if c.HTTPClient != nil {
			base = *c.HTTPClient
		} else {
			base = http.Client{Timeout: c.PerRequestTimeout}
		}
		base.CheckRedirect = c.checkRedirectFunc()
		if !c.AllowPrivateHosts {
			base.Transport = guardedTransport(base.Transport)
		}
		c.http = &base
	})
	return c.http
}

// CloseIdleConnections drops pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.getHTTPClient().CloseIdleConnections()
}

// Get issues a GET with context, user-agent, and bounded retry for transient errors.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	if !c.AllowPrivateHosts && isLocalOrPrivateHost(u.Hostname()) {
		return nil, "", fmt.Errorf("%w: %s", ErrBlockedHost, u.Hostname())
	}
	target := u.String()
	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, target); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := max(c.MaxAttempts, 1)
	var lastErr error
	for i := 0; i < attempts; i++ {
		res, err := c.tryOnce(ctx, target, etag, lastMod)
		if err == nil {
			if c.Cache != nil && res.status == http.StatusOK {
				_ = c.Cache.Save(ctx, target, res.contentType, res.etag, res.lastModified, res.body)
			}
			if res.status == http.StatusNotModified && c.Cache != nil {
				if cached, err := c.Cache.LoadBody(ctx, target); err == nil {
					return cached, res.contentType, nil
				}
			}
			return res.body, res.contentType, nil
		}
		if !isTransient(err) || i == attempts-1 {
			return nil, "", err
		}
		lastErr = err
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-time.After(time.Duration(i+1) * 200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, "", lastErr
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

var errServer = errors.New("server error")

func (c *Client) tryOnce(ctx context.Context, target, etag, lastMod string) (response, error) {
	c.acquire()
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	switch {
	case resp.StatusCode >= 500:
		return out, fmt.Errorf("%w: %d", errServer, resp.StatusCode)
	case resp.StatusCode == http.StatusNotModified:
		return out, nil
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return out, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	ct, ok := htmlContentType(out.contentType, b)
	if !ok {
		return out, fmt.Errorf("%w: %s", ErrUnsupportedContent, ct)
	}
	out.contentType = ct
	out.body = b
	return out, nil
}

// htmlContentType accepts declared HTML types and sniffs the body when the
// server declares nothing or a generic type.
func htmlContentType(declared string, body []byte) (string, bool) {
	ct := strings.ToLower(strings.TrimSpace(declared))
	if isAllowedHTMLContentType(ct) {
		return declared, true
	}
	if ct == "" || strings.HasPrefix(ct, "text/plain") || strings.HasPrefix(ct, "application/octet-stream") {
		m := mimetype.Detect(body)
		if m.Is("text/html") || m.Is("application/xhtml+xml") {
			return m.String(), true
		}
		return m.String(), false
	}
	return declared, false
}

func isTransient(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errServer)
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	hops := c.RedirectMaxHops
	if hops <= 0 {
		hops = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= hops {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		if !c.AllowPrivateHosts && isLocalOrPrivateHost(req.URL.Hostname()) {
			return fmt.Errorf("%w: %s", ErrBlockedHost, req.URL.Hostname())
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
