package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// TokenSource supplies the request-forgery token attached to mutating
// calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// FetchFunc retrieves a fresh token from the booking service.
type FetchFunc func(ctx context.Context) (string, error)

// CSRFCache owns the cached CSRF token.  The token is fetched on first use,
// reused until its TTL elapses or Invalidate is called, and fetched again
// on the next call.  Concurrent callers share a single fetch.
type CSRFCache struct {
	fetch FetchFunc
	ttl   time.Duration
	now   func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewCSRFCache returns a cache backed by fetch.  A non-positive ttl keeps
// the token until it is invalidated.
func NewCSRFCache(fetch FetchFunc, ttl time.Duration) *CSRFCache {
	return &CSRFCache{fetch: fetch, ttl: ttl, now: time.Now}
}

// Token returns the cached token, fetching a new one when none is cached or
// the cached one expired.
func (c *CSRFCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && (c.ttl <= 0 || c.now().Before(c.expires)) {
		return c.token, nil
	}
	tok, err := c.fetch(ctx)
	if err != nil {
		return "", err
	}
	if tok == "" {
		return "", fmt.Errorf("csrf token: %w: empty token", ErrTransport)
	}
	c.token = tok
	c.expires = c.now().Add(c.ttl)
	return tok, nil
}

// Invalidate drops the cached token.
func (c *CSRFCache) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}

// CSRFFetcher returns a FetchFunc that reads the token from the booking
// service's csrf_token method using the service credentials in cfg.
func CSRFFetcher(hc *http.Client, cfg Config) FetchFunc {
	return func(ctx context.Context) (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.methodURL(methodCSRFToken), nil)
		if err != nil {
			return "", &Error{Op: methodCSRFToken, Err: ErrTransport, Msg: err.Error()}
		}
		req.Header.Set("Accept", "application/json")
		if auth := cfg.authorization(); auth != "" {
			req.Header.Set("Authorization", auth)
		}
		resp, err := hc.Do(req)
		if err != nil {
			return "", &Error{Op: methodCSRFToken, Err: ErrTransport, Msg: err.Error()}
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return "", &Error{Op: methodCSRFToken, Status: resp.StatusCode, Err: statusError(resp.StatusCode)}
		}
		var env struct {
			Message string `json:"message"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return "", &Error{Op: methodCSRFToken, Status: resp.StatusCode, Err: ErrTransport, Msg: "malformed response"}
		}
		return env.Message, nil
	}
}
