// Package remote is the box office's client for the remote booking
// service.  The service exposes RPC-style methods at
// POST {base}/api/method/<name>; successful responses wrap their payload
// as {"message": ...}.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/iliyamo/venue-box-office/internal/logger"
)

const (
	methodCSRFToken        = "venue.csrf_token"
	methodListEvents       = "venue.list_events"
	methodGetEvent         = "venue.get_event"
	methodGetBookedSeats   = "venue.get_booked_seats"
	methodGetLockedSeats   = "venue.get_locked_seats"
	methodLockSeats        = "venue.lock_seats"
	methodReleaseSeatLocks = "venue.release_seat_locks"
	methodCreateBooking    = "venue.create_booking"
	methodGetBooking       = "venue.get_booking"
	methodCheckStaffAccess = "venue.check_staff_access"
	methodVerifyEntry      = "venue.verify_entry"

	csrfHeader    = "X-CSRF-Token"
	csrfErrorType = "CSRFTokenError"

	maxBodyBytes = 4 << 20
)

// Config holds the booking service endpoint and credentials.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Timeout   time.Duration
	// RatePerSecond caps outgoing calls for the whole process; zero
	// disables the cap.
	RatePerSecond float64
	Burst         int
}

func (c Config) methodURL(method string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/method/" + method
}

func (c Config) authorization() string {
	if c.APIKey == "" {
		return ""
	}
	return "token " + c.APIKey + ":" + c.APISecret
}

// NewHTTPClient returns the http.Client used for booking service calls.
func NewHTTPClient(cfg Config) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

// Client calls the booking service.  It is safe for concurrent use.
type Client struct {
	cfg     Config
	http    *http.Client
	csrf    TokenSource
	log     *zap.Logger
	limiter *rate.Limiter
}

// New returns a Client.  csrf supplies the token attached to every
// mutating call and is typically a *CSRFCache shared for the process.
func New(cfg Config, hc *http.Client, csrf TokenSource, log *zap.Logger) *Client {
	if hc == nil {
		hc = NewHTTPClient(cfg)
	}
	c := &Client{cfg: cfg, http: hc, csrf: csrf, log: logger.OrNop(log).Named("remote")}
	if cfg.RatePerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), burst)
	}
	return c
}

type errorEnvelope struct {
	ExcType   string `json:"exc_type"`
	Exception string `json:"exception"`
}

func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	default:
		return ErrTransport
	}
}

// call performs one RPC.  Mutating calls carry the CSRF token; when the
// service rejects the token it is invalidated and the call is repeated once
// with a fresh one.  A read that is answered with a CSRF rejection is a
// transport fault.
func (c *Client) call(ctx context.Context, method string, mutating bool, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return &Error{Op: method, Err: ErrTransport, Msg: err.Error()}
	}
	err = c.do(ctx, method, mutating, body, out)
	var csrfErr *csrfRejected
	if !errors.As(err, &csrfErr) {
		return err
	}
	if !mutating {
		return &Error{Op: method, Status: http.StatusForbidden, Err: ErrTransport, Msg: "csrf token demanded by read call"}
	}
	c.log.Info("csrf token rejected, refreshing", zap.String("method", method))
	c.csrf.Invalidate()
	err = c.do(ctx, method, mutating, body, out)
	if errors.As(err, &csrfErr) {
		return &Error{Op: method, Status: http.StatusForbidden, Err: ErrUnauthorized, Msg: "csrf token rejected"}
	}
	return err
}

type csrfRejected struct{ op string }

func (e *csrfRejected) Error() string { return e.op + ": csrf token rejected" }

func (c *Client) do(ctx context.Context, method string, mutating bool, body []byte, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return &Error{Op: method, Err: ErrTransport, Msg: err.Error()}
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.methodURL(method), bytes.NewReader(body))
	if err != nil {
		return &Error{Op: method, Err: ErrTransport, Msg: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if auth := c.cfg.authorization(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if mutating {
		if c.csrf == nil {
			return &Error{Op: method, Err: ErrTransport, Msg: "no csrf token source"}
		}
		tok, err := c.csrf.Token(ctx)
		if err != nil {
			var re *Error
			if errors.As(err, &re) {
				return &Error{Op: method, Status: re.Status, Err: ErrTransport, Msg: "csrf token unavailable"}
			}
			return &Error{Op: method, Err: ErrTransport, Msg: "csrf token unavailable"}
		}
		req.Header.Set(csrfHeader, tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("booking service call failed", zap.String("method", method), zap.Error(err))
		return &Error{Op: method, Err: ErrTransport, Msg: err.Error()}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Op: method, Status: resp.StatusCode, Err: ErrTransport, Msg: err.Error()}
	}
	c.log.Debug("booking service call",
		zap.String("method", method),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var env errorEnvelope
		_ = json.Unmarshal(raw, &env)
		if resp.StatusCode == http.StatusForbidden && env.ExcType == csrfErrorType {
			return &csrfRejected{op: method}
		}
		return &Error{Op: method, Status: resp.StatusCode, Err: statusError(resp.StatusCode), Msg: env.Exception}
	}

	var env struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &env); err != nil || len(env.Message) == 0 {
		return &Error{Op: method, Status: resp.StatusCode, Err: ErrTransport, Msg: "malformed response"}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Message, out); err != nil {
		return &Error{Op: method, Status: resp.StatusCode, Err: ErrTransport, Msg: "malformed response"}
	}
	return nil
}
