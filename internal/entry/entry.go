// Package entry implements the staff entry gate: an access check that
// yields a scanner, and ticket verification through that scanner.
package entry

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/iliyamo/venue-box-office/internal/model"
)

var (
	ErrAccessDenied = errors.New("entry verification access denied")
	ErrScanDropped  = errors.New("verification already in progress")
	ErrEmptyScan    = errors.New("empty scan payload")
)

// Verifier is the booking service side of entry verification.
type Verifier interface {
	CheckStaffAccess(ctx context.Context, identity string) (bool, error)
	VerifyEntry(ctx context.Context, identity, payload string) (model.VerificationResult, error)
}

// Navigator sends the operator to the login page.
type Navigator interface {
	ToLogin()
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func()

func (f NavigatorFunc) ToLogin() { f() }

// Outcome is the result of one verification.  A denied ticket is an
// outcome, not an error.
type Outcome struct {
	Granted bool                     `json:"granted"`
	Reason  string                   `json:"reason,omitempty"`
	Result  model.VerificationResult `json:"result"`
}

type Gate struct {
	svc Verifier
	log *zap.Logger
}

func NewGate(svc Verifier, log *zap.Logger) *Gate {
	if log == nil {
		log = zap.NewNop()
	}
	return &Gate{svc: svc, log: log}
}

// Open checks that identity may verify entries and returns a scanner for
// it.  When access is refused, or cannot be checked, nav is sent to the
// login page once and no scanner is returned.
func (g *Gate) Open(ctx context.Context, identity string, nav Navigator) (*Scanner, error) {
	ok, err := g.svc.CheckStaffAccess(ctx, identity)
	if err != nil || !ok {
		g.log.Warn("entry access denied", zap.String("identity", identity), zap.Error(err))
		if nav != nil {
			nav.ToLogin()
		}
		if err != nil {
			return nil, errors.Join(ErrAccessDenied, err)
		}
		return nil, ErrAccessDenied
	}
	return &Scanner{svc: g.svc, identity: identity, log: g.log.With(zap.String("identity", identity))}, nil
}

// Scanner verifies scanned ticket payloads for one staff identity.  It
// keeps no state between scans apart from the in-flight flag.
type Scanner struct {
	svc      Verifier
	identity string
	log      *zap.Logger
	busy     atomic.Bool
}

func (s *Scanner) Identity() string { return s.identity }

// Verify forwards raw to the booking service unchanged.  A scan arriving
// while another is being verified is dropped with ErrScanDropped.
func (s *Scanner) Verify(ctx context.Context, raw string) (Outcome, error) {
	if strings.TrimSpace(raw) == "" {
		return Outcome{}, ErrEmptyScan
	}
	if !s.busy.CompareAndSwap(false, true) {
		return Outcome{}, ErrScanDropped
	}
	defer s.busy.Store(false)

	res, err := s.svc.VerifyEntry(ctx, s.identity, raw)
	if err != nil {
		s.log.Warn("entry verification failed", zap.Error(err))
		return Outcome{}, err
	}
	out := Outcome{Granted: res.Success, Result: res}
	if !res.Success {
		out.Reason = res.Message
		if out.Reason == "" {
			out.Reason = "ticket not valid for entry"
		}
	}
	s.log.Info("entry verified",
		zap.Bool("granted", out.Granted),
		zap.String("event", res.EventName),
		zap.Strings("seats", res.Seats))
	return out, nil
}

// Registry keeps one scanner per staff identity.
type Registry struct {
	gate *Gate

	mu       sync.Mutex
	scanners map[string]*Scanner
}

func NewRegistry(gate *Gate) *Registry {
	return &Registry{gate: gate, scanners: map[string]*Scanner{}}
}

// Open returns the identity's scanner, running the access check the first
// time.  Denials are not cached.
func (r *Registry) Open(ctx context.Context, identity string, nav Navigator) (*Scanner, error) {
	r.mu.Lock()
	sc, ok := r.scanners[identity]
	r.mu.Unlock()
	if ok {
		return sc, nil
	}
	sc, err := r.gate.Open(ctx, identity, nav)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.scanners[identity]; ok {
		return cur, nil
	}
	r.scanners[identity] = sc
	return sc, nil
}

// Get returns the scanner opened for identity, if any.
func (r *Registry) Get(identity string) (*Scanner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sc, ok := r.scanners[identity]
	return sc, ok
}

// Forget drops the identity's scanner; the next Open checks access again.
func (r *Registry) Forget(identity string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.scanners, identity)
}
