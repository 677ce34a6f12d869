package deviceflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

const (
	// maxPollInterval caps slow_down growth.
	maxPollInterval = 10 * time.Second
	// slowDownFactor widens the interval on each slow_down response.
	slowDownFactor = 1.5
)

// CompletionFunc receives the credential of a successfully authorized
// session. It runs on the polling goroutine; implementations persist the
// credential and return.
type CompletionFunc func(provider string, cred *Credential)

// Authorizer owns all in-flight device-authorization sessions, one slot per
// provider. Beginning a new session for a slot cancels the previous one
// first, so two pollers can never race to complete the same slot.
type Authorizer struct {
	mu         sync.Mutex
	active     map[string]*Session
	onComplete CompletionFunc

	// now is the clock used for expiry checks; replaced in tests.
	now func() time.Time
}

// NewAuthorizer creates an authorizer delivering credentials to onComplete.
func NewAuthorizer(onComplete CompletionFunc) *Authorizer {
	return &Authorizer{
		active:     make(map[string]*Session),
		onComplete: onComplete,
		now:        time.Now,
	}
}

// Begin requests a device code from the provider and starts the polling loop
// for it. The passed context bounds only the device-code request; the polling
// loop runs detached until it reaches a terminal state or the session is
// canceled.
func (a *Authorizer) Begin(ctx context.Context, provider Provider) (*Session, error) {
	code, err := provider.RequestDeviceCode(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin %s authorization: %w", provider.Name(), err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	session := &Session{
		ID:       uuid.NewString(),
		provider: provider.Name(),
		code:     code,
		state:    StatePending,
		cancel:   cancel,
		done:     make(chan struct{}),
	}

	a.mu.Lock()
	if prev := a.active[provider.Name()]; prev != nil {
		prev.Cancel()
	}
	a.active[provider.Name()] = session
	a.mu.Unlock()

	log.WithFields(log.Fields{
		"provider": provider.Name(),
		"session":  session.ID,
		"interval": code.Interval,
	}).Info("device authorization started")

	go a.run(runCtx, session, provider)
	return session, nil
}

// Session returns the current session for a provider slot, or nil.
func (a *Authorizer) Session(provider string) *Session {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active[provider]
}

// Clear detaches a session from its slot if it is still the occupant. Used
// once a terminal state has been reported to the owner.
func (a *Authorizer) Clear(provider string, sessionID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if current := a.active[provider]; current != nil && current.ID == sessionID {
		delete(a.active, provider)
	}
}

// Shutdown cancels every in-flight session. Safe to call more than once.
func (a *Authorizer) Shutdown() {
	a.mu.Lock()
	sessions := make([]*Session, 0, len(a.active))
	for _, s := range a.active {
		sessions = append(sessions, s)
	}
	a.mu.Unlock()

	for _, s := range sessions {
		s.Cancel()
	}
}

// run is the polling loop: one goroutine per session, so poll attempts are
// strictly sequential and at most one token-exchange request is in flight.
// The expiry deadline is checked locally before every attempt; once passed,
// the session expires without another network call.
func (a *Authorizer) run(ctx context.Context, s *Session, provider Provider) {
	defer close(s.done)

	interval := s.code.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	attempt := 0

	for {
		if !a.now().Before(s.code.ExpiresAt) {
			s.finish(StateExpired, nil, ErrSessionExpired)
			log.WithFields(log.Fields{"provider": s.provider, "session": s.ID}).Warn("device authorization expired")
			return
		}

		attempt++
		cred, outcome, err := provider.ExchangeDeviceCode(ctx, s.code.DeviceCode)
		switch outcome {
		case OutcomeAuthorized:
			if s.finish(StateAuthorized, cred, nil) && a.onComplete != nil {
				a.onComplete(s.provider, cred)
			}
			log.WithFields(log.Fields{"provider": s.provider, "session": s.ID}).Info("device authorization completed")
			return
		case OutcomePending:
			// Keep polling.
		case OutcomeSlowDown:
			interval = time.Duration(float64(interval) * slowDownFactor)
			if interval > maxPollInterval {
				interval = maxPollInterval
			}
			log.WithFields(log.Fields{"provider": s.provider, "interval": interval}).Debug("provider requested slower polling")
		case OutcomeDenied:
			if err == nil {
				err = ErrAuthorizationDenied
			}
			s.finish(StateFailed, nil, err)
			log.WithFields(log.Fields{"provider": s.provider, "session": s.ID}).Warnf("device authorization failed: %v", err)
			return
		case OutcomeExpired:
			if err == nil {
				err = ErrSessionExpired
			}
			s.finish(StateExpired, nil, err)
			return
		case OutcomeTransient:
			// Transient failures are indistinguishable from "still waiting";
			// the deadline bounds how long this can go on.
			log.WithFields(log.Fields{"provider": s.provider, "attempt": attempt}).Debugf("token poll failed transiently: %v", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}
	}
}
