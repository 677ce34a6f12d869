package deviceflow

import (
	"context"
	"errors"
	"sync"
)

// State is the lifecycle state of one device-authorization session.
type State int

const (
	StatePending State = iota
	StateAuthorized
	StateExpired
	StateFailed
)

// String returns the wire form of the state.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateAuthorized:
		return "authorized"
	case StateExpired:
		return "expired"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state admits no further transitions.
func (s State) Terminal() bool {
	return s != StatePending
}

var (
	// ErrAuthorizationDenied is set on sessions the user rejected.
	ErrAuthorizationDenied = errors.New("authorization denied by user")
	// ErrSessionExpired is set on sessions that passed their deadline.
	ErrSessionExpired = errors.New("device code expired")
)

// Session is one in-progress device-authorization attempt. It is created by
// Authorizer.Begin, mutated only by its own polling loop, and discarded once
// a terminal state is reached or its owner cancels it. Sessions are never
// shared between slots.
type Session struct {
	// ID uniquely identifies this attempt.
	ID string

	provider string
	code     *DeviceCode

	mu         sync.Mutex
	state      State
	err        error
	credential *Credential

	cancel context.CancelFunc
	done   chan struct{}
}

// Provider returns the provider name this session links.
func (s *Session) Provider() string { return s.provider }

// UserCode returns the short code the user enters on the provider's site.
func (s *Session) UserCode() string { return s.code.UserCode }

// VerificationURL returns where the user completes the authorization.
func (s *Session) VerificationURL() string { return s.code.VerificationURL }

// Code returns the device-code details backing this session.
func (s *Session) Code() *DeviceCode { return s.code }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure detail for terminal FAILED or EXPIRED sessions.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Credential returns the issued credential once the session is AUTHORIZED.
func (s *Session) Credential() *Credential {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.credential
}

// Done is closed when the polling loop has stopped, for whatever reason.
func (s *Session) Done() <-chan struct{} { return s.done }

// Cancel stops the polling loop. Safe to call multiple times, from any
// goroutine, and a no-op once the session is terminal. The session state is
// left untouched: cancellation is teardown, not an outcome.
func (s *Session) Cancel() {
	s.mu.Lock()
	terminal := s.state.Terminal()
	s.mu.Unlock()
	if terminal {
		return
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// finish records a terminal transition exactly once and releases the loop
// context. Later calls are ignored.
func (s *Session) finish(state State, cred *Credential, err error) bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = state
	s.credential = cred
	s.err = err
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	return true
}
