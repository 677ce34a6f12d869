// Package deviceflow drives OAuth 2.0 device-authorization grants against
// media providers. The engine is provider-agnostic: providers supply the
// device-code request and token-exchange calls, and the engine owns session
// state, the polling loop, expiry, and cancellation.
package deviceflow

import (
	"context"
	"time"

	"golang.org/x/oauth2"
)

// Outcome classifies one token-exchange attempt.
type Outcome int

const (
	// OutcomeAuthorized means the user approved and a credential was issued.
	OutcomeAuthorized Outcome = iota
	// OutcomePending means the provider has not yet seen an approval.
	OutcomePending
	// OutcomeSlowDown means the provider asked for a wider poll interval.
	OutcomeSlowDown
	// OutcomeDenied means the user rejected the request. Terminal.
	OutcomeDenied
	// OutcomeExpired means the provider reports the device code as dead. Terminal.
	OutcomeExpired
	// OutcomeTransient means the attempt failed for reasons unrelated to the
	// authorization itself (network errors, 5xx). Polling continues.
	OutcomeTransient
)

// DeviceCode is the provider's response to a device-authorization request.
type DeviceCode struct {
	// DeviceCode is the opaque server-issued code, never shown to the user.
	DeviceCode string
	// UserCode is the short code the user enters on the provider's site.
	UserCode string
	// VerificationURL is where the user completes the authorization.
	VerificationURL string
	// Interval is the minimum spacing between poll attempts.
	Interval time.Duration
	// ExpiresAt is the absolute deadline after which the code is invalid.
	ExpiresAt time.Time
}

// Credential is the durable result of a completed authorization.
type Credential struct {
	AccessToken  string
	RefreshToken string
	// ExpiresAt is zero for providers whose tokens do not expire.
	ExpiresAt time.Time
}

// Token bridges the credential into the oauth2 token type for callers that
// feed it to oauth2-aware HTTP clients.
func (c *Credential) Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.ExpiresAt,
	}
}

// Provider implements one media provider's device-authorization endpoints.
// The daemon holds the provider's client credentials; browsers only ever see
// the user code and verification URL.
type Provider interface {
	// Name identifies the provider ("trakt", "plex"). One linking slot exists
	// per name.
	Name() string

	// RequestDeviceCode initiates a new device-authorization attempt.
	RequestDeviceCode(ctx context.Context) (*DeviceCode, error)

	// ExchangeDeviceCode performs one token-exchange attempt. The returned
	// error carries detail for terminal and transient outcomes; it is nil for
	// OutcomeAuthorized and OutcomePending. Re-polling with the same device
	// code is always safe.
	ExchangeDeviceCode(ctx context.Context, deviceCode string) (*Credential, Outcome, error)
}
