// Package plex implements account linking against the plex.tv PIN endpoints.
// Plex does not speak the OAuth device grant, but the PIN flow maps onto the
// same shape: request a PIN, show the user a code, poll until the PIN carries
// an auth token.
package plex

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/util"
)

const (
	// DefaultBaseURL is the public plex.tv API root.
	DefaultBaseURL = "https://plex.tv"

	// linkURL is where the user enters the PIN code.
	linkURL = "https://plex.tv/link"

	// pinLifetime mirrors the validity window plex.tv grants a fresh PIN.
	pinLifetime = 15 * time.Minute

	pollInterval = 5 * time.Second
)

// Auth links Plex accounts through the PIN flow. It implements
// deviceflow.Provider.
type Auth struct {
	baseURL          string
	product          string
	clientIdentifier string
	httpClient       *http.Client
}

// NewAuth creates a Plex linking client from the application configuration.
func NewAuth(cfg *config.Config) *Auth {
	baseURL := strings.TrimRight(cfg.Plex.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Auth{
		baseURL:          baseURL,
		product:          cfg.Plex.Product,
		clientIdentifier: cfg.Plex.ClientIdentifier,
		httpClient:       util.SetProxy(cfg, &http.Client{Timeout: 30 * time.Second}),
	}
}

// Name implements deviceflow.Provider.
func (a *Auth) Name() string { return "plex" }

// RequestDeviceCode creates a new PIN. The PIN id doubles as the device code
// for subsequent polls.
func (a *Auth) RequestDeviceCode(ctx context.Context) (*deviceflow.DeviceCode, error) {
	form := url.Values{"strong": {"true"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/api/v2/pins", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	a.setPlexHeaders(req)

	body, status, err := a.do(req)
	if err != nil {
		return nil, fmt.Errorf("plex: pin request failed: %w", err)
	}
	if status != http.StatusOK && status != http.StatusCreated {
		return nil, fmt.Errorf("plex: pin request failed: %d %s", status, strings.TrimSpace(string(body)))
	}

	pinID := gjson.GetBytes(body, "id").Int()
	code := gjson.GetBytes(body, "code").String()
	if pinID == 0 || code == "" {
		return nil, fmt.Errorf("plex: pin response missing id or code")
	}

	return &deviceflow.DeviceCode{
		DeviceCode:      fmt.Sprintf("%d", pinID),
		UserCode:        code,
		VerificationURL: linkURL,
		Interval:        pollInterval,
		ExpiresAt:       time.Now().Add(pinLifetime),
	}, nil
}

// ExchangeDeviceCode checks whether the PIN has been claimed. An empty
// authToken means the user has not entered the code yet.
func (a *Auth) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*deviceflow.Credential, deviceflow.Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/v2/pins/"+deviceCode, nil)
	if err != nil {
		return nil, deviceflow.OutcomeTransient, err
	}
	a.setPlexHeaders(req)

	body, status, err := a.do(req)
	if err != nil {
		return nil, deviceflow.OutcomeTransient, fmt.Errorf("plex: pin poll failed: %w", err)
	}

	switch {
	case status == http.StatusOK:
		token := gjson.GetBytes(body, "authToken").String()
		if token == "" {
			return nil, deviceflow.OutcomePending, nil
		}
		// Plex auth tokens do not expire on their own.
		return &deviceflow.Credential{AccessToken: token}, deviceflow.OutcomeAuthorized, nil
	case status == http.StatusNotFound:
		return nil, deviceflow.OutcomeExpired, deviceflow.ErrSessionExpired
	case status >= http.StatusInternalServerError:
		return nil, deviceflow.OutcomeTransient, fmt.Errorf("plex: pin poll failed: %d", status)
	default:
		return nil, deviceflow.OutcomeDenied, fmt.Errorf("plex: pin poll failed: %d %s", status, strings.TrimSpace(string(body)))
	}
}

func (a *Auth) setPlexHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Product", a.product)
	req.Header.Set("X-Plex-Client-Identifier", a.clientIdentifier)
}

func (a *Auth) do(req *http.Request) ([]byte, int, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
