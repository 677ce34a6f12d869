// Package trakt implements account linking against the Trakt OAuth 2.0
// device-authorization endpoints.
package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/util"
)

// DefaultBaseURL is the public Trakt API root.
const DefaultBaseURL = "https://api.trakt.tv"

// Auth links Trakt accounts through the device-authorization grant. It
// implements deviceflow.Provider.
type Auth struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewAuth creates a Trakt linking client from the application configuration.
func NewAuth(cfg *config.Config) *Auth {
	baseURL := strings.TrimRight(cfg.Trakt.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Auth{
		baseURL:      baseURL,
		clientID:     cfg.Trakt.ClientID,
		clientSecret: cfg.Trakt.ClientSecret,
		httpClient:   util.SetProxy(cfg, &http.Client{Timeout: 30 * time.Second}),
	}
}

// Name implements deviceflow.Provider.
func (a *Auth) Name() string { return "trakt" }

// RequestDeviceCode initiates the device-authorization flow.
func (a *Auth) RequestDeviceCode(ctx context.Context) (*deviceflow.DeviceCode, error) {
	payload, _ := json.Marshal(map[string]string{"client_id": a.clientID})
	body, status, err := a.post(ctx, "/oauth/device/code", payload)
	if err != nil {
		return nil, fmt.Errorf("trakt: device code request failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("trakt: device code request failed: %d %s", status, strings.TrimSpace(string(body)))
	}

	deviceCode := gjson.GetBytes(body, "device_code").String()
	if deviceCode == "" {
		return nil, fmt.Errorf("trakt: device_code not found in response")
	}

	interval := gjson.GetBytes(body, "interval").Int()
	if interval <= 0 {
		interval = 5
	}
	expiresIn := gjson.GetBytes(body, "expires_in").Int()
	if expiresIn <= 0 {
		expiresIn = 600
	}

	return &deviceflow.DeviceCode{
		DeviceCode:      deviceCode,
		UserCode:        gjson.GetBytes(body, "user_code").String(),
		VerificationURL: gjson.GetBytes(body, "verification_url").String(),
		Interval:        time.Duration(interval) * time.Second,
		ExpiresAt:       time.Now().Add(time.Duration(expiresIn) * time.Second),
	}, nil
}

// ExchangeDeviceCode performs one token poll. Trakt reports poll outcomes
// through HTTP status codes: 200 issued, 400 pending, 429 slow down, 404/409
// terminal failures, 410 expired, 418 denied.
func (a *Auth) ExchangeDeviceCode(ctx context.Context, deviceCode string) (*deviceflow.Credential, deviceflow.Outcome, error) {
	payload, _ := json.Marshal(map[string]string{
		"code":          deviceCode,
		"client_id":     a.clientID,
		"client_secret": a.clientSecret,
	})
	body, status, err := a.post(ctx, "/oauth/device/token", payload)
	if err != nil {
		return nil, deviceflow.OutcomeTransient, fmt.Errorf("trakt: token poll failed: %w", err)
	}

	switch status {
	case http.StatusOK:
		cred, errParse := parseToken(body)
		if errParse != nil {
			return nil, deviceflow.OutcomeDenied, errParse
		}
		return cred, deviceflow.OutcomeAuthorized, nil
	case http.StatusBadRequest:
		return nil, deviceflow.OutcomePending, nil
	case http.StatusTooManyRequests:
		return nil, deviceflow.OutcomeSlowDown, nil
	case http.StatusNotFound:
		return nil, deviceflow.OutcomeDenied, fmt.Errorf("trakt: invalid device code")
	case http.StatusConflict:
		return nil, deviceflow.OutcomeDenied, fmt.Errorf("trakt: device code already used")
	case http.StatusGone:
		return nil, deviceflow.OutcomeExpired, deviceflow.ErrSessionExpired
	case http.StatusTeapot:
		return nil, deviceflow.OutcomeDenied, deviceflow.ErrAuthorizationDenied
	default:
		if status >= http.StatusInternalServerError {
			return nil, deviceflow.OutcomeTransient, fmt.Errorf("trakt: token poll failed: %d", status)
		}
		return nil, deviceflow.OutcomeDenied, fmt.Errorf("trakt: token poll failed: %d %s", status, strings.TrimSpace(string(body)))
	}
}

// RefreshToken exchanges a refresh token for a new credential.
func (a *Auth) RefreshToken(ctx context.Context, refreshToken string) (*deviceflow.Credential, error) {
	payload, _ := json.Marshal(map[string]string{
		"refresh_token": refreshToken,
		"client_id":     a.clientID,
		"client_secret": a.clientSecret,
		"grant_type":    "refresh_token",
	})
	body, status, err := a.post(ctx, "/oauth/token", payload)
	if err != nil {
		return nil, fmt.Errorf("trakt: token refresh failed: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("trakt: token refresh failed: %d %s", status, strings.TrimSpace(string(body)))
	}
	cred, err := parseToken(body)
	if err != nil {
		return nil, err
	}
	log.WithField("provider", "trakt").Info("access token refreshed")
	return cred, nil
}

// RefreshTokenWithRetry retries transient refresh failures with linear backoff.
func (a *Auth) RefreshTokenWithRetry(ctx context.Context, refreshToken string, maxRetries int) (*deviceflow.Credential, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		cred, err := a.RefreshToken(ctx, refreshToken)
		if err == nil {
			return cred, nil
		}
		lastErr = err
		log.WithFields(log.Fields{"provider": "trakt", "attempt": attempt + 1}).Warnf("token refresh failed: %v", err)
	}
	return nil, fmt.Errorf("trakt: token refresh failed after %d attempts: %w", maxRetries, lastErr)
}

func (a *Auth) post(ctx context.Context, path string, payload []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

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

func parseToken(body []byte) (*deviceflow.Credential, error) {
	access := gjson.GetBytes(body, "access_token").String()
	if access == "" {
		return nil, fmt.Errorf("trakt: access_token not found in token response")
	}
	cred := &deviceflow.Credential{
		AccessToken:  access,
		RefreshToken: gjson.GetBytes(body, "refresh_token").String(),
	}
	if expiresIn := gjson.GetBytes(body, "expires_in").Int(); expiresIn > 0 {
		createdAt := time.Now()
		if created := gjson.GetBytes(body, "created_at").Int(); created > 0 {
			createdAt = time.Unix(created, 0)
		}
		cred.ExpiresAt = createdAt.Add(time.Duration(expiresIn) * time.Second)
	}
	return cred, nil
}
