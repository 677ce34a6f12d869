package plex

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
)

func newTestAuth(baseURL string) *Auth {
	cfg := &config.Config{}
	cfg.Plex.Product = "Huntboard"
	cfg.Plex.ClientIdentifier = "test-client"
	cfg.Plex.BaseURL = baseURL
	return NewAuth(cfg)
}

func TestRequestDeviceCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v2/pins" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("X-Plex-Product"); got != "Huntboard" {
			t.Errorf("X-Plex-Product = %q", got)
		}
		if got := r.Header.Get("X-Plex-Client-Identifier"); got != "test-client" {
			t.Errorf("X-Plex-Client-Identifier = %q", got)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 12345, "code": "ABCD"}`))
	}))
	defer srv.Close()

	code, err := newTestAuth(srv.URL).RequestDeviceCode(context.Background())
	if err != nil {
		t.Fatalf("RequestDeviceCode: %v", err)
	}
	if code.DeviceCode != "12345" {
		t.Errorf("DeviceCode = %q, want 12345", code.DeviceCode)
	}
	if code.UserCode != "ABCD" {
		t.Errorf("UserCode = %q, want ABCD", code.UserCode)
	}
	if code.VerificationURL != "https://plex.tv/link" {
		t.Errorf("VerificationURL = %q", code.VerificationURL)
	}
	if remaining := time.Until(code.ExpiresAt); remaining < 14*time.Minute || remaining > 16*time.Minute {
		t.Errorf("ExpiresAt %v outside expected window", remaining)
	}
}

func TestRequestDeviceCodeMissingFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 0}`))
	}))
	defer srv.Close()

	if _, err := newTestAuth(srv.URL).RequestDeviceCode(context.Background()); err == nil {
		t.Fatal("expected error on response without id/code")
	}
}

func TestExchangeDeviceCodePending(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/pins/12345" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id": 12345, "code": "ABCD", "authToken": ""}`))
	}))
	defer srv.Close()

	cred, outcome, err := newTestAuth(srv.URL).ExchangeDeviceCode(context.Background(), "12345")
	if err != nil {
		t.Fatalf("ExchangeDeviceCode: %v", err)
	}
	if outcome != deviceflow.OutcomePending {
		t.Errorf("outcome = %v, want pending", outcome)
	}
	if cred != nil {
		t.Errorf("credential = %+v, want nil", cred)
	}
}

func TestExchangeDeviceCodeAuthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 12345, "code": "ABCD", "authToken": "plex-token"}`))
	}))
	defer srv.Close()

	cred, outcome, err := newTestAuth(srv.URL).ExchangeDeviceCode(context.Background(), "12345")
	if err != nil {
		t.Fatalf("ExchangeDeviceCode: %v", err)
	}
	if outcome != deviceflow.OutcomeAuthorized {
		t.Fatalf("outcome = %v, want authorized", outcome)
	}
	if cred.AccessToken != "plex-token" {
		t.Errorf("AccessToken = %q", cred.AccessToken)
	}
	if !cred.ExpiresAt.IsZero() {
		t.Errorf("ExpiresAt = %v, want zero", cred.ExpiresAt)
	}
}

func TestExchangeDeviceCodeExpired(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, outcome, err := newTestAuth(srv.URL).ExchangeDeviceCode(context.Background(), "12345")
	if outcome != deviceflow.OutcomeExpired {
		t.Fatalf("outcome = %v, want expired", outcome)
	}
	if err != deviceflow.ErrSessionExpired {
		t.Errorf("err = %v, want ErrSessionExpired", err)
	}
}

func TestExchangeDeviceCodeTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, outcome, err := newTestAuth(srv.URL).ExchangeDeviceCode(context.Background(), "12345")
	if outcome != deviceflow.OutcomeTransient {
		t.Fatalf("outcome = %v, want transient", outcome)
	}
	if err == nil {
		t.Error("expected error on 502")
	}
}
