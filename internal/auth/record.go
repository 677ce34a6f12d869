// Package auth persists linked provider credentials through the state store
// and hosts the per-provider linking clients in its subpackages.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/store"
)

// recordKeyPrefix namespaces credential blobs in the state store.
const recordKeyPrefix = "auth_"

// SaveCredential upserts the stored credential blob for a provider. Fields
// are patched individually so unknown fields written by older versions are
// preserved.
func SaveCredential(ctx context.Context, st store.StateStore, provider string, cred *deviceflow.Credential) error {
	raw, ok := st.Get(ctx, recordKey(provider))
	if !ok || len(raw) == 0 || !gjson.ValidBytes(raw) {
		raw = []byte("{}")
	}

	var err error
	patches := []struct {
		path  string
		value interface{}
	}{
		{"provider", provider},
		{"access_token", cred.AccessToken},
		{"refresh_token", cred.RefreshToken},
		{"last_linked", time.Now().Format(time.RFC3339)},
	}
	for _, p := range patches {
		if raw, err = sjson.SetBytes(raw, p.path, p.value); err != nil {
			return fmt.Errorf("auth record: patch %s: %w", p.path, err)
		}
	}
	expiry := ""
	if !cred.ExpiresAt.IsZero() {
		expiry = cred.ExpiresAt.Format(time.RFC3339)
	}
	if raw, err = sjson.SetBytes(raw, "expires_at", expiry); err != nil {
		return fmt.Errorf("auth record: patch expires_at: %w", err)
	}

	if err = st.Set(ctx, recordKey(provider), raw); err != nil {
		return fmt.Errorf("auth record: persist %s: %w", provider, err)
	}
	return nil
}

// LoadCredential reads the stored credential for a provider. Missing or
// corrupt blobs are a miss.
func LoadCredential(ctx context.Context, st store.StateStore, provider string) (*deviceflow.Credential, bool) {
	raw, ok := st.Get(ctx, recordKey(provider))
	if !ok || !gjson.ValidBytes(raw) {
		return nil, false
	}

	access := gjson.GetBytes(raw, "access_token").String()
	if access == "" {
		return nil, false
	}
	cred := &deviceflow.Credential{
		AccessToken:  access,
		RefreshToken: gjson.GetBytes(raw, "refresh_token").String(),
	}
	if expiry := gjson.GetBytes(raw, "expires_at").String(); expiry != "" {
		if parsed, err := time.Parse(time.RFC3339, expiry); err == nil {
			cred.ExpiresAt = parsed
		}
	}
	return cred, true
}

// DeleteCredential removes the stored credential for a provider.
func DeleteCredential(ctx context.Context, st store.StateStore, provider string) error {
	return st.Delete(ctx, recordKey(provider))
}

func recordKey(provider string) string {
	return recordKeyPrefix + provider
}
