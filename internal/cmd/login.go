// Package cmd implements the interactive login modes of the huntboard
// binary.
package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/auth"
	"github.com/mediahunt/huntboard/internal/auth/plex"
	"github.com/mediahunt/huntboard/internal/auth/trakt"
	"github.com/mediahunt/huntboard/internal/browser"
	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/store"
)

// LoginOptions controls interactive login behavior.
type LoginOptions struct {
	// NoBrowser suppresses opening the verification URL automatically.
	NoBrowser bool
}

// DoTraktLogin runs the Trakt device flow interactively and persists the
// credential to the state store.
func DoTraktLogin(cfg *config.Config, st store.StateStore, options *LoginOptions) {
	runDeviceLogin(cfg, st, trakt.NewAuth(cfg), options)
}

// DoPlexLogin runs the Plex PIN flow interactively and persists the
// credential to the state store.
func DoPlexLogin(cfg *config.Config, st store.StateStore, options *LoginOptions) {
	runDeviceLogin(cfg, st, plex.NewAuth(cfg), options)
}

func runDeviceLogin(cfg *config.Config, st store.StateStore, provider deviceflow.Provider, options *LoginOptions) {
	if options == nil {
		options = &LoginOptions{}
	}

	authorizer := deviceflow.NewAuthorizer(func(name string, cred *deviceflow.Credential) {
		if err := auth.SaveCredential(context.Background(), st, name, cred); err != nil {
			log.Errorf("failed to persist %s credential: %v", name, err)
		}
	})
	defer authorizer.Shutdown()

	session, err := authorizer.Begin(context.Background(), provider)
	if err != nil {
		fmt.Printf("%s authentication failed: %v\n", provider.Name(), err)
		return
	}

	fmt.Println()
	fmt.Printf("Visit %s and enter code: %s\n", session.VerificationURL(), session.UserCode())

	if !options.NoBrowser {
		if errOpen := browser.OpenURL(session.VerificationURL()); errOpen != nil {
			log.Debugf("failed to open browser: %v", errOpen)
			fmt.Println("Could not open a browser automatically; open the URL above manually.")
		}
	}

	fmt.Println("Waiting for authorization...")
	<-session.Done()

	switch session.State() {
	case deviceflow.StateAuthorized:
		fmt.Printf("%s authentication successful!\n", provider.Name())
	case deviceflow.StateExpired:
		fmt.Printf("%s authentication expired before the code was entered.\n", provider.Name())
	default:
		fmt.Printf("%s authentication failed: %v\n", provider.Name(), session.Err())
	}
}
