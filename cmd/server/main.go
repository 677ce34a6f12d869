// Package main provides the entry point for the huntboard daemon.
// Huntboard is the backend of a media-request dashboard: it links Trakt and
// Plex accounts through their device/PIN authorization flows and serves
// cached discovery sections from an upstream media-hunt API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/api"
	"github.com/mediahunt/huntboard/internal/auth"
	"github.com/mediahunt/huntboard/internal/auth/plex"
	"github.com/mediahunt/huntboard/internal/auth/trakt"
	"github.com/mediahunt/huntboard/internal/buildinfo"
	"github.com/mediahunt/huntboard/internal/cmd"
	"github.com/mediahunt/huntboard/internal/config"
	"github.com/mediahunt/huntboard/internal/deviceflow"
	"github.com/mediahunt/huntboard/internal/discovery"
	"github.com/mediahunt/huntboard/internal/hunt"
	"github.com/mediahunt/huntboard/internal/logging"
	"github.com/mediahunt/huntboard/internal/rotation"
	"github.com/mediahunt/huntboard/internal/store"
	"github.com/mediahunt/huntboard/internal/watcher"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func init() {
	logging.SetupBaseLogger()
	buildinfo.Version = Version
	buildinfo.Commit = Commit
	buildinfo.BuildDate = BuildDate
}

func main() {
	fmt.Printf("Huntboard Version: %s, Commit: %s, BuiltAt: %s\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)

	var (
		configPath string
		traktLogin bool
		plexLogin  bool
		noBrowser  bool
	)
	flag.StringVar(&configPath, "config", "config.yaml", "Configure File Path")
	flag.BoolVar(&traktLogin, "trakt-login", false, "Link a Trakt account using the device flow")
	flag.BoolVar(&plexLogin, "plex-login", false, "Link a Plex account using the PIN flow")
	flag.BoolVar(&noBrowser, "no-browser", false, "Don't open browser automatically during login")
	flag.Parse()

	wd, err := os.Getwd()
	if err != nil {
		log.Errorf("failed to get working directory: %v", err)
		return
	}
	if errLoad := godotenv.Load(filepath.Join(wd, ".env")); errLoad != nil {
		if !errors.Is(errLoad, os.ErrNotExist) {
			log.WithError(errLoad).Warn("failed to load .env file")
		}
	}

	cfg, err := config.LoadConfigOptional(configPath, true)
	if err != nil {
		log.Errorf("failed to load config: %v", err)
		return
	}
	logging.ConfigureOutput(cfg.LogsDir, cfg.LoggingToFile, cfg.Debug)

	st, cleanup, err := buildStateStore(context.Background(), cfg)
	if err != nil {
		log.Errorf("failed to open state store: %v", err)
		return
	}
	defer cleanup()

	ensurePlexIdentifier(cfg, st)

	loginOpts := &cmd.LoginOptions{NoBrowser: noBrowser}
	switch {
	case traktLogin:
		cmd.DoTraktLogin(cfg, st, loginOpts)
		return
	case plexLogin:
		cmd.DoPlexLogin(cfg, st, loginOpts)
		return
	}

	runServer(cfg, configPath, st)
}

// buildStateStore selects the PostgreSQL store when a DSN is configured and
// falls back to the per-key file store under the state directory otherwise.
func buildStateStore(ctx context.Context, cfg *config.Config) (store.StateStore, func(), error) {
	if cfg.Postgres.DSN != "" {
		pg, err := store.NewPostgresStore(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		log.Info("state store: postgres")
		return pg, func() { _ = pg.Close() }, nil
	}

	fs, err := store.NewFileStore(cfg.StateDir)
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("state store: files under %s", fs.BaseDir())
	return fs, func() {}, nil
}

// ensurePlexIdentifier generates and persists a stable client identifier the
// first time this installation talks to plex.tv.
func ensurePlexIdentifier(cfg *config.Config, st store.StateStore) {
	if cfg.Plex.ClientIdentifier != "" {
		return
	}
	ctx := context.Background()
	if data, ok := st.Get(ctx, "plex_client_id"); ok && len(data) > 0 {
		cfg.Plex.ClientIdentifier = string(data)
		return
	}
	cfg.Plex.ClientIdentifier = uuid.NewString()
	if err := st.Set(ctx, "plex_client_id", []byte(cfg.Plex.ClientIdentifier)); err != nil {
		log.Warnf("failed to persist plex client identifier: %v", err)
	}
}

func runServer(cfg *config.Config, configPath string, st store.StateStore) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := discovery.NewCache(st, cfg.Discovery.CacheTTL())
	defer cache.Close()
	loader := discovery.NewLoader(cache, hunt.NewClient(cfg))
	rotator := rotation.NewRotator(st)

	authorizer := deviceflow.NewAuthorizer(func(provider string, cred *deviceflow.Credential) {
		if err := auth.SaveCredential(context.Background(), st, provider, cred); err != nil {
			log.Errorf("failed to persist %s credential: %v", provider, err)
		}
	})
	defer authorizer.Shutdown()

	providers := map[string]deviceflow.Provider{
		"trakt": trakt.NewAuth(cfg),
		"plex":  plex.NewAuth(cfg),
	}

	server := api.NewServer(cfg, authorizer, providers, loader, rotator, st)

	w, err := watcher.NewWatcher(configPath, func(newCfg *config.Config) {
		logging.ConfigureOutput(newCfg.LogsDir, newCfg.LoggingToFile, newCfg.Debug)
		log.Info("config reloaded; logging settings applied")
	})
	if err != nil {
		log.Warnf("config watcher unavailable: %v", err)
	} else {
		if errStart := w.Start(ctx); errStart != nil {
			log.Warnf("failed to start config watcher: %v", errStart)
		}
		defer func() {
			_ = w.Stop()
		}()
	}

	if err := server.Run(ctx); err != nil {
		log.Errorf("server exited with error: %v", err)
	}
}
