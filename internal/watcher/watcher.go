// Package watcher watches the config file and triggers debounced hot
// reloads.
package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/config"
)

// reloadDebounce coalesces the burst of events an editor save produces into
// one reload.
const reloadDebounce = 150 * time.Millisecond

// Watcher watches one config file and invokes a callback with the freshly
// parsed config whenever its content actually changes.
type Watcher struct {
	configPath     string
	reloadCallback func(*config.Config)
	watcher        *fsnotify.Watcher

	mu          sync.Mutex
	reloadTimer *time.Timer
	lastHash    string
}

// NewWatcher creates a watcher for configPath. The callback runs on the
// watcher goroutine after every material change.
func NewWatcher(configPath string, reloadCallback func(*config.Config)) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		configPath:     configPath,
		reloadCallback: reloadCallback,
		watcher:        fsWatcher,
	}, nil
}

// Start begins watching. It watches the parent directory rather than the
// file itself so atomic save-by-rename keeps delivering events.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.configPath)); err != nil {
		return err
	}
	w.rememberHash()

	go w.loop(ctx)
	log.Debugf("watching config file: %s", w.configPath)
	return nil
}

// Stop stops the watcher and any pending reload.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
		w.reloadTimer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.configPath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("config watcher error: %v", err)
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.reloadTimer != nil {
		w.reloadTimer.Stop()
	}
	w.reloadTimer = time.AfterFunc(reloadDebounce, func() {
		w.mu.Lock()
		w.reloadTimer = nil
		w.mu.Unlock()
		w.reloadIfChanged()
	})
}

func (w *Watcher) reloadIfChanged() {
	data, err := os.ReadFile(w.configPath)
	if err != nil {
		log.Errorf("failed to read config file for hash check: %v", err)
		return
	}
	if len(data) == 0 {
		log.Debug("ignoring empty config file write event")
		return
	}
	newHash := hashOf(data)

	w.mu.Lock()
	unchanged := w.lastHash != "" && w.lastHash == newHash
	w.mu.Unlock()
	if unchanged {
		log.Debug("config file content unchanged, skipping reload")
		return
	}

	cfg, err := config.LoadConfig(w.configPath)
	if err != nil {
		log.Errorf("failed to reload config: %v", err)
		return
	}

	w.mu.Lock()
	w.lastHash = newHash
	w.mu.Unlock()

	log.Infof("config file changed, reloading: %s", w.configPath)
	w.reloadCallback(cfg)
}

func (w *Watcher) rememberHash() {
	if data, err := os.ReadFile(w.configPath); err == nil && len(data) > 0 {
		w.mu.Lock()
		w.lastHash = hashOf(data)
		w.mu.Unlock()
	}
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
