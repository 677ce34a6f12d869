// Package rotation picks which discovery bucket the home view foregrounds,
// cycling deterministically through the buckets across page loads so repeat
// visits feel varied.
package rotation

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/mediahunt/huntboard/internal/discovery"
	"github.com/mediahunt/huntboard/internal/store"
)

// stateKey is the state-store key holding the persisted rotation state.
const stateKey = "rotation"

// state is the persisted rotation record.
type state struct {
	Section discovery.Section `json:"section"`
	SavedAt int64             `json:"timestamp"`
}

// Rotator owns the persisted rotation pointer. All state lives on the
// instance; there are no package-level variables, so independent rotators can
// coexist in tests.
type Rotator struct {
	state store.StateStore
	now   func() time.Time
}

// NewRotator creates a rotator persisting through st.
func NewRotator(st store.StateStore) *Rotator {
	return &Rotator{state: st, now: time.Now}
}

// Next chooses the section to foreground on this load and persists the
// choice immediately, so the following load starts from it. With no usable
// persisted state the first choice is always trending. Persistence failures
// are logged and swallowed; the worst outcome is a repeated section.
func (r *Rotator) Next(ctx context.Context) discovery.Section {
	next := discovery.SectionTrending

	if raw, ok := r.state.Get(ctx, stateKey); ok {
		var prev state
		if err := json.Unmarshal(raw, &prev); err == nil {
			if idx, known := sectionIndex(prev.Section); known {
				next = discovery.Sections[(idx+1)%len(discovery.Sections)]
			}
		} else {
			log.Debugf("corrupt rotation state treated as absent: %v", err)
		}
	}

	raw, err := json.Marshal(state{Section: next, SavedAt: r.now().UnixMilli()})
	if err == nil {
		err = r.state.Set(ctx, stateKey, raw)
	}
	if err != nil {
		log.Warnf("persist rotation state failed: %v", err)
	}

	return next
}

// Others returns the sections not chosen, in rotation order. The rotator's
// caller warms these in the background for fast switching.
func Others(chosen discovery.Section) []discovery.Section {
	others := make([]discovery.Section, 0, len(discovery.Sections)-1)
	for _, s := range discovery.Sections {
		if s != chosen {
			others = append(others, s)
		}
	}
	return others
}

func sectionIndex(s discovery.Section) (int, bool) {
	for i, known := range discovery.Sections {
		if known == s {
			return i, true
		}
	}
	return 0, false
}
