package models

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type TrackerKind string

const (
	TrackerWeight    TrackerKind = "weight"
	TrackerHydration TrackerKind = "hydration"
	TrackerSleep     TrackerKind = "sleep"
	TrackerMood      TrackerKind = "mood"
)

func ValidTrackerKind(k TrackerKind) bool {
	switch k {
	case TrackerWeight, TrackerHydration, TrackerSleep, TrackerMood:
		return true
	}
	return false
}

// TrackerEntry is one logged measurement. The trackers are plain
// create/read/delete logs with no lifecycle logic of their own.
type TrackerEntry struct {
	ID    string      `json:"id"`
	Kind  TrackerKind `json:"kind"`
	Value float64     `json:"value"`
	Unit  string      `json:"unit,omitempty"`
	Note  string      `json:"note,omitempty"`
	At    time.Time   `json:"at"`
}

// TrackerLog holds the per-domain logs keyed by kind.
// Thread-safe: all public methods acquire tl.mu internally.
type TrackerLog struct {
	mu      sync.RWMutex
	entries map[TrackerKind][]*TrackerEntry
}

func NewTrackerLog() *TrackerLog {
	return &TrackerLog{entries: make(map[TrackerKind][]*TrackerEntry)}
}

func (tl *TrackerLog) Add(entry *TrackerEntry) error {
	if !ValidTrackerKind(entry.Kind) {
		return ErrUnknownTrackerKind
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries[entry.Kind] = append(tl.entries[entry.Kind], entry)
	return nil
}

// List returns copies for one kind, newest first.
func (tl *TrackerLog) List(kind TrackerKind) ([]*TrackerEntry, error) {
	if !ValidTrackerKind(kind) {
		return nil, ErrUnknownTrackerKind
	}
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	out := make([]*TrackerEntry, 0, len(tl.entries[kind]))
	for _, e := range tl.entries[kind] {
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.After(out[j].At)
	})
	return out, nil
}

func (tl *TrackerLog) Delete(kind TrackerKind, id string) error {
	if !ValidTrackerKind(kind) {
		return ErrUnknownTrackerKind
	}
	tl.mu.Lock()
	defer tl.mu.Unlock()

	list := tl.entries[kind]
	for i, e := range list {
		if e.ID == id {
			tl.entries[kind] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

// Snapshot deep-copies the full log for persistence.
func (tl *TrackerLog) Snapshot() map[TrackerKind][]*TrackerEntry {
	tl.mu.RLock()
	defer tl.mu.RUnlock()

	out := make(map[TrackerKind][]*TrackerEntry, len(tl.entries))
	for kind, list := range tl.entries {
		cp := make([]*TrackerEntry, 0, len(list))
		for _, e := range list {
			c := *e
			cp = append(cp, &c)
		}
		out[kind] = cp
	}
	return out
}

func (tl *TrackerLog) Restore(data map[TrackerKind][]*TrackerEntry) {
	tl.mu.Lock()
	defer tl.mu.Unlock()

	tl.entries = make(map[TrackerKind][]*TrackerEntry)
	for kind, list := range data {
		if !ValidTrackerKind(kind) {
			continue
		}
		cp := make([]*TrackerEntry, 0, len(list))
		for _, e := range list {
			c := *e
			cp = append(cp, &c)
		}
		tl.entries[kind] = cp
	}
}

func (tl *TrackerLog) Reset() {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	tl.entries = make(map[TrackerKind][]*TrackerEntry)
}
