package models

import (
	"sort"
	"sync"
	"time"
)

// HistoryStore is the single source of truth for all sessions, open or
// closed. Records are held in insertion order; listings sort by start
// time descending with insertion order as tie-break. Thread-safe: all
// public methods acquire hs.mu internally.
type HistoryStore struct {
	mu      sync.RWMutex
	records []*SessionRecord
	openID  string
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{}
}

// Insert adds a record. At most one open record may exist store-wide.
func (hs *HistoryStore) Insert(rec *SessionRecord) error {
	if !rec.Valid() {
		return ErrInvalidInterval
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()

	if rec.Open() {
		if hs.openID != "" {
			return ErrDuplicateOpenSession
		}
		hs.openID = rec.ID
	}
	hs.records = append(hs.records, rec)
	return nil
}

// Replace swaps the record with the same ID in place. The replacement
// must keep the interval invariant; swapping an open record for a
// closed one (stop) or moving times (edit) both go through here.
func (hs *HistoryStore) Replace(id string, rec *SessionRecord) error {
	if !rec.Valid() {
		return ErrInvalidInterval
	}
	hs.mu.Lock()
	defer hs.mu.Unlock()

	for i, existing := range hs.records {
		if existing.ID != id {
			continue
		}
		if rec.Open() && hs.openID != "" && hs.openID != id {
			return ErrDuplicateOpenSession
		}
		if hs.openID == id && !rec.Open() {
			hs.openID = ""
		}
		if rec.Open() {
			hs.openID = rec.ID
		}
		hs.records[i] = rec
		return nil
	}
	return ErrNotFound
}

// Delete removes a record. Deleting the open record returns the system
// to Idle.
func (hs *HistoryStore) Delete(id string) error {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	for i, rec := range hs.records {
		if rec.ID != id {
			continue
		}
		hs.records = append(hs.records[:i], hs.records[i+1:]...)
		if hs.openID == id {
			hs.openID = ""
		}
		return nil
	}
	return ErrNotFound
}

// MergeExternal imports externally synced records. A batch member that
// overlaps any existing record's interval is dropped — the existing
// record wins, so manual edits stay authoritative and re-importing the
// same batch is a no-op. Nil and open externals are ignored outright.
// Returns the number of records actually inserted.
func (hs *HistoryStore) MergeExternal(batch []*SessionRecord) int {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	inserted := 0
	for _, ext := range batch {
		if ext == nil || ext.Open() || !ext.Valid() {
			continue
		}
		conflict := false
		for _, existing := range hs.records {
			if existing.Overlaps(ext) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		rec := ext.Clone()
		rec.Source = SourceExternalSync
		if rec.ID == "" {
			rec.ID = NewSessionID()
		}
		hs.records = append(hs.records, rec)
		inserted++
	}
	return inserted
}

// Query returns copies sorted by start time descending. goalMetOnly
// filters to closed records meeting their effective goal; from/to (nil
// for unbounded) filter on start time.
func (hs *HistoryStore) Query(goalMetOnly bool, defaultGoal float64, from, to *time.Time) []*SessionRecord {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	out := make([]*SessionRecord, 0, len(hs.records))
	for _, rec := range hs.records {
		if goalMetOnly && !rec.MetGoal(defaultGoal) {
			continue
		}
		if from != nil && rec.StartTime.Before(*from) {
			continue
		}
		if to != nil && rec.StartTime.After(*to) {
			continue
		}
		out = append(out, rec.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime.After(out[j].StartTime)
	})
	return out
}

func (hs *HistoryStore) Get(id string) (*SessionRecord, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	for _, rec := range hs.records {
		if rec.ID == id {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// Active returns a copy of the open record, if any.
func (hs *HistoryStore) Active() (*SessionRecord, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	if hs.openID == "" {
		return nil, false
	}
	for _, rec := range hs.records {
		if rec.ID == hs.openID {
			return rec.Clone(), true
		}
	}
	return nil, false
}

// LatestClosedEndBefore finds the most recent closed record ending at
// or before at. Used to compute the eating window preceding a new fast.
func (hs *HistoryStore) LatestClosedEndBefore(at time.Time) (*SessionRecord, bool) {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	var best *SessionRecord
	for _, rec := range hs.records {
		if rec.EndTime == nil || rec.EndTime.After(at) {
			continue
		}
		if best == nil || rec.EndTime.After(*best.EndTime) {
			best = rec
		}
	}
	if best == nil {
		return nil, false
	}
	return best.Clone(), true
}

// Snapshot deep-copies the full contents for persistence.
func (hs *HistoryStore) Snapshot() []*SessionRecord {
	hs.mu.RLock()
	defer hs.mu.RUnlock()

	out := make([]*SessionRecord, 0, len(hs.records))
	for _, rec := range hs.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Restore replaces the contents wholesale from a persisted snapshot.
// A second open record in a corrupt snapshot is closed out by dropping
// its open status marker: the first open record encountered wins.
func (hs *HistoryStore) Restore(records []*SessionRecord) {
	hs.mu.Lock()
	defer hs.mu.Unlock()

	hs.records = hs.records[:0]
	hs.openID = ""
	for _, rec := range records {
		cp := rec.Clone()
		if cp.Open() {
			if hs.openID != "" {
				continue
			}
			hs.openID = cp.ID
		}
		hs.records = append(hs.records, cp)
	}
}

func (hs *HistoryStore) Len() int {
	hs.mu.RLock()
	defer hs.mu.RUnlock()
	return len(hs.records)
}

func (hs *HistoryStore) Reset() {
	hs.mu.Lock()
	defer hs.mu.Unlock()
	hs.records = nil
	hs.openID = ""
}
