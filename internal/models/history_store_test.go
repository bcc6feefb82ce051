package models

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSession(start time.Time) *SessionRecord {
	return &SessionRecord{ID: NewSessionID(), StartTime: start, Source: SourceManual}
}

func TestHistoryStore_Insert_SingleOpenInvariant(t *testing.T) {
	hs := NewHistoryStore()
	require.NoError(t, hs.Insert(openSession(time.Now())))

	err := hs.Insert(openSession(time.Now()))
	assert.ErrorIs(t, err, ErrDuplicateOpenSession)
	assert.Equal(t, 1, hs.Len())
}

func TestHistoryStore_Insert_RejectsInvalidInterval(t *testing.T) {
	hs := NewHistoryStore()
	start := time.Now()
	end := start.Add(-time.Hour)
	err := hs.Insert(&SessionRecord{ID: NewSessionID(), StartTime: start, EndTime: &end})
	assert.ErrorIs(t, err, ErrInvalidInterval)
	assert.Equal(t, 0, hs.Len())
}

func TestHistoryStore_Replace_ClosesOpenSession(t *testing.T) {
	hs := NewHistoryStore()
	rec := openSession(time.Now().Add(-10 * time.Hour))
	require.NoError(t, hs.Insert(rec))

	end := rec.StartTime.Add(16 * time.Hour)
	closed := rec.Clone()
	closed.EndTime = &end
	require.NoError(t, hs.Replace(rec.ID, closed))

	_, ok := hs.Active()
	assert.False(t, ok)

	got, ok := hs.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, 16*time.Hour, got.Duration())
}

func TestHistoryStore_Replace_NotFound(t *testing.T) {
	hs := NewHistoryStore()
	err := hs.Replace("missing", openSession(time.Now()))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryStore_Delete_OpenReturnsToIdle(t *testing.T) {
	hs := NewHistoryStore()
	rec := openSession(time.Now())
	require.NoError(t, hs.Insert(rec))
	require.NoError(t, hs.Delete(rec.ID))

	_, ok := hs.Active()
	assert.False(t, ok)
	assert.Equal(t, 0, hs.Len())

	assert.ErrorIs(t, hs.Delete(rec.ID), ErrNotFound)
}

func TestHistoryStore_Query_SortedByStartDesc(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	oldest := closedSession(base, 16*time.Hour)
	newest := closedSession(base.Add(72*time.Hour), 16*time.Hour)
	middle := closedSession(base.Add(36*time.Hour), 10*time.Hour)
	require.NoError(t, hs.Insert(oldest))
	require.NoError(t, hs.Insert(newest))
	require.NoError(t, hs.Insert(middle))

	got := hs.Query(false, 16, nil, nil)
	require.Len(t, got, 3)
	assert.Equal(t, newest.ID, got[0].ID)
	assert.Equal(t, middle.ID, got[1].ID)
	assert.Equal(t, oldest.ID, got[2].ID)
}

func TestHistoryStore_Query_GoalMetOnly(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	met := closedSession(base, 18*time.Hour)
	missed := closedSession(base.Add(48*time.Hour), 10*time.Hour)
	require.NoError(t, hs.Insert(met))
	require.NoError(t, hs.Insert(missed))

	got := hs.Query(true, 16, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, met.ID, got[0].ID)
}

func TestHistoryStore_Query_Range(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, hs.Insert(closedSession(base.AddDate(0, 0, i), 16*time.Hour)))
	}

	from := base.AddDate(0, 0, 1)
	to := base.AddDate(0, 0, 3)
	got := hs.Query(false, 16, &from, &to)
	assert.Len(t, got, 3)
}

func TestHistoryStore_Query_ReturnsCopies(t *testing.T) {
	hs := NewHistoryStore()
	rec := closedSession(time.Now().Add(-20*time.Hour), 16*time.Hour)
	require.NoError(t, hs.Insert(rec))

	got := hs.Query(false, 16, nil, nil)
	got[0].StartTime = got[0].StartTime.Add(-time.Hour)

	again, ok := hs.Get(rec.ID)
	require.True(t, ok)
	assert.Equal(t, rec.StartTime, again.StartTime)
}

func TestHistoryStore_MergeExternal_ManualWinsOnOverlap(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	manual := closedSession(base, 16*time.Hour)
	require.NoError(t, hs.Insert(manual))

	ext := closedSession(base.Add(time.Hour), 15*time.Hour)
	ext.Source = SourceExternalSync
	inserted := hs.MergeExternal([]*SessionRecord{ext})

	assert.Equal(t, 0, inserted)
	assert.Equal(t, 1, hs.Len())
	got, ok := hs.Get(manual.ID)
	require.True(t, ok)
	assert.Equal(t, SourceManual, got.Source)
}

func TestHistoryStore_MergeExternal_Idempotent(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)

	batch := []*SessionRecord{
		closedSession(base, 16*time.Hour),
		closedSession(base.AddDate(0, 0, 2), 17*time.Hour),
	}

	first := hs.MergeExternal(batch)
	assert.Equal(t, 2, first)

	second := hs.MergeExternal(batch)
	assert.Equal(t, 0, second)
	assert.Equal(t, 2, hs.Len())
}

func TestHistoryStore_MergeExternal_SkipsNilOpenAndInvalid(t *testing.T) {
	hs := NewHistoryStore()
	start := time.Now()
	end := start.Add(-time.Hour)

	// A null element in a synced JSON batch decodes to a nil record.
	var batch []*SessionRecord
	require.NoError(t, json.Unmarshal([]byte("[null]"), &batch))
	batch = append(batch,
		openSession(start),
		&SessionRecord{ID: NewSessionID(), StartTime: start, EndTime: &end},
	)

	inserted := hs.MergeExternal(batch)
	assert.Equal(t, 0, inserted)
	assert.Equal(t, 0, hs.Len())
}

func TestHistoryStore_MergeExternal_TagsSourceAndAssignsID(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 20, 0, 0, 0, time.UTC)
	end := base.Add(16 * time.Hour)

	inserted := hs.MergeExternal([]*SessionRecord{{StartTime: base, EndTime: &end}})
	require.Equal(t, 1, inserted)

	got := hs.Query(false, 16, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, SourceExternalSync, got[0].Source)
	assert.NotEmpty(t, got[0].ID)
}

func TestHistoryStore_LatestClosedEndBefore(t *testing.T) {
	hs := NewHistoryStore()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

	early := closedSession(base, 10*time.Hour)
	late := closedSession(base.AddDate(0, 0, 1), 10*time.Hour)
	require.NoError(t, hs.Insert(early))
	require.NoError(t, hs.Insert(late))

	got, ok := hs.LatestClosedEndBefore(base.AddDate(0, 0, 3))
	require.True(t, ok)
	assert.Equal(t, late.ID, got.ID)

	_, ok = hs.LatestClosedEndBefore(base)
	assert.False(t, ok)
}

func TestHistoryStore_Restore_DropsSecondOpenRecord(t *testing.T) {
	hs := NewHistoryStore()
	first := openSession(time.Now().Add(-2 * time.Hour))
	second := openSession(time.Now().Add(-1 * time.Hour))

	hs.Restore([]*SessionRecord{first, second})

	assert.Equal(t, 1, hs.Len())
	active, ok := hs.Active()
	require.True(t, ok)
	assert.Equal(t, first.ID, active.ID)
}
