package fasting

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastd/internal/models"
	"fastd/internal/testutil"
)

func newTestScheduler(t *testing.T, bridge *testutil.MockBridge) (*Scheduler, *testutil.MockMetrics) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "fastd.db")
	conf := testConfig(dbPath)

	svc := newTestService(conf)
	logger := &testutil.MockLogger{}
	fm := NewFileManager(&testutil.MockCompressor{}, svc, logger)
	metrics := &testutil.MockMetrics{}
	if bridge == nil {
		bridge = &testutil.MockBridge{}
	}
	s := NewScheduler(conf, logger, svc, fm, bridge, metrics).(*Scheduler)
	return s, metrics
}

func TestScheduler_PersistWritesFile(t *testing.T) {
	s, metrics := newTestScheduler(t, nil)

	require.NoError(t, s.Persist())

	_, err := os.Stat(s.config.Persistence.FilePath)
	assert.NoError(t, err)
	assert.Equal(t, 1, metrics.PersistCalls)
}

func TestScheduler_RestoreRoundTrip(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	end := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	_, err := s.service.Backfill(end.Add(-18*time.Hour), end, nil)
	require.NoError(t, err)
	require.NoError(t, s.Persist())

	s2, _ := newTestScheduler(t, nil)
	s2.config.Persistence.FilePath = s.config.Persistence.FilePath
	require.NoError(t, s2.Restore())
	assert.Equal(t, 1, s2.service.SessionCount())
}

func TestScheduler_RestoreMissingFile(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	require.NoError(t, s.Restore())
	assert.Equal(t, 0, s.service.SessionCount())
}

func TestScheduler_RequestSaveNeverBlocks(t *testing.T) {
	s, _ := newTestScheduler(t, nil)

	// No saveLoop running: the buffered request plus the dropped ones
	// must all return immediately.
	for i := 0; i < 10; i++ {
		s.RequestSave()
	}
}

func TestScheduler_MutationTriggersSave(t *testing.T) {
	s, metrics := newTestScheduler(t, nil)
	s.Init()

	_, err := s.service.Start(time.Now().Add(-time.Hour), nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, statErr := os.Stat(s.config.Persistence.FilePath)
		return statErr == nil
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.GreaterOrEqual(t, metrics.PersistCalls, 1)
}

func TestScheduler_SyncFromHealthStore(t *testing.T) {
	end := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	bridge := &testutil.MockBridge{
		FetchFn: func(since time.Time) ([]*models.SessionRecord, error) {
			return []*models.SessionRecord{{StartTime: end.Add(-16 * time.Hour), EndTime: &end}}, nil
		},
	}
	s, _ := newTestScheduler(t, bridge)

	s.syncFromHealthStore()
	assert.Equal(t, 1, s.service.SessionCount())
	assert.False(t, s.lastSync.IsZero())

	// Same batch again: overlap dedupe keeps the store unchanged.
	s.syncFromHealthStore()
	assert.Equal(t, 1, s.service.SessionCount())
}

func TestScheduler_ConcurrentSyncFires(t *testing.T) {
	end := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	bridge := &testutil.MockBridge{
		FetchFn: func(since time.Time) ([]*models.SessionRecord, error) {
			time.Sleep(5 * time.Millisecond)
			return []*models.SessionRecord{{StartTime: end.Add(-16 * time.Hour), EndTime: &end}}, nil
		},
	}
	s, _ := newTestScheduler(t, bridge)

	// Overlapping poll fires must serialize over lastSync.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.syncFromHealthStore()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, s.service.SessionCount())
	assert.False(t, s.lastSync.IsZero())
}

func TestScheduler_SyncFetchErrorLeavesSinceUntouched(t *testing.T) {
	bridge := &testutil.MockBridge{
		FetchFn: func(since time.Time) ([]*models.SessionRecord, error) {
			return nil, os.ErrDeadlineExceeded
		},
	}
	s, _ := newTestScheduler(t, bridge)

	s.syncFromHealthStore()
	assert.True(t, s.lastSync.IsZero())
	assert.Equal(t, 0, s.service.SessionCount())
}

func TestScheduler_PushesClosedSessionWhenSyncEnabled(t *testing.T) {
	bridge := &testutil.MockBridge{}
	s, _ := newTestScheduler(t, bridge)
	s.config.HealthSync.Enabled = true
	s.Init()
	defer s.Stop()

	_, err := s.service.Start(time.Now().Add(-17*time.Hour), nil)
	require.NoError(t, err)
	_, err = s.service.Stop(time.Now())
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return bridge.PushedCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestScheduler_DoesNotPushWhenSyncDisabled(t *testing.T) {
	bridge := &testutil.MockBridge{}
	s, _ := newTestScheduler(t, bridge)
	s.Init()
	defer s.Stop()

	_, err := s.service.Start(time.Now().Add(-17*time.Hour), nil)
	require.NoError(t, err)
	_, err = s.service.Stop(time.Now())
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, bridge.PushedCount())
}
