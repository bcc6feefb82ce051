package testutil

import (
	"sync"
	"time"

	"fastd/internal/models"
	"fastd/internal/providers"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

// MockCompressor implements interfaces.CompressorInterface with injectable behavior.
type MockCompressor struct {
	CompressFn   func([]byte) ([]byte, error)
	DecompressFn func([]byte) ([]byte, error)
}

func (m *MockCompressor) Compress(val []byte) ([]byte, error) {
	if m.CompressFn != nil {
		return m.CompressFn(val)
	}
	// Default: return as-is (identity)
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (m *MockCompressor) Decompress(val []byte) ([]byte, error) {
	if m.DecompressFn != nil {
		return m.DecompressFn(val)
	}
	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

// MockMetrics implements providers.MetricsProviderInterface and records
// the last gauge values.
type MockMetrics struct {
	mu             sync.Mutex
	Requests       int
	PersistCalls   int
	CacheHits      int
	CacheMisses    int
	ElapsedSeconds float64
	Progress       float64
}

func (m *MockMetrics) IncRequestsTotal(string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
}
func (m *MockMetrics) ObserveRequestDuration(string, time.Duration) {}
func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}
func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}
func (m *MockMetrics) ObservePersistenceDuration(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PersistCalls++
}
func (m *MockMetrics) SetActiveElapsed(elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ElapsedSeconds = elapsed.Seconds()
}
func (m *MockMetrics) SetActiveProgress(progress float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Progress = progress
}

func (m *MockMetrics) LastElapsed() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ElapsedSeconds
}

func (m *MockMetrics) LastProgress() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Progress
}

// MockNotifier implements interfaces.NotifierInterface and records
// scheduled/cancelled sessions.
type MockNotifier struct {
	mu        sync.Mutex
	Scheduled map[string]time.Time
	Cancelled []string
}

func NewMockNotifier() *MockNotifier {
	return &MockNotifier{Scheduled: make(map[string]time.Time)}
}

func (m *MockNotifier) ScheduleGoalReached(sessionID string, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Scheduled[sessionID] = at
}

func (m *MockNotifier) CancelAll(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Scheduled, sessionID)
	m.Cancelled = append(m.Cancelled, sessionID)
}

func (m *MockNotifier) ScheduledAt(sessionID string) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	at, ok := m.Scheduled[sessionID]
	return at, ok
}

// MockBridge implements interfaces.BridgeInterface with injectable
// fetch results.
type MockBridge struct {
	mu      sync.Mutex
	FetchFn func(since time.Time) ([]*models.SessionRecord, error)
	Pushed  []*models.SessionRecord
}

func (m *MockBridge) FetchExternalSessions(since time.Time) ([]*models.SessionRecord, error) {
	if m.FetchFn != nil {
		return m.FetchFn(since)
	}
	return nil, nil
}

func (m *MockBridge) PushSession(rec *models.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushed = append(m.Pushed, rec)
	return nil
}

func (m *MockBridge) PushedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Pushed)
}
