package services

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"fastd/internal/fasting/interfaces"
	"fastd/internal/models"
	"fastd/internal/structures"
)

type SessionState string

const (
	StateIdle   SessionState = "idle"
	StateActive SessionState = "active"
)

type SessionServiceInterface interface {
	Start(at time.Time, goalHours *float64) (*models.SessionRecord, error)
	Stop(at time.Time) (*models.SessionRecord, error)
	EditActiveStart(newStart, now time.Time) error
	EditCompleted(id string, newStart, newEnd time.Time) error
	Backfill(start, end time.Time, goalHours *float64) (*models.SessionRecord, error)
	Delete(id string) error

	Elapsed(now time.Time) time.Duration
	Progress(now time.Time) float64
	CurrentState() (SessionState, *models.SessionRecord)
	History(goalMetOnly bool, from, to *time.Time) []*models.SessionRecord
	Streaks() models.StreakState
	GoalHours() float64
	SetGoalHours(hours float64) error
	SessionCount() int

	MergeExternal(batch []*models.SessionRecord) (int, error)
	FullReset()

	AddTrackerEntry(entry *models.TrackerEntry) error
	ListTracker(kind models.TrackerKind) ([]*models.TrackerEntry, error)
	DeleteTrackerEntry(kind models.TrackerKind, id string) error

	Generation() uint64
	GetSnapshot() *models.StorageV2
	PutSnapshot(s *models.StorageV2)

	OnSessionClosed(fn func(*models.SessionRecord))
	OnStateChange(fn func(active bool))
	SetPersistHook(fn func())
}

// SessionService owns the fast lifecycle: the single entry point for
// start/stop/edit/delete/merge. Every mutation recomputes the streak
// counters before returning, inside the service lock, so no reader
// observes history newer than the streaks. Persistence is poked after
// the fact and never blocks or rolls back a mutation.
type SessionService struct {
	mu       sync.RWMutex
	config   *structures.Config
	history  *models.HistoryStore
	trackers *models.TrackerLog
	streaks  models.StreakState
	goal     float64
	loc      *time.Location
	notifier interfaces.NotifierInterface
	now      func() time.Time
	gen      atomic.Uint64

	onClosed      []func(*models.SessionRecord)
	onStateChange []func(active bool)
	persistHook   func()
}

func NewSessionService(conf *structures.Config, notifier interfaces.NotifierInterface) SessionServiceInterface {
	return &SessionService{
		config:   conf,
		history:  models.NewHistoryStore(),
		trackers: models.NewTrackerLog(),
		goal:     conf.Fasting.DefaultGoalHours,
		loc:      conf.Location(),
		notifier: notifier,
		now:      time.Now,
	}
}

func (ss *SessionService) Start(at time.Time, goalHours *float64) (*models.SessionRecord, error) {
	if goalHours != nil && *goalHours <= 0 {
		return nil, models.ErrInvalidGoal
	}

	ss.mu.Lock()

	if _, ok := ss.history.Active(); ok {
		ss.mu.Unlock()
		return nil, models.ErrAlreadyActive
	}

	rec := &models.SessionRecord{
		ID:        models.NewSessionID(),
		StartTime: at,
		GoalHours: goalHours,
		Source:    models.SourceManual,
	}
	if prev, ok := ss.history.LatestClosedEndBefore(at); ok {
		window := at.Sub(*prev.EndTime)
		rec.PrecedingEatingWindow = &window
	}

	if err := ss.history.Insert(rec); err != nil {
		ss.mu.Unlock()
		return nil, err
	}
	ss.afterMutation()
	goalAt := at.Add(rec.GoalDuration(ss.goal))
	ss.mu.Unlock()

	// Hooks run outside the lock: the ticker reads back through the
	// service when it reacts to a state change.
	ss.notifier.ScheduleGoalReached(rec.ID, goalAt)
	ss.fireStateChange(true)
	return rec.Clone(), nil
}

func (ss *SessionService) Stop(at time.Time) (*models.SessionRecord, error) {
	ss.mu.Lock()

	rec, ok := ss.history.Active()
	if !ok {
		ss.mu.Unlock()
		return nil, models.ErrNoActiveSession
	}
	if !at.After(rec.StartTime) {
		ss.mu.Unlock()
		return nil, models.ErrInvalidInterval
	}

	rec.EndTime = &at
	if err := ss.history.Replace(rec.ID, rec); err != nil {
		ss.mu.Unlock()
		return nil, err
	}
	ss.afterMutation()
	closed := ss.onClosed
	ss.mu.Unlock()

	ss.notifier.CancelAll(rec.ID)
	ss.fireStateChange(false)
	for _, fn := range closed {
		fn(rec.Clone())
	}
	return rec.Clone(), nil
}

// EditActiveStart moves the open session's start time. The preceding
// eating window is frozen at creation and deliberately not recomputed.
func (ss *SessionService) EditActiveStart(newStart, now time.Time) error {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	rec, ok := ss.history.Active()
	if !ok {
		return models.ErrNoActiveSession
	}
	if !newStart.Before(now) {
		return models.ErrInvalidInterval
	}

	rec.StartTime = newStart
	if err := ss.history.Replace(rec.ID, rec); err != nil {
		return err
	}
	ss.afterMutation()

	// The goal-reached instant moved with the start.
	ss.notifier.CancelAll(rec.ID)
	ss.notifier.ScheduleGoalReached(rec.ID, newStart.Add(rec.GoalDuration(ss.goal)))
	return nil
}

// EditCompleted rewrites both times of a closed session. An edit can
// retroactively break or heal a streak day, so streaks are recomputed
// over the whole history.
func (ss *SessionService) EditCompleted(id string, newStart, newEnd time.Time) error {
	if !newEnd.After(newStart) {
		return models.ErrInvalidInterval
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	rec, ok := ss.history.Get(id)
	if !ok || rec.Open() {
		return models.ErrNotFound
	}

	rec.StartTime = newStart
	rec.EndTime = &newEnd
	if err := ss.history.Replace(id, rec); err != nil {
		return err
	}
	ss.afterMutation()
	return nil
}

// Backfill records a fast that already happened, both times supplied.
func (ss *SessionService) Backfill(start, end time.Time, goalHours *float64) (*models.SessionRecord, error) {
	if !end.After(start) {
		return nil, models.ErrInvalidInterval
	}
	if goalHours != nil && *goalHours <= 0 {
		return nil, models.ErrInvalidGoal
	}

	ss.mu.Lock()
	defer ss.mu.Unlock()

	rec := &models.SessionRecord{
		ID:        models.NewSessionID(),
		StartTime: start,
		EndTime:   &end,
		GoalHours: goalHours,
		Source:    models.SourceManual,
	}
	if prev, ok := ss.history.LatestClosedEndBefore(start); ok {
		window := start.Sub(*prev.EndTime)
		rec.PrecedingEatingWindow = &window
	}

	if err := ss.history.Insert(rec); err != nil {
		return nil, err
	}
	ss.afterMutation()
	return rec.Clone(), nil
}

func (ss *SessionService) Delete(id string) error {
	ss.mu.Lock()

	active, wasActive := ss.history.Active()
	if err := ss.history.Delete(id); err != nil {
		ss.mu.Unlock()
		return err
	}
	ss.afterMutation()
	deletedActive := wasActive && active.ID == id
	ss.mu.Unlock()

	if deletedActive {
		ss.notifier.CancelAll(id)
		ss.fireStateChange(false)
	}
	return nil
}

// Elapsed is now-start for the active session, 0 otherwise. Always
// recomputed on read, never stored.
func (ss *SessionService) Elapsed(now time.Time) time.Duration {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rec, ok := ss.history.Active()
	if !ok {
		return 0
	}
	return now.Sub(rec.StartTime)
}

// Progress is elapsed over the effective goal, clamped to 1 for
// display. Callers needing over-goal time use Elapsed directly.
func (ss *SessionService) Progress(now time.Time) float64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	rec, ok := ss.history.Active()
	if !ok {
		return 0
	}
	goal := rec.GoalDuration(ss.goal)
	if goal <= 0 {
		return 0
	}
	p := float64(now.Sub(rec.StartTime)) / float64(goal)
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func (ss *SessionService) CurrentState() (SessionState, *models.SessionRecord) {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	if rec, ok := ss.history.Active(); ok {
		return StateActive, rec
	}
	return StateIdle, nil
}

func (ss *SessionService) History(goalMetOnly bool, from, to *time.Time) []*models.SessionRecord {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.history.Query(goalMetOnly, ss.goal, from, to)
}

func (ss *SessionService) Streaks() models.StreakState {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.streaks
}

func (ss *SessionService) GoalHours() float64 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return ss.goal
}

// SetGoalHours changes the global default goal. Records without their
// own goal are evaluated against it, so streaks are recomputed.
func (ss *SessionService) SetGoalHours(hours float64) error {
	if hours <= 0 {
		return models.ErrInvalidGoal
	}
	ss.mu.Lock()
	defer ss.mu.Unlock()

	ss.goal = hours
	ss.afterMutation()
	return nil
}

func (ss *SessionService) SessionCount() int {
	return ss.history.Len()
}

// MergeExternal imports a synced batch through the same merge path as
// manual entries. Existing records win on interval overlap.
func (ss *SessionService) MergeExternal(batch []*models.SessionRecord) (int, error) {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	inserted := ss.history.MergeExternal(batch)
	if inserted > 0 {
		ss.afterMutation()
	}
	return inserted, nil
}

// FullReset wipes sessions, trackers and streak counters. This is the
// only operation allowed to decrease the longest streak.
func (ss *SessionService) FullReset() {
	ss.mu.Lock()

	active, wasActive := ss.history.Active()
	ss.history.Reset()
	ss.trackers.Reset()
	ss.streaks.Reset()
	ss.bump()
	ss.mu.Unlock()

	if wasActive {
		ss.notifier.CancelAll(active.ID)
		ss.fireStateChange(false)
	}
}

func (ss *SessionService) AddTrackerEntry(entry *models.TrackerEntry) error {
	if err := ss.trackers.Add(entry); err != nil {
		return err
	}
	ss.bump()
	return nil
}

func (ss *SessionService) ListTracker(kind models.TrackerKind) ([]*models.TrackerEntry, error) {
	return ss.trackers.List(kind)
}

func (ss *SessionService) DeleteTrackerEntry(kind models.TrackerKind, id string) error {
	if err := ss.trackers.Delete(kind, id); err != nil {
		return err
	}
	ss.bump()
	return nil
}

// Generation increments on every mutation; the response cache folds it
// into its keys so stale reads expire immediately.
func (ss *SessionService) Generation() uint64 {
	return ss.gen.Load()
}

func (ss *SessionService) GetSnapshot() *models.StorageV2 {
	ss.mu.RLock()
	defer ss.mu.RUnlock()

	return &models.StorageV2{
		Version:   models.StorageVersion,
		Sessions:  ss.history.Snapshot(),
		Streaks:   ss.streaks,
		GoalHours: ss.goal,
		Trackers:  ss.trackers.Snapshot(),
	}
}

// PutSnapshot restores persisted state on startup. The streak counters
// are recomputed rather than trusted: the persisted copy is a cache,
// and "today" may have moved since the last save. Longest is kept
// monotone against the persisted value.
func (ss *SessionService) PutSnapshot(s *models.StorageV2) {
	ss.mu.Lock()

	ss.history.Restore(s.Sessions)
	ss.trackers.Restore(s.Trackers)
	if s.GoalHours > 0 {
		ss.goal = s.GoalHours
	}
	ss.streaks = s.Streaks
	ss.recomputeStreaks()
	ss.bump()
	rec, wasActive := ss.history.Active()
	goal := ss.goal
	ss.mu.Unlock()

	if wasActive {
		ss.notifier.ScheduleGoalReached(rec.ID, rec.StartTime.Add(rec.GoalDuration(goal)))
		ss.fireStateChange(true)
	}
}

func (ss *SessionService) OnSessionClosed(fn func(*models.SessionRecord)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.onClosed = append(ss.onClosed, fn)
}

func (ss *SessionService) OnStateChange(fn func(active bool)) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.onStateChange = append(ss.onStateChange, fn)
}

func (ss *SessionService) SetPersistHook(fn func()) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.persistHook = fn
}

// afterMutation runs with ss.mu held: recompute streaks synchronously
// so mutation and counters are observed atomically, then poke the
// persist hook (which must be non-blocking).
func (ss *SessionService) afterMutation() {
	ss.recomputeStreaks()
	ss.bump()
}

func (ss *SessionService) recomputeStreaks() {
	current := models.ComputeCurrentStreak(ss.history.Snapshot(), ss.goal, ss.now(), ss.loc)
	ss.streaks.Advance(current)
}

func (ss *SessionService) bump() {
	ss.gen.Inc()
	if ss.persistHook != nil {
		ss.persistHook()
	}
}

func (ss *SessionService) fireStateChange(active bool) {
	ss.mu.RLock()
	fns := ss.onStateChange
	ss.mu.RUnlock()
	for _, fn := range fns {
		fn(active)
	}
}
