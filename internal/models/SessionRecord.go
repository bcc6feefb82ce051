package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionSource string

const (
	SourceManual       SessionSource = "manual"
	SourceExternalSync SessionSource = "externalSync"
)

// SessionRecord is one fast: a start instant and, once stopped, an end
// instant. EndTime == nil marks the single active session. Source only
// matters for merge tie-breaking; progress and streak math never look
// at it.
type SessionRecord struct {
	ID                    string         `json:"id"`
	StartTime             time.Time      `json:"start_time"`
	EndTime               *time.Time     `json:"end_time,omitempty"`
	GoalHours             *float64       `json:"goal_hours,omitempty"`
	PrecedingEatingWindow *time.Duration `json:"preceding_eating_window,omitempty"`
	Source                SessionSource  `json:"source"`
}

func NewSessionID() string {
	return uuid.NewString()
}

func (r *SessionRecord) Open() bool {
	return r.EndTime == nil
}

// Duration is endTime-startTime for closed records and 0 while open.
// Elapsed time of the active session is the controller's job, not the
// record's.
func (r *SessionRecord) Duration() time.Duration {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// Valid reports whether a closed record has a strictly positive
// interval. Open records are always valid.
func (r *SessionRecord) Valid() bool {
	return r.EndTime == nil || r.EndTime.After(r.StartTime)
}

func (r *SessionRecord) EffectiveGoalHours(defaultGoal float64) float64 {
	if r.GoalHours != nil && *r.GoalHours > 0 {
		return *r.GoalHours
	}
	return defaultGoal
}

func (r *SessionRecord) GoalDuration(defaultGoal float64) time.Duration {
	return time.Duration(r.EffectiveGoalHours(defaultGoal) * float64(time.Hour))
}

// MetGoal is false for open records: an in-progress fast never counts
// until it is stopped, no matter how long it has run.
func (r *SessionRecord) MetGoal(defaultGoal float64) bool {
	if r.EndTime == nil || !r.Valid() {
		return false
	}
	return r.Duration() >= r.GoalDuration(defaultGoal)
}

// Overlaps reports whether two closed intervals intersect. Open records
// never overlap anything for merge purposes.
func (r *SessionRecord) Overlaps(other *SessionRecord) bool {
	if r.EndTime == nil || other.EndTime == nil {
		return false
	}
	return r.StartTime.Before(*other.EndTime) && other.StartTime.Before(*r.EndTime)
}

// Day is the calendar day the fast was completed on, in loc. Open
// records have no day.
func (r *SessionRecord) Day(loc *time.Location) (string, bool) {
	if r.EndTime == nil {
		return "", false
	}
	return r.EndTime.In(loc).Format("2006-01-02"), true
}

func (r *SessionRecord) Clone() *SessionRecord {
	cp := *r
	if r.EndTime != nil {
		t := *r.EndTime
		cp.EndTime = &t
	}
	if r.GoalHours != nil {
		g := *r.GoalHours
		cp.GoalHours = &g
	}
	if r.PrecedingEatingWindow != nil {
		d := *r.PrecedingEatingWindow
		cp.PrecedingEatingWindow = &d
	}
	return &cp
}
