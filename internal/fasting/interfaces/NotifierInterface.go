package interfaces

import "time"

// NotifierInterface schedules the "goal reached" notification for the
// active session. Fire-and-forget: the core never waits on it.
type NotifierInterface interface {
	ScheduleGoalReached(sessionID string, at time.Time)
	CancelAll(sessionID string)
}
