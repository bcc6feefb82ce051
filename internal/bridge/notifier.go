package bridge

import (
	"sync"
	"time"

	"fastd/internal/fasting/interfaces"
	"fastd/internal/providers"
	"fastd/internal/structures"
)

// TimerNotifier fires the goal-reached notification with an in-process
// timer. A platform build would swap this for the OS notification
// scheduler; the controller only sees the interface.
type TimerNotifier struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
	logger providers.Logger
}

func NewNotifier(conf *structures.Config, logger providers.Logger) interfaces.NotifierInterface {
	if !conf.Notifications.Enabled {
		logger.Infof(providers.TypeApp, "Notifications disabled")
		return &noopNotifier{}
	}
	return &TimerNotifier{
		timers: make(map[string]*time.Timer),
		logger: logger,
	}
}

func (tn *TimerNotifier) ScheduleGoalReached(sessionID string, at time.Time) {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	if prev, ok := tn.timers[sessionID]; ok {
		prev.Stop()
	}

	delay := time.Until(at)
	if delay < 0 {
		delay = 0
	}
	tn.timers[sessionID] = time.AfterFunc(delay, func() {
		tn.mu.Lock()
		delete(tn.timers, sessionID)
		tn.mu.Unlock()
		tn.logger.Infof(providers.TypeApp, "Goal reached for session %s", sessionID)
	})
}

func (tn *TimerNotifier) CancelAll(sessionID string) {
	tn.mu.Lock()
	defer tn.mu.Unlock()

	if timer, ok := tn.timers[sessionID]; ok {
		timer.Stop()
		delete(tn.timers, sessionID)
	}
}

// Pending reports whether a notification is still scheduled for the
// session.
func (tn *TimerNotifier) Pending(sessionID string) bool {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	_, ok := tn.timers[sessionID]
	return ok
}

type noopNotifier struct{}

func (n *noopNotifier) ScheduleGoalReached(string, time.Time) {}
func (n *noopNotifier) CancelAll(string)                      {}
