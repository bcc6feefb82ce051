package services

import "time"

// SetNowForTest overrides the service clock from external test packages.
func (ss *SessionService) SetNowForTest(fn func() time.Time) {
	ss.now = fn
}
