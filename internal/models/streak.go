package models

import "time"

// StreakState is the derived streak cache persisted for fast UI reads.
// It is recomputed from history after every mutation and never edited
// by hand; Longest only moves down on a full data reset.
type StreakState struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

const dayFormat = "2006-01-02"

// ComputeCurrentStreak counts consecutive calendar days, ending at
// today, on which at least one closed session met its goal. A day is
// the calendar day of the session's end time in loc. Today with no
// closed session at all does not break the streak as long as yesterday
// qualifies: a fast still in progress must not zero out an existing
// run. A fast that completed today below its goal is a miss and ends
// the run. Open and invalid records are skipped.
func ComputeCurrentStreak(records []*SessionRecord, defaultGoal float64, now time.Time, loc *time.Location) int {
	met := make(map[string]struct{})
	closed := make(map[string]struct{})
	for _, rec := range records {
		if !rec.Valid() {
			continue
		}
		day, ok := rec.Day(loc)
		if !ok {
			continue
		}
		closed[day] = struct{}{}
		if rec.MetGoal(defaultGoal) {
			met[day] = struct{}{}
		}
	}
	if len(met) == 0 {
		return 0
	}

	day := now.In(loc)
	if _, ok := met[day.Format(dayFormat)]; !ok {
		if _, attempted := closed[day.Format(dayFormat)]; attempted {
			return 0
		}
		day = day.AddDate(0, 0, -1)
		if _, ok := met[day.Format(dayFormat)]; !ok {
			return 0
		}
	}

	streak := 0
	for {
		if _, ok := met[day.Format(dayFormat)]; !ok {
			break
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
	return streak
}

// Advance folds a fresh current-streak value into the state, keeping
// Longest monotone.
func (s *StreakState) Advance(current int) {
	s.Current = current
	if current > s.Longest {
		s.Longest = current
	}
}

func (s *StreakState) Reset() {
	s.Current = 0
	s.Longest = 0
}
