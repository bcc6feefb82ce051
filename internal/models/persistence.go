package models

// StorageV2 is the current on-disk envelope with an explicit version
// field. V1 files (a bare session list, no envelope) unmarshal via the
// fallback path in the file manager.
type StorageV2 struct {
	Version   int                             `json:"version"`
	Sessions  []*SessionRecord                `json:"sessions"`
	Streaks   StreakState                     `json:"streaks"`
	GoalHours float64                         `json:"goal_hours"`
	Trackers  map[TrackerKind][]*TrackerEntry `json:"trackers,omitempty"`
}

const StorageVersion = 2
