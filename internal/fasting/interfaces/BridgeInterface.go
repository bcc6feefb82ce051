package interfaces

import (
	"time"

	"fastd/internal/models"
)

// BridgeInterface is the boundary to the platform health store. The
// core only fetches through the merge path and pushes closed sessions;
// the bridge never reaches into the history store.
type BridgeInterface interface {
	FetchExternalSessions(since time.Time) ([]*models.SessionRecord, error)
	PushSession(rec *models.SessionRecord) error
}
