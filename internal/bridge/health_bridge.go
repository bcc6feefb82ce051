package bridge

import (
	"bytes"
	"fmt"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"

	"fastd/internal/fasting/interfaces"
	"fastd/internal/models"
	"fastd/internal/providers"
	"fastd/internal/structures"
)

const defaultBridgeTimeout = 10 * time.Second

// HTTPHealthBridge talks to the platform health store over a local
// HTTP JSON endpoint. Fetched records come back tagged externalSync;
// the caller feeds them through the merge path, never into the store
// directly.
type HTTPHealthBridge struct {
	baseURL string
	client  *http.Client
	logger  providers.Logger
}

func NewHealthBridge(conf *structures.Config, logger providers.Logger) interfaces.BridgeInterface {
	if !conf.HealthSync.Enabled || conf.HealthSync.URL == "" {
		logger.Infof(providers.TypeApp, "Health sync disabled")
		return &noopBridge{}
	}

	timeout := conf.HealthSync.Timeout
	if timeout <= 0 {
		timeout = defaultBridgeTimeout
	}
	return &HTTPHealthBridge{
		baseURL: conf.HealthSync.URL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

func (b *HTTPHealthBridge) FetchExternalSessions(since time.Time) ([]*models.SessionRecord, error) {
	endpoint := b.baseURL + "/sessions"
	if !since.IsZero() {
		endpoint += "?since=" + url.QueryEscape(since.Format(time.RFC3339))
	}

	resp, err := b.client.Get(endpoint)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health store returned status %d", resp.StatusCode)
	}

	var records []*models.SessionRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, err
	}
	// Null array elements decode to nil records; drop them here so the
	// merge path never sees one.
	out := make([]*models.SessionRecord, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		rec.Source = models.SourceExternalSync
		out = append(out, rec)
	}
	return out, nil
}

func (b *HTTPHealthBridge) PushSession(rec *models.SessionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	resp, err := b.client.Post(b.baseURL+"/sessions", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("health store returned status %d", resp.StatusCode)
	}
	return nil
}

type noopBridge struct{}

func (n *noopBridge) FetchExternalSessions(_ time.Time) ([]*models.SessionRecord, error) {
	return nil, nil
}

func (n *noopBridge) PushSession(_ *models.SessionRecord) error { return nil }
