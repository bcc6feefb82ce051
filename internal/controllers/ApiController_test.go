package controllers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fastd/internal/models"
	"fastd/internal/services"
	"fastd/internal/structures"
	"fastd/internal/testutil"
)

func newTestController() (*ApiController, services.SessionServiceInterface, *testutil.MockCache) {
	conf := &structures.Config{
		Fasting: structures.FastingConfig{
			DefaultGoalHours: 16,
			TickInterval:     time.Second,
			Timezone:         "UTC",
		},
	}
	service := services.NewSessionService(conf, testutil.NewMockNotifier())
	cache := testutil.NewMockCache()
	return NewApiController(&testutil.MockLogger{}, service, cache), service, cache
}

func doJSON(handler http.HandlerFunc, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestApiController_StartFast(t *testing.T) {
	ac, _, _ := newTestController()

	rec := doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{"at":"2025-03-10T08:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Open())
}

func TestApiController_StartFast_ConflictWhileActive(t *testing.T) {
	ac, _, _ := newTestController()

	rec := doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestApiController_StartFast_BadJSON(t *testing.T) {
	ac, _, _ := newTestController()
	rec := doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{"at":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiController_StopFast(t *testing.T) {
	ac, _, _ := newTestController()

	rec := doJSON(ac.StopFast, http.MethodPost, "/fast/stop", `{}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{"at":"2025-03-10T08:00:00Z"}`)

	rec = doJSON(ac.StopFast, http.MethodPost, "/fast/stop", `{"at":"2025-03-10T07:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.StopFast, http.MethodPost, "/fast/stop", `{"at":"2025-03-11T02:00:00Z"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var closed models.SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &closed))
	assert.Equal(t, 18*time.Hour, closed.Duration())
}

func TestApiController_GetStatus(t *testing.T) {
	ac, _, _ := newTestController()

	rec := doJSON(ac.GetStatus, http.MethodGet, "/fast/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var status statusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, services.StateIdle, status.State)
	assert.Nil(t, status.Session)
	assert.Equal(t, 0.0, status.Progress)

	doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{}`)
	rec = doJSON(ac.GetStatus, http.MethodGet, "/fast/status", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, services.StateActive, status.State)
	require.NotNil(t, status.Session)
}

func TestApiController_EditActiveStart(t *testing.T) {
	ac, svc, _ := newTestController()

	rec := doJSON(ac.EditActiveStart, http.MethodPut, "/fast/active/start", `{"new_start":"2025-03-10T02:00:00Z"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{}`)
	newStart := time.Now().Add(-6 * time.Hour).UTC().Format(time.RFC3339)
	rec = doJSON(ac.EditActiveStart, http.MethodPut, "/fast/active/start", `{"new_start":"`+newStart+`"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	assert.InDelta(t, (6 * time.Hour).Seconds(), svc.Elapsed(time.Now()).Seconds(), 5)
}

func TestApiController_BackfillAndSessions(t *testing.T) {
	ac, _, cache := newTestController()

	rec := doJSON(ac.BackfillSession, http.MethodPost, "/sessions",
		`{"start":"2025-03-08T18:00:00Z","end":"2025-03-09T12:00:00Z"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(ac.BackfillSession, http.MethodPost, "/sessions",
		`{"start":"2025-03-09T12:00:00Z","end":"2025-03-09T12:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.GetSessions, http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []*models.SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	assert.Len(t, sessions, 1)
	assert.Len(t, cache.Data, 1)
}

func TestApiController_GetSessions_GoalMetFilter(t *testing.T) {
	ac, _, _ := newTestController()

	doJSON(ac.BackfillSession, http.MethodPost, "/sessions",
		`{"start":"2025-03-08T18:00:00Z","end":"2025-03-09T12:00:00Z"}`)
	doJSON(ac.BackfillSession, http.MethodPost, "/sessions",
		`{"start":"2025-03-10T00:00:00Z","end":"2025-03-10T08:00:00Z"}`)

	rec := doJSON(ac.GetSessions, http.MethodGet, "/sessions?goalMet=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sessions []*models.SessionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sessions))
	require.Len(t, sessions, 1)
	assert.Equal(t, 18*time.Hour, sessions[0].Duration())
}

func TestApiController_GetSessions_BadRangeParam(t *testing.T) {
	ac, _, _ := newTestController()
	rec := doJSON(ac.GetSessions, http.MethodGet, "/sessions?from=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestApiController_EditSession(t *testing.T) {
	ac, svc, _ := newTestController()

	rec := doJSON(ac.EditSession, http.MethodPut, "/session",
		`{"new_start":"2025-03-08T18:00:00Z","new_end":"2025-03-09T12:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.EditSession, http.MethodPut, "/session?id=missing",
		`{"new_start":"2025-03-08T18:00:00Z","new_end":"2025-03-09T12:00:00Z"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	end := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	created, err := svc.Backfill(end.Add(-10*time.Hour), end, nil)
	require.NoError(t, err)

	rec = doJSON(ac.EditSession, http.MethodPut, "/session?id="+created.ID,
		`{"new_start":"2025-03-08T18:00:00Z","new_end":"2025-03-09T12:00:00Z"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	got := svc.History(false, nil, nil)
	require.Len(t, got, 1)
	assert.Equal(t, 18*time.Hour, got[0].Duration())
}

func TestApiController_DeleteSession(t *testing.T) {
	ac, svc, _ := newTestController()

	rec := doJSON(ac.DeleteSession, http.MethodDelete, "/session", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.DeleteSession, http.MethodDelete, "/session?id=missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	end := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	created, err := svc.Backfill(end.Add(-16*time.Hour), end, nil)
	require.NoError(t, err)

	rec = doJSON(ac.DeleteSession, http.MethodDelete, "/session?id="+created.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, svc.SessionCount())
}

func TestApiController_Streaks(t *testing.T) {
	ac, svc, cache := newTestController()

	end := time.Now().UTC().Add(-time.Hour)
	_, err := svc.Backfill(end.Add(-18*time.Hour), end, nil)
	require.NoError(t, err)

	rec := doJSON(ac.GetStreaks, http.MethodGet, "/streaks", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var streaks streaksResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &streaks))
	assert.Equal(t, 1, streaks.Current)
	assert.Equal(t, 1, streaks.Longest)
	assert.Len(t, cache.Data, 1)
}

func TestApiController_Goal(t *testing.T) {
	ac, _, _ := newTestController()

	rec := doJSON(ac.GetGoal, http.MethodGet, "/goal", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var goal goalResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goal))
	assert.Equal(t, 16.0, goal.Hours)

	rec = doJSON(ac.SetGoal, http.MethodPut, "/goal", `{"hours":-2}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.SetGoal, http.MethodPut, "/goal", `{"hours":18}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(ac.GetGoal, http.MethodGet, "/goal", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &goal))
	assert.Equal(t, 18.0, goal.Hours)
}

func TestApiController_SyncImport_Idempotent(t *testing.T) {
	ac, _, _ := newTestController()
	batch := `[{"start_time":"2025-03-08T18:00:00Z","end_time":"2025-03-09T12:00:00Z"}]`

	rec := doJSON(ac.SyncImport, http.MethodPost, "/sync/import", batch)
	require.Equal(t, http.StatusOK, rec.Code)

	var result mergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Merged)

	rec = doJSON(ac.SyncImport, http.MethodPost, "/sync/import", batch)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 0, result.Merged)
}

func TestApiController_SyncImport_NullElements(t *testing.T) {
	ac, svc, _ := newTestController()

	rec := doJSON(ac.SyncImport, http.MethodPost, "/sync/import",
		`[null,{"start_time":"2025-03-08T18:00:00Z","end_time":"2025-03-09T12:00:00Z"},null]`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result mergeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, svc.SessionCount())
}

func TestApiController_FullReset(t *testing.T) {
	ac, svc, _ := newTestController()
	doJSON(ac.StartFast, http.MethodPost, "/fast/start", `{}`)

	rec := doJSON(ac.FullReset, http.MethodPost, "/reset", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, svc.SessionCount())
}

func TestApiController_Tracker(t *testing.T) {
	ac, _, _ := newTestController()

	rec := doJSON(ac.AddTrackerEntry, http.MethodPost, "/tracker", `{"kind":"steps","value":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.AddTrackerEntry, http.MethodPost, "/tracker", `{"kind":"weight","value":81.4,"unit":"kg"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	var entry models.TrackerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entry))
	require.NotEmpty(t, entry.ID)

	rec = doJSON(ac.GetTracker, http.MethodGet, "/tracker?kind=weight", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var entries []*models.TrackerEntry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
	assert.Len(t, entries, 1)

	rec = doJSON(ac.GetTracker, http.MethodGet, "/tracker?kind=steps", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(ac.DeleteTrackerEntry, http.MethodDelete, "/tracker/entry?kind=weight&id="+entry.ID, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
