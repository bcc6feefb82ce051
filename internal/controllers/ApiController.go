package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"

	"fastd/internal/models"
	"fastd/internal/providers"
	"fastd/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.SessionServiceInterface
	cache   providers.CacheProviderInterface
}

func NewApiController(logger providers.Logger, service services.SessionServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

type startRequest struct {
	At        *time.Time `json:"at"`
	GoalHours *float64   `json:"goal_hours"`
}

type stopRequest struct {
	At *time.Time `json:"at"`
}

type editActiveStartRequest struct {
	NewStart time.Time `json:"new_start"`
}

type backfillRequest struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	GoalHours *float64  `json:"goal_hours"`
}

type editSessionRequest struct {
	NewStart time.Time `json:"new_start"`
	NewEnd   time.Time `json:"new_end"`
}

type goalRequest struct {
	Hours float64 `json:"hours"`
}

type trackerRequest struct {
	Kind  models.TrackerKind `json:"kind"`
	Value float64            `json:"value"`
	Unit  string             `json:"unit"`
	Note  string             `json:"note"`
	At    *time.Time         `json:"at"`
}

type statusResponse struct {
	State          services.SessionState `json:"state"`
	Session        *models.SessionRecord `json:"session,omitempty"`
	ElapsedSeconds float64               `json:"elapsed_seconds"`
	Progress       float64               `json:"progress"`
}

type streaksResponse struct {
	Current int `json:"current"`
	Longest int `json:"longest"`
}

type goalResponse struct {
	Hours float64 `json:"hours"`
}

type mergeResponse struct {
	Merged int `json:"merged"`
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// writeDomainError maps the domain taxonomy to specific statuses so
// the presentation layer can show a precise message, never a generic
// catch-all.
func writeDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyActive),
		errors.Is(err, models.ErrNoActiveSession),
		errors.Is(err, models.ErrDuplicateOpenSession):
		status = http.StatusConflict
	case errors.Is(err, models.ErrInvalidInterval),
		errors.Is(err, models.ErrInvalidGoal),
		errors.Is(err, models.ErrUnknownTrackerKind):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// gen folds the mutation generation into cache keys so a mutation
// invalidates every cached read at once.
func (ac *ApiController) gen() string {
	return strconv.FormatUint(ac.service.Generation(), 10)
}

func orNow(t *time.Time) time.Time {
	if t != nil {
		return *t
	}
	return time.Now()
}

func (ac *ApiController) StartFast(w http.ResponseWriter, r *http.Request) {
	var payload startRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	rec, err := ac.service.Start(orNow(payload.At), payload.GoalHours)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ac.logger.Infof(providers.TypePost, "Fast %s started", rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (ac *ApiController) StopFast(w http.ResponseWriter, r *http.Request) {
	var payload stopRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	rec, err := ac.service.Stop(orNow(payload.At))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	ac.logger.Infof(providers.TypePost, "Fast %s stopped after %s", rec.ID, rec.Duration())
	writeJSON(w, http.StatusOK, rec)
}

func (ac *ApiController) EditActiveStart(w http.ResponseWriter, r *http.Request) {
	var payload editActiveStartRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := ac.service.EditActiveStart(payload.NewStart, time.Now()); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) GetStatus(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	state, rec := ac.service.CurrentState()
	writeJSON(w, http.StatusOK, statusResponse{
		State:          state,
		Session:        rec,
		ElapsedSeconds: ac.service.Elapsed(now).Seconds(),
		Progress:       ac.service.Progress(now),
	})
}

func (ac *ApiController) GetSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	goalMet := cast.ToBool(q.Get("goalMet"))

	var from, to *time.Time
	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		from = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}
		to = &t
	}

	key := "sessions:" + ac.gen() + ":" + q.Encode()
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		return ac.service.History(goalMet, from, to), nil
	})
}

func (ac *ApiController) BackfillSession(w http.ResponseWriter, r *http.Request) {
	var payload backfillRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	rec, err := ac.service.Backfill(payload.Start, payload.End, payload.GoalHours)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (ac *ApiController) EditSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	var payload editSessionRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := ac.service.EditCompleted(id, payload.NewStart, payload.NewEnd); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.service.Delete(id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) GetStreaks(w http.ResponseWriter, r *http.Request) {
	ac.serveFromCacheOrCompute(w, "streaks:"+ac.gen(), func() (any, error) {
		s := ac.service.Streaks()
		return streaksResponse{Current: s.Current, Longest: s.Longest}, nil
	})
}

func (ac *ApiController) GetGoal(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, goalResponse{Hours: ac.service.GoalHours()})
}

func (ac *ApiController) SetGoal(w http.ResponseWriter, r *http.Request) {
	var payload goalRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	if err := ac.service.SetGoalHours(payload.Hours); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SyncImport runs a batch through the same merge path the health
// bridge uses.
func (ac *ApiController) SyncImport(w http.ResponseWriter, r *http.Request) {
	var batch []*models.SessionRecord
	if !decodeBody(w, r, &batch) {
		return
	}
	merged, err := ac.service.MergeExternal(batch)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mergeResponse{Merged: merged})
}

func (ac *ApiController) FullReset(w http.ResponseWriter, r *http.Request) {
	ac.service.FullReset()
	ac.logger.Warnf(providers.TypePost, "Full data reset performed")
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) GetTracker(w http.ResponseWriter, r *http.Request) {
	kind := models.TrackerKind(r.URL.Query().Get("kind"))
	key := "tracker:" + ac.gen() + ":" + string(kind)
	if !models.ValidTrackerKind(kind) {
		writeDomainError(w, models.ErrUnknownTrackerKind)
		return
	}
	ac.serveFromCacheOrCompute(w, key, func() (any, error) {
		return ac.service.ListTracker(kind)
	})
}

func (ac *ApiController) AddTrackerEntry(w http.ResponseWriter, r *http.Request) {
	var payload trackerRequest
	if !decodeBody(w, r, &payload) {
		return
	}
	entry := &models.TrackerEntry{
		Kind:  payload.Kind,
		Value: payload.Value,
		Unit:  payload.Unit,
		Note:  payload.Note,
		At:    orNow(payload.At),
	}
	if err := ac.service.AddTrackerEntry(entry); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}

func (ac *ApiController) DeleteTrackerEntry(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	kind := models.TrackerKind(q.Get("kind"))
	id := q.Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if err := ac.service.DeleteTrackerEntry(kind, id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
