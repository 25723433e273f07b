package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rbpanama/idbhealth/schema"
	"github.com/sony/gobreaker/v2"
)

// Health is the body of GET /healthz.
type Health struct {
	Status      string     `json:"status"`
	SnapshotID  string     `json:"snapshot_id,omitempty"`
	GeneratedAt *time.Time `json:"generated_at,omitempty"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
	Breaker     string     `json:"breaker"`
}

// Problem is the body of every error response.
type Problem struct {
	Status    int    `json:"status"`
	Detail    string `json:"detail"`
	Instance  string `json:"instance"`
	RequestID string `json:"request_id,omitempty"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		w.Header().Set("X-Request-Id", id)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeJSON(w, r, status, Problem{
		Status:    status,
		Detail:    detail,
		Instance:  r.URL.Path,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

// handleHealth reports "ok" with a snapshot, "degraded" when the last refresh
// failed, and "starting" before the first snapshot. It always answers 200
// so that the process itself is considered alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	snapshot, lastErr, lastAttempt, state := s.status()

	h := Health{Status: "ok", Breaker: state.String()}
	if !lastAttempt.IsZero() {
		h.LastAttempt = &lastAttempt
	}
	if snapshot != nil {
		h.SnapshotID = snapshot.ID
		h.GeneratedAt = &snapshot.GeneratedAt
	}
	switch {
	case lastErr != nil:
		h.Status = "degraded"
		h.LastError = lastErr.Error()
	case snapshot == nil:
		h.Status = "starting"
	}
	writeJSON(w, r, http.StatusOK, h)
}

// currentSnapshot writes a 503 and returns false when nothing has been assessed yet.
func (s *Server) currentSnapshot(w http.ResponseWriter, r *http.Request) (schema.HealthSnapshot, bool) {
	snapshot, err := s.Snapshot()
	if err != nil {
		writeError(w, r, http.StatusServiceUnavailable, err.Error())
		return schema.HealthSnapshot{}, false
	}
	return snapshot, true
}

// handleSnapshot handles GET /api/v1/snapshot.
func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.currentSnapshot(w, r)
	if !ok {
		return
	}
	writeJSON(w, r, http.StatusOK, snapshot)
}

// handleTables handles GET /api/v1/tables?status=Stale,Critical&schema=idb.
func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.currentSnapshot(w, r)
	if !ok {
		return
	}

	statuses, err := schema.ParseStatuses(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tables := schema.FilterTables(snapshot.Tables, statuses, r.URL.Query().Get("schema"))
	writeJSON(w, r, http.StatusOK, tables)
}

// handleTriggers handles GET /api/v1/triggers?country=GTM&no_activity=true.
func (s *Server) handleTriggers(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := s.currentSnapshot(w, r)
	if !ok {
		return
	}

	if code := r.URL.Query().Get("country"); code != "" {
		c, found := snapshot.Country(code)
		if !found {
			writeError(w, r, http.StatusNotFound, "no trigger summary for country "+strconv.Quote(schema.NormalizeCountry(code)))
			return
		}
		writeJSON(w, r, http.StatusOK, c)
		return
	}

	var noActivity *bool
	if raw := r.URL.Query().Get("no_activity"); raw != "" {
		want, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "no_activity must be a boolean")
			return
		}
		noActivity = &want
	}
	countries := schema.FilterCountries(snapshot.Countries, noActivity)
	writeJSON(w, r, http.StatusOK, countries)
}

// handleRefresh handles POST /api/v1/refresh. It runs an assessment synchronously.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	// The assessment is shared state; a client hanging up must not abort it.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), s.refreshTimeout)
	defer cancel()

	snapshot, err := s.Refresh(ctx)
	switch {
	case err == nil:
		writeJSON(w, r, http.StatusOK, snapshot)
	case errors.Is(err, ErrRefreshInProgress):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		writeError(w, r, http.StatusServiceUnavailable, "warehouse unavailable: "+err.Error())
	default:
		writeError(w, r, http.StatusBadGateway, err.Error())
	}
}
