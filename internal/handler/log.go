package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/mleitner/wardtrack/internal/domain"
)

// addLogRequest is the body of POST /logs. Department is optional — when
// omitted it is resolved from the tag.
type addLogRequest struct {
	EmployeeID string `json:"employee_id"`
	Tag        string `json:"tag"`
	Department string `json:"department,omitempty"`
	Status     string `json:"status"`
}

// pagination echoes the paging state of a list response.
type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

// handleAddLog handles POST /logs: the check-in/check-out submission.
func (s *Server) handleAddLog(w http.ResponseWriter, r *http.Request) {
	var body addLogRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRequestError(w, "invalid JSON body")
		return
	}

	status, err := domain.ParseStatus(body.Status)
	if err != nil {
		writeRequestError(w, unwrapMessage(err))
		return
	}

	event, err := s.logs.AddLog(r.Context(), body.EmployeeID, body.Tag, body.Department, status)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, event)
}

// handleListLogs handles GET /logs: the filtered history view.
// Filters: ?tag= ?department= ?employee_id= ?from= ?to= (RFC 3339),
// paging: ?page= ?limit=.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := domain.EventFilter{
		Tag:        q.Get("tag"),
		Department: q.Get("department"),
		EmployeeID: q.Get("employee_id"),
	}

	var err error
	if filter.From, err = parseTimeParam(q.Get("from")); err != nil {
		writeRequestError(w, "from must be an RFC 3339 timestamp")
		return
	}
	if filter.To, err = parseTimeParam(q.Get("to")); err != nil {
		writeRequestError(w, "to must be an RFC 3339 timestamp")
		return
	}

	params := domain.NewPaginationParams(parseIntParam(q.Get("page")), parseIntParam(q.Get("limit")))

	events, total, err := s.logs.History(r.Context(), filter, params)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data":       events,
		"pagination": pagination{Page: params.Page, Limit: params.Limit, Total: total},
	})
}

// handleDeleteLogs handles DELETE /logs: administrative bulk removal by id.
func (s *Server) handleDeleteLogs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs []uuid.UUID `json:"ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeRequestError(w, "invalid JSON body")
		return
	}

	deleted, err := s.logs.DeleteLogs(r.Context(), body.IDs)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted})
}

// handleSummary handles GET /logs/summary: per-department daily counts.
// ?from= and ?to= are dates (2006-01-02); the default window is the last
// seven days, and to is inclusive.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	to := time.Now()
	from := to.AddDate(0, 0, -7)

	if v := q.Get("from"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeRequestError(w, "from must be a date (2006-01-02)")
			return
		}
		from = d
	}
	if v := q.Get("to"); v != "" {
		d, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeRequestError(w, "to must be a date (2006-01-02)")
			return
		}
		to = d.AddDate(0, 0, 1) // include the whole end day
	}

	summaries, err := s.logs.DailySummary(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": summaries})
}

// handleCurrentStatus handles GET /status/{tag}.
func (s *Server) handleCurrentStatus(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")

	status := s.logs.CurrentStatus(r.Context(), tag)

	writeJSON(w, http.StatusOK, map[string]any{"tag": tag, "status": status})
}

// parseTimeParam parses an optional RFC 3339 query parameter.
func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// parseIntParam parses an optional positive integer query parameter,
// returning nil for anything unusable so pagination falls back to defaults.
func parseIntParam(v string) *int {
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return nil
	}
	return &n
}
