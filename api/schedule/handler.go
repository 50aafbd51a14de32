// Package schedule exposes the rota engine over HTTP.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kilianp07/oncall/core/logger"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/report"
	"github.com/kilianp07/oncall/core/runlog"
	core "github.com/kilianp07/oncall/core/schedule"
	"github.com/kilianp07/oncall/pkg/export"
)

// Service is the part of the schedule service the API serves.
type Service interface {
	OnCallDays(ctx context.Context, m model.Month) ([]string, error)
	Priority(ctx context.Context, teamID string, m model.Month) (model.Groups, error)
	Run(ctx context.Context, m model.Month, teams ...string) (*core.Outcome, error)
	Schedule(ctx context.Context, teamID string, m model.Month) (model.Assignments, error)
	WhatIf(ctx context.Context, teamID string, m model.Month, engineer string, prefs []string, maxShifts int) ([]string, error)
	Runs(ctx context.Context, q runlog.Query) ([]runlog.Record, error)
	Report(ctx context.Context, teamID string, m model.Month) (report.Report, error)
}

var validate = validator.New()

type generateRequest struct {
	Month string   `json:"month" validate:"required"`
	Teams []string `json:"teams" validate:"dive,required"`
}

type whatIfRequest struct {
	Team        string   `json:"team" validate:"required"`
	Month       string   `json:"month" validate:"required"`
	Engineer    string   `json:"engineer" validate:"required"`
	Preferences []string `json:"preferences" validate:"dive,required"`
	MaxShifts   *int     `json:"max_shifts" validate:"required,gte=0"`
}

type whatIfResponse struct {
	Team     string   `json:"team"`
	Month    string   `json:"month"`
	Engineer string   `json:"engineer"`
	Dates    []string `json:"dates"`
}

type daysResponse struct {
	Month string   `json:"month"`
	Days  []string `json:"days"`
}

type priorityResponse struct {
	Team   string       `json:"team"`
	Month  string       `json:"month"`
	Groups model.Groups `json:"groups"`
}

type scheduleResponse struct {
	Team        string            `json:"team"`
	Month       string            `json:"month"`
	Assignments model.Assignments `json:"assignments"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// badRequest marks malformed requests that carry no sentinel error.
var badRequest = errors.New("bad request")

type handler struct {
	svc Service
	log logger.Logger
}

// NewHandler returns the API mux. Requests must include an Authorization
// header with "Bearer <token>" when token is non-empty.
func NewHandler(svc Service, token string, log logger.Logger) http.Handler {
	h := &handler{svc: svc, log: logger.OrNop(log)}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/oncall-days", h.days)
	mux.HandleFunc("GET /api/priority", h.priority)
	mux.HandleFunc("POST /api/schedule/generate", h.generate)
	mux.HandleFunc("GET /api/schedule", h.schedule)
	mux.HandleFunc("GET /api/schedule/runs", h.runs)
	mux.HandleFunc("POST /api/whatif", h.whatIf)
	mux.HandleFunc("GET /api/report", h.report)
	mux.HandleFunc("GET /api/report/chart", h.chart)
	return h.recover(authorize(token, mux))
}

func authorize(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusWriter records whether a response has been started.
type statusWriter struct {
	http.ResponseWriter
	wrote bool
}

func (w *statusWriter) WriteHeader(status int) {
	w.wrote = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wrote = true
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

func (h *handler) recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tags := map[string]string{"component": "api", "path": r.URL.Path}
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w}
		err := monitoring.Guard(tags, func() error {
			next.ServeHTTP(sw, r)
			return nil
		})
		if err != nil {
			h.log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
			// A started response cannot be turned into a 500.
			if !sw.wrote {
				writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
			}
			return
		}
		h.log.Debugw("request served", map[string]any{
			"method": r.Method, "path": r.URL.Path, "duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

func (h *handler) days(w http.ResponseWriter, r *http.Request) {
	m, err := monthParam(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	days, err := h.svc.OnCallDays(r.Context(), m)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, daysResponse{Month: m.String(), Days: days})
}

func (h *handler) priority(w http.ResponseWriter, r *http.Request) {
	team, m, err := teamMonthParams(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	groups, err := h.svc.Priority(r.Context(), team, m)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, priorityResponse{Team: team, Month: m.String(), Groups: groups})
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	m, err := model.ParseMonth(req.Month)
	if err != nil {
		h.fail(w, err)
		return
	}
	out, err := h.svc.Run(r.Context(), m, req.Teams...)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) schedule(w http.ResponseWriter, r *http.Request) {
	team, m, err := teamMonthParams(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	a, err := h.svc.Schedule(r.Context(), team, m)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, scheduleResponse{Team: team, Month: m.String(), Assignments: a})
}

func (h *handler) runs(w http.ResponseWriter, r *http.Request) {
	q := runlog.Query{
		Team:  r.URL.Query().Get("team"),
		Month: r.URL.Query().Get("month"),
		RunID: r.URL.Query().Get("run_id"),
	}
	if q.Month != "" {
		if _, err := model.ParseMonth(q.Month); err != nil {
			h.fail(w, err)
			return
		}
	}
	for key, dst := range map[string]*time.Time{"start": &q.Start, "end": &q.End} {
		if s := r.URL.Query().Get(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				h.fail(w, fmt.Errorf("%w: %s must be RFC3339", badRequest, key))
				return
			}
			*dst = t
		}
	}
	records, err := h.svc.Runs(r.Context(), q)
	if err != nil {
		h.fail(w, err)
		return
	}
	if records == nil {
		records = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) whatIf(w http.ResponseWriter, r *http.Request) {
	var req whatIfRequest
	if err := decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	m, err := model.ParseMonth(req.Month)
	if err != nil {
		h.fail(w, err)
		return
	}
	dates, err := h.svc.WhatIf(r.Context(), req.Team, m, req.Engineer, req.Preferences, *req.MaxShifts)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, whatIfResponse{Team: req.Team, Month: m.String(), Engineer: req.Engineer, Dates: dates})
}

func (h *handler) report(w http.ResponseWriter, r *http.Request) {
	team, m, err := teamMonthParams(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	rep, err := h.svc.Report(r.Context(), team, m)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *handler) chart(w http.ResponseWriter, r *http.Request) {
	team, m, err := teamMonthParams(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	rep, err := h.svc.Report(r.Context(), team, m)
	if err != nil {
		h.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := export.WriteChart(w, rep); err != nil {
		h.log.Errorf("render chart %s/%s: %v", team, m, err)
	}
}

func (h *handler) fail(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "api"})
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// StatusOf maps an error to its HTTP status: invalid input is 400, unknown
// references 404, duplicates 409 and anything else 500.
func StatusOf(err error) int {
	var verr validator.ValidationErrors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, badRequest),
		errors.Is(err, model.ErrInvalidMonth),
		errors.Is(err, model.ErrInvalidDate),
		errors.Is(err, model.ErrInvalidCapacity),
		errors.Is(err, model.ErrInvalidShiftCap):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrUnknownTeam), errors.Is(err, model.ErrUnknownEngineer):
		return http.StatusNotFound
	case errors.Is(err, model.ErrDuplicateEngineer):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", badRequest, err)
	}
	return validate.Struct(dst)
}

func monthParam(r *http.Request) (model.Month, error) {
	s := r.URL.Query().Get("month")
	if s == "" {
		return model.Month{}, fmt.Errorf("%w: month is required", badRequest)
	}
	return model.ParseMonth(s)
}

func teamMonthParams(r *http.Request) (string, model.Month, error) {
	team := r.URL.Query().Get("team")
	if team == "" {
		return "", model.Month{}, fmt.Errorf("%w: team is required", badRequest)
	}
	m, err := monthParam(r)
	return team, m, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
