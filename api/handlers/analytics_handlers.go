package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"korgan-irp/core/analytics"
	"korgan-irp/core/orgscope"
	"korgan-irp/core/reports"
	"korgan-irp/core/utils"
)

type AnalyticsHandler struct {
	engine *analytics.Engine
	tax    *reports.Taxonomies
	orgs   OrgDirectory
	logger *utils.Logger
}

func NewAnalyticsHandler(engine *analytics.Engine, tax *reports.Taxonomies, orgs OrgDirectory, logger *utils.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{engine: engine, tax: tax, orgs: orgs, logger: logger}
}

// resolveScope authorizes the requested org and expands it to the id set the
// engine counts over.
func (h *AnalyticsHandler) resolveScope(r *http.Request) ([]string, error) {
	sess := sessionFrom(r)
	caller := callerFor(h.orgs, sess)
	requested := strings.TrimSpace(r.URL.Query().Get("org"))
	set, err := orgscope.ResolveRequestScope(h.orgs.Units(), caller, requested, queryBool(r, "include_children"))
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}

func (h *AnalyticsHandler) Trend(w http.ResponseWriter, r *http.Request) {
	scope, err := h.resolveScope(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	year := time.Now().UTC().Year()
	if raw := strings.TrimSpace(r.URL.Query().Get("year")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1970 || parsed > 9999 {
			writeErrorCode(w, http.StatusBadRequest, "analytics.error.badYear")
			return
		}
		year = parsed
	}
	points, err := h.engine.Trend(r.Context(), scope, year)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"year": year, "points": points})
}

func (h *AnalyticsHandler) Delta(w http.ResponseWriter, r *http.Request) {
	scope, err := h.resolveScope(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	period, err := reports.ParsePeriod(strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	delta, err := h.engine.PeriodDelta(r.Context(), scope, period)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, delta)
}

func (h *AnalyticsHandler) TopCauses(w http.ResponseWriter, r *http.Request) {
	scope, err := h.resolveScope(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	period, err := reports.ParsePeriod(strings.TrimSpace(r.URL.Query().Get("period")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	n := 5
	if raw := strings.TrimSpace(r.URL.Query().Get("n")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			n = parsed
		}
	}
	rows, err := h.engine.TopCauses(r.Context(), scope, period, h.tax.FireCauses, n)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}
