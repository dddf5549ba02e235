package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"korgan-irp/config"
	"korgan-irp/core/reports"
	"korgan-irp/core/utils"
)

type ReportsHandler struct {
	cfg    *config.AppConfig
	svc    *reports.Service
	orgs   OrgDirectory
	logger *utils.Logger
}

func NewReportsHandler(cfg *config.AppConfig, svc *reports.Service, orgs OrgDirectory, logger *utils.Logger) *ReportsHandler {
	return &ReportsHandler{cfg: cfg, svc: svc, orgs: orgs, logger: logger}
}

// Aggregate computes a form live for one org/period. Numbers are never read
// from storage; only the completion status is.
func (h *ReportsHandler) Aggregate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()
	req := reports.AggregateRequest{
		Caller:          callerFor(h.orgs, sess),
		RequestedOrgID:  strings.TrimSpace(q.Get("org")),
		Period:          strings.TrimSpace(q.Get("period")),
		Form:            strings.TrimSpace(q.Get("form")),
		IncludeChildren: queryBool(r, "include_children"),
		Region:          strings.TrimSpace(q.Get("region")),
	}
	result, err := h.svc.Aggregate(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"org":    result.OrgUnitID,
		"period": result.Period.String(),
		"form":   result.Report.FormID(),
		"status": result.Status,
		"data":   json.RawMessage(dataOrEmpty(result.Data)),
		"rows":   result.Report.Payload(),
	})
}

func dataOrEmpty(data string) string {
	if strings.TrimSpace(data) == "" {
		return "{}"
	}
	return data
}

type validatePayload struct {
	Form string         `json:"form"`
	Rows reports.RowMap `json:"rows"`
}

func (h *ReportsHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var payload validatePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "common.badRequest")
		return
	}
	errs, err := h.svc.Validate(payload.Form, payload.Rows)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if errs == nil {
		errs = []reports.ValidationError{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"errors": errs})
}

type savePayload struct {
	Org    string          `json:"org"`
	Period string          `json:"period"`
	Form   string          `json:"form"`
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Rows   reports.RowMap  `json:"rows"`
}

func (h *ReportsHandler) Save(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	var payload savePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "common.badRequest")
		return
	}
	form, err := h.svc.Save(r.Context(), reports.SaveRequest{
		Caller:    callerFor(h.orgs, sess),
		Username:  sess.Username,
		OrgUnitID: strings.TrimSpace(payload.Org),
		Period:    strings.TrimSpace(payload.Period),
		Form:      strings.TrimSpace(payload.Form),
		Status:    strings.TrimSpace(payload.Status),
		Data:      string(payload.Data),
		Rows:      payload.Rows,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"org":        form.OrgUnitID,
		"period":     form.Period,
		"form":       form.Form,
		"status":     form.Status,
		"updated_at": form.UpdatedAt,
	})
}

func (h *ReportsHandler) Status(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	q := r.URL.Query()
	var formIDs []string
	if raw := strings.TrimSpace(q.Get("forms")); raw != "" {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				formIDs = append(formIDs, id)
			}
		}
	}
	if max := h.cfg.Reports.MaxBulkForms; max > 0 && len(formIDs) > max {
		writeErrorCode(w, http.StatusBadRequest, "reports.error.tooManyForms")
		return
	}
	statuses, err := h.svc.Status(r.Context(), callerFor(h.orgs, sess),
		strings.TrimSpace(q.Get("org")), strings.TrimSpace(q.Get("period")), formIDs)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"forms": statuses})
}
