package reports

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"korgan-irp/core/metrics"
	"korgan-irp/core/orgscope"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

// ErrUnknownStatus rejects a save with a status outside draft/submitted.
var ErrUnknownStatus = errors.New("reports.error.unknownStatus")

// OrgDirectory is the org-tree snapshot the service resolves scopes against.
type OrgDirectory interface {
	Units() []store.OrgUnit
	Get(id string) *store.OrgUnit
}

// Service ties scope resolution, aggregation, validation and completion
// bookkeeping together behind one surface the HTTP layer calls.
type Service struct {
	orgs       OrgDirectory
	aggregator *Aggregator
	validator  *Validator
	forms      store.ReportFormsStore
	audits     store.AuditStore
	metrics    *metrics.Metrics
	logger     *utils.Logger
}

func NewService(orgs OrgDirectory, aggregator *Aggregator, validator *Validator, forms store.ReportFormsStore, audits store.AuditStore, m *metrics.Metrics, logger *utils.Logger) *Service {
	return &Service{
		orgs:       orgs,
		aggregator: aggregator,
		validator:  validator,
		forms:      forms,
		audits:     audits,
		metrics:    m,
		logger:     logger,
	}
}

// AggregateRequest is one report read: who asks, for which unit, which month
// and form. RequestedOrgID empty means the caller's own unit.
type AggregateRequest struct {
	Caller          orgscope.Caller
	RequestedOrgID  string
	Period          string
	Form            string
	IncludeChildren bool
	Region          string
}

// AggregateResult pairs the computed rows with the persisted completion
// state of the triple, if any.
type AggregateResult struct {
	OrgUnitID string
	Period    Period
	Report    Report
	Status    string
	Data      string
}

// Aggregate authorizes the request, expands its org scope and computes the
// form. The completion status ships alongside so the client needs one call.
func (s *Service) Aggregate(ctx context.Context, req AggregateRequest) (*AggregateResult, error) {
	if !KnownForm(req.Form) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, req.Form)
	}
	period, err := ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	orgID := req.RequestedOrgID
	if orgID == "" {
		orgID = req.Caller.OrgUnitID
	}
	scopeSet, err := orgscope.ResolveRequestScope(s.orgs.Units(), req.Caller, req.RequestedOrgID, req.IncludeChildren)
	if err != nil {
		s.metrics.IncrementScopeViolation()
		return nil, err
	}
	started := time.Now()
	report, err := s.aggregator.Aggregate(ctx, scopeIDs(scopeSet), period, req.Form, req.Region)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveAggregate(req.Form, time.Since(started))
	result := &AggregateResult{OrgUnitID: orgID, Period: period, Report: report}
	persisted, err := s.forms.Get(ctx, orgID, period.String(), req.Form)
	if err != nil {
		return nil, err
	}
	if persisted != nil {
		result.Status = persisted.Status
		result.Data = persisted.Data
	} else {
		result.Status = store.ReportStatusDraft
	}
	return result, nil
}

// Validate runs the form rules over a client-supplied row map.
func (s *Service) Validate(form string, rows RowMap) ([]ValidationError, error) {
	if !KnownForm(form) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, form)
	}
	errs := s.validator.Validate(form, rows)
	s.metrics.AddValidationErrors(form, len(errs))
	return errs, nil
}

// SaveRequest persists completion state for one triple. Rows is consulted
// only when Status is submitted: submission is gated on zero findings.
type SaveRequest struct {
	Caller    orgscope.Caller
	Username  string
	OrgUnitID string
	Period    string
	Form      string
	Status    string
	Data      string
	Rows      RowMap
}

// ErrSubmissionBlocked wraps the validation findings that stopped a
// draft-to-submitted transition.
type ErrSubmissionBlocked struct {
	Errors []ValidationError
}

func (e *ErrSubmissionBlocked) Error() string {
	return fmt.Sprintf("reports.error.submissionBlocked: %d validation errors", len(e.Errors))
}

// Save upserts the triple, full replace, last writer wins. Submitting
// requires the supplied rows to validate clean.
func (s *Service) Save(ctx context.Context, req SaveRequest) (*store.ReportForm, error) {
	if !KnownForm(req.Form) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, req.Form)
	}
	period, err := ParsePeriod(req.Period)
	if err != nil {
		return nil, err
	}
	if req.Status != store.ReportStatusDraft && req.Status != store.ReportStatusSubmitted {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStatus, req.Status)
	}
	orgID := req.OrgUnitID
	if orgID == "" {
		orgID = req.Caller.OrgUnitID
	}
	if err := orgscope.AssertOrgScope(s.orgs.Units(), req.Caller, orgID); err != nil {
		s.metrics.IncrementScopeViolation()
		return nil, err
	}
	if req.Status == store.ReportStatusSubmitted {
		if errs := s.validator.Validate(req.Form, req.Rows); len(errs) > 0 {
			s.metrics.AddValidationErrors(req.Form, len(errs))
			return nil, &ErrSubmissionBlocked{Errors: errs}
		}
	}
	form := &store.ReportForm{
		OrgUnitID: orgID,
		Period:    period.String(),
		Form:      req.Form,
		Status:    req.Status,
		Data:      req.Data,
	}
	if err := s.forms.Upsert(ctx, form); err != nil {
		return nil, err
	}
	s.metrics.IncrementSave(req.Status)
	if s.audits != nil {
		_ = s.audits.Append(ctx, req.Username, "reports.save",
			fmt.Sprintf("org=%s period=%s form=%s status=%s", orgID, form.Period, req.Form, req.Status))
	}
	return form, nil
}

// FormStatus is one entry in the bulk completion view.
type FormStatus struct {
	Form      string `json:"form"`
	Status    string `json:"status"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// Status reports completion per form for one (org, period). Forms never
// saved read as draft.
func (s *Service) Status(ctx context.Context, caller orgscope.Caller, orgUnitID, periodStr string, formIDs []string) ([]FormStatus, error) {
	period, err := ParsePeriod(periodStr)
	if err != nil {
		return nil, err
	}
	if len(formIDs) == 0 {
		formIDs = AllForms
	}
	for _, id := range formIDs {
		if !KnownForm(id) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownForm, id)
		}
	}
	if orgUnitID == "" {
		orgUnitID = caller.OrgUnitID
	}
	if err := orgscope.AssertOrgScope(s.orgs.Units(), caller, orgUnitID); err != nil {
		s.metrics.IncrementScopeViolation()
		return nil, err
	}
	saved, err := s.forms.GetMany(ctx, orgUnitID, period.String(), formIDs)
	if err != nil {
		return nil, err
	}
	byForm := make(map[string]*store.ReportForm, len(saved))
	for i := range saved {
		byForm[saved[i].Form] = &saved[i]
	}
	out := make([]FormStatus, 0, len(formIDs))
	for _, id := range formIDs {
		entry := FormStatus{Form: id, Status: store.ReportStatusDraft}
		if f, ok := byForm[id]; ok {
			entry.Status = f.Status
			entry.UpdatedAt = f.UpdatedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, entry)
	}
	return out, nil
}

func scopeIDs(set map[string]struct{}) []string {
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
