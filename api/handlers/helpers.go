package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"korgan-irp/core/auth"
	"korgan-irp/core/orgscope"
	"korgan-irp/core/reports"
	"korgan-irp/core/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]any{"error": map[string]string{"code": code}})
}

// writeDomainError maps core errors onto the HTTP surface. Scope violations
// are 403, malformed input 400, blocked submissions 422 with the findings.
func writeDomainError(w http.ResponseWriter, err error) {
	var scopeErr *orgscope.ScopeViolation
	if errors.As(err, &scopeErr) {
		writeErrorCode(w, http.StatusForbidden, "orgscope.error.scopeViolation")
		return
	}
	var blocked *reports.ErrSubmissionBlocked
	if errors.As(err, &blocked) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  map[string]string{"code": "reports.error.submissionBlocked"},
			"errors": blocked.Errors,
		})
		return
	}
	switch {
	case errors.Is(err, reports.ErrUnknownForm):
		writeErrorCode(w, http.StatusBadRequest, "reports.error.unknownForm")
	case errors.Is(err, reports.ErrMalformedPeriod):
		writeErrorCode(w, http.StatusBadRequest, "reports.error.malformedPeriod")
	case errors.Is(err, reports.ErrUnknownStatus):
		writeErrorCode(w, http.StatusBadRequest, "reports.error.unknownStatus")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeErrorCode(w, http.StatusUnauthorized, "auth.error.invalidCredentials")
	case errors.Is(err, auth.ErrUserInactive):
		writeErrorCode(w, http.StatusForbidden, "auth.error.userInactive")
	default:
		writeErrorCode(w, http.StatusInternalServerError, "common.internalError")
	}
}

func sessionFrom(r *http.Request) *store.SessionRecord {
	val := r.Context().Value(auth.SessionContextKey)
	if val == nil {
		return nil
	}
	return val.(*store.SessionRecord)
}

// OrgDirectory is the snapshot handlers derive caller tiers from.
type OrgDirectory interface {
	Units() []store.OrgUnit
	Get(id string) *store.OrgUnit
}

// callerFor resolves the session's organizational identity. The tier comes
// from the org directory; the role string is a fallback for units created
// after the last snapshot refresh.
func callerFor(orgs OrgDirectory, sess *store.SessionRecord) orgscope.Caller {
	caller := orgscope.Caller{OrgUnitID: sess.OrgUnitID}
	if unit := orgs.Get(sess.OrgUnitID); unit != nil {
		caller.Tier = unit.Tier
		return caller
	}
	switch sess.Role {
	case "mchs":
		caller.Tier = store.TierMCHS
	case "dchs":
		caller.Tier = store.TierDCHS
	default:
		caller.Tier = store.TierDistrict
	}
	return caller
}

func queryBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(key))) {
	case "1", "true", "yes":
		return true
	}
	return false
}
