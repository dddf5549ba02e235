package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"korgan-irp/config"
	"korgan-irp/core/auth"
	"korgan-irp/core/rbac"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

const sessionCookie = "korgan_session"

type AuthHandler struct {
	cfg            *config.AppConfig
	sessionManager *auth.SessionManager
	policy         *rbac.Policy
	audits         store.AuditStore
	logger         *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, sm *auth.SessionManager, policy *rbac.Policy, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, sessionManager: sm, policy: policy, audits: audits, logger: logger}
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var cred credentials
	if err := json.NewDecoder(r.Body).Decode(&cred); err != nil {
		writeErrorCode(w, http.StatusBadRequest, "common.badRequest")
		return
	}
	cred.Username = strings.ToLower(strings.TrimSpace(cred.Username))
	sess, err := h.sessionManager.Login(r.Context(), cred.Username, cred.Password)
	if err != nil {
		_ = h.audits.Append(r.Context(), cred.Username, "auth.login_failed", err.Error())
		writeDomainError(w, err)
		return
	}
	_ = h.audits.Append(r.Context(), cred.Username, "auth.login", "")
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.cfg.TLSEnabled,
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiresAt,
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        auth.PrincipalFromSession(sess),
		"permissions": h.policy.Permissions(sess.Role),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	if sess != nil {
		_ = h.sessionManager.Delete(r.Context(), sess.ID)
		_ = h.audits.Append(r.Context(), sess.Username, "auth.logout", "")
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	writeJSON(w, http.StatusOK, map[string]any{
		"user":        auth.PrincipalFromSession(sess),
		"permissions": h.policy.Permissions(sess.Role),
	})
}
