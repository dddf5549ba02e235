// Package auth is the pass-through glue between the HTTP layer and the
// reporting core: it verifies credentials, keeps sessions and supplies the
// caller principal the scope resolver consumes.
package auth

import (
	"context"
	"errors"

	"github.com/gofrs/uuid/v5"
	"golang.org/x/crypto/bcrypt"

	"korgan-irp/config"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

type contextKey string

// SessionContextKey carries the *store.SessionRecord of the authenticated
// caller through the request context.
const SessionContextKey contextKey = "session"

// Principal is the caller identity the core acts on behalf of.
type Principal struct {
	UserID    int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	OrgUnitID string `json:"orgUnitId"`
}

func PrincipalFromSession(sess *store.SessionRecord) Principal {
	return Principal{
		UserID:    sess.UserID,
		Username:  sess.Username,
		Role:      sess.Role,
		OrgUnitID: sess.OrgUnitID,
	}
}

var (
	ErrInvalidCredentials = errors.New("auth.error.invalidCredentials")
	ErrUserInactive       = errors.New("auth.error.userInactive")
)

// dummyHash is a throwaway bcrypt hash compared against when the username
// does not exist, so both login failure paths take comparable time.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

type SessionManager struct {
	store  store.SessionStore
	users  store.UsersStore
	cfg    *config.AppConfig
	logger *utils.Logger
}

func NewSessionManager(sessions store.SessionStore, users store.UsersStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	return &SessionManager{store: sessions, users: users, cfg: cfg, logger: logger}
}

// Login verifies username/password and opens a session for the user.
func (m *SessionManager) Login(ctx context.Context, username, password string) (*store.SessionRecord, error) {
	user, err := m.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// burn a comparison anyway so missing users cost the same
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.Active {
		return nil, ErrUserInactive
	}
	return m.Create(ctx, user)
}

// Create opens a session for an already-verified user.
func (m *SessionManager) Create(ctx context.Context, user *store.User) (*store.SessionRecord, error) {
	now := utils.NowUTC()
	sess := &store.SessionRecord{
		ID:         uuid.Must(uuid.NewV4()).String(),
		UserID:     user.ID,
		Username:   user.Username,
		Role:       user.Role,
		OrgUnitID:  user.OrgUnitID,
		CreatedAt:  now,
		LastSeenAt: now,
		ExpiresAt:  now.Add(m.cfg.EffectiveSessionTTL()),
	}
	if err := m.store.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Get resolves a session id; nil for unknown or expired sessions.
func (m *SessionManager) Get(ctx context.Context, sessID string) (*store.SessionRecord, error) {
	return m.store.GetSession(ctx, sessID)
}

func (m *SessionManager) Refresh(ctx context.Context, sessID string) error {
	return m.store.UpdateActivity(ctx, sessID, utils.NowUTC(), m.cfg.EffectiveSessionTTL())
}

func (m *SessionManager) Delete(ctx context.Context, sessID string) error {
	return m.store.DeleteSession(ctx, sessID)
}

// HashPassword wraps bcrypt with the default cost; used by account seeding.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
