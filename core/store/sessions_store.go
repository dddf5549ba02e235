package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type SessionRecord struct {
	ID         string    `json:"id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	Role       string    `json:"role"`
	OrgUnitID  string    `json:"org_unit_id"`
	CreatedAt  time.Time `json:"created_at"`
	LastSeenAt time.Time `json:"last_seen_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type SessionStore interface {
	SaveSession(ctx context.Context, sess *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	DeleteSession(ctx context.Context, id string) error
	UpdateActivity(ctx context.Context, id string, now time.Time, extendBy time.Duration) error
	DeleteExpired(ctx context.Context, now time.Time) error
}

type sessionsStore struct {
	d dbx
}

func NewSessionsStore(db *sql.DB) SessionStore {
	return &sessionsStore{d: newDBX(db)}
}

func (s *sessionsStore) SaveSession(ctx context.Context, sess *SessionRecord) error {
	_, err := s.d.exec(ctx, `
		INSERT INTO sessions(id, user_id, username, role, org_unit_id, created_at, last_seen_at, expires_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		sess.ID, sess.UserID, sess.Username, sess.Role, sess.OrgUnitID,
		sess.CreatedAt, sess.LastSeenAt, sess.ExpiresAt)
	return err
}

func (s *sessionsStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.d.queryRow(ctx, `
		SELECT id, user_id, username, role, org_unit_id, created_at, last_seen_at, expires_at
		FROM sessions WHERE id=?`, id)
	var sess SessionRecord
	if err := row.Scan(&sess.ID, &sess.UserID, &sess.Username, &sess.Role, &sess.OrgUnitID,
		&sess.CreatedAt, &sess.LastSeenAt, &sess.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = s.DeleteSession(ctx, id)
		return nil, nil
	}
	return &sess, nil
}

func (s *sessionsStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.d.exec(ctx, `DELETE FROM sessions WHERE id=?`, id)
	return err
}

func (s *sessionsStore) UpdateActivity(ctx context.Context, id string, now time.Time, extendBy time.Duration) error {
	_, err := s.d.exec(ctx, `
		UPDATE sessions SET last_seen_at=?, expires_at=? WHERE id=?`,
		now, now.Add(extendBy), id)
	return err
}

func (s *sessionsStore) DeleteExpired(ctx context.Context, now time.Time) error {
	_, err := s.d.exec(ctx, `DELETE FROM sessions WHERE expires_at < ?`, now)
	return err
}
