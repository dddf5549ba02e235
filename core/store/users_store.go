package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	OrgUnitID    string    `json:"org_unit_id"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UsersStore interface {
	Create(ctx context.Context, user *User) (int64, error)
	Get(ctx context.Context, id int64) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
}

type usersStore struct {
	d dbx
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{d: newDBX(db)}
}

func (s *usersStore) Create(ctx context.Context, user *User) (int64, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if s.d.isPG {
		row := s.d.queryRow(ctx, `
			INSERT INTO users(username, full_name, password_hash, role, org_unit_id, active, created_at, updated_at)
			VALUES(?,?,?,?,?,?,?,?) RETURNING id`,
			user.Username, user.FullName, user.PasswordHash, user.Role, user.OrgUnitID, boolToInt(user.Active), now, now)
		if err := row.Scan(&user.ID); err != nil {
			return 0, err
		}
		return user.ID, nil
	}
	res, err := s.d.exec(ctx, `
		INSERT INTO users(username, full_name, password_hash, role, org_unit_id, active, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		user.Username, user.FullName, user.PasswordHash, user.Role, user.OrgUnitID, boolToInt(user.Active), now, now)
	if err != nil {
		return 0, err
	}
	id, _ := res.LastInsertId()
	user.ID = id
	return id, nil
}

const userColumns = `id, username, full_name, password_hash, role, org_unit_id, active, created_at, updated_at`

func (s *usersStore) Get(ctx context.Context, id int64) (*User, error) {
	return s.scanOne(s.d.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=?`, id))
}

func (s *usersStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanOne(s.d.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE username=?`, username))
}

func (s *usersStore) scanOne(row *sql.Row) (*User, error) {
	var u User
	var active int
	if err := row.Scan(&u.ID, &u.Username, &u.FullName, &u.PasswordHash, &u.Role, &u.OrgUnitID, &active, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	u.Active = active == 1
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
