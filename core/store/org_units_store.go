package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Organizational role tiers. Exactly one MCHS unit exists (the root); DCHS
// units are regional, DISTRICT units are leaves.
const (
	TierMCHS     = "MCHS"
	TierDCHS     = "DCHS"
	TierDistrict = "DISTRICT"
)

type OrgUnit struct {
	ID        string    `json:"id"`
	ParentID  *string   `json:"parent_id,omitempty"`
	Name      string    `json:"name"`
	Tier      string    `json:"tier"`
	CreatedAt time.Time `json:"created_at"`
}

type OrgUnitsStore interface {
	Create(ctx context.Context, unit *OrgUnit) error
	Get(ctx context.Context, id string) (*OrgUnit, error)
	List(ctx context.Context) ([]OrgUnit, error)
}

type orgUnitsStore struct {
	d dbx
}

func NewOrgUnitsStore(db *sql.DB) OrgUnitsStore {
	return &orgUnitsStore{d: newDBX(db)}
}

func (s *orgUnitsStore) Create(ctx context.Context, unit *OrgUnit) error {
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = time.Now().UTC()
	}
	_, err := s.d.exec(ctx, `
		INSERT INTO org_units(id, parent_id, name, tier, created_at)
		VALUES(?,?,?,?,?)`,
		unit.ID, unit.ParentID, unit.Name, unit.Tier, unit.CreatedAt)
	return err
}

func (s *orgUnitsStore) Get(ctx context.Context, id string) (*OrgUnit, error) {
	row := s.d.queryRow(ctx, `
		SELECT id, parent_id, name, tier, created_at
		FROM org_units WHERE id=?`, id)
	var u OrgUnit
	if err := row.Scan(&u.ID, &u.ParentID, &u.Name, &u.Tier, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (s *orgUnitsStore) List(ctx context.Context) ([]OrgUnit, error) {
	rows, err := s.d.query(ctx, `
		SELECT id, parent_id, name, tier, created_at
		FROM org_units ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var units []OrgUnit
	for rows.Next() {
		var u OrgUnit
		if err := rows.Scan(&u.ID, &u.ParentID, &u.Name, &u.Tier, &u.CreatedAt); err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}
