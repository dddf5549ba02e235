package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	ReportStatusDraft     = "draft"
	ReportStatusSubmitted = "submitted"
)

// ReportForm tracks completion state for one (org, period, form) triple. It
// deliberately holds no computed numbers: aggregates are recomputed live on
// every read, the data blob is bookkeeping only.
type ReportForm struct {
	ID        int64     `json:"id"`
	OrgUnitID string    `json:"org_unit_id"`
	Period    string    `json:"period"`
	Form      string    `json:"form"`
	Status    string    `json:"status"`
	Data      string    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ReportFormsStore interface {
	Upsert(ctx context.Context, form *ReportForm) error
	Get(ctx context.Context, orgUnitID, period, formID string) (*ReportForm, error)
	GetMany(ctx context.Context, orgUnitID, period string, formIDs []string) ([]ReportForm, error)
}

type reportFormsStore struct {
	d dbx
}

func NewReportFormsStore(db *sql.DB) ReportFormsStore {
	return &reportFormsStore{d: newDBX(db)}
}

// Upsert inserts or fully replaces the row keyed by the unique triple.
// Last writer wins; there is no merge.
func (s *reportFormsStore) Upsert(ctx context.Context, form *ReportForm) error {
	now := time.Now().UTC()
	if form.Data == "" {
		form.Data = "{}"
	}
	res, err := s.d.exec(ctx, `
		UPDATE report_forms
		SET status=?, data=?, updated_at=?
		WHERE org_unit_id=? AND period=? AND form=?`,
		form.Status, form.Data, now, form.OrgUnitID, form.Period, form.Form)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		form.UpdatedAt = now
		return nil
	}
	form.CreatedAt = now
	form.UpdatedAt = now
	_, err = s.d.exec(ctx, `
		INSERT INTO report_forms(org_unit_id, period, form, status, data, created_at, updated_at)
		VALUES(?,?,?,?,?,?,?)`,
		form.OrgUnitID, form.Period, form.Form, form.Status, form.Data, form.CreatedAt, form.UpdatedAt)
	return err
}

const reportFormColumns = `id, org_unit_id, period, form, status, data, created_at, updated_at`

func (s *reportFormsStore) Get(ctx context.Context, orgUnitID, period, formID string) (*ReportForm, error) {
	row := s.d.queryRow(ctx, `
		SELECT `+reportFormColumns+` FROM report_forms
		WHERE org_unit_id=? AND period=? AND form=?`, orgUnitID, period, formID)
	var f ReportForm
	if err := row.Scan(&f.ID, &f.OrgUnitID, &f.Period, &f.Form, &f.Status, &f.Data, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &f, nil
}

func (s *reportFormsStore) GetMany(ctx context.Context, orgUnitID, period string, formIDs []string) ([]ReportForm, error) {
	if len(formIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(formIDs)), ",")
	args := []any{orgUnitID, period}
	for _, id := range formIDs {
		args = append(args, id)
	}
	rows, err := s.d.query(ctx, `
		SELECT `+reportFormColumns+` FROM report_forms
		WHERE org_unit_id=? AND period=? AND form IN (`+placeholders+`)
		ORDER BY form`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ReportForm
	for rows.Next() {
		var f ReportForm
		if err := rows.Scan(&f.ID, &f.OrgUnitID, &f.Period, &f.Form, &f.Status, &f.Data, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	return items, rows.Err()
}
