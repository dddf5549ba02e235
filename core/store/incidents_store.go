package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Incident types recognized by the intake forms.
const (
	IncidentFire          = "fire"
	IncidentNonFire       = "nonfire"
	IncidentSteppeFire    = "steppe_fire"
	IncidentSteppeSmolder = "steppe_smolder"
	IncidentCONoFire      = "co_nofire"
)

const (
	LocalityCities = "cities"
	LocalityRural  = "rural"
)

// Victim statuses and types.
const (
	VictimDead    = "dead"
	VictimInjured = "injured"
	VictimSaved   = "saved"

	VictimTypeFire = "fire"
	VictimTypeCO   = "co_poisoning"
)

// Victim demographic vocabulary used by the intake forms.
const (
	AgeGroupChild   = "child"
	AgeGroupAdult   = "adult"
	AgeGroupElderly = "elderly"

	GenderMale   = "male"
	GenderFemale = "female"

	ConditionIntoxicated = "intoxicated"
)

type IncidentRecord struct {
	ID           string          `json:"id"`
	OccurredAt   time.Time       `json:"occurred_at"`
	IncidentType string          `json:"incident_type"`
	Locality     string          `json:"locality"`
	Region       string          `json:"region,omitempty"`
	District     string          `json:"district,omitempty"`
	CauseCode    string          `json:"cause_code,omitempty"`
	ObjectCode   string          `json:"object_code,omitempty"`
	Deaths       int             `json:"deaths"`
	Injured      int             `json:"injured"`
	Saved        int             `json:"saved"`
	Damage       decimal.Decimal `json:"damage"`
	Steppe       SteppeDetail    `json:"steppe,omitempty"`
	OrgUnitID    string          `json:"org_unit_id"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// SteppeDetail carries the extra outcome figures reported for steppe fires
// and smolders; zero for every other incident type.
type SteppeDetail struct {
	AreaBurnedHa        decimal.Decimal `json:"area_burned_ha"`
	AnimalsDead         int             `json:"animals_dead"`
	AnimalsInjured      int             `json:"animals_injured"`
	PersonnelDispatched int             `json:"personnel_dispatched"`
	VehiclesDispatched  int             `json:"vehicles_dispatched"`
	AircraftDispatched  int             `json:"aircraft_dispatched"`
	WaterTankers        int             `json:"water_tankers"`
	Tractors            int             `json:"tractors"`
	OtherEquipment      int             `json:"other_equipment"`
}

type VictimRecord struct {
	ID           string `json:"id"`
	IncidentID   string `json:"incident_id"`
	Status       string `json:"status"`
	VictimType   string `json:"victim_type"`
	Gender       string `json:"gender,omitempty"`
	AgeGroup     string `json:"age_group,omitempty"`
	SocialStatus string `json:"social_status,omitempty"`
	Condition    string `json:"condition,omitempty"`
	DeathCause   string `json:"death_cause,omitempty"`
	DeathPlace   string `json:"death_place,omitempty"`
	CauseCode    string `json:"cause_code,omitempty"`
}

// IncidentScopeFilter is the declarative predicate the aggregation layer
// hands to the store: an authorized org set (nil means unrestricted), a
// half-open time window, an incident-type subset and an optional region.
type IncidentScopeFilter struct {
	OrgIDs []string
	From   time.Time
	To     time.Time
	Types  []string
	Region string
}

type IncidentsStore interface {
	CreateIncident(ctx context.Context, inc *IncidentRecord, victims []VictimRecord) error
	UpdateIncident(ctx context.Context, inc *IncidentRecord) error
	ReplaceVictims(ctx context.Context, incidentID string, victims []VictimRecord) error
	GetIncident(ctx context.Context, id string) (*IncidentRecord, error)
	ListIncidents(ctx context.Context, filter IncidentScopeFilter) ([]IncidentRecord, error)
	ListVictims(ctx context.Context, filter IncidentScopeFilter) ([]VictimRecord, error)
	CountIncidents(ctx context.Context, filter IncidentScopeFilter) (int, error)
}

type incidentsStore struct {
	d dbx
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{d: newDBX(db)}
}

const incidentColumns = `id, occurred_at, incident_type, locality, region, district,
	cause_code, object_code, deaths, injured, saved, damage,
	area_burned_ha, animals_dead, animals_injured,
	personnel_dispatched, vehicles_dispatched, aircraft_dispatched,
	water_tankers, tractors, other_equipment,
	org_unit_id, created_at, updated_at`

func (s *incidentsStore) CreateIncident(ctx context.Context, inc *IncidentRecord, victims []VictimRecord) error {
	now := time.Now().UTC()
	if inc.CreatedAt.IsZero() {
		inc.CreatedAt = now
	}
	inc.UpdatedAt = now
	_, err := s.d.exec(ctx, `
		INSERT INTO incidents(`+incidentColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		inc.ID, inc.OccurredAt.UTC(), inc.IncidentType, inc.Locality, inc.Region, inc.District,
		inc.CauseCode, inc.ObjectCode, inc.Deaths, inc.Injured, inc.Saved, inc.Damage.String(),
		inc.Steppe.AreaBurnedHa.String(), inc.Steppe.AnimalsDead, inc.Steppe.AnimalsInjured,
		inc.Steppe.PersonnelDispatched, inc.Steppe.VehiclesDispatched, inc.Steppe.AircraftDispatched,
		inc.Steppe.WaterTankers, inc.Steppe.Tractors, inc.Steppe.OtherEquipment,
		inc.OrgUnitID, inc.CreatedAt, inc.UpdatedAt)
	if err != nil {
		return err
	}
	if len(victims) > 0 {
		return s.insertVictims(ctx, inc.ID, victims)
	}
	return nil
}

func (s *incidentsStore) UpdateIncident(ctx context.Context, inc *IncidentRecord) error {
	inc.UpdatedAt = time.Now().UTC()
	res, err := s.d.exec(ctx, `
		UPDATE incidents
		SET occurred_at=?, incident_type=?, locality=?, region=?, district=?,
			cause_code=?, object_code=?, deaths=?, injured=?, saved=?, damage=?,
			area_burned_ha=?, animals_dead=?, animals_injured=?,
			personnel_dispatched=?, vehicles_dispatched=?, aircraft_dispatched=?,
			water_tankers=?, tractors=?, other_equipment=?,
			org_unit_id=?, updated_at=?
		WHERE id=?`,
		inc.OccurredAt.UTC(), inc.IncidentType, inc.Locality, inc.Region, inc.District,
		inc.CauseCode, inc.ObjectCode, inc.Deaths, inc.Injured, inc.Saved, inc.Damage.String(),
		inc.Steppe.AreaBurnedHa.String(), inc.Steppe.AnimalsDead, inc.Steppe.AnimalsInjured,
		inc.Steppe.PersonnelDispatched, inc.Steppe.VehiclesDispatched, inc.Steppe.AircraftDispatched,
		inc.Steppe.WaterTankers, inc.Steppe.Tractors, inc.Steppe.OtherEquipment,
		inc.OrgUnitID, inc.UpdatedAt, inc.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.New("incidents.notFound")
	}
	return nil
}

func (s *incidentsStore) ReplaceVictims(ctx context.Context, incidentID string, victims []VictimRecord) error {
	if _, err := s.d.exec(ctx, `DELETE FROM victims WHERE incident_id=?`, incidentID); err != nil {
		return err
	}
	return s.insertVictims(ctx, incidentID, victims)
}

func (s *incidentsStore) insertVictims(ctx context.Context, incidentID string, victims []VictimRecord) error {
	for i := range victims {
		v := &victims[i]
		v.IncidentID = incidentID
		if _, err := s.d.exec(ctx, `
			INSERT INTO victims(id, incident_id, status, victim_type, gender, age_group,
				social_status, condition, death_cause, death_place, cause_code)
			VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			v.ID, v.IncidentID, v.Status, v.VictimType, v.Gender, v.AgeGroup,
			v.SocialStatus, v.Condition, v.DeathCause, v.DeathPlace, v.CauseCode); err != nil {
			return err
		}
	}
	return nil
}

func (s *incidentsStore) GetIncident(ctx context.Context, id string) (*IncidentRecord, error) {
	row := s.d.queryRow(ctx, `SELECT `+incidentColumns+` FROM incidents WHERE id=?`, id)
	inc, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return inc, nil
}

func (s *incidentsStore) ListIncidents(ctx context.Context, filter IncidentScopeFilter) ([]IncidentRecord, error) {
	where, args := buildScopeWhere(filter, "")
	rows, err := s.d.query(ctx, `SELECT `+incidentColumns+` FROM incidents`+where+` ORDER BY occurred_at, id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []IncidentRecord
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *inc)
	}
	return items, rows.Err()
}

func (s *incidentsStore) ListVictims(ctx context.Context, filter IncidentScopeFilter) ([]VictimRecord, error) {
	where, args := buildScopeWhere(filter, "i.")
	rows, err := s.d.query(ctx, `
		SELECT v.id, v.incident_id, v.status, v.victim_type, v.gender, v.age_group,
			v.social_status, v.condition, v.death_cause, v.death_place, v.cause_code
		FROM victims v
		JOIN incidents i ON i.id=v.incident_id`+where+` ORDER BY v.incident_id, v.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VictimRecord
	for rows.Next() {
		var v VictimRecord
		if err := rows.Scan(&v.ID, &v.IncidentID, &v.Status, &v.VictimType, &v.Gender, &v.AgeGroup,
			&v.SocialStatus, &v.Condition, &v.DeathCause, &v.DeathPlace, &v.CauseCode); err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, rows.Err()
}

func (s *incidentsStore) CountIncidents(ctx context.Context, filter IncidentScopeFilter) (int, error) {
	where, args := buildScopeWhere(filter, "")
	var count int
	if err := s.d.queryRow(ctx, `SELECT COUNT(1) FROM incidents`+where, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// buildScopeWhere renders an IncidentScopeFilter as a WHERE clause. The time
// window is half-open: occurred_at in [From, To).
func buildScopeWhere(filter IncidentScopeFilter, prefix string) (string, []any) {
	var clauses []string
	var args []any
	if filter.OrgIDs != nil {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.OrgIDs)), ",")
		clauses = append(clauses, prefix+"org_unit_id IN ("+placeholders+")")
		for _, id := range filter.OrgIDs {
			args = append(args, id)
		}
	}
	if !filter.From.IsZero() {
		clauses = append(clauses, prefix+"occurred_at >= ?")
		args = append(args, filter.From.UTC())
	}
	if !filter.To.IsZero() {
		clauses = append(clauses, prefix+"occurred_at < ?")
		args = append(args, filter.To.UTC())
	}
	if len(filter.Types) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(filter.Types)), ",")
		clauses = append(clauses, prefix+"incident_type IN ("+placeholders+")")
		for _, t := range filter.Types {
			args = append(args, t)
		}
	}
	if strings.TrimSpace(filter.Region) != "" {
		clauses = append(clauses, prefix+"region = ?")
		args = append(args, strings.TrimSpace(filter.Region))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*IncidentRecord, error) {
	var inc IncidentRecord
	var damage, area string
	if err := row.Scan(&inc.ID, &inc.OccurredAt, &inc.IncidentType, &inc.Locality, &inc.Region, &inc.District,
		&inc.CauseCode, &inc.ObjectCode, &inc.Deaths, &inc.Injured, &inc.Saved, &damage,
		&area, &inc.Steppe.AnimalsDead, &inc.Steppe.AnimalsInjured,
		&inc.Steppe.PersonnelDispatched, &inc.Steppe.VehiclesDispatched, &inc.Steppe.AircraftDispatched,
		&inc.Steppe.WaterTankers, &inc.Steppe.Tractors, &inc.Steppe.OtherEquipment,
		&inc.OrgUnitID, &inc.CreatedAt, &inc.UpdatedAt); err != nil {
		return nil, err
	}
	var err error
	if inc.Damage, err = decimal.NewFromString(strings.TrimSpace(damage)); err != nil {
		inc.Damage = decimal.Zero
	}
	if inc.Steppe.AreaBurnedHa, err = decimal.NewFromString(strings.TrimSpace(area)); err != nil {
		inc.Steppe.AreaBurnedHa = decimal.Zero
	}
	return &inc, nil
}
