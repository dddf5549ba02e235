package analytics

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"korgan-irp/config"
	"korgan-irp/core/reports"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

func setupEngine(t *testing.T) (*Engine, store.IncidentsStore) {
	t.Helper()
	cfg := &config.AppConfig{DBPath: filepath.Join(t.TempDir(), "analytics.db")}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	orgUnits := store.NewOrgUnitsStore(db)
	if err := orgUnits.Create(context.Background(), &store.OrgUnit{ID: "dist-1", Name: "District 1", Tier: store.TierDistrict}); err != nil {
		t.Fatalf("org unit: %v", err)
	}
	incidents := store.NewIncidentsStore(db)
	return NewEngine(incidents), incidents
}

var analyticsSeq int

func seed(t *testing.T, incidents store.IncidentsStore, incidentType, causeCode string, occurredAt time.Time) {
	t.Helper()
	analyticsSeq++
	inc := store.IncidentRecord{
		ID:           fmt.Sprintf("an-%04d", analyticsSeq),
		OccurredAt:   occurredAt,
		IncidentType: incidentType,
		Locality:     store.LocalityCities,
		CauseCode:    causeCode,
		OrgUnitID:    "dist-1",
	}
	if err := incidents.CreateIncident(context.Background(), &inc, nil); err != nil {
		t.Fatalf("create incident: %v", err)
	}
}

func at(year int, month time.Month) time.Time {
	return time.Date(year, month, 15, 10, 0, 0, 0, time.UTC)
}

func TestTrendTwelvePoints(t *testing.T) {
	engine, incidents := setupEngine(t)
	seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.January))
	seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.March))
	seed(t, incidents, store.IncidentSteppeFire, "", at(2025, time.March))
	// excluded from the trend subset
	seed(t, incidents, store.IncidentNonFire, "", at(2025, time.March))
	seed(t, incidents, store.IncidentCONoFire, "5.1", at(2025, time.March))
	// wrong year
	seed(t, incidents, store.IncidentFire, "1.1", at(2024, time.March))

	points, err := engine.Trend(context.Background(), nil, 2025)
	if err != nil {
		t.Fatalf("trend: %v", err)
	}
	if len(points) != 12 {
		t.Fatalf("expected 12 points, got %d", len(points))
	}
	if points[0].Period != "2025-01" || points[11].Period != "2025-12" {
		t.Fatalf("period labels: %s .. %s", points[0].Period, points[11].Period)
	}
	want := map[string]int{"2025-01": 1, "2025-03": 2}
	for _, p := range points {
		if p.Count != want[p.Period] {
			t.Fatalf("%s: got %d, want %d", p.Period, p.Count, want[p.Period])
		}
	}
}

func TestPeriodDeltaZeroPrevious(t *testing.T) {
	engine, incidents := setupEngine(t)
	for i := 0; i < 5; i++ {
		seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.March))
	}

	delta, err := engine.PeriodDelta(context.Background(), nil, reports.Period{Year: 2025, Month: time.March})
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if delta.Current != 5 || delta.Previous != 0 || delta.Delta != 5 {
		t.Fatalf("got %+v", delta)
	}
	if delta.Percent != nil {
		t.Fatalf("percent must be omitted when the previous month is empty, got %v", *delta.Percent)
	}
}

func TestPeriodDeltaPercent(t *testing.T) {
	engine, incidents := setupEngine(t)
	for i := 0; i < 4; i++ {
		seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.February))
	}
	for i := 0; i < 5; i++ {
		seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.March))
	}

	delta, err := engine.PeriodDelta(context.Background(), nil, reports.Period{Year: 2025, Month: time.March})
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if delta.Current != 5 || delta.Previous != 4 || delta.Delta != 1 {
		t.Fatalf("got %+v", delta)
	}
	if delta.Percent == nil || *delta.Percent != 25 {
		t.Fatalf("percent: %v", delta.Percent)
	}
}

func TestPeriodDeltaCrossesYearBoundary(t *testing.T) {
	engine, incidents := setupEngine(t)
	seed(t, incidents, store.IncidentFire, "1.1", at(2024, time.December))
	seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.January))
	seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.January))

	delta, err := engine.PeriodDelta(context.Background(), nil, reports.Period{Year: 2025, Month: time.January})
	if err != nil {
		t.Fatalf("delta: %v", err)
	}
	if delta.Current != 2 || delta.Previous != 1 || delta.Delta != 1 {
		t.Fatalf("got %+v", delta)
	}
}

func TestTopNOrderingAndTies(t *testing.T) {
	rows := []CategoryRow{
		{Label: "Careless smoking", Count: 2},
		{Label: "Arson", Count: 5},
		{Label: "Electrical fault", Count: 2},
		{Label: "Lightning", Count: 1},
	}
	top := TopN(rows, 3)
	if len(top) != 3 {
		t.Fatalf("truncation: got %d rows", len(top))
	}
	if top[0].Label != "Arson" {
		t.Fatalf("rank 1: %+v", top[0])
	}
	// ties break by label, ascending
	if top[1].Label != "Careless smoking" || top[2].Label != "Electrical fault" {
		t.Fatalf("tie order: %+v", top[1:])
	}
	if rows[0].Label != "Careless smoking" {
		t.Fatalf("input slice mutated: %+v", rows[0])
	}
}

func TestTopNShorterThanN(t *testing.T) {
	rows := []CategoryRow{{Label: "Arson", Count: 1}}
	if got := TopN(rows, 5); len(got) != 1 {
		t.Fatalf("got %d rows", len(got))
	}
}

func TestTopCausesResolvesLabels(t *testing.T) {
	engine, incidents := setupEngine(t)
	tax := reports.NewTaxonomies()
	seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.March))
	seed(t, incidents, store.IncidentFire, "1.1", at(2025, time.March))
	seed(t, incidents, store.IncidentFire, "no-such-code", at(2025, time.March))

	rows, err := engine.TopCauses(context.Background(), nil, reports.Period{Year: 2025, Month: time.March}, tax.FireCauses, 5)
	if err != nil {
		t.Fatalf("top causes: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %+v", rows)
	}
	if rows[0].Count != 2 {
		t.Fatalf("rank 1: %+v", rows[0])
	}
	wantLabel := tax.FireCauses.Node("1.1").Label
	if rows[0].Label != wantLabel {
		t.Fatalf("label: got %q want %q", rows[0].Label, wantLabel)
	}
	if rows[1].Count != 1 {
		t.Fatalf("rank 2: %+v", rows[1])
	}
}
