package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"korgan-irp/config"
	"korgan-irp/core/store"
	"korgan-irp/core/utils"
)

func setupAggregatorEnv(t *testing.T) (store.IncidentsStore, store.OrgUnitsStore, *Aggregator) {
	t.Helper()
	cfg := &config.AppConfig{DBPath: filepath.Join(t.TempDir(), "reports.db")}
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
	incidents := store.NewIncidentsStore(db)
	for _, u := range []store.OrgUnit{
		{ID: "mchs", Name: "HQ", Tier: store.TierMCHS},
		{ID: "dchs-1", ParentID: strPtr("mchs"), Name: "Region 1", Tier: store.TierDCHS},
		{ID: "dist-1", ParentID: strPtr("dchs-1"), Name: "District 1", Tier: store.TierDistrict},
		{ID: "dist-2", ParentID: strPtr("dchs-1"), Name: "District 2", Tier: store.TierDistrict},
	} {
		unit := u
		if err := orgUnits.Create(context.Background(), &unit); err != nil {
			t.Fatalf("org unit %s: %v", u.ID, err)
		}
	}
	return incidents, orgUnits, NewAggregator(incidents, NewTaxonomies())
}

func strPtr(s string) *string { return &s }

var incidentSeq int

func seedIncident(t *testing.T, incidents store.IncidentsStore, inc store.IncidentRecord, victims ...store.VictimRecord) string {
	t.Helper()
	incidentSeq++
	if inc.ID == "" {
		inc.ID = fmt.Sprintf("inc-%04d", incidentSeq)
	}
	if inc.OccurredAt.IsZero() {
		inc.OccurredAt = time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)
	}
	if inc.Locality == "" {
		inc.Locality = store.LocalityCities
	}
	if inc.OrgUnitID == "" {
		inc.OrgUnitID = "dist-1"
	}
	for i := range victims {
		victims[i].ID = fmt.Sprintf("%s-v%d", inc.ID, i)
	}
	if err := incidents.CreateIncident(context.Background(), &inc, victims); err != nil {
		t.Fatalf("seed incident: %v", err)
	}
	return inc.ID
}

func march() Period { return Period{Year: 2025, Month: time.March} }

func TestAggregateRejectsBadInput(t *testing.T) {
	_, _, agg := setupAggregatorEnv(t)
	if _, err := agg.Aggregate(context.Background(), nil, march(), "form-x", ""); err == nil {
		t.Fatalf("unknown form must fail before scanning")
	}
}

func TestAggregateOSPConservation(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, Locality: store.LocalityCities, Deaths: 1, Injured: 2, Damage: decimal.NewFromInt(100)},
		store.VictimRecord{Status: store.VictimDead, VictimType: store.VictimTypeFire, AgeGroup: store.AgeGroupChild},
	)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, Locality: store.LocalityRural, Damage: decimal.NewFromInt(50)})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentSteppeFire, Locality: store.LocalityRural})
	// wrong type: never counted by form 1
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentNonFire})
	// wrong month: outside the half-open window
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, OccurredAt: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)})

	report, err := agg.Aggregate(context.Background(), nil, march(), FormOSP, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	rows := report.Flatten()
	fires := rows["1"]
	if !fires["total"].Equal(decimal.NewFromInt(3)) {
		t.Fatalf("3 in-scope fires, got total %s", fires["total"])
	}
	if !fires["urban"].Add(fires["rural"]).Equal(fires["total"]) {
		t.Fatalf("urban+rural != total: %v", fires)
	}
	if !rows["3"]["total"].Equal(decimal.NewFromInt(1)) || !rows["3.1"]["total"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("deaths rows wrong: %v / %v", rows["3"], rows["3.1"])
	}
	if !rows["2"]["total"].Equal(decimal.NewFromInt(150)) {
		t.Fatalf("damage total: %s", rows["2"]["total"])
	}
	// computed rows satisfy the validator's inequality rules
	if errs := NewValidator(NewTaxonomies()).Validate(FormOSP, rows); len(errs) != 0 {
		t.Fatalf("aggregated form must validate clean: %+v", errs)
	}
}

func TestAggregateScopeFilters(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, OrgUnitID: "dist-1"})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, OrgUnitID: "dist-2"})

	report, err := agg.Aggregate(context.Background(), []string{"dist-1"}, march(), FormOSP, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if got := report.Flatten()["1"]["total"]; !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("scoped count: %s", got)
	}

	report, err = agg.Aggregate(context.Background(), nil, march(), FormOSP, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	if got := report.Flatten()["1"]["total"]; !got.Equal(decimal.NewFromInt(2)) {
		t.Fatalf("unrestricted count: %s", got)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, CauseCode: "2.1", Damage: decimal.NewFromInt(33)},
		store.VictimRecord{Status: store.VictimInjured, VictimType: store.VictimTypeFire},
	)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, CauseCode: "weird-code"})

	first, err := agg.Aggregate(context.Background(), nil, march(), FormSPVP, "")
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := agg.Aggregate(context.Background(), nil, march(), FormSPVP, "")
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	a, _ := json.Marshal(first.Payload())
	b, _ := json.Marshal(second.Payload())
	if string(a) != string(b) {
		t.Fatalf("identical inputs must render identical trees:\n%s\n%s", a, b)
	}
}

func TestAggregateSPVPUnclassifiedAndRollup(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, CauseCode: "2.1", Deaths: 1, Damage: decimal.NewFromInt(10)})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, CauseCode: "2.2", Damage: decimal.NewFromInt(5)})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, CauseCode: "bogus"})

	report, err := agg.Aggregate(context.Background(), nil, march(), FormSPVP, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	rows := report.Flatten()
	if !rows["2"]["fires_total"].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("parent 2 must roll up its children: %v", rows["2"])
	}
	if !rows["2"]["fires_high_risk"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("high risk rollup: %v", rows["2"])
	}
	if !rows[UnclassifiedCode]["fires_total"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("bogus code must land in the unclassified bucket: %v", rows[UnclassifiedCode])
	}
	// conservation across all leaves
	total := decimal.Zero
	for _, code := range []string{"2.1", "2.2", UnclassifiedCode} {
		total = total.Add(rows[code]["fires_total"])
	}
	if !total.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("no record may be dropped: %s", total)
	}
	if errs := NewValidator(NewTaxonomies()).Validate(FormSPVP, rows); len(errs) != 0 {
		t.Fatalf("rolled-up tree must validate clean: %+v", errs)
	}
}

func TestAggregateCOVictimCauses(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentCONoFire},
		store.VictimRecord{Status: store.VictimDead, VictimType: store.VictimTypeCO, CauseCode: "5.1"},
	)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentCONoFire},
		store.VictimRecord{Status: store.VictimDead, VictimType: store.VictimTypeCO, CauseCode: "5.1"},
		store.VictimRecord{Status: store.VictimInjured, VictimType: store.VictimTypeCO, CauseCode: "2.1"},
	)

	report, err := agg.Aggregate(context.Background(), nil, march(), FormCO, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	rows := report.Flatten()
	if !rows["5.1"]["killed_total"].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("leaf 5.1 killed: %v", rows["5.1"])
	}
	if !rows["5"]["killed_total"].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("parent 5 rollup: %v", rows["5"])
	}
	if !rows["2"]["injured_total"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("parent 2 injured rollup: %v", rows["2"])
	}
}

func TestAggregateSPZSResidentialOnly(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, ObjectCode: "1.2", Locality: store.LocalityRural},
		store.VictimRecord{Status: store.VictimDead, VictimType: store.VictimTypeFire, Gender: store.GenderFemale, AgeGroup: store.AgeGroupAdult},
		store.VictimRecord{Status: store.VictimInjured, VictimType: store.VictimTypeFire, AgeGroup: store.AgeGroupChild},
		store.VictimRecord{Status: store.VictimSaved, VictimType: store.VictimTypeFire},
	)
	// industrial fire with a victim: excluded from form 5 entirely
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentFire, ObjectCode: "2.1"},
		store.VictimRecord{Status: store.VictimDead, VictimType: store.VictimTypeFire},
	)

	report, err := agg.Aggregate(context.Background(), nil, march(), FormSPZS, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	rows := report.Flatten()
	if !rows["1"]["rural"].Equal(decimal.NewFromInt(1)) || !rows["1"]["urban"].Equal(decimal.Zero) {
		t.Fatalf("residential fires: %v", rows["1"])
	}
	if !rows["2"]["rural"].Equal(decimal.NewFromInt(1)) || !rows["2.2"]["rural"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("dead women breakdown: %v / %v", rows["2"], rows["2.2"])
	}
	if !rows["3.3"]["rural"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("injured children breakdown: %v", rows["3.3"])
	}
	if !rows["4"]["rural"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("saved: %v", rows["4"])
	}
}

func TestAggregateSSPZSplitsByTypeAndRegion(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{
		IncidentType: store.IncidentSteppeFire, Region: "abai", Deaths: 1,
		Damage: decimal.NewFromInt(500),
		Steppe: store.SteppeDetail{AreaBurnedHa: decimal.NewFromInt(120), AnimalsDead: 3, PersonnelDispatched: 40, WaterTankers: 2},
	})
	seedIncident(t, incidents, store.IncidentRecord{
		IncidentType: store.IncidentSteppeSmolder, Region: "abai",
		Steppe: store.SteppeDetail{AreaBurnedHa: decimal.NewFromInt(4)},
	})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentSteppeFire, Region: ""})

	report, err := agg.Aggregate(context.Background(), nil, march(), FormSSPZ, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	rows := report.Flatten()
	abai := rows["steppe.abai"]
	if !abai["count"].Equal(decimal.NewFromInt(1)) || !abai["area_burned_ha"].Equal(decimal.NewFromInt(120)) {
		t.Fatalf("steppe.abai: %v", abai)
	}
	if !abai["animals_dead"].Equal(decimal.NewFromInt(3)) || !abai["water_tankers"].Equal(decimal.NewFromInt(2)) {
		t.Fatalf("steppe.abai equipment: %v", abai)
	}
	if !rows["ignition.abai"]["count"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("smolder must land in the ignition list: %v", rows["ignition.abai"])
	}
	if !rows["steppe."+UnclassifiedCode]["count"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("empty region must bucket as unclassified: %v", rows)
	}
}

func TestAggregateRegionFilter(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentSteppeFire, Region: "abai"})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentSteppeFire, Region: "zhetysu"})

	report, err := agg.Aggregate(context.Background(), nil, march(), FormSSPZ, "abai")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	rows := report.Flatten()
	if _, ok := rows["steppe.zhetysu"]; ok {
		t.Fatalf("region filter leaked: %v", rows)
	}
	if !rows["steppe.abai"]["count"].Equal(decimal.NewFromInt(1)) {
		t.Fatalf("filtered count: %v", rows["steppe.abai"])
	}
}

func TestAggregateSSGFlatCounts(t *testing.T) {
	incidents, _, agg := setupAggregatorEnv(t)
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentNonFire, CauseCode: "1"})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentNonFire, CauseCode: "1"})
	seedIncident(t, incidents, store.IncidentRecord{IncidentType: store.IncidentNonFire, CauseCode: "nope"})

	report, err := agg.Aggregate(context.Background(), nil, march(), FormSSG, "")
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	ssg, ok := report.(*SSGReport)
	if !ok {
		t.Fatalf("wrong report type %T", report)
	}
	if ssg.Counts["1"] != 2 || ssg.Counts[UnclassifiedCode] != 1 {
		t.Fatalf("counts: %v", ssg.Counts)
	}
	// zero defaults: every catalogued cause is present even when untouched
	if _, ok := ssg.Counts["4"]; !ok {
		t.Fatalf("untouched causes must be present with zero: %v", ssg.Counts)
	}
}
