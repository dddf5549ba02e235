package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// RowValues is the numeric field map of a single taxonomy row.
type RowValues map[string]decimal.Decimal

// RowMap is the flat row-id to values view a form's report reduces to; it is
// the shape the validator consumes, for computed and client-edited numbers
// alike.
type RowMap map[string]RowValues

// Row is the wire shape of one taxonomy node in a tree-shaped form.
type Row struct {
	Code     string    `json:"code"`
	Label    string    `json:"label,omitempty"`
	Values   RowValues `json:"values"`
	Children []*Row    `json:"children,omitempty"`
}

// Report is the aggregation product of one form. Each form has its own
// typed row struct underneath so the field set is checked at compile time;
// Payload renders the response shape, Flatten the validator's view.
type Report interface {
	FormID() string
	Payload() any
	Flatten() RowMap
}

// FieldSet lists the numeric fields every row of a form carries.
func FieldSet(form string) []string {
	switch form {
	case FormOSP:
		return []string{"total", "urban", "rural"}
	case FormSSG:
		return []string{"count"}
	case FormSPVP:
		return []string{"fires_total", "fires_high_risk", "damage_total", "damage_high_risk"}
	case FormSOVP:
		return []string{"fires_total", "damage_total", "deaths_total", "injuries_total"}
	case FormSPZS:
		return []string{"urban", "rural"}
	case FormSSPZ:
		return steppeFields
	case FormCO:
		return []string{"killed_total", "injured_total"}
	default:
		return nil
	}
}

func dec(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// --- form 1 (osp) ---------------------------------------------------------

// LocalitySplit is one osp row: a total with its urban/rural partition.
// The urban and rural figures always sum to the total by construction.
type LocalitySplit struct {
	Urban decimal.Decimal
	Rural decimal.Decimal
}

func (s *LocalitySplit) add(locality string, v decimal.Decimal) {
	if locality == "rural" {
		s.Rural = s.Rural.Add(v)
		return
	}
	s.Urban = s.Urban.Add(v)
}

func (s LocalitySplit) values() RowValues {
	return RowValues{
		"total": s.Urban.Add(s.Rural),
		"urban": s.Urban,
		"rural": s.Rural,
	}
}

type OSPReport struct {
	Fires             LocalitySplit
	Damage            LocalitySplit
	Deaths            LocalitySplit
	DeathsChildren    LocalitySplit
	DeathsIntoxicated LocalitySplit
	Saved             LocalitySplit
	Injured           LocalitySplit
	InjuredChildren   LocalitySplit
}

// ospRowOrder fixes the row codes of form 1. Rows 3.1 and 3.2 are partial
// breakdowns of row 3 (inequality, not equality: sober adult deaths have no
// bucket of their own), same for 5.1 under 5.
var ospRowOrder = []struct {
	code  string
	label string
	pick  func(*OSPReport) *LocalitySplit
}{
	{"1", "Fires", func(r *OSPReport) *LocalitySplit { return &r.Fires }},
	{"2", "Material damage", func(r *OSPReport) *LocalitySplit { return &r.Damage }},
	{"3", "Deaths", func(r *OSPReport) *LocalitySplit { return &r.Deaths }},
	{"3.1", "Deaths of children", func(r *OSPReport) *LocalitySplit { return &r.DeathsChildren }},
	{"3.2", "Deaths while intoxicated", func(r *OSPReport) *LocalitySplit { return &r.DeathsIntoxicated }},
	{"4", "Saved", func(r *OSPReport) *LocalitySplit { return &r.Saved }},
	{"5", "Injured", func(r *OSPReport) *LocalitySplit { return &r.Injured }},
	{"5.1", "Injured children", func(r *OSPReport) *LocalitySplit { return &r.InjuredChildren }},
}

func (r *OSPReport) FormID() string { return FormOSP }

func (r *OSPReport) Rows() []*Row {
	byCode := map[string]*Row{}
	var top []*Row
	for _, def := range ospRowOrder {
		row := &Row{Code: def.code, Label: def.label, Values: def.pick(r).values()}
		byCode[def.code] = row
		switch def.code {
		case "3.1", "3.2":
			byCode["3"].Children = append(byCode["3"].Children, row)
		case "5.1":
			byCode["5"].Children = append(byCode["5"].Children, row)
		default:
			top = append(top, row)
		}
	}
	return top
}

func (r *OSPReport) Payload() any { return r.Rows() }

func (r *OSPReport) Flatten() RowMap {
	out := RowMap{}
	for _, def := range ospRowOrder {
		out[def.code] = def.pick(r).values()
	}
	return out
}

// --- form 2 (ssg) ---------------------------------------------------------

type SSGReport struct {
	tax    *Taxonomy
	Counts map[string]int
}

func newSSGReport(tax *Taxonomy) *SSGReport {
	counts := map[string]int{}
	for _, code := range tax.Codes() {
		counts[code] = 0
	}
	return &SSGReport{tax: tax, Counts: counts}
}

func (r *SSGReport) FormID() string { return FormSSG }

// Payload is the flat {rowId: count} map of form 2; no tree structure.
func (r *SSGReport) Payload() any {
	out := map[string]int{}
	for code, n := range r.Counts {
		out[code] = n
	}
	return out
}

func (r *SSGReport) Flatten() RowMap {
	out := RowMap{}
	for code, n := range r.Counts {
		out[code] = RowValues{"count": dec(n)}
	}
	return out
}

// --- form 3 (spvp) --------------------------------------------------------

// SPVPRow holds fire counts and damage for one cause code. High-risk fires
// are those with at least one death or injury.
type SPVPRow struct {
	FiresTotal     int
	FiresHighRisk  int
	DamageTotal    decimal.Decimal
	DamageHighRisk decimal.Decimal
}

func (r *SPVPRow) values() RowValues {
	return RowValues{
		"fires_total":      dec(r.FiresTotal),
		"fires_high_risk":  dec(r.FiresHighRisk),
		"damage_total":     r.DamageTotal,
		"damage_high_risk": r.DamageHighRisk,
	}
}

func (r *SPVPRow) merge(other *SPVPRow) {
	r.FiresTotal += other.FiresTotal
	r.FiresHighRisk += other.FiresHighRisk
	r.DamageTotal = r.DamageTotal.Add(other.DamageTotal)
	r.DamageHighRisk = r.DamageHighRisk.Add(other.DamageHighRisk)
}

type SPVPReport struct {
	tax    *Taxonomy
	byCode map[string]*SPVPRow
}

func newSPVPReport(tax *Taxonomy) *SPVPReport {
	return &SPVPReport{tax: tax, byCode: map[string]*SPVPRow{}}
}

func (r *SPVPReport) row(code string) *SPVPRow {
	if row, ok := r.byCode[code]; ok {
		return row
	}
	row := &SPVPRow{}
	r.byCode[code] = row
	return row
}

func (r *SPVPReport) FormID() string { return FormSPVP }

// cumulative returns the rolled-up row of a node: its own figures plus the
// sum over its subtree, so parents always equal the sum of their children
// for leaf-coded records.
func (r *SPVPReport) cumulative(n *TaxonomyNode) *SPVPRow {
	total := &SPVPRow{}
	if own, ok := r.byCode[n.Code]; ok {
		total.merge(own)
	}
	for _, c := range n.Children {
		total.merge(r.cumulative(c))
	}
	return total
}

func (r *SPVPReport) renderNode(n *TaxonomyNode) *Row {
	row := &Row{Code: n.Code, Label: n.Label, Values: r.cumulative(n).values()}
	for _, c := range n.Children {
		row.Children = append(row.Children, r.renderNode(c))
	}
	return row
}

func (r *SPVPReport) Rows() []*Row {
	var out []*Row
	for _, root := range r.tax.Roots {
		out = append(out, r.renderNode(root))
	}
	return out
}

func (r *SPVPReport) Payload() any { return r.Rows() }

func (r *SPVPReport) Flatten() RowMap {
	out := RowMap{}
	var walk func(rows []*Row)
	walk = func(rows []*Row) {
		for _, row := range rows {
			out[row.Code] = row.Values
			walk(row.Children)
		}
	}
	walk(r.Rows())
	return out
}

// --- form 4 (sovp) --------------------------------------------------------

type SOVPRow struct {
	FiresTotal    int
	DamageTotal   decimal.Decimal
	DeathsTotal   int
	InjuriesTotal int
}

func (r *SOVPRow) values() RowValues {
	return RowValues{
		"fires_total":    dec(r.FiresTotal),
		"damage_total":   r.DamageTotal,
		"deaths_total":   dec(r.DeathsTotal),
		"injuries_total": dec(r.InjuriesTotal),
	}
}

func (r *SOVPRow) merge(other *SOVPRow) {
	r.FiresTotal += other.FiresTotal
	r.DamageTotal = r.DamageTotal.Add(other.DamageTotal)
	r.DeathsTotal += other.DeathsTotal
	r.InjuriesTotal += other.InjuriesTotal
}

type SOVPReport struct {
	tax    *Taxonomy
	byCode map[string]*SOVPRow
}

func newSOVPReport(tax *Taxonomy) *SOVPReport {
	return &SOVPReport{tax: tax, byCode: map[string]*SOVPRow{}}
}

func (r *SOVPReport) row(code string) *SOVPRow {
	if row, ok := r.byCode[code]; ok {
		return row
	}
	row := &SOVPRow{}
	r.byCode[code] = row
	return row
}

func (r *SOVPReport) FormID() string { return FormSOVP }

func (r *SOVPReport) cumulative(n *TaxonomyNode) *SOVPRow {
	total := &SOVPRow{}
	if own, ok := r.byCode[n.Code]; ok {
		total.merge(own)
	}
	for _, c := range n.Children {
		total.merge(r.cumulative(c))
	}
	return total
}

func (r *SOVPReport) renderNode(n *TaxonomyNode) *Row {
	row := &Row{Code: n.Code, Label: n.Label, Values: r.cumulative(n).values()}
	for _, c := range n.Children {
		row.Children = append(row.Children, r.renderNode(c))
	}
	return row
}

func (r *SOVPReport) Rows() []*Row {
	var out []*Row
	for _, root := range r.tax.Roots {
		out = append(out, r.renderNode(root))
	}
	return out
}

func (r *SOVPReport) Payload() any { return r.Rows() }

func (r *SOVPReport) Flatten() RowMap {
	out := RowMap{}
	var walk func(rows []*Row)
	walk = func(rows []*Row) {
		for _, row := range rows {
			out[row.Code] = row.Values
			walk(row.Children)
		}
	}
	walk(r.Rows())
	return out
}

// --- form 5 (spzs) --------------------------------------------------------

// SPZSRow is one demographic row split by locality.
type SPZSRow struct {
	Urban int
	Rural int
}

func (r *SPZSRow) add(locality string, n int) {
	if locality == "rural" {
		r.Rural += n
		return
	}
	r.Urban += n
}

func (r SPZSRow) values() RowValues {
	return RowValues{"urban": dec(r.Urban), "rural": dec(r.Rural)}
}

type SPZSReport struct {
	Fires           SPZSRow
	Dead            SPZSRow
	DeadMen         SPZSRow
	DeadWomen       SPZSRow
	DeadChildren    SPZSRow
	Injured         SPZSRow
	InjuredMen      SPZSRow
	InjuredWomen    SPZSRow
	InjuredChildren SPZSRow
	Saved           SPZSRow
}

var spzsRowOrder = []struct {
	code  string
	label string
	pick  func(*SPZSReport) *SPZSRow
}{
	{"1", "Residential fires", func(r *SPZSReport) *SPZSRow { return &r.Fires }},
	{"2", "Dead", func(r *SPZSReport) *SPZSRow { return &r.Dead }},
	{"2.1", "Dead: men", func(r *SPZSReport) *SPZSRow { return &r.DeadMen }},
	{"2.2", "Dead: women", func(r *SPZSReport) *SPZSRow { return &r.DeadWomen }},
	{"2.3", "Dead: children", func(r *SPZSReport) *SPZSRow { return &r.DeadChildren }},
	{"3", "Injured", func(r *SPZSReport) *SPZSRow { return &r.Injured }},
	{"3.1", "Injured: men", func(r *SPZSReport) *SPZSRow { return &r.InjuredMen }},
	{"3.2", "Injured: women", func(r *SPZSReport) *SPZSRow { return &r.InjuredWomen }},
	{"3.3", "Injured: children", func(r *SPZSReport) *SPZSRow { return &r.InjuredChildren }},
	{"4", "Saved", func(r *SPZSReport) *SPZSRow { return &r.Saved }},
}

func (r *SPZSReport) FormID() string { return FormSPZS }

func (r *SPZSReport) Rows() []*Row {
	byCode := map[string]*Row{}
	var top []*Row
	for _, def := range spzsRowOrder {
		row := &Row{Code: def.code, Label: def.label, Values: def.pick(r).values()}
		byCode[def.code] = row
		switch def.code {
		case "2.1", "2.2", "2.3":
			byCode["2"].Children = append(byCode["2"].Children, row)
		case "3.1", "3.2", "3.3":
			byCode["3"].Children = append(byCode["3"].Children, row)
		default:
			top = append(top, row)
		}
	}
	return top
}

func (r *SPZSReport) Payload() any { return r.Rows() }

func (r *SPZSReport) Flatten() RowMap {
	out := RowMap{}
	for _, def := range spzsRowOrder {
		out[def.code] = def.pick(r).values()
	}
	return out
}

// --- form 6 (sspz) --------------------------------------------------------

var steppeFields = []string{
	"count", "area_burned_ha", "damage",
	"people_dead", "people_injured", "people_saved",
	"animals_dead", "animals_injured",
	"personnel_dispatched", "vehicles_dispatched", "aircraft_dispatched",
	"water_tankers", "tractors", "other_equipment",
}

// SteppeRow carries the fourteen numeric figures reported per region.
type SteppeRow struct {
	Count          int
	AreaBurnedHa   decimal.Decimal
	Damage         decimal.Decimal
	PeopleDead     int
	PeopleInjured  int
	PeopleSaved    int
	AnimalsDead    int
	AnimalsInjured int
	Personnel      int
	Vehicles       int
	Aircraft       int
	WaterTankers   int
	Tractors       int
	OtherEquipment int
}

func (r *SteppeRow) values() RowValues {
	return RowValues{
		"count":                dec(r.Count),
		"area_burned_ha":       r.AreaBurnedHa,
		"damage":               r.Damage,
		"people_dead":          dec(r.PeopleDead),
		"people_injured":       dec(r.PeopleInjured),
		"people_saved":         dec(r.PeopleSaved),
		"animals_dead":         dec(r.AnimalsDead),
		"animals_injured":      dec(r.AnimalsInjured),
		"personnel_dispatched": dec(r.Personnel),
		"vehicles_dispatched":  dec(r.Vehicles),
		"aircraft_dispatched":  dec(r.Aircraft),
		"water_tankers":        dec(r.WaterTankers),
		"tractors":             dec(r.Tractors),
		"other_equipment":      dec(r.OtherEquipment),
	}
}

// SSPZReport holds the two parallel region-keyed row lists of form 6:
// steppe fires proper and smolder ignitions.
type SSPZReport struct {
	Steppe    map[string]*SteppeRow
	Ignitions map[string]*SteppeRow
}

func newSSPZReport() *SSPZReport {
	return &SSPZReport{Steppe: map[string]*SteppeRow{}, Ignitions: map[string]*SteppeRow{}}
}

func steppeRowFor(m map[string]*SteppeRow, region string) *SteppeRow {
	if region == "" {
		region = UnclassifiedCode
	}
	if row, ok := m[region]; ok {
		return row
	}
	row := &SteppeRow{}
	m[region] = row
	return row
}

func (r *SSPZReport) FormID() string { return FormSSPZ }

func renderSteppeRows(m map[string]*SteppeRow) []*Row {
	regions := make([]string, 0, len(m))
	for region := range m {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	out := make([]*Row, 0, len(regions))
	for _, region := range regions {
		out = append(out, &Row{Code: region, Label: region, Values: m[region].values()})
	}
	return out
}

func (r *SSPZReport) Payload() any {
	return map[string]any{
		"steppeRows":   renderSteppeRows(r.Steppe),
		"ignitionRows": renderSteppeRows(r.Ignitions),
	}
}

func (r *SSPZReport) Flatten() RowMap {
	out := RowMap{}
	for region, row := range r.Steppe {
		out["steppe."+region] = row.values()
	}
	for region, row := range r.Ignitions {
		out["ignition."+region] = row.values()
	}
	return out
}

// --- form 7 (co) ----------------------------------------------------------

type CORow struct {
	KilledTotal  int
	InjuredTotal int
}

func (r *CORow) values() RowValues {
	return RowValues{"killed_total": dec(r.KilledTotal), "injured_total": dec(r.InjuredTotal)}
}

func (r *CORow) merge(other *CORow) {
	r.KilledTotal += other.KilledTotal
	r.InjuredTotal += other.InjuredTotal
}

type COReport struct {
	tax    *Taxonomy
	byCode map[string]*CORow
}

func newCOReport(tax *Taxonomy) *COReport {
	return &COReport{tax: tax, byCode: map[string]*CORow{}}
}

func (r *COReport) row(code string) *CORow {
	if row, ok := r.byCode[code]; ok {
		return row
	}
	row := &CORow{}
	r.byCode[code] = row
	return row
}

func (r *COReport) FormID() string { return FormCO }

func (r *COReport) cumulative(n *TaxonomyNode) *CORow {
	total := &CORow{}
	if own, ok := r.byCode[n.Code]; ok {
		total.merge(own)
	}
	for _, c := range n.Children {
		total.merge(r.cumulative(c))
	}
	return total
}

func (r *COReport) renderNode(n *TaxonomyNode) *Row {
	row := &Row{Code: n.Code, Label: n.Label, Values: r.cumulative(n).values()}
	for _, c := range n.Children {
		row.Children = append(row.Children, r.renderNode(c))
	}
	return row
}

func (r *COReport) Rows() []*Row {
	var out []*Row
	for _, root := range r.tax.Roots {
		out = append(out, r.renderNode(root))
	}
	return out
}

func (r *COReport) Payload() any { return r.Rows() }

func (r *COReport) Flatten() RowMap {
	out := RowMap{}
	var walk func(rows []*Row)
	walk = func(rows []*Row) {
		for _, row := range rows {
			out[row.Code] = row.Values
			walk(row.Children)
		}
	}
	walk(r.Rows())
	return out
}
