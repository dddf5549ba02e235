// Package analytics derives dashboard figures from the raw incident stream:
// monthly trends, month-over-month deltas and category rankings. Everything
// is recomputed from the store per call.
package analytics

import (
	"context"
	"sort"
	"time"

	"korgan-irp/core/reports"
	"korgan-irp/core/store"
)

// trendTypes is the incident subset the trend chart counts. Non-fire calls
// and CO poisonings are excluded from it.
var trendTypes = []string{store.IncidentFire, store.IncidentSteppeFire}

type Engine struct {
	incidents store.IncidentsStore
}

func NewEngine(incidents store.IncidentsStore) *Engine {
	return &Engine{incidents: incidents}
}

// TrendPoint is one month on the trend chart.
type TrendPoint struct {
	Period string `json:"period"`
	Count  int    `json:"count"`
}

// Trend counts fire-class incidents per month for all twelve months of year,
// future months included (they count zero). scope nil means unrestricted.
func (e *Engine) Trend(ctx context.Context, scope []string, year int) ([]TrendPoint, error) {
	points := make([]TrendPoint, 0, 12)
	for month := time.January; month <= time.December; month++ {
		period := reports.Period{Year: year, Month: month}
		from, to := period.Bounds()
		count, err := e.incidents.CountIncidents(ctx, store.IncidentScopeFilter{
			OrgIDs: scope,
			From:   from,
			To:     to,
			Types:  trendTypes,
		})
		if err != nil {
			return nil, err
		}
		points = append(points, TrendPoint{Period: period.String(), Count: count})
	}
	return points, nil
}

// PeriodDelta compares a month against the one before it. Percent is nil
// when the previous month counted zero.
type PeriodDelta struct {
	Current  int      `json:"current"`
	Previous int      `json:"previous"`
	Delta    int      `json:"delta"`
	Percent  *float64 `json:"percent"`
}

func (e *Engine) PeriodDelta(ctx context.Context, scope []string, period reports.Period) (*PeriodDelta, error) {
	current, err := e.countPeriod(ctx, scope, period)
	if err != nil {
		return nil, err
	}
	previous, err := e.countPeriod(ctx, scope, period.Previous())
	if err != nil {
		return nil, err
	}
	out := &PeriodDelta{Current: current, Previous: previous, Delta: current - previous}
	if previous != 0 {
		pct := float64(current-previous) / float64(previous) * 100
		out.Percent = &pct
	}
	return out, nil
}

func (e *Engine) countPeriod(ctx context.Context, scope []string, period reports.Period) (int, error) {
	from, to := period.Bounds()
	return e.incidents.CountIncidents(ctx, store.IncidentScopeFilter{
		OrgIDs: scope,
		From:   from,
		To:     to,
		Types:  trendTypes,
	})
}

// CategoryRow is one ranked category: a label and its incident count.
type CategoryRow struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopN ranks rows by count descending; ties break by ascending label so the
// ordering is deterministic. The input slice is not modified.
func TopN(rows []CategoryRow, n int) []CategoryRow {
	out := make([]CategoryRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if n >= 0 && n < len(out) {
		out = out[:n]
	}
	return out
}

// TopCauses aggregates the month's fire-class incidents by cause code and
// returns the n most frequent causes.
func (e *Engine) TopCauses(ctx context.Context, scope []string, period reports.Period, tax *reports.Taxonomy, n int) ([]CategoryRow, error) {
	from, to := period.Bounds()
	incidents, err := e.incidents.ListIncidents(ctx, store.IncidentScopeFilter{
		OrgIDs: scope,
		From:   from,
		To:     to,
		Types:  trendTypes,
	})
	if err != nil {
		return nil, err
	}
	counts := map[string]int{}
	for i := range incidents {
		counts[tax.Resolve(incidents[i].CauseCode)]++
	}
	rows := make([]CategoryRow, 0, len(counts))
	for code, count := range counts {
		label := code
		if node := tax.Node(code); node != nil {
			label = node.Label
		}
		rows = append(rows, CategoryRow{Label: label, Count: count})
	}
	return TopN(rows, n), nil
}
