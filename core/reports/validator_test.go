package reports

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func rv(pairs ...any) RowValues {
	out := RowValues{}
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i].(string)] = decimal.NewFromInt(int64(pairs[i+1].(int)))
	}
	return out
}

func TestValidateCOParentChildMismatch(t *testing.T) {
	v := NewValidator(NewTaxonomies())
	rows := RowMap{
		"5":   rv("killed_total", 3, "injured_total", 0),
		"5.1": rv("killed_total", 2, "injured_total", 0),
	}
	errs := v.Validate(FormCO, rows)
	if len(errs) != 1 {
		t.Fatalf("expected exactly one error, got %d: %+v", len(errs), errs)
	}
	e := errs[0]
	if e.Field != "5.killed_total" {
		t.Fatalf("field: %q", e.Field)
	}
	if !strings.Contains(e.Message, "sum of 5.1 (2)") {
		t.Fatalf("message must name the child sum: %q", e.Message)
	}
	if !strings.Contains(e.Message, "got 3") {
		t.Fatalf("message must name the actual value: %q", e.Message)
	}
}

func TestValidateCOCleanMeansSumsHold(t *testing.T) {
	v := NewValidator(NewTaxonomies())
	rows := RowMap{
		"5":   rv("killed_total", 5, "injured_total", 1),
		"5.1": rv("killed_total", 2, "injured_total", 0),
		"5.2": rv("killed_total", 3, "injured_total", 1),
	}
	if errs := v.Validate(FormCO, rows); len(errs) != 0 {
		t.Fatalf("consistent tree must validate clean: %+v", errs)
	}
}

func TestValidateSPVPTreeWalk(t *testing.T) {
	v := NewValidator(NewTaxonomies())
	rows := RowMap{
		"2":   rv("fires_total", 10, "fires_high_risk", 1, "damage_total", 0, "damage_high_risk", 0),
		"2.1": rv("fires_total", 4, "fires_high_risk", 1, "damage_total", 0, "damage_high_risk", 0),
		"2.2": rv("fires_total", 5, "fires_high_risk", 0, "damage_total", 0, "damage_high_risk", 0),
		"2.3": rv("fires_total", 1, "fires_high_risk", 0, "damage_total", 0, "damage_high_risk", 0),
	}
	if errs := v.Validate(FormSPVP, rows); len(errs) != 0 {
		t.Fatalf("10 = 4+5+1 must hold: %+v", errs)
	}
	rows["2.3"] = rv("fires_total", 2, "fires_high_risk", 0, "damage_total", 0, "damage_high_risk", 0)
	errs := v.Validate(FormSPVP, rows)
	if len(errs) != 1 || errs[0].Field != "2.fires_total" {
		t.Fatalf("expected one fires_total mismatch on row 2: %+v", errs)
	}
}

func TestValidateOSPInequalities(t *testing.T) {
	v := NewValidator(NewTaxonomies())
	rows := RowMap{
		"3":   rv("total", 4, "urban", 3, "rural", 1),
		"3.1": rv("total", 1, "urban", 1, "rural", 0),
		"3.2": rv("total", 2, "urban", 1, "rural", 1),
		"5":   rv("total", 2, "urban", 2, "rural", 0),
		"5.1": rv("total", 1, "urban", 1, "rural", 0),
	}
	if errs := v.Validate(FormOSP, rows); len(errs) != 0 {
		t.Fatalf("partial breakdowns below total are fine: %+v", errs)
	}

	// children deaths exceeding total deaths is impossible data
	rows["3.1"] = rv("total", 5, "urban", 5, "rural", 0)
	errs := v.Validate(FormOSP, rows)
	if len(errs) != 2 {
		t.Fatalf("expected total and urban violations, got %+v", errs)
	}
	for _, e := range errs {
		if !strings.HasPrefix(e.Field, "3.") {
			t.Fatalf("violation must point at row 3: %+v", e)
		}
	}
}

func TestValidateSPZSBreakdown(t *testing.T) {
	v := NewValidator(NewTaxonomies())

	// empty form: no findings even though breakdown rows are absent
	empty := RowMap{"2": rv("urban", 0, "rural", 0)}
	if errs := v.Validate(FormSPZS, empty); len(errs) != 0 {
		t.Fatalf("zero total must not be flagged: %+v", errs)
	}

	rows := RowMap{
		"2":   rv("urban", 2, "rural", 1),
		"2.1": rv("urban", 1, "rural", 0),
		"2.2": rv("urban", 1, "rural", 0),
		"2.3": rv("urban", 0, "rural", 0),
	}
	if errs := v.Validate(FormSPZS, rows); len(errs) != 1 {
		t.Fatalf("3 != 1+1+0, expected one finding: %+v", errs)
	} else if errs[0].Field != "2.total" {
		t.Fatalf("field: %q", errs[0].Field)
	}

	rows["2.3"] = rv("urban", 1, "rural", 0)
	if errs := v.Validate(FormSPZS, rows); len(errs) != 0 {
		t.Fatalf("3 = 1+1+1 must validate clean: %+v", errs)
	}
}

func TestValidateNonNegative(t *testing.T) {
	v := NewValidator(NewTaxonomies())
	rows := RowMap{
		"1": RowValues{"count": decimal.NewFromInt(-1)},
		"2": RowValues{"count": decimal.NewFromInt(0)},
	}
	errs := v.Validate(FormSSG, rows)
	if len(errs) != 1 || errs[0].Field != "1.count" {
		t.Fatalf("expected single negative finding on 1.count: %+v", errs)
	}
}

func TestValidateNeverMutatesInput(t *testing.T) {
	v := NewValidator(NewTaxonomies())
	rows := RowMap{"5": rv("killed_total", 3), "5.1": rv("killed_total", 2)}
	_ = v.Validate(FormCO, rows)
	if !rows["5"]["killed_total"].Equal(decimal.NewFromInt(3)) {
		t.Fatalf("input mutated")
	}
	if len(rows) != 2 {
		t.Fatalf("input row set changed: %v", rows)
	}
}
