package reports

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2025-02")
	if err != nil {
		t.Fatalf("valid period: %v", err)
	}
	if p.Year != 2025 || p.Month != time.February {
		t.Fatalf("parsed wrong: %+v", p)
	}
	if got := p.String(); got != "2025-02" {
		t.Fatalf("round trip: %q", got)
	}
	for _, raw := range []string{"", "2025", "2025-2", "2025/02", "2025-13", "02-2025", "2025-02-01"} {
		if _, err := ParsePeriod(raw); !errors.Is(err, ErrMalformedPeriod) {
			t.Fatalf("%q must be rejected with ErrMalformedPeriod, got %v", raw, err)
		}
	}
}

func TestPeriodBoundsHalfOpen(t *testing.T) {
	p := Period{Year: 2024, Month: time.December}
	from, to := p.Bounds()
	if !from.Equal(time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("from: %v", from)
	}
	if !to.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("to: %v", to)
	}
	prev := p.Previous()
	if prev.Year != 2024 || prev.Month != time.November {
		t.Fatalf("previous: %+v", prev)
	}
	prev = Period{Year: 2025, Month: time.January}.Previous()
	if prev.Year != 2024 || prev.Month != time.December {
		t.Fatalf("previous across year: %+v", prev)
	}
}

func TestFormIncidentTypes(t *testing.T) {
	for _, form := range AllForms {
		if !KnownForm(form) {
			t.Fatalf("%s must be known", form)
		}
		if len(FormIncidentTypes(form)) == 0 {
			t.Fatalf("%s must map to incident types", form)
		}
	}
	if KnownForm("sspz2") {
		t.Fatalf("unknown id accepted")
	}
	if FormIncidentTypes("nope") != nil {
		t.Fatalf("unknown form must map to nil")
	}
}

func TestTaxonomyResolve(t *testing.T) {
	tax := NewTaxonomies()
	if got := tax.FireCauses.Resolve("2.1"); got != "2.1" {
		t.Fatalf("known code: %q", got)
	}
	if got := tax.FireCauses.Resolve("99"); got != UnclassifiedCode {
		t.Fatalf("unknown code must degrade: %q", got)
	}
	if got := tax.FireCauses.Resolve(""); got != UnclassifiedCode {
		t.Fatalf("empty code must degrade: %q", got)
	}
	if tax.COCauses.Node("5.1") == nil || tax.COCauses.Node("5.2") == nil {
		t.Fatalf("CO cause tree missing children of 5")
	}
}

func TestResidentialObjectSubset(t *testing.T) {
	for code, want := range map[string]bool{
		"1": true, "1.1": true, "1.3": true,
		"2": false, "2.1": false, "11": false, "": false,
	} {
		if got := isResidentialObject(code); got != want {
			t.Fatalf("isResidentialObject(%q) = %v, want %v", code, got, want)
		}
	}
}
