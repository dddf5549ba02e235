// Package reports implements the statistical aggregation and validation
// engine behind the seven fixed government report forms.
package reports

import (
	"errors"
	"fmt"
	"time"

	"korgan-irp/core/store"
)

// The seven report form identifiers.
const (
	FormOSP  = "osp"  // form 1: fires overview split by locality
	FormSSG  = "ssg"  // form 2: non-fire emergencies by cause, flat
	FormSPVP = "spvp" // form 3: fires by cause code tree
	FormSOVP = "sovp" // form 4: fires by object code tree
	FormSPZS = "spzs" // form 5: residential fire victims by demographics
	FormSSPZ = "sspz" // form 6: steppe fires and ignitions by region
	FormCO   = "co"   // form 7: CO poisoning victims by cause code tree
)

var AllForms = []string{FormOSP, FormSSG, FormSPVP, FormSOVP, FormSPZS, FormSSPZ, FormCO}

var (
	ErrUnknownForm     = errors.New("reports.error.unknownForm")
	ErrMalformedPeriod = errors.New("reports.error.malformedPeriod")
)

func KnownForm(id string) bool {
	for _, f := range AllForms {
		if f == id {
			return true
		}
	}
	return false
}

// FormIncidentTypes returns the fixed incident-type subset a form draws from.
func FormIncidentTypes(form string) []string {
	switch form {
	case FormOSP:
		return []string{store.IncidentFire, store.IncidentSteppeFire}
	case FormSSG:
		return []string{store.IncidentNonFire}
	case FormSPVP, FormSOVP, FormSPZS:
		return []string{store.IncidentFire}
	case FormSSPZ:
		return []string{store.IncidentSteppeFire, store.IncidentSteppeSmolder}
	case FormCO:
		return []string{store.IncidentCONoFire}
	default:
		return nil
	}
}

// Period is one calendar month, the reporting granularity of every form.
type Period struct {
	Year  int
	Month time.Month
}

// ParsePeriod accepts strictly YYYY-MM.
func ParsePeriod(raw string) (Period, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrMalformedPeriod, raw)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Bounds returns the half-open UTC window [from, to) covering the month.
func (p Period) Bounds() (time.Time, time.Time) {
	from := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}

// Previous returns the immediately preceding month.
func (p Period) Previous() Period {
	from := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return Period{Year: from.Year(), Month: from.Month()}
}
