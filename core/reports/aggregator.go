package reports

import (
	"context"
	"fmt"

	"korgan-irp/core/store"
)

// Aggregator folds raw incident and victim records into the fixed row
// structure of a report form. It holds no mutable state and caches nothing:
// every call re-scans the source data, so identical inputs always produce
// identical output.
type Aggregator struct {
	incidents store.IncidentsStore
	tax       *Taxonomies
}

func NewAggregator(incidents store.IncidentsStore, tax *Taxonomies) *Aggregator {
	return &Aggregator{incidents: incidents, tax: tax}
}

// Aggregate scans the month slice of incidents visible to scope and buckets
// them into the form's taxonomy. scope nil means unrestricted (MCHS);
// otherwise it is the already-authorized org-unit set. The form and period
// are checked before any data is read.
func (a *Aggregator) Aggregate(ctx context.Context, scope []string, period Period, form string, region string) (Report, error) {
	if !KnownForm(form) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownForm, form)
	}
	from, to := period.Bounds()
	filter := store.IncidentScopeFilter{
		OrgIDs: scope,
		From:   from,
		To:     to,
		Types:  FormIncidentTypes(form),
		Region: region,
	}
	incidents, err := a.incidents.ListIncidents(ctx, filter)
	if err != nil {
		return nil, err
	}
	switch form {
	case FormOSP:
		victims, err := a.incidents.ListVictims(ctx, filter)
		if err != nil {
			return nil, err
		}
		return buildOSP(incidents, victims), nil
	case FormSSG:
		return buildSSG(a.tax.NonFireCauses, incidents), nil
	case FormSPVP:
		return buildSPVP(a.tax.FireCauses, incidents), nil
	case FormSOVP:
		return buildSOVP(a.tax.ObjectTypes, incidents), nil
	case FormSPZS:
		victims, err := a.incidents.ListVictims(ctx, filter)
		if err != nil {
			return nil, err
		}
		return buildSPZS(incidents, victims), nil
	case FormSSPZ:
		return buildSSPZ(incidents), nil
	default: // FormCO
		victims, err := a.incidents.ListVictims(ctx, filter)
		if err != nil {
			return nil, err
		}
		return buildCO(a.tax.COCauses, incidents, victims), nil
	}
}

func indexIncidents(incidents []store.IncidentRecord) map[string]*store.IncidentRecord {
	byID := make(map[string]*store.IncidentRecord, len(incidents))
	for i := range incidents {
		byID[incidents[i].ID] = &incidents[i]
	}
	return byID
}

func buildOSP(incidents []store.IncidentRecord, victims []store.VictimRecord) *OSPReport {
	r := &OSPReport{}
	for i := range incidents {
		inc := &incidents[i]
		r.Fires.add(inc.Locality, dec(1))
		r.Damage.add(inc.Locality, inc.Damage)
		r.Deaths.add(inc.Locality, dec(inc.Deaths))
		r.Saved.add(inc.Locality, dec(inc.Saved))
		r.Injured.add(inc.Locality, dec(inc.Injured))
	}
	byID := indexIncidents(incidents)
	for i := range victims {
		v := &victims[i]
		inc := byID[v.IncidentID]
		if inc == nil {
			continue
		}
		switch v.Status {
		case store.VictimDead:
			if v.AgeGroup == store.AgeGroupChild {
				r.DeathsChildren.add(inc.Locality, dec(1))
			}
			if v.Condition == store.ConditionIntoxicated {
				r.DeathsIntoxicated.add(inc.Locality, dec(1))
			}
		case store.VictimInjured:
			if v.AgeGroup == store.AgeGroupChild {
				r.InjuredChildren.add(inc.Locality, dec(1))
			}
		}
	}
	return r
}

func buildSSG(tax *Taxonomy, incidents []store.IncidentRecord) *SSGReport {
	r := newSSGReport(tax)
	for i := range incidents {
		r.Counts[tax.Resolve(incidents[i].CauseCode)]++
	}
	return r
}

func buildSPVP(tax *Taxonomy, incidents []store.IncidentRecord) *SPVPReport {
	r := newSPVPReport(tax)
	for i := range incidents {
		inc := &incidents[i]
		row := r.row(tax.Resolve(inc.CauseCode))
		row.FiresTotal++
		row.DamageTotal = row.DamageTotal.Add(inc.Damage)
		if inc.Deaths > 0 || inc.Injured > 0 {
			row.FiresHighRisk++
			row.DamageHighRisk = row.DamageHighRisk.Add(inc.Damage)
		}
	}
	return r
}

func buildSOVP(tax *Taxonomy, incidents []store.IncidentRecord) *SOVPReport {
	r := newSOVPReport(tax)
	for i := range incidents {
		inc := &incidents[i]
		row := r.row(tax.Resolve(inc.ObjectCode))
		row.FiresTotal++
		row.DamageTotal = row.DamageTotal.Add(inc.Damage)
		row.DeathsTotal += inc.Deaths
		row.InjuriesTotal += inc.Injured
	}
	return r
}

func buildSPZS(incidents []store.IncidentRecord, victims []store.VictimRecord) *SPZSReport {
	r := &SPZSReport{}
	residential := map[string]*store.IncidentRecord{}
	for i := range incidents {
		inc := &incidents[i]
		if !isResidentialObject(inc.ObjectCode) {
			continue
		}
		residential[inc.ID] = inc
		r.Fires.add(inc.Locality, 1)
	}
	for i := range victims {
		v := &victims[i]
		inc := residential[v.IncidentID]
		if inc == nil || v.VictimType != store.VictimTypeFire {
			continue
		}
		switch v.Status {
		case store.VictimDead:
			r.Dead.add(inc.Locality, 1)
			switch {
			case v.AgeGroup == store.AgeGroupChild:
				r.DeadChildren.add(inc.Locality, 1)
			case v.Gender == store.GenderFemale:
				r.DeadWomen.add(inc.Locality, 1)
			default:
				r.DeadMen.add(inc.Locality, 1)
			}
		case store.VictimInjured:
			r.Injured.add(inc.Locality, 1)
			switch {
			case v.AgeGroup == store.AgeGroupChild:
				r.InjuredChildren.add(inc.Locality, 1)
			case v.Gender == store.GenderFemale:
				r.InjuredWomen.add(inc.Locality, 1)
			default:
				r.InjuredMen.add(inc.Locality, 1)
			}
		case store.VictimSaved:
			r.Saved.add(inc.Locality, 1)
		}
	}
	return r
}

func buildSSPZ(incidents []store.IncidentRecord) *SSPZReport {
	r := newSSPZReport()
	for i := range incidents {
		inc := &incidents[i]
		var row *SteppeRow
		if inc.IncidentType == store.IncidentSteppeSmolder {
			row = steppeRowFor(r.Ignitions, inc.Region)
		} else {
			row = steppeRowFor(r.Steppe, inc.Region)
		}
		row.Count++
		row.AreaBurnedHa = row.AreaBurnedHa.Add(inc.Steppe.AreaBurnedHa)
		row.Damage = row.Damage.Add(inc.Damage)
		row.PeopleDead += inc.Deaths
		row.PeopleInjured += inc.Injured
		row.PeopleSaved += inc.Saved
		row.AnimalsDead += inc.Steppe.AnimalsDead
		row.AnimalsInjured += inc.Steppe.AnimalsInjured
		row.Personnel += inc.Steppe.PersonnelDispatched
		row.Vehicles += inc.Steppe.VehiclesDispatched
		row.Aircraft += inc.Steppe.AircraftDispatched
		row.WaterTankers += inc.Steppe.WaterTankers
		row.Tractors += inc.Steppe.Tractors
		row.OtherEquipment += inc.Steppe.OtherEquipment
	}
	return r
}

func buildCO(tax *Taxonomy, incidents []store.IncidentRecord, victims []store.VictimRecord) *COReport {
	r := newCOReport(tax)
	byID := indexIncidents(incidents)
	for i := range victims {
		v := &victims[i]
		if byID[v.IncidentID] == nil || v.VictimType != store.VictimTypeCO {
			continue
		}
		row := r.row(tax.Resolve(v.CauseCode))
		switch v.Status {
		case store.VictimDead:
			row.KilledTotal++
		case store.VictimInjured:
			row.InjuredTotal++
		}
	}
	return r
}
