package reports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidationError is a diagnostic about one (row, field) pair. It is a value
// the caller renders back to the form, not an error in the Go sense.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validator checks a flattened row map against the structural rules of its
// form: the parent-equals-sum-of-children walk for the tree forms, the
// partial-breakdown inequalities of form osp, the demographic cross-check of
// form spzs, and non-negativity. It never mutates the input and never fails
// on shape problems; missing rows or fields are simply not checked.
type Validator struct {
	tax *Taxonomies
}

func NewValidator(tax *Taxonomies) *Validator {
	return &Validator{tax: tax}
}

// Validate returns every rule violation found in rows, or an empty list.
// Unknown forms produce no findings; the caller gates form identifiers.
func (v *Validator) Validate(form string, rows RowMap) []ValidationError {
	var out []ValidationError
	switch form {
	case FormOSP:
		out = append(out, checkAtLeast(rows, "3", "3.1")...)
		out = append(out, checkAtLeast(rows, "3", "3.2")...)
		out = append(out, checkAtLeast(rows, "5", "5.1")...)
	case FormSSG:
		out = append(out, checkNonNegative(form, rows)...)
	case FormSPVP:
		out = append(out, checkTreeSums(v.tax.FireCauses, form, rows)...)
		out = append(out, checkNonNegative(form, rows)...)
	case FormSOVP:
		out = append(out, checkTreeSums(v.tax.ObjectTypes, form, rows)...)
		out = append(out, checkNonNegative(form, rows)...)
	case FormSPZS:
		out = append(out, checkBreakdown(rows, "2", []string{"2.1", "2.2", "2.3"})...)
		out = append(out, checkBreakdown(rows, "3", []string{"3.1", "3.2", "3.3"})...)
	case FormSSPZ:
		out = append(out, checkNonNegative(form, rows)...)
	case FormCO:
		out = append(out, checkTreeSums(v.tax.COCauses, form, rows)...)
		out = append(out, checkNonNegative(form, rows)...)
	}
	return out
}

// fieldLabels translates field identifiers to the labels used in messages.
var fieldLabels = map[string]string{
	"total":                "total",
	"urban":                "urban",
	"rural":                "rural",
	"count":                "count",
	"fires_total":          "fires, total",
	"fires_high_risk":      "fires with casualties",
	"damage_total":         "damage, total",
	"damage_high_risk":     "damage in fires with casualties",
	"deaths_total":         "deaths",
	"injuries_total":       "injuries",
	"killed_total":         "killed",
	"injured_total":        "injured",
	"area_burned_ha":       "area burned, ha",
	"damage":               "damage",
	"people_dead":          "people dead",
	"people_injured":       "people injured",
	"people_saved":         "people saved",
	"animals_dead":         "animals dead",
	"animals_injured":      "animals injured",
	"personnel_dispatched": "personnel dispatched",
	"vehicles_dispatched":  "vehicles dispatched",
	"aircraft_dispatched":  "aircraft dispatched",
	"water_tankers":        "water tankers",
	"tractors":             "tractors",
	"other_equipment":      "other equipment",
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return field
}

// checkTreeSums walks the form's code tree and, for every parent row present
// in rows and every field of the form, asserts the parent figure equals the
// sum over its children that are present in rows. One error per violating
// (row, field) pair.
func checkTreeSums(tax *Taxonomy, form string, rows RowMap) []ValidationError {
	var out []ValidationError
	fields := FieldSet(form)
	var walk func(n *TaxonomyNode)
	walk = func(n *TaxonomyNode) {
		for _, c := range n.Children {
			walk(c)
		}
		if len(n.Children) == 0 {
			return
		}
		parent, ok := rows[n.Code]
		if !ok {
			return
		}
		for _, field := range fields {
			sum := decimal.Zero
			var parts []string
			for _, c := range n.Children {
				child, ok := rows[c.Code]
				if !ok {
					continue
				}
				val := child[field]
				sum = sum.Add(val)
				parts = append(parts, fmt.Sprintf("%s (%s)", c.Code, val.String()))
			}
			if len(parts) == 0 {
				continue
			}
			actual := parent[field]
			if actual.Equal(sum) {
				continue
			}
			out = append(out, ValidationError{
				Field: n.Code + "." + field,
				Message: fmt.Sprintf("row %s: %s must equal the sum of %s = %s, got %s",
					n.Code, fieldLabel(field), strings.Join(parts, " + "), sum.String(), actual.String()),
			})
		}
	}
	for _, root := range tax.Roots {
		walk(root)
	}
	return out
}

// checkAtLeast asserts parent >= child per field. Used for the osp rows whose
// children are partial breakdowns rather than a full partition.
func checkAtLeast(rows RowMap, parentCode, childCode string) []ValidationError {
	parent, ok := rows[parentCode]
	if !ok {
		return nil
	}
	child, ok := rows[childCode]
	if !ok {
		return nil
	}
	var out []ValidationError
	for _, field := range []string{"total", "urban", "rural"} {
		p, c := parent[field], child[field]
		if p.GreaterThanOrEqual(c) {
			continue
		}
		out = append(out, ValidationError{
			Field: parentCode + "." + field,
			Message: fmt.Sprintf("row %s: %s must be at least row %s (%s), got %s",
				parentCode, fieldLabel(field), childCode, c.String(), p.String()),
		})
	}
	return out
}

// checkBreakdown asserts the locality-summed total of the parent row equals
// the summed demographic children, but only when the total is non-zero so an
// untouched form does not light up.
func checkBreakdown(rows RowMap, parentCode string, childCodes []string) []ValidationError {
	parent, ok := rows[parentCode]
	if !ok {
		return nil
	}
	total := parent["urban"].Add(parent["rural"])
	if total.IsZero() {
		return nil
	}
	sum := decimal.Zero
	var parts []string
	for _, code := range childCodes {
		child, ok := rows[code]
		if !ok {
			continue
		}
		val := child["urban"].Add(child["rural"])
		sum = sum.Add(val)
		parts = append(parts, fmt.Sprintf("%s (%s)", code, val.String()))
	}
	if len(parts) == 0 || total.Equal(sum) {
		return nil
	}
	return []ValidationError{{
		Field: parentCode + ".total",
		Message: fmt.Sprintf("row %s: total must equal the sum of %s = %s, got %s",
			parentCode, strings.Join(parts, " + "), sum.String(), total.String()),
	}}
}

// checkNonNegative flags every negative figure in rows. Row order is sorted
// so repeated runs report in a stable order.
func checkNonNegative(form string, rows RowMap) []ValidationError {
	codes := make([]string, 0, len(rows))
	for code := range rows {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	fields := FieldSet(form)
	var out []ValidationError
	for _, code := range codes {
		values := rows[code]
		for _, field := range fields {
			val, ok := values[field]
			if !ok || !val.IsNegative() {
				continue
			}
			out = append(out, ValidationError{
				Field:   code + "." + field,
				Message: fmt.Sprintf("row %s: %s must not be negative, got %s", code, fieldLabel(field), val.String()),
			})
		}
	}
	return out
}
