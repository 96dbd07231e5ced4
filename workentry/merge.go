package workentry

import (
	"sort"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// MERGER
// =============================================================================

// merge sums segments sharing a Key and unions their source ids for the
// requested fields. Rows whose total rounds to zero are dropped. Output is
// sorted by contract, date and type.
func merge(segments []segment, fields []string) []WorkEntry {
	type bucket struct {
		entry WorkEntry
		seen  map[string]map[string]bool
	}

	tracked := make(map[string]bool, len(fields))
	for _, f := range fields {
		tracked[f] = true
	}

	var order []Key
	buckets := make(map[Key]*bucket)
	for _, s := range segments {
		c := s.row.contract
		e := WorkEntry{
			Date:            s.date,
			WorkEntryTypeID: s.row.typeID,
			EmployeeID:      c.Employee.ID,
			ContractID:      c.ID,
			CompanyID:       c.CompanyID,
		}
		k := e.Key()
		b, ok := buckets[k]
		if !ok {
			e.Duration = generic.ZeroHours()
			e.Sources = make(map[string][]string, len(fields))
			for _, f := range fields {
				e.Sources[f] = []string{}
			}
			b = &bucket{entry: e, seen: make(map[string]map[string]bool)}
			buckets[k] = b
			order = append(order, k)
		}
		b.entry.Duration = b.entry.Duration.Add(s.duration)

		for _, ref := range s.row.payload.Refs() {
			field := ref.Kind.SourceField()
			if !tracked[field] {
				continue
			}
			if b.seen[field] == nil {
				b.seen[field] = make(map[string]bool)
			}
			if b.seen[field][ref.ID] {
				continue
			}
			b.seen[field][ref.ID] = true
			b.entry.Sources[field] = append(b.entry.Sources[field], ref.ID)
		}
	}

	out := make([]WorkEntry, 0, len(order))
	for _, k := range order {
		e := buckets[k].entry
		if e.Duration.IsNegligible() {
			continue
		}
		e.Duration = e.Duration.Round()
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.ContractID != b.ContractID {
			return a.ContractID < b.ContractID
		}
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.WorkEntryTypeID < b.WorkEntryTypeID
	})
	return out
}
