package workentry

import (
	"time"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// ATTENDANCE PRODUCER
// =============================================================================

type liveKey struct {
	calendar CalendarID
	static   bool
}

// attendances returns the expected-work intervals of every contract over
// [start, end]. Contracts sharing a calendar are resolved in one host call.
// Rigid calendar-based contracts ask for the static expansion directly;
// the others get the host's live schedule.
func (r *run) attendances(start, end time.Time, contracts []*Contract) (map[ContractID]generic.Intervals, error) {
	out := make(map[ContractID]generic.Intervals, len(contracts))

	var scheduled []*Contract
	for _, c := range contracts {
		switch {
		case c.Mode == ScheduleFullyFlexible:
			out[c.ID] = wholeWindow(start, end)
		case c.CalendarID == "":
			out[c.ID] = generic.Intervals{}
		default:
			scheduled = append(scheduled, c)
		}
	}

	keys, groups := generic.GroupBy(scheduled, func(c *Contract) liveKey {
		return liveKey{calendar: c.CalendarID, static: c.IsStatic() && c.Mode == ScheduleRigid}
	})
	for _, k := range keys {
		byResource, err := r.workIntervals(k.calendar, start, end, groups[k], k.static)
		if err != nil {
			return nil, err
		}
		for _, c := range groups[k] {
			out[c.ID] = byResource[c.Employee.Resource()]
		}
	}
	return out, nil
}

// staticAttendances returns a loader for the rigid expansion of a
// contract's calendar. The host is called at most once per calendar, for
// every contract of the window sharing it, and only if someone asks.
func (r *run) staticAttendances(start, end time.Time, contracts []*Contract) func(*Contract) (generic.Intervals, error) {
	cache := make(map[CalendarID]map[ResourceID]generic.Intervals)
	return func(c *Contract) (generic.Intervals, error) {
		if c.CalendarID == "" {
			return generic.Intervals{}, nil
		}
		byResource, ok := cache[c.CalendarID]
		if !ok {
			var peers []*Contract
			for _, p := range contracts {
				if p.CalendarID == c.CalendarID {
					peers = append(peers, p)
				}
			}
			var err error
			byResource, err = r.workIntervals(c.CalendarID, start, end, peers, true)
			if err != nil {
				return generic.Intervals{}, err
			}
			cache[c.CalendarID] = byResource
		}
		return byResource[c.Employee.Resource()], nil
	}
}

func (r *run) workIntervals(calendarID CalendarID, start, end time.Time, contracts []*Contract, static bool) (map[ResourceID]generic.Intervals, error) {
	byTZ := make(map[string][]ResourceID)
	seen := make(map[ResourceID]bool)
	for _, c := range contracts {
		res := c.Employee.Resource()
		if seen[res] {
			continue
		}
		seen[res] = true
		tz := c.Timezone()
		byTZ[tz] = append(byTZ[tz], res)
	}

	out, err := r.host.WorkIntervals(r.ctx, calendarID, start, end, byTZ, static)
	if err != nil {
		return nil, r.capability(CapWorkIntervals, err)
	}
	return out, nil
}

// wholeWindow is the expected work of a fully flexible contract: all of
// it, with no attendance behind it.
func wholeWindow(start, end time.Time) generic.Intervals {
	iv, err := generic.NewInterval(start, end, generic.Payload{})
	if err != nil {
		return generic.Intervals{}
	}
	return generic.NewIntervals(iv)
}
