package workentry

import (
	"time"

	"github.com/warp/workentry-engine/generic"
)

// =============================================================================
// STRATEGY - Extension points of the pipeline
// =============================================================================

// Family is the kind of classified interval a row comes from.
type Family string

const (
	FamilyAttendance  Family = "attendance"
	FamilyLeave       Family = "leave"
	FamilyWorkedLeave Family = "worked_leave"
)

// ClassifyInput is everything the classifier sees for one contract and one
// sub-window.
type ClassifyInput struct {
	Contract      *Contract
	Location      *time.Location
	Attendances   generic.Intervals
	AbsenceLeaves generic.Intervals
	WorkedLeaves  generic.Intervals
	// StaticAttendances returns the rigid expansion of the contract's
	// calendar for the same window. It calls the host, so only ask when
	// needed.
	StaticAttendances func() (generic.Intervals, error)
}

// Classification holds three disjoint families of intervals.
type Classification struct {
	Attendances  generic.Intervals
	Leaves       generic.Intervals
	WorkedLeaves generic.Intervals
}

type EntryTypeInput struct {
	Contract *Contract
	Family   Family
	Interval generic.Interval
	// Candidates are the contract's leaves overlapping the interval,
	// global leaves first.
	Candidates []Leave
	Catalog    *Catalog
}

// Strategy customizes the pipeline. Embed DefaultStrategy to override a
// single hook.
type Strategy interface {
	// ValidLeaveIntervals narrows or splits a leave interval before it is
	// classified.
	ValidLeaveIntervals(c *Contract, attendances generic.Intervals, leave Leave, iv generic.Interval) []generic.Interval

	ClassifyInterval(in ClassifyInput) (Classification, error)

	// ChooseEntryType returns "" when no type applies.
	ChooseEntryType(in EntryTypeInput) WorkEntryTypeID
}

type DefaultStrategy struct{}

var _ Strategy = DefaultStrategy{}

func (DefaultStrategy) ValidLeaveIntervals(_ *Contract, _ generic.Intervals, _ Leave, iv generic.Interval) []generic.Interval {
	return []generic.Interval{iv}
}

func (DefaultStrategy) ClassifyInterval(in ClassifyInput) (Classification, error) {
	return classify(in)
}

func (DefaultStrategy) ChooseEntryType(in EntryTypeInput) WorkEntryTypeID {
	if in.Family == FamilyAttendance {
		return attendanceType(in)
	}
	return leaveType(in)
}
