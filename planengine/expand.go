package planengine

import "fmt"

// =============================================================================
// MILESTONE EXPANDER - Milestone definition -> concrete dated occurrences
// =============================================================================

// Occurrence is one concrete, dated instance of a (possibly recurring)
// milestone.
type Occurrence struct {
	MilestoneCode string

	// Code is the milestone code for single milestones and
	// "{code}-{i+1}" for recurring occurrences, stable and human-readable.
	Code string

	// Index is 0-based within the milestone.
	Index int

	DueDate Date
}

// ExpandMilestone expands a milestone into its ordered occurrences.
//
// A single milestone yields exactly one occurrence at the resolved anchor
// date. A recurring milestone yields Count occurrences; occurrence i is the
// base anchor date advanced by i intervals, always measured from the base
// so that monthly runs starting on the 31st clamp per month instead of
// drifting (Jan 31, Feb 28, Mar 31, ...).
//
// Occurrences are emitted in ascending date order. A missing anchor event
// is fatal here; the error propagates out of the generation call.
func ExpandMilestone(m Milestone, startDate Date, events PlanEvents) ([]Occurrence, error) {
	base, err := ResolveAnchor(m.Anchor, startDate, events)
	if err != nil {
		if missing, ok := err.(*MissingEventError); ok {
			missing.MilestoneCode = m.Code
		}
		return nil, err
	}

	if m.Pattern.Type == PatternSingle {
		return []Occurrence{{
			MilestoneCode: m.Code,
			Code:          m.Code,
			Index:         0,
			DueDate:       base,
		}}, nil
	}

	occurrences := make([]Occurrence, 0, m.Pattern.Count)
	for i := 0; i < m.Pattern.Count; i++ {
		occurrences = append(occurrences, Occurrence{
			MilestoneCode: m.Code,
			Code:          fmt.Sprintf("%s-%d", m.Code, i+1),
			Index:         i,
			DueDate:       advance(base, m.Pattern.Interval, i),
		})
	}
	return occurrences, nil
}

// advance moves base forward by n intervals.
func advance(base Date, interval RecurrenceInterval, n int) Date {
	switch interval {
	case IntervalDaily:
		return base.AddDays(n)
	case IntervalWeekly:
		return base.AddDays(7 * n)
	case IntervalMonthly:
		return base.AddMonths(n)
	case IntervalYearly:
		return base.AddYears(n)
	default:
		return base
	}
}
