package planengine

// =============================================================================
// ANCHOR RESOLVER - Anchor description + known events -> concrete date
// =============================================================================

// ResolveAnchor turns an anchor into a concrete calendar date.
//
// Offsets apply months first, then days. Month arithmetic is calendar-aware
// and clamps to the last valid day of short months (see Date.AddMonths).
//
// An event anchor whose date is absent from PlanEvents returns a
// *MissingEventError; a principal installment cannot be scheduled against
// an unknown date. The caller decides whether that is fatal (milestones)
// or a silent skip (event-triggered fees).
func ResolveAnchor(a Anchor, startDate Date, events PlanEvents) (Date, error) {
	var base Date

	switch a.Type {
	case AnchorAbsoluteDate:
		// The literal date, unchanged. Offsets are not applied to absolute
		// anchors; the author already picked the exact date.
		return a.Date, nil

	case AnchorPlanStart:
		base = startDate

	case AnchorEvent:
		date, ok := events.DateFor(a.Event)
		if !ok {
			return Date{}, &MissingEventError{Event: a.Event}
		}
		base = date

	default:
		return Date{}, &ValidationError{Code: "invalid_anchor", Message: "unknown anchor type"}
	}

	return base.AddMonths(a.OffsetMonths).AddDays(a.OffsetDays), nil
}
