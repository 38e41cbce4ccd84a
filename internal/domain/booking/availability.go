package booking

import "carrental/internal/domain/shared/daterange"

// IsActive reports whether a status still reserves the car. Rejected and
// Cancelled bookings release their hold.
func IsActive(s Status) bool {
	switch s {
	case StatusPending, StatusApproved, StatusPaid:
		return true
	default:
		return false
	}
}

// HasOverlap screens a candidate range against sibling bookings for the same
// car. Only siblings whose status satisfies include count; exclude skips the
// booking being re-examined. Pure: callers must evaluate it inside the same
// transaction as the write it guards.
func HasOverlap(candidate daterange.DateRange, siblings []*Booking, exclude BookingID, include func(Status) bool) bool {
	for _, sibling := range siblings {
		if sibling.ID == exclude {
			continue
		}
		if !include(sibling.Status) {
			continue
		}
		if candidate.Overlaps(sibling.Range) {
			return true
		}
	}
	return false
}

// HasActiveOverlap is the screening used for new requests: any Pending,
// Approved or Paid sibling blocks.
func HasActiveOverlap(candidate daterange.DateRange, siblings []*Booking, exclude BookingID) bool {
	return HasOverlap(candidate, siblings, exclude, IsActive)
}

// HasApprovedOverlap is the screening used when approving: only an Approved
// sibling blocks, a still-pending competitor does not — approval itself is the
// tie-break.
func HasApprovedOverlap(candidate daterange.DateRange, siblings []*Booking, exclude BookingID) bool {
	return HasOverlap(candidate, siblings, exclude, func(s Status) bool { return s == StatusApproved })
}

// HasOwnActiveOverlap screens the requester's own holds on the car: a user may
// not stack duplicate requests over the same period.
func HasOwnActiveOverlap(candidate daterange.DateRange, siblings []*Booking, userID int64) bool {
	for _, sibling := range siblings {
		if sibling.UserID != userID {
			continue
		}
		if !IsActive(sibling.Status) {
			continue
		}
		if candidate.Overlaps(sibling.Range) {
			return true
		}
	}
	return false
}
