package booking

import (
	"sort"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/availability"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

// mergedRequest overlays an update payload on the stored booking, producing
// the availability request the edited booking must satisfy.
func mergedRequest(b model.Booking, p UpdateParams) availability.BookingRequest {
	req := availability.BookingRequest{
		VenueID:          b.VenueID,
		ServiceID:        b.ServiceID,
		StaffMemberID:    b.StaffMemberID,
		Date:             b.Date.Format("2006-01-02"),
		Start:            timeslot.FormatMinutes(b.StartMinute),
		PartySize:        b.PartySize,
		ExcludeBookingID: b.ID,
	}
	if p.Date != nil {
		req.Date = *p.Date
	}
	if p.Start != nil {
		req.Start = *p.Start
	}
	if p.StaffMemberID != nil {
		req.StaffMemberID = p.StaffMemberID
	}
	if p.PartySize != nil {
		req.PartySize = *p.PartySize
	}
	return req
}

// rescheduleChanges compares the merged request against the stored booking.
// moved means the booking occupies a different slot (date, time, or staff)
// and must drop back to pending; revalidate additionally covers party-size
// changes, which need a capacity re-check but keep the current status.
// A field resent with its stored value changes nothing.
func rescheduleChanges(b model.Booking, req availability.BookingRequest) (moved, revalidate bool) {
	moved = req.Date != b.Date.Format("2006-01-02") ||
		req.Start != timeslot.FormatMinutes(b.StartMinute) ||
		!staffIDEqual(req.StaffMemberID, b.StaffMemberID)
	revalidate = moved || req.PartySize != b.PartySize
	return moved, revalidate
}

func staffIDEqual(a, b *int64) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

// rescheduleLockKeys names the advisory locks a reschedule must hold: the
// slot being vacated and the slot being claimed. Both are locked so the
// move serializes against concurrent creates on either day; sorted order
// keeps two movers crossing between the same slots from deadlocking.
func rescheduleLockKeys(b model.Booking, req availability.BookingRequest) []string {
	current := model.ResourceKey(b.VenueID, b.ServiceID, b.StaffMemberID, b.Date)
	target, err := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if err != nil {
		// Validation rejects the malformed date; only the held slot matters.
		return []string{current}
	}
	targetKey := model.ResourceKey(b.VenueID, b.ServiceID, req.StaffMemberID, target)
	if targetKey == current {
		return []string{current}
	}
	keys := []string{current, targetKey}
	sort.Strings(keys)
	return keys
}
