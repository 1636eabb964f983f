package booking

import (
	"fmt"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

// EffectiveStatus is the status a reader should see right now. A live
// booking whose end time has passed reads as completed even before the
// sweep has persisted the transition.
func EffectiveStatus(b model.Booking, now time.Time) model.BookingStatus {
	if b.Status.Occupies() && b.EndsAt().Before(now) {
		return model.StatusCompleted
	}
	return b.Status
}

func isTerminal(s model.BookingStatus) bool {
	return s == model.StatusCancelled || s == model.StatusCompleted || s == model.StatusNoShow
}

// cancellationGuard enforces the state machine and the venue's notice policy
// for a cancel attempt. Providers cancel with bypass set; customers do not.
// The check runs against the effective status so a booking whose end time
// has passed reads as completed even before the sweep persisted it.
func cancellationGuard(venue model.Venue, b model.Booking, now time.Time, bypass bool) error {
	if status := EffectiveStatus(b, now); isTerminal(status) {
		return newError(KindState, fmt.Sprintf("booking is already %s", status))
	}
	if bypass || venue.CancellationHours <= 0 {
		return nil
	}
	notice := b.StartsAt().Sub(now)
	required := time.Duration(venue.CancellationHours) * time.Hour
	if notice < required {
		return newError(KindPolicy, fmt.Sprintf(
			"cancellations require %d hours notice; booking starts in %.1f hours",
			venue.CancellationHours, notice.Hours()))
	}
	return nil
}

// updateGuard rejects edits to bookings that are terminal by effective
// status. A confirmed booking already past its end time is completed and
// cannot be resurrected by rescheduling it into the future.
func updateGuard(b model.Booking, now time.Time) error {
	if status := EffectiveStatus(b, now); isTerminal(status) {
		return newError(KindState, fmt.Sprintf("cannot update a %s booking", status))
	}
	return nil
}

// confirmGuard validates a provider confirm attempt. Confirming a confirmed
// booking is a no-op; confirming a cancelled one is the reactivation path
// and is allowed. Completed and no-show bookings stay terminal.
func confirmGuard(b model.Booking) error {
	switch b.Status {
	case model.StatusPending, model.StatusConfirmed, model.StatusCancelled:
		return nil
	default:
		return newError(KindState, fmt.Sprintf("cannot confirm a %s booking", b.Status))
	}
}

// noShowGuard allows the no-show transition only for confirmed bookings
// whose start time has passed.
func noShowGuard(b model.Booking, now time.Time) error {
	if b.Status != model.StatusConfirmed {
		return newError(KindState, fmt.Sprintf("cannot mark a %s booking as no-show", b.Status))
	}
	if b.StartsAt().After(now) {
		return newError(KindState, "cannot mark a booking as no-show before it starts")
	}
	return nil
}
