package booking

import (
	"testing"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/availability"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

var now = time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

func bookingAt(status model.BookingStatus, start time.Time, durationMinutes int) model.Booking {
	date := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	startMinute := start.Hour()*60 + start.Minute()
	return model.Booking{
		Date:        date,
		StartMinute: startMinute,
		EndMinute:   startMinute + durationMinutes,
		Status:      status,
	}
}

func TestEffectiveStatus(t *testing.T) {
	cases := []struct {
		name string
		b    model.Booking
		want model.BookingStatus
	}{
		{"confirmed and over", bookingAt(model.StatusConfirmed, now.Add(-2*time.Hour), 60), model.StatusCompleted},
		{"confirmed in progress", bookingAt(model.StatusConfirmed, now.Add(-30*time.Minute), 60), model.StatusConfirmed},
		{"confirmed upcoming", bookingAt(model.StatusConfirmed, now.Add(time.Hour), 60), model.StatusConfirmed},
		{"pending and over", bookingAt(model.StatusPending, now.Add(-2*time.Hour), 60), model.StatusCompleted},
		{"pending upcoming", bookingAt(model.StatusPending, now.Add(time.Hour), 60), model.StatusPending},
		{"cancelled and over", bookingAt(model.StatusCancelled, now.Add(-2*time.Hour), 60), model.StatusCancelled},
	}
	for _, c := range cases {
		if got := EffectiveStatus(c.b, now); got != c.want {
			t.Errorf("%s: EffectiveStatus = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestEffectiveStatusBoundary(t *testing.T) {
	// Ending exactly now is not yet past.
	b := bookingAt(model.StatusConfirmed, now.Add(-time.Hour), 60)
	if got := EffectiveStatus(b, now); got != model.StatusConfirmed {
		t.Errorf("booking ending exactly now = %s, want confirmed", got)
	}
}

func TestCancellationGuard(t *testing.T) {
	venue := model.Venue{CancellationHours: 24}

	// 23 hours notice is short of 24.
	b := bookingAt(model.StatusConfirmed, now.Add(23*time.Hour), 60)
	err := cancellationGuard(venue, b, now, false)
	if KindOf(err) != KindPolicy {
		t.Fatalf("short notice: kind = %v, want policy", KindOf(err))
	}

	// Provider bypass clears the policy.
	if err := cancellationGuard(venue, b, now, true); err != nil {
		t.Fatalf("bypass: unexpected error %v", err)
	}

	// 25 hours notice passes.
	b = bookingAt(model.StatusConfirmed, now.Add(25*time.Hour), 60)
	if err := cancellationGuard(venue, b, now, false); err != nil {
		t.Fatalf("long notice: unexpected error %v", err)
	}

	// Venue without a notice policy.
	b = bookingAt(model.StatusPending, now.Add(time.Hour), 60)
	if err := cancellationGuard(model.Venue{}, b, now, false); err != nil {
		t.Fatalf("no policy: unexpected error %v", err)
	}
}

func TestCancellationGuardTerminalStates(t *testing.T) {
	venue := model.Venue{CancellationHours: 24}
	for _, status := range []model.BookingStatus{model.StatusCancelled, model.StatusCompleted, model.StatusNoShow} {
		b := bookingAt(status, now.Add(48*time.Hour), 60)
		err := cancellationGuard(venue, b, now, true)
		if KindOf(err) != KindState {
			t.Errorf("%s: kind = %v, want state", status, KindOf(err))
		}
	}
}

// A confirmed booking whose end time has passed is completed in effect,
// so neither cancel nor update may touch it, bypass or not.
func TestGuardsUseEffectiveStatus(t *testing.T) {
	venue := model.Venue{CancellationHours: 24}
	b := bookingAt(model.StatusConfirmed, now.Add(-2*time.Hour), 60)

	if KindOf(cancellationGuard(venue, b, now, false)) != KindState {
		t.Error("customer cancel of an elapsed booking should be a state error")
	}
	if KindOf(cancellationGuard(venue, b, now, true)) != KindState {
		t.Error("provider bypass must not cancel an elapsed booking")
	}
	if KindOf(updateGuard(b, now)) != KindState {
		t.Error("elapsed booking should not be updatable")
	}

	// In progress is still live.
	b = bookingAt(model.StatusConfirmed, now.Add(-30*time.Minute), 60)
	if err := updateGuard(b, now); err != nil {
		t.Errorf("in-progress booking: unexpected error %v", err)
	}
}

func TestConfirmGuard(t *testing.T) {
	for _, status := range []model.BookingStatus{model.StatusPending, model.StatusConfirmed, model.StatusCancelled} {
		if err := confirmGuard(model.Booking{Status: status}); err != nil {
			t.Errorf("%s: unexpected error %v", status, err)
		}
	}
	for _, status := range []model.BookingStatus{model.StatusCompleted, model.StatusNoShow} {
		err := confirmGuard(model.Booking{Status: status})
		if KindOf(err) != KindState {
			t.Errorf("%s: kind = %v, want state", status, KindOf(err))
		}
	}
}

func TestNoShowGuard(t *testing.T) {
	// Confirmed and started: allowed.
	b := bookingAt(model.StatusConfirmed, now.Add(-time.Hour), 60)
	if err := noShowGuard(b, now); err != nil {
		t.Fatalf("unexpected error %v", err)
	}

	// Not started yet.
	b = bookingAt(model.StatusConfirmed, now.Add(time.Hour), 60)
	if KindOf(noShowGuard(b, now)) != KindState {
		t.Error("future booking should not be markable as no-show")
	}

	// Pending bookings cannot no-show.
	b = bookingAt(model.StatusPending, now.Add(-time.Hour), 60)
	if KindOf(noShowGuard(b, now)) != KindState {
		t.Error("pending booking should not be markable as no-show")
	}
}

func TestProblemsToErrorPriority(t *testing.T) {
	problems := []availability.Problem{
		{Category: availability.CategoryShape, Message: "bad shape"},
		{Category: availability.CategoryPolicy, Message: "too soon"},
		{Category: availability.CategoryConflict, Message: "taken"},
		{Category: availability.CategoryNotFound, Message: "missing"},
	}
	err := problemsToError(problems)
	if KindOf(err) != KindNotFound || err.Error() != "missing" {
		t.Fatalf("got %v (kind %v), want not-found 'missing'", err, KindOf(err))
	}

	err = problemsToError(problems[:3])
	if KindOf(err) != KindConflict {
		t.Fatalf("kind = %v, want conflict", KindOf(err))
	}

	err = problemsToError(problems[:2])
	if KindOf(err) != KindPolicy {
		t.Fatalf("kind = %v, want policy", KindOf(err))
	}

	err = problemsToError(problems[:1])
	if KindOf(err) != KindValidation {
		t.Fatalf("kind = %v, want validation", KindOf(err))
	}

	if problemsToError(nil) != nil {
		t.Fatal("empty problem list should map to nil")
	}
}
