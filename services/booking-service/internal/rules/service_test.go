package rules

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/booking"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

type fakeStore struct {
	rules   []model.AvailabilityRule
	created []model.AvailabilityRule
}

func (f *fakeStore) VenueRules(_ context.Context, _ db.Querier, venueID int64, weekday int) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	for _, r := range f.rules {
		if r.VenueID != nil && *r.VenueID == venueID && r.DayOfWeek == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) StaffRules(_ context.Context, _ db.Querier, staffID int64, weekday int) ([]model.AvailabilityRule, error) {
	var out []model.AvailabilityRule
	for _, r := range f.rules {
		if r.StaffMemberID != nil && *r.StaffMemberID == staffID && r.DayOfWeek == weekday {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) ListForVenue(_ context.Context, _ db.Querier, _ int64) ([]model.AvailabilityRule, error) {
	return f.rules, nil
}

func (f *fakeStore) Create(_ context.Context, _ db.Querier, rule *model.AvailabilityRule) error {
	rule.ID = int64(len(f.created) + 1)
	f.created = append(f.created, *rule)
	return nil
}

func (f *fakeStore) Deactivate(_ context.Context, _ db.Querier, _ int64) error {
	return nil
}

func TestCreateValidation(t *testing.T) {
	s := NewService(nil, &fakeStore{}, slog.Default())
	venueID := int64(1)
	staffID := int64(2)

	cases := []struct {
		name string
		p    CreateParams
	}{
		{"no scope", CreateParams{DayOfWeek: 1, Start: "09:00", End: "17:00"}},
		{"both scopes", CreateParams{VenueID: &venueID, StaffMemberID: &staffID, DayOfWeek: 1, Start: "09:00", End: "17:00"}},
		{"day too large", CreateParams{VenueID: &venueID, DayOfWeek: 7, Start: "09:00", End: "17:00"}},
		{"day negative", CreateParams{VenueID: &venueID, DayOfWeek: -1, Start: "09:00", End: "17:00"}},
		{"bad start", CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "9am", End: "17:00"}},
		{"bad end", CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "09:00", End: "25:00"}},
		{"inverted window", CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "17:00", End: "09:00"}},
		{"empty window", CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "09:00", End: "09:00"}},
	}
	for _, c := range cases {
		_, err := s.Create(context.Background(), c.p)
		if booking.KindOf(err) != booking.KindValidation {
			t.Errorf("%s: kind = %v, want validation", c.name, booking.KindOf(err))
		}
	}
}

func TestCreateRejectsOverlappingRules(t *testing.T) {
	venueID := int64(1)
	staffID := int64(2)
	store := &fakeStore{rules: []model.AvailabilityRule{
		{ID: 1, VenueID: &venueID, DayOfWeek: 1, StartMinute: 540, EndMinute: 1020, IsActive: true}, // 09:00-17:00
	}}
	s := NewService(nil, store, slog.Default())

	// Overlapping the existing venue window is a conflict.
	_, err := s.Create(context.Background(), CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "16:00", End: "20:00"})
	if booking.KindOf(err) != booking.KindConflict {
		t.Fatalf("overlapping window: kind = %v, want conflict", booking.KindOf(err))
	}

	// Touching windows do not overlap; 17:00-20:00 extends the day.
	if _, err := s.Create(context.Background(), CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "17:00", End: "20:00"}); err != nil {
		t.Fatalf("adjacent window: unexpected error %v", err)
	}

	// Another day of the week is a separate scope.
	if _, err := s.Create(context.Background(), CreateParams{VenueID: &venueID, DayOfWeek: 2, Start: "09:00", End: "17:00"}); err != nil {
		t.Fatalf("other day: unexpected error %v", err)
	}

	// Staff scope is independent of the venue scope.
	if _, err := s.Create(context.Background(), CreateParams{StaffMemberID: &staffID, DayOfWeek: 1, Start: "09:00", End: "17:00"}); err != nil {
		t.Fatalf("staff scope: unexpected error %v", err)
	}
}

func TestCreateIgnoresInactiveRules(t *testing.T) {
	venueID := int64(1)
	store := &fakeStore{rules: []model.AvailabilityRule{
		{ID: 1, VenueID: &venueID, DayOfWeek: 1, StartMinute: 540, EndMinute: 1020, IsActive: false},
	}}
	s := NewService(nil, store, slog.Default())

	rule, err := s.Create(context.Background(), CreateParams{VenueID: &venueID, DayOfWeek: 1, Start: "09:00", End: "17:00"})
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if !rule.IsActive || rule.ID == 0 {
		t.Fatalf("created rule not stored: %+v", rule)
	}
}
