package availability

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

type fakeDir struct {
	venues   map[int64]model.Venue
	services map[int64]model.Service
	staff    map[int64]model.StaffMember
	capable  map[string]bool
	svcStaff map[int64][]model.StaffMember
}

func (f *fakeDir) Venue(_ context.Context, _ db.Querier, id int64) (model.Venue, error) {
	v, ok := f.venues[id]
	if !ok {
		return model.Venue{}, pgx.ErrNoRows
	}
	return v, nil
}

func (f *fakeDir) Service(_ context.Context, _ db.Querier, id int64) (model.Service, error) {
	s, ok := f.services[id]
	if !ok {
		return model.Service{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeDir) Staff(_ context.Context, _ db.Querier, id int64) (model.StaffMember, error) {
	s, ok := f.staff[id]
	if !ok {
		return model.StaffMember{}, pgx.ErrNoRows
	}
	return s, nil
}

func (f *fakeDir) StaffCanPerform(_ context.Context, _ db.Querier, staffID, serviceID int64) (bool, error) {
	return f.capable[fmt.Sprintf("%d/%d", staffID, serviceID)], nil
}

func (f *fakeDir) ActiveStaffForService(_ context.Context, _ db.Querier, serviceID int64) ([]model.StaffMember, error) {
	return f.svcStaff[serviceID], nil
}

type fakeRules struct {
	venue map[int64][]model.AvailabilityRule // keyed by venue id
	staff map[int64][]model.AvailabilityRule // keyed by staff id
}

func (f *fakeRules) VenueRules(_ context.Context, _ db.Querier, venueID int64, weekday int) ([]model.AvailabilityRule, error) {
	return rulesForDay(f.venue[venueID], weekday), nil
}

func (f *fakeRules) StaffRules(_ context.Context, _ db.Querier, staffID int64, weekday int) ([]model.AvailabilityRule, error) {
	return rulesForDay(f.staff[staffID], weekday), nil
}

func rulesForDay(rules []model.AvailabilityRule, weekday int) []model.AvailabilityRule {
	var out []model.AvailabilityRule
	for _, r := range rules {
		if r.DayOfWeek == weekday {
			out = append(out, r)
		}
	}
	return out
}

type fakeBookings struct {
	items []model.Booking
}

func (f *fakeBookings) Occupying(_ context.Context, _ db.Querier, venueID, serviceID int64, staffID *int64, date time.Time, excludeID int64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.items {
		if b.VenueID != venueID || !b.Date.Equal(date) || !b.Status.Occupies() {
			continue
		}
		if excludeID != 0 && b.ID == excludeID {
			continue
		}
		if staffID != nil {
			if b.StaffMemberID == nil || *b.StaffMemberID != *staffID {
				continue
			}
		} else if b.ServiceID != serviceID {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

var (
	// Tuesday.
	testDate = time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	staffOne = int64(10)
)

func allDayRule(weekday int) model.AvailabilityRule {
	return model.AvailabilityRule{DayOfWeek: weekday, StartMinute: 540, EndMinute: 1020, IsActive: true} // 09:00-17:00
}

func newTestValidator(dir *fakeDir, rules *fakeRules, bookings *fakeBookings) *Validator {
	v := New(dir, rules, bookings)
	v.now = func() time.Time { return time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC) }
	return v
}

func staffService() (model.Service, *fakeDir, *fakeRules) {
	svc := model.Service{ID: 1, VenueID: 1, Name: "Haircut", DurationMinutes: 60, RequiresStaff: true, IsActive: true}
	dir := &fakeDir{
		venues:   map[int64]model.Venue{1: {ID: 1, Name: "Salon", BookingAdvanceHours: 2, CancellationHours: 24, IsActive: true}},
		services: map[int64]model.Service{1: svc},
		staff:    map[int64]model.StaffMember{staffOne: {ID: staffOne, VenueID: 1, Name: "Dana", IsActive: true}},
		capable:  map[string]bool{"10/1": true},
		svcStaff: map[int64][]model.StaffMember{1: {{ID: staffOne, VenueID: 1, Name: "Dana", IsActive: true}}},
	}
	rules := &fakeRules{staff: map[int64][]model.AvailabilityRule{staffOne: {allDayRule(int(testDate.Weekday()))}}}
	return svc, dir, rules
}

func capacityService(capacity int) (model.Service, *fakeDir, *fakeRules) {
	svc := model.Service{ID: 2, VenueID: 1, Name: "Dinner", DurationMinutes: 90, Capacity: capacity, IsActive: true}
	dir := &fakeDir{
		venues:   map[int64]model.Venue{1: {ID: 1, Name: "Bistro", BookingAdvanceHours: 2, CancellationHours: 24, IsActive: true}},
		services: map[int64]model.Service{2: svc},
	}
	rules := &fakeRules{venue: map[int64][]model.AvailabilityRule{1: {allDayRule(int(testDate.Weekday()))}}}
	return svc, dir, rules
}

func confirmedBooking(id int64, svc model.Service, staffID *int64, start, end, party int) model.Booking {
	return model.Booking{
		ID: id, VenueID: svc.VenueID, ServiceID: svc.ID, StaffMemberID: staffID,
		Date: testDate, StartMinute: start, EndMinute: end, PartySize: party,
		Status: model.StatusConfirmed,
	}
}

func TestIsSlotAvailable_StaffConflict(t *testing.T) {
	svc, dir, rules := staffService()
	bookings := &fakeBookings{items: []model.Booking{
		confirmedBooking(1, svc, &staffOne, 600, 660, 1), // 10:00-11:00
	}}
	v := newTestValidator(dir, rules, bookings)

	res, err := v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 630, EndMinute: 690, PartySize: 1, StaffMemberID: &staffOne,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available {
		t.Fatal("expected overlapping staff slot to be unavailable")
	}

	// Adjacent slot touching at 11:00 does not conflict.
	res, err = v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 660, EndMinute: 720, PartySize: 1, StaffMemberID: &staffOne,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("adjacent slot should be available, got reason %q", res.Reason)
	}
}

func TestIsSlotAvailable_SelfExclusionOnReschedule(t *testing.T) {
	svc, dir, rules := staffService()
	bookings := &fakeBookings{items: []model.Booking{
		confirmedBooking(7, svc, &staffOne, 600, 660, 1),
	}}
	v := newTestValidator(dir, rules, bookings)

	res, err := v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 600, EndMinute: 660, PartySize: 1, StaffMemberID: &staffOne,
		ExcludeBookingID: 7,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("booking should not conflict with itself, got %q", res.Reason)
	}
}

func TestIsSlotAvailable_CapacityAccumulation(t *testing.T) {
	svc, dir, rules := capacityService(6)
	bookings := &fakeBookings{items: []model.Booking{
		confirmedBooking(1, svc, nil, 1080, 1170, 2),
		confirmedBooking(2, svc, nil, 1080, 1170, 3),
	}}
	// Extend opening hours into the evening for this case.
	rules.venue[1] = []model.AvailabilityRule{{DayOfWeek: int(testDate.Weekday()), StartMinute: 540, EndMinute: 1380, IsActive: true}}
	v := newTestValidator(dir, rules, bookings)

	// 2 + 3 + 2 = 7 > 6: conflict.
	res, err := v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 1080, EndMinute: 1170, PartySize: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available {
		t.Fatal("expected capacity overflow to conflict")
	}
	if res.RemainingCapacity != 1 {
		t.Fatalf("remaining capacity = %d, want 1", res.RemainingCapacity)
	}

	// 2 + 3 + 1 = 6 <= 6: fits.
	res, err = v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 1080, EndMinute: 1170, PartySize: 1,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Available {
		t.Fatalf("party of 1 should fit, got %q", res.Reason)
	}
}

func TestIsSlotAvailable_OutsideOpeningHours(t *testing.T) {
	svc, dir, rules := capacityService(6)
	v := newTestValidator(dir, rules, &fakeBookings{})

	res, err := v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 480, EndMinute: 570, PartySize: 2, // starts 08:00, opens 09:00
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available {
		t.Fatal("slot outside opening hours should be unavailable")
	}
}

func TestIsSlotAvailable_ClosedDay(t *testing.T) {
	svc, dir, rules := capacityService(6)
	rules.venue[1] = nil
	v := newTestValidator(dir, rules, &fakeBookings{})

	res, err := v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 600, EndMinute: 690, PartySize: 2,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available || res.Reason == "" {
		t.Fatalf("closed day should be unavailable with a reason, got %+v", res)
	}
}

func TestIsSlotAvailable_PartySizeOverCapacity(t *testing.T) {
	svc, dir, rules := capacityService(4)
	v := newTestValidator(dir, rules, &fakeBookings{})

	res, err := v.IsSlotAvailable(context.Background(), nil, svc, SlotRequest{
		Date: testDate, StartMinute: 600, EndMinute: 690, PartySize: 5,
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Available {
		t.Fatal("party larger than capacity should be rejected")
	}
}

func TestDaySlots_StaffModeMarksBookedSlots(t *testing.T) {
	svc, dir, rules := staffService()
	bookings := &fakeBookings{items: []model.Booking{
		confirmedBooking(1, svc, &staffOne, 600, 660, 1), // 10:00-11:00
	}}
	v := newTestValidator(dir, rules, bookings)
	venue := dir.venues[1]

	slots, err := v.DaySlots(context.Background(), nil, venue, svc, testDate, DayOptions{WindowStartMinute: -1, WindowEndMinute: -1})
	if err != nil {
		t.Fatal(err)
	}
	// 09:00-17:00 with 60-min duration: 8 slots.
	if len(slots) != 8 {
		t.Fatalf("expected 8 slots, got %d", len(slots))
	}
	for _, s := range slots {
		wantAvailable := s.StartMinute != 600
		if s.Available != wantAvailable {
			t.Errorf("slot %d available = %v, want %v", s.StartMinute, s.Available, wantAvailable)
		}
		if s.StaffMemberID == nil || *s.StaffMemberID != staffOne {
			t.Errorf("slot %d missing staff tag", s.StartMinute)
		}
	}
}

func TestDaySlots_CapacityRemaining(t *testing.T) {
	svc, dir, rules := capacityService(6)
	bookings := &fakeBookings{items: []model.Booking{
		confirmedBooking(1, svc, nil, 540, 630, 4), // 09:00-10:30, party 4
	}}
	v := newTestValidator(dir, rules, bookings)
	venue := dir.venues[1]

	slots, err := v.DaySlots(context.Background(), nil, venue, svc, testDate, DayOptions{PartySize: 3, WindowStartMinute: -1, WindowEndMinute: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}
	first := slots[0]
	if first.StartMinute != 540 {
		t.Fatalf("first slot start = %d, want 540", first.StartMinute)
	}
	if first.Available {
		t.Error("first slot should not fit a party of 3 with 4 seats taken")
	}
	if first.RemainingCapacity != 2 {
		t.Errorf("remaining = %d, want 2", first.RemainingCapacity)
	}
}

func TestDaySlots_AdvanceHoursFilter(t *testing.T) {
	svc, dir, rules := capacityService(6)
	v := newTestValidator(dir, rules, &fakeBookings{})
	venue := dir.venues[1]
	venue.BookingAdvanceHours = 48

	// Querying the day 24h out: every slot is inside the 48h window and dropped.
	day := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	rules.venue[1] = []model.AvailabilityRule{{DayOfWeek: int(day.Weekday()), StartMinute: 540, EndMinute: 1020, IsActive: true}}

	slots, err := v.DaySlots(context.Background(), nil, venue, svc, day, DayOptions{WindowStartMinute: -1, WindowEndMinute: -1})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected all slots filtered by advance notice, got %d", len(slots))
	}
}

func TestDaySlots_TimeBandFilter(t *testing.T) {
	svc, dir, rules := staffService()
	v := newTestValidator(dir, rules, &fakeBookings{})
	venue := dir.venues[1]

	slots, err := v.DaySlots(context.Background(), nil, venue, svc, testDate, DayOptions{
		WindowStartMinute: 720, WindowEndMinute: 840, // 12:00-14:00
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots in band, got %d", len(slots))
	}
	for _, s := range slots {
		if s.StartMinute < 720 || s.StartMinute > 840 {
			t.Errorf("slot %d outside requested band", s.StartMinute)
		}
	}
}

func TestValidateRequest_ShapeErrors(t *testing.T) {
	_, dir, rules := staffService()
	v := newTestValidator(dir, rules, &fakeBookings{})

	_, problems, err := v.ValidateRequest(context.Background(), nil, BookingRequest{
		VenueID: 1, ServiceID: 1, Date: "2026-9-15", Start: "9:00", PartySize: 0,
	}, ValidateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 3 {
		t.Fatalf("expected 3 shape problems, got %d: %+v", len(problems), problems)
	}
	for _, p := range problems {
		if p.Category != CategoryShape {
			t.Errorf("problem %q category = %d, want shape", p.Message, p.Category)
		}
	}
}

func TestValidateRequest_AdvancePolicy(t *testing.T) {
	svc, dir, rules := capacityService(6)
	venue := dir.venues[1]
	venue.BookingAdvanceHours = 48
	dir.venues[1] = venue
	v := newTestValidator(dir, rules, &fakeBookings{})
	// now = 2026-09-01 12:00 UTC; 47 hours out = 2026-09-03 11:00.
	day := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	rules.venue[1] = []model.AvailabilityRule{{DayOfWeek: int(day.Weekday()), StartMinute: 540, EndMinute: 1020, IsActive: true}}

	req := BookingRequest{VenueID: 1, ServiceID: svc.ID, Date: "2026-09-03", Start: "11:00", PartySize: 2}

	_, problems, err := v.ValidateRequest(context.Background(), nil, req, ValidateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 1 || problems[0].Category != CategoryPolicy {
		t.Fatalf("expected one policy problem, got %+v", problems)
	}

	resolved, problems, err := v.ValidateRequest(context.Background(), nil, req, ValidateOptions{BypassAdvance: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Fatalf("bypass should clear the policy problem, got %+v", problems)
	}
	if resolved == nil || resolved.EndMinute != resolved.StartMinute+svc.DurationMinutes {
		t.Fatalf("resolved slot not derived from service duration: %+v", resolved)
	}
}

func TestValidateRequest_StaffCapability(t *testing.T) {
	_, dir, rules := staffService()
	dir.capable = map[string]bool{}
	v := newTestValidator(dir, rules, &fakeBookings{})

	staffID := staffOne
	_, problems, err := v.ValidateRequest(context.Background(), nil, BookingRequest{
		VenueID: 1, ServiceID: 1, StaffMemberID: &staffID, Date: "2026-09-15", Start: "10:00", PartySize: 1,
	}, ValidateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 1 || problems[0].Category != CategoryShape {
		t.Fatalf("expected capability problem, got %+v", problems)
	}
}

func TestValidateRequest_ConflictAfterBooking(t *testing.T) {
	svc, dir, rules := staffService()
	bookings := &fakeBookings{}
	v := newTestValidator(dir, rules, bookings)

	staffID := staffOne
	req := BookingRequest{
		VenueID: 1, ServiceID: 1, StaffMemberID: &staffID, Date: "2026-09-15", Start: "10:00", PartySize: 1,
	}
	resolved, problems, err := v.ValidateRequest(context.Background(), nil, req, ValidateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 0 {
		t.Fatalf("expected clean validation, got %+v", problems)
	}

	// Commit the booking, then re-validate the identical slot.
	bookings.items = append(bookings.items, model.Booking{
		ID: 1, VenueID: 1, ServiceID: svc.ID, StaffMemberID: &staffID,
		Date: resolved.Date, StartMinute: resolved.StartMinute, EndMinute: resolved.EndMinute,
		PartySize: 1, Status: model.StatusConfirmed,
	})

	_, problems, err = v.ValidateRequest(context.Background(), nil, req, ValidateOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(problems) != 1 || problems[0].Category != CategoryConflict {
		t.Fatalf("expected conflict after commit, got %+v", problems)
	}
}
