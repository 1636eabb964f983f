// Package availability decides whether a requested slot can be booked and
// computes day-level slot listings. It never treats "slot not available" as
// an error: negative answers carry a human-readable reason instead.
package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

const (
	MinPartySize = 1
	MaxPartySize = 8
)

type DirectoryStore interface {
	Venue(ctx context.Context, q db.Querier, id int64) (model.Venue, error)
	Service(ctx context.Context, q db.Querier, id int64) (model.Service, error)
	Staff(ctx context.Context, q db.Querier, id int64) (model.StaffMember, error)
	StaffCanPerform(ctx context.Context, q db.Querier, staffID, serviceID int64) (bool, error)
	ActiveStaffForService(ctx context.Context, q db.Querier, serviceID int64) ([]model.StaffMember, error)
}

type RuleStore interface {
	VenueRules(ctx context.Context, q db.Querier, venueID int64, weekday int) ([]model.AvailabilityRule, error)
	StaffRules(ctx context.Context, q db.Querier, staffID int64, weekday int) ([]model.AvailabilityRule, error)
}

type BookingStore interface {
	// Occupying returns bookings holding the resource on date: keyed by
	// (venue, staff) when staffID is set, (venue, service) otherwise.
	// Rows matching excludeID are omitted (reschedule self-exclusion).
	Occupying(ctx context.Context, q db.Querier, venueID, serviceID int64, staffID *int64, date time.Time, excludeID int64) ([]model.Booking, error)
}

type Validator struct {
	dir      DirectoryStore
	rules    RuleStore
	bookings BookingStore
	now      func() time.Time
}

func New(dir DirectoryStore, rules RuleStore, bookings BookingStore) *Validator {
	return &Validator{
		dir:      dir,
		rules:    rules,
		bookings: bookings,
		now:      time.Now,
	}
}

type SlotRequest struct {
	Date             time.Time
	StartMinute      int
	EndMinute        int
	PartySize        int
	StaffMemberID    *int64
	ExcludeBookingID int64
}

type CheckResult struct {
	Available bool
	Reason    string
	// RemainingCapacity is meaningful for capacity-mode services only.
	RemainingCapacity int
}

// IsSlotAvailable answers whether one specific slot can be booked right now,
// given the service's availability rules and the bookings already holding
// the resource. It returns an error only for storage failures.
func (v *Validator) IsSlotAvailable(ctx context.Context, q db.Querier, svc model.Service, req SlotRequest) (CheckResult, error) {
	if !svc.IsActive {
		return CheckResult{Reason: "service is not available"}, nil
	}
	if !svc.RequiresStaff && req.PartySize > svc.Capacity {
		return CheckResult{Reason: fmt.Sprintf("party size %d exceeds capacity %d", req.PartySize, svc.Capacity)}, nil
	}

	mode, problem := modeFor(svc, req.StaffMemberID)
	if problem != "" {
		return CheckResult{Reason: problem}, nil
	}

	weekday := int(req.Date.Weekday())
	rules, err := mode.windows(ctx, q, v.rules, svc.VenueID, weekday)
	if err != nil {
		return CheckResult{}, err
	}
	rules = activeRules(rules)
	if len(rules) == 0 {
		return CheckResult{Reason: mode.closedReason()}, nil
	}
	if !containedInAny(rules, req.StartMinute, req.EndMinute) {
		return CheckResult{Reason: "requested time is outside opening hours"}, nil
	}

	existing, err := v.bookings.Occupying(ctx, q, svc.VenueID, svc.ID, mode.staffKey(), req.Date, req.ExcludeBookingID)
	if err != nil {
		return CheckResult{}, err
	}

	res := mode.conflict(overlappingOn(existing, req.StartMinute, req.EndMinute), req.PartySize)
	return CheckResult{Available: res.ok, Reason: res.reason, RemainingCapacity: res.remaining}, nil
}

type DaySlot struct {
	StaffMemberID     *int64
	StartMinute       int
	EndMinute         int
	Available         bool
	Reason            string
	RemainingCapacity int
}

type DayOptions struct {
	// PartySize defaults to 1 when zero.
	PartySize int
	// WindowStartMinute/WindowEndMinute restrict results to a clock band
	// when both are >= 0 (used to bias reschedule suggestions toward the
	// customer's original time).
	WindowStartMinute int
	WindowEndMinute   int
}

// DaySlots lists every candidate slot for the service on date with its
// availability. Staff-mode services fan out over each eligible staff member;
// capacity-mode services produce one slot set for the venue. Slots starting
// sooner than the venue's advance-notice window are dropped entirely.
func (v *Validator) DaySlots(ctx context.Context, q db.Querier, venue model.Venue, svc model.Service, date time.Time, opts DayOptions) ([]DaySlot, error) {
	partySize := opts.PartySize
	if partySize <= 0 {
		partySize = 1
	}

	modes, err := v.dayModes(ctx, q, svc)
	if err != nil {
		return nil, err
	}

	date = atMidnightUTC(date)
	weekday := int(date.Weekday())

	seen := make(map[string]struct{})
	var slots []DaySlot
	for _, mode := range modes {
		rules, err := mode.windows(ctx, q, v.rules, svc.VenueID, weekday)
		if err != nil {
			return nil, err
		}
		rules = activeRules(rules)
		if len(rules) == 0 {
			continue
		}

		existing, err := v.bookings.Occupying(ctx, q, svc.VenueID, svc.ID, mode.staffKey(), date, 0)
		if err != nil {
			return nil, err
		}

		for _, rule := range rules {
			for _, s := range timeslot.Tile(rule.StartMinute, rule.EndMinute, svc.DurationMinutes) {
				key := slotKey(s.Start, s.End, mode.staffKey())
				if _, dup := seen[key]; dup {
					continue
				}
				seen[key] = struct{}{}

				res := mode.conflict(overlappingOn(existing, s.Start, s.End), partySize)
				slots = append(slots, DaySlot{
					StaffMemberID:     mode.staffKey(),
					StartMinute:       s.Start,
					EndMinute:         s.End,
					Available:         res.ok,
					Reason:            res.reason,
					RemainingCapacity: res.remaining,
				})
			}
		}
	}

	slots = v.filterAdvance(slots, venue, date)
	if opts.WindowStartMinute >= 0 && opts.WindowEndMinute > opts.WindowStartMinute {
		slots = filterBand(slots, opts.WindowStartMinute, opts.WindowEndMinute)
	}

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].StartMinute != slots[j].StartMinute {
			return slots[i].StartMinute < slots[j].StartMinute
		}
		return staffOrd(slots[i].StaffMemberID) < staffOrd(slots[j].StaffMemberID)
	})
	return slots, nil
}

// dayModes enumerates the concrete resources a day query fans out over:
// one staffBound per eligible active staff member, or one capacityBound.
func (v *Validator) dayModes(ctx context.Context, q db.Querier, svc model.Service) ([]resourceMode, error) {
	if !svc.RequiresStaff {
		return []resourceMode{capacityBound{capacity: svc.Capacity}}, nil
	}
	staff, err := v.dir.ActiveStaffForService(ctx, q, svc.ID)
	if err != nil {
		return nil, err
	}
	modes := make([]resourceMode, 0, len(staff))
	for _, s := range staff {
		modes = append(modes, staffBound{id: s.ID})
	}
	return modes, nil
}

func (v *Validator) filterAdvance(slots []DaySlot, venue model.Venue, date time.Time) []DaySlot {
	cutoff := v.now().UTC().Add(time.Duration(venue.BookingAdvanceHours) * time.Hour)
	out := slots[:0]
	for _, s := range slots {
		startAt := date.Add(time.Duration(s.StartMinute) * time.Minute)
		if startAt.Before(cutoff) {
			continue
		}
		out = append(out, s)
	}
	return out
}

func filterBand(slots []DaySlot, from, to int) []DaySlot {
	out := slots[:0]
	for _, s := range slots {
		if s.StartMinute >= from && s.StartMinute <= to {
			out = append(out, s)
		}
	}
	return out
}

func activeRules(rules []model.AvailabilityRule) []model.AvailabilityRule {
	out := rules[:0]
	for _, r := range rules {
		if r.IsActive {
			out = append(out, r)
		}
	}
	return out
}

func containedInAny(rules []model.AvailabilityRule, start, end int) bool {
	for _, r := range rules {
		if r.StartMinute <= start && end <= r.EndMinute {
			return true
		}
	}
	return false
}

func slotKey(start, end int, staffID *int64) string {
	if staffID == nil {
		return fmt.Sprintf("%d-%d", start, end)
	}
	return fmt.Sprintf("%d-%d-%d", start, end, *staffID)
}

func staffOrd(id *int64) int64 {
	if id == nil {
		return 0
	}
	return *id
}
