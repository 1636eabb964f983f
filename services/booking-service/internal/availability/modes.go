package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

// resourceMode is the tagged variant behind the two booking modes. Staff-bound
// services contend on one person's calendar; capacity-bound services contend
// on a shared seat count. Each variant owns its rule scope, its occupancy
// query key, and its conflict policy, so call sites never branch on a flag.
type resourceMode interface {
	staffKey() *int64
	closedReason() string
	windows(ctx context.Context, q db.Querier, rules RuleStore, venueID int64, weekday int) ([]model.AvailabilityRule, error)
	conflict(overlapping []model.Booking, partySize int) conflictResult
}

type conflictResult struct {
	ok        bool
	reason    string
	remaining int
}

type staffBound struct {
	id int64
}

func (m staffBound) staffKey() *int64 {
	id := m.id
	return &id
}

func (m staffBound) closedReason() string {
	return "staff member is not available on this day"
}

func (m staffBound) windows(ctx context.Context, q db.Querier, rules RuleStore, _ int64, weekday int) ([]model.AvailabilityRule, error) {
	return rules.StaffRules(ctx, q, m.id, weekday)
}

// A person cannot be double-booked: any overlap is a conflict.
func (m staffBound) conflict(overlapping []model.Booking, _ int) conflictResult {
	if len(overlapping) > 0 {
		return conflictResult{ok: false, reason: "staff member is already booked at this time"}
	}
	return conflictResult{ok: true}
}

type capacityBound struct {
	capacity int
}

func (m capacityBound) staffKey() *int64 { return nil }

func (m capacityBound) closedReason() string {
	return "venue is closed on this day"
}

func (m capacityBound) windows(ctx context.Context, q db.Querier, rules RuleStore, venueID int64, weekday int) ([]model.AvailabilityRule, error) {
	return rules.VenueRules(ctx, q, venueID, weekday)
}

// Multiple parties may co-occupy a capacity slot as long as the combined
// size stays within the service capacity.
func (m capacityBound) conflict(overlapping []model.Booking, partySize int) conflictResult {
	occupied := 0
	for _, b := range overlapping {
		occupied += b.PartySize
	}
	remaining := m.capacity - occupied
	if remaining < 0 {
		remaining = 0
	}
	if occupied+partySize > m.capacity {
		return conflictResult{
			ok:        false,
			reason:    fmt.Sprintf("party of %d exceeds remaining capacity of %d", partySize, remaining),
			remaining: remaining,
		}
	}
	return conflictResult{ok: true, remaining: remaining}
}

func modeFor(svc model.Service, staffID *int64) (resourceMode, string) {
	if svc.RequiresStaff {
		if staffID == nil {
			return nil, "this service requires selecting a staff member"
		}
		return staffBound{id: *staffID}, ""
	}
	return capacityBound{capacity: svc.Capacity}, ""
}

func overlappingOn(existing []model.Booking, startMinute, endMinute int) []model.Booking {
	var out []model.Booking
	for _, b := range existing {
		if b.StartMinute < endMinute && startMinute < b.EndMinute {
			out = append(out, b)
		}
	}
	return out
}

func atMidnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
