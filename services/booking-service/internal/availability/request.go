package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

// Category classifies a validation problem so the lifecycle layer can map
// the aggregate result onto its error taxonomy.
type Category int

const (
	CategoryShape Category = iota + 1
	CategoryNotFound
	CategoryPolicy
	CategoryConflict
)

type Problem struct {
	Category Category
	Message  string
}

// BookingRequest carries the raw inputs of a create or reschedule attempt.
// Date and Start are strings on purpose: format validation is part of this
// gate, not of the transport layer.
type BookingRequest struct {
	VenueID          int64
	ServiceID        int64
	StaffMemberID    *int64
	Date             string // "2006-01-02"
	Start            string // "HH:MM"
	PartySize        int
	ExcludeBookingID int64
}

type ValidateOptions struct {
	BypassAdvance bool
}

// ResolvedRequest is the parsed, venue/service-resolved form of a request
// that passed validation, ready to be persisted.
type ResolvedRequest struct {
	Venue       model.Venue
	Service     model.Service
	Date        time.Time
	StartMinute int
	EndMinute   int
}

// ValidateRequest is the single gate every create and reschedule path goes
// through. It aggregates every human-readable problem it finds; an empty
// problem list means the request may be committed. Storage failures are the
// only errors returned.
func (v *Validator) ValidateRequest(ctx context.Context, q db.Querier, req BookingRequest, opts ValidateOptions) (*ResolvedRequest, []Problem, error) {
	var problems []Problem
	shape := func(msg string) { problems = append(problems, Problem{Category: CategoryShape, Message: msg}) }

	if req.PartySize < MinPartySize || req.PartySize > MaxPartySize {
		shape(fmt.Sprintf("party size must be between %d and %d", MinPartySize, MaxPartySize))
	}

	date, dateErr := time.ParseInLocation("2006-01-02", req.Date, time.UTC)
	if dateErr != nil {
		shape("date must be in YYYY-MM-DD format")
	}
	startMinute := timeslot.ToMinutes(req.Start)
	if startMinute == timeslot.InvalidMinutes {
		shape("start time must be in HH:MM format")
	}
	if dateErr != nil || startMinute == timeslot.InvalidMinutes {
		return nil, problems, nil
	}

	venue, err := v.dir.Venue(ctx, q, req.VenueID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, append(problems, Problem{Category: CategoryNotFound, Message: "venue not found"}), nil
		}
		return nil, nil, err
	}
	if !venue.IsActive {
		return nil, append(problems, Problem{Category: CategoryNotFound, Message: "venue is not accepting bookings"}), nil
	}

	svc, err := v.dir.Service(ctx, q, req.ServiceID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, append(problems, Problem{Category: CategoryNotFound, Message: "service not found"}), nil
		}
		return nil, nil, err
	}
	if !svc.IsActive {
		return nil, append(problems, Problem{Category: CategoryNotFound, Message: "service is not available"}), nil
	}
	if svc.VenueID != venue.ID {
		return nil, append(problems, Problem{Category: CategoryNotFound, Message: "service does not belong to this venue"}), nil
	}

	endMinute := startMinute + svc.DurationMinutes
	if endMinute > 24*60 {
		shape("requested time runs past the end of the day")
	}

	now := v.now().UTC()
	startAt := date.Add(time.Duration(startMinute) * time.Minute)
	if !startAt.After(now) {
		shape("booking time must be in the future")
	} else if !opts.BypassAdvance && venue.BookingAdvanceHours > 0 {
		lead := startAt.Sub(now).Hours()
		if lead < float64(venue.BookingAdvanceHours) {
			problems = append(problems, Problem{
				Category: CategoryPolicy,
				Message: fmt.Sprintf("bookings require %d hours advance notice; requested time is %.1f hours away",
					venue.BookingAdvanceHours, lead),
			})
		}
	}

	if svc.RequiresStaff {
		if req.StaffMemberID == nil {
			shape("this service requires selecting a staff member")
		} else {
			staff, err := v.dir.Staff(ctx, q, *req.StaffMemberID)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					problems = append(problems, Problem{Category: CategoryNotFound, Message: "staff member not found"})
				} else {
					return nil, nil, err
				}
			} else if !staff.IsActive || staff.VenueID != venue.ID {
				problems = append(problems, Problem{Category: CategoryNotFound, Message: "staff member not found"})
			} else {
				capable, err := v.dir.StaffCanPerform(ctx, q, staff.ID, svc.ID)
				if err != nil {
					return nil, nil, err
				}
				if !capable {
					shape("staff member cannot perform this service")
				}
			}
		}
	}

	if len(problems) > 0 {
		return nil, problems, nil
	}

	check, err := v.IsSlotAvailable(ctx, q, svc, SlotRequest{
		Date:             date,
		StartMinute:      startMinute,
		EndMinute:        endMinute,
		PartySize:        req.PartySize,
		StaffMemberID:    req.StaffMemberID,
		ExcludeBookingID: req.ExcludeBookingID,
	})
	if err != nil {
		return nil, nil, err
	}
	if !check.Available {
		return nil, []Problem{{Category: CategoryConflict, Message: check.Reason}}, nil
	}

	return &ResolvedRequest{
		Venue:       venue,
		Service:     svc,
		Date:        date,
		StartMinute: startMinute,
		EndMinute:   endMinute,
	}, nil, nil
}
