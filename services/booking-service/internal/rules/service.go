// Package rules administers the weekly availability windows venues and
// staff members publish their open hours through.
package rules

import (
	"context"
	"log/slog"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/booking"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/storage"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

// Store is the persistence surface the service needs. Satisfied by
// *storage.RuleRepository.
type Store interface {
	VenueRules(ctx context.Context, q db.Querier, venueID int64, weekday int) ([]model.AvailabilityRule, error)
	StaffRules(ctx context.Context, q db.Querier, staffID int64, weekday int) ([]model.AvailabilityRule, error)
	ListForVenue(ctx context.Context, q db.Querier, venueID int64) ([]model.AvailabilityRule, error)
	Create(ctx context.Context, q db.Querier, rule *model.AvailabilityRule) error
	Deactivate(ctx context.Context, q db.Querier, id int64) error
}

type Service struct {
	pool   *db.Pool
	repo   Store
	logger *slog.Logger
}

func NewService(pool *db.Pool, repo Store, logger *slog.Logger) *Service {
	return &Service{pool: pool, repo: repo, logger: logger}
}

type CreateParams struct {
	VenueID       *int64
	StaffMemberID *int64
	DayOfWeek     int
	Start         string // "HH:MM"
	End           string // "HH:MM"
}

// Create validates and stores a new active rule. A rule belongs to exactly
// one scope: a venue's shared hours or one staff member's hours.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.AvailabilityRule, error) {
	if (p.VenueID == nil) == (p.StaffMemberID == nil) {
		return model.AvailabilityRule{}, booking.NewError(booking.KindValidation, "exactly one of venue_id or staff_member_id must be set")
	}
	if p.DayOfWeek < 0 || p.DayOfWeek > 6 {
		return model.AvailabilityRule{}, booking.NewError(booking.KindValidation, "day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	start := timeslot.ToMinutes(p.Start)
	end := timeslot.ToMinutes(p.End)
	if start == timeslot.InvalidMinutes || end == timeslot.InvalidMinutes {
		return model.AvailabilityRule{}, booking.NewError(booking.KindValidation, "start_time and end_time must be in HH:MM format")
	}
	if end <= start {
		return model.AvailabilityRule{}, booking.NewError(booking.KindValidation, "end_time must be after start_time")
	}

	// Two active windows overlapping on the same scope and day would
	// double-count that span during slot generation.
	existing, err := s.scopeRules(ctx, p, p.DayOfWeek)
	if err != nil {
		return model.AvailabilityRule{}, err
	}
	for _, r := range existing {
		if r.IsActive && timeslot.Overlaps(start, end, r.StartMinute, r.EndMinute) {
			return model.AvailabilityRule{}, booking.NewError(booking.KindConflict,
				"window overlaps an existing active rule for this day")
		}
	}

	rule := model.AvailabilityRule{
		VenueID:       p.VenueID,
		StaffMemberID: p.StaffMemberID,
		DayOfWeek:     p.DayOfWeek,
		StartMinute:   start,
		EndMinute:     end,
		IsActive:      true,
	}
	if err := s.repo.Create(ctx, s.pool, &rule); err != nil {
		return model.AvailabilityRule{}, err
	}
	s.logger.Info("availability rule created", "rule_id", rule.ID, "day_of_week", rule.DayOfWeek)
	return rule, nil
}

func (s *Service) scopeRules(ctx context.Context, p CreateParams, weekday int) ([]model.AvailabilityRule, error) {
	if p.VenueID != nil {
		return s.repo.VenueRules(ctx, s.pool, *p.VenueID, weekday)
	}
	return s.repo.StaffRules(ctx, s.pool, *p.StaffMemberID, weekday)
}

func (s *Service) ListForVenue(ctx context.Context, venueID int64) ([]model.AvailabilityRule, error) {
	return s.repo.ListForVenue(ctx, s.pool, venueID)
}

// Deactivate retires a rule without deleting it. Existing bookings made
// under the rule are untouched; only future slot generation changes.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	err := s.repo.Deactivate(ctx, s.pool, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return booking.NewError(booking.KindNotFound, "rule not found")
		}
		return err
	}
	s.logger.Info("availability rule deactivated", "rule_id", id)
	return nil
}
