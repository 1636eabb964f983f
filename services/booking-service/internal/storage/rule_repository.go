package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

const ruleColumns = `id, venue_id, staff_member_id, day_of_week, start_minute, end_minute, is_active`

type RuleRepository struct{}

func NewRuleRepository() *RuleRepository {
	return &RuleRepository{}
}

func (r *RuleRepository) VenueRules(ctx context.Context, q db.Querier, venueID int64, weekday int) ([]model.AvailabilityRule, error) {
	rows, err := q.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE venue_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`, venueID, weekday)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *RuleRepository) StaffRules(ctx context.Context, q db.Querier, staffID int64, weekday int) ([]model.AvailabilityRule, error) {
	rows, err := q.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE staff_member_id = $1 AND day_of_week = $2
		ORDER BY start_minute
	`, staffID, weekday)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *RuleRepository) ListForVenue(ctx context.Context, q db.Querier, venueID int64) ([]model.AvailabilityRule, error) {
	rows, err := q.Query(ctx, `
		SELECT `+ruleColumns+`
		FROM availability_rules
		WHERE venue_id = $1
		   OR staff_member_id IN (SELECT id FROM staff_members WHERE venue_id = $1)
		ORDER BY day_of_week, start_minute, id
	`, venueID)
	if err != nil {
		return nil, err
	}
	return collectRules(rows)
}

func (r *RuleRepository) Create(ctx context.Context, q db.Querier, rule *model.AvailabilityRule) error {
	return q.QueryRow(ctx, `
		INSERT INTO availability_rules (venue_id, staff_member_id, day_of_week, start_minute, end_minute, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`, rule.VenueID, rule.StaffMemberID, rule.DayOfWeek, rule.StartMinute, rule.EndMinute, rule.IsActive).Scan(&rule.ID)
}

func (r *RuleRepository) Deactivate(ctx context.Context, q db.Querier, id int64) error {
	tag, err := q.Exec(ctx, `
		UPDATE availability_rules SET is_active = false WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func collectRules(rows pgx.Rows) ([]model.AvailabilityRule, error) {
	defer rows.Close()
	var out []model.AvailabilityRule
	for rows.Next() {
		var r model.AvailabilityRule
		if err := rows.Scan(&r.ID, &r.VenueID, &r.StaffMemberID, &r.DayOfWeek, &r.StartMinute, &r.EndMinute, &r.IsActive); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
