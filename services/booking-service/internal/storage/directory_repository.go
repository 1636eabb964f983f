package storage

import (
	"context"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

// DirectoryRepository reads the venue/service/staff catalog. The catalog is
// administered out of band; this service only consults it.
type DirectoryRepository struct{}

func NewDirectoryRepository() *DirectoryRepository {
	return &DirectoryRepository{}
}

func (r *DirectoryRepository) Venue(ctx context.Context, q db.Querier, id int64) (model.Venue, error) {
	var v model.Venue
	err := q.QueryRow(ctx, `
		SELECT id, name, booking_advance_hours, cancellation_hours, is_active
		FROM venues WHERE id = $1
	`, id).Scan(&v.ID, &v.Name, &v.BookingAdvanceHours, &v.CancellationHours, &v.IsActive)
	return v, err
}

func (r *DirectoryRepository) Service(ctx context.Context, q db.Querier, id int64) (model.Service, error) {
	var s model.Service
	err := q.QueryRow(ctx, `
		SELECT id, venue_id, name, duration_minutes, capacity, requires_staff, is_active
		FROM services WHERE id = $1
	`, id).Scan(&s.ID, &s.VenueID, &s.Name, &s.DurationMinutes, &s.Capacity, &s.RequiresStaff, &s.IsActive)
	return s, err
}

func (r *DirectoryRepository) Staff(ctx context.Context, q db.Querier, id int64) (model.StaffMember, error) {
	var s model.StaffMember
	err := q.QueryRow(ctx, `
		SELECT id, venue_id, name, email, is_active
		FROM staff_members WHERE id = $1
	`, id).Scan(&s.ID, &s.VenueID, &s.Name, &s.Email, &s.IsActive)
	return s, err
}

func (r *DirectoryRepository) StaffCanPerform(ctx context.Context, q db.Querier, staffID, serviceID int64) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM staff_services
			WHERE staff_member_id = $1 AND service_id = $2
		)
	`, staffID, serviceID).Scan(&ok)
	return ok, err
}

func (r *DirectoryRepository) ActiveStaffForService(ctx context.Context, q db.Querier, serviceID int64) ([]model.StaffMember, error) {
	rows, err := q.Query(ctx, `
		SELECT sm.id, sm.venue_id, sm.name, sm.email, sm.is_active
		FROM staff_members sm
		JOIN staff_services ss ON ss.staff_member_id = sm.id
		WHERE ss.service_id = $1 AND sm.is_active
		ORDER BY sm.id
	`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.StaffMember
	for rows.Next() {
		var s model.StaffMember
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Name, &s.Email, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *DirectoryRepository) ServicesByVenue(ctx context.Context, q db.Querier, venueID int64) ([]model.Service, error) {
	rows, err := q.Query(ctx, `
		SELECT id, venue_id, name, duration_minutes, capacity, requires_staff, is_active
		FROM services
		WHERE venue_id = $1 AND is_active
		ORDER BY id
	`, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		var s model.Service
		if err := rows.Scan(&s.ID, &s.VenueID, &s.Name, &s.DurationMinutes, &s.Capacity, &s.RequiresStaff, &s.IsActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
