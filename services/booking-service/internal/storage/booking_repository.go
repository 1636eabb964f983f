package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

const bookingColumns = `
	id, token, venue_id, service_id, staff_member_id,
	customer_name, customer_email, customer_phone,
	booking_date, start_minute, end_minute, party_size, status,
	cancelled_at, cancellation_reason, confirmation_sent_at, reminder_sent_at,
	created_at, updated_at`

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

// LockResource serializes writers contending for one day of one scheduling
// resource. The advisory lock is transaction scoped and released on commit
// or rollback.
func (r *BookingRepository) LockResource(ctx context.Context, q db.Querier, key string) error {
	_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key)
	return err
}

func (r *BookingRepository) Insert(ctx context.Context, q db.Querier, b *model.Booking) error {
	return q.QueryRow(ctx, `
		INSERT INTO bookings (
			token, venue_id, service_id, staff_member_id,
			customer_name, customer_email, customer_phone,
			booking_date, start_minute, end_minute, party_size, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, b.Token, b.VenueID, b.ServiceID, b.StaffMemberID,
		b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.Date, b.StartMinute, b.EndMinute, b.PartySize, string(b.Status),
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BookingRepository) ByToken(ctx context.Context, q db.Querier, token string, forUpdate bool) (model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE token = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanBooking(q.QueryRow(ctx, sql, token))
}

func (r *BookingRepository) ByID(ctx context.Context, q db.Querier, id int64, forUpdate bool) (model.Booking, error) {
	sql := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}
	return scanBooking(q.QueryRow(ctx, sql, id))
}

func (r *BookingRepository) Update(ctx context.Context, q db.Querier, b *model.Booking) error {
	return q.QueryRow(ctx, `
		UPDATE bookings
		SET staff_member_id = $2,
		    customer_name = $3, customer_email = $4, customer_phone = $5,
		    booking_date = $6, start_minute = $7, end_minute = $8, party_size = $9,
		    status = $10, cancelled_at = $11, cancellation_reason = $12,
		    confirmation_sent_at = $13, reminder_sent_at = $14,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, b.ID, b.StaffMemberID,
		b.CustomerName, b.CustomerEmail, b.CustomerPhone,
		b.Date, b.StartMinute, b.EndMinute, b.PartySize,
		string(b.Status), b.CancelledAt, b.CancellationReason,
		b.ConfirmationSentAt, b.ReminderSentAt,
	).Scan(&b.UpdatedAt)
}

// Occupying lists bookings holding the scheduling resource on date. Staff-mode
// lookups key on the staff member, capacity-mode lookups on the service.
func (r *BookingRepository) Occupying(ctx context.Context, q db.Querier, venueID, serviceID int64, staffID *int64, date time.Time, excludeID int64) ([]model.Booking, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if staffID != nil {
		rows, err = q.Query(ctx, `
			SELECT `+bookingColumns+`
			FROM bookings
			WHERE venue_id = $1 AND staff_member_id = $2 AND booking_date = $3
			  AND status IN ('pending', 'confirmed')
			  AND id <> $4
		`, venueID, *staffID, date, excludeID)
	} else {
		rows, err = q.Query(ctx, `
			SELECT `+bookingColumns+`
			FROM bookings
			WHERE venue_id = $1 AND service_id = $2 AND booking_date = $3
			  AND status IN ('pending', 'confirmed')
			  AND id <> $4
		`, venueID, serviceID, date, excludeID)
	}
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListByVenue(ctx context.Context, q db.Querier, venueID int64, date *time.Time) ([]model.Booking, error) {
	if date != nil {
		rows, err := q.Query(ctx, `
			SELECT `+bookingColumns+`
			FROM bookings
			WHERE venue_id = $1 AND booking_date = $2
			ORDER BY booking_date, start_minute, id
		`, venueID, *date)
		if err != nil {
			return nil, err
		}
		return collectBookings(rows)
	}
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE venue_id = $1
		ORDER BY booking_date, start_minute, id
	`, venueID)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, q db.Querier, email string) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE customer_email = $1
		ORDER BY booking_date DESC, start_minute DESC, id
	`, email)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

// CompletePast flips live bookings whose end time has passed to completed.
// Returned rows still carry their pre-transition status so the caller can
// audit the change. Must run inside a transaction.
func (r *BookingRepository) CompletePast(ctx context.Context, q db.Querier, now time.Time) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status IN ('pending', 'confirmed')
		  AND booking_date + make_interval(mins => end_minute) < $1
		FOR UPDATE SKIP LOCKED
	`, now)
	if err != nil {
		return nil, err
	}
	overdue, err := collectBookings(rows)
	if err != nil || len(overdue) == 0 {
		return overdue, err
	}

	ids := make([]int64, 0, len(overdue))
	for _, b := range overdue {
		ids = append(ids, b.ID)
	}
	if _, err := q.Exec(ctx, `
		UPDATE bookings SET status = 'completed', updated_at = now() WHERE id = ANY($1)
	`, ids); err != nil {
		return nil, err
	}
	return overdue, nil
}

// DueReminders claims confirmed bookings whose start falls inside the lead
// window and that have not been reminded yet. SKIP LOCKED keeps concurrent
// worker instances from claiming the same rows.
func (r *BookingRepository) DueReminders(ctx context.Context, tx pgx.Tx, now time.Time, lead time.Duration, limit int) ([]model.Booking, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = 'confirmed'
		  AND reminder_sent_at IS NULL
		  AND booking_date + make_interval(mins => start_minute) BETWEEN $1 AND $2
		ORDER BY booking_date, start_minute
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	`, now, now.Add(lead), limit)
	if err != nil {
		return nil, err
	}
	return collectBookings(rows)
}

func (r *BookingRepository) MarkReminderSent(ctx context.Context, q db.Querier, id int64, at time.Time) error {
	_, err := q.Exec(ctx, `
		UPDATE bookings SET reminder_sent_at = $2, updated_at = now() WHERE id = $1
	`, id, at)
	return err
}

func (r *BookingRepository) Delete(ctx context.Context, q db.Querier, id int64) error {
	tag, err := q.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(
		&b.ID, &b.Token, &b.VenueID, &b.ServiceID, &b.StaffMemberID,
		&b.CustomerName, &b.CustomerEmail, &b.CustomerPhone,
		&b.Date, &b.StartMinute, &b.EndMinute, &b.PartySize, &status,
		&b.CancelledAt, &b.CancellationReason, &b.ConfirmationSentAt, &b.ReminderSentAt,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	return b, nil
}

func collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	defer rows.Close()
	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}
