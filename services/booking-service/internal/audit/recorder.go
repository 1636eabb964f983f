// Package audit keeps the append-only history of booking transitions.
// Recording is strictly best effort: an audit write must never fail the
// booking operation it describes.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
)

const (
	ActionStatusChange = "status_change"
	ActionCancel       = "cancel"
	ActionUpdate       = "update"
)

const (
	ActorCustomer = "customer"
	ActorProvider = "provider"
	ActorSystem   = "system"
)

type Entry struct {
	ID        int64
	BookingID int64
	VenueID   int64
	Action    string
	OldStatus model.BookingStatus
	NewStatus model.BookingStatus
	Reason    string
	ActorType string
	ActorID   string
	CreatedAt time.Time
}

type Recorder struct {
	pool   *db.Pool
	logger *slog.Logger
}

func NewRecorder(pool *db.Pool, logger *slog.Logger) *Recorder {
	return &Recorder{pool: pool, logger: logger}
}

// Record appends one audit entry. Failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	if e.ActorType == "" {
		e.ActorType = ActorSystem
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (booking_id, venue_id, action, old_status, new_status, reason, actor_type, actor_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.BookingID, e.VenueID, e.Action, string(e.OldStatus), string(e.NewStatus), e.Reason, e.ActorType, e.ActorID)
	if err != nil {
		r.logger.Error("audit write failed",
			"booking_id", e.BookingID,
			"action", e.Action,
			"err", err)
	}
}

func (r *Recorder) ListByBooking(ctx context.Context, bookingID int64) ([]Entry, error) {
	return r.list(ctx, `
		SELECT id, booking_id, venue_id, action, old_status, new_status, reason, actor_type, actor_id, created_at
		FROM audit_log
		WHERE booking_id = $1
		ORDER BY id
	`, bookingID)
}

func (r *Recorder) ListByVenue(ctx context.Context, venueID int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return r.list(ctx, `
		SELECT id, booking_id, venue_id, action, old_status, new_status, reason, actor_type, actor_id, created_at
		FROM audit_log
		WHERE venue_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, venueID, limit)
}

func (r *Recorder) list(ctx context.Context, sql string, args ...any) ([]Entry, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var oldStatus, newStatus string
		if err := rows.Scan(&e.ID, &e.BookingID, &e.VenueID, &e.Action, &oldStatus, &newStatus, &e.Reason, &e.ActorType, &e.ActorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.OldStatus = model.BookingStatus(oldStatus)
		e.NewStatus = model.BookingStatus(newStatus)
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return entries, nil
}
