package storage

import (
	"context"

	"github.com/sentinel-dot/easyseat-sub000/libs/db"
)

type Notification struct {
	BookingID int64
	Kind      string
	Recipient string
	Subject   string
	Status    string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_id, kind, recipient, subject, status)
		VALUES ($1, $2, $3, $4, $5)
	`, n.BookingID, n.Kind, n.Recipient, n.Subject, n.Status)
	return err
}

// InsertOnce records the notification only if the booking has not received
// one of this kind before. Returns false when it already had.
func (r *Repository) InsertOnce(ctx context.Context, n Notification) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (booking_id, kind, recipient, subject, status)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (booking_id, kind) WHERE kind = 'review_invite' DO NOTHING
	`, n.BookingID, n.Kind, n.Recipient, n.Subject, n.Status)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
