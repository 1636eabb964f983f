// Package reminder schedules booking.reminder.due events ahead of each
// confirmed booking's start time. The notification service turns them into
// customer emails.
package reminder

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/outbox"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/storage"
)

type Worker struct {
	pool      *db.Pool
	bookings  *storage.BookingRepository
	outbox    *outbox.Repository
	logger    *slog.Logger
	lead      time.Duration
	pollEvery time.Duration
	batchSize int
	now       func() time.Time
}

type Config struct {
	// Lead is how far before the start time a reminder goes out.
	Lead      time.Duration
	PollEvery time.Duration
	BatchSize int
}

func NewWorker(pool *db.Pool, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, logger *slog.Logger, cfg Config) *Worker {
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Worker{
		pool:      pool,
		bookings:  bookings,
		outbox:    outboxRepo,
		logger:    logger,
		lead:      cfg.Lead,
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		now:       time.Now,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.tick(ctx); err != nil {
				w.logger.Error("reminder tick failed", "err", err)
			}
		}
	}
}

// tick claims due bookings, marks them reminded, and enqueues one reminder
// event per booking, all in one transaction. Marking and enqueueing commit
// together, so a booking is reminded at most once.
func (w *Worker) tick(ctx context.Context) error {
	return w.pool.InTx(ctx, func(tx pgx.Tx) error {
		now := w.now().UTC()
		due, err := w.bookings.DueReminders(ctx, tx, now, w.lead, w.batchSize)
		if err != nil {
			return err
		}
		for _, b := range due {
			if err := w.bookings.MarkReminderSent(ctx, tx, b.ID, now); err != nil {
				return err
			}
			if err := w.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingReminderDue, b)); err != nil {
				return err
			}
			w.logger.Info("reminder enqueued", "booking_id", b.ID, "starts_at", b.StartsAt())
		}
		return nil
	})
}
