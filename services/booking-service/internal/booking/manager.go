// Package booking implements the booking lifecycle: creation under a
// per-resource advisory lock, the pending/confirmed/cancelled/completed/
// no-show state machine, and the outbox and audit writes each transition
// produces.
package booking

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/sentinel-dot/easyseat-sub000/libs/db"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/audit"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/availability"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/outbox"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/storage"
)

type Actor struct {
	Type string
	ID   string
}

type Manager struct {
	pool      *db.Pool
	bookings  *storage.BookingRepository
	dir       *storage.DirectoryRepository
	validator *availability.Validator
	outbox    *outbox.Repository
	audit     *audit.Recorder
	logger    *slog.Logger
	now       func() time.Time
}

func NewManager(
	pool *db.Pool,
	bookings *storage.BookingRepository,
	dir *storage.DirectoryRepository,
	validator *availability.Validator,
	outboxRepo *outbox.Repository,
	recorder *audit.Recorder,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		pool:      pool,
		bookings:  bookings,
		dir:       dir,
		validator: validator,
		outbox:    outboxRepo,
		audit:     recorder,
		logger:    logger,
		now:       time.Now,
	}
}

type CreateParams struct {
	VenueID       int64
	ServiceID     int64
	StaffMemberID *int64
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	Date          string // "2006-01-02"
	Start         string // "HH:MM"
	PartySize     int
	// BypassAdvance skips the venue's advance-notice policy. Provider-side
	// creation (walk-ins, phone bookings) sets it; the public surface never
	// does.
	BypassAdvance bool
	Actor         Actor
}

// Create validates and persists a new pending booking. The resource's
// advisory lock is taken before validation so that concurrent requests for
// the same slot serialize: exactly one sees the slot free and commits.
func (m *Manager) Create(ctx context.Context, p CreateParams) (model.Booking, error) {
	if p.CustomerName == "" || p.CustomerEmail == "" {
		return model.Booking{}, newError(KindValidation, "customer name and email are required")
	}

	req := availability.BookingRequest{
		VenueID:       p.VenueID,
		ServiceID:     p.ServiceID,
		StaffMemberID: p.StaffMemberID,
		Date:          p.Date,
		Start:         p.Start,
		PartySize:     p.PartySize,
	}

	opts := availability.ValidateOptions{BypassAdvance: p.BypassAdvance}
	var created model.Booking
	err := m.pool.InTx(ctx, func(tx pgx.Tx) error {
		// A cheap pre-parse so malformed requests never reach the lock.
		resolved, problems, err := m.validator.ValidateRequest(ctx, tx, req, opts)
		if err != nil {
			return err
		}
		if perr := problemsToError(problems); perr != nil {
			return perr
		}

		key := model.ResourceKey(resolved.Venue.ID, resolved.Service.ID, p.StaffMemberID, resolved.Date)
		if err := m.bookings.LockResource(ctx, tx, key); err != nil {
			return err
		}

		// Re-validate under the lock: another writer may have committed
		// between the first check and lock acquisition.
		resolved, problems, err = m.validator.ValidateRequest(ctx, tx, req, opts)
		if err != nil {
			return err
		}
		if perr := problemsToError(problems); perr != nil {
			return perr
		}

		b := model.Booking{
			Token:         uuid.NewString(),
			VenueID:       resolved.Venue.ID,
			ServiceID:     resolved.Service.ID,
			StaffMemberID: p.StaffMemberID,
			CustomerName:  p.CustomerName,
			CustomerEmail: p.CustomerEmail,
			CustomerPhone: p.CustomerPhone,
			Date:          resolved.Date,
			StartMinute:   resolved.StartMinute,
			EndMinute:     resolved.EndMinute,
			PartySize:     p.PartySize,
			Status:        model.StatusPending,
		}
		if err := m.bookings.Insert(ctx, tx, &b); err != nil {
			if storage.IsConflict(err) {
				return newError(KindConflict, "slot was taken by a concurrent booking")
			}
			return err
		}
		if err := m.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingCreated, b)); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	m.audit.Record(ctx, audit.Entry{
		BookingID: created.ID,
		VenueID:   created.VenueID,
		Action:    audit.ActionStatusChange,
		NewStatus: model.StatusPending,
		Reason:    "booking created",
		ActorType: p.Actor.Type,
		ActorID:   p.Actor.ID,
	})
	return created, nil
}

type UpdateParams struct {
	CustomerName  *string
	CustomerEmail *string
	CustomerPhone *string
	Date          *string
	Start         *string
	StaffMemberID *int64
	PartySize     *int
	Actor         Actor
}

// Update edits a booking looked up by its customer token. Contact-detail
// edits keep the current status. Changing date, time, or staff is a
// reschedule: the new slot is re-validated with the booking excluded from
// its own conflict check, and the booking drops back to pending with its
// notification timestamps cleared. A party-size change re-checks capacity
// but keeps the current status. Fields resent with their stored values are
// no-ops.
func (m *Manager) Update(ctx context.Context, token string, p UpdateParams) (model.Booking, error) {
	var updated model.Booking
	var oldStatus model.BookingStatus
	err := m.pool.InTx(ctx, func(tx pgx.Tx) error {
		b, err := m.bookings.ByToken(ctx, tx, token, true)
		if err != nil {
			if storage.IsNotFound(err) {
				return newError(KindNotFound, "booking not found")
			}
			return err
		}
		if err := updateGuard(b, m.now().UTC()); err != nil {
			return err
		}
		oldStatus = b.Status

		if p.CustomerName != nil {
			b.CustomerName = *p.CustomerName
		}
		if p.CustomerEmail != nil {
			b.CustomerEmail = *p.CustomerEmail
		}
		if p.CustomerPhone != nil {
			b.CustomerPhone = *p.CustomerPhone
		}

		req := mergedRequest(b, p)
		moved, revalidate := rescheduleChanges(b, req)
		if revalidate {
			for _, key := range rescheduleLockKeys(b, req) {
				if err := m.bookings.LockResource(ctx, tx, key); err != nil {
					return err
				}
			}
			resolved, problems, err := m.validator.ValidateRequest(ctx, tx, req, availability.ValidateOptions{})
			if err != nil {
				return err
			}
			if perr := problemsToError(problems); perr != nil {
				return perr
			}

			b.Date = resolved.Date
			b.StartMinute = resolved.StartMinute
			b.EndMinute = resolved.EndMinute
			b.StaffMemberID = req.StaffMemberID
			b.PartySize = req.PartySize
			if moved {
				// A moved booking needs re-confirmation and fresh notifications.
				b.Status = model.StatusPending
				b.ConfirmationSentAt = nil
				b.ReminderSentAt = nil
			}
		}

		if err := m.bookings.Update(ctx, tx, &b); err != nil {
			if storage.IsConflict(err) {
				return newError(KindConflict, "slot was taken by a concurrent booking")
			}
			return err
		}
		if err := m.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingUpdated, b)); err != nil {
			return err
		}
		updated = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	m.audit.Record(ctx, audit.Entry{
		BookingID: updated.ID,
		VenueID:   updated.VenueID,
		Action:    audit.ActionUpdate,
		OldStatus: oldStatus,
		NewStatus: updated.Status,
		Reason:    "booking updated",
		ActorType: p.Actor.Type,
		ActorID:   p.Actor.ID,
	})
	return updated, nil
}

// Cancel cancels by customer token and enforces the venue's notice policy.
func (m *Manager) Cancel(ctx context.Context, token, reason string, actor Actor) (model.Booking, error) {
	return m.cancel(ctx, func(tx pgx.Tx) (model.Booking, error) {
		return m.bookings.ByToken(ctx, tx, token, true)
	}, reason, actor, false)
}

// CancelByID cancels on behalf of the venue. Providers bypass the customer
// notice policy.
func (m *Manager) CancelByID(ctx context.Context, id int64, reason string, actor Actor) (model.Booking, error) {
	return m.cancel(ctx, func(tx pgx.Tx) (model.Booking, error) {
		return m.bookings.ByID(ctx, tx, id, true)
	}, reason, actor, true)
}

func (m *Manager) cancel(ctx context.Context, load func(pgx.Tx) (model.Booking, error), reason string, actor Actor, bypass bool) (model.Booking, error) {
	var cancelled model.Booking
	var oldStatus model.BookingStatus
	err := m.pool.InTx(ctx, func(tx pgx.Tx) error {
		b, err := load(tx)
		if err != nil {
			if storage.IsNotFound(err) {
				return newError(KindNotFound, "booking not found")
			}
			return err
		}
		venue, err := m.dir.Venue(ctx, tx, b.VenueID)
		if err != nil {
			return err
		}
		if err := cancellationGuard(venue, b, m.now().UTC(), bypass); err != nil {
			return err
		}

		oldStatus = b.Status
		now := m.now().UTC()
		b.Status = model.StatusCancelled
		b.CancelledAt = &now
		b.CancellationReason = reason
		if err := m.bookings.Update(ctx, tx, &b); err != nil {
			return err
		}
		if err := m.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingCancelled, b)); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	m.audit.Record(ctx, audit.Entry{
		BookingID: cancelled.ID,
		VenueID:   cancelled.VenueID,
		Action:    audit.ActionCancel,
		OldStatus: oldStatus,
		NewStatus: model.StatusCancelled,
		Reason:    reason,
		ActorType: actor.Type,
		ActorID:   actor.ID,
	})
	return cancelled, nil
}

// Confirm moves a pending booking to confirmed. Confirming an already
// confirmed booking is a no-op; confirming a cancelled booking reactivates
// it, clearing the cancellation fields. Reactivation does not re-validate
// the slot: the provider is trusted to resolve any double-booking it causes.
func (m *Manager) Confirm(ctx context.Context, id int64, actor Actor) (model.Booking, error) {
	var confirmed model.Booking
	var oldStatus model.BookingStatus
	var noop bool
	err := m.pool.InTx(ctx, func(tx pgx.Tx) error {
		b, err := m.bookings.ByID(ctx, tx, id, true)
		if err != nil {
			if storage.IsNotFound(err) {
				return newError(KindNotFound, "booking not found")
			}
			return err
		}
		if err := confirmGuard(b); err != nil {
			return err
		}
		if b.Status == model.StatusConfirmed {
			confirmed = b
			noop = true
			return nil
		}

		oldStatus = b.Status
		now := m.now().UTC()
		b.Status = model.StatusConfirmed
		b.CancelledAt = nil
		b.CancellationReason = ""
		b.ConfirmationSentAt = &now
		if err := m.bookings.Update(ctx, tx, &b); err != nil {
			return err
		}
		if err := m.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingConfirmed, b)); err != nil {
			return err
		}
		confirmed = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}
	if noop {
		return confirmed, nil
	}

	m.audit.Record(ctx, audit.Entry{
		BookingID: confirmed.ID,
		VenueID:   confirmed.VenueID,
		Action:    audit.ActionStatusChange,
		OldStatus: oldStatus,
		NewStatus: model.StatusConfirmed,
		Reason:    "booking confirmed",
		ActorType: actor.Type,
		ActorID:   actor.ID,
	})
	return confirmed, nil
}

// MarkNoShow records that a confirmed booking's customer did not show up.
func (m *Manager) MarkNoShow(ctx context.Context, id int64, actor Actor) (model.Booking, error) {
	var marked model.Booking
	err := m.pool.InTx(ctx, func(tx pgx.Tx) error {
		b, err := m.bookings.ByID(ctx, tx, id, true)
		if err != nil {
			if storage.IsNotFound(err) {
				return newError(KindNotFound, "booking not found")
			}
			return err
		}
		if err := noShowGuard(b, m.now().UTC()); err != nil {
			return err
		}
		b.Status = model.StatusNoShow
		if err := m.bookings.Update(ctx, tx, &b); err != nil {
			return err
		}
		if err := m.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingUpdated, b)); err != nil {
			return err
		}
		marked = b
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	m.audit.Record(ctx, audit.Entry{
		BookingID: marked.ID,
		VenueID:   marked.VenueID,
		Action:    audit.ActionStatusChange,
		OldStatus: model.StatusConfirmed,
		NewStatus: model.StatusNoShow,
		Reason:    "customer did not show up",
		ActorType: actor.Type,
		ActorID:   actor.ID,
	})
	return marked, nil
}

// GetByToken loads one booking for a customer. Reads sweep overdue confirmed
// bookings to completed first, best effort.
func (m *Manager) GetByToken(ctx context.Context, token string) (model.Booking, error) {
	m.sweepCompleted(ctx)
	b, err := m.bookings.ByToken(ctx, m.pool, token, false)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Booking{}, newError(KindNotFound, "booking not found")
		}
		return model.Booking{}, err
	}
	b.Status = EffectiveStatus(b, m.now().UTC())
	return b, nil
}

func (m *Manager) GetByID(ctx context.Context, id int64) (model.Booking, error) {
	m.sweepCompleted(ctx)
	b, err := m.bookings.ByID(ctx, m.pool, id, false)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Booking{}, newError(KindNotFound, "booking not found")
		}
		return model.Booking{}, err
	}
	b.Status = EffectiveStatus(b, m.now().UTC())
	return b, nil
}

func (m *Manager) ListByVenue(ctx context.Context, venueID int64, date *time.Time) ([]model.Booking, error) {
	m.sweepCompleted(ctx)
	list, err := m.bookings.ListByVenue(ctx, m.pool, venueID, date)
	if err != nil {
		return nil, err
	}
	return m.withEffectiveStatus(list), nil
}

func (m *Manager) ListByCustomer(ctx context.Context, email string) ([]model.Booking, error) {
	m.sweepCompleted(ctx)
	list, err := m.bookings.ListByCustomer(ctx, m.pool, email)
	if err != nil {
		return nil, err
	}
	return m.withEffectiveStatus(list), nil
}

func (m *Manager) withEffectiveStatus(list []model.Booking) []model.Booking {
	now := m.now().UTC()
	for i := range list {
		list[i].Status = EffectiveStatus(list[i], now)
	}
	return list
}

// sweepCompleted persists the confirmed-to-completed transition for overdue
// bookings. Failures are logged and never surface to the read that
// triggered the sweep.
func (m *Manager) sweepCompleted(ctx context.Context) {
	var transitioned []model.Booking
	err := m.pool.InTx(ctx, func(tx pgx.Tx) error {
		rows, err := m.bookings.CompletePast(ctx, tx, m.now().UTC())
		if err != nil {
			return err
		}
		for _, b := range rows {
			done := b
			done.Status = model.StatusCompleted
			if err := m.outbox.Insert(ctx, tx, outbox.BookingEvent(outbox.TopicBookingCompleted, done)); err != nil {
				return err
			}
		}
		transitioned = rows
		return nil
	})
	if err != nil {
		m.logger.Error("completion sweep failed", "err", err)
		return
	}
	for _, b := range transitioned {
		m.audit.Record(ctx, audit.Entry{
			BookingID: b.ID,
			VenueID:   b.VenueID,
			Action:    audit.ActionStatusChange,
			OldStatus: b.Status,
			NewStatus: model.StatusCompleted,
			Reason:    "booking end time passed",
			ActorType: audit.ActorSystem,
		})
	}
}

// HardDelete removes a booking row permanently. The audit trail keeps its
// entries; they reference the booking id without a foreign key.
func (m *Manager) HardDelete(ctx context.Context, id int64) error {
	err := m.bookings.Delete(ctx, m.pool, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return newError(KindNotFound, "booking not found")
		}
		return err
	}
	m.logger.Info("booking hard-deleted", "booking_id", id)
	return nil
}

// DayAvailability lists slots for one service on one day.
func (m *Manager) DayAvailability(ctx context.Context, venueID, serviceID int64, dateStr string, opts availability.DayOptions) ([]availability.DaySlot, error) {
	venue, svc, date, err := m.resolveDayQuery(ctx, venueID, serviceID, dateStr)
	if err != nil {
		return nil, err
	}
	return m.validator.DaySlots(ctx, m.pool, venue, svc, date, opts)
}

// WeekAvailability lists slots for the seven days starting at dateStr.
func (m *Manager) WeekAvailability(ctx context.Context, venueID, serviceID int64, dateStr string, opts availability.DayOptions) (map[string][]availability.DaySlot, error) {
	venue, svc, date, err := m.resolveDayQuery(ctx, venueID, serviceID, dateStr)
	if err != nil {
		return nil, err
	}
	week := make(map[string][]availability.DaySlot, 7)
	for i := 0; i < 7; i++ {
		day := date.AddDate(0, 0, i)
		slots, err := m.validator.DaySlots(ctx, m.pool, venue, svc, day, opts)
		if err != nil {
			return nil, err
		}
		week[day.Format("2006-01-02")] = slots
	}
	return week, nil
}

func (m *Manager) resolveDayQuery(ctx context.Context, venueID, serviceID int64, dateStr string) (model.Venue, model.Service, time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, time.UTC)
	if err != nil {
		return model.Venue{}, model.Service{}, time.Time{}, newError(KindValidation, "date must be in YYYY-MM-DD format")
	}
	venue, err := m.dir.Venue(ctx, m.pool, venueID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Venue{}, model.Service{}, time.Time{}, newError(KindNotFound, "venue not found")
		}
		return model.Venue{}, model.Service{}, time.Time{}, err
	}
	if !venue.IsActive {
		return model.Venue{}, model.Service{}, time.Time{}, newError(KindNotFound, "venue is not accepting bookings")
	}
	svc, err := m.dir.Service(ctx, m.pool, serviceID)
	if err != nil {
		if storage.IsNotFound(err) {
			return model.Venue{}, model.Service{}, time.Time{}, newError(KindNotFound, "service not found")
		}
		return model.Venue{}, model.Service{}, time.Time{}, err
	}
	if svc.VenueID != venue.ID || !svc.IsActive {
		return model.Venue{}, model.Service{}, time.Time{}, newError(KindNotFound, "service not found")
	}
	return venue, svc, date, nil
}
