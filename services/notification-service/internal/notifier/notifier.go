// Package notifier turns booking events into customer emails and records
// every send in the notifications table.
package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sentinel-dot/easyseat-sub000/services/notification-service/internal/email"
	"github.com/sentinel-dot/easyseat-sub000/services/notification-service/internal/storage"
)

// BookingEvent mirrors the payload of the booking.* topics.
type BookingEvent struct {
	BookingID     int64  `json:"booking_id"`
	Token         string `json:"token"`
	VenueID       int64  `json:"venue_id"`
	ServiceID     int64  `json:"service_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	PartySize     int    `json:"party_size"`
	Status        string `json:"status"`
}

const (
	KindCreated      = "created"
	KindConfirmed    = "confirmed"
	KindCancelled    = "cancelled"
	KindReminder     = "reminder"
	KindReviewInvite = "review_invite"
)

type Notifier struct {
	sender email.Sender
	store  *storage.Repository
	logger *slog.Logger
}

func New(sender email.Sender, store *storage.Repository, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, store: store, logger: logger}
}

// Handle dispatches one booking event. Topics without a customer-facing
// message are ignored.
func (n *Notifier) Handle(ctx context.Context, topic string, evt BookingEvent) error {
	kind, subject, body, ok := Compose(topic, evt)
	if !ok {
		return nil
	}
	if evt.CustomerEmail == "" {
		n.logger.Warn("event without customer email", "topic", topic, "booking_id", evt.BookingID)
		return nil
	}

	// The review invitation is at most once per booking: the uniqueness row
	// is claimed before sending, so a redelivered or re-completed booking
	// can never invite twice.
	if kind == KindReviewInvite {
		first, err := n.store.InsertOnce(ctx, storage.Notification{
			BookingID: evt.BookingID,
			Kind:      kind,
			Recipient: evt.CustomerEmail,
			Subject:   subject,
			Status:    "sent",
		})
		if err != nil {
			return err
		}
		if !first {
			n.logger.Info("review invite already sent", "booking_id", evt.BookingID)
			return nil
		}
		return n.sender.Send(evt.CustomerEmail, subject, body)
	}

	status := "sent"
	sendErr := n.sender.Send(evt.CustomerEmail, subject, body)
	if sendErr != nil {
		status = "failed"
	}
	if err := n.store.Insert(ctx, storage.Notification{
		BookingID: evt.BookingID,
		Kind:      kind,
		Recipient: evt.CustomerEmail,
		Subject:   subject,
		Status:    status,
	}); err != nil {
		n.logger.Error("notification record failed", "err", err, "booking_id", evt.BookingID)
	}
	return sendErr
}

// Compose renders the email for a topic. The second return names the
// notification kind stored alongside the send.
func Compose(topic string, evt BookingEvent) (kind, subject, body string, ok bool) {
	when := fmt.Sprintf("%s at %s", evt.Date, evt.StartTime)
	switch topic {
	case "booking.created.v1":
		return KindCreated,
			"We received your booking request",
			fmt.Sprintf("Hi %s,\n\nYour booking for %s is pending confirmation. We will email you once the venue confirms.\n\nManage your booking with this reference: %s\n",
				evt.CustomerName, when, evt.Token),
			true
	case "booking.confirmed.v1":
		return KindConfirmed,
			"Your booking is confirmed",
			fmt.Sprintf("Hi %s,\n\nYour booking for %s is confirmed. See you there!\n\nManage your booking with this reference: %s\n",
				evt.CustomerName, when, evt.Token),
			true
	case "booking.cancelled.v1":
		return KindCancelled,
			"Your booking was cancelled",
			fmt.Sprintf("Hi %s,\n\nYour booking for %s has been cancelled.\n", evt.CustomerName, when),
			true
	case "booking.reminder.due.v1":
		return KindReminder,
			"Reminder: your upcoming booking",
			fmt.Sprintf("Hi %s,\n\nThis is a reminder for your booking on %s.\n\nManage your booking with this reference: %s\n",
				evt.CustomerName, when, evt.Token),
			true
	case "booking.completed.v1":
		return KindReviewInvite,
			"How was your visit?",
			fmt.Sprintf("Hi %s,\n\nThanks for visiting on %s. We would love to hear how it went.\n", evt.CustomerName, evt.Date),
			true
	default:
		return "", "", "", false
	}
}
