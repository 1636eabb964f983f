package outbox

import (
	"encoding/json"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

// Topic names double as event types. One event per topic, versioned suffix.
const (
	TopicBookingCreated     = "booking.created.v1"
	TopicBookingConfirmed   = "booking.confirmed.v1"
	TopicBookingUpdated     = "booking.updated.v1"
	TopicBookingCancelled   = "booking.cancelled.v1"
	TopicBookingCompleted   = "booking.completed.v1"
	TopicBookingReminderDue = "booking.reminder.due.v1"
)

// Event is the domain event envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// BookingPayload is the wire shape shared by every booking.* topic.
type BookingPayload struct {
	BookingID     int64  `json:"booking_id"`
	Token         string `json:"token"`
	VenueID       int64  `json:"venue_id"`
	ServiceID     int64  `json:"service_id"`
	StaffMemberID *int64 `json:"staff_member_id,omitempty"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	PartySize     int    `json:"party_size"`
	Status        string `json:"status"`
	OccurredAt    string `json:"occurred_at"`
}

// BookingEvent builds the outbox envelope for a booking transition.
func BookingEvent(eventType string, b model.Booking) Event {
	payload, _ := json.Marshal(BookingPayload{
		BookingID:     b.ID,
		Token:         b.Token,
		VenueID:       b.VenueID,
		ServiceID:     b.ServiceID,
		StaffMemberID: b.StaffMemberID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Date:          b.Date.Format("2006-01-02"),
		StartTime:     timeslot.FormatMinutes(b.StartMinute),
		EndTime:       timeslot.FormatMinutes(b.EndMinute),
		PartySize:     b.PartySize,
		Status:        string(b.Status),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	})
	return Event{
		AggregateType: "booking",
		AggregateID:   b.Token,
		EventType:     eventType,
		Payload:       payload,
	}
}
