package model

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
	StatusNoShow    BookingStatus = "no_show"
)

// Occupies reports whether a booking in this status holds its slot against
// other requests. Pending bookings block too: a slot is claimed at creation
// time, not at confirmation, so two racing requests cannot both win it.
func (s BookingStatus) Occupies() bool {
	return s == StatusPending || s == StatusConfirmed
}

type Venue struct {
	ID                  int64
	Name                string
	BookingAdvanceHours int
	CancellationHours   int
	IsActive            bool
}

type Service struct {
	ID              int64
	VenueID         int64
	Name            string
	DurationMinutes int
	Capacity        int
	RequiresStaff   bool
	IsActive        bool
}

type StaffMember struct {
	ID       int64
	VenueID  int64
	Name     string
	Email    string
	IsActive bool
}

// AvailabilityRule is a recurring weekly open-hours window. Exactly one of
// VenueID or StaffMemberID is set: venue-scoped rules govern capacity-mode
// services, staff-scoped rules govern that staff member's calendar.
type AvailabilityRule struct {
	ID            int64
	VenueID       *int64
	StaffMemberID *int64
	DayOfWeek     int // 0 = Sunday .. 6 = Saturday
	StartMinute   int
	EndMinute     int
	IsActive      bool
}

type Booking struct {
	ID                 int64
	Token              string
	VenueID            int64
	ServiceID          int64
	StaffMemberID      *int64
	CustomerName       string
	CustomerEmail      string
	CustomerPhone      string
	Date               time.Time // date only, UTC midnight
	StartMinute        int
	EndMinute          int
	PartySize          int
	Status             BookingStatus
	CancelledAt        *time.Time
	CancellationReason string
	ConfirmationSentAt *time.Time
	ReminderSentAt     *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (b Booking) StartsAt() time.Time {
	return b.Date.Add(time.Duration(b.StartMinute) * time.Minute)
}

func (b Booking) EndsAt() time.Time {
	return b.Date.Add(time.Duration(b.EndMinute) * time.Minute)
}

// ResourceKey names the contended scheduling resource for one day: a staff
// member's calendar in staff mode, the shared service capacity otherwise.
// Used as the advisory-lock key for check-and-commit booking writes.
func ResourceKey(venueID, serviceID int64, staffID *int64, date time.Time) string {
	day := date.Format("2006-01-02")
	if staffID != nil {
		return fmt.Sprintf("venue:%d:staff:%d:%s", venueID, *staffID, day)
	}
	return fmt.Sprintf("venue:%d:service:%d:%s", venueID, serviceID, day)
}
