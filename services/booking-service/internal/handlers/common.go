package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/availability"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/booking"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps lifecycle error kinds onto HTTP statuses. Anything outside
// the taxonomy is a storage or programming failure and stays opaque.
func writeError(w http.ResponseWriter, err error) {
	switch booking.KindOf(err) {
	case booking.KindValidation:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case booking.KindNotFound:
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case booking.KindConflict, booking.KindState:
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case booking.KindPolicy:
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func actorFrom(r *http.Request, fallbackType string) booking.Actor {
	actorType := strings.TrimSpace(r.Header.Get("X-Actor-Type"))
	if actorType == "" {
		actorType = fallbackType
	}
	return booking.Actor{
		Type: actorType,
		ID:   strings.TrimSpace(r.Header.Get("X-Actor-Id")),
	}
}

func queryInt64(r *http.Request, key string) (int64, bool) {
	v, err := strconv.ParseInt(r.URL.Query().Get(key), 10, 64)
	return v, err == nil && v > 0
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

type bookingView struct {
	Token              string `json:"token,omitempty"`
	BookingID          int64  `json:"booking_id,omitempty"`
	VenueID            int64  `json:"venue_id"`
	ServiceID          int64  `json:"service_id"`
	StaffMemberID      *int64 `json:"staff_member_id,omitempty"`
	CustomerName       string `json:"customer_name"`
	CustomerEmail      string `json:"customer_email"`
	CustomerPhone      string `json:"customer_phone,omitempty"`
	Date               string `json:"date"`
	StartTime          string `json:"start_time"`
	EndTime            string `json:"end_time"`
	PartySize          int    `json:"party_size"`
	Status             string `json:"status"`
	CancelledAt        string `json:"cancelled_at,omitempty"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
	CreatedAt          string `json:"created_at"`
}

// customerBookingView omits the internal id so the token stays the only
// customer-facing handle.
func customerBookingView(b model.Booking) bookingView {
	v := providerBookingView(b)
	v.BookingID = 0
	return v
}

func providerBookingView(b model.Booking) bookingView {
	v := bookingView{
		Token:              b.Token,
		BookingID:          b.ID,
		VenueID:            b.VenueID,
		ServiceID:          b.ServiceID,
		StaffMemberID:      b.StaffMemberID,
		CustomerName:       b.CustomerName,
		CustomerEmail:      b.CustomerEmail,
		CustomerPhone:      b.CustomerPhone,
		Date:               b.Date.Format("2006-01-02"),
		StartTime:          timeslot.FormatMinutes(b.StartMinute),
		EndTime:            timeslot.FormatMinutes(b.EndMinute),
		PartySize:          b.PartySize,
		Status:             string(b.Status),
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.CancelledAt != nil {
		v.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
	}
	return v
}

type slotView struct {
	StaffMemberID     *int64 `json:"staff_member_id,omitempty"`
	StartTime         string `json:"start_time"`
	EndTime           string `json:"end_time"`
	Available         bool   `json:"available"`
	Reason            string `json:"reason,omitempty"`
	RemainingCapacity int    `json:"remaining_capacity,omitempty"`
}

func slotViews(slots []availability.DaySlot) []slotView {
	out := make([]slotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, slotView{
			StaffMemberID:     s.StaffMemberID,
			StartTime:         timeslot.FormatMinutes(s.StartMinute),
			EndTime:           timeslot.FormatMinutes(s.EndMinute),
			Available:         s.Available,
			Reason:            s.Reason,
			RemainingCapacity: s.RemainingCapacity,
		})
	}
	return out
}

// dayOptionsFrom reads the optional party_size/from/to slot filters.
func dayOptionsFrom(r *http.Request) availability.DayOptions {
	opts := availability.DayOptions{
		PartySize:         queryInt(r, "party_size", 1),
		WindowStartMinute: -1,
		WindowEndMinute:   -1,
	}
	if from := timeslot.ToMinutes(r.URL.Query().Get("from")); from != timeslot.InvalidMinutes {
		opts.WindowStartMinute = from
	}
	if to := timeslot.ToMinutes(r.URL.Query().Get("to")); to != timeslot.InvalidMinutes {
		opts.WindowEndMinute = to
	}
	return opts
}
