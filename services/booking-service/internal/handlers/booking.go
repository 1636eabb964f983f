package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/audit"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/booking"
)

// BookingHandler serves the customer-facing surface: availability queries
// and token-based booking management.
type BookingHandler struct {
	manager *booking.Manager
	logger  *slog.Logger
}

func NewBookingHandler(manager *booking.Manager, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{manager: manager, logger: logger}
}

func (h *BookingHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/public/availability/day", h.DayAvailability)
	mux.HandleFunc("/api/v1/public/availability/week", h.WeekAvailability)
	mux.HandleFunc("/api/v1/public/bookings", h.Create)
	mux.HandleFunc("/api/v1/public/bookings/lookup", h.Lookup)
	mux.HandleFunc("/api/v1/public/bookings/update", h.Update)
	mux.HandleFunc("/api/v1/public/bookings/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/public/my-bookings", h.ListByCustomer)
}

func (h *BookingHandler) DayAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	venueID, ok := queryInt64(r, "venue_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "venue_id is required"})
		return
	}
	serviceID, ok := queryInt64(r, "service_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "service_id is required"})
		return
	}
	date := r.URL.Query().Get("date")

	slots, err := h.manager.DayAvailability(r.Context(), venueID, serviceID, date, dayOptionsFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date,
		"slots": slotViews(slots),
	})
}

func (h *BookingHandler) WeekAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	venueID, ok := queryInt64(r, "venue_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "venue_id is required"})
		return
	}
	serviceID, ok := queryInt64(r, "service_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "service_id is required"})
		return
	}
	date := r.URL.Query().Get("date")

	week, err := h.manager.WeekAvailability(r.Context(), venueID, serviceID, date, dayOptionsFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	days := make(map[string][]slotView, len(week))
	for day, slots := range week {
		days[day] = slotViews(slots)
	}
	writeJSON(w, http.StatusOK, map[string]any{"days": days})
}

type createBookingRequest struct {
	VenueID       int64  `json:"venue_id"`
	ServiceID     int64  `json:"service_id"`
	StaffMemberID *int64 `json:"staff_member_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	PartySize     int    `json:"party_size"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}

	b, err := h.manager.Create(r.Context(), booking.CreateParams{
		VenueID:       req.VenueID,
		ServiceID:     req.ServiceID,
		StaffMemberID: req.StaffMemberID,
		CustomerName:  strings.TrimSpace(req.CustomerName),
		CustomerEmail: strings.TrimSpace(req.CustomerEmail),
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		Date:          req.Date,
		Start:         req.StartTime,
		PartySize:     req.PartySize,
		Actor:         actorFrom(r, audit.ActorCustomer),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, customerBookingView(b))
}

func (h *BookingHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token is required"})
		return
	}
	b, err := h.manager.GetByToken(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customerBookingView(b))
}

type updateBookingRequest struct {
	Token         string  `json:"token"`
	CustomerName  *string `json:"customer_name"`
	CustomerEmail *string `json:"customer_email"`
	CustomerPhone *string `json:"customer_phone"`
	Date          *string `json:"date"`
	StartTime     *string `json:"start_time"`
	StaffMemberID *int64  `json:"staff_member_id"`
	PartySize     *int    `json:"party_size"`
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token is required"})
		return
	}

	b, err := h.manager.Update(r.Context(), req.Token, booking.UpdateParams{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		Date:          req.Date,
		Start:         req.StartTime,
		StaffMemberID: req.StaffMemberID,
		PartySize:     req.PartySize,
		Actor:         actorFrom(r, audit.ActorCustomer),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customerBookingView(b))
}

type cancelBookingRequest struct {
	Token  string `json:"token"`
	Reason string `json:"reason"`
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "token is required"})
		return
	}

	b, err := h.manager.Cancel(r.Context(), req.Token, strings.TrimSpace(req.Reason), actorFrom(r, audit.ActorCustomer))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, customerBookingView(b))
}

func (h *BookingHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email is required"})
		return
	}
	list, err := h.manager.ListByCustomer(r.Context(), email)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]bookingView, 0, len(list))
	for _, b := range list {
		views = append(views, customerBookingView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": views})
}
