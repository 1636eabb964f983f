package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/audit"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/booking"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/model"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/rules"
	"github.com/sentinel-dot/easyseat-sub000/services/booking-service/internal/timeslot"
)

// ProviderHandler serves the venue-side surface: booking management by id,
// the audit trail, and availability-rule administration.
type ProviderHandler struct {
	manager  *booking.Manager
	rules    *rules.Service
	recorder *audit.Recorder
	logger   *slog.Logger
}

func NewProviderHandler(manager *booking.Manager, ruleSvc *rules.Service, recorder *audit.Recorder, logger *slog.Logger) *ProviderHandler {
	return &ProviderHandler{manager: manager, rules: ruleSvc, recorder: recorder, logger: logger}
}

func (h *ProviderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/venue/bookings", h.List)
	mux.HandleFunc("/api/v1/venue/bookings/create", h.Create)
	mux.HandleFunc("/api/v1/venue/bookings/confirm", h.Confirm)
	mux.HandleFunc("/api/v1/venue/bookings/no-show", h.NoShow)
	mux.HandleFunc("/api/v1/venue/bookings/cancel", h.Cancel)
	mux.HandleFunc("/api/v1/venue/bookings/delete", h.Delete)
	mux.HandleFunc("/api/v1/venue/audit", h.Audit)
	mux.HandleFunc("/api/v1/venue/rules", h.Rules)
	mux.HandleFunc("/api/v1/venue/rules/deactivate", h.DeactivateRule)
}

func (h *ProviderHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	venueID, ok := queryInt64(r, "venue_id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "venue_id is required"})
		return
	}
	var date *time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "date must be in YYYY-MM-DD format"})
			return
		}
		date = &d
	}

	list, err := h.manager.ListByVenue(r.Context(), venueID, date)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]bookingView, 0, len(list))
	for _, b := range list {
		views = append(views, providerBookingView(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": views})
}

// Create books on the customer's behalf (walk-ins, phone bookings). The
// advance-notice policy does not apply to the venue's own staff.
func (h *ProviderHandler) Create(w http.ResponseWriter, r *http.Request) {
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
		BypassAdvance: true,
		Actor:         actorFrom(r, audit.ActorProvider),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, providerBookingView(b))
}

type bookingIDRequest struct {
	BookingID int64  `json:"booking_id"`
	Reason    string `json:"reason"`
}

func (h *ProviderHandler) decodeBookingID(w http.ResponseWriter, r *http.Request) (bookingIDRequest, bool) {
	var req bookingIDRequest
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return req, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return req, false
	}
	if req.BookingID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "booking_id is required"})
		return req, false
	}
	return req, true
}

func (h *ProviderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}
	b, err := h.manager.Confirm(r.Context(), req.BookingID, actorFrom(r, audit.ActorProvider))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providerBookingView(b))
}

func (h *ProviderHandler) NoShow(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}
	b, err := h.manager.MarkNoShow(r.Context(), req.BookingID, actorFrom(r, audit.ActorProvider))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providerBookingView(b))
}

func (h *ProviderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}
	b, err := h.manager.CancelByID(r.Context(), req.BookingID, strings.TrimSpace(req.Reason), actorFrom(r, audit.ActorProvider))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, providerBookingView(b))
}

func (h *ProviderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeBookingID(w, r)
	if !ok {
		return
	}
	if err := h.manager.HardDelete(r.Context(), req.BookingID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type auditEntryView struct {
	BookingID int64  `json:"booking_id"`
	Action    string `json:"action"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
	Reason    string `json:"reason,omitempty"`
	ActorType string `json:"actor_type"`
	ActorID   string `json:"actor_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

func (h *ProviderHandler) Audit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		entries []audit.Entry
		err     error
	)
	if bookingID, ok := queryInt64(r, "booking_id"); ok {
		entries, err = h.recorder.ListByBooking(r.Context(), bookingID)
	} else if venueID, ok := queryInt64(r, "venue_id"); ok {
		entries, err = h.recorder.ListByVenue(r.Context(), venueID, queryInt(r, "limit", 100))
	} else {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "booking_id or venue_id is required"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	views := make([]auditEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, auditEntryView{
			BookingID: e.BookingID,
			Action:    e.Action,
			OldStatus: string(e.OldStatus),
			NewStatus: string(e.NewStatus),
			Reason:    e.Reason,
			ActorType: e.ActorType,
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

type ruleView struct {
	ID            int64  `json:"id"`
	VenueID       *int64 `json:"venue_id,omitempty"`
	StaffMemberID *int64 `json:"staff_member_id,omitempty"`
	DayOfWeek     int    `json:"day_of_week"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	IsActive      bool   `json:"is_active"`
}

func ruleViewFrom(rule model.AvailabilityRule) ruleView {
	return ruleView{
		ID:            rule.ID,
		VenueID:       rule.VenueID,
		StaffMemberID: rule.StaffMemberID,
		DayOfWeek:     rule.DayOfWeek,
		StartTime:     timeslot.FormatMinutes(rule.StartMinute),
		EndTime:       timeslot.FormatMinutes(rule.EndMinute),
		IsActive:      rule.IsActive,
	}
}

type createRuleRequest struct {
	VenueID       *int64 `json:"venue_id"`
	StaffMemberID *int64 `json:"staff_member_id"`
	DayOfWeek     int    `json:"day_of_week"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
}

func (h *ProviderHandler) Rules(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		venueID, ok := queryInt64(r, "venue_id")
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "venue_id is required"})
			return
		}
		list, err := h.rules.ListForVenue(r.Context(), venueID)
		if err != nil {
			writeError(w, err)
			return
		}
		views := make([]ruleView, 0, len(list))
		for _, rule := range list {
			views = append(views, ruleViewFrom(rule))
		}
		writeJSON(w, http.StatusOK, map[string]any{"rules": views})

	case http.MethodPost:
		var req createRuleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
			return
		}
		rule, err := h.rules.Create(r.Context(), rules.CreateParams{
			VenueID:       req.VenueID,
			StaffMemberID: req.StaffMemberID,
			DayOfWeek:     req.DayOfWeek,
			Start:         req.StartTime,
			End:           req.EndTime,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ruleViewFrom(rule))

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

type deactivateRuleRequest struct {
	RuleID int64 `json:"rule_id"`
}

func (h *ProviderHandler) DeactivateRule(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req deactivateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid json body"})
		return
	}
	if req.RuleID <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "rule_id is required"})
		return
	}
	if err := h.rules.Deactivate(r.Context(), req.RuleID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
