// Package handlers holds the admin HTTP endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	httpmiddleware "github.com/wolfman30/clinic-booking-assistant/internal/http/middleware"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// AppointmentLister lists stored appointments, most recent first.
type AppointmentLister interface {
	ListAppointments(ctx context.Context) ([]store.Appointment, error)
}

// HistoryReader lists a user's turns, oldest first.
type HistoryReader interface {
	History(ctx context.Context, userID string) ([]store.Turn, error)
}

// SessionManager loads and clears dialogue state.
type SessionManager interface {
	Load(ctx context.Context, userID string) (session.Session, error)
	Reset(ctx context.Context, userID string) error
}

// AdminHandler serves the clinic staff endpoints.
type AdminHandler struct {
	appointments AppointmentLister
	history      HistoryReader
	sessions     SessionManager
	logger       *logging.Logger
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(appointments AppointmentLister, history HistoryReader, sessions SessionManager, logger *logging.Logger) *AdminHandler {
	if appointments == nil || history == nil || sessions == nil {
		panic("handlers: admin dependencies cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminHandler{appointments: appointments, history: history, sessions: sessions, logger: logger}
}

// Routes mounts the admin endpoints.
func (h *AdminHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/appointments", h.ListAppointments)
	r.Get("/conversations/{userID}", h.GetConversation)
	r.Delete("/conversations/{userID}/session", h.ResetSession)
	return r
}

// AppointmentsResponse is returned by GET /admin/appointments.
type AppointmentsResponse struct {
	Appointments []store.Appointment `json:"appointments"`
	Total        int                 `json:"total"`
}

// ListAppointments handles GET /admin/appointments[?date=dd/mm/yyyy].
func (h *AdminHandler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	appts, err := h.appointments.ListAppointments(r.Context())
	if err != nil {
		h.logger.Error("admin: list appointments failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}

	if date := strings.TrimSpace(r.URL.Query().Get("date")); date != "" {
		filtered := make([]store.Appointment, 0, len(appts))
		for _, a := range appts {
			if a.Date == date {
				filtered = append(filtered, a)
			}
		}
		appts = filtered
	}
	if appts == nil {
		appts = []store.Appointment{}
	}
	writeJSON(w, http.StatusOK, AppointmentsResponse{Appointments: appts, Total: len(appts)})
}

// ConversationResponse is returned by GET /admin/conversations/{userID}.
type ConversationResponse struct {
	UserID   string          `json:"user_id"`
	Stage    string          `json:"stage"`
	Awaiting string          `json:"awaiting,omitempty"`
	Booking  session.Booking `json:"booking"`
	Messages []TurnResponse  `json:"messages"`
}

// TurnResponse is one stored turn.
type TurnResponse struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// GetConversation returns a user's history and current session.
func (h *AdminHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	ctx := r.Context()

	turns, err := h.history.History(ctx, userID)
	if err != nil {
		h.logger.Error("admin: load history failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load conversation")
		return
	}
	if len(turns) == 0 {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}
	sess, err := h.sessions.Load(ctx, userID)
	if err != nil {
		h.logger.Error("admin: load session failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	messages := make([]TurnResponse, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, TurnResponse{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, ConversationResponse{
		UserID:   userID,
		Stage:    sess.Stage(true).String(),
		Awaiting: string(sess.Awaiting),
		Booking:  sess.Booking,
		Messages: messages,
	})
}

// ResetSession clears a stuck booking so the user starts over.
func (h *AdminHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := h.sessions.Reset(r.Context(), userID); err != nil {
		h.logger.Error("admin: reset session failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "failed to reset session")
		return
	}
	staff := "unknown"
	if claims, ok := httpmiddleware.StaffFromContext(r.Context()); ok {
		staff = claims.Staff()
	}
	h.logger.Info("admin: session reset", "user_id", userID, "staff", staff)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
