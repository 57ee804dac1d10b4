// Package webchat serves the browser chat: a JSON endpoint and a websocket,
// both running turns synchronously through the orchestrator.
package webchat

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// TurnHandler runs one conversation turn. The reply is always safe to show.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, text string) (string, error)
}

// HistoryReader lists prior turns, oldest first.
type HistoryReader interface {
	History(ctx context.Context, userID string) ([]store.Turn, error)
}

// Handler manages web chat connections and messages.
type Handler struct {
	turns   TurnHandler
	history HistoryReader
	logger  *logging.Logger

	mu       sync.RWMutex
	sessions map[string]*wsConn // user id -> active connection
}

type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *wsConn) send(msg OutboundMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// InboundMessage is what the widget sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the widget.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is a simplified turn for history frames.
type HistoryMessage struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// MessageRequest is the body of POST /api/messages.
type MessageRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// MessageResponse is returned by POST /api/messages.
type MessageResponse struct {
	UserID string `json:"user_id"`
	Reply  string `json:"reply"`
}

// NewHandler creates a web chat handler. history may be nil.
func NewHandler(turns TurnHandler, history HistoryReader, logger *logging.Logger) *Handler {
	if turns == nil {
		panic("webchat: turn handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		turns:    turns,
		history:  history,
		logger:   logger,
		sessions: make(map[string]*wsConn),
	}
}

// generateUserID creates a random visitor identifier.
func generateUserID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return uuid.New().String()
	}
	return "web:" + hex.EncodeToString(b)
}

// HandleMessage handles POST /api/messages.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		http.Error(w, "text is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		req.UserID = generateUserID()
	}

	reply, err := h.turns.HandleTurn(r.Context(), req.UserID, req.Text)
	if err != nil {
		h.logger.Error("webchat: turn failed", "error", err, "user_id", req.UserID)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(MessageResponse{UserID: req.UserID, Reply: reply})
}

// HandleWebSocket upgrades GET /ws/chat?user=… and exchanges JSON frames.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		userID = generateUserID()
	}

	wsc := &wsConn{conn: conn}
	_ = wsc.send(OutboundMessage{Type: "session", UserID: userID})

	if h.history != nil {
		if turns, err := h.history.History(ctx, userID); err != nil {
			h.logger.Warn("webchat: failed to load history", "error", err, "user_id", userID)
		} else if len(turns) > 0 {
			_ = wsc.send(OutboundMessage{Type: "history", Messages: historyMessages(turns)})
		}
	}

	h.mu.Lock()
	h.sessions[userID] = wsc
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		if h.sessions[userID] == wsc {
			delete(h.sessions, userID)
		}
		h.mu.Unlock()
	}()

	h.logger.Info("webchat: connection opened", "user_id", userID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "user_id", userID, "error", err)
			return
		}

		if msg.Type == "ping" {
			_ = wsc.send(OutboundMessage{Type: "pong"})
			continue
		}
		if msg.Type != "message" || strings.TrimSpace(msg.Text) == "" {
			continue
		}

		_ = wsc.send(OutboundMessage{Type: "typing"})
		reply, err := h.turns.HandleTurn(ctx, userID, msg.Text)
		if err != nil {
			h.logger.Error("webchat: turn failed", "error", err, "user_id", userID)
		}
		_ = wsc.send(OutboundMessage{
			Type:      "message",
			Role:      string(store.RoleAssistant),
			Text:      reply,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// SendToUser pushes a message to an open websocket for userID. It reports
// whether a connection was found.
func (h *Handler) SendToUser(userID string, msg OutboundMessage) bool {
	h.mu.RLock()
	wsc, ok := h.sessions[userID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	return wsc.send(msg) == nil
}

// HandleHistory handles GET /api/history?user=….
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("user"))
	if userID == "" {
		http.Error(w, "user parameter required", http.StatusBadRequest)
		return
	}

	messages := []HistoryMessage{}
	if h.history != nil {
		turns, err := h.history.History(r.Context(), userID)
		if err != nil {
			h.logger.Error("webchat: failed to load history", "error", err, "user_id", userID)
			http.Error(w, "failed to load history", http.StatusInternalServerError)
			return
		}
		messages = historyMessages(turns)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": messages})
}

func historyMessages(turns []store.Turn) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryMessage{
			Role:      string(t.Role),
			Text:      t.Text,
			Timestamp: t.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return out
}
