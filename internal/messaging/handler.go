// Package messaging connects Twilio SMS and WhatsApp webhooks to the
// conversation orchestrator.
package messaging

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var twilioTracer = otel.Tracer("clinicbot.internal.messaging.twilio")

// TurnHandler runs one conversation turn. The reply is always safe to send,
// even when err is non-nil.
type TurnHandler interface {
	HandleTurn(ctx context.Context, userID, text string) (string, error)
}

// Handler handles messaging webhook requests.
type Handler struct {
	webhookSecret string
	publicBaseURL string
	turns         TurnHandler
	messenger     ReplyMessenger
	metrics       *metrics.MessagingMetrics
	sendTimeout   time.Duration
	logger        *logging.Logger
}

// HandlerOption configures optional Handler behavior.
type HandlerOption func(*Handler)

// WithPublicBaseURL sets the externally visible base URL used when checking
// signatures behind a proxy.
func WithPublicBaseURL(base string) HandlerOption {
	return func(h *Handler) { h.publicBaseURL = strings.TrimSpace(base) }
}

// WithMessagingMetrics records webhook and delivery metrics.
func WithMessagingMetrics(m *metrics.MessagingMetrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// NewHandler creates a new messaging handler. A nil messenger makes the
// handler answer inline with TwiML.
func NewHandler(webhookSecret string, turns TurnHandler, messenger ReplyMessenger, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if turns == nil {
		panic("messaging: turn handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		webhookSecret: webhookSecret,
		turns:         turns,
		messenger:     messenger,
		sendTimeout:   15 * time.Second,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// TwilioWebhook handles POST /webhooks/twilio/messages. The sender address
// is the conversation's user id and the turn runs before responding.
func (h *Handler) TwilioWebhook(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := twilioTracer.Start(r.Context(), "messaging.twilio.webhook")
	defer span.End()

	if h.webhookSecret != "" {
		if !ValidateTwilioSignature(r, h.webhookSecret, buildAbsoluteURL(r, h.publicBaseURL)) {
			h.logger.Warn("invalid twilio signature")
			h.metrics.ObserveInbound("twilio", "unauthorized")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			span.RecordError(errors.New("invalid twilio signature"))
			return
		}
	}

	webhook, err := ParseTwilioWebhook(r)
	if err != nil {
		h.logger.Error("failed to parse twilio webhook", "error", err)
		h.metrics.ObserveInbound("twilio", "bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}

	channel := webhook.Channel()
	userID := strings.TrimSpace(webhook.From)
	span.SetAttributes(
		attribute.String("clinicbot.twilio.message_sid", webhook.MessageSid),
		attribute.String("clinicbot.channel", channel),
		attribute.String("clinicbot.from", NormalizeE164(userID)),
	)
	defer func() { h.metrics.ObserveWebhookLatency(channel, time.Since(start).Seconds()) }()

	if userID == "" || strings.TrimSpace(webhook.Body) == "" {
		err := errors.New("missing required twilio fields")
		h.logger.Error("invalid twilio payload", "error", err, "message_sid", webhook.MessageSid)
		h.metrics.ObserveInbound(channel, "bad_request")
		http.Error(w, "Bad Request", http.StatusBadRequest)
		span.RecordError(err)
		return
	}

	reply, err := h.turns.HandleTurn(ctx, userID, webhook.Body)
	if err != nil {
		h.logger.Error("conversation turn failed", "error", err, "channel", channel, "message_sid", webhook.MessageSid)
		h.metrics.ObserveInbound(channel, "error")
		span.RecordError(err)
	} else {
		h.metrics.ObserveInbound(channel, "ok")
	}

	if h.messenger != nil {
		sendCtx, cancel := context.WithTimeout(ctx, h.sendTimeout)
		defer cancel()
		sendErr := h.messenger.SendReply(sendCtx, OutboundReply{
			To:       userID,
			From:     strings.TrimSpace(webhook.To),
			Body:     reply,
			Metadata: map[string]string{"twilio_message_sid": webhook.MessageSid},
		})
		if sendErr == nil {
			h.metrics.ObserveOutbound(channel, "ok")
			h.writeTwiML(w, "")
			return
		}
		// Deliver inline instead so the user still gets an answer.
		h.logger.Warn("failed to send reply, answering inline", "error", sendErr, "channel", channel)
		h.metrics.ObserveOutbound(channel, "error")
		span.RecordError(sendErr)
	}

	h.metrics.ObserveOutbound(channel, "inline")
	h.writeTwiML(w, reply)
}

func (h *Handler) writeTwiML(w http.ResponseWriter, message string) {
	body, err := xml.Marshal(twimlResponse{Message: message})
	if err != nil {
		h.logger.Error("failed to render twiml", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// HealthCheck returns a simple health check response.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// buildAbsoluteURL reconstructs the URL Twilio signed. publicBaseURL wins
// over forwarded headers when set.
func buildAbsoluteURL(r *http.Request, publicBaseURL string) string {
	if r.URL == nil {
		return ""
	}
	if publicBaseURL != "" {
		return strings.TrimRight(publicBaseURL, "/") + r.URL.RequestURI()
	}
	if r.URL.Scheme != "" && r.URL.Host != "" {
		return r.URL.String()
	}
	scheme := r.Header.Get("X-Forwarded-Proto")
	if scheme == "" {
		scheme = "https"
		if r.TLS == nil {
			scheme = "http"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, r.URL.RequestURI())
}
