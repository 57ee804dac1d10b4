// Package conversation runs the booking dialogue: it tracks each user's
// session, calls the generation provider and finalizes confirmed bookings.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	"github.com/wolfman30/clinic-booking-assistant/internal/extraction"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

const (
	pathGreeting  = "greeting"
	pathGenerated = "generated"
)

// HistoryStore records and replays turns.
type HistoryStore interface {
	AppendTurn(ctx context.Context, userID string, role store.Role, text string) error
	History(ctx context.Context, userID string) ([]store.Turn, error)
}

// SessionTracker loads and saves per-user sessions.
type SessionTracker interface {
	Load(ctx context.Context, userID string) (session.Session, error)
	Save(ctx context.Context, userID string, sess session.Session) error
	Reset(ctx context.Context, userID string) error
}

// SlotResolver lists the slots that are still open.
type SlotResolver interface {
	Open(ctx context.Context) ([]availability.Slot, error)
}

// Finalizer stores a confirmed booking.
type Finalizer interface {
	Finalize(ctx context.Context, userID string, b session.Booking, slot availability.Slot) (int64, error)
}

// Dependencies are the collaborators an Orchestrator needs.
type Dependencies struct {
	History   HistoryStore
	Sessions  SessionTracker
	Slots     SlotResolver
	Finalizer Finalizer
	LLM       LLMClient
	Clinic    clinic.Info
}

// Orchestrator handles one inbound utterance at a time per user.
type Orchestrator struct {
	deps    Dependencies
	model   string
	timeout time.Duration
	metrics *metrics.ConversationMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
	locks   *userLocks
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithModel overrides the model sent with every generation request.
func WithModel(model string) OrchestratorOption {
	return func(o *Orchestrator) { o.model = strings.TrimSpace(model) }
}

// WithLLMTimeout bounds each generation call; zero means no limit.
func WithLLMTimeout(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithConversationMetrics records turn and generation metrics.
func WithConversationMetrics(m *metrics.ConversationMetrics) OrchestratorOption {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator wires the dialogue engine.
func NewOrchestrator(deps Dependencies, logger *logging.Logger, opts ...OrchestratorOption) *Orchestrator {
	switch {
	case deps.History == nil:
		panic("conversation: history store required")
	case deps.Sessions == nil:
		panic("conversation: session tracker required")
	case deps.Slots == nil:
		panic("conversation: slot resolver required")
	case deps.Finalizer == nil:
		panic("conversation: finalizer required")
	case deps.LLM == nil:
		panic("conversation: llm client required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	o := &Orchestrator{
		deps:   deps,
		logger: logger,
		tracer: otel.Tracer("clinicbot.internal.conversation"),
		locks:  newUserLocks(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// HandleTurn processes one utterance and returns the reply to send. On
// failure it returns ApologyMessage together with the cause, so the reply is
// always safe to deliver.
func (o *Orchestrator) HandleTurn(ctx context.Context, userID, text string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return ApologyMessage, errors.New("conversation: user id required")
	}
	unlock := o.locks.lock(userID)
	defer unlock()

	ctx, span := o.tracer.Start(ctx, "conversation.turn")
	defer span.End()

	reply, path, err := o.handle(ctx, userID, text)
	span.SetAttributes(attribute.String("conversation.path", path))
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveTurn(path, "error")
		o.logger.Error("failed to handle turn", "user_id", userID, "path", path, "error", err)
		return ApologyMessage, fmt.Errorf("conversation: handle turn: %w", err)
	}
	o.metrics.ObserveTurn(path, "ok")
	return reply, nil
}

func (o *Orchestrator) handle(ctx context.Context, userID, text string) (string, string, error) {
	history, err := o.deps.History.History(ctx, userID)
	if err != nil {
		return "", pathGenerated, err
	}
	sess, err := o.deps.Sessions.Load(ctx, userID)
	if err != nil {
		return "", pathGenerated, err
	}

	if len(history) == 0 || IsGreeting(text) {
		if err := o.record(ctx, userID, text, WelcomeMessage); err != nil {
			return "", pathGreeting, err
		}
		return WelcomeMessage, pathGreeting, nil
	}

	open, err := o.deps.Slots.Open(ctx)
	if err != nil {
		return "", pathGenerated, err
	}

	fields := extraction.Extract(text)
	var (
		choice availability.Slot
		chose  bool
	)
	if slotsOffered(history, open) {
		choice, chose = availability.DetectChoice(text, open)
	}
	next := advance(sess, fields, open, choice, chose)
	if next != sess {
		if err := o.deps.Sessions.Save(ctx, userID, next); err != nil {
			return "", pathGenerated, err
		}
		o.logger.Debug("session advanced",
			"user_id", userID,
			"awaiting", string(next.Awaiting),
			"stage", next.Stage(true).String(),
		)
	}

	messages := BuildMessages(o.deps.Clinic, open, next, history, text)
	reply, err := o.generate(ctx, messages)
	if err != nil {
		return "", pathGenerated, err
	}
	if err := o.record(ctx, userID, text, reply); err != nil {
		return "", pathGenerated, err
	}

	if strings.Contains(reply, ConfirmationMarker) {
		o.finalize(ctx, userID, next, open)
	}
	return reply, pathGenerated, nil
}

func (o *Orchestrator) record(ctx context.Context, userID, text, reply string) error {
	if err := o.deps.History.AppendTurn(ctx, userID, store.RoleUser, text); err != nil {
		return err
	}
	return o.deps.History.AppendTurn(ctx, userID, store.RoleAssistant, reply)
}

func (o *Orchestrator) generate(ctx context.Context, messages []ChatMessage) (string, error) {
	ctx, span := o.tracer.Start(ctx, "conversation.generate")
	defer span.End()

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	provider := providerOf(o.deps.LLM)
	start := time.Now()
	resp, err := o.deps.LLM.Complete(ctx, LLMRequest{Model: o.model, Messages: messages})
	elapsed := time.Since(start).Seconds()
	if err != nil {
		span.RecordError(err)
		o.metrics.ObserveGeneration(provider, "error", elapsed)
		return "", err
	}
	o.metrics.ObserveGeneration(provider, "ok", elapsed)
	span.SetAttributes(
		attribute.String("llm.provider", provider),
		attribute.Int("llm.output_tokens", int(resp.Usage.OutputTokens)),
	)
	if strings.TrimSpace(resp.Text) == "" {
		return "", errors.New("conversation: empty generation")
	}
	return resp.Text, nil
}

// finalize commits the booking after a confirmation. The reply has already
// been recorded, so failures are logged rather than returned.
func (o *Orchestrator) finalize(ctx context.Context, userID string, sess session.Session, open []availability.Slot) {
	slot, ok := finalizeSlot(sess.Booking, open)
	if !ok {
		o.logger.Warn("confirmation without an open slot, booking not stored", "user_id", userID)
		return
	}

	id, err := o.deps.Finalizer.Finalize(ctx, userID, sess.Booking, slot)
	switch {
	case errors.Is(err, booking.ErrDuplicate):
		o.logger.Warn("duplicate confirmation ignored", "user_id", userID)
	case err != nil:
		o.logger.Error("failed to finalize booking", "user_id", userID, "error", err)
		return
	default:
		o.logger.Info("booking confirmed", "user_id", userID, "appointment_id", id)
	}

	if err := o.deps.Sessions.Reset(ctx, userID); err != nil {
		o.logger.Error("failed to reset session after booking", "user_id", userID, "error", err)
	}
}

// advance applies one turn's findings to the session. At most one contact
// field is taken per turn, in the order name, email, phone. A slot choice is
// recorded on the booking but never moves Awaiting.
func advance(sess session.Session, fields extraction.Fields, open []availability.Slot, choice availability.Slot, chose bool) session.Session {
	next := sess
	if next.Booking.HasSlot() && !containsSlot(open, next.Booking.Slot()) {
		next.Booking = next.Booking.WithSlot(availability.Slot{})
	}
	if chose {
		next.Booking = next.Booking.WithSlot(choice)
	}

	switch {
	case fields.Name != "":
		next.Booking.Name = fields.Name
		next.Awaiting = session.AwaitingEmail
	case fields.Email != "":
		next.Booking.Email = fields.Email
		next.Awaiting = session.AwaitingPhone
	case fields.Phone != "":
		next.Booking.Phone = fields.Phone
		next.Awaiting = session.AwaitingNone
	}
	return next
}

// slotsOffered reports whether the most recent assistant turn listed an open
// slot. Only then is a short reply like "2" read as a slot pick; otherwise it
// answers something else, such as the welcome menu.
func slotsOffered(history []store.Turn, open []availability.Slot) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != store.RoleAssistant {
			continue
		}
		for _, slot := range open {
			if mentionsDate(history[i].Text, slot.Date) {
				return true
			}
		}
		return false
	}
	return false
}

// mentionsDate matches "28/08/2025" as well as the short "28/08".
func mentionsDate(text, date string) bool {
	parts := strings.Split(date, "/")
	if len(parts) < 2 || parts[0] == "" {
		return false
	}
	return strings.Contains(text, parts[0]+"/"+parts[1])
}

// finalizeSlot picks the slot to book: the user's choice when it is still
// open, otherwise the first open slot. A choice that is no longer open
// books nothing.
func finalizeSlot(b session.Booking, open []availability.Slot) (availability.Slot, bool) {
	if b.HasSlot() {
		chosen := b.Slot()
		return chosen, containsSlot(open, chosen)
	}
	if len(open) == 0 {
		return availability.Slot{}, false
	}
	return open[0], true
}

func containsSlot(slots []availability.Slot, want availability.Slot) bool {
	for _, s := range slots {
		if s.Date == want.Date && s.Time == want.Time {
			return true
		}
	}
	return false
}
