// Package booking turns a collected booking into a stored appointment.
package booking

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
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/internal/store"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

var (
	ErrMissingName = errors.New("booking: name is required")
	ErrMissingSlot = errors.New("booking: date and time are required")
	// ErrDuplicate means the same booking was finalized moments ago.
	ErrDuplicate = errors.New("booking: duplicate finalization")
)

// DefaultGuardTTL is how long a finalized booking blocks an identical one.
const DefaultGuardTTL = 10 * time.Minute

// AppointmentInserter stores appointments.
type AppointmentInserter interface {
	InsertAppointment(ctx context.Context, appt store.NewAppointment) (int64, error)
}

// Notifier is told about every stored appointment.
type Notifier interface {
	NotifyAppointment(ctx context.Context, appt store.Appointment) error
}

// Finalizer validates and stores bookings.
type Finalizer struct {
	store    AppointmentInserter
	guard    Guard
	guardTTL time.Duration
	notifier Notifier
	metrics  *metrics.ConversationMetrics
	logger   *logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option configures a Finalizer.
type Option func(*Finalizer)

// WithGuard sets the duplicate guard and how long claims last.
func WithGuard(g Guard, ttl time.Duration) Option {
	return func(f *Finalizer) {
		f.guard = g
		if ttl > 0 {
			f.guardTTL = ttl
		}
	}
}

// WithNotifier tells n about each stored appointment. Notify errors are logged only.
func WithNotifier(n Notifier) Option {
	return func(f *Finalizer) { f.notifier = n }
}

// WithMetrics records the outcome of every Finalize call.
func WithMetrics(m *metrics.ConversationMetrics) Option {
	return func(f *Finalizer) { f.metrics = m }
}

// NewFinalizer builds a finalizer. Without WithGuard an in-memory guard is used.
func NewFinalizer(s AppointmentInserter, logger *logging.Logger, opts ...Option) *Finalizer {
	if s == nil {
		panic("booking: appointment store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	f := &Finalizer{
		store:    s,
		guard:    NewMemoryGuard(),
		guardTTL: DefaultGuardTTL,
		logger:   logger,
		tracer:   otel.Tracer("clinicbot.internal.booking"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Finalize stores one appointment for b at slot and returns its id. Email
// and phone may be empty.
func (f *Finalizer) Finalize(ctx context.Context, userID string, b session.Booking, slot availability.Slot) (int64, error) {
	ctx, span := f.tracer.Start(ctx, "booking.finalize")
	defer span.End()

	name := strings.TrimSpace(b.Name)
	if name == "" {
		f.metrics.ObserveAppointment("rejected")
		return 0, ErrMissingName
	}
	if slot.Date == "" || slot.Time == "" {
		f.metrics.ObserveAppointment("rejected")
		return 0, ErrMissingSlot
	}
	span.SetAttributes(attribute.String("booking.date", slot.Date), attribute.String("booking.time", slot.Time))

	key := guardKey(userID, name, slot)
	claimed, err := f.guard.Claim(ctx, key, f.guardTTL)
	switch {
	case err != nil:
		// a broken guard should not cost the patient their booking
		f.logger.Warn("booking guard unavailable, finalizing without it", "user_id", userID, "error", err)
	case !claimed:
		f.metrics.ObserveAppointment("duplicate")
		return 0, ErrDuplicate
	}

	appt := store.NewAppointment{
		Name:  name,
		Email: strings.TrimSpace(b.Email),
		Phone: strings.TrimSpace(b.Phone),
		Date:  slot.Date,
		Time:  slot.Time,
	}
	id, err := f.store.InsertAppointment(ctx, appt)
	if err != nil {
		span.RecordError(err)
		if relErr := f.guard.Release(ctx, key); relErr != nil {
			f.logger.Warn("failed to release booking guard", "user_id", userID, "error", relErr)
		}
		f.metrics.ObserveAppointment("error")
		return 0, fmt.Errorf("booking: store appointment: %w", err)
	}
	f.metrics.ObserveAppointment("created")
	f.logger.Info("appointment finalized", "user_id", userID, "appointment_id", id, "date", slot.Date, "time", slot.Time)

	if f.notifier != nil {
		stored := store.Appointment{
			ID:        id,
			Name:      appt.Name,
			Email:     appt.Email,
			Phone:     appt.Phone,
			Date:      appt.Date,
			Time:      appt.Time,
			CreatedAt: f.now().UTC(),
		}
		if err := f.notifier.NotifyAppointment(ctx, stored); err != nil {
			f.logger.Error("appointment notification failed", "user_id", userID, "appointment_id", id, "error", err)
		}
	}
	return id, nil
}

func guardKey(userID, name string, slot availability.Slot) string {
	return fmt.Sprintf("booking:finalize:%s:%s:%s:%s", userID, strings.ToLower(name), slot.Date, slot.Time)
}
