package bootstrap

import (
	"context"
	"errors"

	"github.com/wolfman30/clinic-booking-assistant/internal/availability"
	"github.com/wolfman30/clinic-booking-assistant/internal/booking"
	"github.com/wolfman30/clinic-booking-assistant/internal/clinic"
	appconfig "github.com/wolfman30/clinic-booking-assistant/internal/config"
	"github.com/wolfman30/clinic-booking-assistant/internal/conversation"
	"github.com/wolfman30/clinic-booking-assistant/internal/observability/metrics"
	"github.com/wolfman30/clinic-booking-assistant/internal/session"
	"github.com/wolfman30/clinic-booking-assistant/pkg/logging"
)

// AssistantDeps are the pieces BuildAssistant cannot derive from config.
// Notifier and Metrics are optional.
type AssistantDeps struct {
	Storage  *Storage
	LLM      conversation.LLMClient
	Clinic   clinic.Info
	Notifier booking.Notifier
	Metrics  *metrics.ConversationMetrics
}

// Assistant is the wired dialogue core.
type Assistant struct {
	Orchestrator *conversation.Orchestrator
	Sessions     *session.Tracker
	Resolver     *availability.Resolver
	Finalizer    *booking.Finalizer
}

// BuildAssistant wires resolver, tracker, finalizer and orchestrator over
// the opened storage. The duplicate guard lives in Redis when available.
func BuildAssistant(_ context.Context, cfg *appconfig.Config, deps AssistantDeps, logger *logging.Logger) (*Assistant, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config is required")
	}
	if deps.Storage == nil || deps.Storage.Store == nil {
		return nil, errors.New("bootstrap: storage is required")
	}
	if deps.LLM == nil {
		return nil, errors.New("bootstrap: llm client is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	st := deps.Storage.Store
	var guard booking.Guard = booking.NewMemoryGuard()
	if deps.Storage.Redis != nil {
		guard = booking.NewRedisGuard(deps.Storage.Redis)
	}
	opts := []booking.Option{booking.WithGuard(guard, cfg.FinalizeGuardTTL), booking.WithMetrics(deps.Metrics)}
	if deps.Notifier != nil {
		opts = append(opts, booking.WithNotifier(deps.Notifier))
	}

	a := &Assistant{
		Sessions:  session.NewTracker(st, logger),
		Resolver:  availability.NewResolver(deps.Clinic.Calendar, st),
		Finalizer: booking.NewFinalizer(st, logger, opts...),
	}
	a.Orchestrator = conversation.NewOrchestrator(conversation.Dependencies{
		History:   st,
		Sessions:  a.Sessions,
		Slots:     a.Resolver,
		Finalizer: a.Finalizer,
		LLM:       deps.LLM,
		Clinic:    deps.Clinic,
	}, logger,
		conversation.WithLLMTimeout(cfg.LLMTimeout),
		conversation.WithConversationMetrics(deps.Metrics),
	)
	return a, nil
}
