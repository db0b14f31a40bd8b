package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	Events        *prometheus.CounterVec
	Collaborators *prometheus.HistogramVec
	SessionsEnded *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitbill_events_total",
				Help: "Events processed, by state transition and outcome.",
			},
			[]string{"event", "from", "to", "outcome"},
		),
		Collaborators: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "splitbill_collaborator_duration_seconds",
				Help:    "Duration of external collaborator calls.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collaborator", "outcome"},
		),
		SessionsEnded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "splitbill_sessions_ended_total",
				Help: "Sessions that ended, by reason.",
			},
			[]string{"reason"},
		),
	}
	for _, c := range []prometheus.Collector{m.Events, m.Collaborators, m.SessionsEnded} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func outcome(rejected domain.ErrorKind) string {
	if rejected == "" {
		return "ok"
	}
	return string(rejected)
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			m.Events.WithLabelValues(e.Event, string(e.From), string(e.To), outcome(e.Rejected)).Inc()
		},
		OnCollaborator: func(ctx context.Context, e *domain.CollaboratorEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.Collaborators.WithLabelValues(e.Collaborator, result).Observe(e.Duration.Seconds())
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			m.SessionsEnded.WithLabelValues(e.Reason).Inc()
		},
	}
}

// LogHooks returns hooks that write an audit trail to logger.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"actor_id", e.ActorID,
				"event", e.Event,
				"from", e.From,
				"to", e.To,
				"rejected", e.Rejected,
			)
		},
		OnCollaborator: func(ctx context.Context, e *domain.CollaboratorEvent) {
			logger.InfoContext(ctx, "collaborator",
				"actor_id", e.ActorID,
				"collaborator", e.Collaborator,
				"duration", e.Duration,
				"err", e.Err,
			)
		},
		OnSessionEnd: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_end", "actor_id", e.ActorID, "state", e.State, "reason", e.Reason)
		},
	}
}

// Chain calls every hook set in order.
func Chain(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		h := h
		if h.OnTransition != nil {
			prev := out.OnTransition
			out.OnTransition = func(ctx context.Context, e *domain.TransitionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnTransition(ctx, e)
			}
		}
		if h.OnCollaborator != nil {
			prev := out.OnCollaborator
			out.OnCollaborator = func(ctx context.Context, e *domain.CollaboratorEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnCollaborator(ctx, e)
			}
		}
		if h.OnSessionEnd != nil {
			prev := out.OnSessionEnd
			out.OnSessionEnd = func(ctx context.Context, e *domain.SessionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				h.OnSessionEnd(ctx, e)
			}
		}
	}
	return out
}
