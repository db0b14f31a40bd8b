package splitbill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/internal/runtime"
	"github.com/aretw0/splitbill/pkg/adapters/memory"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/aretw0/splitbill/pkg/session"
)

// Version is the release of the library, reported by the CLI.
const Version = "0.4.0"

// ErrActorRequired is returned when an event carries no actor.
var ErrActorRequired = errors.New("actor id is required")

// Engine is the high-level entry point for the splitbill library.
// It owns the session store and serializes events per actor, so transports only
// translate their input into domain.Event and render the domain.Reply.
type Engine struct {
	runtime *runtime.Engine
	manager *session.Manager

	store       ports.SessionStore
	runtimeOpts []runtime.EngineOption
	sessionOpts []session.Option
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	now         func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the session store (default: in memory).
func WithStore(s ports.SessionStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLocker enables distributed locking, for several replicas sharing one store.
func WithLocker(l ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithLocker(l))
	}
}

// WithLockTTL sets the expiry of distributed locks.
func WithLockTTL(d time.Duration) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithLockTTL(d))
	}
}

// WithIdleTimeout sets how long a session may stay untouched before it is evicted.
func WithIdleTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.sessionOpts = append(e.sessionOpts, session.WithIdleTimeout(d))
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source of the engine and the session manager.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithCodeDecoder enables photo scanning of receipt QR codes.
func WithCodeDecoder(d ports.CodeDecoder) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithCodeDecoder(d))
	}
}

// WithReceiptLookup enables receipt scanning.
func WithReceiptLookup(l ports.ReceiptLookup) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithReceiptLookup(l))
	}
}

// WithTableImporter enables table uploads.
func WithTableImporter(i ports.TableImporter) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithTableImporter(i))
	}
}

// WithInvoiceIssuer enables pay buttons on the final report.
func WithInvoiceIssuer(i ports.InvoiceIssuer) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithInvoiceIssuer(i))
	}
}

// WithCurrency sets the currency written on invoices.
func WithCurrency(code string) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithCurrency(code))
	}
}

// WithCollaboratorTimeout bounds each call to a collaborator.
func WithCollaboratorTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithCollaboratorTimeout(d))
	}
}

// WithMaxInputSize limits the size of text events.
func WithMaxInputSize(n int) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithMaxInputSize(n))
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{now: time.Now}
	for _, opt := range opts {
		opt(eng)
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	// Ensure logger is initialized (so we don't pass nil down, which would overwrite defaults)
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLifecycleHooks(eng.hooks),
		runtime.WithLogger(eng.logger),
		runtime.WithClock(eng.now),
	}
	eng.runtime = runtime.NewEngine(append(runtimeOpts, eng.runtimeOpts...)...)

	sessionOpts := []session.Option{
		session.WithLogger(eng.logger),
		session.WithClock(eng.now),
		session.WithEvictionHandler(eng.onEvict),
	}
	eng.manager = session.NewManager(eng.store, append(sessionOpts, eng.sessionOpts...)...)
	return eng
}

func (e *Engine) onEvict(ctx context.Context, s *domain.Session) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		Timestamp: e.now(),
		ActorID:   s.ActorID,
		State:     s.State,
		Reason:    "evicted",
	})
}

// Handle processes one event for actorID and returns what to show.
// Events for the same actor are applied one at a time; a store or lock failure is
// returned as an error and leaves the stored session untouched.
func (e *Engine) Handle(ctx context.Context, actorID string, ev domain.Event) (domain.Reply, error) {
	if actorID == "" {
		return domain.Reply{}, ErrActorRequired
	}
	if ev.Is(domain.ActionPay) {
		return e.runtime.Pay(ctx, actorID, ev), nil
	}

	var reply domain.Reply
	err := e.manager.WithLock(ctx, actorID, func(ctx context.Context) error {
		s, err := e.manager.LoadOrNew(ctx, actorID)
		if err != nil {
			return err
		}

		out := e.runtime.Handle(ctx, s, ev)
		if out.Session == nil {
			if err := e.store.Delete(ctx, actorID); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
		} else if err := e.store.Save(ctx, actorID, out.Session); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
		reply = out.Reply
		return nil
	})
	if err != nil {
		return domain.Reply{}, err
	}
	reply.ActorID = actorID
	return reply, nil
}

// Start discards any session of actorID and opens a new one.
func (e *Engine) Start(ctx context.Context, actorID string) (domain.Reply, error) {
	return e.Handle(ctx, actorID, domain.Press(domain.ActionBegin))
}

// Cancel discards the session of actorID.
func (e *Engine) Cancel(ctx context.Context, actorID string) (domain.Reply, error) {
	return e.Handle(ctx, actorID, domain.Press(domain.ActionCancel))
}

// Current repeats the prompt of the actor's session without changing it.
// Returns domain.ErrSessionNotFound when the actor has no session.
func (e *Engine) Current(ctx context.Context, actorID string) (domain.Reply, error) {
	s, err := e.manager.Load(ctx, actorID)
	if err != nil {
		return domain.Reply{}, err
	}
	return e.runtime.Prompt(s), nil
}

// Session returns a copy of the actor's session.
func (e *Engine) Session(ctx context.Context, actorID string) (*domain.Session, error) {
	return e.manager.Load(ctx, actorID)
}

// Sessions lists the actors that hold a session.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

// Sweep evicts idle sessions once and reports how many were removed.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	return e.manager.Sweep(ctx)
}

// RunJanitor evicts idle sessions every interval until ctx is done.
func (e *Engine) RunJanitor(ctx context.Context, interval time.Duration) {
	e.manager.RunJanitor(ctx, interval)
}

// Settle computes the settlement of a ledger outside of any session.
// Every Individual item must have at least one assignee.
func Settle(participants []string, l domain.Ledger) (domain.Settlement, error) {
	if err := runtime.CheckComplete(l); err != nil {
		return domain.Settlement{}, err
	}
	return l.Settle(participants)
}
