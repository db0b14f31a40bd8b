package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
)

// Engine is the conversation state machine.
// It is stateless: every call receives the actor's session and returns the next one.
type Engine struct {
	decoder  ports.CodeDecoder
	lookup   ports.ReceiptLookup
	importer ports.TableImporter
	invoices ports.InvoiceIssuer
	currency string

	timeout  time.Duration
	maxInput int
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time

	states map[domain.ConversationState]stateHandler
}

// Outcome is the result of processing one event.
type Outcome struct {
	// Session is the session to store. Nil means the session is over and must be deleted.
	Session *domain.Session
	Reply   domain.Reply
}

// turn is the working copy one event operates on. It is discarded on rejection.
type turn struct {
	s      *domain.Session
	ev     domain.Event
	reply  *domain.Reply
	reason string // set when the session ends
}

func (t *turn) end(state domain.ConversationState, reason string) {
	t.s.State = state
	t.reason = reason
}

type stateHandler func(ctx context.Context, t *turn) error

// NewEngine creates a new engine. Collaborators are optional; missing ones disable their features.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		currency: "RUB",
		timeout:  DefaultCollaboratorTimeout,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.states = map[domain.ConversationState]stateHandler{
		domain.StateSelectingAction:      e.onSelectingAction,
		domain.StateAddingMembers:        e.onAddingMembers,
		domain.StateSelectingPayer:       e.onSelectingPayer,
		domain.StateAddingItem:           e.onAddingItem,
		domain.StateAddingItemName:       e.onAddingItemName,
		domain.StateAddingItemPrice:      e.onAddingItemPrice,
		domain.StateSelectingItemKind:    e.onSelectingItemKind,
		domain.StateScanningCode:         e.onScanningCode,
		domain.StateImportingTable:       e.onImportingTable,
		domain.StateReviewingAssignments: e.onReviewingAssignments,
	}
	return e
}

// Start creates a fresh session and its opening prompt.
func (e *Engine) Start(ctx context.Context, actorID string) Outcome {
	s := domain.NewSession(actorID, e.now())
	reply := domain.Reply{ActorID: actorID, State: s.State}
	reply.Say("Let's split a bill.")
	e.prompt(s, &reply)
	return Outcome{Session: s, Reply: reply}
}

// Handle applies ev to s. The input session is never mutated.
func (e *Engine) Handle(ctx context.Context, s *domain.Session, ev domain.Event) Outcome {
	if s == nil || s.State.Terminal() {
		actorID := ""
		if s != nil {
			actorID = s.ActorID
		}
		s = domain.NewSession(actorID, e.now())
	}

	if ev.Type == domain.EventText {
		clean, err := SanitizeInput(ev.Text, e.maxInput)
		if err != nil {
			t := &turn{s: s.Clone(), ev: ev, reply: &domain.Reply{ActorID: s.ActorID}}
			return e.fail(ctx, s, t, domain.InputError("The message was not accepted (%v).", err))
		}
		ev.Text = strings.TrimSpace(clean)
	}

	switch {
	case ev.Is(domain.ActionCancel):
		reply := domain.Reply{ActorID: s.ActorID}
		reply.Say("Calculation cancelled.")
		return e.finish(ctx, s, ev, reply, domain.StateCancelled, "cancelled")

	case ev.Is(domain.ActionBegin):
		out := e.Start(ctx, s.ActorID)
		e.emitTransition(ctx, s.ActorID, ev, s.State, out.Session.State, "")
		return out
	}

	handler, ok := e.states[s.State]
	if !ok {
		t := &turn{s: s.Clone(), ev: ev, reply: &domain.Reply{ActorID: s.ActorID}}
		return e.fail(ctx, s, t, domain.FatalError(fmt.Errorf("no handler for state %q", s.State)))
	}

	t := &turn{s: s.Clone(), ev: ev, reply: &domain.Reply{ActorID: s.ActorID}}
	if err := handler(ctx, t); err != nil {
		return e.fail(ctx, s, t, err)
	}

	if t.reason != "" {
		return e.finish(ctx, s, ev, *t.reply, t.s.State, t.reason)
	}

	t.s.UpdatedAt = e.now()
	e.prompt(t.s, t.reply)
	t.reply.State = t.s.State

	e.logger.DebugContext(ctx, "Event handled",
		"actor_id", s.ActorID,
		"event", ev.Label(),
		"from", s.State,
		"to", t.s.State,
		"diff", domain.Diff(s, t.s),
	)
	e.emitTransition(ctx, s.ActorID, ev, s.State, t.s.State, "")
	return Outcome{Session: t.s, Reply: *t.reply}
}

// fail maps a handler error onto the error policy:
// input and validation errors keep the original session, collaborator errors return to
// item collection with the working copy, anything else aborts the session.
func (e *Engine) fail(ctx context.Context, orig *domain.Session, t *turn, err error) Outcome {
	kind := domain.KindOf(err)
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.FatalError(err)
	}

	reply := domain.Reply{ActorID: orig.ActorID, Rejected: kind}
	switch kind {
	case domain.KindFatal:
		e.logger.ErrorContext(ctx, "Session aborted", "actor_id", orig.ActorID, "state", orig.State, "err", err)
		reply.Say(de.UserMessage())
		return e.finish(ctx, orig, t.ev, reply, orig.State, "aborted")

	case domain.KindCollaborator:
		e.logger.WarnContext(ctx, "Collaborator failed", "actor_id", orig.ActorID, "state", orig.State, "err", err)
		next := t.s
		next.State = domain.StateAddingItem
		next.UpdatedAt = e.now()
		reply.Messages = append(reply.Messages, t.reply.Messages...)
		reply.Say(de.UserMessage())
		e.prompt(next, &reply)
		reply.State = next.State
		e.emitTransition(ctx, orig.ActorID, t.ev, orig.State, next.State, kind)
		return Outcome{Session: next, Reply: reply}

	default:
		e.logger.DebugContext(ctx, "Event rejected", "actor_id", orig.ActorID, "state", orig.State, "event", t.ev.Label(), "err", err)
		keep := orig.Clone()
		keep.UpdatedAt = e.now()
		reply.Say(de.UserMessage())
		e.prompt(keep, &reply)
		reply.State = keep.State
		e.emitTransition(ctx, orig.ActorID, t.ev, orig.State, keep.State, kind)
		return Outcome{Session: keep, Reply: reply}
	}
}

// finish closes the session: the caller deletes it.
func (e *Engine) finish(ctx context.Context, s *domain.Session, ev domain.Event, reply domain.Reply, state domain.ConversationState, reason string) Outcome {
	reply.Ended = true
	reply.State = state
	e.logger.InfoContext(ctx, "Session ended", "actor_id", s.ActorID, "reason", reason, "state", s.State)
	e.emitTransition(ctx, s.ActorID, ev, s.State, state, reply.Rejected)
	e.emitSessionEnd(ctx, s.ActorID, s.State, reason)
	return Outcome{Reply: reply}
}

// Prompt renders the prompt of the current state without changing anything.
func (e *Engine) Prompt(s *domain.Session) domain.Reply {
	reply := domain.Reply{ActorID: s.ActorID, State: s.State}
	e.prompt(s, &reply)
	return reply
}

func (e *Engine) emitTransition(ctx context.Context, actorID string, ev domain.Event, from, to domain.ConversationState, rejected domain.ErrorKind) {
	if e.hooks.OnTransition == nil {
		return
	}
	e.hooks.OnTransition(ctx, &domain.TransitionEvent{
		Timestamp: e.now(),
		ActorID:   actorID,
		Event:     ev.Label(),
		From:      from,
		To:        to,
		Rejected:  rejected,
	})
}

func (e *Engine) emitSessionEnd(ctx context.Context, actorID string, state domain.ConversationState, reason string) {
	if e.hooks.OnSessionEnd == nil {
		return
	}
	e.hooks.OnSessionEnd(ctx, &domain.SessionEvent{
		Timestamp: e.now(),
		ActorID:   actorID,
		State:     state,
		Reason:    reason,
	})
}
