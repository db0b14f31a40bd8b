package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
)

// Collaborator names used in logs and hooks.
const (
	CollaboratorDecoder  = "code_decoder"
	CollaboratorReceipts = "receipt_lookup"
	CollaboratorTables   = "table_importer"
	CollaboratorInvoices = "invoice_issuer"
)

var errCollaboratorMissing = errors.New("collaborator not configured")

// call runs fn under the collaborator timeout. A collaborator that ignores its context
// is abandoned once the deadline passes.
func (e *Engine) call(ctx context.Context, actorID, name string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s panicked: %v", name, r)
			}
		}()
		done <- fn(ctx)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("%s: %w", name, ctx.Err())
	}

	elapsed := time.Since(start)
	e.logger.DebugContext(ctx, "Collaborator call", "actor_id", actorID, "collaborator", name, "duration", elapsed, "err", err)
	if e.hooks.OnCollaborator != nil {
		e.hooks.OnCollaborator(ctx, &domain.CollaboratorEvent{
			Timestamp:    e.now(),
			ActorID:      actorID,
			Collaborator: name,
			Duration:     elapsed,
			Err:          err,
		})
	}
	return err
}

func (e *Engine) decodeCode(ctx context.Context, actorID string, image []byte) (string, error) {
	if e.decoder == nil {
		return "", errCollaboratorMissing
	}
	var code string
	err := e.call(ctx, actorID, CollaboratorDecoder, func(ctx context.Context) error {
		var err error
		code, err = e.decoder.Decode(ctx, image)
		return err
	})
	if err != nil {
		// code may still be written by an abandoned call.
		return "", err
	}
	return code, nil
}

func (e *Engine) lookupReceipt(ctx context.Context, actorID, raw string) ([]domain.LineItem, error) {
	if e.lookup == nil {
		return nil, errCollaboratorMissing
	}
	var lines []domain.LineItem
	err := e.call(ctx, actorID, CollaboratorReceipts, func(ctx context.Context) error {
		var err error
		lines, err = e.lookup.Lookup(ctx, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (e *Engine) parseTable(ctx context.Context, actorID string, raw []byte) ([]domain.LineItem, error) {
	if e.importer == nil {
		return nil, errCollaboratorMissing
	}
	var lines []domain.LineItem
	err := e.call(ctx, actorID, CollaboratorTables, func(ctx context.Context) error {
		var err error
		lines, err = e.importer.Parse(ctx, raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return lines, nil
}

// Pay issues the invoice carried by a pay button. It needs no session.
func (e *Engine) Pay(ctx context.Context, actorID string, ev domain.Event) domain.Reply {
	reply := domain.Reply{ActorID: actorID}
	if e.invoices == nil {
		reply.Rejected = domain.KindCollaborator
		reply.Say("Payments are not available.")
		return reply
	}

	amount, err := domain.ParseAmount(ev.Amount)
	if err != nil || ev.Payer == "" || ev.Participant == "" || ev.Payer == ev.Participant {
		reply.Rejected = domain.KindInput
		reply.Say("This payment button is not valid.")
		return reply
	}

	inv := ports.Invoice{Payer: ev.Payer, Payee: ev.Participant, Amount: amount, Currency: e.currency}
	err = e.call(ctx, actorID, CollaboratorInvoices, func(ctx context.Context) error {
		return e.invoices.Issue(ctx, inv)
	})
	if err != nil {
		e.logger.WarnContext(ctx, "Invoice failed", "actor_id", actorID, "payee", inv.Payee, "err", err)
		reply.Rejected = domain.KindCollaborator
		reply.Say(collaboratorMessage(fmt.Sprintf("The bill for %s could not be sent.", inv.Payee), err))
		return reply
	}
	reply.Say(fmt.Sprintf("Sent a bill for %s %s to %s on behalf of %s.", domain.FormatMoney(amount), inv.Currency, inv.Payee, inv.Payer))
	return reply
}

func collaboratorMessage(base string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return base + " The service did not answer in time."
	}
	return base
}
