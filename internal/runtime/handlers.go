package runtime

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/splitbill/internal/report"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/shopspring/decimal"
)

func (e *Engine) onSelectingAction(ctx context.Context, t *turn) error {
	switch {
	case t.ev.Is(domain.ActionAddMembers):
		t.s.State = domain.StateAddingMembers
	case t.ev.Is(domain.ActionStart):
		if len(t.s.Participants) == 0 {
			return domain.ValidationError("Add participants before starting.")
		}
		t.s.Ledger = domain.Ledger{}
		t.s.Cursor = 0
		t.s.State = domain.StateSelectingPayer
	default:
		return domain.InputError("Choose one of the actions below.")
	}
	return nil
}

func (e *Engine) onAddingMembers(ctx context.Context, t *turn) error {
	if t.ev.Type != domain.EventText {
		return domain.InputError("Send the names as a text message.")
	}
	names := domain.ParseParticipants(t.ev.Text)
	if len(names) == 0 {
		return domain.InputError("The list is empty. Send at least one name, separated by commas.")
	}
	t.s.Participants = names
	t.s.State = domain.StateSelectingAction
	return nil
}

func (e *Engine) onSelectingPayer(ctx context.Context, t *turn) error {
	if t.ev.Type != domain.EventText {
		return domain.InputError("Choose the payer from the list.")
	}
	if !domain.Contains(t.s.Participants, t.ev.Text) {
		return domain.InputError("%q is not a participant. Choose one of: %s.", t.ev.Text, strings.Join(t.s.Participants, ", "))
	}
	t.s.Ledger.Payer = t.ev.Text
	t.s.State = domain.StateAddingItem
	return nil
}

func (e *Engine) onAddingItem(ctx context.Context, t *turn) error {
	switch {
	case t.ev.Is(domain.ActionAddItem):
		t.s.State = domain.StateAddingItemName
	case t.ev.Is(domain.ActionScanCode):
		if e.lookup == nil {
			return domain.ValidationError("Receipt scanning is not available.")
		}
		t.s.State = domain.StateScanningCode
	case t.ev.Is(domain.ActionImportTable):
		if e.importer == nil {
			return domain.ValidationError("Table import is not available.")
		}
		t.s.State = domain.StateImportingTable
	case t.ev.Is(domain.ActionFinish):
		if len(t.s.Ledger.Items) == 0 {
			return domain.ValidationError("Add at least one item before finishing.")
		}
		t.s.Cursor = 0
		t.s.State = domain.StateReviewingAssignments
	case t.ev.Type == domain.EventText:
		// Typing straight away is taken as the name of a new item.
		return acceptName(t)
	default:
		return domain.InputError("Choose one of the options below.")
	}
	return nil
}

func (e *Engine) onAddingItemName(ctx context.Context, t *turn) error {
	if t.ev.Type != domain.EventText {
		return domain.InputError("Send the item name as a text message.")
	}
	return acceptName(t)
}

func acceptName(t *turn) error {
	if t.ev.Text == "" {
		return domain.InputError("The item name cannot be empty.")
	}
	t.s.Draft = domain.Draft{Name: t.ev.Text}
	t.s.State = domain.StateAddingItemPrice
	return nil
}

func (e *Engine) onAddingItemPrice(ctx context.Context, t *turn) error {
	if t.ev.Type != domain.EventText {
		return domain.InputError("Send the price as a text message.")
	}
	price, err := domain.ParseAmount(t.ev.Text)
	if err != nil {
		return domain.InputError("%q is not a valid price. Send a positive number, e.g. 12.50 or 12,50.", t.ev.Text)
	}
	t.s.Draft.UnitPrice = price
	t.s.State = domain.StateSelectingItemKind
	return nil
}

func (e *Engine) onSelectingItemKind(ctx context.Context, t *turn) error {
	kind, ok := chosenKind(t.ev)
	if !ok {
		return domain.InputError("Choose %s or %s.", LabelShared, LabelIndividual)
	}

	li := domain.LineItem{Name: t.s.Draft.Name, UnitPrice: t.s.Draft.UnitPrice, Quantity: decimal.NewFromInt(1)}
	if err := li.Validate(); err != nil {
		return domain.FatalError(fmt.Errorf("draft item: %w", err))
	}
	t.s.Draft = domain.Draft{}

	switch kind {
	case domain.KindShared:
		t.s.Ledger.Append(domain.NewSharedItem(li, t.s.Participants))
		t.reply.Say(fmt.Sprintf("Added %q, shared by everyone.", li.Name))
		t.s.State = domain.StateAddingItem
	case domain.KindIndividual:
		t.s.Cursor = t.s.Ledger.Append(domain.NewIndividualItem(li))
		t.s.State = domain.StateReviewingAssignments
	}
	return nil
}

func chosenKind(ev domain.Event) (domain.ItemKind, bool) {
	switch {
	case ev.Is(domain.ActionShared):
		return domain.KindShared, true
	case ev.Is(domain.ActionIndividual):
		return domain.KindIndividual, true
	case ev.Type == domain.EventText && strings.EqualFold(ev.Text, LabelShared):
		return domain.KindShared, true
	case ev.Type == domain.EventText && strings.EqualFold(ev.Text, LabelIndividual):
		return domain.KindIndividual, true
	}
	return "", false
}

func (e *Engine) onScanningCode(ctx context.Context, t *turn) error {
	var raw string
	switch t.ev.Type {
	case domain.EventPhoto:
		code, err := e.decodeCode(ctx, t.s.ActorID, t.ev.Data)
		switch {
		case errors.Is(err, errCollaboratorMissing):
			return domain.CollaboratorError("Photo decoding is not available. Paste the code text instead.", err)
		case errors.Is(err, ports.ErrCodeNotFound):
			return domain.CollaboratorError("No QR code was found in the photo.", err)
		case err != nil:
			return domain.CollaboratorError(collaboratorMessage("The photo could not be read.", err), err)
		}
		raw = code
	case domain.EventText:
		raw = t.ev.Text
	default:
		return domain.InputError("Send a photo of the QR code or paste its text.")
	}

	lines, err := e.lookupReceipt(ctx, t.s.ActorID, raw)
	switch {
	case errors.Is(err, ports.ErrInvalidCode):
		return domain.CollaboratorError("The code is missing one of the required fields (t, s, fn, i, fp).", err)
	case errors.Is(err, ports.ErrReceiptNotFound):
		return domain.CollaboratorError("The receipt was not found.", err)
	case err != nil:
		return domain.CollaboratorError(collaboratorMessage("The receipt service failed. Try again later.", err), err)
	}

	n := appendLines(t.s, lines)
	if n == 0 {
		return domain.CollaboratorError("The receipt has no items.", nil)
	}
	t.reply.Say(fmt.Sprintf("Added %d items from the receipt.", n))
	t.s.State = domain.StateAddingItem
	return nil
}

func (e *Engine) onImportingTable(ctx context.Context, t *turn) error {
	if t.ev.Type != domain.EventDocument {
		return domain.InputError("Send the table as a .csv file.")
	}
	if !strings.EqualFold(filepath.Ext(t.ev.FileName), ".csv") {
		return domain.InputError("Only .csv files are supported.")
	}

	lines, err := e.parseTable(ctx, t.s.ActorID, t.ev.Data)
	switch {
	case errors.Is(err, ports.ErrTableFormat):
		return domain.CollaboratorError("The table needs a header with name and price columns.", err)
	case err != nil:
		return domain.CollaboratorError(collaboratorMessage("The table could not be read.", err), err)
	}

	n := appendLines(t.s, lines)
	if n == 0 {
		return domain.CollaboratorError("The table has no valid rows.", nil)
	}
	t.reply.Say(fmt.Sprintf("Imported %d items.", n))
	t.s.State = domain.StateAddingItem
	return nil
}

// appendLines adds valid lines as unassigned Individual items and returns how many were added.
func appendLines(s *domain.Session, lines []domain.LineItem) int {
	n := 0
	for _, li := range lines {
		if li.Validate() != nil {
			continue
		}
		s.Ledger.Append(domain.NewIndividualItem(li))
		n++
	}
	return n
}

func (e *Engine) onReviewingAssignments(ctx context.Context, t *turn) error {
	it, ok := t.s.CurrentItem()
	if !ok {
		return domain.FatalError(fmt.Errorf("cursor %d out of range [0,%d)", t.s.Cursor, len(t.s.Ledger.Items)))
	}
	if t.ev.Type == domain.EventAction && t.ev.Action.ItemScoped() && t.ev.Item != t.s.Cursor {
		return domain.ValidationError("That button belongs to another item. Use the buttons under the current item.")
	}

	switch {
	case t.ev.Is(domain.ActionToggle):
		return Toggle(it, t.s.Participants, t.ev.Participant)
	case t.ev.Is(domain.ActionToggleAll):
		return ToggleAll(it, t.s.Participants)
	case t.ev.Is(domain.ActionChangeKind):
		ChangeKind(it, t.s.Participants)
	case t.ev.Is(domain.ActionNext):
		if err := CheckItem(t.s.Ledger, t.s.Cursor); err != nil {
			return err
		}
		if t.s.Cursor == len(t.s.Ledger.Items)-1 {
			return e.finalize(ctx, t)
		}
		t.s.Cursor++
	case t.ev.Is(domain.ActionPrev):
		if t.s.Cursor == 0 {
			return domain.ValidationError("This is already the first item.")
		}
		t.s.Cursor--
	case t.ev.Is(domain.ActionMoreItems):
		if err := CheckItem(t.s.Ledger, t.s.Cursor); err != nil {
			return err
		}
		t.s.State = domain.StateAddingItem
	case t.ev.Is(domain.ActionFinish):
		return e.finalize(ctx, t)
	default:
		return domain.InputError("Use the buttons under the item to assign it.")
	}
	return nil
}

// finalize settles the ledger and attaches every report artifact.
func (e *Engine) finalize(ctx context.Context, t *turn) error {
	if err := CheckComplete(t.s.Ledger); err != nil {
		return err
	}
	rep, err := report.Build(t.s.Participants, t.s.Ledger)
	if err != nil {
		return domain.FatalError(err)
	}

	t.reply.Say(rep.Text())
	if rep.Chart != nil {
		t.reply.Say(rep.Chart.Title + ":\n" + strings.Join(rep.Chart.Legend(), "\n"))
	}
	t.reply.Artifacts = rep.Artifacts()
	if e.invoices != nil {
		if kb := payKeyboard(rep.Settlement); kb != nil {
			t.reply.Ask("Send a bill to:", kb)
		}
	}
	t.end(domain.StateFinalized, "finalized")
	return nil
}
