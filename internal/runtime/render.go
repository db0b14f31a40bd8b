package runtime

import (
	"fmt"
	"strings"

	"github.com/aretw0/splitbill/pkg/domain"
)

// Button labels shared by every transport.
const (
	LabelAddMembers  = "Add members"
	LabelStart       = "Start"
	LabelAddItem     = "Add item"
	LabelScanCode    = "Scan QR code"
	LabelImportTable = "Import table"
	LabelFinish      = "Finish"
	LabelCancel      = "Cancel"
	LabelShared      = "Shared"
	LabelIndividual  = "Individual"
	LabelEveryone    = "Everyone"
	LabelPrev        = "< Prev"
	LabelNext        = "Next >"
	LabelMoreItems   = "Add more items"
)

func button(label string, ev domain.Event) domain.Button {
	return domain.Button{Label: label, Event: ev}
}

func cancelRow() []domain.Button {
	return []domain.Button{button(LabelCancel, domain.Press(domain.ActionCancel))}
}

// prompt appends the message that asks for the next event in s.State.
func (e *Engine) prompt(s *domain.Session, r *domain.Reply) {
	switch s.State {
	case domain.StateSelectingAction:
		text := "No participants yet."
		if len(s.Participants) > 0 {
			text = "Participants: " + strings.Join(s.Participants, ", ")
		}
		r.Ask(text+"\nChoose an action:", &domain.Keyboard{Inline: true, Rows: [][]domain.Button{
			{button(LabelAddMembers, domain.Press(domain.ActionAddMembers)), button(LabelStart, domain.Press(domain.ActionStart))},
			cancelRow(),
		}})

	case domain.StateAddingMembers:
		r.Ask("Send the participant names separated by commas, e.g. Anna, Boris, Clara.",
			&domain.Keyboard{Inline: true, Rows: [][]domain.Button{cancelRow()}})

	case domain.StateSelectingPayer:
		rows := make([][]domain.Button, 0, len(s.Participants))
		for _, p := range s.Participants {
			rows = append(rows, []domain.Button{button(p, domain.Text(p))})
		}
		r.Ask("Who paid?", &domain.Keyboard{Rows: rows})

	case domain.StateAddingItem:
		text := "No items yet."
		if n := len(s.Ledger.Items); n > 0 {
			text = fmt.Sprintf("Items: %d, total %s.", n, domain.FormatMoney(s.Ledger.Total()))
		}
		rows := [][]domain.Button{{button(LabelAddItem, domain.Press(domain.ActionAddItem))}}
		var ingest []domain.Button
		if e.lookup != nil {
			ingest = append(ingest, button(LabelScanCode, domain.Press(domain.ActionScanCode)))
		}
		if e.importer != nil {
			ingest = append(ingest, button(LabelImportTable, domain.Press(domain.ActionImportTable)))
		}
		if len(ingest) > 0 {
			rows = append(rows, ingest)
		}
		rows = append(rows, []domain.Button{
			button(LabelFinish, domain.Press(domain.ActionFinish)),
			button(LabelCancel, domain.Press(domain.ActionCancel)),
		})
		r.Ask(text+"\nAdd an item or finish.", &domain.Keyboard{Inline: true, Rows: rows})

	case domain.StateAddingItemName:
		r.Ask("Send the item name.", &domain.Keyboard{Inline: true, Rows: [][]domain.Button{cancelRow()}})

	case domain.StateAddingItemPrice:
		r.Ask(fmt.Sprintf("Send the price of %q, e.g. 12.50 or 12,50.", s.Draft.Name),
			&domain.Keyboard{Inline: true, Rows: [][]domain.Button{cancelRow()}})

	case domain.StateSelectingItemKind:
		r.Ask(fmt.Sprintf("Is %q (%s) shared by everyone or individual?", s.Draft.Name, domain.FormatMoney(s.Draft.UnitPrice)),
			&domain.Keyboard{Inline: true, Rows: [][]domain.Button{{
				button(LabelShared, domain.Press(domain.ActionShared)),
				button(LabelIndividual, domain.Press(domain.ActionIndividual)),
			}}})

	case domain.StateScanningCode:
		r.Ask("Send a photo of the receipt QR code, or paste the text it encodes.",
			&domain.Keyboard{Inline: true, Rows: [][]domain.Button{cancelRow()}})

	case domain.StateImportingTable:
		r.Ask("Send a .csv file with name, price and (optionally) quantity columns, e.g.\nItem;Price;Quantity\nBread;100,50;2",
			&domain.Keyboard{Inline: true, Rows: [][]domain.Button{cancelRow()}})

	case domain.StateReviewingAssignments:
		it, ok := s.CurrentItem()
		if !ok {
			return
		}
		r.Ask(itemCard(s, it), reviewKeyboard(s, it))
	}
}

func itemCard(s *domain.Session, it *domain.Item) string {
	assigned := "nobody yet"
	if len(it.Assignees) > 0 {
		assigned = strings.Join(it.Assignees, ", ")
	}
	return fmt.Sprintf("Item %d of %d (%s): %s\n%s x %s = %s\nAssigned to: %s",
		s.Cursor+1, len(s.Ledger.Items), it.Kind.Label(), it.Name,
		domain.FormatMoney(it.UnitPrice), it.Quantity.String(), domain.FormatMoney(it.Total()),
		assigned)
}

func reviewKeyboard(s *domain.Session, it *domain.Item) *domain.Keyboard {
	kb := &domain.Keyboard{Inline: true}
	idx := s.Cursor

	if it.Kind == domain.KindIndividual {
		var row []domain.Button
		for _, p := range s.Participants {
			label := p
			if it.HasAssignee(p) {
				label = "✓ " + p
			}
			row = append(row, button(label, domain.Toggle(idx, p)))
		}
		kb.Rows = append(kb.Rows, row)
		kb.Rows = append(kb.Rows, []domain.Button{button(LabelEveryone, domain.PressItem(domain.ActionToggleAll, idx))})
	}

	kindLabel := "Make shared"
	if it.Kind == domain.KindShared {
		kindLabel = "Make individual"
	}
	kb.Rows = append(kb.Rows, []domain.Button{button(kindLabel, domain.PressItem(domain.ActionChangeKind, idx))})

	var nav []domain.Button
	if idx > 0 {
		nav = append(nav, button(LabelPrev, domain.Press(domain.ActionPrev)))
	}
	nav = append(nav, button(LabelNext, domain.Press(domain.ActionNext)))
	kb.Rows = append(kb.Rows, nav)
	kb.Rows = append(kb.Rows, []domain.Button{
		button(LabelMoreItems, domain.Press(domain.ActionMoreItems)),
		button(LabelFinish, domain.Press(domain.ActionFinish)),
	})
	return kb
}

// payKeyboard offers one invoice button per debt.
func payKeyboard(s domain.Settlement) *domain.Keyboard {
	if len(s.Debts) == 0 {
		return nil
	}
	kb := &domain.Keyboard{Inline: true}
	for _, d := range s.Debts {
		amount := domain.FormatMoney(d.Amount)
		kb.Rows = append(kb.Rows, []domain.Button{button(
			fmt.Sprintf("Bill %s %s", d.Participant, amount),
			domain.Event{Type: domain.EventAction, Action: domain.ActionPay, Payer: s.Payer, Participant: d.Participant, Amount: amount},
		)})
	}
	return kb
}
