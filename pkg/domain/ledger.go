package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrNoParticipants is returned when settling without any participant.
	ErrNoParticipants = errors.New("no participants to split between")
	// ErrNoPayer is returned when settling a ledger whose payer was never chosen.
	ErrNoPayer = errors.New("payer is not set")
)

// Ledger is the payer plus every purchased item of a session.
type Ledger struct {
	Payer string `json:"payer"`
	Items []Item `json:"items"`
}

// Debt is the amount a non-payer participant owes the payer.
type Debt struct {
	Participant string          `json:"participant"`
	Amount      decimal.Decimal `json:"amount"`
}

// Settlement is the outcome of Ledger.Settle.
type Settlement struct {
	Total decimal.Decimal `json:"total"`
	Payer string          `json:"payer"`
	// Shares holds every participant's exact share, in participant order.
	Shares []Debt `json:"shares"`
	Debts  []Debt `json:"debts"`
}

// Narrative renders the settlement as display lines: total, payer, then one line per debt.
func (s Settlement) Narrative() []string {
	lines := make([]string, 0, len(s.Debts)+2)
	lines = append(lines, fmt.Sprintf("Total: %s", FormatMoney(s.Total)))
	lines = append(lines, fmt.Sprintf("Paid by: %s", s.Payer))
	for _, d := range s.Debts {
		lines = append(lines, fmt.Sprintf("%s owes %s to %s", d.Participant, FormatMoney(d.Amount), s.Payer))
	}
	return lines
}

// Append adds an item and returns its index.
func (l *Ledger) Append(it Item) int {
	l.Items = append(l.Items, it)
	return len(l.Items) - 1
}

// Total returns the sum of every item total.
func (l Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range l.Items {
		total = total.Add(it.Total())
	}
	return total
}

// Unassigned returns the 1-based positions of Individual items without assignees.
func (l Ledger) Unassigned() []int {
	var positions []int
	for i, it := range l.Items {
		if !it.ReadyToSettle() {
			positions = append(positions, i+1)
		}
	}
	return positions
}

// Clone returns a deep copy of the ledger.
func (l Ledger) Clone() Ledger {
	c := Ledger{Payer: l.Payer}
	if l.Items != nil {
		c.Items = make([]Item, len(l.Items))
		for i, it := range l.Items {
			c.Items[i] = it.Clone()
		}
	}
	return c
}

// Settle computes every participant's share and the resulting debts.
// Shares accumulate exactly; rounding happens only when amounts are rendered.
func (l Ledger) Settle(participants []string) (Settlement, error) {
	if len(participants) == 0 {
		return Settlement{}, ErrNoParticipants
	}
	if l.Payer == "" {
		return Settlement{}, ErrNoPayer
	}

	owed := make(map[string]decimal.Decimal, len(participants))
	for _, p := range participants {
		owed[p] = decimal.Zero
	}

	everyone := decimal.NewFromInt(int64(len(participants)))
	total := decimal.Zero
	for i, it := range l.Items {
		total = total.Add(it.Total())

		switch it.Kind {
		case KindShared:
			share := it.Total().Div(everyone)
			for _, p := range participants {
				owed[p] = owed[p].Add(share)
			}
		case KindIndividual:
			if len(it.Assignees) == 0 {
				return Settlement{}, fmt.Errorf("item %d (%s) has no assignees", i+1, it.Name)
			}
			share := it.Total().Div(decimal.NewFromInt(int64(len(it.Assignees))))
			for _, p := range it.Assignees {
				if _, ok := owed[p]; !ok {
					return Settlement{}, fmt.Errorf("item %d (%s) is assigned to unknown participant %q", i+1, it.Name, p)
				}
				owed[p] = owed[p].Add(share)
			}
		default:
			return Settlement{}, fmt.Errorf("item %d (%s) has unknown kind %q", i+1, it.Name, it.Kind)
		}
	}

	s := Settlement{Total: total, Payer: l.Payer}
	for _, p := range participants {
		s.Shares = append(s.Shares, Debt{Participant: p, Amount: owed[p]})
		if p != l.Payer && owed[p].IsPositive() {
			s.Debts = append(s.Debts, Debt{Participant: p, Amount: owed[p]})
		}
	}
	return s, nil
}
