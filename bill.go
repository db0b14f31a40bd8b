package splitbill

import (
	"strings"

	"github.com/aretw0/splitbill/internal/report"
	"github.com/aretw0/splitbill/internal/runtime"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
)

// BillItem is one line of a Bill. Price and Quantity accept '.' or ',' as the separator.
// An empty Kind means Shared when no assignees are listed, Individual otherwise.
type BillItem struct {
	Name      string          `json:"name" mapstructure:"name"`
	Price     string          `json:"price" mapstructure:"price"`
	Quantity  string          `json:"quantity,omitempty" mapstructure:"quantity"`
	Kind      domain.ItemKind `json:"kind,omitempty" mapstructure:"kind"`
	Assignees []string        `json:"assignees,omitempty" mapstructure:"assignees"`
}

// Bill is a complete ledger described in one request, for settling without a conversation.
// Participants may also be given as comma-separated strings.
type Bill struct {
	Participants []string   `json:"participants" mapstructure:"participants"`
	Payer        string     `json:"payer" mapstructure:"payer"`
	Items        []BillItem `json:"items" mapstructure:"items"`
}

// Ledger validates the bill and converts it into participants and a ledger.
func (b Bill) Ledger() ([]string, domain.Ledger, error) {
	participants := domain.ParseParticipants(strings.Join(b.Participants, ","))
	if len(participants) == 0 {
		return nil, domain.Ledger{}, domain.InputError("The bill has no participants.")
	}
	payer := strings.TrimSpace(b.Payer)
	if !domain.Contains(participants, payer) {
		return nil, domain.Ledger{}, domain.InputError("The payer %q is not a participant.", payer)
	}
	if len(b.Items) == 0 {
		return nil, domain.Ledger{}, domain.InputError("The bill has no items.")
	}

	l := domain.Ledger{Payer: payer}
	for i, bi := range b.Items {
		li, err := bi.lineItem()
		if err != nil {
			return nil, domain.Ledger{}, domain.InputError("Item %d: %v.", i+1, err)
		}

		kind := bi.Kind
		if kind == "" {
			kind = domain.KindShared
			if len(bi.Assignees) > 0 {
				kind = domain.KindIndividual
			}
		}
		switch kind {
		case domain.KindShared:
			l.Append(domain.NewSharedItem(li, participants))
		case domain.KindIndividual:
			it := domain.NewIndividualItem(li)
			for _, a := range bi.Assignees {
				a = strings.TrimSpace(a)
				if !domain.Contains(participants, a) {
					return nil, domain.Ledger{}, domain.InputError("Item %d: %q is not a participant.", i+1, a)
				}
				it.Assignees = append(it.Assignees, a)
			}
			it.Assignees = domain.Canonical(participants, it.Assignees)
			l.Append(it)
		default:
			return nil, domain.Ledger{}, domain.InputError("Item %d: unknown kind %q.", i+1, kind)
		}
	}
	return participants, l, nil
}

func (bi BillItem) lineItem() (domain.LineItem, error) {
	price, err := domain.ParseAmount(bi.Price)
	if err != nil {
		return domain.LineItem{}, err
	}
	qty := decimal.NewFromInt(1)
	if strings.TrimSpace(bi.Quantity) != "" {
		if qty, err = domain.ParseAmount(bi.Quantity); err != nil {
			return domain.LineItem{}, err
		}
	}
	li := domain.LineItem{Name: strings.TrimSpace(bi.Name), UnitPrice: price, Quantity: qty}
	return li, li.Validate()
}

// SettleBill settles b and renders every report artifact.
func SettleBill(b Bill) (*report.Report, error) {
	participants, l, err := b.Ledger()
	if err != nil {
		return nil, err
	}
	if err := runtime.CheckComplete(l); err != nil {
		return nil, err
	}
	return report.Build(participants, l)
}
