package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ItemKind tags how an item's cost is split.
type ItemKind string

const (
	// KindShared items are split across every participant.
	KindShared ItemKind = "shared"
	// KindIndividual items are split across their explicit assignees only.
	KindIndividual ItemKind = "individual"
)

// Label returns the human-readable kind name used in listings and exports.
func (k ItemKind) Label() string {
	switch k {
	case KindShared:
		return "Shared"
	case KindIndividual:
		return "Individual"
	default:
		return string(k)
	}
}

// Valid reports whether k is one of the known kinds.
func (k ItemKind) Valid() bool {
	switch k {
	case KindShared, KindIndividual:
		return true
	default:
		return false
	}
}

// LineItem is an item as produced by an external source (receipt, table, manual input)
// before it is given a kind.
type LineItem struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// Item is one purchased line of the ledger.
type Item struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	Kind      ItemKind        `json:"kind"`
	Assignees []string        `json:"assignees"`

	// Remembered holds the subset that was active before "everyone" was toggled on,
	// so toggling "everyone" off again restores it.
	Remembered []string `json:"remembered,omitempty"`
}

// NewSharedItem builds a Shared item assigned to every participant.
func NewSharedItem(li LineItem, participants []string) Item {
	return Item{
		Name:      li.Name,
		UnitPrice: li.UnitPrice,
		Quantity:  li.Quantity,
		Kind:      KindShared,
		Assignees: append([]string(nil), participants...),
	}
}

// NewIndividualItem builds an Individual item with no assignees.
func NewIndividualItem(li LineItem) Item {
	return Item{
		Name:      li.Name,
		UnitPrice: li.UnitPrice,
		Quantity:  li.Quantity,
		Kind:      KindIndividual,
		Assignees: []string{},
	}
}

// Total returns UnitPrice × Quantity without rounding.
func (it Item) Total() decimal.Decimal {
	return it.UnitPrice.Mul(it.Quantity)
}

// ReadyToSettle reports whether the item may take part in settlement.
func (it Item) ReadyToSettle() bool {
	switch it.Kind {
	case KindShared:
		return true
	case KindIndividual:
		return len(it.Assignees) > 0
	default:
		return false
	}
}

// HasAssignee reports whether name is among the assignees.
func (it Item) HasAssignee(name string) bool {
	for _, a := range it.Assignees {
		if a == name {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the item.
func (it Item) Clone() Item {
	c := it
	c.Assignees = append([]string{}, it.Assignees...)
	if it.Remembered != nil {
		c.Remembered = append([]string{}, it.Remembered...)
	}
	return c
}

// Validate checks the structural invariants of a line item.
func (li LineItem) Validate() error {
	if li.Name == "" {
		return fmt.Errorf("item name is empty")
	}
	if !li.UnitPrice.IsPositive() {
		return fmt.Errorf("item %q: price must be positive", li.Name)
	}
	if !li.Quantity.IsPositive() {
		return fmt.Errorf("item %q: quantity must be positive", li.Name)
	}
	return nil
}

// FormatMoney renders an amount with two decimal places.
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// ParseAmount reads a positive decimal written with either '.' or ',' as the separator.
// Spaces (including no-break spaces used as thousands separators) are ignored.
func ParseAmount(s string) (decimal.Decimal, error) {
	clean := strings.NewReplacer(" ", "", "\u00a0", "", ",", ".").Replace(strings.TrimSpace(s))
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("amount %q must be positive", s)
	}
	return d, nil
}
