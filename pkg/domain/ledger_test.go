package domain_test

import (
	"fmt"
	"testing"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func line(name, price, qty string) domain.LineItem {
	return domain.LineItem{
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Quantity:  decimal.RequireFromString(qty),
	}
}

func TestLedger_Settle_Scenario(t *testing.T) {
	participants := []string{"A", "B", "C"}
	l := domain.Ledger{Payer: "A"}
	l.Append(domain.NewSharedItem(line("bread", "90.00", "1"), participants))
	coffee := domain.NewIndividualItem(line("coffee", "60.00", "1"))
	coffee.Assignees = []string{"B", "C"}
	l.Append(coffee)

	s, err := l.Settle(participants)
	require.NoError(t, err)

	assert.Equal(t, "150.00", domain.FormatMoney(s.Total))
	require.Len(t, s.Debts, 2)
	assert.Equal(t, "B", s.Debts[0].Participant)
	assert.Equal(t, "60.00", domain.FormatMoney(s.Debts[0].Amount))
	assert.Equal(t, "C", s.Debts[1].Participant)
	assert.Equal(t, "60.00", domain.FormatMoney(s.Debts[1].Amount))

	assert.Equal(t, []string{
		"Total: 150.00",
		"Paid by: A",
		"B owes 60.00 to A",
		"C owes 60.00 to A",
	}, s.Narrative())
}

func TestLedger_Settle_PayerHasNoDebt(t *testing.T) {
	participants := []string{"A", "B"}
	l := domain.Ledger{Payer: "A"}
	it := domain.NewIndividualItem(line("steak", "40", "1"))
	it.Assignees = []string{"A"}
	l.Append(it)

	s, err := l.Settle(participants)
	require.NoError(t, err)
	assert.Empty(t, s.Debts)
	assert.Equal(t, []string{"Total: 40.00", "Paid by: A"}, s.Narrative())
	require.Len(t, s.Shares, 2)
	assert.True(t, s.Shares[1].Amount.IsZero())
}

func TestLedger_Settle_SharedSumsToTotal(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	prices := []string{"0.01", "1", "10.00", "99.99", "100", "33.33", "1234.56"}
	quantities := []string{"1", "2", "3", "0.5", "7"}

	for n := 1; n <= 7; n++ {
		participants := make([]string, n)
		for i := range participants {
			participants[i] = fmt.Sprintf("P%d", i)
		}
		for _, price := range prices {
			for _, qty := range quantities {
				l := domain.Ledger{Payer: "P0"}
				l.Append(domain.NewSharedItem(line("x", price, qty), participants))
				s, err := l.Settle(participants)
				require.NoError(t, err)

				sum := decimal.Zero
				for _, share := range s.Shares {
					sum = sum.Add(share.Amount)
				}
				diff := sum.Sub(s.Total).Abs()
				assert.True(t, diff.LessThanOrEqual(tolerance), "n=%d price=%s qty=%s sum=%s total=%s", n, price, qty, sum, s.Total)
			}
		}
	}
}

func TestLedger_Settle_IndividualSumsToTotal(t *testing.T) {
	tolerance := decimal.RequireFromString("0.01")
	participants := []string{"A", "B", "C", "D", "E"}
	subsets := [][]string{{"A"}, {"B", "C"}, {"A", "C", "E"}, {"B", "C", "D", "E"}, participants}

	for _, assignees := range subsets {
		for _, price := range []string{"0.01", "10", "100.00", "7.77"} {
			l := domain.Ledger{Payer: "A"}
			it := domain.NewIndividualItem(line("x", price, "3"))
			it.Assignees = assignees
			l.Append(it)

			s, err := l.Settle(participants)
			require.NoError(t, err)

			sum := decimal.Zero
			for _, share := range s.Shares {
				if domain.Contains(assignees, share.Participant) {
					sum = sum.Add(share.Amount)
				} else {
					assert.True(t, share.Amount.IsZero())
				}
			}
			assert.True(t, sum.Sub(s.Total).Abs().LessThanOrEqual(tolerance), "assignees=%v price=%s", assignees, price)
		}
	}
}

func TestLedger_Settle_Errors(t *testing.T) {
	l := domain.Ledger{Payer: "A"}
	_, err := l.Settle(nil)
	assert.ErrorIs(t, err, domain.ErrNoParticipants)

	_, err = domain.Ledger{}.Settle([]string{"A"})
	assert.ErrorIs(t, err, domain.ErrNoPayer)

	l.Append(domain.NewIndividualItem(line("x", "1", "1")))
	_, err = l.Settle([]string{"A"})
	assert.ErrorContains(t, err, "no assignees")

	l.Items[0].Assignees = []string{"Z"}
	_, err = l.Settle([]string{"A"})
	assert.ErrorContains(t, err, "unknown participant")
}

func TestLedger_Unassigned(t *testing.T) {
	participants := []string{"A", "B"}
	l := domain.Ledger{Payer: "A"}
	l.Append(domain.NewIndividualItem(line("a", "1", "1")))
	l.Append(domain.NewSharedItem(line("b", "1", "1"), participants))
	l.Append(domain.NewIndividualItem(line("c", "1", "1")))
	assert.Equal(t, []int{1, 3}, l.Unassigned())

	l.Items[0].Assignees = []string{"B"}
	assert.Equal(t, []int{3}, l.Unassigned())
}

func TestLedger_CloneIsDeep(t *testing.T) {
	l := domain.Ledger{Payer: "A"}
	it := domain.NewIndividualItem(line("a", "1", "1"))
	it.Assignees = []string{"A"}
	l.Append(it)

	c := l.Clone()
	c.Items[0].Assignees[0] = "B"
	c.Items[0].Name = "changed"

	assert.Equal(t, "A", l.Items[0].Assignees[0])
	assert.Equal(t, "a", l.Items[0].Name)
}
