package splitbill_test

import (
	"testing"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettleBill(t *testing.T) {
	rep, err := splitbill.SettleBill(splitbill.Bill{
		Participants: []string{"A, B", "C"},
		Payer:        "A",
		Items: []splitbill.BillItem{
			{Name: "bread", Price: "90"},
			{Name: "coffee", Price: "30,00", Quantity: "2", Assignees: []string{"C", "B"}},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Total: 150.00", "Paid by: A", "B owes 60.00 to A", "C owes 60.00 to A"}, rep.Narrative)
	assert.NotEmpty(t, rep.Export)
	require.NotNil(t, rep.Chart)
}

func TestBill_Errors(t *testing.T) {
	tests := []struct {
		name string
		bill splitbill.Bill
		kind domain.ErrorKind
	}{
		{"no participants", splitbill.Bill{Payer: "A", Items: []splitbill.BillItem{{Name: "x", Price: "1"}}}, domain.KindInput},
		{"foreign payer", splitbill.Bill{Participants: []string{"A"}, Payer: "Z", Items: []splitbill.BillItem{{Name: "x", Price: "1"}}}, domain.KindInput},
		{"no items", splitbill.Bill{Participants: []string{"A"}, Payer: "A"}, domain.KindInput},
		{"bad price", splitbill.Bill{Participants: []string{"A"}, Payer: "A", Items: []splitbill.BillItem{{Name: "x", Price: "free"}}}, domain.KindInput},
		{"empty name", splitbill.Bill{Participants: []string{"A"}, Payer: "A", Items: []splitbill.BillItem{{Price: "1"}}}, domain.KindInput},
		{"unknown assignee", splitbill.Bill{Participants: []string{"A"}, Payer: "A", Items: []splitbill.BillItem{{Name: "x", Price: "1", Assignees: []string{"Q"}}}}, domain.KindInput},
		{"unknown kind", splitbill.Bill{Participants: []string{"A"}, Payer: "A", Items: []splitbill.BillItem{{Name: "x", Price: "1", Kind: "half"}}}, domain.KindInput},
		{"unassigned", splitbill.Bill{Participants: []string{"A"}, Payer: "A", Items: []splitbill.BillItem{{Name: "x", Price: "1", Kind: domain.KindIndividual}}}, domain.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := splitbill.SettleBill(tt.bill)
			require.Error(t, err)
			assert.Equal(t, tt.kind, domain.KindOf(err))
		})
	}
}
