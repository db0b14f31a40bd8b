package tabular_test

import (
	"context"
	"testing"

	"github.com/aretw0/splitbill/internal/tabular"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func names(items []domain.LineItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestParse_SemicolonWithPreamble(t *testing.T) {
	raw := "\xEF\xBB\xBFStore receipt\nDate;2024-01-01\nТовар;Цена;Количество\nХлеб;100,50;2\n\"Молоко\";89.90;\n"

	items, err := tabular.New().Parse(context.Background(), []byte(raw))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "Хлеб", items[0].Name)
	assert.Equal(t, "100.5", items[0].UnitPrice.String())
	assert.Equal(t, "2", items[0].Quantity.String())

	assert.Equal(t, "Молоко", items[1].Name)
	assert.Equal(t, "1", items[1].Quantity.String())
}

func TestParse_DelimiterDetection(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"comma", "Name,Price,Qty\nTea,3.50,2\nCake,4,1\n"},
		{"tab", "item\tprice\nTea\t3.50\nCake\t4\n"},
		{"crlf", "Product;Price\r\nTea;3,50\r\nCake;4\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := tabular.New().Parse(context.Background(), []byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, []string{"Tea", "Cake"}, names(items))
			assert.Equal(t, "3.5", items[0].UnitPrice.String())
		})
	}
}

func TestParse_SkipsInvalidRows(t *testing.T) {
	raw := "name;price;quantity\n;10;1\nFree;0;1\nNegative;-3;1\nBad;abc;1\nBadQty;5;x\nShort\nGood;1 200,00;1\n"

	items, err := tabular.New().Parse(context.Background(), []byte(raw))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Good", items[0].Name)
	assert.Equal(t, "1200", items[0].UnitPrice.String())
}

func TestParse_MissingHeader(t *testing.T) {
	_, err := tabular.New().Parse(context.Background(), []byte("a;b\n1;2\n"))
	assert.ErrorIs(t, err, ports.ErrTableFormat)

	_, err = tabular.New().Parse(context.Background(), nil)
	assert.ErrorIs(t, err, ports.ErrTableFormat)
}

func TestParse_HeaderOnly(t *testing.T) {
	items, err := tabular.New().Parse(context.Background(), []byte("Товар;Цена\n"))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestParse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tabular.New().Parse(ctx, []byte("name;price\na;1\n"))
	assert.ErrorIs(t, err, context.Canceled)
}
