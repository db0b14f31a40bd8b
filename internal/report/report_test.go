package report_test

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/aretw0/splitbill/internal/report"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenario() ([]string, domain.Ledger) {
	participants := []string{"A", "B", "C"}
	l := domain.Ledger{Payer: "A"}
	l.Append(domain.NewSharedItem(domain.LineItem{
		Name: "bread", UnitPrice: decimal.RequireFromString("90.00"), Quantity: decimal.NewFromInt(1),
	}, participants))
	coffee := domain.NewIndividualItem(domain.LineItem{
		Name: "coffee; large", UnitPrice: decimal.RequireFromString("60.00"), Quantity: decimal.NewFromInt(1),
	})
	coffee.Assignees = []string{"B", "C"}
	l.Append(coffee)
	return participants, l
}

func TestBuild(t *testing.T) {
	participants, l := scenario()

	r, err := report.Build(participants, l)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Total: 150.00",
		"Paid by: A",
		"B owes 60.00 to A",
		"C owes 60.00 to A",
	}, r.Narrative)
	require.NotNil(t, r.Chart)
	assert.Len(t, r.Artifacts(), 2)
	assert.Contains(t, r.Text(), "Shared items (split across all participants):")
}

func TestBuild_NoDebtsHasNoChart(t *testing.T) {
	participants := []string{"A"}
	l := domain.Ledger{Payer: "A"}
	l.Append(domain.NewSharedItem(domain.LineItem{Name: "x", UnitPrice: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1)}, participants))

	r, err := report.Build(participants, l)
	require.NoError(t, err)
	assert.Nil(t, r.Chart)
	require.Len(t, r.Artifacts(), 1)
	assert.Equal(t, domain.ArtifactExport, r.Artifacts()[0].Kind)
}

func TestVerification(t *testing.T) {
	participants, l := scenario()
	lines := report.Verification(participants, l)

	assert.Equal(t, []string{
		"--- Verification list ---",
		"Shared items (split across all participants):",
		"- bread: 90.00 x 1 (all participants: A, B, C)",
		"Individual items (split across assignees):",
		"- coffee; large: 60.00 x 1 (participants: B, C)",
	}, lines)
}

func TestVerification_Empty(t *testing.T) {
	lines := report.Verification([]string{"A"}, domain.Ledger{Payer: "A"})
	assert.Equal(t, "No items to verify.", lines[len(lines)-1])
}

func TestVerification_TruncatesLongNames(t *testing.T) {
	participants := []string{"A"}
	long := strings.Repeat("я", 60)
	l := domain.Ledger{Payer: "A"}
	l.Append(domain.NewSharedItem(domain.LineItem{Name: long, UnitPrice: decimal.NewFromInt(1), Quantity: decimal.NewFromInt(1)}, participants))

	lines := report.Verification(participants, l)
	assert.Contains(t, lines[2], strings.Repeat("я", 50)+"...:")
	assert.NotContains(t, lines[2], strings.Repeat("я", 51))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", report.Truncate("abc", 3))
	assert.Equal(t, "ab...", report.Truncate("abc", 2))
}

func TestExport_Reparses(t *testing.T) {
	participants, l := scenario()
	r, err := report.Build(participants, l)
	require.NoError(t, err)

	reader := csv.NewReader(bytes.NewReader(r.Export))
	reader.Comma = report.Delimiter
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	require.NoError(t, err)

	// The blank separator row is skipped by the reader.
	require.Len(t, records, 1+2+4)
	assert.Equal(t, report.ExportHeader, records[0])
	assert.Equal(t, []string{"Shared", "bread", "90.00", "1", "A, B, C"}, records[1])
	assert.Equal(t, []string{"Individual", "coffee; large", "60.00", "1", "B, C"}, records[2])
	assert.Equal(t, []string{"Total: 150.00"}, records[3])
	assert.Equal(t, []string{"C owes 60.00 to A"}, records[6])

	// The separator row is really there.
	assert.Contains(t, string(r.Export), "\n\nTotal: 150.00\n")
}

func TestChart(t *testing.T) {
	participants, l := scenario()
	s, err := l.Settle(participants)
	require.NoError(t, err)

	c := report.NewChart(s)
	require.NotNil(t, c)
	require.Len(t, c.Slices, 2)
	assert.Equal(t, "50.0", c.Slices[0].Percent.StringFixed(1))

	doc := c.Mermaid()
	assert.True(t, strings.HasPrefix(doc, "pie showData\n"))
	assert.Contains(t, doc, "title Expense distribution")
	assert.Contains(t, doc, "\"B\" : 60.00")
	assert.Equal(t, []string{"B: 60.00 (50.0%)", "C: 60.00 (50.0%)"}, c.Legend())
}
