package report

import (
	"fmt"
	"strings"

	"github.com/aretw0/splitbill/pkg/domain"
)

const (
	// MaxNameLength is the rune limit for item names in the verification listing.
	MaxNameLength = 50

	ExportFileName = "receipt_details.csv"
	ChartFileName  = "expense_chart.mmd"
)

// Report bundles every artifact derived from one settlement.
type Report struct {
	Settlement   domain.Settlement
	Narrative    []string
	Verification []string
	Export       []byte
	// Chart is nil when nobody owes anything.
	Chart *Chart
}

// Build settles the ledger and renders all artifacts.
func Build(participants []string, l domain.Ledger) (*Report, error) {
	s, err := l.Settle(participants)
	if err != nil {
		return nil, fmt.Errorf("settle: %w", err)
	}

	export, err := Export(l, s)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}

	return &Report{
		Settlement:   s,
		Narrative:    s.Narrative(),
		Verification: Verification(participants, l),
		Export:       export,
		Chart:        NewChart(s),
	}, nil
}

// Text joins the narrative and the verification listing into one message body.
func (r *Report) Text() string {
	var sb strings.Builder
	sb.WriteString(strings.Join(r.Narrative, "\n"))
	sb.WriteString("\n\n")
	sb.WriteString(strings.Join(r.Verification, "\n"))
	return sb.String()
}

// Artifacts returns the export, plus the chart when there is one.
func (r *Report) Artifacts() []domain.Artifact {
	out := []domain.Artifact{{
		Kind: domain.ArtifactExport,
		Name: ExportFileName,
		MIME: "text/csv",
		Data: r.Export,
	}}
	if r.Chart != nil {
		out = append(out, domain.Artifact{
			Kind: domain.ArtifactChart,
			Name: ChartFileName,
			MIME: "text/plain",
			Data: []byte(r.Chart.Mermaid()),
		})
	}
	return out
}

// Verification lists every item grouped by kind, one line per item.
func Verification(participants []string, l domain.Ledger) []string {
	lines := []string{"--- Verification list ---"}

	var shared, individual []domain.Item
	for _, it := range l.Items {
		switch it.Kind {
		case domain.KindShared:
			shared = append(shared, it)
		case domain.KindIndividual:
			individual = append(individual, it)
		}
	}

	if len(shared) > 0 {
		lines = append(lines, "Shared items (split across all participants):")
		for _, it := range shared {
			lines = append(lines, fmt.Sprintf("- %s: %s x %s (all participants: %s)",
				Truncate(it.Name, MaxNameLength), domain.FormatMoney(it.UnitPrice), it.Quantity.String(),
				strings.Join(participants, ", ")))
		}
	}
	if len(individual) > 0 {
		lines = append(lines, "Individual items (split across assignees):")
		for _, it := range individual {
			lines = append(lines, fmt.Sprintf("- %s: %s x %s (participants: %s)",
				Truncate(it.Name, MaxNameLength), domain.FormatMoney(it.UnitPrice), it.Quantity.String(),
				strings.Join(it.Assignees, ", ")))
		}
	}
	if len(shared) == 0 && len(individual) == 0 {
		lines = append(lines, "No items to verify.")
	}
	return lines
}

// Truncate cuts s to max runes and appends an ellipsis when it was longer.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}
