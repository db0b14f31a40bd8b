package report

import (
	"fmt"
	"strings"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
)

// ChartTitle captions the debt distribution chart.
const ChartTitle = "Expense distribution"

// Slice is one wedge of the chart.
type Slice struct {
	Label   string          `json:"label"`
	Amount  decimal.Decimal `json:"amount"`
	Percent decimal.Decimal `json:"percent"`
}

// Chart is the distribution of debts between participants.
type Chart struct {
	Title  string  `json:"title"`
	Slices []Slice `json:"slices"`
}

// NewChart builds the chart data for s. It returns nil when there are no debts.
func NewChart(s domain.Settlement) *Chart {
	if len(s.Debts) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, d := range s.Debts {
		sum = sum.Add(d.Amount)
	}

	c := &Chart{Title: ChartTitle}
	hundred := decimal.NewFromInt(100)
	for _, d := range s.Debts {
		c.Slices = append(c.Slices, Slice{
			Label:   d.Participant,
			Amount:  d.Amount,
			Percent: d.Amount.Mul(hundred).Div(sum),
		})
	}
	return c
}

// Mermaid produces a Mermaid pie chart document.
func (c *Chart) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("pie showData\n")
	sb.WriteString(fmt.Sprintf("    title %s\n", c.Title))
	for _, sl := range c.Slices {
		sb.WriteString(fmt.Sprintf("    \"%s\" : %s\n", sanitizeLabel(sl.Label), domain.FormatMoney(sl.Amount)))
	}
	return sb.String()
}

// Legend renders one "label: amount (percent%)" line per slice.
func (c *Chart) Legend() []string {
	lines := make([]string, 0, len(c.Slices))
	for _, sl := range c.Slices {
		lines = append(lines, fmt.Sprintf("%s: %s (%s%%)", sl.Label, domain.FormatMoney(sl.Amount), sl.Percent.StringFixed(1)))
	}
	return lines
}

func sanitizeLabel(label string) string {
	s := strings.ReplaceAll(label, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
