package report

import (
	"bytes"
	"encoding/csv"
	"strings"

	"github.com/aretw0/splitbill/pkg/domain"
)

// Delimiter separates export fields.
const Delimiter = ';'

// ExportHeader is the first row of the export.
var ExportHeader = []string{"Kind", "Item", "Price", "Quantity", "Participants"}

// Export renders the ledger as delimited text: a header, one row per item,
// a blank separator row, then the narrative lines.
func Export(l domain.Ledger, s domain.Settlement) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = Delimiter

	if err := w.Write(ExportHeader); err != nil {
		return nil, err
	}
	for _, it := range l.Items {
		row := []string{
			it.Kind.Label(),
			it.Name,
			domain.FormatMoney(it.UnitPrice),
			it.Quantity.String(),
			strings.Join(it.Assignees, ", "),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	if err := w.Write(nil); err != nil {
		return nil, err
	}
	for _, line := range s.Narrative() {
		if err := w.Write([]string{line}); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
