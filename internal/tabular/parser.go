// Package tabular imports line items from a delimited text table.
package tabular

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/shopspring/decimal"
)

// Column header aliases, compared case-insensitively.
var (
	NameAliases     = []string{"товар", "name", "item", "product"}
	PriceAliases    = []string{"цена", "price"}
	QuantityAliases = []string{"количество", "quantity", "qty"}
)

// Delimiters are tried in this order when looking for the header.
var Delimiters = []rune{';', ',', '\t'}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Importer parses uploaded tables. It implements ports.TableImporter.
type Importer struct {
	logger *slog.Logger
}

// Option configures the Importer.
type Option func(*Importer)

// WithLogger sets the logger used to report skipped rows.
func WithLogger(l *slog.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	i := &Importer{logger: logging.NewNop()}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

var _ ports.TableImporter = (*Importer)(nil)

type columns struct {
	name, price, quantity int
}

// Parse reads every valid row of raw.
// Lines before the header are ignored. Rows with an empty name, a non-positive price or
// an unreadable number are skipped. A missing header yields ports.ErrTableFormat.
func (i *Importer) Parse(ctx context.Context, raw []byte) ([]domain.LineItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw = bytes.TrimPrefix(raw, utf8BOM)

	lines := strings.Split(strings.ReplaceAll(string(raw), "\r\n", "\n"), "\n")
	start, delim, cols, ok := findHeader(lines)
	if !ok {
		return nil, fmt.Errorf("%w: no header with name and price columns", ports.ErrTableFormat)
	}

	r := csv.NewReader(strings.NewReader(strings.Join(lines[start+1:], "\n")))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var items []domain.LineItem
	row := start + 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				i.logger.DebugContext(ctx, "Skipping malformed row", "row", row, "err", err)
				continue
			}
			return nil, fmt.Errorf("reading table: %w", err)
		}

		li, err := cols.lineItem(rec)
		if err != nil {
			i.logger.DebugContext(ctx, "Skipping invalid row", "row", row, "err", err)
			continue
		}
		items = append(items, li)
	}
	return items, nil
}

// findHeader returns the index of the first line that names both a name and a price column.
func findHeader(lines []string) (int, rune, columns, bool) {
	for idx, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		for _, d := range Delimiters {
			if d != ';' && !strings.ContainsRune(line, d) {
				continue
			}
			r := csv.NewReader(strings.NewReader(line))
			r.Comma = d
			r.LazyQuotes = true
			rec, err := r.Read()
			if err != nil {
				continue
			}
			if cols, ok := matchColumns(rec); ok {
				return idx, d, cols, true
			}
		}
	}
	return 0, 0, columns{}, false
}

func matchColumns(header []string) (columns, bool) {
	cols := columns{name: -1, price: -1, quantity: -1}
	for i, cell := range header {
		key := strings.ToLower(strings.Trim(strings.TrimSpace(cell), `"`))
		switch {
		case cols.name < 0 && oneOf(key, NameAliases):
			cols.name = i
		case cols.price < 0 && oneOf(key, PriceAliases):
			cols.price = i
		case cols.quantity < 0 && oneOf(key, QuantityAliases):
			cols.quantity = i
		}
	}
	return cols, cols.name >= 0 && cols.price >= 0
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}

func (c columns) lineItem(rec []string) (domain.LineItem, error) {
	if c.name >= len(rec) || c.price >= len(rec) {
		return domain.LineItem{}, fmt.Errorf("row has %d fields", len(rec))
	}
	name := strings.TrimSpace(strings.Trim(strings.TrimSpace(rec[c.name]), `"`))
	if name == "" {
		return domain.LineItem{}, errors.New("empty name")
	}
	price, err := domain.ParseAmount(rec[c.price])
	if err != nil {
		return domain.LineItem{}, err
	}

	qty := decimal.NewFromInt(1)
	if c.quantity >= 0 && c.quantity < len(rec) && strings.TrimSpace(rec[c.quantity]) != "" {
		if qty, err = domain.ParseAmount(rec[c.quantity]); err != nil {
			return domain.LineItem{}, err
		}
	}
	return domain.LineItem{Name: name, UnitPrice: price, Quantity: qty}, nil
}
