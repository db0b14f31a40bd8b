package ports

import (
	"context"
	"errors"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/shopspring/decimal"
)

var (
	// ErrCodeNotFound is returned by a CodeDecoder when the image holds no readable code.
	ErrCodeNotFound = errors.New("no code found in image")
	// ErrReceiptNotFound is returned by a ReceiptLookup when the service knows no such receipt.
	ErrReceiptNotFound = errors.New("receipt not found")
	// ErrInvalidCode is returned when a raw code lacks one of the required fields.
	ErrInvalidCode = errors.New("code is missing required fields")
	// ErrTableFormat is returned by a TableImporter when no usable header is present.
	ErrTableFormat = errors.New("table has no name and price columns")
)

// CodeDecoder extracts the raw text of a QR code from an image.
type CodeDecoder interface {
	Decode(ctx context.Context, image []byte) (string, error)
}

// ReceiptLookup resolves a raw fiscal code into line items.
// Prices are returned in major currency units.
type ReceiptLookup interface {
	Lookup(ctx context.Context, raw string) ([]domain.LineItem, error)
}

// TableImporter parses tabular text into line items.
type TableImporter interface {
	Parse(ctx context.Context, raw []byte) ([]domain.LineItem, error)
}

// Invoice is a request to bill Payee on behalf of Payer.
type Invoice struct {
	Payer    string          `json:"payer"`
	Payee    string          `json:"payee"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// InvoiceIssuer hands an invoice to a payment provider.
type InvoiceIssuer interface {
	Issue(ctx context.Context, inv Invoice) error
}
