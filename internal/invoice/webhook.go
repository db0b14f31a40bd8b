// Package invoice delivers payment requests for settled debts.
package invoice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
)

// Payload is the JSON body posted to the webhook.
type Payload struct {
	Payer    string `json:"payer"`
	Payee    string `json:"payee"`
	Amount   string `json:"amount"`
	Minor    int64  `json:"amount_minor"`
	Currency string `json:"currency"`
	Title    string `json:"title"`
}

// NewPayload renders inv for the wire. Minor is the amount in minor units, as payment
// providers expect.
func NewPayload(inv ports.Invoice) Payload {
	return Payload{
		Payer:    inv.Payer,
		Payee:    inv.Payee,
		Amount:   domain.FormatMoney(inv.Amount),
		Minor:    inv.Amount.Shift(2).Round(0).IntPart(),
		Currency: inv.Currency,
		Title:    fmt.Sprintf("Debt of %s to %s", inv.Payee, inv.Payer),
	}
}

// Webhook posts invoices to a payment provider endpoint. It implements ports.InvoiceIssuer.
type Webhook struct {
	url    string
	token  string
	client *http.Client
	logger *slog.Logger
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithToken sends token as a bearer credential.
func WithToken(token string) WebhookOption {
	return func(w *Webhook) { w.token = token }
}

// WithHTTPClient sets the transport.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) {
		if c != nil {
			w.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		if l != nil {
			w.logger = l
		}
	}
}

// NewWebhook creates a Webhook posting to url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

var _ ports.InvoiceIssuer = (*Webhook)(nil)

// Issue posts inv. Any non-2xx answer is an error.
func (w *Webhook) Issue(ctx context.Context, inv ports.Invoice) error {
	body, err := json.Marshal(NewPayload(inv))
	if err != nil {
		return fmt.Errorf("encoding invoice: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("invoice request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("invoice endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	w.logger.InfoContext(ctx, "Invoice issued", "payer", inv.Payer, "payee", inv.Payee, "amount", domain.FormatMoney(inv.Amount))
	return nil
}

// LogIssuer only records invoices in the log. It stands in for a provider in local runs.
type LogIssuer struct {
	Logger *slog.Logger
}

var _ ports.InvoiceIssuer = LogIssuer{}

// Issue logs inv and succeeds.
func (l LogIssuer) Issue(ctx context.Context, inv ports.Invoice) error {
	logger := l.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	p := NewPayload(inv)
	logger.InfoContext(ctx, "Invoice", "title", p.Title, "amount", p.Amount, "currency", p.Currency)
	return nil
}
