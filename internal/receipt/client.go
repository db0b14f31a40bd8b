package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/splitbill/internal/logging"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// DefaultEndpoint is the receipt verification API.
const DefaultEndpoint = "https://proverkacheka.com/api/v1/check/get"

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("receipt service unavailable")

// statusFound is the service's success code.
const statusFound = 1

// Client looks receipts up over HTTP. It implements ports.ReceiptLookup.
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	logger   *slog.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.endpoint = u
		}
	}
}

// WithHTTPClient sets the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// WithBreaker overrides the default breaker settings (5 failures, 30s).
func WithBreaker(s BreakerSettings) Option {
	return func(c *Client) {
		c.breaker = newBreaker(s, c)
	}
}

// NewClient creates a Client authenticating with token.
func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		endpoint: DefaultEndpoint,
		token:    token,
		http:     &http.Client{Timeout: 20 * time.Second},
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = newBreaker(BreakerSettings{}, c)
	}
	return c
}

var _ ports.ReceiptLookup = (*Client)(nil)

func newBreaker(s BreakerSettings, c *Client) *gobreaker.CircuitBreaker {
	if s.ConsecutiveFailures == 0 {
		s.ConsecutiveFailures = 5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "receipt-lookup",
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("Circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
		// Unknown receipts and bad codes are answers, not outages.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ports.ErrReceiptNotFound) || errors.Is(err, ports.ErrInvalidCode) ||
				errors.Is(err, context.Canceled)
		},
	})
}

// Lookup validates raw and fetches the receipt it identifies.
func (c *Client) Lookup(ctx context.Context, raw string) ([]domain.LineItem, error) {
	code, err := ParseCode(raw)
	if err != nil {
		return nil, err
	}

	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, code)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return res.([]domain.LineItem), nil
}

// response.Data is a message string unless Code is statusFound.
type response struct {
	Code int             `json:"code"`
	Data json.RawMessage `json:"data"`
}

type found struct {
	JSON struct {
		Document struct {
			Receipt *struct {
				Items []item `json:"items"`
			} `json:"receipt"`
		} `json:"document"`
	} `json:"json"`
}

// item amounts are in minor currency units.
type item struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Sum      decimal.Decimal `json:"sum"`
}

func (c *Client) fetch(ctx context.Context, code Code) ([]domain.LineItem, error) {
	form := url.Values{"token": {c.token}, "qrraw": {code.Raw}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("receipt request: %w", err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "Receipt lookup", "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("receipt service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding receipt: %w", err)
	}
	if out.Code != statusFound {
		return nil, fmt.Errorf("%w (status code %d)", ports.ErrReceiptNotFound, out.Code)
	}
	var data found
	if err := json.Unmarshal(out.Data, &data); err != nil {
		return nil, fmt.Errorf("decoding receipt data: %w", err)
	}
	rec := data.JSON.Document.Receipt
	if rec == nil {
		return nil, fmt.Errorf("%w: response has no receipt", ports.ErrReceiptNotFound)
	}

	lines := make([]domain.LineItem, 0, len(rec.Items))
	for _, it := range rec.Items {
		qty := it.Quantity
		if qty.IsZero() {
			qty = decimal.NewFromInt(1)
		}
		lines = append(lines, domain.LineItem{
			Name:      strings.TrimSpace(it.Name),
			UnitPrice: it.Price.Shift(-2),
			Quantity:  qty,
		})
	}
	return lines, nil
}
