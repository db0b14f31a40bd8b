package runtime

import (
	"log/slog"
	"time"

	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/ports"
)

// DefaultCollaboratorTimeout bounds every call to an external collaborator.
const DefaultCollaboratorTimeout = 15 * time.Second

// EngineOption configures the Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithCodeDecoder enables photo scanning.
func WithCodeDecoder(d ports.CodeDecoder) EngineOption {
	return func(e *Engine) {
		e.decoder = d
	}
}

// WithReceiptLookup enables receipt lookup by fiscal code.
func WithReceiptLookup(l ports.ReceiptLookup) EngineOption {
	return func(e *Engine) {
		e.lookup = l
	}
}

// WithTableImporter enables table uploads.
func WithTableImporter(i ports.TableImporter) EngineOption {
	return func(e *Engine) {
		e.importer = i
	}
}

// WithInvoiceIssuer enables pay buttons on the final report.
func WithInvoiceIssuer(i ports.InvoiceIssuer) EngineOption {
	return func(e *Engine) {
		e.invoices = i
	}
}

// WithCurrency sets the currency code written on invoices.
func WithCurrency(code string) EngineOption {
	return func(e *Engine) {
		e.currency = code
	}
}

// WithCollaboratorTimeout overrides DefaultCollaboratorTimeout.
func WithCollaboratorTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithMaxInputSize overrides the input size limit.
func WithMaxInputSize(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxInput = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}
