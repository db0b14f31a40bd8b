package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/splitbill"
	"github.com/aretw0/splitbill/internal/config"
	"github.com/aretw0/splitbill/internal/invoice"
	"github.com/aretw0/splitbill/internal/receipt"
	"github.com/aretw0/splitbill/internal/tabular"
	"github.com/aretw0/splitbill/pkg/adapters/memory"
	redisAdapter "github.com/aretw0/splitbill/pkg/adapters/redis"
	"github.com/aretw0/splitbill/pkg/domain"
	"github.com/aretw0/splitbill/pkg/observability"
	"github.com/aretw0/splitbill/pkg/persistence/middleware"
	"github.com/aretw0/splitbill/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
)

// buildEngine wires the engine and its collaborators from cfg.
// Metrics are registered on reg when it is not nil. The returned func releases connections.
func buildEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*splitbill.Engine, func(), error) {
	hooks := []domain.LifecycleHooks{observability.LogHooks(logger)}
	if reg != nil {
		m, err := observability.NewMetrics(reg)
		if err != nil {
			return nil, nil, fmt.Errorf("metrics: %w", err)
		}
		hooks = append(hooks, m.Hooks())
	}

	opts := []splitbill.Option{
		splitbill.WithLogger(logger),
		splitbill.WithLifecycleHooks(observability.Chain(hooks...)),
		splitbill.WithIdleTimeout(cfg.Session.IdleTimeout),
		splitbill.WithLockTTL(cfg.Session.LockTTL),
		splitbill.WithCollaboratorTimeout(cfg.Collaborators.Timeout),
		splitbill.WithMaxInputSize(cfg.MaxInputSize),
		splitbill.WithCurrency(cfg.Invoice.Currency),
		splitbill.WithTableImporter(tabular.New(tabular.WithLogger(logger))),
	}

	if cfg.Receipt.Token != "" {
		ropts := []receipt.Option{
			receipt.WithLogger(logger),
			receipt.WithBreaker(receipt.BreakerSettings{
				ConsecutiveFailures: cfg.Receipt.BreakerFailures,
				OpenTimeout:         cfg.Receipt.BreakerTimeout,
			}),
		}
		if cfg.Receipt.Endpoint != "" {
			ropts = append(ropts, receipt.WithEndpoint(cfg.Receipt.Endpoint))
		}
		opts = append(opts,
			splitbill.WithCodeDecoder(receipt.NewDecoder()),
			splitbill.WithReceiptLookup(receipt.NewClient(cfg.Receipt.Token, ropts...)),
		)
	}

	switch {
	case cfg.Invoice.WebhookURL != "":
		opts = append(opts, splitbill.WithInvoiceIssuer(invoice.NewWebhook(cfg.Invoice.WebhookURL,
			invoice.WithToken(cfg.Invoice.Token),
			invoice.WithLogger(logger),
		)))
	case cfg.Invoice.LogOnly:
		opts = append(opts, splitbill.WithInvoiceIssuer(invoice.LogIssuer{Logger: logger}))
	}

	var store ports.SessionStore = memory.NewStore()
	cleanup := func() {}
	if cfg.Redis.URL != "" {
		ropts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		client := goredis.NewClient(ropts)
		shared := redisAdapter.NewFromClient(client,
			redisAdapter.WithPrefix(cfg.Redis.Prefix),
			redisAdapter.WithTTL(cfg.Session.IdleTimeout),
		)
		if err := shared.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		store = shared
		opts = append(opts, splitbill.WithLocker(redisAdapter.NewLocker(client, cfg.Redis.Prefix)))
		cleanup = func() { _ = client.Close() }
		logger.Info("Using Redis session store", "prefix", cfg.Redis.Prefix)
	}

	if cfg.Session.EncryptionKey != "" {
		keys, err := middleware.ParseKeys(cfg.Session.EncryptionKey, cfg.Session.PreviousKeys)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		enc, err := middleware.NewEncryptionMiddleware(keys)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		store = middleware.Wrap(store, enc)
		logger.Info("Session encryption enabled", "previous_keys", len(keys.FallbackKeys))
	}
	opts = append(opts, splitbill.WithStore(store))

	return splitbill.New(opts...), cleanup, nil
}
