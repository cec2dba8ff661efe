package main

import (
	"context"

	"github.com/eshaffer321/ynab-mcp-go/internal/config"
	"github.com/eshaffer321/ynab-mcp-go/internal/deltasync"
	"github.com/eshaffer321/ynab-mcp-go/internal/knowledge"
	"github.com/eshaffer321/ynab-mcp-go/internal/logging"
	internalTypes "github.com/eshaffer321/ynab-mcp-go/internal/types"
	"github.com/eshaffer321/ynab-mcp-go/pkg/ynab"
	"github.com/getsentry/sentry-go"
	"golang.org/x/time/rate"
)

// app wires the client, the knowledge store and the syncer together
type app struct {
	logger *logging.Logger
	client *ynab.Client
	store  *knowledge.Store
	syncer *deltasync.Syncer
}

func newApp(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*app, error) {
	opts := &ynab.ClientOptions{
		BaseURL: cfg.YNAB.BaseURL,
		Timeout: cfg.YNAB.Timeout,
		Token:   cfg.YNAB.APIToken,
		Logger:  logger.WithComponent("ynab"),
		RetryConfig: &internalTypes.RetryConfig{
			MaxRetries: cfg.YNAB.MaxRetries,
			RetryWait:  cfg.YNAB.RetryWaitMin,
			MaxWait:    cfg.YNAB.RetryWaitMax,
		},
	}

	if cfg.YNAB.RateLimit > 0 {
		// the API budget is per rolling hour
		opts.RateLimiter = rate.NewLimiter(rate.Limit(float64(cfg.YNAB.RateLimit)/3600), cfg.YNAB.RateLimit)
	}

	if cfg.Sentry.DSN != "" {
		opts.SentryDSN = cfg.Sentry.DSN
		opts.SentryOptions = &sentry.ClientOptions{
			Environment: cfg.Sentry.Environment,
			Release:     serverName + "@" + serverVersion,
		}
	}

	client, err := ynab.NewClient(opts)
	if err != nil {
		return nil, err
	}

	store, err := knowledge.Open(ctx, knowledge.Options{
		Dir:             cfg.Knowledge.Dir,
		DefaultBudgetID: cfg.YNAB.BudgetID,
		Logger:          logger.WithComponent("knowledge"),
	})
	if err != nil {
		client.Close()
		return nil, err
	}

	return &app{
		logger: logger,
		client: client,
		store:  store,
		syncer: deltasync.New(client, store, deltasync.Options{Logger: logger.WithComponent("deltasync")}),
	}, nil
}

// Close stops persistence and flushes error reports
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close knowledge store", "error", err)
	}
	a.client.Close()
}
