package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gauguri/NobelPrediction/internal/config"
	"github.com/gauguri/NobelPrediction/internal/explorer"
	"github.com/gauguri/NobelPrediction/internal/model"
	"github.com/gauguri/NobelPrediction/internal/resilience"
	"github.com/gauguri/NobelPrediction/internal/store"
	"github.com/gauguri/NobelPrediction/pkg/nobelapi"
)

func initClient(c *config.Config) nobelapi.Client {
	opts := []nobelapi.Option{
		nobelapi.WithBaseURL(c.API.BaseURL),
		nobelapi.WithReportsURL(c.API.ReportsURL),
		nobelapi.WithRoutes(nobelapi.Routes(c.API.Routes)),
		nobelapi.WithTimeout(c.API.Timeout()),
		nobelapi.WithRateLimit(c.API.RatePerSec, c.API.Burst),
	}
	if c.API.UserAgent != "" {
		opts = append(opts, nobelapi.WithUserAgent(c.API.UserAgent))
	}
	return nobelapi.NewClient(opts...)
}

func initCatalog(c *config.Config) (*model.Catalog, error) {
	if c.Catalog.Path == "" {
		return model.DefaultCatalog(), nil
	}
	return model.LoadCatalog(c.Catalog.Path)
}

// explorerFactory builds explorers that share one client and catalog.
func explorerFactory(c *config.Config, client nobelapi.Client, catalog *model.Catalog) func() *explorer.Explorer {
	return func() *explorer.Explorer {
		return explorer.New(client,
			explorer.WithCatalog(catalog),
			explorer.WithRetry(c.Explorer.RetryPolicy()),
			explorer.WithInitialFilter(c.Explorer.DefaultFilter()),
			explorer.WithLogger(zap.L().Named("explorer")),
		)
	}
}

func initExplorer(c *config.Config) (*explorer.Explorer, nobelapi.Client, error) {
	catalog, err := initCatalog(c)
	if err != nil {
		return nil, nil, err
	}
	client := initClient(c)
	return explorerFactory(c, client, catalog)(), client, nil
}

func initStore(ctx context.Context, c *config.Config) (store.Store, error) {
	return store.Open(ctx, c.Store.Driver, c.Store.DatabaseURL)
}

// saveSnapshot writes snap, retrying transient store failures under p.
func saveSnapshot(ctx context.Context, s store.Store, snap *model.Snapshot, p resilience.Policy) error {
	p.OnRetry = resilience.RetryLogger(zap.L().Named("store"), "save_snapshot")
	return resilience.Do(ctx, p, func(ctx context.Context) error {
		return s.SaveSnapshot(ctx, snap)
	})
}

// filterFlags registers --field and --horizon on cmd.
func filterFlags(cmd *cobra.Command) {
	cmd.Flags().String("field", "", "prize field (default from config)")
	cmd.Flags().String("horizon", "", "prediction horizon: one_year or three_year (default from config)")
}

// filterFromFlags returns the requested filter with blanks filled from the
// explorer's current filter.
func filterFromFlags(cmd *cobra.Command, current model.Filter) model.Filter {
	f := current
	if v, _ := cmd.Flags().GetString("field"); v != "" {
		f.Field = v
	}
	if v, _ := cmd.Flags().GetString("horizon"); v != "" {
		f.Horizon = v
	}
	return f
}
