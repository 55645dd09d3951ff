// proposalcost CLI - labor cost estimation for proposals
//
// Usage:
//
//	proposalcost estimate --module dt_discovery --module dt_strategy --complexity M
//	proposalcost validate --input request.json
//	proposalcost catalog list
//	proposalcost rates publish --file rates.yaml --activate
//	proposalcost diff --left v1.json --right v2.json
//	proposalcost serve --port 8080
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/urfave/cli/v2"

	"proposal-cost/db/clickhouse"
	"proposal-cost/db/ingestion"
	"proposal-cost/decision/catalog"
	"proposal-cost/pkg/platform"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "proposalcost",
		Usage:   "Proposal labor cost estimation engine",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"PROPOSALCOST_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "catalog",
				Usage:   "Path to a catalog YAML file (built-in catalog when empty)",
				EnvVars: []string{"PROPOSALCOST_CATALOG"},
			},
			&cli.StringFlag{
				Name:    "rate-alias",
				Value:   ingestion.DefaultAlias,
				Usage:   "Rate card alias in the rate store",
				EnvVars: []string{"PROPOSALCOST_RATE_ALIAS"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-host",
				Value:   "localhost",
				Usage:   "ClickHouse host",
				EnvVars: []string{"CLICKHOUSE_HOST"},
			},
			&cli.IntFlag{
				Name:    "clickhouse-port",
				Value:   9000,
				Usage:   "ClickHouse native port",
				EnvVars: []string{"CLICKHOUSE_PORT"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-database",
				Value:   "proposalcost",
				Usage:   "ClickHouse database",
				EnvVars: []string{"CLICKHOUSE_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-user",
				Value:   "default",
				Usage:   "ClickHouse user",
				EnvVars: []string{"CLICKHOUSE_USER"},
			},
			&cli.StringFlag{
				Name:    "clickhouse-password",
				Value:   "",
				Usage:   "ClickHouse password",
				EnvVars: []string{"CLICKHOUSE_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "postgres-dsn",
				Usage:   "PostgreSQL DSN for proposal versions",
				EnvVars: []string{"PROPOSALCOST_POSTGRES_DSN", "DATABASE_URL"},
			},
		},

		Before: func(c *cli.Context) error {
			platform.InitLogger(c.String("log-level"))
			return nil
		},

		Commands: []*cli.Command{
			estimateCommand(),
			validateCommand(),
			catalogCommand(),
			ratesCommand(),
			diffCommand(),
			serveCommand(),
		},
	}
}

// =============================================================================
// SHARED SETUP
// =============================================================================

// loadSnapshot reads the catalog named by --catalog or falls back to the built-in one.
func loadSnapshot(c *cli.Context) (*catalog.Snapshot, error) {
	path := c.String("catalog")
	if path == "" {
		return catalog.Default(), nil
	}
	snap, err := catalog.LoadFile(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("catalog loaded", "path", path, "version", snap.Version, "hash", snap.Hash)
	return snap, nil
}

func openClickHouse(c *cli.Context) (*clickhouse.Store, error) {
	store, err := clickhouse.NewStore(&clickhouse.Config{
		Host:     c.String("clickhouse-host"),
		Port:     c.Int("clickhouse-port"),
		Database: c.String("clickhouse-database"),
		Username: c.String("clickhouse-user"),
		Password: c.String("clickhouse-password"),
	})
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(c.Context); err != nil {
		store.Close()
		return nil, err
	}
	return store, nil
}

// applyStoredRates overlays the active persisted rate card on the holder's snapshot.
// The caller closes the returned store.
func applyStoredRates(ctx context.Context, c *cli.Context, holder *catalog.Holder) (*clickhouse.Store, *ingestion.Publisher, error) {
	store, err := openClickHouse(c)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	publisher := ingestion.NewPublisher(store)
	applied, err := publisher.Apply(ctx, c.String("rate-alias"), holder)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	if applied == nil {
		slog.Warn("no active rate card in store, using catalog rates", "alias", c.String("rate-alias"))
	} else {
		slog.Info("rate card applied", "rate_snapshot_id", applied.ID.String(), "version", applied.Version)
	}
	return store, publisher, nil
}
