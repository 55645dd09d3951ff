package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"proposal-cost/api"
	"proposal-cost/db/postgres"
	"proposal-cost/decision/catalog"
	"proposal-cost/pkg/jsondiff"
)

// =============================================================================
// SERVE COMMAND (API SERVER)
// =============================================================================

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the estimation API server",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Value:   8080,
				Usage:   "API server port",
				EnvVars: []string{"PROPOSALCOST_PORT"},
			},
			&cli.StringFlag{
				Name:    "cors-origins",
				Value:   "*",
				Usage:   "Comma-separated list of allowed CORS origins",
				EnvVars: []string{"PROPOSALCOST_CORS_ORIGINS"},
			},
			&cli.BoolFlag{
				Name:    "rate-store",
				Usage:   "Serve the active rate card from ClickHouse",
				EnvVars: []string{"PROPOSALCOST_RATE_STORE"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	snap, err := loadSnapshot(c)
	if err != nil {
		return err
	}
	holder := catalog.NewHolder(snap)

	corsOrigins := strings.Split(c.String("cors-origins"), ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}

	cfg := api.DefaultConfig()
	cfg.Port = c.Int("port")
	cfg.CORSOrigins = corsOrigins
	cfg.RateAlias = c.String("rate-alias")
	server := api.NewServer(holder, cfg).WithLogger(slog.Default())

	if c.Bool("rate-store") {
		store, publisher, err := applyStoredRates(c.Context, c, holder)
		if err != nil {
			return err
		}
		defer store.Close()
		server.WithRateStore(store, publisher)
	}

	if dsn := c.String("postgres-dsn"); dsn != "" {
		versions, err := postgres.Open(dsn)
		if err != nil {
			return err
		}
		defer versions.Close()
		if err := versions.Migrate(c.Context); err != nil {
			return err
		}
		server.WithVersionStore(versions)
	}

	return server.StartWithGracefulShutdown()
}

// =============================================================================
// DIFF COMMAND
// =============================================================================

func diffCommand() *cli.Command {
	return &cli.Command{
		Name:  "diff",
		Usage: "Diff two estimate JSON files, or two stored versions of a proposal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "left",
				Usage: "Left JSON file",
			},
			&cli.StringFlag{
				Name:  "right",
				Usage: "Right JSON file",
			},
			&cli.StringFlag{
				Name:  "proposal",
				Usage: "Proposal id (reads versions from --postgres-dsn)",
			},
			&cli.IntFlag{
				Name:  "from",
				Usage: "Left version number",
			},
			&cli.IntFlag{
				Name:  "to",
				Usage: "Right version number",
			},
		},
		Action: runDiff,
	}
}

func runDiff(c *cli.Context) error {
	var left, right []byte

	switch {
	case c.String("proposal") != "":
		id, err := uuid.Parse(c.String("proposal"))
		if err != nil {
			return fmt.Errorf("invalid proposal id: %w", err)
		}
		dsn := c.String("postgres-dsn")
		if dsn == "" {
			return fmt.Errorf("--postgres-dsn is required with --proposal")
		}
		store, err := postgres.Open(dsn)
		if err != nil {
			return err
		}
		defer store.Close()

		from, err := store.GetVersion(c.Context, id, c.Int("from"))
		if err != nil {
			return fmt.Errorf("version %d: %w", c.Int("from"), err)
		}
		to, err := store.GetVersion(c.Context, id, c.Int("to"))
		if err != nil {
			return fmt.Errorf("version %d: %w", c.Int("to"), err)
		}
		left, right = from.Result, to.Result

	case c.String("left") != "" && c.String("right") != "":
		var err error
		if left, err = os.ReadFile(c.String("left")); err != nil {
			return err
		}
		if right, err = os.ReadFile(c.String("right")); err != nil {
			return err
		}

	default:
		return fmt.Errorf("either --left and --right, or --proposal with --from and --to, are required")
	}

	changes, err := jsondiff.Diff(left, right)
	if err != nil {
		return err
	}
	if len(changes) == 0 {
		fmt.Fprintln(c.App.Writer, "No differences")
		return nil
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANGE\tPATH\tLEFT\tRIGHT")
	for _, ch := range changes {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", ch.Change, ch.Path, display(ch.Left), display(ch.Right))
	}
	return tw.Flush()
}

func display(v interface{}) string {
	if v == nil {
		return "-"
	}
	return truncate(fmt.Sprint(v), 40)
}
