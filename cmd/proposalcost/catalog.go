package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"proposal-cost/db/ingestion"
	"proposal-cost/decision/catalog"
)

// =============================================================================
// CATALOG COMMAND
// =============================================================================

func catalogCommand() *cli.Command {
	return &cli.Command{
		Name:  "catalog",
		Usage: "Inspect the module catalog",
		Subcommands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List modules with base hours and prerequisites",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "focus-area",
						Usage: "Only list modules in this focus area",
					},
				},
				Action: func(c *cli.Context) error {
					snap, err := loadSnapshot(c)
					if err != nil {
						return err
					}

					tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tNAME\tFOCUS\tBASE HOURS\tREQUIRES")
					for _, m := range snap.Catalog.Modules() {
						if f := c.String("focus-area"); f != "" && m.FocusArea != f {
							continue
						}
						total := 0.0
						for _, h := range m.BaseHoursByRole {
							total += h
						}
						fmt.Fprintf(tw, "%s\t%s\t%s\t%.0f\t%s\n", m.ID, m.Name, m.FocusArea, total, strings.Join(m.Prerequisites, ","))
					}
					return tw.Flush()
				},
			},
			{
				Name:  "roles",
				Usage: "List roles and base rates",
				Action: func(c *cli.Context) error {
					snap, err := loadSnapshot(c)
					if err != nil {
						return err
					}
					return printRoles(c, snap.Rates.Roles())
				},
			},
			{
				Name:  "export",
				Usage: "Write the catalog as YAML (a starting point for --catalog)",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "out",
						Aliases:  []string{"o"},
						Usage:    "Destination file",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					snap, err := loadSnapshot(c)
					if err != nil {
						return err
					}
					if err := catalog.SaveFile(snap, c.String("out")); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "📦 Wrote catalog %s (%d modules, %d roles) to %s\n",
						snap.Version, snap.Catalog.Len(), snap.Rates.Len(), c.String("out"))
					return nil
				},
			},
		},
	}
}

func printRoles(c *cli.Context, roles []catalog.Role) error {
	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tRATE")
	for _, r := range roles {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\n", r.ID, r.Name, r.BaseRate)
	}
	return tw.Flush()
}

// =============================================================================
// RATES COMMAND
// =============================================================================

func ratesCommand() *cli.Command {
	return &cli.Command{
		Name:  "rates",
		Usage: "Manage rate cards in the ClickHouse rate store",
		Subcommands: []*cli.Command{
			{
				Name:  "publish",
				Usage: "Publish a rate card as a new snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "file",
						Usage: "Catalog YAML whose roles are published (the --catalog roles when empty)",
					},
					&cli.StringFlag{
						Name:  "label",
						Usage: "Version label for the snapshot (catalog version when empty)",
					},
					&cli.BoolFlag{
						Name:  "activate",
						Usage: "Activate the snapshot after publishing",
					},
				},
				Action: runRatesPublish,
			},
			{
				Name:  "activate",
				Usage: "Activate a published snapshot",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Snapshot id",
						Required: true,
					},
				},
				Action: func(c *cli.Context) error {
					id, err := uuid.Parse(c.String("id"))
					if err != nil {
						return fmt.Errorf("invalid snapshot id: %w", err)
					}
					store, err := openClickHouse(c)
					if err != nil {
						return fmt.Errorf("failed to connect to ClickHouse: %w", err)
					}
					defer store.Close()

					if err := store.ActivateSnapshot(c.Context, id); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "✅ Activated rate snapshot %s\n", id)
					return nil
				},
			},
			{
				Name:  "list",
				Usage: "List rate snapshots for the alias",
				Action: func(c *cli.Context) error {
					store, err := openClickHouse(c)
					if err != nil {
						return fmt.Errorf("failed to connect to ClickHouse: %w", err)
					}
					defer store.Close()

					snapshots, err := store.ListSnapshots(c.Context, c.String("rate-alias"))
					if err != nil {
						return err
					}
					tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
					fmt.Fprintln(tw, "ID\tVERSION\tACTIVE\tHASH\tCREATED")
					for _, s := range snapshots {
						fmt.Fprintf(tw, "%s\t%s\t%t\t%s\t%s\n", s.ID, s.Version, s.IsActive, truncate(s.Hash, 19), s.CreatedAt.Format("2006-01-02 15:04"))
					}
					return tw.Flush()
				},
			},
			{
				Name:  "show",
				Usage: "Show the active rate card",
				Action: func(c *cli.Context) error {
					store, err := openClickHouse(c)
					if err != nil {
						return fmt.Errorf("failed to connect to ClickHouse: %w", err)
					}
					defer store.Close()

					snapshot, roles, err := ingestion.NewPublisher(store).LoadActive(c.Context, c.String("rate-alias"))
					if err != nil {
						return err
					}
					if snapshot == nil {
						return cli.Exit("no active rate card", 1)
					}
					fmt.Fprintf(c.App.Writer, "Rate snapshot %s (version %s)\n\n", snapshot.ID, snapshot.Version)
					return printRoles(c, roles)
				},
			},
		},
	}
}

func runRatesPublish(c *cli.Context) error {
	snap, err := loadSnapshot(c)
	if err != nil {
		return err
	}
	source := "catalog:" + snap.Version
	if path := c.String("file"); path != "" {
		snap, err = catalog.LoadFile(path)
		if err != nil {
			return err
		}
		source = path
	}

	version := c.String("label")
	if version == "" {
		version = snap.Version
	}

	store, err := openClickHouse(c)
	if err != nil {
		return fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}
	defer store.Close()

	result, err := ingestion.NewPublisher(store).Publish(c.Context, ingestion.PublishInput{
		Alias:    c.String("rate-alias"),
		Source:   source,
		Version:  version,
		Roles:    snap.Rates.Roles(),
		Activate: c.Bool("activate"),
	})
	if err != nil {
		return err
	}

	if result.Deduplicated {
		fmt.Fprintf(c.App.Writer, "♻️  Rate card unchanged, reusing snapshot %s\n", result.SnapshotID)
	} else {
		fmt.Fprintf(c.App.Writer, "📦 Published %d roles as snapshot %s in %s\n", result.RoleCount, result.SnapshotID, result.Duration)
	}
	if result.Activated {
		fmt.Fprintln(c.App.Writer, "✅ Snapshot is active")
	}
	return nil
}
