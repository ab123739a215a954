package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iyulab/cyber-defense/internal/client"
	"github.com/iyulab/cyber-defense/internal/evidence"
)

// newExportCmd snapshots logs, analysis and stats into one hashed ZIP.
func newExportCmd() *cobra.Command {
	var (
		output string
		hours  int
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Save an incident snapshot (events, assessment, stats) as a ZIP",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(cmd)
			now := time.Now().UTC()
			if output == "" {
				output = "incident-" + now.Format("20060102T150405Z") + ".zip"
			}

			var (
				logs     any
				analysis *client.Analysis
				stats    *client.Stats
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				records, err := c.ListLogs(ctx, client.LogQuery{HoursBack: hours, Limit: limit})
				logs = records
				return err
			})
			g.Go(func() error {
				var err error
				analysis, err = c.Analysis(ctx, hours, limit)
				return err
			})
			g.Go(func() error {
				var err error
				stats, err = c.Stats(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}

			var entries []evidence.Entry
			for _, item := range []struct {
				name string
				v    any
			}{
				{"logs.json", logs},
				{"analysis.json", analysis},
				{"stats.json", stats},
			} {
				e, err := evidence.JSONEntry(item.name, item.v)
				if err != nil {
					return err
				}
				entries = append(entries, e)
			}

			manifest, err := evidence.Write(output, c.BaseURL(), version, now, entries)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s wrote %s\n", okStyle.Render("✓"), output)
			for _, f := range manifest.Files {
				fmt.Fprintf(out, "  %-14s %8d bytes  %s\n", f.Name, f.Size, mutedStyle.Render(f.SHA256[:16]))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "ZIP path (default incident-<time>.zip)")
	cmd.Flags().IntVar(&hours, "hours", 24, "event window in hours")
	cmd.Flags().IntVarP(&limit, "limit", "n", 1000, "maximum events")
	return cmd
}
