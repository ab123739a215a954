package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iyulab/cyber-defense/internal/client"
	"github.com/iyulab/cyber-defense/internal/event"
)

func newAnalyzeCmd() *cobra.Command {
	var (
		hours, limit int
		asJSON       bool
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Request a threat assessment of recent events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := apiClient(cmd).Analysis(cmd.Context(), hours, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(a)
			}

			printTitle(out, "Threat Assessment")
			printField(out, "Severity", severityLabel(a.SeverityClassification))
			printField(out, "Events analyzed", a.TotalLogsAnalyzed)
			fmt.Fprintln(out)
			printBox(out, a.Summary)
			fmt.Fprintln(out)
			printList(out, "Threats", a.ThreatsIdentified)
			fmt.Fprintln(out)
			printList(out, "Recommendations", a.Recommendations)
			return nil
		},
	}
	cmd.Flags().IntVar(&hours, "hours", 0, "window in hours (server default)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum events (server default)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <question>",
		Short: "Ask the assistant about recent security events",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			answer, err := apiClient(cmd).Chat(cmd.Context(), question)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, answer.Answer)
			fmt.Fprintln(out, mutedStyle.Render(fmt.Sprintf("(%d events in context)", answer.ContextLogsUsed)))
			return nil
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show event totals and the last 24h breakdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := apiClient(cmd).Stats(cmd.Context())
			if err != nil {
				return err
			}
			printStats(cmd, stats)
			return nil
		},
	}
}

func printStats(cmd *cobra.Command, stats *client.Stats) {
	out := cmd.OutOrStdout()
	printTitle(out, "Event Statistics")
	printField(out, "Total events", stats.TotalLogs)
	for i := len(event.Severities) - 1; i >= 0; i-- {
		level := event.Severities[i]
		printField(out, "24h "+level, severityStyles[level].Render(fmt.Sprint(stats.Last24hSeverity[level])))
	}
	if len(stats.TopEventTypes24h) > 0 {
		fmt.Fprintln(out)
		printTitle(out, "Top event types (24h)")
		for _, t := range stats.TopEventTypes24h {
			fmt.Fprintf(out, "  %-30s %d\n", t.EventType, t.Count)
		}
	}
}

// newStatusCmd fetches health and stats concurrently.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check API health and show current stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := apiClient(cmd)
			var (
				health *client.Health
				stats  *client.Stats
			)
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				var err error
				health, err = c.Health(ctx)
				return err
			})
			g.Go(func() error {
				var err error
				stats, err = c.Stats(ctx)
				return err
			})
			if err := g.Wait(); err != nil {
				return fmt.Errorf("%s unreachable: %w", c.BaseURL(), err)
			}

			out := cmd.OutOrStdout()
			printField(out, "API", c.BaseURL())
			printField(out, "Health", okStyle.Render(health.Status))
			printField(out, "Server time", health.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
			fmt.Fprintln(out)
			printStats(cmd, stats)
			return nil
		},
	}
}
