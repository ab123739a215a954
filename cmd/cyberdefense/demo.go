package main

import (
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iyulab/cyber-defense/internal/demo"
)

func newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "simulate <attack_type>",
		Short:     "Insert a scripted attack scenario",
		Long:      "Insert a scripted attack scenario. Run without arguments to list scenarios.",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: scenarioTypes(),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				printTitle(out, "Attack scenarios")
				for _, s := range demo.Scenarios() {
					fmt.Fprintf(out, "  %-16s %s\n", s.Type, mutedStyle.Render(s.Description))
				}
				return nil
			}

			res, err := apiClient(cmd).SimulateAttack(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("✓"), res.Message)
			printField(out, "Simulation ID", res.SimulationID)
			return nil
		},
	}
	return cmd
}

func scenarioTypes() []string {
	var types []string
	for _, s := range demo.Scenarios() {
		types = append(types, s.Type)
	}
	return types
}

// newGenerateCmd posts random scenario events with bounded concurrency.
func newGenerateCmd() *cobra.Command {
	var (
		count       int
		concurrency int
		spread      time.Duration
		seed        int64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Post random but plausible security events",
		RunE: func(cmd *cobra.Command, args []string) error {
			if count <= 0 {
				return fmt.Errorf("--count must be positive")
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			records := demo.NewGenerator(rand.New(rand.NewSource(seed)), time.Now, spread).Batch(count)

			c := apiClient(cmd)
			var sent atomic.Int64
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(max(concurrency, 1))
			for _, r := range records {
				r := r
				g.Go(func() error {
					if _, err := c.CreateLog(ctx, r); err != nil {
						return err
					}
					sent.Add(1)
					return nil
				})
			}
			err := g.Wait()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s sent %d/%d events to %s\n", okStyle.Render("✓"), sent.Load(), count, c.BaseURL())
			return err
		},
	}
	f := cmd.Flags()
	f.IntVarP(&count, "count", "n", 50, "number of events")
	f.IntVar(&concurrency, "concurrency", 4, "parallel requests")
	f.DurationVar(&spread, "spread", 0, "backdate events randomly within this duration (0 = now)")
	f.Int64Var(&seed, "seed", 0, "random seed (0 = time-based)")
	return cmd
}

func newActionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "actions [action target]",
		Short: "List response actions, or execute one against a target",
		Args:  cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch len(args) {
			case 0:
				printTitle(out, "Response actions")
				for _, a := range demo.Actions() {
					fmt.Fprintf(out, "  %-18s %s\n", a.Name, mutedStyle.Render(a.Description))
				}
				return nil
			case 1:
				return fmt.Errorf("action %q needs a target", args[0])
			}

			res, err := apiClient(cmd).ExecuteAction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "%s %s\n", okStyle.Render("✓"), res.Message)
			printField(out, "Execution ID", res.ExecutionID)
			return nil
		},
	}
	return cmd
}

func newIntelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "intel",
		Short: "Show the threat-intelligence feed",
		RunE: func(cmd *cobra.Command, args []string) error {
			intel, err := apiClient(cmd).ThreatIntelligence(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printTitle(out, fmt.Sprintf("Threat intelligence (%d feeds)", intel.TotalThreats))
			for _, f := range intel.Feeds {
				fmt.Fprintf(out, "  %s %s %s\n", severityLabel(f.Severity), f.Title, mutedStyle.Render("["+f.Region+"]"))
				fmt.Fprintf(out, "           %s\n", mutedStyle.Render(f.Description))
			}
			return nil
		},
	}
}

func newPurgeCmd() *cobra.Command {
	var marker string
	cmd := &cobra.Command{
		Use:   "purge-demo",
		Short: "Delete demo or simulation events by message marker",
		RunE: func(cmd *cobra.Command, args []string) error {
			deleted, err := apiClient(cmd).PurgeDemo(cmd.Context(), marker)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s deleted %d events\n", okStyle.Render("✓"), deleted)
			return nil
		},
	}
	cmd.Flags().StringVar(&marker, "marker", "", "message marker (default "+demo.PersistentMarker+"; e.g. SIMULATION:ddos)")
	return cmd
}
