// Package main is the CLI entry point for cyberdefense.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyulab/cyber-defense/internal/client"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", errStyle.Render("Error:"), err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cyberdefense",
		Short: "AI-assisted security event analysis API and CLI",
		Long: `cyberdefense stores security events, summarizes them into threat
assessments with Gemini (or local heuristics when no model is configured),
and answers analyst questions about recent activity.

Run "cyberdefense serve" to start the API; the other commands talk to it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default: built-in defaults)")
	rootCmd.PersistentFlags().String("api", envOr("CYBERDEFENSE_API_URL", client.DefaultBaseURL), "API base URL for client commands")
	rootCmd.PersistentFlags().Duration("timeout", 120*time.Second, "HTTP timeout for client commands")
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date)

	rootCmd.AddCommand(
		newServeCmd(),
		newInitCmd(),
		newIngestCmd(),
		newLogsCmd(),
		newAnalyzeCmd(),
		newChatCmd(),
		newStatsCmd(),
		newStatusCmd(),
		newSimulateCmd(),
		newGenerateCmd(),
		newActionsCmd(),
		newIntelCmd(),
		newPurgeCmd(),
		newExportCmd(),
	)
	return rootCmd
}

// apiClient builds a client from the persistent flags.
func apiClient(cmd *cobra.Command) *client.Client {
	base, _ := cmd.Flags().GetString("api")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	return client.New(base, timeout)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
