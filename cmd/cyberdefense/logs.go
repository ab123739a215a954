package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/iyulab/cyber-defense/internal/client"
	"github.com/iyulab/cyber-defense/internal/config"
	"github.com/iyulab/cyber-defense/internal/event"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write an annotated example config",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "cyberdefense.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.WriteExample(path, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", okStyle.Render("✓"), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}

func newIngestCmd() *cobra.Command {
	var (
		rec       event.Record
		timestamp string
		file      string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Send one event, or a JSON array of events from --file",
		Example: `  cyberdefense ingest --source-ip 203.0.113.42 --dest-ip 10.0.1.50 \
      --event-type brute_force_ssh --severity high --message "SSH brute force"
  cyberdefense ingest --file events.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []event.Record
			if file != "" {
				var err error
				if records, err = readRecords(file); err != nil {
					return err
				}
			} else {
				if timestamp != "" {
					ts, err := time.Parse(time.RFC3339, timestamp)
					if err != nil {
						return fmt.Errorf("--timestamp: %w", err)
					}
					rec.Timestamp = ts
				}
				records = []event.Record{rec}
			}

			c := apiClient(cmd)
			out := cmd.OutOrStdout()
			for i, r := range records {
				created, err := c.CreateLog(cmd.Context(), r)
				if err != nil {
					return fmt.Errorf("record %d: %w", i+1, err)
				}
				fmt.Fprintf(out, "%s #%d %s %s\n", okStyle.Render("✓"), created.ID, severityLabel(r.Severity), r.EventType)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&rec.SourceIP, "source-ip", "", "source IP")
	f.StringVar(&rec.DestIP, "dest-ip", "", "destination IP")
	f.StringVar(&rec.EventType, "event-type", "", "event type, e.g. port_scan")
	f.StringVar(&rec.Severity, "severity", "", "low | medium | high | critical")
	f.StringVar(&rec.Message, "message", "", "event message")
	f.StringVar(&timestamp, "timestamp", "", "RFC 3339 timestamp (default: server time)")
	f.StringVarP(&file, "file", "f", "", `JSON array of events ("-" for stdin)`)
	return cmd
}

func readRecords(path string) ([]event.Record, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var records []event.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return records, nil
}

func newLogsCmd() *cobra.Command {
	var (
		q      client.LogQuery
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "List stored events, most severe first",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := apiClient(cmd).ListLogs(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}
			if len(records) == 0 {
				fmt.Fprintln(out, mutedStyle.Render("no events"))
				return nil
			}
			for _, r := range records {
				fmt.Fprintf(out, "%s %s %-24s %15s → %-15s %s\n",
					mutedStyle.Render(r.Timestamp.UTC().Format("2006-01-02 15:04:05")),
					severityLabel(r.Severity),
					r.EventType,
					r.SourceIP,
					r.DestIP,
					r.Message,
				)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.IntVarP(&q.Limit, "limit", "n", 0, "maximum events (server default 100)")
	f.StringVar(&q.Severity, "severity", "", "filter by severity")
	f.StringVar(&q.EventType, "event-type", "", "filter by event type substring")
	f.IntVar(&q.HoursBack, "hours", 0, "window in hours (server default 24)")
	f.BoolVar(&asJSON, "json", false, "print raw JSON")
	return cmd
}
