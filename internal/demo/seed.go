// Package demo provides the scripted demonstration data served by the API:
// persistent seed records, attack simulations, threat-intelligence and
// attack-map fixtures, canned response actions, and a fake record generator.
package demo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iyulab/cyber-defense/internal/event"
)

// PersistentMarker tags seed records in their message.
const PersistentMarker = "PERSISTENT_DEMO"

// SeedStore is the subset of the event store used by seeding.
type SeedStore interface {
	CountByMarker(ctx context.Context, marker string) (int64, error)
	ReplaceByMarker(ctx context.Context, marker string, records []event.Record) error
}

type scriptedEvent struct {
	eventType  string
	severity   string
	sourceIP   string
	destIP     string
	message    string
	minutesAgo int
}

func (e scriptedEvent) record(now time.Time, tag string) event.Record {
	return event.Record{
		Timestamp: now.Add(-time.Duration(e.minutesAgo) * time.Minute).UTC(),
		SourceIP:  e.sourceIP,
		DestIP:    e.destIP,
		EventType: e.eventType,
		Severity:  e.severity,
		Message:   fmt.Sprintf("%s [%s]", e.message, tag),
	}
}

var persistentEvents = []scriptedEvent{
	{
		eventType:  "Critical System Breach",
		severity:   event.SeverityCritical,
		sourceIP:   "203.0.113.45",
		destIP:     "192.168.1.100",
		message:    "Unauthorized root access detected on military server. Multiple authentication bypasses observed.",
		minutesAgo: 15,
	},
	{
		eventType:  "Ransomware Detection",
		severity:   event.SeverityCritical,
		sourceIP:   "192.168.1.65",
		destIP:     "192.168.1.0/24",
		message:    "Advanced ransomware targeting classified systems. File encryption prevented by security measures.",
		minutesAgo: 45,
	},
	{
		eventType:  "SQL Injection Attack",
		severity:   event.SeverityHigh,
		sourceIP:   "93.184.216.34",
		destIP:     "192.168.1.100",
		message:    "Sophisticated SQL injection targeting personnel database. 127 malicious queries blocked.",
		minutesAgo: 120,
	},
	{
		eventType:  "Spear Phishing Campaign",
		severity:   event.SeverityMedium,
		sourceIP:   "172.16.254.78",
		destIP:     "192.168.1.150",
		message:    "Targeted phishing campaign against military personnel. Social engineering with unit-specific details.",
		minutesAgo: 240,
	},
	{
		eventType:  "System Security Scan",
		severity:   event.SeverityLow,
		sourceIP:   "192.168.1.10",
		destIP:     "N/A",
		message:    "Routine security scan completed successfully. All network components secure and operational.",
		minutesAgo: 480,
	},
}

// PersistentRecords returns the seed records backdated from now.
func PersistentRecords(now time.Time) []event.Record {
	records := make([]event.Record, 0, len(persistentEvents))
	for _, e := range persistentEvents {
		records = append(records, e.record(now, PersistentMarker))
	}
	return records
}

// SeedPersistent ensures the full seed set exists. When fewer seed records than
// expected are present, existing ones are replaced. It returns the number inserted.
func SeedPersistent(ctx context.Context, st SeedStore, now time.Time, logger *zap.Logger) (int, error) {
	existing, err := st.CountByMarker(ctx, PersistentMarker)
	if err != nil {
		return 0, fmt.Errorf("count seed records: %w", err)
	}
	if existing >= int64(len(persistentEvents)) {
		logger.Debug("demo seed present", zap.Int64("records", existing))
		return 0, nil
	}

	records := PersistentRecords(now)
	if err := st.ReplaceByMarker(ctx, PersistentMarker, records); err != nil {
		return 0, fmt.Errorf("seed demo records: %w", err)
	}
	logger.Info("demo seed initialized",
		zap.Int64("replaced", existing),
		zap.Int("inserted", len(records)),
	)
	return len(records), nil
}
