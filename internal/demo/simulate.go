package demo

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iyulab/cyber-defense/internal/event"
)

// ErrUnknownAttack is returned for an attack type with no scenario.
var ErrUnknownAttack = errors.New("unknown attack type")

// Scenario is a scripted attack whose events are inserted as one batch.
type Scenario struct {
	Type        string
	Name        string
	Description string
	events      []scriptedEvent
}

// Simulation is the result of materializing a scenario.
type Simulation struct {
	ID         string
	AttackType string
	Name       string
	Records    []event.Record
}

var scenarios = map[string]Scenario{
	"ddos": {
		Type:        "ddos",
		Name:        "DDoS Attack",
		Description: "Distributed Denial of Service attack overwhelming network resources",
		events: []scriptedEvent{
			{"ddos_attack", event.SeverityCritical, "203.0.113.10", "10.0.1.1", "SYN flood exceeding 2M packets/sec against perimeter gateway", 0},
			{"ddos_attack", event.SeverityCritical, "198.51.100.22", "10.0.1.1", "UDP amplification traffic saturating uplink bandwidth", 1},
			{"ddos_attack", event.SeverityHigh, "192.0.2.77", "192.168.1.1", "HTTP GET flood against public web tier", 2},
			{"traffic_anomaly", event.SeverityHigh, "203.0.113.11", "10.0.1.1", "Connection table exhaustion on edge firewall", 3},
			{"service_degradation", event.SeverityMedium, "10.0.1.1", "N/A", "Web service latency above 5s during attack window", 4},
		},
	},
	"phishing": {
		Type:        "phishing",
		Name:        "Phishing Campaign",
		Description: "Social engineering attack targeting user credentials",
		events: []scriptedEvent{
			{"phishing_email", event.SeverityHigh, "198.51.100.45", "192.168.1.150", "Credential harvesting email delivered to 34 mailboxes", 0},
			{"malicious_link", event.SeverityHigh, "192.168.1.150", "198.51.100.45", "User clicked spoofed login portal link", 2},
			{"credential_theft", event.SeverityCritical, "198.51.100.45", "192.168.1.20", "Stolen credentials used from external address", 5},
			{"failed_login", event.SeverityMedium, "198.51.100.45", "192.168.1.20", "Repeated MFA prompts rejected by user", 6},
		},
	},
	"insider_threat": {
		Type:        "insider_threat",
		Name:        "Insider Threat",
		Description: "Malicious activity from privileged internal user",
		events: []scriptedEvent{
			{"privilege_escalation", event.SeverityCritical, "192.168.1.88", "192.168.1.5", "Service account added to domain admins outside change window", 0},
			{"data_access_anomaly", event.SeverityHigh, "192.168.1.88", "192.168.1.30", "Bulk read of restricted personnel share", 3},
			{"data_exfiltration", event.SeverityCritical, "192.168.1.88", "203.0.113.200", "4.2 GB uploaded to personal cloud storage", 7},
			{"log_tampering", event.SeverityHigh, "192.168.1.88", "192.168.1.5", "Security event log cleared on file server", 9},
		},
	},
	"ransomware": {
		Type:        "ransomware",
		Name:        "Ransomware Attack",
		Description: "File encryption and system compromise attack",
		events: []scriptedEvent{
			{"malware_detection", event.SeverityCritical, "192.168.1.65", "203.0.113.99", "Ransomware dropper beaconing to known C2 server", 0},
			{"ransomware_activity", event.SeverityCritical, "192.168.1.65", "192.168.1.0/24", "Mass file rename with encrypted extension on shared drives", 2},
			{"lateral_movement", event.SeverityHigh, "192.168.1.65", "192.168.1.40", "SMB remote execution to adjacent workstation", 3},
			{"backup_tampering", event.SeverityCritical, "192.168.1.65", "192.168.1.12", "Volume shadow copies deleted", 4},
			{"intrusion_attempt", event.SeverityHigh, "203.0.113.99", "192.168.1.65", "Ransom note retrieval from external host", 6},
		},
	},
}

// Scenarios returns the available scenarios sorted by type.
func Scenarios() []Scenario {
	list := make([]Scenario, 0, len(scenarios))
	for _, s := range scenarios {
		list = append(list, s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Type < list[j].Type })
	return list
}

// SimulationTag is appended to every simulated record's message.
func SimulationTag(attackType string) string {
	return "SIMULATION:" + attackType
}

// Simulate materializes the scenario for attackType at now. Records are not stored.
func Simulate(attackType string, now time.Time) (Simulation, error) {
	attackType = strings.ToLower(strings.TrimSpace(attackType))
	s, ok := scenarios[attackType]
	if !ok {
		return Simulation{}, fmt.Errorf("%w: %q", ErrUnknownAttack, attackType)
	}

	tag := SimulationTag(s.Type)
	records := make([]event.Record, 0, len(s.events))
	for _, e := range s.events {
		records = append(records, e.record(now, tag))
	}
	return Simulation{
		ID:         uuid.NewString(),
		AttackType: s.Type,
		Name:       s.Name,
		Records:    records,
	}, nil
}
