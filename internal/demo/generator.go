package demo

import (
	"math/rand"
	"time"

	"github.com/iyulab/cyber-defense/internal/event"
)

// generatorScenario is a family of plausible events for the fake generator.
type generatorScenario struct {
	eventType string
	severity  string
	sourceIPs []string
	destIPs   []string
	messages  []string
}

var generatorScenarios = []generatorScenario{
	{
		eventType: "brute_force_ssh",
		severity:  event.SeverityHigh,
		sourceIPs: []string{"192.168.1.100", "10.0.0.45", "172.16.0.23"},
		destIPs:   []string{"10.0.1.50", "192.168.1.10"},
		messages: []string{
			"Multiple failed SSH login attempts detected",
			"SSH brute force attack in progress",
			"Excessive authentication failures from source IP",
		},
	},
	{
		eventType: "port_scan",
		severity:  event.SeverityMedium,
		sourceIPs: []string{"203.0.113.42", "198.51.100.15", "192.0.2.88"},
		destIPs:   []string{"10.0.1.100", "192.168.1.50", "172.16.0.100"},
		messages: []string{
			"Port scanning activity detected",
			"Sequential port probing from external IP",
			"Network reconnaissance attempt identified",
		},
	},
	{
		eventType: "malware_detection",
		severity:  event.SeverityCritical,
		sourceIPs: []string{"192.168.1.75", "10.0.0.33"},
		destIPs:   []string{"8.8.8.8", "1.1.1.1", "malicious-domain.com"},
		messages: []string{
			"Malware signature detected in network traffic",
			"C2 communication attempt blocked",
			"Suspicious executable behavior detected",
			"Trojan communication to known C2 server",
		},
	},
	{
		eventType: "ddos_attack",
		severity:  event.SeverityCritical,
		sourceIPs: []string{"203.0.113.0", "198.51.100.0", "192.0.2.0"},
		destIPs:   []string{"10.0.1.1", "192.168.1.1"},
		messages: []string{
			"High volume traffic detected",
			"DDoS attack in progress",
			"Server resources under heavy load",
			"Network bandwidth saturation detected",
		},
	},
	{
		eventType: "failed_login",
		severity:  event.SeverityMedium,
		sourceIPs: []string{"192.168.1.200", "10.0.0.75"},
		destIPs:   []string{"10.0.1.10", "192.168.1.5"},
		messages: []string{
			"Authentication failure recorded",
			"Invalid credentials provided",
			"Account lockout threshold exceeded",
		},
	},
	{
		eventType: "firewall_block",
		severity:  event.SeverityLow,
		sourceIPs: []string{"203.0.113.100", "198.51.100.200"},
		destIPs:   []string{"10.0.1.0", "192.168.1.0"},
		messages: []string{
			"Firewall rule triggered",
			"Blocked connection attempt",
			"Traffic filtered by security policy",
		},
	},
	{
		eventType: "intrusion_attempt",
		severity:  event.SeverityHigh,
		sourceIPs: []string{"192.0.2.150", "203.0.113.75"},
		destIPs:   []string{"10.0.1.20", "192.168.1.30"},
		messages: []string{
			"IDS signature match detected",
			"Potential system compromise attempt",
			"Unauthorized access attempt blocked",
			"Exploit payload detected in traffic",
		},
	},
}

// Generator produces random but plausible records. It is not safe for
// concurrent use; callers generate up front and fan out the sends.
type Generator struct {
	rng    *rand.Rand
	now    func() time.Time
	spread time.Duration
}

// NewGenerator creates a Generator. Timestamps fall within spread before now;
// a zero spread stamps every record with the current time.
func NewGenerator(rng *rand.Rand, now func() time.Time, spread time.Duration) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{rng: rng, now: now, spread: spread}
}

// Next returns one fake record.
func (g *Generator) Next() event.Record {
	s := generatorScenarios[g.rng.Intn(len(generatorScenarios))]
	ts := g.now()
	if g.spread > 0 {
		ts = ts.Add(-time.Duration(g.rng.Int63n(int64(g.spread) + 1)))
	}
	return event.Record{
		Timestamp: ts.UTC(),
		SourceIP:  pick(g.rng, s.sourceIPs),
		DestIP:    pick(g.rng, s.destIPs),
		EventType: s.eventType,
		Severity:  s.severity,
		Message:   pick(g.rng, s.messages),
	}
}

// Batch returns n fake records.
func (g *Generator) Batch(n int) []event.Record {
	records := make([]event.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, g.Next())
	}
	return records
}

func pick(rng *rand.Rand, list []string) string {
	return list[rng.Intn(len(list))]
}
