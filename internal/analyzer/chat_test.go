package analyzer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iyulab/cyber-defense/internal/event"
)

func respond(question string, records []event.Record) ChatResult {
	return NewResponder(nil).Respond(context.Background(), question, records)
}

func TestRespond_BlockScenario(t *testing.T) {
	records := repeat(rec("high", "port_probe", "203.0.113.77"), 5)

	got := respond("Which addresses should we block?", records)

	assert.Equal(t, RouteIPBlocking, got.Route)
	assert.Contains(t, got.Answer, "203.0.113.77")
	assert.Contains(t, got.Answer, "BLOCK")
	assert.Contains(t, got.Answer, "1. 203.0.113.77 (HIGH RISK)")
	assert.Contains(t, got.Answer, "- Events: 5 total (0 critical, 5 high)")
}

func TestRespond_BlockNeverListsSentinels(t *testing.T) {
	var records []event.Record
	for _, ip := range []string{"127.0.0.1", "localhost", "unknown", "::1"} {
		records = append(records, repeat(rec("critical", "malware", ip), 10)...)
	}

	got := respond("block list please", records)

	assert.Equal(t, "Based on current log analysis, no IPs meet the immediate blocking criteria. Continue monitoring for patterns.", got.Answer)
}

func TestRespond_BlockRankingAndTiers(t *testing.T) {
	records := []event.Record{
		rec("low", "port_scan", "10.0.0.1"),
		rec("low", "port_scan", "10.0.0.1"),
		rec("low", "port_scan", "10.0.0.1"),
		rec("critical", "exfiltration", "10.0.0.2"),
		rec("high", "odd_dns", "10.0.0.3"),
		rec("high", "odd_dns", "10.0.0.3"),
		rec("low", "brute_force_ssh", "10.0.0.4"),
		rec("low", "heartbeat", "10.0.0.5"),
	}

	got := respond("what source ips?", records).Answer

	first := strings.Index(got, "10.0.0.2 (CRITICAL RISK)")
	second := strings.Index(got, "10.0.0.3 (HIGH RISK)")
	third := strings.Index(got, "10.0.0.1 (MEDIUM RISK)")
	fourth := strings.Index(got, "10.0.0.4 (MEDIUM RISK)")
	assert.True(t, first >= 0 && first < second && second < third && third < fourth, got)
	assert.NotContains(t, got, "10.0.0.5")
	assert.Contains(t, got, "Found 4 IPs requiring blocking")
	assert.True(t, strings.HasSuffix(got, "or known attack signatures."))
}

func TestRespond_CriticalThreats(t *testing.T) {
	long := rec("critical", "ransomware", "198.51.100.1")
	long.Message = strings.Repeat("m", 140)
	records := append(repeat(long, 7), repeat(rec("high", "brute_force_ssh", "198.51.100.2"), 4)...)

	got := respond("any dangerous activity?", records)

	assert.Equal(t, RouteThreats, got.Route)
	assert.Contains(t, got.Answer, "- CRITICAL threats: 7")
	assert.Contains(t, got.Answer, "- HIGH severity threats: 4")
	assert.Contains(t, got.Answer, "5. ransomware from 198.51.100.1")
	assert.NotContains(t, got.Answer, "6. ransomware")
	assert.Contains(t, got.Answer, "Details: "+strings.Repeat("m", 100)+"...")
	assert.Contains(t, got.Answer, "HIGH SEVERITY THREATS (4 total)")
	assert.Contains(t, got.Answer, "- ransomware: 7 events")
}

func TestRespond_CriticalThreatsQuiet(t *testing.T) {
	got := respond("threat level?", repeat(rec("low", "heartbeat", "10.0.0.1"), 3))
	assert.Equal(t, "No critical or high-severity threats identified in recent logs. Current threat level: LOW.", got.Answer)
}

func TestRespond_Recommendations(t *testing.T) {
	records := append(repeat(rec("critical", "brute_force_ssh", "198.51.100.9"), 6),
		repeat(rec("high", "malware_beacon", "198.51.100.8"), 2)...)

	got := respond("What should we do next?", records)

	assert.Equal(t, RouteRecommendations, got.Route)
	assert.Contains(t, got.Answer, "1. 🚫 BLOCK IP 198.51.100.9 immediately (6 malicious events)")
	assert.Contains(t, got.Answer, "Implement rate limiting for SSH/RDP services (6 brute force attempts)")
	assert.Contains(t, got.Answer, "Quarantine affected systems and update antivirus signatures (2 malware detections)")
	assert.Contains(t, got.Answer, "Escalate to incident response team (6 critical events)")
	assert.Contains(t, got.Answer, "PRIORITY: Focus on the first 3-4 recommendations")
}

func TestRespond_RecommendationsGenericWhenNothingFires(t *testing.T) {
	got := respond("any recommendation?", repeat(rec("low", "heartbeat", "10.0.0.1"), 2))
	assert.Contains(t, got.Answer, "1. Continue current monitoring practices")
}

func TestRespond_DispatchOrder(t *testing.T) {
	records := scenarioRecords()
	// "ip" outranks "attack" and "should"
	assert.Equal(t, RouteIPBlocking, respond("Should we block this attack IP?", records).Route)
	assert.Equal(t, RouteThreats, respond("Which attack should worry us?", records).Route)
}

func TestRespond_NoContextCanned(t *testing.T) {
	cases := map[string]string{
		"Which IP is worst?":  "I can help analyze IP addresses",
		"Any new threat?":     "Based on current security events, I recommend monitoring",
		"Recommend something": "Key recommendations: 1) Block suspicious IPs",
		"Hello there":         "I'm a SOC cyber defense assistant.",
	}
	for q, prefix := range cases {
		got := respond(q, nil)
		assert.Equal(t, RouteCanned, got.Route, q)
		assert.True(t, strings.HasPrefix(got.Answer, prefix), "%q -> %q", q, got.Answer)
	}
}

func TestRespond_GeneralWithoutProviderReturnsStatus(t *testing.T) {
	records := append(repeat(rec("critical", "ransomware", "10.0.0.1"), 2), repeat(rec("high", "exfil", "10.0.0.2"), 10)...)

	got := respond("Summarize the situation", records)

	assert.Equal(t, RouteStatus, got.Route)
	assert.Contains(t, got.Answer, "• Critical: 2 events")
	assert.Contains(t, got.Answer, "• exfil: 10 occurrences")
	assert.Contains(t, got.Answer, "**URGENT**: 2 critical events")
	assert.Contains(t, got.Answer, "**HIGH PRIORITY**: 10 high-severity events")
}
