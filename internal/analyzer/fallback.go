package analyzer

import (
	"fmt"
	"strings"

	"github.com/iyulab/cyber-defense/internal/event"
)

// Classifier thresholds.
const (
	// highSeverityThreshold is the number of high events that alone makes a batch high.
	highSeverityThreshold = 3
	// mediumSeverityThreshold is the number of medium events that alone makes a batch medium.
	mediumSeverityThreshold = 10
	// highVolumeThreshold is the per-source count above which an IP is called out.
	highVolumeThreshold = 5

	ruleEventTypes   = 10
	highVolumeSource = 3
	minListLength    = 3
	maxListLength    = 6
)

// ThreatRule maps event-type keywords to a threat category and its mitigation.
type ThreatRule struct {
	Name           string
	Keywords       []string
	Threat         string // format with the event count
	Recommendation string
}

// ThreatRules is evaluated in order; the first rule whose keyword appears in
// an event type claims it.
var ThreatRules = []ThreatRule{
	{
		Name:           "brute_force",
		Keywords:       []string{"brute_force", "brute", "force"},
		Threat:         "SSH/RDP brute force attacks detected (%d events)",
		Recommendation: "Implement account lockout policies and IP blocking for repeated failures",
	},
	{
		Name:           "malware",
		Keywords:       []string{"malware", "virus", "trojan", "ransomware"},
		Threat:         "Malware activity identified (%d events)",
		Recommendation: "Quarantine affected systems and update antivirus signatures",
	},
	{
		Name:           "intrusion",
		Keywords:       []string{"intrusion", "breach", "compromise"},
		Threat:         "Network intrusion attempts (%d events)",
		Recommendation: "Review firewall rules and implement network segmentation",
	},
	{
		Name:           "web_attack",
		Keywords:       []string{"injection", "sql", "xss"},
		Threat:         "Web application attacks detected (%d events)",
		Recommendation: "Update WAF rules and patch web applications",
	},
	{
		Name:           "reconnaissance",
		Keywords:       []string{"scan", "reconnaissance", "probe"},
		Threat:         "Network reconnaissance activities (%d events)",
		Recommendation: "Monitor and block scanning source IPs",
	},
	{
		Name:           "authentication",
		Keywords:       []string{"login", "auth", "credential"},
		Threat:         "Authentication anomalies (%d events)",
		Recommendation: "Review user accounts and enable multi-factor authentication",
	},
	{
		Name:           "denial_of_service",
		Keywords:       []string{"ddos", "dos", "flood"},
		Threat:         "Denial of service attacks (%d events)",
		Recommendation: "Implement rate limiting and DDoS protection",
	},
	{
		Name:           "privilege_escalation",
		Keywords:       []string{"privilege", "escalation", "elevation"},
		Threat:         "Privilege escalation attempts (%d events)",
		Recommendation: "Review user privileges and implement least-privilege principle",
	},
}

var threatFiller = []string{
	"Multiple security events require investigation",
	"Potential coordinated attack patterns detected",
	"Anomalous network behavior identified",
}

var recommendationFiller = []string{
	"Increase monitoring and alerting sensitivity",
	"Conduct thorough security audit",
	"Review and update security policies",
}

// sentinelIPs are placeholder source addresses never treated as attackers.
var sentinelIPs = map[string]bool{
	"":          true,
	"unknown":   true,
	"n/a":       true,
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// IsSentinelIP reports whether ip is a loopback or placeholder value.
func IsSentinelIP(ip string) bool {
	return sentinelIPs[strings.ToLower(strings.TrimSpace(ip))]
}

// MatchThreatRule returns the first rule matching eventType.
func MatchThreatRule(eventType string) (ThreatRule, bool) {
	lower := strings.ToLower(eventType)
	for _, rule := range ThreatRules {
		if containsAny(lower, rule.Keywords...) {
			return rule, true
		}
	}
	return ThreatRule{}, false
}

// ClassifySeverity applies the severity ladder to the counters.
func ClassifySeverity(stats Statistics) string {
	switch {
	case stats.Critical > 0:
		return event.SeverityCritical
	case stats.High > highSeverityThreshold:
		return event.SeverityHigh
	case stats.Medium > mediumSeverityThreshold || stats.High > 0:
		return event.SeverityMedium
	default:
		return event.SeverityLow
	}
}

// Classify derives an Assessment from statistics alone. It is deterministic
// and always returns at least three threats and three recommendations.
func Classify(stats Statistics) Assessment {
	var threats, recommendations []string

	for _, f := range stats.EventTypes[:min(ruleEventTypes, len(stats.EventTypes))] {
		rule, ok := MatchThreatRule(f.Label)
		if !ok {
			continue
		}
		threats = append(threats, fmt.Sprintf(rule.Threat, f.Count))
		recommendations = append(recommendations, rule.Recommendation)
	}

	for _, f := range stats.SourceIPs[:min(highVolumeSource, len(stats.SourceIPs))] {
		if f.Count > highVolumeThreshold && !IsSentinelIP(f.Label) {
			threats = append(threats, fmt.Sprintf("High-volume traffic from %s (%d events)", f.Label, f.Count))
			recommendations = append(recommendations, fmt.Sprintf("Investigate and potentially block suspicious IP %s", f.Label))
		}
	}

	if len(threats) < minListLength {
		threats = append(threats, threatFiller...)
	}
	if len(recommendations) < minListLength {
		recommendations = append(recommendations, recommendationFiller...)
	}

	topType := "various security events"
	if len(stats.EventTypes) > 0 {
		topType = stats.EventTypes[0].Label
	}

	summary := fmt.Sprintf("Comprehensive analysis of %d security events revealed %d distinct threat types with "+
		"%d critical, %d high, %d medium severity incidents. Key concerns include %s and multiple attack vectors "+
		"targeting network infrastructure.",
		stats.Total, len(stats.EventTypes), stats.Critical, stats.High, stats.Medium, topType)

	return Assessment{
		Summary:                summary,
		ThreatsIdentified:      threats[:min(maxListLength, len(threats))],
		SeverityClassification: ClassifySeverity(stats),
		Recommendations:        recommendations[:min(maxListLength, len(recommendations))],
		TotalLogsAnalyzed:      stats.Total,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
