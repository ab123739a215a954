package analyzer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/iyulab/cyber-defense/internal/event"
)

// Chat route names, used for logs and metrics.
const (
	RouteIPBlocking      = "ip_blocking"
	RouteThreats         = "threats"
	RouteRecommendations = "recommendations"
	RouteGeneral         = "general"
	RouteStatus          = "status"
	RouteCanned          = "canned"
)

// ChatResult is an answer plus the route that produced it.
type ChatResult struct {
	Answer string
	Route  string
}

type chatHandler func(records []event.Record) string

// chatRoute is one entry in the keyword dispatch table.
type chatRoute struct {
	name     string
	keywords []string
	handle   chatHandler
	canned   string
}

var chatRoutes = []chatRoute{
	{
		name:     RouteIPBlocking,
		keywords: []string{"ip", "block", "address", "source"},
		handle:   ipBlockingAnalysis,
		canned:   "I can help analyze IP addresses and network traffic patterns. Please check the security logs for detailed information about specific IP activities.",
	},
	{
		name:     RouteThreats,
		keywords: []string{"threat", "attack", "critical", "dangerous"},
		handle:   criticalThreatAnalysis,
		canned:   "Based on current security events, I recommend monitoring brute force attempts, malware communications, and network intrusions. Review the threat analysis panel for detailed insights.",
	},
	{
		name:     RouteRecommendations,
		keywords: []string{"recommend", "action", "do", "should"},
		handle:   recommendationAnalysis,
		canned:   "Key recommendations: 1) Block suspicious IPs, 2) Update security rules, 3) Monitor critical systems, 4) Review authentication logs.",
	},
}

const defaultCannedAnswer = "I'm a SOC cyber defense assistant. Ask me about security threats, IP addresses, attack patterns, or recommended actions based on the current security events."

// Responder answers analyst questions over a context window of records.
// Keyword routes are answered locally; everything else goes to the provider.
type Responder struct {
	provider Provider
	onError  func(err error)
}

// NewResponder creates a Responder. provider may be nil.
func NewResponder(provider Provider) *Responder {
	return &Responder{provider: provider}
}

// Respond routes question by keyword, in table order. It never fails: gateway
// errors degrade to a local status digest.
func (r *Responder) Respond(ctx context.Context, question string, records []event.Record) ChatResult {
	route, matched := matchRoute(question)

	if len(records) == 0 {
		if matched {
			return ChatResult{Answer: route.canned, Route: RouteCanned}
		}
		return ChatResult{Answer: defaultCannedAnswer, Route: RouteCanned}
	}

	if matched {
		return ChatResult{Answer: route.handle(records), Route: route.name}
	}

	if r.provider != nil {
		answer, err := r.ask(ctx, question, records)
		if err == nil {
			return ChatResult{Answer: answer, Route: RouteGeneral}
		}
		if r.onError != nil {
			r.onError(err)
		}
	}
	return ChatResult{Answer: securityStatus(records), Route: RouteStatus}
}

func (r *Responder) ask(ctx context.Context, question string, records []event.Record) (string, error) {
	resp, err := r.provider.Generate(ctx, BuildChatPrompt(question, records))
	if err != nil {
		return "", err
	}
	text, err := ExtractText(resp)
	if err != nil {
		return "", err
	}
	if text == "" {
		return "", ErrNoCandidates
	}
	return text, nil
}

func matchRoute(question string) (chatRoute, bool) {
	q := strings.ToLower(question)
	for _, route := range chatRoutes {
		if containsAny(q, route.keywords...) {
			return route, true
		}
	}
	return chatRoute{}, false
}

// maliciousEventKeywords flag an IP for blocking regardless of volume.
var maliciousEventKeywords = []string{"brute_force", "malware", "intrusion", "attack"}

const maxBlockedIPs = 10

type ipActivity struct {
	ip       string
	count    int
	critical int
	high     int
	events   []string // distinct, first-seen order
}

func (a *ipActivity) shouldBlock() bool {
	if a.count >= 3 || a.critical >= 1 || a.high >= 2 {
		return true
	}
	return containsAny(strings.Join(a.events, " "), maliciousEventKeywords...)
}

func (a *ipActivity) tier() string {
	switch {
	case a.critical > 0:
		return "CRITICAL"
	case a.high > 0:
		return "HIGH"
	default:
		return "MEDIUM"
	}
}

func ipBlockingAnalysis(records []event.Record) string {
	byIP := make(map[string]*ipActivity)
	var order []*ipActivity

	for _, rec := range records {
		if IsSentinelIP(rec.SourceIP) {
			continue
		}
		a, ok := byIP[rec.SourceIP]
		if !ok {
			a = &ipActivity{ip: rec.SourceIP}
			byIP[rec.SourceIP] = a
			order = append(order, a)
		}
		a.count++
		eventType := strings.ToLower(rec.EventType)
		if !containsString(a.events, eventType) {
			a.events = append(a.events, eventType)
		}
		switch event.NormalizeSeverity(rec.Severity) {
		case event.SeverityCritical:
			a.critical++
		case event.SeverityHigh:
			a.high++
		}
	}

	var flagged []*ipActivity
	for _, a := range order {
		if a.shouldBlock() {
			flagged = append(flagged, a)
		}
	}
	if len(flagged) == 0 {
		return "Based on current log analysis, no IPs meet the immediate blocking criteria. Continue monitoring for patterns."
	}

	sort.SliceStable(flagged, func(i, j int) bool {
		a, b := flagged[i], flagged[j]
		if a.critical != b.critical {
			return a.critical > b.critical
		}
		if a.high != b.high {
			return a.high > b.high
		}
		return a.count > b.count
	})

	var sb strings.Builder
	sb.WriteString("🚨 IMMEDIATE IP BLOCKING RECOMMENDATIONS:\n\n")
	fmt.Fprintf(&sb, "Analyzed %d security events. Found %d IPs requiring blocking:\n\n", len(records), len(flagged))
	for i, a := range flagged[:min(maxBlockedIPs, len(flagged))] {
		fmt.Fprintf(&sb, "%d. %s (%s RISK)\n", i+1, a.ip, a.tier())
		fmt.Fprintf(&sb, "   - Events: %d total (%d critical, %d high)\n", a.count, a.critical, a.high)
		fmt.Fprintf(&sb, "   - Attacks: %s\n", strings.Join(a.events[:min(3, len(a.events))], ", "))
		sb.WriteString("   - Action: BLOCK IMMEDIATELY\n\n")
	}
	sb.WriteString("BLOCKING RATIONALE: These IPs show patterns of malicious activity including multiple attack attempts, high-severity events, or known attack signatures.")
	return sb.String()
}

func criticalThreatAnalysis(records []event.Record) string {
	var critical, high []event.Record
	for _, rec := range records {
		switch event.NormalizeSeverity(rec.Severity) {
		case event.SeverityCritical:
			critical = append(critical, rec)
		case event.SeverityHigh:
			high = append(high, rec)
		}
	}
	if len(critical) == 0 && len(high) == 0 {
		return "No critical or high-severity threats identified in recent logs. Current threat level: LOW."
	}

	var sb strings.Builder
	sb.WriteString("🚨 CRITICAL THREAT ANALYSIS:\n\n")
	fmt.Fprintf(&sb, "Analysis of %d events:\n", len(records))
	fmt.Fprintf(&sb, "- CRITICAL threats: %d\n", len(critical))
	fmt.Fprintf(&sb, "- HIGH severity threats: %d\n\n", len(high))

	if len(critical) > 0 {
		sb.WriteString("CRITICAL THREATS REQUIRING IMMEDIATE ACTION:\n")
		for i, rec := range critical[:min(5, len(critical))] {
			fmt.Fprintf(&sb, "%d. %s from %s\n", i+1, orUnknown(rec.EventType), orUnknown(rec.SourceIP))
			fmt.Fprintf(&sb, "   Time: %s\n", formatTimestamp(rec))
			fmt.Fprintf(&sb, "   Details: %s\n", truncate(rec.Message, 100))
			sb.WriteString("   IMMEDIATE ACTION REQUIRED\n\n")
		}
	}

	if len(high) > 0 {
		fmt.Fprintf(&sb, "HIGH SEVERITY THREATS (%d total):\n", len(high))
		for _, rec := range high[:min(3, len(high))] {
			fmt.Fprintf(&sb, "- %s from %s\n", orUnknown(rec.EventType), orUnknown(rec.SourceIP))
		}
	}

	sb.WriteString("\nTOP ATTACK VECTORS:\n")
	types := Summarize(records).EventTypes
	for _, f := range types[:min(5, len(types))] {
		fmt.Fprintf(&sb, "- %s: %d events\n", f.Label, f.Count)
	}
	return sb.String()
}

// recommendationRules are the event-type mitigations used by the chat
// recommendation route: keyword, minimum count, template.
var recommendationRules = []struct {
	keyword  string
	minCount int
	template string
}{
	{"brute_force", 3, "🔒 Implement rate limiting for SSH/RDP services (%d brute force attempts)"},
	{"malware", 2, "🦠 Quarantine affected systems and update antivirus signatures (%d malware detections)"},
	{"intrusion", 2, "🛡️ Review firewall rules and enable network segmentation (%d intrusion attempts)"},
}

const maxChatRecommendations = 8

func recommendationAnalysis(records []event.Record) string {
	stats := Summarize(records)
	var recs []string

	for _, f := range stats.SourceIPs {
		if f.Count >= highVolumeThreshold && !IsSentinelIP(f.Label) {
			recs = append(recs, fmt.Sprintf("🚫 BLOCK IP %s immediately (%d malicious events)", f.Label, f.Count))
			break
		}
	}

	for _, f := range stats.EventTypes[:min(5, len(stats.EventTypes))] {
		lower := strings.ToLower(f.Label)
		for _, rule := range recommendationRules {
			if strings.Contains(lower, rule.keyword) {
				if f.Count >= rule.minCount {
					recs = append(recs, fmt.Sprintf(rule.template, f.Count))
				}
				break
			}
		}
	}

	if stats.Critical >= 3 {
		recs = append(recs, fmt.Sprintf("⚠️ URGENT: Escalate to incident response team (%d critical events)", stats.Critical))
	}
	if stats.High >= 10 {
		recs = append(recs, fmt.Sprintf("📊 Enable enhanced monitoring (%d high-severity events)", stats.High))
	}
	if stats.Total >= 100 {
		recs = append(recs, "📈 Consider increasing log retention and analysis frequency")
	}

	if len(recs) == 0 {
		recs = []string{
			"Continue current monitoring practices",
			"Review security policies and update as needed",
			"Maintain vigilance for emerging threats",
		}
	}

	var sb strings.Builder
	sb.WriteString("🎯 SPECIFIC SOC RECOMMENDATIONS:\n\n")
	fmt.Fprintf(&sb, "Based on analysis of %d security events:\n\n", len(records))
	for i, rec := range recs[:min(maxChatRecommendations, len(recs))] {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, rec)
	}
	sb.WriteString("\nPRIORITY: Focus on the first 3-4 recommendations for immediate impact.")
	return sb.String()
}

// securityStatus is the local digest used when the gateway cannot answer.
func securityStatus(records []event.Record) string {
	stats := Summarize(records)

	var sb strings.Builder
	sb.WriteString("**Security Status (Local Analysis):**\n")
	fmt.Fprintf(&sb, "Current threat landscape from %d recent events:\n\n", len(records))
	fmt.Fprintf(&sb, "• Critical: %d events\n", stats.Critical)
	fmt.Fprintf(&sb, "• High: %d events\n", stats.High)
	fmt.Fprintf(&sb, "• Medium: %d events\n", stats.Medium)
	fmt.Fprintf(&sb, "• Low: %d events\n\n", stats.Low)

	sb.WriteString("Top threats:\n")
	for _, f := range stats.EventTypes[:min(3, len(stats.EventTypes))] {
		fmt.Fprintf(&sb, "• %s: %d occurrences\n", f.Label, f.Count)
	}

	if stats.Critical > 0 {
		fmt.Fprintf(&sb, "\n⚠️ **URGENT**: %d critical events require immediate attention", stats.Critical)
	}
	if stats.High >= 10 {
		fmt.Fprintf(&sb, "\n⚡ **HIGH PRIORITY**: %d high-severity events need review", stats.High)
	}
	return sb.String()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
