package analyzer

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/iyulab/cyber-defense/internal/event"
)

// ErrNoCandidates is returned when a gateway reply carries no text part.
var ErrNoCandidates = errors.New("no candidate text in gateway response")

// ExtractText returns candidates[0].content.parts[0].text, trimmed.
func ExtractText(resp *GatewayResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoCandidates
	}
	return strings.TrimSpace(resp.Candidates[0].Content.Parts[0].Text), nil
}

// ParseAssessment parses a gateway reply into an Assessment. Replies that are
// not a complete JSON assessment are salvaged by line scraping, reported as
// SourceScrape. TotalLogsAnalyzed is always total.
func ParseAssessment(text string, total int) (Assessment, Source) {
	if a, ok := parseAssessmentJSON(text, total); ok {
		return a, SourceGateway
	}
	return scrapeAssessment(text, total), SourceScrape
}

func parseAssessmentJSON(text string, total int) (Assessment, bool) {
	cleaned := cleanJSONResponse(text)
	if !strings.HasPrefix(cleaned, "{") || !strings.HasSuffix(cleaned, "}") {
		return Assessment{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return Assessment{}, false
	}
	for _, key := range requiredAssessmentKeys {
		if _, ok := fields[key]; !ok {
			return Assessment{}, false
		}
	}

	var a Assessment
	if err := json.Unmarshal([]byte(cleaned), &a); err != nil {
		return Assessment{}, false
	}

	a.TotalLogsAnalyzed = total
	a.SeverityClassification = event.NormalizeSeverity(a.SeverityClassification)
	if a.ThreatsIdentified == nil {
		a.ThreatsIdentified = []string{}
	}
	if a.Recommendations == nil {
		a.Recommendations = []string{}
	}
	return a, true
}

// scrapeAssessment is the best-effort salvage for prose replies. A line that
// mentions "summary" and a colon becomes the summary; "critical" anywhere wins
// over "high" for severity; lists are fixed filler.
func scrapeAssessment(text string, total int) Assessment {
	a := Assessment{
		Summary:                "Multiple security events detected across the network.",
		ThreatsIdentified:      []string{"Network reconnaissance", "Authentication failures", "Suspicious traffic patterns"},
		SeverityClassification: event.SeverityMedium,
		Recommendations:        []string{"Monitor failed login attempts", "Review firewall rules", "Investigate suspicious IPs"},
		TotalLogsAnalyzed:      total,
	}

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		switch {
		case strings.Contains(lower, "summary") && strings.Contains(line, ":"):
			_, after, _ := strings.Cut(line, ":")
			a.Summary = strings.Trim(strings.TrimSpace(after), `"`)
		case strings.Contains(lower, event.SeverityCritical):
			a.SeverityClassification = event.SeverityCritical
		case strings.Contains(lower, event.SeverityHigh) && a.SeverityClassification != event.SeverityCritical:
			a.SeverityClassification = event.SeverityHigh
		}
	}
	return a
}

// cleanJSONResponse strips markdown code fences and leading/trailing whitespace.
func cleanJSONResponse(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```json") {
		s = strings.TrimPrefix(s, "```json")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if idx := strings.LastIndex(s, "```"); idx >= 0 {
			s = s[:idx]
		}
	}

	return strings.TrimSpace(s)
}
