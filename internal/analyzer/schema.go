// Package analyzer turns stored security events into threat assessments and chat
// answers, using a generative-text gateway when available and keyword heuristics otherwise.
package analyzer

import "github.com/iyulab/cyber-defense/internal/event"

// Assessment is the structured threat assessment returned by both the gateway
// path and the heuristic fallback.
type Assessment struct {
	Summary                string   `json:"summary"`
	ThreatsIdentified      []string `json:"threats_identified"`
	SeverityClassification string   `json:"severity_classification"`
	Recommendations        []string `json:"recommendations"`
	TotalLogsAnalyzed      int      `json:"total_logs_analyzed"`
}

// Source records which path produced an Assessment. It is never serialized to
// clients; it exists for logs and metrics.
type Source string

const (
	SourceGateway  Source = "ai"
	SourceScrape   Source = "scrape"
	SourceFallback Source = "fallback"
	SourceEmpty    Source = "empty"
)

// requiredAssessmentKeys must all be present in a gateway JSON reply.
var requiredAssessmentKeys = []string{
	"summary",
	"threats_identified",
	"severity_classification",
	"recommendations",
}

// EmptyAssessment is returned when there are no records to analyze.
func EmptyAssessment() Assessment {
	return Assessment{
		Summary:                "No logs available for analysis",
		ThreatsIdentified:      []string{},
		SeverityClassification: event.SeverityLow,
		Recommendations:        []string{},
		TotalLogsAnalyzed:      0,
	}
}

// AssessmentSchemaText is embedded verbatim in the analysis prompt. %d is the record count.
const AssessmentSchemaText = `{
  "summary": "Detailed 2-3 sentence overview of the security landscape and key threats",
  "threats_identified": ["specific_threat_1", "specific_threat_2", "specific_threat_3", "specific_threat_4"],
  "severity_classification": "low/medium/high/critical",
  "recommendations": ["actionable_recommendation_1", "actionable_recommendation_2", "actionable_recommendation_3", "actionable_recommendation_4"],
  "total_logs_analyzed": %d
}`
