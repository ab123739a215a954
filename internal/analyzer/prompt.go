package analyzer

import (
	"fmt"
	"strings"

	"github.com/iyulab/cyber-defense/internal/event"
)

// AnalysisPrompt is the threat-assessment template. Arguments in order: total,
// critical, high, medium, low, distinct event types, top event types, digest,
// and the schema block.
const AnalysisPrompt = `You are an expert SOC (Security Operations Center) cyber defense analyst analyzing military network security logs.

DATASET OVERVIEW:
Total Logs: %d
Critical Events: %d
High Severity: %d
Medium Severity: %d
Low Severity: %d
Unique Event Types: %d
Top Event Types: %s

RECENT SECURITY EVENTS (Sample):
%s

ANALYSIS REQUIREMENTS:
Provide a comprehensive threat assessment in this EXACT JSON format:
%s

ANALYSIS FOCUS:
- Network intrusions and lateral movement
- Brute force attacks and credential stuffing
- Malware communications and C2 traffic
- Privilege escalation and system compromise
- Reconnaissance and vulnerability scanning
- Anomalous authentication patterns
- Data exfiltration attempts

Provide specific, actionable intelligence for SOC teams. Return ONLY the JSON object with no additional text.`

// ChatPrompt is the conversational template. Arguments: context size, digest, question.
const ChatPrompt = `You are an expert SOC cyber defense analyst. Provide specific, data-driven responses based on actual log analysis.

SECURITY CONTEXT - Analyzing %d recent events:
%s

ANALYST QUESTION: %s

INSTRUCTIONS:
- Reference specific IPs, timestamps, and event details from the logs
- Provide concrete, actionable information
- Use technical SOC terminology
- Be specific rather than generic
- If data exists in logs, cite it directly
- Keep response focused and under 300 words

Respond as a professional SOC analyst would.`

// BuildAnalysisPrompt creates the threat-assessment prompt for a record batch.
func BuildAnalysisPrompt(stats Statistics, digest string) string {
	return fmt.Sprintf(AnalysisPrompt,
		stats.Total,
		stats.Critical,
		stats.High,
		stats.Medium,
		stats.Low,
		len(stats.EventTypes),
		strings.Join(stats.TopEventTypes(5), ", "),
		digest,
		fmt.Sprintf(AssessmentSchemaText, stats.Total),
	)
}

// BuildChatPrompt creates the free-form Q&A prompt. Only the first
// ChatDigestLimit records are rendered; the context size reports all of them.
func BuildChatPrompt(question string, records []event.Record) string {
	return fmt.Sprintf(ChatPrompt, len(records), FormatRecords(records, ChatDigestLimit), question)
}
