// Package event defines the security event record stored and analyzed by the service.
package event

import (
	"strings"
	"time"
)

// Canonical severity levels.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Severities lists the canonical levels from least to most severe.
var Severities = []string{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}

// ValidSeverities are the accepted severity values after normalization.
var ValidSeverities = map[string]bool{
	SeverityLow:      true,
	SeverityMedium:   true,
	SeverityHigh:     true,
	SeverityCritical: true,
}

// Record is one observed security event.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Timestamp time.Time `gorm:"index" json:"timestamp"`
	SourceIP  string    `gorm:"column:source_ip;type:varchar(255);index" json:"source_ip"`
	DestIP    string    `gorm:"column:dest_ip;type:varchar(255);index" json:"dest_ip"`
	EventType string    `gorm:"column:event_type;type:varchar(100);index" json:"event_type"`
	Severity  string    `gorm:"column:severity;type:varchar(20);index" json:"severity"`
	Message   string    `gorm:"column:message;type:text" json:"message"`
}

// TableName keeps the table name stable across GORM naming strategies.
func (Record) TableName() string {
	return "security_logs"
}

// Normalize lower-cases the severity and defaults a zero timestamp to now.
// Timestamps are kept in UTC so window comparisons behave the same on every driver.
func (r *Record) Normalize(now time.Time) {
	r.Severity = NormalizeSeverity(r.Severity)
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	r.Timestamp = r.Timestamp.UTC()
}

// NormalizeSeverity lower-cases and trims a severity value. Values outside the
// canonical set are returned as-is (lower-cased); callers count them as unrecognized.
func NormalizeSeverity(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidSeverity reports whether s is one of the canonical levels after normalization.
func ValidSeverity(s string) bool {
	return ValidSeverities[NormalizeSeverity(s)]
}

// SeverityRank orders severities: critical=4, high=3, medium=2, low=1, anything else 0.
func SeverityRank(s string) int {
	switch NormalizeSeverity(s) {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}
