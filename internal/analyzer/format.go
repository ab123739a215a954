package analyzer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/iyulab/cyber-defense/internal/event"
)

const (
	// maxDigestMessageLen is the longest message emitted verbatim in a digest line.
	maxDigestMessageLen = 150
	// digestTruncateAt is where overlong messages are cut before the ellipsis.
	digestTruncateAt = maxDigestMessageLen - len(ellipsis)
	ellipsis         = "..."

	// DefaultDigestLimit is the number of records included in the analysis prompt.
	DefaultDigestLimit = 30
	// ChatDigestLimit is the number of records included in a chat prompt.
	ChatDigestLimit = 20
)

// FormatRecords renders up to limit records as a numbered digest, critical first,
// then high, then the rest; most recent first within a tier. The first limit
// records of the input are selected before sorting. Empty input yields "".
func FormatRecords(records []event.Record, limit int) string {
	if limit < 0 {
		limit = 0
	}
	if limit > len(records) {
		limit = len(records)
	}
	selected := make([]event.Record, limit)
	copy(selected, records[:limit])

	sort.SliceStable(selected, func(i, j int) bool {
		a, b := selected[i], selected[j]
		if at, bt := digestTier(a), digestTier(b); at != bt {
			return at > bt
		}
		return a.Timestamp.After(b.Timestamp)
	})

	lines := make([]string, 0, len(selected))
	for i, r := range selected {
		lines = append(lines, fmt.Sprintf("%2d. [%s] %-8s | %-25s | %-15s → %-15s | %s",
			i+1,
			formatTimestamp(r),
			strings.ToUpper(orUnknown(singleLine(r.Severity))),
			orUnknown(singleLine(r.EventType)),
			orUnknown(singleLine(r.SourceIP)),
			orUnknown(singleLine(r.DestIP)),
			truncateMessage(r.Message),
		))
	}
	return strings.Join(lines, "\n")
}

// digestTier groups critical, then high, then everything else.
func digestTier(r event.Record) int {
	return max(event.SeverityRank(r.Severity)-event.SeverityRank(event.SeverityMedium), 0)
}

// singleLine collapses runs of whitespace, including line breaks, to one space
// so each record stays on its own digest line.
func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func formatTimestamp(r event.Record) string {
	if r.Timestamp.IsZero() {
		return "Unknown"
	}
	return r.Timestamp.UTC().Format("2006-01-02T15:04:05")
}

// truncateMessage cuts messages longer than maxDigestMessageLen characters.
func truncateMessage(msg string) string {
	msg = singleLine(msg)
	if msg == "" {
		return "No message"
	}
	runes := []rune(msg)
	if len(runes) <= maxDigestMessageLen {
		return msg
	}
	return string(runes[:digestTruncateAt]) + ellipsis
}

// truncate cuts s to maxLen bytes and appends "..." when shortened.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
