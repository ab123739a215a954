package analyzer

import (
	"sort"

	"github.com/iyulab/cyber-defense/internal/event"
)

// Frequency is one entry of a frequency table.
type Frequency struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Statistics summarizes a batch of records. Frequency tables are sorted by
// descending count; ties keep first-seen order.
type Statistics struct {
	Total      int         `json:"total"`
	Critical   int         `json:"critical"`
	High       int         `json:"high"`
	Medium     int         `json:"medium"`
	Low        int         `json:"low"`
	EventTypes []Frequency `json:"event_types"`
	SourceIPs  []Frequency `json:"source_ips"`
	DestIPs    []Frequency `json:"dest_ips"`
}

// Summarize computes Statistics over records. Severities outside the canonical
// set count toward Total only.
func Summarize(records []event.Record) Statistics {
	stats := Statistics{Total: len(records)}

	eventTypes := newCounter()
	sources := newCounter()
	dests := newCounter()

	for _, r := range records {
		switch event.NormalizeSeverity(r.Severity) {
		case event.SeverityCritical:
			stats.Critical++
		case event.SeverityHigh:
			stats.High++
		case event.SeverityMedium:
			stats.Medium++
		case event.SeverityLow:
			stats.Low++
		}

		eventTypes.add(orUnknown(r.EventType))
		sources.add(orUnknown(r.SourceIP))
		dests.add(orUnknown(r.DestIP))
	}

	stats.EventTypes = eventTypes.sorted()
	stats.SourceIPs = sources.sorted()
	stats.DestIPs = dests.sorted()
	return stats
}

// TopEventTypes returns up to n labels from the event-type table.
func (s Statistics) TopEventTypes(n int) []string {
	return topLabels(s.EventTypes, n)
}

func topLabels(table []Frequency, n int) []string {
	if n > len(table) {
		n = len(table)
	}
	labels := make([]string, 0, n)
	for _, f := range table[:n] {
		labels = append(labels, f.Label)
	}
	return labels
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

// counter is an insertion-ordered occurrence counter.
type counter struct {
	index map[string]int
	table []Frequency
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) add(label string) {
	if i, ok := c.index[label]; ok {
		c.table[i].Count++
		return
	}
	c.index[label] = len(c.table)
	c.table = append(c.table, Frequency{Label: label, Count: 1})
}

func (c *counter) sorted() []Frequency {
	out := make([]Frequency, len(c.table))
	copy(out, c.table)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
