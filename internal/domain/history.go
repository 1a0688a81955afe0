package domain

import "time"

// HistoryEntry is one recorded coverage run.
type HistoryEntry struct {
	Timestamp time.Time            `json:"timestamp" yaml:"timestamp"`
	RunID     string               `json:"runId" yaml:"runId"`
	Commit    string               `json:"commit,omitempty" yaml:"commit,omitempty"`
	Branch    string               `json:"branch,omitempty" yaml:"branch,omitempty"`
	Overall   float64              `json:"overall" yaml:"overall"`
	Files     map[string]FileEntry `json:"files" yaml:"files"`
}

// FileEntry is rule coverage for one table file at a point in time.
type FileEntry struct {
	Covered int     `json:"covered"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// History contains all recorded coverage entries.
type History struct {
	Entries []HistoryEntry `json:"entries"`
}

// LatestEntry returns the most recent entry, or nil if empty.
func (h *History) LatestEntry() *HistoryEntry {
	if len(h.Entries) == 0 {
		return nil
	}
	latest := 0
	for i := 1; i < len(h.Entries); i++ {
		if h.Entries[i].Timestamp.After(h.Entries[latest].Timestamp) {
			latest = i
		}
	}
	return &h.Entries[latest]
}

// PreviousEntry returns the entry preceding the latest, or nil.
func (h *History) PreviousEntry() *HistoryEntry {
	latest := h.LatestEntry()
	if latest == nil {
		return nil
	}
	var prev *HistoryEntry
	for i := range h.Entries {
		e := &h.Entries[i]
		if e == latest {
			continue
		}
		if prev == nil || e.Timestamp.After(prev.Timestamp) {
			prev = e
		}
	}
	return prev
}

// TrendDirection indicates whether coverage is improving, declining,
// or stable.
type TrendDirection string

const (
	TrendUp     TrendDirection = "up"
	TrendDown   TrendDirection = "down"
	TrendStable TrendDirection = "stable"
)

// Trend is the direction and magnitude of coverage change between two
// runs.
type Trend struct {
	Direction TrendDirection `json:"direction"`
	Delta     float64        `json:"delta"`
}

// CalculateTrend classifies the movement between two coverage
// percentages. Deltas within half a point count as stable.
func CalculateTrend(previous, current float64) Trend {
	delta := current - previous
	direction := TrendStable
	switch {
	case delta > 0.5:
		direction = TrendUp
	case delta < -0.5:
		direction = TrendDown
	}
	return Trend{Direction: direction, Delta: Round1(delta)}
}
