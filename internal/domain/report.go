package domain

import (
	"fmt"
	"math"
	"strconv"
)

// RuleDescriptor is the catalog view of one rule: its id plus the raw
// condition and output expression text, in column order. Descriptors
// are rebuilt on every catalog read and used only for reporting.
type RuleDescriptor struct {
	ID         string
	Conditions []string
	Outputs    []string
}

// DecisionRules pairs a decision key with its full rule inventory, in
// catalog order.
type DecisionRules struct {
	Decision string
	Rules    []RuleDescriptor
}

// CoverageStat is a covered/total pair.
type CoverageStat struct {
	Covered int `json:"covered"`
	Total   int `json:"total"`
}

// Ratio returns covered/total in 0.0-1.0. A decision with zero rules
// counts as fully covered; there is nothing left to exercise.
func (s CoverageStat) Ratio() float64 {
	if s.Total == 0 {
		return 1.0
	}
	return float64(s.Covered) / float64(s.Total)
}

// Percent returns the ratio scaled to 0-100.
func (s CoverageStat) Percent() float64 {
	return s.Ratio() * 100
}

// DecisionCoverage reports rule coverage for one decision.
type DecisionCoverage struct {
	Decision       string   `json:"decision"`
	TotalRules     int      `json:"totalRules"`
	CoveredRules   int      `json:"coveredRules"`
	Coverage       float64  `json:"coverage"`
	UncoveredRules []string `json:"uncoveredRules"`
}

// FileCoverage reports coverage for every decision in one source file,
// plus a summary computed by summing rule counts across decisions
// before dividing. Averaging per-decision ratios instead would
// misweight decisions with different rule counts.
type FileCoverage struct {
	Path      string             `json:"path"`
	Decisions []DecisionCoverage `json:"decisions"`
	Summary   CoverageStat       `json:"summary"`
}

// Report is the aggregate coverage report: one entry per discovered
// source file, in discovery order.
type Report struct {
	Files []FileCoverage `json:"files"`
}

// Overall sums rule counts across all files.
func (r Report) Overall() CoverageStat {
	var total CoverageStat
	for _, f := range r.Files {
		total.Covered += f.Summary.Covered
		total.Total += f.Summary.Total
	}
	return total
}

// BuildFileCoverage cross-references one file's rule inventory with
// the recorded coverage events. Duplicate events collapse on
// (decision, ruleId); event order never affects the result. Uncovered
// rules keep catalog order. Events naming a rule the catalog does not
// know are returned as warnings rather than silently dropped.
func BuildFileCoverage(path string, decisions []DecisionRules, events []CoverageEvent) (FileCoverage, []string) {
	covered := make(map[string]map[string]bool, len(decisions))
	known := make(map[string]map[string]bool, len(decisions))
	for _, d := range decisions {
		rules := make(map[string]bool, len(d.Rules))
		for _, r := range d.Rules {
			rules[r.ID] = true
		}
		known[d.Decision] = rules
		covered[d.Decision] = make(map[string]bool)
	}

	var warnings []string
	for _, ev := range events {
		rules, ok := known[ev.Decision]
		if !ok {
			continue
		}
		if !rules[ev.RuleID] {
			warnings = append(warnings, fmt.Sprintf("coverage event for unknown rule %s/%s in %s", ev.Decision, ev.RuleID, path))
			continue
		}
		covered[ev.Decision][ev.RuleID] = true
	}

	fc := FileCoverage{Path: path, Decisions: make([]DecisionCoverage, 0, len(decisions))}
	for _, d := range decisions {
		hit := covered[d.Decision]
		uncovered := make([]string, 0)
		for _, r := range d.Rules {
			if !hit[r.ID] {
				uncovered = append(uncovered, r.ID)
			}
		}
		stat := CoverageStat{Covered: len(hit), Total: len(d.Rules)}
		fc.Decisions = append(fc.Decisions, DecisionCoverage{
			Decision:       d.Decision,
			TotalRules:     stat.Total,
			CoveredRules:   stat.Covered,
			Coverage:       stat.Ratio(),
			UncoveredRules: uncovered,
		})
		fc.Summary.Covered += stat.Covered
		fc.Summary.Total += stat.Total
	}
	return fc, warnings
}

// Round1 rounds to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatRatio renders a coverage ratio with an explicit decimal point
// so report consumers always read a float.
func FormatRatio(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for _, c := range s {
		if c == '.' || c == 'e' {
			return s
		}
	}
	return s + ".0"
}
