package domain

// Status is the outcome of a policy check.
type Status string

const (
	StatusPass Status = "PASS"
	StatusFail Status = "FAIL"
)

// DecisionPolicy overrides the minimum coverage for one decision key.
type DecisionPolicy struct {
	Key string
	Min *float64
}

// Policy sets minimum rule-coverage percentages: a default that
// applies everywhere plus per-decision overrides.
type Policy struct {
	DefaultMin float64
	Decisions  []DecisionPolicy
}

// MinFor returns the minimum coverage percent required for a decision.
func (p Policy) MinFor(key string) float64 {
	for _, d := range p.Decisions {
		if d.Key == key && d.Min != nil {
			return *d.Min
		}
	}
	return p.DefaultMin
}

// DecisionResult is the policy verdict for one decision.
type DecisionResult struct {
	File     string  `json:"file"`
	Decision string  `json:"decision"`
	Covered  int     `json:"covered"`
	Total    int     `json:"total"`
	Percent  float64 `json:"percent"`
	Required float64 `json:"required"`
	Status   Status  `json:"status"`
}

// PolicyResult is the verdict across a whole report.
type PolicyResult struct {
	Passed    bool             `json:"passed"`
	Decisions []DecisionResult `json:"decisions"`
}

// EvaluatePolicy checks every decision in the report against the
// policy's minimums. Thresholds are percentages; report ratios are
// scaled before comparison.
func EvaluatePolicy(p Policy, rep Report) PolicyResult {
	result := PolicyResult{Passed: true}
	for _, file := range rep.Files {
		for _, dc := range file.Decisions {
			percent := Round1(dc.Coverage * 100)
			required := p.MinFor(dc.Decision)
			status := StatusPass
			if percent < required {
				status = StatusFail
				result.Passed = false
			}
			result.Decisions = append(result.Decisions, DecisionResult{
				File:     file.Path,
				Decision: dc.Decision,
				Covered:  dc.CoveredRules,
				Total:    dc.TotalRules,
				Percent:  percent,
				Required: required,
				Status:   status,
			})
		}
	}
	return result
}
