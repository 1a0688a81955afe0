// Package dtable parses and evaluates YAML decision tables. Condition
// and output cells are CEL expressions compiled at load time; hit
// policies are single-result only.
package dtable

// HitPolicy governs how multiple matching rules combine.
type HitPolicy string

const (
	// HitUnique requires at most one rule to match.
	HitUnique HitPolicy = "unique"
	// HitFirst applies the first matching rule in table order.
	HitFirst HitPolicy = "first"
	// HitAny allows several matches as long as their outputs agree.
	HitAny HitPolicy = "any"
)

func validHitPolicy(p HitPolicy) bool {
	switch p {
	case HitUnique, HitFirst, HitAny:
		return true
	}
	return false
}

// File is one parsed table source holding one or more decisions.
type File struct {
	Decisions []Decision
}

// Decision is one decision table: declared input variables, named
// output columns, and rules in table order.
type Decision struct {
	Key       string
	HitPolicy HitPolicy
	Inputs    []string
	Outputs   []string
	Rules     []Rule
}

// Rule is one table row. When holds one condition cell per declared
// input (empty or "-" always matches); Then holds one output cell per
// output column.
type Rule struct {
	ID   string
	When []string
	Then []string
}
