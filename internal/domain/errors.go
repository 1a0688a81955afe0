package domain

import "fmt"

// SourceNotFoundError reports an unreadable rule-table source path.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("rule source not found: %s", e.Path)
}

func (e *SourceNotFoundError) Unwrap() error { return e.Err }

// DecisionNotFoundError reports a decision key absent from a
// successfully loaded source.
type DecisionNotFoundError struct {
	Decision string
	Path     string
}

func (e *DecisionNotFoundError) Error() string {
	return fmt.Sprintf("decision %q not found in %s", e.Decision, e.Path)
}

// RuleNotFoundError reports a decision that exists but carries no
// rules. Raised only by catalog enumeration; zero rules covered is a
// reporting state, not an error.
type RuleNotFoundError struct {
	Decision string
	Path     string
}

func (e *RuleNotFoundError) Error() string {
	return fmt.Sprintf("decision %q in %s has no rules", e.Decision, e.Path)
}

// AmbiguousEvaluationError reports an evaluation in which no rule's
// conditions were satisfied. Tests can assert on it to cover
// intentionally unmatched scenarios.
type AmbiguousEvaluationError struct {
	Decision string
}

func (e *AmbiguousEvaluationError) Error() string {
	return fmt.Sprintf("evaluation matched no rules for decision %q", e.Decision)
}

// EvaluationError wraps any non-ambiguity failure during evaluation
// (conversion failures, engine errors, invalid input containers) with
// the decision key for diagnosis.
type EvaluationError struct {
	Decision string
	Err      error
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("evaluating decision %q: %v", e.Decision, e.Err)
}

func (e *EvaluationError) Unwrap() error { return e.Err }

// SpecParseError reports a malformed specification file. It fails that
// file's discovery only; other files keep loading.
type SpecParseError struct {
	Path string
	Err  error
}

func (e *SpecParseError) Error() string {
	return fmt.Sprintf("parsing spec %s: %v", e.Path, e.Err)
}

func (e *SpecParseError) Unwrap() error { return e.Err }
