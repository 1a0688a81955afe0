package application

import (
	"errors"
	"fmt"

	"github.com/rulecov/rulecov/internal/domain"
)

// Evaluator wraps a loaded table behind the two-error contract callers
// rely on: every failed evaluation surfaces as either an ambiguous
// evaluation (nothing matched) or a generic evaluation error wrapping
// the cause, never as a raw engine error. Instances are case-local;
// share the collector, not the evaluator.
type Evaluator struct {
	table     Table
	collector *domain.Collector
	trace     func(domain.EvaluationEvent)
}

// NewEvaluator wraps table. A nil collector disables coverage
// recording without changing evaluation behavior.
func NewEvaluator(table Table, collector *domain.Collector) *Evaluator {
	return &Evaluator{table: table, collector: collector}
}

// WithTrace registers fn to observe every successful evaluation. The
// callback sees the event after coverage is recorded and must be safe
// for concurrent use when the evaluator's callers are concurrent.
func (e *Evaluator) WithTrace(fn func(domain.EvaluationEvent)) *Evaluator {
	e.trace = fn
	return e
}

// Evaluate runs one decision against inputs. Inputs may be empty but
// not nil; passing a nil map is a usage error, not an empty
// evaluation. When a collector is attached, one coverage event is
// recorded per matched rule, each carrying its own copy of the input
// snapshot.
func (e *Evaluator) Evaluate(decision string, inputs map[string]domain.Value) (*EvalResult, error) {
	if inputs == nil {
		return nil, &domain.EvaluationError{Decision: decision, Err: errors.New("nil input map")}
	}
	event, outputs, err := e.table.Evaluate(decision, inputs)
	if err != nil {
		return nil, &domain.EvaluationError{Decision: decision, Err: err}
	}
	if len(event.Matches) == 0 {
		return nil, &domain.AmbiguousEvaluationError{Decision: decision}
	}
	if e.collector != nil {
		events := make([]domain.CoverageEvent, 0, len(event.Matches))
		for _, m := range event.Matches {
			events = append(events, domain.CoverageEvent{
				Decision:   event.Decision,
				RuleID:     m.RuleID,
				Parameters: domain.CopyValues(event.Inputs),
			})
		}
		e.collector.Record(events...)
	}
	if e.trace != nil {
		e.trace(event)
	}
	return &EvalResult{decision: decision, outputs: outputs}, nil
}

// EvalResult is the typed view over the applied rule's outputs.
type EvalResult struct {
	decision string
	outputs  []domain.OutputEntry
}

// Outputs returns the applied rule's output entries in column order.
func (r *EvalResult) Outputs() []domain.OutputEntry {
	out := make([]domain.OutputEntry, len(r.outputs))
	copy(out, r.outputs)
	return out
}

// Entry looks up one output entry by name.
func (r *EvalResult) Entry(name string) (domain.Value, bool) {
	for _, e := range r.outputs {
		if e.Name == name {
			return e.Value, true
		}
	}
	return domain.Value{}, false
}

// SingleEntry returns the result's only output entry and fails when
// the applied rule produced zero or several entries.
func (r *EvalResult) SingleEntry() (domain.Value, error) {
	if len(r.outputs) != 1 {
		return domain.Value{}, &domain.EvaluationError{
			Decision: r.decision,
			Err:      fmt.Errorf("expected a single output entry, got %d", len(r.outputs)),
		}
	}
	return r.outputs[0].Value, nil
}

// AsString renders the single output entry as a string.
func (r *EvalResult) AsString() (string, error) {
	v, err := r.SingleEntry()
	if err != nil {
		return "", err
	}
	return v.AsString(), nil
}

// AsBool converts the single output entry: native booleans and the
// case-insensitive literals "true"/"false" only.
func (r *EvalResult) AsBool() (bool, error) {
	v, err := r.SingleEntry()
	if err != nil {
		return false, err
	}
	b, err := v.AsBool()
	if err != nil {
		return false, &domain.EvaluationError{Decision: r.decision, Err: err}
	}
	return b, nil
}

// AsNumber converts the single output entry: native numbers and
// decimal strings only.
func (r *EvalResult) AsNumber() (float64, error) {
	v, err := r.SingleEntry()
	if err != nil {
		return 0, err
	}
	n, err := v.AsNumber()
	if err != nil {
		return 0, &domain.EvaluationError{Decision: r.decision, Err: err}
	}
	return n, nil
}
