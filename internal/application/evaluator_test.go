package application

import (
	"errors"
	"sync"
	"testing"

	"github.com/rulecov/rulecov/internal/domain"
)

type fakeTable struct {
	path    string
	event   domain.EvaluationEvent
	outputs []domain.OutputEntry
	err     error

	mu       sync.Mutex
	calls    int
	gotInput map[string]domain.Value
}

func (f *fakeTable) Path() string        { return f.path }
func (f *fakeTable) Decisions() []string { return nil }

func (f *fakeTable) Evaluate(decision string, inputs map[string]domain.Value) (domain.EvaluationEvent, []domain.OutputEntry, error) {
	f.mu.Lock()
	f.calls++
	f.gotInput = inputs
	f.mu.Unlock()
	return f.event, f.outputs, f.err
}

func (f *fakeTable) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func matchEvent(decision string, inputs map[string]domain.Value, ruleIDs ...string) domain.EvaluationEvent {
	ev := domain.EvaluationEvent{Decision: decision, Inputs: domain.CopyValues(inputs)}
	for _, id := range ruleIDs {
		ev.Matches = append(ev.Matches, domain.RuleMatch{RuleID: id})
	}
	return ev
}

func TestEvaluatorRecordsCoveragePerMatchedRule(t *testing.T) {
	inputs := map[string]domain.Value{"age": domain.NewNumber(30)}
	tbl := &fakeTable{
		event:   matchEvent("Eligibility", inputs, "adult", "fallback"),
		outputs: []domain.OutputEntry{{Name: "eligible", Value: domain.NewBool(true)}},
	}
	collector := domain.NewCollector()

	res, err := NewEvaluator(tbl, collector).Evaluate("Eligibility", inputs)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if res == nil {
		t.Fatalf("expected result")
	}

	events := collector.Snapshot()
	if len(events) != 2 {
		t.Fatalf("expected 2 coverage events, got %d", len(events))
	}
	if events[0].RuleID != "adult" || events[1].RuleID != "fallback" {
		t.Fatalf("unexpected rule ids: %v %v", events[0].RuleID, events[1].RuleID)
	}
	for _, ev := range events {
		if ev.Decision != "Eligibility" {
			t.Fatalf("unexpected decision %q", ev.Decision)
		}
		got, err := ev.Parameters["age"].AsNumber()
		if err != nil || got != 30 {
			t.Fatalf("expected snapshot age 30, got %v (%v)", got, err)
		}
	}

	// Each event owns its parameters; mutating one must not leak.
	events[0].Parameters["age"] = domain.NewNumber(99)
	if v, _ := collector.Snapshot()[1].Parameters["age"].AsNumber(); v != 30 {
		t.Fatalf("coverage events must not share parameter maps")
	}
}

func TestEvaluatorTraceSeesSuccessfulEvaluationsOnly(t *testing.T) {
	inputs := map[string]domain.Value{"age": domain.NewNumber(30)}
	tbl := &fakeTable{
		event:   matchEvent("Eligibility", inputs, "adult"),
		outputs: []domain.OutputEntry{{Name: "eligible", Value: domain.NewBool(true)}},
	}
	var traced []domain.EvaluationEvent
	ev := NewEvaluator(tbl, nil).WithTrace(func(e domain.EvaluationEvent) {
		traced = append(traced, e)
	})

	if _, err := ev.Evaluate("Eligibility", inputs); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(traced) != 1 || traced[0].Decision != "Eligibility" {
		t.Fatalf("expected one traced event, got %v", traced)
	}
	if ids := traced[0].MatchedRuleIDs(); len(ids) != 1 || ids[0] != "adult" {
		t.Fatalf("traced event should carry matched rules, got %v", ids)
	}

	// Failed evaluations never reach the trace.
	tbl.event = domain.EvaluationEvent{Decision: "Eligibility"}
	if _, err := ev.Evaluate("Eligibility", inputs); err == nil {
		t.Fatalf("expected ambiguity error")
	}
	if len(traced) != 1 {
		t.Fatalf("ambiguous evaluation must not be traced")
	}
}

func TestEvaluatorNilInputsIsUsageError(t *testing.T) {
	tbl := &fakeTable{}

	_, err := NewEvaluator(tbl, nil).Evaluate("Pricing", nil)

	var ge *domain.EvaluationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected evaluation error, got %v", err)
	}
	if tbl.callCount() != 0 {
		t.Fatalf("nil inputs must not reach the engine")
	}
}

func TestEvaluatorAmbiguousWhenNothingMatched(t *testing.T) {
	tbl := &fakeTable{event: domain.EvaluationEvent{Decision: "Pricing"}}
	collector := domain.NewCollector()

	_, err := NewEvaluator(tbl, collector).Evaluate("Pricing", map[string]domain.Value{})

	var amb *domain.AmbiguousEvaluationError
	if !errors.As(err, &amb) {
		t.Fatalf("expected ambiguous error, got %v", err)
	}
	if amb.Decision != "Pricing" {
		t.Fatalf("expected decision in error, got %q", amb.Decision)
	}
	if collector.Len() != 0 {
		t.Fatalf("ambiguous evaluations must record nothing")
	}
}

func TestEvaluatorWrapsEngineErrors(t *testing.T) {
	cause := errors.New("cell exploded")
	tbl := &fakeTable{err: cause}

	_, err := NewEvaluator(tbl, nil).Evaluate("Pricing", map[string]domain.Value{})

	var ge *domain.EvaluationError
	if !errors.As(err, &ge) {
		t.Fatalf("expected evaluation error, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause")
	}
}

func TestEvaluatorNilCollectorDisablesRecording(t *testing.T) {
	inputs := map[string]domain.Value{}
	tbl := &fakeTable{
		event:   matchEvent("Pricing", inputs, "r1"),
		outputs: []domain.OutputEntry{{Name: "price", Value: domain.NewNumber(9.5)}},
	}

	res, err := NewEvaluator(tbl, nil).Evaluate("Pricing", inputs)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	n, err := res.AsNumber()
	if err != nil || n != 9.5 {
		t.Fatalf("expected 9.5, got %v (%v)", n, err)
	}
}

func TestEvalResultAccessors(t *testing.T) {
	single := func(v domain.Value) *EvalResult {
		return &EvalResult{decision: "D", outputs: []domain.OutputEntry{{Name: "out", Value: v}}}
	}

	if s, err := single(domain.NewString("Adult")).AsString(); err != nil || s != "Adult" {
		t.Fatalf("AsString: %v %v", s, err)
	}
	if b, err := single(domain.NewString("TRUE")).AsBool(); err != nil || !b {
		t.Fatalf("AsBool literal: %v %v", b, err)
	}
	if _, err := single(domain.NewString("yes")).AsBool(); err == nil {
		t.Fatalf("AsBool must reject non-literal strings")
	} else {
		var ge *domain.EvaluationError
		if !errors.As(err, &ge) {
			t.Fatalf("conversion failures surface as evaluation errors, got %v", err)
		}
	}
	if n, err := single(domain.NewString("42.5")).AsNumber(); err != nil || n != 42.5 {
		t.Fatalf("AsNumber: %v %v", n, err)
	}
	if _, err := single(domain.NewString("abc")).AsNumber(); err == nil {
		t.Fatalf("AsNumber must reject non-decimal strings")
	}

	multi := &EvalResult{decision: "D", outputs: []domain.OutputEntry{
		{Name: "a", Value: domain.NewNumber(1)},
		{Name: "b", Value: domain.NewString("x")},
	}}
	if _, err := multi.SingleEntry(); err == nil {
		t.Fatalf("SingleEntry must fail with two entries")
	}
	if v, ok := multi.Entry("b"); !ok || v.AsString() != "x" {
		t.Fatalf("Entry lookup failed")
	}
	if _, ok := multi.Entry("c"); ok {
		t.Fatalf("unknown entry must not resolve")
	}
}
