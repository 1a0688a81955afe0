package dtable

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/rulecov/rulecov/internal/domain"
)

const evalCostLimit = 1_000_000

// Engine loads table sources and compiles every cell expression up
// front, so malformed tables fail at load rather than mid-evaluation.
type Engine struct{}

// NewEngine returns a stateless table engine.
func NewEngine() Engine {
	return Engine{}
}

type compiledRule struct {
	id string
	// conditions align with the decision's inputs; a nil entry is a
	// wildcard cell that matches anything.
	conditions []cel.Program
	outputs    []cel.Program
}

type compiledDecision struct {
	def   Decision
	rules []compiledRule
}

// Table is a loaded, compiled source ready for evaluation.
type Table struct {
	path      string
	order     []string
	decisions map[string]*compiledDecision
}

// Load parses and compiles the table file at path.
func (e Engine) Load(path string) (*Table, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	return e.compile(path, f)
}

// LoadSource parses and compiles an in-memory table source. name is
// used in place of a file path in errors and events.
func (e Engine) LoadSource(name string, data []byte) (*Table, error) {
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return e.compile(name, f)
}

func (Engine) compile(path string, f File) (*Table, error) {
	t := &Table{
		path:      path,
		order:     make([]string, 0, len(f.Decisions)),
		decisions: make(map[string]*compiledDecision, len(f.Decisions)),
	}
	for _, d := range f.Decisions {
		cd, err := compileDecision(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		t.order = append(t.order, d.Key)
		t.decisions[d.Key] = cd
	}
	return t, nil
}

func compileDecision(d Decision) (*compiledDecision, error) {
	opts := make([]cel.EnvOption, 0, len(d.Inputs)+1)
	opts = append(opts, cel.CrossTypeNumericComparisons(true))
	for _, in := range d.Inputs {
		opts = append(opts, cel.Variable(in, cel.DynType))
	}
	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("decision %q: building environment: %w", d.Key, err)
	}

	cd := &compiledDecision{def: d, rules: make([]compiledRule, 0, len(d.Rules))}
	for _, r := range d.Rules {
		cr := compiledRule{
			id:         r.ID,
			conditions: make([]cel.Program, len(r.When)),
			outputs:    make([]cel.Program, len(r.Then)),
		}
		for i, cell := range r.When {
			if wildcardCell(cell) {
				continue
			}
			prog, err := compileCell(env, cell)
			if err != nil {
				return nil, fmt.Errorf("decision %q rule %q condition %q: %w", d.Key, r.ID, d.Inputs[i], err)
			}
			cr.conditions[i] = prog
		}
		for i, cell := range r.Then {
			prog, err := compileCell(env, cell)
			if err != nil {
				return nil, fmt.Errorf("decision %q rule %q output %q: %w", d.Key, r.ID, d.Outputs[i], err)
			}
			cr.outputs[i] = prog
		}
		cd.rules = append(cd.rules, cr)
	}
	return cd, nil
}

func wildcardCell(cell string) bool {
	s := strings.TrimSpace(cell)
	return s == "" || s == "-"
}

func compileCell(env *cel.Env, cell string) (cel.Program, error) {
	ast, issues := env.Compile(cell)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	prog, err := env.Program(ast, cel.CostLimit(evalCostLimit))
	if err != nil {
		return nil, err
	}
	return prog, nil
}

// Path reports the source path or name the table was loaded from.
func (t *Table) Path() string { return t.path }

// Decisions lists decision keys in source order.
func (t *Table) Decisions() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Evaluate runs one decision against the given inputs. It returns the
// evaluation event describing every matched rule, plus the outputs of
// the applied rule (nil when nothing matched). A condition cell that
// errors or yields a non-boolean makes its rule a non-match; an output
// cell that fails is a hard error.
func (t *Table) Evaluate(decision string, inputs map[string]domain.Value) (domain.EvaluationEvent, []domain.OutputEntry, error) {
	cd, ok := t.decisions[decision]
	if !ok {
		return domain.EvaluationEvent{}, nil, &domain.DecisionNotFoundError{Decision: decision, Path: t.path}
	}

	activation := make(map[string]any, len(inputs))
	for name, v := range inputs {
		activation[name] = v.Native()
	}

	var matched []compiledRule
	for _, rule := range cd.rules {
		if ruleApplies(rule, activation) {
			matched = append(matched, rule)
			if cd.def.HitPolicy == HitFirst {
				break
			}
		}
	}
	if cd.def.HitPolicy == HitUnique && len(matched) > 1 {
		ids := make([]string, len(matched))
		for i, r := range matched {
			ids[i] = r.id
		}
		return domain.EvaluationEvent{}, nil, fmt.Errorf("decision %q: hit policy unique violated, rules %s all matched", decision, strings.Join(ids, ", "))
	}

	event := domain.EvaluationEvent{
		Decision: decision,
		Inputs:   domain.CopyValues(inputs),
		Matches:  make([]domain.RuleMatch, 0, len(matched)),
	}
	for _, rule := range matched {
		outs, err := evalOutputs(cd, rule, activation)
		if err != nil {
			return domain.EvaluationEvent{}, nil, err
		}
		event.Matches = append(event.Matches, domain.RuleMatch{RuleID: rule.id, Outputs: outs})
	}
	if cd.def.HitPolicy == HitAny && len(event.Matches) > 1 {
		first := event.Matches[0]
		for _, m := range event.Matches[1:] {
			if !outputsEqual(first.Outputs, m.Outputs) {
				return domain.EvaluationEvent{}, nil, fmt.Errorf("decision %q: hit policy any violated, rules %s and %s disagree", decision, first.RuleID, m.RuleID)
			}
		}
	}

	var applied []domain.OutputEntry
	if len(event.Matches) > 0 {
		applied = event.Matches[0].Outputs
	}
	return event, applied, nil
}

func ruleApplies(rule compiledRule, activation map[string]any) bool {
	for _, prog := range rule.conditions {
		if prog == nil {
			continue
		}
		val, _, err := prog.Eval(activation)
		if err != nil {
			return false
		}
		b, ok := val.Value().(bool)
		if !ok || !b {
			return false
		}
	}
	return true
}

func evalOutputs(cd *compiledDecision, rule compiledRule, activation map[string]any) ([]domain.OutputEntry, error) {
	entries := make([]domain.OutputEntry, 0, len(rule.outputs))
	for i, prog := range rule.outputs {
		name := cd.def.Outputs[i]
		val, _, err := prog.Eval(activation)
		if err != nil {
			return nil, fmt.Errorf("decision %q rule %q output %q: %w", cd.def.Key, rule.id, name, err)
		}
		v, err := domain.FromAny(val.Value())
		if err != nil {
			return nil, fmt.Errorf("decision %q rule %q output %q: %w", cd.def.Key, rule.id, name, err)
		}
		entries = append(entries, domain.OutputEntry{Name: name, Value: v})
	}
	return entries, nil
}

func outputsEqual(a, b []domain.OutputEntry) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || !a[i].Value.Equal(b[i].Value) {
			return false
		}
	}
	return true
}
