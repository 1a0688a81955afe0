package application

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rulecov/rulecov/internal/domain"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestDiscoverPairsByBaseName(t *testing.T) {
	tmp := t.TempDir()
	tables := filepath.Join(tmp, "rules")
	specs := filepath.Join(tmp, "specs")
	writeFile(t, filepath.Join(tables, "approval.table.yaml"), "x")
	writeFile(t, filepath.Join(tables, "pricing.table.yaml"), "x")
	writeFile(t, filepath.Join(tables, "nested", "billing.table.yaml"), "x")
	writeFile(t, filepath.Join(tables, "readme.md"), "x")
	writeFile(t, filepath.Join(specs, "approval.spec.yaml"), "x")
	writeFile(t, filepath.Join(specs, "billing.spec.yaml"), "x")
	writeFile(t, filepath.Join(specs, "orphan.spec.yaml"), "x")

	pairs, warnings, err := Discover(tables, specs, nil)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(pairs) != 2 {
		t.Fatalf("expected 2 pairs, got %d: %v", len(pairs), pairs)
	}
	if pairs[0].Base != "approval" || pairs[1].Base != "billing" {
		t.Fatalf("unexpected pair order: %v", pairs)
	}
	if pairs[1].TablePath != filepath.Join(tables, "nested", "billing.table.yaml") {
		t.Fatalf("nested table not discovered: %v", pairs[1])
	}
	if pairs[1].SpecPath != filepath.Join(specs, "billing.spec.yaml") {
		t.Fatalf("spec lookup must be flat: %v", pairs[1])
	}
}

func TestDiscoverExcludesMatchingSources(t *testing.T) {
	tmp := t.TempDir()
	tables := filepath.Join(tmp, "rules")
	specs := filepath.Join(tmp, "specs")
	writeFile(t, filepath.Join(tables, "approval.table.yaml"), "x")
	writeFile(t, filepath.Join(tables, "approval-draft.table.yaml"), "x")
	writeFile(t, filepath.Join(tables, "legacy", "billing.table.yaml"), "x")
	writeFile(t, filepath.Join(specs, "approval.spec.yaml"), "x")
	writeFile(t, filepath.Join(specs, "approval-draft.spec.yaml"), "x")
	writeFile(t, filepath.Join(specs, "billing.spec.yaml"), "x")

	pairs, _, err := Discover(tables, specs, []string{"*draft*", "legacy/*"})
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pairs) != 1 || pairs[0].Base != "approval" {
		t.Fatalf("expected only approval after exclusion, got %v", pairs)
	}
}

func TestDiscoverMissingRootsWarnInsteadOfFailing(t *testing.T) {
	tmp := t.TempDir()

	pairs, warnings, err := Discover(filepath.Join(tmp, "absent"), tmp, nil)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pairs) != 0 || len(warnings) != 1 {
		t.Fatalf("expected no pairs and one warning, got %v / %v", pairs, warnings)
	}

	tables := filepath.Join(tmp, "rules")
	writeFile(t, filepath.Join(tables, "a.table.yaml"), "x")
	pairs, warnings, err = Discover(tables, filepath.Join(tmp, "nospecs"), nil)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(pairs) != 0 || len(warnings) != 1 {
		t.Fatalf("expected no pairs and one warning, got %v / %v", pairs, warnings)
	}
	if !strings.Contains(warnings[0], "specs root") {
		t.Fatalf("expected specs root warning, got %q", warnings[0])
	}
}

type fakeEngine struct {
	tables map[string]*fakeTable
	err    error
}

func (f fakeEngine) Load(path string) (Table, error) {
	if f.err != nil {
		return nil, f.err
	}
	tbl, ok := f.tables[path]
	if !ok {
		return nil, &domain.SourceNotFoundError{Path: path, Err: os.ErrNotExist}
	}
	return tbl, nil
}

type fakeSpecs struct {
	cases map[string][]domain.TestCase
	errs  map[string]error
}

func (f fakeSpecs) Load(path string) ([]domain.TestCase, error) {
	if err := f.errs[path]; err != nil {
		return nil, err
	}
	return f.cases[path], nil
}

func TestRunCasesExecutesAndCollects(t *testing.T) {
	inputs := map[string]domain.Value{"age": domain.NewNumber(40)}
	tbl := &fakeTable{
		event:   matchEvent("Eligibility", inputs, "adult"),
		outputs: []domain.OutputEntry{{Name: "eligible", Value: domain.NewBool(true)}},
	}
	pair := Pair{Base: "elig", TablePath: "elig.table.yaml", SpecPath: "elig.spec.yaml"}
	svc := &Service{
		Engine: fakeEngine{tables: map[string]*fakeTable{"elig.table.yaml": tbl}},
		Specs: fakeSpecs{cases: map[string][]domain.TestCase{
			"elig.spec.yaml": {
				{Decision: "Eligibility", Inputs: inputs, Expected: "true"},
				{Decision: "Eligibility", Inputs: inputs, Expected: "false"},
			},
		}},
		Out: io.Discard,
		Err: io.Discard,
	}
	collector := domain.NewCollector()

	results, fileErrs, err := svc.runCases(context.Background(), []Pair{pair}, collector, nil)
	if err != nil {
		t.Fatalf("runCases: %v", err)
	}
	if len(fileErrs) != 0 {
		t.Fatalf("unexpected file errors: %v", fileErrs)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Err != nil {
		t.Fatalf("first case should pass: %v", results[0].Err)
	}
	if results[1].Err == nil || !strings.Contains(results[1].Err.Error(), `expected "false", got "true"`) {
		t.Fatalf("second case should fail with mismatch, got %v", results[1].Err)
	}
	if collector.Len() != 2 {
		t.Fatalf("both evaluations should record coverage, got %d", collector.Len())
	}
}

func TestRunCasesSpecLoadFailureFailsWholeFile(t *testing.T) {
	parseErr := &domain.SpecParseError{Path: "bad.spec.yaml", Err: errors.New("test 1: missing decision key")}
	svc := &Service{
		Engine: fakeEngine{},
		Specs:  fakeSpecs{errs: map[string]error{"bad.spec.yaml": parseErr}},
		Out:    io.Discard,
		Err:    io.Discard,
	}
	pair := Pair{Base: "bad", TablePath: "bad.table.yaml", SpecPath: "bad.spec.yaml"}

	results, fileErrs, err := svc.runCases(context.Background(), []Pair{pair}, domain.NewCollector(), nil)
	if err != nil {
		t.Fatalf("runCases: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("no cases should run for a failed file")
	}
	if len(fileErrs) != 1 || !errors.Is(fileErrs[0].Err, parseErr) {
		t.Fatalf("expected the parse error as a file failure, got %v", fileErrs)
	}
}

func TestRunCaseTableLoadFailureFailsCase(t *testing.T) {
	svc := &Service{
		Engine: fakeEngine{},
		Specs:  fakeSpecs{},
		Out:    io.Discard,
		Err:    io.Discard,
	}
	pair := Pair{Base: "gone", TablePath: "gone.table.yaml", SpecPath: "gone.spec.yaml"}
	tc := domain.TestCase{Decision: "D", Inputs: map[string]domain.Value{}, Expected: "x"}

	res := svc.runCase(pair, tc, domain.NewCollector(), nil)

	var nf *domain.SourceNotFoundError
	if !errors.As(res.Err, &nf) {
		t.Fatalf("expected source-not-found failure, got %v", res.Err)
	}
}

func TestRunCaseAmbiguityIsCaseFailure(t *testing.T) {
	tbl := &fakeTable{event: domain.EvaluationEvent{Decision: "D"}}
	svc := &Service{
		Engine: fakeEngine{tables: map[string]*fakeTable{"d.table.yaml": tbl}},
		Specs:  fakeSpecs{},
		Out:    io.Discard,
		Err:    io.Discard,
	}
	pair := Pair{Base: "d", TablePath: "d.table.yaml", SpecPath: "d.spec.yaml"}
	tc := domain.TestCase{Decision: "D", Inputs: map[string]domain.Value{}, Expected: "x"}

	res := svc.runCase(pair, tc, domain.NewCollector(), nil)

	var amb *domain.AmbiguousEvaluationError
	if !errors.As(res.Err, &amb) {
		t.Fatalf("expected ambiguous failure, got %v", res.Err)
	}
}
