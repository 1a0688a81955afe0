// Package specfile loads declarative test specifications that pair
// with decision-table sources by base name.
package specfile

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rulecov/rulecov/internal/domain"
)

type fileDoc struct {
	Tests yaml.Node `yaml:"tests"`
}

type caseDoc struct {
	Description string         `yaml:"description"`
	Decision    string         `yaml:"decision"`
	In          map[string]any `yaml:"in"`
	Out         yaml.Node      `yaml:"out"`
}

// Loader reads spec files from disk.
type Loader struct{}

// Load parses the spec file at path into test cases. A file whose
// tests key is absent or not a list yields zero cases; a case missing
// its decision key or its expected output fails the whole file. Input
// and output values must be scalars and are validated here, not at
// evaluation time.
func (Loader) Load(path string) ([]domain.TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.SpecParseError{Path: path, Err: err}
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.SpecParseError{Path: path, Err: err}
	}
	if doc.Tests.IsZero() || doc.Tests.Kind != yaml.SequenceNode {
		return nil, nil
	}
	var docs []caseDoc
	if err := doc.Tests.Decode(&docs); err != nil {
		return nil, &domain.SpecParseError{Path: path, Err: err}
	}

	cases := make([]domain.TestCase, 0, len(docs))
	for i, cd := range docs {
		tc, err := buildCase(cd)
		if err != nil {
			return nil, &domain.SpecParseError{Path: path, Err: fmt.Errorf("test %d: %w", i+1, err)}
		}
		cases = append(cases, tc)
	}
	return cases, nil
}

func buildCase(cd caseDoc) (domain.TestCase, error) {
	decision := strings.TrimSpace(cd.Decision)
	if decision == "" {
		return domain.TestCase{}, fmt.Errorf("missing decision key")
	}
	if cd.Out.IsZero() {
		return domain.TestCase{}, fmt.Errorf("missing expected output")
	}
	var raw any
	if err := cd.Out.Decode(&raw); err != nil {
		return domain.TestCase{}, fmt.Errorf("expected output: %w", err)
	}
	expected, err := domain.FromAny(raw)
	if err != nil {
		return domain.TestCase{}, fmt.Errorf("expected output: %w", err)
	}

	inputs := make(map[string]domain.Value, len(cd.In))
	for name, rv := range cd.In {
		v, err := domain.FromAny(rv)
		if err != nil {
			return domain.TestCase{}, fmt.Errorf("input %q: %w", name, err)
		}
		inputs[name] = v
	}
	return domain.TestCase{
		Description: cd.Description,
		Decision:    decision,
		Inputs:      inputs,
		Expected:    expected.AsString(),
	}, nil
}
