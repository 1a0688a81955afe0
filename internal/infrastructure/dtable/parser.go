package dtable

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rulecov/rulecov/internal/domain"
)

type fileDoc struct {
	Decisions []decisionDoc `yaml:"decisions"`
}

type decisionDoc struct {
	Decision  string    `yaml:"decision"`
	HitPolicy string    `yaml:"hitPolicy"`
	Inputs    []string  `yaml:"inputs"`
	Outputs   []string  `yaml:"outputs"`
	Rules     []ruleDoc `yaml:"rules"`
}

type ruleDoc struct {
	ID   string   `yaml:"id"`
	When []string `yaml:"when"`
	Then []string `yaml:"then"`
}

// ParseFile reads and parses a table source from disk. A missing or
// unreadable file is reported as domain.SourceNotFoundError.
func ParseFile(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, &domain.SourceNotFoundError{Path: path, Err: err}
	}
	f, err := Parse(data)
	if err != nil {
		return File{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates table YAML. Rules without an explicit id
// are assigned positional ids rule1, rule2, ... within their decision.
// A decision may carry zero rules; that is a catalog and coverage
// concern, not a parse error.
func Parse(data []byte) (File, error) {
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return File{}, fmt.Errorf("parsing decision table: %w", err)
	}
	if len(doc.Decisions) == 0 {
		return File{}, fmt.Errorf("decision table defines no decisions")
	}

	file := File{Decisions: make([]Decision, 0, len(doc.Decisions))}
	seen := make(map[string]bool, len(doc.Decisions))
	for i, dd := range doc.Decisions {
		d, err := buildDecision(dd)
		if err != nil {
			return File{}, fmt.Errorf("decision %d: %w", i+1, err)
		}
		if seen[d.Key] {
			return File{}, fmt.Errorf("duplicate decision key %q", d.Key)
		}
		seen[d.Key] = true
		file.Decisions = append(file.Decisions, d)
	}
	return file, nil
}

func buildDecision(dd decisionDoc) (Decision, error) {
	key := strings.TrimSpace(dd.Decision)
	if key == "" {
		return Decision{}, fmt.Errorf("missing decision key")
	}
	policy := HitPolicy(dd.HitPolicy)
	if policy == "" {
		policy = HitUnique
	}
	if !validHitPolicy(policy) {
		return Decision{}, fmt.Errorf("decision %q: unsupported hit policy %q", key, dd.HitPolicy)
	}
	for _, name := range dd.Inputs {
		if strings.TrimSpace(name) == "" {
			return Decision{}, fmt.Errorf("decision %q: blank input name", key)
		}
	}
	if len(dd.Outputs) == 0 {
		return Decision{}, fmt.Errorf("decision %q: at least one output column required", key)
	}
	for _, name := range dd.Outputs {
		if strings.TrimSpace(name) == "" {
			return Decision{}, fmt.Errorf("decision %q: blank output name", key)
		}
	}

	d := Decision{
		Key:       key,
		HitPolicy: policy,
		Inputs:    dd.Inputs,
		Outputs:   dd.Outputs,
		Rules:     make([]Rule, 0, len(dd.Rules)),
	}
	ids := make(map[string]bool, len(dd.Rules))
	for i, rd := range dd.Rules {
		id := strings.TrimSpace(rd.ID)
		if id == "" {
			id = fmt.Sprintf("rule%d", i+1)
		}
		if ids[id] {
			return Decision{}, fmt.Errorf("decision %q: duplicate rule id %q", key, id)
		}
		ids[id] = true
		if len(rd.When) != len(dd.Inputs) {
			return Decision{}, fmt.Errorf("decision %q rule %q: %d condition cells for %d inputs", key, id, len(rd.When), len(dd.Inputs))
		}
		if len(rd.Then) != len(dd.Outputs) {
			return Decision{}, fmt.Errorf("decision %q rule %q: %d output cells for %d outputs", key, id, len(rd.Then), len(dd.Outputs))
		}
		d.Rules = append(d.Rules, Rule{ID: id, When: rd.When, Then: rd.Then})
	}
	return d, nil
}
