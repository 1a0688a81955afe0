package dtable

import "github.com/rulecov/rulecov/internal/domain"

// Catalog answers structural questions about table sources: which
// decisions a file defines and which rules a decision carries. Every
// call re-reads the source, so answers always reflect the file on
// disk.
type Catalog struct{}

// NewCatalog returns a stateless catalog.
func NewCatalog() Catalog {
	return Catalog{}
}

// DecisionKeys lists the decision keys defined in the table file at
// path, in source order.
func (Catalog) DecisionKeys(path string) ([]string, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(f.Decisions))
	for _, d := range f.Decisions {
		keys = append(keys, d.Key)
	}
	return keys, nil
}

// Rules describes the rules of one decision in table order. A decision
// that exists but has no rules is reported as domain.RuleNotFoundError.
func (Catalog) Rules(path, decision string) ([]domain.RuleDescriptor, error) {
	f, err := ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, d := range f.Decisions {
		if d.Key != decision {
			continue
		}
		if len(d.Rules) == 0 {
			return nil, &domain.RuleNotFoundError{Decision: decision, Path: path}
		}
		descs := make([]domain.RuleDescriptor, 0, len(d.Rules))
		for _, r := range d.Rules {
			descs = append(descs, domain.RuleDescriptor{
				ID:         r.ID,
				Conditions: append([]string(nil), r.When...),
				Outputs:    append([]string(nil), r.Then...),
			})
		}
		return descs, nil
	}
	return nil, &domain.DecisionNotFoundError{Decision: decision, Path: path}
}
