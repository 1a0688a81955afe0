package domain

import (
	"fmt"
	"sort"
	"strings"
)

// TestCase is one declarative test: evaluate a decision with the given
// inputs and expect a single output equal to Expected, compared as a
// string. Immutable; one execution per case.
type TestCase struct {
	Description string
	Decision    string
	Inputs      map[string]Value
	Expected    string
}

// Label renders a stable human-readable case name:
//
//	desc | base:Decision {age=25} -> "Adult"
//
// Inputs render in key order so the label is deterministic.
func (tc TestCase) Label(base string) string {
	var b strings.Builder
	if tc.Description != "" {
		b.WriteString(tc.Description)
		b.WriteString(" | ")
	}
	fmt.Fprintf(&b, "%s:%s %s -> %q", base, tc.Decision, renderInputs(tc.Inputs), tc.Expected)
	return b.String()
}

func renderInputs(inputs map[string]Value) string {
	if len(inputs) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(inputs))
	for k := range inputs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+inputs[k].AsString())
	}
	return "{" + strings.Join(parts, " ") + "}"
}
