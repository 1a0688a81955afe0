package application

import (
	"context"
	"fmt"
	"os"
	gopath "path"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/rulecov/rulecov/internal/domain"
)

const (
	tableSuffix = ".table.yaml"
	specSuffix  = ".spec.yaml"
)

// Discover pairs every *.table.yaml source under tablesRoot with
// <base>.spec.yaml looked up flat under specsRoot. A source without a
// matching spec is skipped; it is legitimate for production tables to
// live in the tree without tests. Spec files without a source are
// never discovered. Pair order follows the lexical walk order, so
// discovery is deterministic. Sources whose path relative to the
// tables root matches an exclude pattern are dropped before pairing.
func Discover(tablesRoot, specsRoot string, exclude []string) ([]Pair, []string, error) {
	paths, warnings, err := walkTables(tablesRoot, exclude)
	if err != nil {
		return nil, warnings, err
	}
	if len(paths) > 0 {
		if _, err := os.Stat(specsRoot); err != nil {
			warnings = append(warnings, fmt.Sprintf("specs root %s is not readable: %v", specsRoot, err))
			return nil, warnings, nil
		}
	}

	var pairs []Pair
	for _, path := range paths {
		base := strings.TrimSuffix(filepath.Base(path), tableSuffix)
		specPath := filepath.Join(specsRoot, base+specSuffix)
		if _, err := os.Stat(specPath); err != nil {
			continue
		}
		pairs = append(pairs, Pair{Base: base, TablePath: path, SpecPath: specPath})
	}
	return pairs, warnings, nil
}

// walkTables lists every table source under root in lexical walk
// order. A missing root is a warning and an empty listing, not an
// error.
func walkTables(root string, exclude []string) ([]string, []string, error) {
	var warnings []string
	if _, err := os.Stat(root); err != nil {
		warnings = append(warnings, fmt.Sprintf("tables root %s is not readable: %v", root, err))
		return nil, warnings, nil
	}
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), tableSuffix) {
			return nil
		}
		if excluded(root, path, exclude) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, warnings, fmt.Errorf("scanning tables under %s: %w", root, err)
	}
	return paths, warnings, nil
}

// excluded reports whether the source's slash-form path relative to
// root matches any pattern. Unmatchable patterns are ignored rather
// than failing the walk; config validation is not discovery's job.
func excluded(root, path string, patterns []string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	rel = filepath.ToSlash(rel)
	for _, pattern := range patterns {
		if ok, err := gopath.Match(pattern, rel); err == nil && ok {
			return true
		}
		// Patterns without a slash also match the bare file name, so
		// "*draft*" excludes drafts at any depth.
		if !strings.Contains(pattern, "/") {
			if ok, err := gopath.Match(pattern, gopath.Base(rel)); err == nil && ok {
				return true
			}
		}
	}
	return false
}

// runCases loads every pair's spec and executes the cases
// concurrently. A spec that fails to load fails as a whole file; its
// cases never run. Case outcomes land in a preallocated slice indexed
// by case, so workers share no mutable state beyond the collector and
// the optional trace callback, which must be concurrency-safe.
func (s *Service) runCases(ctx context.Context, pairs []Pair, collector *domain.Collector, trace func(domain.EvaluationEvent)) ([]CaseResult, []FileError, error) {
	type unit struct {
		pair Pair
		tc   domain.TestCase
	}
	var units []unit
	var fileErrs []FileError
	for _, pair := range pairs {
		cases, err := s.Specs.Load(pair.SpecPath)
		if err != nil {
			fileErrs = append(fileErrs, FileError{Pair: pair, Err: err})
			continue
		}
		for _, tc := range cases {
			units = append(units, unit{pair: pair, tc: tc})
		}
	}

	results := make([]CaseResult, len(units))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, u := range units {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = s.runCase(u.pair, u.tc, collector, trace)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return results, fileErrs, nil
}

// runCase executes one test case in isolation: fresh table load, fresh
// evaluator, shared collector.
func (s *Service) runCase(pair Pair, tc domain.TestCase, collector *domain.Collector, trace func(domain.EvaluationEvent)) CaseResult {
	res := CaseResult{Pair: pair, Label: tc.Label(pair.Base)}

	tbl, err := s.Engine.Load(pair.TablePath)
	if err != nil {
		res.Err = err
		return res
	}
	ev := NewEvaluator(tbl, collector)
	if trace != nil {
		ev.WithTrace(trace)
	}
	result, err := ev.Evaluate(tc.Decision, tc.Inputs)
	if err != nil {
		res.Err = err
		return res
	}
	got, err := result.AsString()
	if err != nil {
		res.Err = err
		return res
	}
	if got != tc.Expected {
		res.Err = fmt.Errorf("expected %q, got %q", tc.Expected, got)
	}
	return res
}
