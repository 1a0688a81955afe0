// Package application orchestrates the declarative test pipeline:
// discover table/spec pairs, execute cases against the table engine,
// collect rule coverage, and render reports, policy checks, history,
// and badges through infrastructure ports.
package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rulecov/rulecov/internal/domain"
)

// Indirected for test injection.
var (
	timeNow  = time.Now
	newRunID = func() string { return uuid.NewString() }
)

type Service struct {
	ConfigLoader ConfigLoader
	Autodetector Autodetector
	Engine       TableEngine
	Catalog      RuleCatalog
	Specs        SpecLoader
	Reporter     Reporter
	History      HistoryOpener
	Badge        BadgeWriter
	Out          io.Writer
	Err          io.Writer
}

// Check runs every discovered pair, prints case failures and the
// coverage report to the diagnostic stream, and gates the result on
// the configured policy. Failed cases return ErrCaseFailures; a
// passing suite below threshold returns ErrPolicyViolation.
func (s *Service) Check(ctx context.Context, opts CheckOptions) error {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return err
	}
	run, err := s.execute(ctx, cfg, opts.Trace)
	if err != nil {
		return err
	}
	s.writeRunDiagnostics(run)
	if err := s.Reporter.WriteReport(s.Err, run.Report, OutputText); err != nil {
		return err
	}

	res := domain.EvaluatePolicy(cfg.Policy, run.Report)
	if err := s.Reporter.WriteCheck(s.Out, res, opts.Output); err != nil {
		return err
	}
	if run.Failures() > 0 {
		return ErrCaseFailures
	}
	if !res.Passed {
		return ErrPolicyViolation
	}
	return nil
}

// CheckResult runs the gating pipeline and returns the structured
// outcome without rendering it. The MCP server shapes its protocol
// responses from it. An error means the run itself could not happen;
// gating verdicts live in the outcome.
func (s *Service) CheckResult(ctx context.Context, opts CheckOptions) (CheckOutcome, error) {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return CheckOutcome{}, err
	}
	run, err := s.execute(ctx, cfg, false)
	if err != nil {
		return CheckOutcome{}, err
	}
	return CheckOutcome{
		Run:    run,
		Policy: domain.EvaluatePolicy(cfg.Policy, run.Report),
	}, nil
}

// Report runs the pipeline and writes the coverage report to the
// primary output. Case failures are printed as diagnostics but do not
// fail the command; gating is Check's job.
func (s *Service) Report(ctx context.Context, opts ReportOptions) error {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return err
	}
	run, err := s.execute(ctx, cfg, false)
	if err != nil {
		return err
	}
	s.writeRunDiagnostics(run)
	return s.Reporter.WriteReport(s.Out, run.Report, opts.Output)
}

// ReportResult runs the pipeline and returns the raw run, report
// included, without rendering it.
func (s *Service) ReportResult(ctx context.Context, opts ReportOptions) (RunResult, error) {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return RunResult{}, err
	}
	return s.execute(ctx, cfg, false)
}

// List enumerates every table source under the tables root with its
// decisions and rules, paired or not.
func (s *Service) List(ctx context.Context, opts ListOptions) error {
	files, warnings, err := s.CatalogResult(ctx, opts)
	if err != nil {
		return err
	}
	for _, w := range warnings {
		fmt.Fprintf(s.Err, "warning: %s\n", w)
	}
	return s.Reporter.WriteCatalog(s.Out, files, opts.Output)
}

// CatalogResult builds the rule inventory List renders. Unreadable
// sources are skipped and reported as warnings.
func (s *Service) CatalogResult(ctx context.Context, opts ListOptions) ([]CatalogFile, []string, error) {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	paths, warnings, err := walkTables(cfg.Tables, cfg.Exclude)
	if err != nil {
		return nil, nil, err
	}
	files := make([]CatalogFile, 0, len(paths))
	for _, path := range paths {
		keys, err := s.Catalog.DecisionKeys(path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s: %v", path, err))
			continue
		}
		cf := CatalogFile{Path: path, Decisions: make([]CatalogDecision, 0, len(keys))}
		for _, key := range keys {
			rules, err := s.Catalog.Rules(path, key)
			if err != nil {
				var rnf *domain.RuleNotFoundError
				if !errors.As(err, &rnf) {
					warnings = append(warnings, fmt.Sprintf("skipping %s decision %s: %v", path, key, err))
					continue
				}
			}
			cf.Decisions = append(cf.Decisions, CatalogDecision{Decision: key, Rules: rules})
		}
		files = append(files, cf)
	}
	return files, warnings, nil
}

// Record runs the pipeline, appends the resulting coverage to history
// and prints a confirmation.
func (s *Service) Record(ctx context.Context, opts RecordOptions) error {
	entry, err := s.RecordResult(ctx, opts)
	if err != nil && !errors.Is(err, ErrCaseFailures) {
		return err
	}
	fmt.Fprintf(s.Out, "recorded run %s at %.1f%% overall\n", entry.RunID, entry.Overall)
	return err
}

// RecordResult runs the pipeline and appends the resulting coverage to
// history, returning the appended entry. The entry is appended even
// when cases failed, so history reflects what the suite actually
// covers; the failure still surfaces through the returned error.
func (s *Service) RecordResult(ctx context.Context, opts RecordOptions) (domain.HistoryEntry, error) {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	run, err := s.execute(ctx, cfg, false)
	if err != nil {
		return domain.HistoryEntry{}, err
	}
	s.writeRunDiagnostics(run)

	entry := buildHistoryEntry(run.Report, opts.Commit, opts.Branch)
	store := s.History.Open(historyPath(cfg, opts.HistoryPath))
	if err := store.Append(entry); err != nil {
		return domain.HistoryEntry{}, err
	}
	if run.Failures() > 0 {
		return entry, ErrCaseFailures
	}
	return entry, nil
}

// Trend reads recorded history and reports the coverage movement
// between the two most recent runs.
func (s *Service) Trend(ctx context.Context, opts TrendOptions) error {
	trend, err := s.TrendResult(ctx, opts)
	if err != nil {
		return err
	}
	if len(trend.Entries) == 0 {
		fmt.Fprintln(s.Out, "no history recorded")
		return nil
	}
	return s.Reporter.WriteTrend(s.Out, trend, opts.Output)
}

// TrendResult loads history and computes the movement between the two
// most recent runs without rendering it.
func (s *Service) TrendResult(ctx context.Context, opts TrendOptions) (TrendReport, error) {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return TrendReport{}, err
	}
	store := s.History.Open(historyPath(cfg, opts.HistoryPath))
	hist, err := store.Load()
	if err != nil {
		return TrendReport{}, err
	}
	trend := domain.Trend{Direction: domain.TrendStable}
	if latest := hist.LatestEntry(); latest != nil {
		if prev := hist.PreviousEntry(); prev != nil {
			trend = domain.CalculateTrend(prev.Overall, latest.Overall)
		}
	}
	return TrendReport{Entries: hist.Entries, Trend: trend}, nil
}

// GenerateBadge runs the pipeline and renders an SVG badge for the
// overall coverage percentage, to opts.Output or the primary output.
func (s *Service) GenerateBadge(ctx context.Context, opts BadgeOptions) error {
	cfg, err := s.loadOrDetect(opts.ConfigPath)
	if err != nil {
		return err
	}
	run, err := s.execute(ctx, cfg, false)
	if err != nil {
		return err
	}
	s.writeRunDiagnostics(run)

	w := s.Out
	if opts.Output != "" {
		f, err := os.Create(opts.Output)
		if err != nil {
			return fmt.Errorf("creating badge file: %w", err)
		}
		defer f.Close()
		w = f
	}
	percent := domain.Round1(run.Report.Overall().Ratio() * 100)
	return s.Badge.Write(w, percent, opts.Label, opts.Style)
}

// Detect proposes a configuration from the current directory layout.
func (s *Service) Detect(ctx context.Context, opts DetectOptions) (Config, error) {
	return s.Autodetector.Detect()
}

func (s *Service) loadOrDetect(configPath string) (Config, error) {
	exists, err := s.ConfigLoader.Exists(configPath)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if !exists {
		cfg, err = s.Autodetector.Detect()
	} else {
		cfg, err = s.ConfigLoader.Load(configPath)
	}
	if err != nil {
		return Config{}, err
	}

	if cfg.Tables == "" {
		return Config{}, fmt.Errorf("no tables root configured")
	}
	if cfg.Specs == "" {
		cfg.Specs = cfg.Tables
	}
	return cfg, nil
}

// execute is the one pipeline both reporting and gating run: discover,
// execute all cases against a run-scoped collector, then generate the
// report exactly once after every case has finished. With trace on,
// every successful evaluation is streamed to the diagnostic writer as
// it happens, serialized by a run-local mutex.
func (s *Service) execute(ctx context.Context, cfg Config, trace bool) (RunResult, error) {
	pairs, warnings, err := Discover(cfg.Tables, cfg.Specs, cfg.Exclude)
	if err != nil {
		return RunResult{}, err
	}
	var traceFn func(domain.EvaluationEvent)
	if trace {
		var mu sync.Mutex
		traceFn = func(ev domain.EvaluationEvent) {
			mu.Lock()
			defer mu.Unlock()
			if err := s.Reporter.WriteEvalTrace(s.Err, ev); err != nil {
				fmt.Fprintf(s.Err, "warning: writing evaluation trace: %v\n", err)
			}
		}
	}
	collector := domain.NewCollector()
	cases, fileErrs, err := s.runCases(ctx, pairs, collector, traceFn)
	if err != nil {
		return RunResult{}, err
	}
	report, reportWarnings := s.buildReport(pairs, collector.Snapshot())
	return RunResult{
		Pairs:      pairs,
		Cases:      cases,
		FileErrors: fileErrs,
		Report:     report,
		Warnings:   append(warnings, reportWarnings...),
	}, nil
}

// buildReport assembles per-file coverage over all discovered sources.
// A file whose catalog cannot be read is skipped with a diagnostic; a
// decision with zero rules reports vacuous full coverage.
func (s *Service) buildReport(pairs []Pair, events []domain.CoverageEvent) (domain.Report, []string) {
	var warnings []string
	report := domain.Report{Files: make([]domain.FileCoverage, 0, len(pairs))}
	for _, pair := range pairs {
		keys, err := s.Catalog.DecisionKeys(pair.TablePath)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("skipping %s in coverage report: %v", pair.TablePath, err))
			continue
		}
		decisions := make([]domain.DecisionRules, 0, len(keys))
		for _, key := range keys {
			rules, err := s.Catalog.Rules(pair.TablePath, key)
			if err != nil {
				var rnf *domain.RuleNotFoundError
				if errors.As(err, &rnf) {
					warnings = append(warnings, fmt.Sprintf("decision %s in %s has no rules", key, pair.TablePath))
					decisions = append(decisions, domain.DecisionRules{Decision: key})
					continue
				}
				warnings = append(warnings, fmt.Sprintf("skipping decision %s in %s: %v", key, pair.TablePath, err))
				continue
			}
			decisions = append(decisions, domain.DecisionRules{Decision: key, Rules: rules})
		}
		fc, fcWarnings := domain.BuildFileCoverage(pair.TablePath, decisions, events)
		warnings = append(warnings, fcWarnings...)
		report.Files = append(report.Files, fc)
	}
	return report, warnings
}

func (s *Service) writeRunDiagnostics(run RunResult) {
	for _, w := range run.Warnings {
		fmt.Fprintf(s.Err, "warning: %s\n", w)
	}
	for _, fe := range run.FileErrors {
		fmt.Fprintf(s.Err, "FAIL %s: %v\n", fe.Pair.SpecPath, fe.Err)
	}
	for _, c := range run.Cases {
		if c.Err != nil {
			fmt.Fprintf(s.Err, "FAIL %s: %v\n", c.Label, c.Err)
		}
	}
	fmt.Fprintf(s.Err, "ran %d cases across %d files, %d failed\n", len(run.Cases), len(run.Pairs), run.Failures())
}

func buildHistoryEntry(rep domain.Report, commit, branch string) domain.HistoryEntry {
	files := make(map[string]domain.FileEntry, len(rep.Files))
	for _, f := range rep.Files {
		files[filepath.ToSlash(f.Path)] = domain.FileEntry{
			Covered: f.Summary.Covered,
			Total:   f.Summary.Total,
			Percent: domain.Round1(f.Summary.Ratio() * 100),
		}
	}
	return domain.HistoryEntry{
		Timestamp: timeNow(),
		RunID:     newRunID(),
		Commit:    commit,
		Branch:    branch,
		Overall:   domain.Round1(rep.Overall().Ratio() * 100),
		Files:     files,
	}
}

func historyPath(cfg Config, override string) string {
	if override != "" {
		return override
	}
	if cfg.History.Path != "" {
		return cfg.History.Path
	}
	return DefaultHistoryPath
}
