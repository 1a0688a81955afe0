package application

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rulecov/rulecov/internal/domain"
)

type OutputFormat string

const (
	OutputText  OutputFormat = "text"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
	OutputHTML  OutputFormat = "html"
	OutputBrief OutputFormat = "brief"
)

var (
	ErrConfigNotFound = errors.New("config not found")
	// ErrPolicyViolation marks a check run whose coverage fell below
	// the configured thresholds.
	ErrPolicyViolation = errors.New("policy violation")
	// ErrCaseFailures marks a run in which at least one declarative
	// test case failed or a spec file could not be loaded.
	ErrCaseFailures = errors.New("test case failures")
)

// Config represents validated, application-ready configuration.
type Config struct {
	Version int
	// Tables is the root directory scanned recursively for
	// *.table.yaml sources.
	Tables string
	// Specs is the root directory holding *.spec.yaml files, looked
	// up flat by base name.
	Specs string
	// Exclude holds glob patterns matched against table paths relative
	// to the tables root. Matching sources are skipped entirely.
	Exclude []string
	Policy  domain.Policy
	History HistoryConfig
}

// HistoryConfig configures where coverage history is stored.
type HistoryConfig struct {
	Path string
}

type ConfigLoader interface {
	Load(path string) (Config, error)
	Exists(path string) (bool, error)
}

type Autodetector interface {
	Detect() (Config, error)
}

// Table is one loaded decision-table source ready for evaluation.
type Table interface {
	Path() string
	Decisions() []string
	Evaluate(decision string, inputs map[string]domain.Value) (domain.EvaluationEvent, []domain.OutputEntry, error)
}

// TableEngine loads table sources. Loading is per test case so cases
// never share evaluator state.
type TableEngine interface {
	Load(path string) (Table, error)
}

// RuleCatalog answers structural questions about table sources without
// evaluating them. Implementations re-read the source on every call.
type RuleCatalog interface {
	DecisionKeys(path string) ([]string, error)
	Rules(path, decision string) ([]domain.RuleDescriptor, error)
}

// SpecLoader parses declarative test specifications.
type SpecLoader interface {
	Load(path string) ([]domain.TestCase, error)
}

// Reporter renders run artifacts in the selected output format.
type Reporter interface {
	WriteReport(w io.Writer, rep domain.Report, format OutputFormat) error
	WriteCheck(w io.Writer, res domain.PolicyResult, format OutputFormat) error
	WriteCatalog(w io.Writer, files []CatalogFile, format OutputFormat) error
	WriteTrend(w io.Writer, trend TrendReport, format OutputFormat) error
	WriteEvalTrace(w io.Writer, ev domain.EvaluationEvent) error
}

type HistoryStore interface {
	Load() (domain.History, error)
	Save(h domain.History) error
	Append(entry domain.HistoryEntry) error
}

// HistoryOpener builds a store for a history file path resolved at
// run time from flags and config.
type HistoryOpener interface {
	Open(path string) HistoryStore
}

// DefaultHistoryPath is used when neither flag nor config names one.
const DefaultHistoryPath = ".rulecov/history.json"

// BadgeWriter renders a coverage badge for the overall percentage.
type BadgeWriter interface {
	Write(w io.Writer, percent float64, label, style string) error
}

// FileWatcher provides file change notifications.
type FileWatcher interface {
	WatchDir(root string) error
	Events(ctx context.Context) <-chan struct{}
	Close() error
}

// WatchCallback is invoked after every watch-triggered run.
type WatchCallback func(run int, err error)

type CheckOptions struct {
	ConfigPath string
	Output     OutputFormat
	// Trace streams one YAML document per successful evaluation to the
	// diagnostic writer while cases run.
	Trace bool
}

type ReportOptions struct {
	ConfigPath string
	Output     OutputFormat
}

type ListOptions struct {
	ConfigPath string
	Output     OutputFormat
}

type RecordOptions struct {
	ConfigPath  string
	HistoryPath string
	Commit      string
	Branch      string
}

type TrendOptions struct {
	ConfigPath  string
	HistoryPath string
	Output      OutputFormat
}

type BadgeOptions struct {
	ConfigPath string
	Output     string
	Label      string
	Style      string
}

type DetectOptions struct {
}

// WatchOptions configures watch mode behavior.
type WatchOptions struct {
	ConfigPath string
	Output     OutputFormat
}

// Pair is one discovered rule-table source with its matching spec
// file.
type Pair struct {
	Base      string
	TablePath string
	SpecPath  string
}

// CaseResult is the outcome of one executed test case. Err is nil on
// pass; an assertion mismatch and an evaluation error both surface
// here.
type CaseResult struct {
	Pair  Pair
	Label string
	Err   error
}

// FileError is a spec file that failed to load; none of its cases ran.
type FileError struct {
	Pair Pair
	Err  error
}

// RunResult aggregates one execution of the declarative pipeline.
type RunResult struct {
	Pairs      []Pair
	Cases      []CaseResult
	FileErrors []FileError
	Report     domain.Report
	Warnings   []string
}

// Failures counts failed cases plus unloadable spec files.
func (r RunResult) Failures() int {
	n := len(r.FileErrors)
	for _, c := range r.Cases {
		if c.Err != nil {
			n++
		}
	}
	return n
}

// FailureMessages renders each failed case and unloadable spec file
// as one message.
func (r RunResult) FailureMessages() []string {
	msgs := make([]string, 0, len(r.FileErrors))
	for _, fe := range r.FileErrors {
		msgs = append(msgs, fmt.Sprintf("%s: %v", fe.Pair.SpecPath, fe.Err))
	}
	for _, c := range r.Cases {
		if c.Err != nil {
			msgs = append(msgs, fmt.Sprintf("%s: %v", c.Label, c.Err))
		}
	}
	return msgs
}

// CheckOutcome pairs one run with its policy evaluation, for callers
// that shape their own output instead of writing through the reporter.
// Case failures and policy violations live in the outcome, not in the
// error return.
type CheckOutcome struct {
	Run    RunResult
	Policy domain.PolicyResult
}

// CatalogFile describes one table source for listing.
type CatalogFile struct {
	Path      string            `json:"path"`
	Decisions []CatalogDecision `json:"decisions"`
}

// CatalogDecision describes one decision and its rules for listing.
type CatalogDecision struct {
	Decision string                  `json:"decision"`
	Rules    []domain.RuleDescriptor `json:"rules"`
}

// TrendReport is the trend command's output: the latest entries plus
// the computed direction.
type TrendReport struct {
	Entries []domain.HistoryEntry `json:"entries"`
	Trend   domain.Trend          `json:"trend"`
}
