// Package cli implements the rulecov command line interface: flag
// parsing, subcommand dispatch, and exit code mapping over the
// application service.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
	"github.com/rulecov/rulecov/internal/infrastructure/autodetect"
	"github.com/rulecov/rulecov/internal/infrastructure/badge"
	"github.com/rulecov/rulecov/internal/infrastructure/config"
	"github.com/rulecov/rulecov/internal/infrastructure/dtable"
	"github.com/rulecov/rulecov/internal/infrastructure/history"
	"github.com/rulecov/rulecov/internal/infrastructure/report"
	"github.com/rulecov/rulecov/internal/infrastructure/specfile"
	"github.com/rulecov/rulecov/internal/infrastructure/watcher"
	"github.com/rulecov/rulecov/internal/infrastructure/wizard"
	mcpserver "github.com/rulecov/rulecov/internal/mcp"
)

const defaultConfigPath = ".rulecov.yaml"

type Service interface {
	Check(ctx context.Context, opts application.CheckOptions) error
	CheckResult(ctx context.Context, opts application.CheckOptions) (application.CheckOutcome, error)
	Report(ctx context.Context, opts application.ReportOptions) error
	ReportResult(ctx context.Context, opts application.ReportOptions) (application.RunResult, error)
	List(ctx context.Context, opts application.ListOptions) error
	CatalogResult(ctx context.Context, opts application.ListOptions) ([]application.CatalogFile, []string, error)
	Record(ctx context.Context, opts application.RecordOptions) error
	RecordResult(ctx context.Context, opts application.RecordOptions) (domain.HistoryEntry, error)
	Trend(ctx context.Context, opts application.TrendOptions) error
	TrendResult(ctx context.Context, opts application.TrendOptions) (application.TrendReport, error)
	GenerateBadge(ctx context.Context, opts application.BadgeOptions) error
	Detect(ctx context.Context, opts application.DetectOptions) (application.Config, error)
	Watch(ctx context.Context, opts application.WatchOptions, watcher application.FileWatcher, callback application.WatchCallback) error
}

var initWizard = wizard.Run

// Run dispatches one invocation and returns the process exit code:
// 0 success, 1 gating failure (policy violation or failed cases),
// 2 usage error, 3 pipeline error, 5 wizard error.
func Run(args []string, stdout, stderr io.Writer, svc Service) int {
	if len(args) < 2 {
		usage(stderr)
		return 2
	}

	ctx := context.Background()

	switch args[1] {
	case "check":
		fs := flag.NewFlagSet("check", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs, application.OutputText, application.OutputJSON, application.OutputYAML, application.OutputBrief)
		trace := fs.Bool("trace", false, "Stream every successful evaluation as a YAML document on stderr")
		_ = fs.Parse(args[2:])
		err := svc.Check(ctx, application.CheckOptions{ConfigPath: *configPath, Output: *output, Trace: *trace})
		return exitCode(err, 3, stderr)
	case "report":
		fs := flag.NewFlagSet("report", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs, application.OutputText, application.OutputJSON, application.OutputYAML, application.OutputHTML)
		_ = fs.Parse(args[2:])
		err := svc.Report(ctx, application.ReportOptions{ConfigPath: *configPath, Output: *output})
		return exitCode(err, 3, stderr)
	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs, application.OutputText, application.OutputJSON, application.OutputYAML)
		_ = fs.Parse(args[2:])
		err := svc.List(ctx, application.ListOptions{ConfigPath: *configPath, Output: *output})
		return exitCode(err, 3, stderr)
	case "detect":
		fs := flag.NewFlagSet("detect", flag.ExitOnError)
		writeConfig := fs.Bool("write-config", false, "Write the detected config to the config path")
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		force := fs.Bool("force", false, "Overwrite config if it exists")
		_ = fs.Parse(args[2:])
		cfg, err := svc.Detect(ctx, application.DetectOptions{})
		if err != nil {
			return exitCode(err, 3, stderr)
		}
		target := "-"
		if *writeConfig {
			target = *configPath
		}
		if err := writeConfigFile(target, cfg, stdout, *force); err != nil {
			return exitCode(err, 2, stderr)
		}
		return 0
	case "init":
		fs := flag.NewFlagSet("init", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		force := fs.Bool("force", false, "Overwrite existing config file")
		noInteractive := fs.Bool("no-interactive", false, "Skip the interactive init wizard")
		_ = fs.Parse(args[2:])
		cfg, err := svc.Detect(ctx, application.DetectOptions{})
		if err != nil {
			return exitCode(err, 3, stderr)
		}
		if !*noInteractive {
			var confirmed bool
			cfg, confirmed, err = initWizard(cfg, stdout, os.Stdin)
			if err != nil {
				return exitCode(err, 5, stderr)
			}
			if !confirmed {
				fmt.Fprintln(stdout, "Init cancelled; no configuration written.")
				return 0
			}
		}
		if err := writeConfigFile(*configPath, cfg, stdout, *force); err != nil {
			return exitCode(err, 2, stderr)
		}
		return 0
	case "watch":
		fs := flag.NewFlagSet("watch", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := outputFlags(fs, application.OutputText, application.OutputJSON, application.OutputYAML, application.OutputBrief)
		_ = fs.Parse(args[2:])
		return runWatch(ctx, stdout, stderr, svc, *configPath, *output)
	case "record":
		fs := flag.NewFlagSet("record", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		historyPath := fs.String("history", "", "History file path")
		commit := fs.String("commit", "", "Git commit SHA (optional)")
		branch := fs.String("branch", "", "Git branch name (optional)")
		_ = fs.Parse(args[2:])
		err := svc.Record(ctx, application.RecordOptions{
			ConfigPath:  *configPath,
			HistoryPath: *historyPath,
			Commit:      *commit,
			Branch:      *branch,
		})
		return exitCode(err, 3, stderr)
	case "trend":
		fs := flag.NewFlagSet("trend", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		historyPath := fs.String("history", "", "History file path")
		output := outputFlags(fs, application.OutputText, application.OutputJSON, application.OutputYAML)
		_ = fs.Parse(args[2:])
		err := svc.Trend(ctx, application.TrendOptions{
			ConfigPath:  *configPath,
			HistoryPath: *historyPath,
			Output:      *output,
		})
		return exitCode(err, 3, stderr)
	case "badge":
		fs := flag.NewFlagSet("badge", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		output := fs.String("output", "coverage.svg", "Output file path, - for stdout")
		label := fs.String("label", "", "Badge label text")
		style := fs.String("style", badge.StyleFlat, "Badge style: flat|flat-square")
		_ = fs.Parse(args[2:])
		target := *output
		if target == "-" {
			target = ""
		}
		err := svc.GenerateBadge(ctx, application.BadgeOptions{
			ConfigPath: *configPath,
			Output:     target,
			Label:      *label,
			Style:      *style,
		})
		if err != nil {
			return exitCode(err, 3, stderr)
		}
		if target != "" {
			fmt.Fprintf(stdout, "badge written to %s\n", target)
		}
		return 0
	case "mcp":
		fs := flag.NewFlagSet("mcp", flag.ExitOnError)
		configPath := fs.String("config", defaultConfigPath, "Config file path")
		historyPath := fs.String("history", "", "History file path")
		_ = fs.Parse(args[2:])
		srv := mcpserver.New(svc, mcpserver.Config{ConfigPath: *configPath, HistoryPath: *historyPath})
		err := srv.Run(ctx)
		return exitCode(err, 3, stderr)
	case "version":
		fmt.Fprintf(stdout, "rulecov %s (commit %s, built %s)\n", Version, Commit, Date)
		return 0
	case "help", "-h", "--help":
		usage(stdout)
		return 0
	default:
		usage(stderr)
		return 2
	}
}

// BuildService wires the production infrastructure behind the
// application ports.
func BuildService(out, errw io.Writer) *application.Service {
	return &application.Service{
		ConfigLoader: config.Loader{},
		Autodetector: autodetect.Detector{},
		Engine:       tableEngine{engine: dtable.NewEngine()},
		Catalog:      dtable.NewCatalog(),
		Specs:        specfile.Loader{},
		Reporter:     report.Writer{},
		History:      history.Opener{},
		Badge:        badge.Writer{},
		Out:          out,
		Err:          errw,
	}
}

// tableEngine adapts the concrete engine, which returns *dtable.Table,
// to the application port that deals in the Table interface.
type tableEngine struct {
	engine dtable.Engine
}

func (e tableEngine) Load(path string) (application.Table, error) {
	return e.engine.Load(path)
}

func outputFlags(fs *flag.FlagSet, allowed ...application.OutputFormat) *application.OutputFormat {
	output := application.OutputText
	usage := "Output format: " + formatList(allowed)
	fs.Var(&outputValue{value: &output, allowed: allowed}, "output", usage)
	fs.Var(&outputValue{value: &output, allowed: allowed}, "o", usage)
	return &output
}

// outputValue validates -output against the formats the command
// actually renders.
type outputValue struct {
	value   *application.OutputFormat
	allowed []application.OutputFormat
}

func (o *outputValue) String() string {
	if o.value == nil {
		return ""
	}
	return string(*o.value)
}

func (o *outputValue) Set(value string) error {
	for _, format := range o.allowed {
		if value == string(format) {
			*o.value = format
			return nil
		}
	}
	return fmt.Errorf("invalid output format: %s", value)
}

func formatList(formats []application.OutputFormat) string {
	parts := make([]string, len(formats))
	for i, f := range formats {
		parts[i] = string(f)
	}
	return strings.Join(parts, "|")
}

func writeConfigFile(path string, cfg application.Config, stdout io.Writer, force bool) error {
	if path == "-" {
		return config.Write(stdout, cfg)
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config %s already exists", path)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := config.Write(file, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "config written to %s\n", path)
	return nil
}

func usage(w io.Writer) {
	fmt.Fprintln(w, `rulecov <command>

Commands:
  check    Run the declarative suite and enforce coverage policy
  report   Run the suite and print the rule coverage report
  list     List table sources with their decisions and rules
  detect   Autodetect table and spec roots (--write-config to save)
  init     Run autodetect plus the interactive wizard
  watch    Re-run check whenever tables or specs change
  record   Record current coverage to history
  trend    Show coverage movement across recorded runs
  badge    Generate an SVG coverage badge
  mcp      Serve check, report, and record over MCP stdio
  version  Print version information`)
}

// exitCode prints err and maps it to a shell exit code. Gating
// outcomes exit 1 so CI can tell "coverage failed" apart from "the
// run itself broke".
func exitCode(err error, code int, stderr io.Writer) int {
	if err == nil {
		return 0
	}
	fmt.Fprintln(stderr, err)
	if errors.Is(err, application.ErrPolicyViolation) || errors.Is(err, application.ErrCaseFailures) {
		return 1
	}
	return code
}

func runWatch(ctx context.Context, stdout, stderr io.Writer, svc Service, configPath string, output application.OutputFormat) int {
	w, err := watcher.New(watcher.WithDebounce(500 * time.Millisecond))
	if err != nil {
		fmt.Fprintf(stderr, "failed to create watcher: %v\n", err)
		return 3
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		fmt.Fprintln(stdout, "\nstopping watch mode")
		cancel()
	}()

	fmt.Fprintln(stdout, "watching for table and spec changes (Ctrl+C to stop)")

	callback := func(run int, runErr error) {
		fmt.Fprintf(stdout, "\n--- run #%d at %s ---\n", run, time.Now().Format("15:04:05"))
		if runErr != nil {
			fmt.Fprintf(stderr, "run failed: %v\n", runErr)
		} else {
			fmt.Fprintln(stdout, "suite passed")
		}
	}

	opts := application.WatchOptions{ConfigPath: configPath, Output: output}
	if err := svc.Watch(ctx, opts, w, callback); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return 0
		}
		fmt.Fprintf(stderr, "watch error: %v\n", err)
		return 3
	}
	return 0
}
