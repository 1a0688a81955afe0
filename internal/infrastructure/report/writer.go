// Package report renders coverage reports, policy checks, catalogs,
// and trends in the CLI's output formats.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
)

var (
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#16A34A")).Bold(true)
	failStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#DC2626")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CA8A04")).Bold(true)
)

type Writer struct{}

// WriteReport renders the aggregate coverage report. The yaml format
// follows the canonical report shape: one block per source file in
// discovery order, decisions in catalog order, a _summary per file.
func (Writer) WriteReport(w io.Writer, rep domain.Report, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		return writeJSON(w, rep)
	case application.OutputYAML:
		return writeReportYAML(w, rep)
	case application.OutputHTML:
		return writeReportHTML(w, rep)
	case application.OutputText, "":
		return writeReportText(w, rep)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteCheck renders the policy verdict.
func (Writer) WriteCheck(w io.Writer, res domain.PolicyResult, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		return writeJSON(w, res)
	case application.OutputYAML:
		return yamlEncode(w, res)
	case application.OutputBrief:
		return writeCheckBrief(w, res)
	case application.OutputText, "":
		return writeCheckText(w, res)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteCatalog renders the table inventory for the list command.
func (Writer) WriteCatalog(w io.Writer, files []application.CatalogFile, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		return writeJSON(w, struct {
			Files []application.CatalogFile `json:"files"`
		}{files})
	case application.OutputYAML:
		return yamlEncode(w, struct {
			Files []application.CatalogFile `yaml:"files"`
		}{files})
	case application.OutputText, "":
		return writeCatalogText(w, files)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteTrend renders recorded history and its direction.
func (Writer) WriteTrend(w io.Writer, trend application.TrendReport, format application.OutputFormat) error {
	switch format {
	case application.OutputJSON:
		return writeJSON(w, trend)
	case application.OutputYAML:
		return yamlEncode(w, trend)
	case application.OutputText, "":
		return writeTrendText(w, trend)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// WriteEvalTrace renders one evaluation as a standalone YAML document
// so traces from a whole run form a valid multi-document stream.
func (Writer) WriteEvalTrace(w io.Writer, ev domain.EvaluationEvent) error {
	doc := &yaml.Node{Kind: yaml.MappingNode}
	appendEntry(doc, "decision", scalarNode(ev.Decision))

	inputs := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range sortedKeys(ev.Inputs) {
		n, err := valueNode(ev.Inputs[name])
		if err != nil {
			return err
		}
		appendEntry(inputs, name, n)
	}
	appendEntry(doc, "inputs", inputs)

	matched := &yaml.Node{Kind: yaml.SequenceNode}
	for _, m := range ev.Matches {
		rule := &yaml.Node{Kind: yaml.MappingNode}
		appendEntry(rule, "rule", scalarNode(m.RuleID))
		outputs := &yaml.Node{Kind: yaml.MappingNode}
		for _, out := range m.Outputs {
			n, err := valueNode(out.Value)
			if err != nil {
				return err
			}
			appendEntry(outputs, out.Name, n)
		}
		appendEntry(rule, "outputs", outputs)
		matched.Content = append(matched.Content, rule)
	}
	appendEntry(doc, "matched", matched)

	if _, err := fmt.Fprintln(w, "---"); err != nil {
		return err
	}
	return yamlEncodeNode(w, doc)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yamlEncode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func yamlEncodeNode(w io.Writer, n *yaml.Node) error {
	return yamlEncode(w, n)
}

func writeReportText(w io.Writer, rep domain.Report) error {
	if len(rep.Files) == 0 {
		_, err := fmt.Fprintln(w, "no rule tables discovered")
		return err
	}

	colorize := colorEnabled(w)
	for _, file := range rep.Files {
		fmt.Fprintf(w, "%s\n", file.Path)
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "  Decision\tRules\tCoverage\tUncovered")
		for _, dc := range file.Decisions {
			fmt.Fprintf(tw, "  %s\t%d/%d\t%s\t%s\n",
				dc.Decision, dc.CoveredRules, dc.TotalRules,
				coverageCell(dc.Coverage, colorize),
				strings.Join(dc.UncoveredRules, ", "))
		}
		fmt.Fprintf(tw, "  _summary\t%d/%d\t%s\t\n",
			file.Summary.Covered, file.Summary.Total,
			coverageCell(file.Summary.Ratio(), colorize))
		if err := tw.Flush(); err != nil {
			return err
		}
	}
	overall := rep.Overall()
	_, err := fmt.Fprintf(w, "overall: %d/%d rules covered (%.1f%%)\n",
		overall.Covered, overall.Total, domain.Round1(overall.Percent()))
	return err
}

// coverageCell renders a percentage, colored by how complete it is
// when the destination is a terminal.
func coverageCell(ratio float64, colorize bool) string {
	text := fmt.Sprintf("%.1f%%", domain.Round1(ratio*100))
	if !colorize {
		return text
	}
	switch {
	case ratio >= 1:
		return passStyle.Render(text)
	case ratio == 0:
		return failStyle.Render(text)
	default:
		return warnStyle.Render(text)
	}
}

func writeReportYAML(w io.Writer, rep domain.Report) error {
	root := &yaml.Node{Kind: yaml.MappingNode}
	for _, file := range rep.Files {
		fileNode := &yaml.Node{Kind: yaml.MappingNode}
		for _, dc := range file.Decisions {
			decNode := &yaml.Node{Kind: yaml.MappingNode}
			appendEntry(decNode, "totalRules", intNode(dc.TotalRules))
			appendEntry(decNode, "coveredRules", intNode(dc.CoveredRules))
			appendEntry(decNode, "coverage", floatNode(dc.Coverage))
			uncovered := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
			for _, id := range dc.UncoveredRules {
				uncovered.Content = append(uncovered.Content, scalarNode(id))
			}
			appendEntry(decNode, "uncoveredRules", uncovered)
			appendEntry(fileNode, dc.Decision, decNode)
		}
		summary := &yaml.Node{Kind: yaml.MappingNode}
		appendEntry(summary, "totalRules", intNode(file.Summary.Total))
		appendEntry(summary, "coveredRules", intNode(file.Summary.Covered))
		appendEntry(summary, "coverage", floatNode(file.Summary.Ratio()))
		appendEntry(fileNode, "_summary", summary)

		appendEntry(root, file.Path, fileNode)
	}
	return yamlEncodeNode(w, root)
}

func writeCheckText(w io.Writer, res domain.PolicyResult) error {
	colorize := colorEnabled(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tDecision\tCoverage\tRequired\tStatus")
	for _, d := range res.Decisions {
		status := string(d.Status)
		if colorize {
			if d.Status == domain.StatusPass {
				status = passStyle.Render(status)
			} else {
				status = failStyle.Render(status)
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f%%\t%.1f%%\t%s\n", d.File, d.Decision, d.Percent, d.Required, status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	verdict := "PASS"
	if !res.Passed {
		verdict = "FAIL"
	}
	if colorize {
		if res.Passed {
			verdict = passStyle.Render(verdict)
		} else {
			verdict = failStyle.Render(verdict)
		}
	}
	_, err := fmt.Fprintf(w, "%s\n", verdict)
	return err
}

// writeCheckBrief renders one line shaped for tool consumption:
// STATUS | XX.X% overall | N/M decisions passing [| failing: ...].
func writeCheckBrief(w io.Writer, res domain.PolicyResult) error {
	var covered, total, passing int
	var failed []domain.DecisionResult
	for _, d := range res.Decisions {
		covered += d.Covered
		total += d.Total
		if d.Status == domain.StatusFail {
			failed = append(failed, d)
		} else {
			passing++
		}
	}
	overall := 100.0
	if total > 0 {
		overall = float64(covered) / float64(total) * 100
	}
	status := "PASS"
	if !res.Passed {
		status = "FAIL"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s | %.1f%% overall | %d/%d decisions passing",
		status, domain.Round1(overall), passing, len(res.Decisions))
	if len(failed) > 0 {
		sb.WriteString(" | failing:")
		for i, d := range failed {
			if i > 0 {
				sb.WriteString(",")
			}
			fmt.Fprintf(&sb, " %s (%.1f%%)", d.Decision, d.Percent)
		}
	}
	sb.WriteString("\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

func writeCatalogText(w io.Writer, files []application.CatalogFile) error {
	if len(files) == 0 {
		_, err := fmt.Fprintln(w, "no rule tables discovered")
		return err
	}
	for _, file := range files {
		fmt.Fprintf(w, "%s\n", file.Path)
		for _, dec := range file.Decisions {
			fmt.Fprintf(w, "  %s (%d rules)\n", dec.Decision, len(dec.Rules))
			for _, rule := range dec.Rules {
				fmt.Fprintf(w, "    %s: when %s then %s\n",
					rule.ID, joinOrDash(rule.Conditions), joinOrDash(rule.Outputs))
			}
		}
	}
	return nil
}

func joinOrDash(cells []string) string {
	parts := make([]string, len(cells))
	for i, c := range cells {
		if c == "" {
			parts[i] = "-"
		} else {
			parts[i] = c
		}
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func writeTrendText(w io.Writer, trend application.TrendReport) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Timestamp\tRun\tBranch\tOverall")
	for _, e := range trend.Entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.1f%%\n",
			e.Timestamp.Format("2006-01-02 15:04"), shortID(e.RunID), e.Branch, e.Overall)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	arrow := "→"
	switch trend.Trend.Direction {
	case domain.TrendUp:
		arrow = "↑"
	case domain.TrendDown:
		arrow = "↓"
	}
	_, err := fmt.Fprintf(w, "trend: %s %+.1f%%\n", arrow, trend.Trend.Delta)
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func colorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}

func appendEntry(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content, scalarNode(key), value)
}

func scalarNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: s}
}

func intNode(i int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: strconv.Itoa(i)}
}

// floatNode always carries a decimal point so consumers parse a float
// even at exactly 0 or 1.
func floatNode(v float64) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: domain.FormatRatio(v)}
}

func valueNode(v domain.Value) (*yaml.Node, error) {
	var n yaml.Node
	if err := n.Encode(v); err != nil {
		return nil, err
	}
	return &n, nil
}

func sortedKeys(m map[string]domain.Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
