// Package wizard is the interactive init flow: review the detected
// roots and starter policy, adjust them, confirm before anything is
// written.
package wizard

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rulecov/rulecov/internal/application"
)

type wizardState int

const (
	stateIntro wizardState = iota
	stateEdit
	stateConfirm
)

// Edit rows, top to bottom.
const (
	rowTables = iota
	rowSpecs
	rowMin
	rowCount
)

type initWizardModel struct {
	state      wizardState
	base       application.Config
	tables     string
	specs      string
	defaultMin float64
	cursor     int
	confirmed  bool
	aborted    bool
}

// Run drives the wizard over the proposed config and returns the
// edited config plus whether the user confirmed it.
func Run(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	return runInitWizard(cfg, stdout, stdin)
}

func runInitWizard(cfg application.Config, stdout io.Writer, stdin io.Reader) (application.Config, bool, error) {
	model := newInitWizardModel(cfg)
	program := tea.NewProgram(model, tea.WithInput(stdin), tea.WithOutput(stdout))
	res, err := program.Run()
	if err != nil {
		return cfg, false, err
	}
	finalModel, ok := res.(*initWizardModel)
	if !ok {
		return cfg, false, fmt.Errorf("unexpected wizard state")
	}
	if finalModel.aborted || !finalModel.confirmed {
		return cfg, false, nil
	}
	return finalModel.toConfig(), true, nil
}

func newInitWizardModel(cfg application.Config) *initWizardModel {
	tables := cfg.Tables
	if tables == "" {
		tables = "rules"
	}
	specs := cfg.Specs
	if specs == "" {
		specs = tables
	}
	defaultMin := cfg.Policy.DefaultMin
	if defaultMin <= 0 {
		defaultMin = 80
	}
	return &initWizardModel{
		state:      stateIntro,
		base:       cfg,
		tables:     tables,
		specs:      specs,
		defaultMin: defaultMin,
	}
}

func (m *initWizardModel) Init() tea.Cmd {
	return nil
}

func (m *initWizardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "ctrl+c":
		m.aborted = true
		return m, tea.Quit
	case "enter":
		switch m.state {
		case stateIntro:
			m.state = stateEdit
		case stateEdit:
			m.state = stateConfirm
		case stateConfirm:
			m.confirmed = true
			return m, tea.Quit
		}
		return m, nil
	case "esc":
		if m.state == stateConfirm {
			m.state = stateEdit
		}
		return m, nil
	case "up":
		if m.state == stateEdit && m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down":
		if m.state == stateEdit && m.cursor < rowCount-1 {
			m.cursor++
		}
		return m, nil
	}

	// q aborts only outside the edit screen, where it is a legitimate
	// character in a directory name.
	if m.state != stateEdit {
		if key.String() == "q" {
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil
	}

	switch m.cursor {
	case rowMin:
		switch key.String() {
		case "left", "-":
			m.defaultMin = clamp(m.defaultMin-5, 0, 100)
		case "right", "+":
			m.defaultMin = clamp(m.defaultMin+5, 0, 100)
		}
	case rowTables:
		m.tables = editText(m.tables, key)
	case rowSpecs:
		m.specs = editText(m.specs, key)
	}
	return m, nil
}

// editText applies one keystroke to a root path field.
func editText(value string, key tea.KeyMsg) string {
	switch key.Type {
	case tea.KeyBackspace:
		if len(value) > 0 {
			return value[:len(value)-1]
		}
		return value
	case tea.KeyRunes, tea.KeySpace:
		return value + string(key.Runes)
	default:
		return value
	}
}

func (m *initWizardModel) View() string {
	switch m.state {
	case stateIntro:
		return m.viewIntro()
	case stateEdit:
		return m.viewEdit()
	case stateConfirm:
		return m.viewConfirm()
	default:
		return ""
	}
}

func (m *initWizardModel) viewIntro() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nrulecov init wizard\n\n")
	fmt.Fprintf(&b, "Detected tables root %q", m.tables)
	if m.specs != m.tables {
		fmt.Fprintf(&b, " and specs root %q", m.specs)
	}
	fmt.Fprintf(&b, ". The wizard helps you review the roots and the coverage threshold.\n\n")
	fmt.Fprintf(&b, "Press Enter to continue, or Ctrl+C to cancel. Default minimum is %.0f%%.\n", m.defaultMin)
	return b.String()
}

func (m *initWizardModel) viewEdit() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReview and adjust the configuration\n\n")
	fmt.Fprintf(&b, "Use ↑/↓ to move. Type to edit roots; ←/→ or +/- change the threshold.\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Tables root", m.tables},
		{"Specs root", m.specs},
		{"Default min", fmt.Sprintf("%.0f%%", m.defaultMin)},
	}
	for i, row := range rows {
		indicator := "  "
		if m.cursor == i {
			indicator = "> "
		}
		fmt.Fprintf(&b, "%s%s: %s\n", indicator, row.label, row.value)
	}
	fmt.Fprintf(&b, "\nEnter to continue, Ctrl+C to cancel.\n")
	return b.String()
}

func (m *initWizardModel) viewConfirm() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nReady to write .rulecov.yaml\n\n")
	fmt.Fprintf(&b, "Tables root: %s\n", m.tables)
	fmt.Fprintf(&b, "Specs root: %s\n", m.specs)
	fmt.Fprintf(&b, "Default min coverage: %.0f%%\n", m.defaultMin)
	if len(m.base.Exclude) > 0 {
		fmt.Fprintf(&b, "\nConfigured exclusions:\n")
		for _, pattern := range m.base.Exclude {
			fmt.Fprintf(&b, "  - %s\n", pattern)
		}
	}
	fmt.Fprintf(&b, "\nPress Enter to save, Esc to go back, q to cancel.\n")
	return b.String()
}

func (m *initWizardModel) toConfig() application.Config {
	cfg := m.base
	cfg.Version = 1
	cfg.Tables = strings.TrimSpace(m.tables)
	cfg.Specs = strings.TrimSpace(m.specs)
	if cfg.Tables == "" {
		cfg.Tables = "rules"
	}
	if cfg.Specs == "" {
		cfg.Specs = cfg.Tables
	}
	cfg.Policy.DefaultMin = m.defaultMin
	return cfg
}

func clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
