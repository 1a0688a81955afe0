// Package config reads and writes .rulecov.yaml files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
	"github.com/rulecov/rulecov/internal/pathutil"
)

// DefaultTablesRoot is assumed when the config names no tables root.
const DefaultTablesRoot = "rules"

type Loader struct{}

type fileConfig struct {
	Version int         `yaml:"version"`
	Tables  string      `yaml:"tables"`
	Specs   string      `yaml:"specs,omitempty"`
	Exclude []string    `yaml:"exclude,omitempty"`
	Policy  filePolicy  `yaml:"policy"`
	History fileHistory `yaml:"history,omitempty"`
}

type filePolicy struct {
	Default   fileDefault    `yaml:"default"`
	Decisions []fileDecision `yaml:"decisions,omitempty"`
}

type fileDefault struct {
	Min float64 `yaml:"min"`
}

type fileDecision struct {
	Key string   `yaml:"key"`
	Min *float64 `yaml:"min"`
}

type fileHistory struct {
	Path string `yaml:"path,omitempty"`
}

func (l Loader) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Load reads the config at path. The specs root defaults to the
// tables root, so side-by-side table and spec files need no extra
// configuration.
func (l Loader) Load(path string) (application.Config, error) {
	cleanPath, err := pathutil.ValidatePath(path)
	if err != nil {
		return application.Config{}, fmt.Errorf("config path: %w", err)
	}
	raw, err := os.ReadFile(cleanPath)
	if err != nil {
		return application.Config{}, err
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return application.Config{}, fmt.Errorf("parsing %s: %w", path, err)
	}

	policy := domain.Policy{
		DefaultMin: cfg.Policy.Default.Min,
		Decisions:  make([]domain.DecisionPolicy, 0, len(cfg.Policy.Decisions)),
	}
	for _, d := range cfg.Policy.Decisions {
		if d.Key == "" {
			return application.Config{}, fmt.Errorf("parsing %s: policy decision with empty key", path)
		}
		policy.Decisions = append(policy.Decisions, domain.DecisionPolicy{
			Key: d.Key,
			Min: d.Min,
		})
	}

	tables := cfg.Tables
	if tables == "" {
		tables = DefaultTablesRoot
	}
	specs := cfg.Specs
	if specs == "" {
		specs = tables
	}

	return application.Config{
		Version: cfg.Version,
		Tables:  tables,
		Specs:   specs,
		Exclude: cfg.Exclude,
		Policy:  policy,
		History: application.HistoryConfig{Path: cfg.History.Path},
	}, nil
}

// Write renders cfg as config-file YAML.
func Write(w io.Writer, cfg application.Config) error {
	out := fileConfig{
		Version: cfg.Version,
		Tables:  cfg.Tables,
		Exclude: cfg.Exclude,
		Policy: filePolicy{
			Default:   fileDefault{Min: cfg.Policy.DefaultMin},
			Decisions: make([]fileDecision, 0, len(cfg.Policy.Decisions)),
		},
		History: fileHistory{Path: cfg.History.Path},
	}
	if cfg.Specs != cfg.Tables {
		out.Specs = cfg.Specs
	}
	for _, d := range cfg.Policy.Decisions {
		out.Policy.Decisions = append(out.Policy.Decisions, fileDecision{
			Key: d.Key,
			Min: d.Min,
		})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	return enc.Encode(out)
}
