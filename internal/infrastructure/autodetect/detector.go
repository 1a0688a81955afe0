// Package autodetect proposes a configuration by scanning the working
// tree for decision-table sources.
package autodetect

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rulecov/rulecov/internal/application"
	"github.com/rulecov/rulecov/internal/domain"
)

const (
	tableSuffix = ".table.yaml"
	specSuffix  = ".spec.yaml"
)

// Detector derives tables and specs roots from where *.table.yaml and
// *.spec.yaml files actually live under Root. It backs the init
// wizard's defaults and the implicit config fallback when no
// .rulecov.yaml exists.
type Detector struct {
	// Root is the directory to scan; empty means the working
	// directory.
	Root string
}

// Detect scans for sources and proposes a config with an 80% starter
// policy. When no table files exist at all, the conventional "rules"
// root is proposed so init produces a usable file either way.
func (d Detector) Detect() (application.Config, error) {
	root := d.Root
	if root == "" {
		root = "."
	}

	tables := commonDir(root, tableSuffix)
	specs := commonDir(root, specSuffix)
	if tables == "" {
		tables = "rules"
	}
	if specs == "" {
		specs = tables
	}

	return application.Config{
		Version: 1,
		Tables:  tables,
		Specs:   specs,
		Policy:  domain.Policy{DefaultMin: 80},
	}, nil
}

// commonDir returns the shallowest directory containing every file
// with the given suffix, relative to root, or "" when none exist.
func commonDir(root, suffix string) string {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			base := filepath.Base(path)
			if path != root && (strings.HasPrefix(base, ".") || base == "vendor" || base == "node_modules") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), suffix) {
			rel, err := filepath.Rel(root, filepath.Dir(path))
			if err != nil {
				return nil
			}
			dirs = append(dirs, rel)
		}
		return nil
	})
	if len(dirs) == 0 {
		return ""
	}
	sort.Strings(dirs)

	common := dirs[0]
	for _, dir := range dirs[1:] {
		common = commonPrefix(common, dir)
		if common == "." {
			break
		}
	}
	return common
}

// commonPrefix reduces two relative directories to their shared
// ancestor, "." when they share none.
func commonPrefix(a, b string) string {
	if a == b {
		return a
	}
	as := strings.Split(a, string(os.PathSeparator))
	bs := strings.Split(b, string(os.PathSeparator))
	n := 0
	for n < len(as) && n < len(bs) && as[n] == bs[n] {
		n++
	}
	if n == 0 {
		return "."
	}
	return filepath.Join(as[:n]...)
}
