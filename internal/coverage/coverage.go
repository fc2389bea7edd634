// Package coverage gates a migration on the test coverage of its layers,
// read from Istanbul coverage-summary.json files.
package coverage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Metric names in report order.
var Metrics = []string{"lines", "statements", "functions", "branches"}

// Thresholds are minimum percentages per metric.
type Thresholds struct {
	Lines      float64 `mapstructure:"lines"`
	Statements float64 `mapstructure:"statements"`
	Functions  float64 `mapstructure:"functions"`
	Branches   float64 `mapstructure:"branches"`
}

// DefaultThresholds returns 80% for lines, statements and functions and 70%
// for branches.
func DefaultThresholds() Thresholds {
	return Thresholds{Lines: 80, Statements: 80, Functions: 80, Branches: 70}
}

func (t Thresholds) of(metric string) float64 {
	switch metric {
	case "lines":
		return t.Lines
	case "statements":
		return t.Statements
	case "functions":
		return t.Functions
	default:
		return t.Branches
	}
}

// Result compares one metric against its threshold.
type Result struct {
	Metric    string  `json:"metric"`
	Actual    float64 `json:"actual"`
	Threshold float64 `json:"threshold"`
	Passed    bool    `json:"passed"`
}

// Layer is the validation of one coverage summary.
type Layer struct {
	Name    string   `json:"name"`
	Path    string   `json:"path"`
	Results []Result `json:"results"`
	// Err is set when the summary could not be read; the layer then fails.
	Err error `json:"-"`
}

// Passed reports whether every metric met its threshold.
func (l Layer) Passed() bool {
	if l.Err != nil {
		return false
	}
	for _, r := range l.Results {
		if !r.Passed {
			return false
		}
	}
	return true
}

// Validator accumulates layer results.
type Validator struct {
	Thresholds Thresholds
	Layers     []Layer
}

// New returns a Validator using t.
func New(t Thresholds) *Validator {
	return &Validator{Thresholds: t}
}

type summary struct {
	Total map[string]struct {
		Pct json.RawMessage `json:"pct"`
	} `json:"total"`
}

// Validate reads the summary at path and records it under name. It reports
// whether the layer passed.
func (v *Validator) Validate(name, path string) bool {
	layer := Layer{Name: name, Path: path}
	if totals, err := readTotals(path); err != nil {
		layer.Err = err
	} else {
		for _, m := range Metrics {
			actual, threshold := totals[m], v.Thresholds.of(m)
			layer.Results = append(layer.Results, Result{
				Metric:    m,
				Actual:    actual,
				Threshold: threshold,
				Passed:    actual >= threshold,
			})
		}
	}
	v.Layers = append(v.Layers, layer)
	return layer.Passed()
}

// readTotals returns the total percentage per metric. Metrics absent from
// the summary count as 0; Istanbul's "Unknown" (nothing to cover) counts as 100.
func readTotals(path string) (map[string]float64, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("coverage file not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading coverage file: %w", err)
	}
	var s summary
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing coverage file %s: %w", path, err)
	}

	totals := make(map[string]float64, len(Metrics))
	for _, m := range Metrics {
		raw := s.Total[m].Pct
		if len(raw) == 0 {
			continue
		}
		var pct float64
		if err := json.Unmarshal(raw, &pct); err == nil {
			totals[m] = pct
			continue
		}
		var word string
		if err := json.Unmarshal(raw, &word); err == nil && strings.EqualFold(word, "unknown") {
			totals[m] = 100
			continue
		}
		return nil, fmt.Errorf("parsing coverage file %s: bad %s pct %s", path, m, raw)
	}
	return totals, nil
}

// Passed reports whether at least one layer was validated and all passed.
func (v *Validator) Passed() bool {
	if len(v.Layers) == 0 {
		return false
	}
	for _, l := range v.Layers {
		if !l.Passed() {
			return false
		}
	}
	return true
}

// Discover looks for coverage summaries in the conventional places under
// dir and returns the backend and frontend paths it found.
func Discover(dir string) (backend, frontend string) {
	candidates := []struct {
		rel      string
		frontend bool
	}{
		{"analysis/coverage/backend/coverage-summary.json", false},
		{"analysis/coverage/frontend/coverage-summary.json", true},
		{"coverage/coverage-summary.json", false},
	}
	for _, c := range candidates {
		path := filepath.Join(dir, filepath.FromSlash(c.rel))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		switch {
		case c.frontend && frontend == "":
			frontend = path
		case !c.frontend && backend == "":
			backend = path
		}
	}
	return backend, frontend
}

// Markdown renders the validation report.
func (v *Validator) Markdown(now time.Time) string {
	t := v.Thresholds
	var b strings.Builder
	b.WriteString("# Coverage Validation Report\n")
	fmt.Fprintf(&b, "\n**Generated:** %s\n", now.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "\n**Thresholds:** Lines %.1f%% | Statements %.1f%% | Functions %.1f%% | Branches %.1f%%\n",
		t.Lines, t.Statements, t.Functions, t.Branches)
	b.WriteString("\n---\n")

	for _, l := range v.Layers {
		fmt.Fprintf(&b, "\n## %s Coverage %s\n\n", l.Name, verdict(l.Passed()))
		if l.Err != nil {
			fmt.Fprintf(&b, "%s\n", l.Err)
			continue
		}
		b.WriteString("| Metric | Actual | Threshold | Status |\n")
		b.WriteString("|--------|--------|-----------|--------|\n")
		for _, r := range l.Results {
			fmt.Fprintf(&b, "| %s | %.1f%% | %.1f%% | %s |\n", capitalize(r.Metric), r.Actual, r.Threshold, icon(r.Passed))
		}
	}

	b.WriteString("\n---\n\n")
	if v.Passed() {
		b.WriteString("## ✅ Overall: PASS\n\nAll coverage thresholds met. Ready for deployment.\n")
		return b.String()
	}
	b.WriteString("## ❌ Overall: FAIL\n\nCoverage thresholds not met. Deployment blocked.\n")
	b.WriteString("\n### Action Required\n\n")
	b.WriteString("1. Add more unit tests to increase coverage\n")
	b.WriteString("2. Focus on untested branches and functions\n")
	b.WriteString("3. Run `npm test -- --coverage` to see detailed report\n")
	return b.String()
}

func verdict(passed bool) string {
	if passed {
		return "✅ PASS"
	}
	return "❌ FAIL"
}

func icon(passed bool) string {
	if passed {
		return "✅"
	}
	return "❌"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
