// Package hardcoded catalogs literal values in VB6 source that a migration
// should move into configuration: connection strings, paths, hosts,
// credentials and magic numbers.
package hardcoded

import (
	"regexp"
	"strings"

	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/source"
)

// Risk levels for a whole tree.
const (
	RiskHigh   = "HIGH"
	RiskMedium = "MEDIUM"
	RiskLow    = "LOW"
)

const (
	maxValue   = 100
	maxContext = 150
	// highRiskThreshold is the HIGH finding count above which the tree is HIGH risk.
	highRiskThreshold = 10
)

// Category describes one kind of hardcoded value.
type Category struct {
	Name           string
	Severity       model.Severity
	Recommendation string

	re *regexp.Regexp
	// group selects the capture holding the value; 0 means the whole match.
	group int
	// accept vetoes a match given the line and the match's submatch indexes.
	accept func(line string, m []int) bool
}

// Categories are applied in this order.
var Categories = []Category{
	{
		Name: "connection_string", Severity: model.High,
		Recommendation: "Move to environment variable or config file",
		re:             regexp.MustCompile(`(?i)"[^"]*(?:Provider|Data Source|Initial Catalog|User ID|Password|DSN|Database)[^"]*"`),
	},
	{
		Name: "windows_path", Severity: model.Medium,
		Recommendation: "Use relative paths or configuration",
		re:             regexp.MustCompile(`"[A-Za-z]:\\[^"]*"`),
	},
	{
		Name: "url", Severity: model.Medium,
		Recommendation: "Move to configuration/environment",
		re:             regexp.MustCompile(`(?i)"(?:https?://|ftp://|www\.)[^"]*"`),
	},
	{
		Name: "ip_address", Severity: model.High,
		Recommendation: "Use DNS names and configuration",
		re:             regexp.MustCompile(`"(?:\d{1,3}\.){3}\d{1,3}(?::\d+)?"`),
	},
	{
		Name: "email", Severity: model.Low,
		Recommendation: "Move to configuration",
		re:             regexp.MustCompile(`"[^"@]+@[^"@]+\.[^"@]+"`),
	},
	{
		Name: "credential", Severity: model.High,
		Recommendation: "SECURITY RISK - Move to secure vault",
		re:             regexp.MustCompile(`(?i)(?:password|pwd|passwd|secret|api.?key|token)\s*=\s*"[^"]+"`),
	},
	{
		Name: "magic_number", Severity: model.Low,
		Recommendation: "Extract to named constant",
		re:             regexp.MustCompile(`(?:<>|<=|>=|=|<|>)\s*(\d{2,})`),
		group:          1,
		accept:         standaloneNumber,
	},
	{
		Name: "dimension", Severity: model.Low,
		Recommendation: "Consider responsive design values",
		re:             regexp.MustCompile(`(?:Height|Width|Left|Top|Size)\s*=\s*(\d+)`),
		group:          1,
	},
	{
		Name: "limit_constant", Severity: model.Low,
		Recommendation: "Extract to configuration constant",
		re:             regexp.MustCompile(`(?i)(?:Max|Min|Limit|Count|Size|Length)\s*(?:<=|>=|=|<|>)\s*(\d+)`),
		group:          1,
	},
	{
		Name: "sql_table", Severity: model.Low,
		Recommendation: "Already noted - verify table names",
		re:             regexp.MustCompile(`(?i)(?:FROM|INTO|UPDATE|JOIN)\s+([A-Za-z_]\w*)`),
		group:          1,
	},
	{
		Name: "registry", Severity: model.Medium,
		Recommendation: "Document registry dependencies",
		re:             regexp.MustCompile(`(?i)"(?:HKEY_|HKLM|HKCU)[^"]*"`),
	},
	{
		Name: "server_name", Severity: model.High,
		Recommendation: "Move to configuration",
		re:             regexp.MustCompile(`(?i)(?:Server|Host|Machine)\s*=\s*"([^"]+)"`),
		group:          1,
	},
	{
		Name: "port_number", Severity: model.Medium,
		Recommendation: "Move to configuration",
		re:             regexp.MustCompile(`(?i)Port\s*=\s*(\d+)`),
		group:          1,
	},
	{
		Name: "date_format", Severity: model.Low,
		Recommendation: "Consider locale-aware formatting",
		re:             regexp.MustCompile(`Format\s*\([^,]+,\s*"([^"]+)"`),
		group:          1,
	},
	{
		Name: "timeout", Severity: model.Low,
		Recommendation: "Extract to configurable constant",
		re:             regexp.MustCompile(`(?i)(?:Timeout|Wait|Delay|Interval)\s*=\s*(\d+)`),
		group:          1,
	},
}

// matches returns the submatch indexes of every accepted match in line. A
// vetoed match is retried one byte further on, so a shorter match starting
// inside it still gets a chance.
func (c *Category) matches(line string) [][]int {
	if c.accept == nil {
		return c.re.FindAllStringSubmatchIndex(line, -1)
	}
	var out [][]int
	for start := 0; start < len(line); {
		m := c.re.FindStringSubmatchIndex(line[start:])
		if m == nil {
			break
		}
		for i := range m {
			if m[i] >= 0 {
				m[i] += start
			}
		}
		if !c.accept(line, m) {
			start = m[0] + 1
			continue
		}
		out = append(out, m)
		start = max(m[1], m[0]+1)
	}
	return out
}

// standaloneNumber rejects comparisons glued to a word or quote on either
// side, such as x="12" or a=12b.
func standaloneNumber(line string, m []int) bool {
	if m[0] > 0 && isWordOrQuote(line[m[0]-1]) {
		return false
	}
	if m[1] < len(line) && isWordOrQuote(line[m[1]]) {
		return false
	}
	return true
}

func isWordOrQuote(b byte) bool {
	return b == '"' || b == '_' ||
		(b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// Occurrence is one hardcoded value.
type Occurrence struct {
	File           string         `json:"file"`
	Line           int            `json:"line"`
	Value          string         `json:"value"`
	Context        string         `json:"context"`
	Severity       model.Severity `json:"severity"`
	Recommendation string         `json:"recommendation"`
}

// Summary totals the findings.
type Summary struct {
	TotalFindings int            `json:"total_findings"`
	ByCategory    map[string]int `json:"by_category"`
	RiskLevel     string         `json:"risk_level"`
}

// Report is the extraction result. Findings holds only non-empty categories.
type Report struct {
	Summary  Summary                 `json:"summary"`
	Findings map[string][]Occurrence `json:"findings"`
}

// Analyze scans every code file line by line. Comment lines never produce
// findings.
func Analyze(files []model.SourceFile, r source.Reader) Report {
	rep := Report{
		Summary:  Summary{ByCategory: map[string]int{}},
		Findings: map[string][]Occurrence{},
	}

	for _, f := range files {
		if !f.IsCode() {
			continue
		}
		text, ok := r.Read(f.Path)
		if !ok {
			continue
		}
		lines := parse.Lines(text)
		for _, c := range Categories {
			for _, l := range lines {
				if l.Comment {
					continue
				}
				for _, m := range c.matches(l.Text) {
					value := l.Text[m[2*c.group]:m[2*c.group+1]]
					rep.Findings[c.Name] = append(rep.Findings[c.Name], Occurrence{
						File:           f.Name,
						Line:           l.Num,
						Value:          truncate(value, maxValue, "..."),
						Context:        truncate(strings.TrimSpace(l.Text), maxContext, ""),
						Severity:       c.Severity,
						Recommendation: c.Recommendation,
					})
					rep.Summary.ByCategory[c.Name]++
					rep.Summary.TotalFindings++
				}
			}
		}
	}

	rep.Summary.RiskLevel = riskLevel(rep)
	return rep
}

func riskLevel(rep Report) string {
	high := 0
	for _, occ := range rep.Findings {
		for _, o := range occ {
			if o.Severity == model.High {
				high++
			}
		}
	}
	switch {
	case high > highRiskThreshold:
		return RiskHigh
	case high > 0 || rep.Summary.ByCategory["credential"] > 0:
		return RiskMedium
	}
	return RiskLow
}

// truncate shortens s to n runes, appending suffix when it cut anything.
func truncate(s string, n int, suffix string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + suffix
}
