package audit

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/phobologic/vbscan/internal/model"
)

// Check selects how a rule is evaluated.
type Check string

const (
	// Line reports every line matched by any of the rule's patterns.
	Line Check = ""
	// Count reports a file whose match count is neither zero nor Expected.
	Count Check = "count"
	// Headings reports heading levels that skip a level.
	Headings Check = "heading_hierarchy"
	// Dependency reports a package missing from package.json.
	Dependency Check = "dependency"
)

// Pattern is one case-insensitive RE2 expression. Built-in patterns may carry
// an accept func that vetoes a match; it stands in for lookaround, which RE2
// lacks.
type Pattern struct {
	Expr string

	re     *regexp.Regexp
	accept func(line string, m []int) bool
}

// UnmarshalYAML reads a pattern from a plain scalar.
func (p *Pattern) UnmarshalYAML(n *yaml.Node) error {
	return n.Decode(&p.Expr)
}

func pat(expr string) Pattern {
	return Pattern{Expr: expr, re: regexp.MustCompile("(?i)" + expr)}
}

func vetoed(expr string, accept func(line string, m []int) bool) Pattern {
	p := pat(expr)
	p.accept = accept
	return p
}

// Match reports whether any occurrence of p in line survives the veto.
func (p Pattern) Match(line string) bool {
	for _, m := range p.re.FindAllStringSubmatchIndex(line, -1) {
		if p.accept == nil || p.accept(line, m) {
			return true
		}
	}
	return false
}

// Rule is one audit check.
type Rule struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Suite       string         `yaml:"suite"`
	Severity    model.Severity `yaml:"severity"`
	Check       Check          `yaml:"check"`
	Patterns    []Pattern      `yaml:"patterns"`
	Extensions  []string       `yaml:"extensions"`
	Filename    string         `yaml:"filename"`
	Expected    int            `yaml:"expected"`
	Label       string         `yaml:"label"`
	Package     string         `yaml:"package"`
	Description string         `yaml:"description"`
	Fix         string         `yaml:"fix"`
}

// appliesTo reports whether the rule inspects a file.
func (r *Rule) appliesTo(name, ext string) bool {
	if r.Filename != "" && !strings.EqualFold(r.Filename, name) {
		return false
	}
	for _, e := range r.Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

func (r *Rule) compile() error {
	if r.ID == "" {
		return errors.New("rule without id")
	}
	switch r.Check {
	case Line, Count:
		if len(r.Patterns) == 0 {
			return fmt.Errorf("rule %s: no patterns", r.ID)
		}
	case Headings:
	case Dependency:
		if r.Package == "" {
			return fmt.Errorf("rule %s: dependency check without package", r.ID)
		}
	default:
		return fmt.Errorf("rule %s: unknown check %q", r.ID, r.Check)
	}
	for i := range r.Patterns {
		p := &r.Patterns[i]
		if p.re != nil {
			continue
		}
		re, err := regexp.Compile("(?i)" + p.Expr)
		if err != nil {
			return fmt.Errorf("rule %s: %w", r.ID, err)
		}
		p.re = re
	}
	for i, e := range r.Extensions {
		e = strings.ToLower(e)
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		r.Extensions[i] = e
	}
	if r.Check == Count && r.Expected == 0 {
		r.Expected = 1
	}
	if r.Fix == "" {
		r.Fix = "Review manually"
	}
	return nil
}

type rulePack struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads extra rules from a YAML file of the form
//
//	rules:
//	  - id: SEC-100
//	    suite: security
//	    severity: CRITICAL
//	    patterns: ['document\.write\s*\(']
//	    extensions: [.ts, .js]
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}
	var pack rulePack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parsing rules %s: %w", path, err)
	}
	for i := range pack.Rules {
		if err := pack.Rules[i].compile(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return pack.Rules, nil
}

// ForSuite returns the rules tagged with suite or left untagged.
func ForSuite(rules []Rule, suite string) []Rule {
	var out []Rule
	for _, r := range rules {
		if r.Suite == "" || r.Suite == suite {
			out = append(out, r)
		}
	}
	return out
}
