// Package audit runs data-driven security and accessibility checks over the
// code a migration produced. Rules are regular expressions applied line by
// line, plus a few whole-file checks.
package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/phobologic/vbscan/internal/discover"
	"github.com/phobologic/vbscan/internal/lang"
	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/source"
)

// maxContent caps the source excerpt stored in a finding.
const maxContent = 120

// SkipDirs are build and tool directories never audited.
var SkipDirs = []string{"dist", "coverage", ".angular"}

// commentPrefixes mark comment lines for files without a tree-sitter grammar.
var commentPrefixes = map[string][]string{
	".html": {"<!--"},
	".css":  {"/*", "*"},
	".scss": {"/*", "*", "//"},
	".json": nil,
}

var defaultCommentPrefixes = []string{"//", "*"}

// Report is the outcome of an audit.
type Report struct {
	Timestamp     string          `json:"timestamp"`
	FilesScanned  int             `json:"files_scanned"`
	TotalFindings int             `json:"total_findings"`
	Critical      int             `json:"critical"`
	Warnings      int             `json:"warnings"`
	Passed        bool            `json:"passed"`
	Findings      []model.Finding `json:"findings"`
}

// Auditor accumulates findings over one or more directories.
type Auditor struct {
	rules    []Rule
	reader   source.Reader
	exts     map[string]struct{}
	files    int
	findings []model.Finding
}

// New returns an Auditor for rules. Only files with an extension some rule
// inspects are read.
func New(rules []Rule, r source.Reader) *Auditor {
	a := &Auditor{rules: rules, reader: r, exts: make(map[string]struct{})}
	for _, rule := range rules {
		for _, e := range rule.Extensions {
			a.exts[e] = struct{}{}
		}
	}
	return a
}

// ScanDir audits every matching file under dir.
func (a *Auditor) ScanDir(dir string) error {
	files, err := discover.Files(dir, discover.Options{SkipDirs: SkipDirs})
	if err != nil {
		return err
	}
	for _, f := range files {
		if _, ok := a.exts[f.Ext]; !ok {
			continue
		}
		text, ok := a.reader.Read(f.Path)
		if !ok {
			continue
		}
		a.files++
		a.scanFile(f, text)
	}
	return nil
}

func (a *Auditor) scanFile(f model.SourceFile, text string) {
	lines := strings.Split(text, "\n")
	comments := commentLines(f.Ext, text, lines)

	for i := range a.rules {
		rule := &a.rules[i]
		if !rule.appliesTo(f.Name, f.Ext) {
			continue
		}
		switch rule.Check {
		case Headings:
			a.checkHeadings(rule, f, text)
		case Count:
			a.checkCount(rule, f, text)
		case Line:
			for _, p := range rule.Patterns {
				for n, line := range lines {
					if comments[n+1] || !p.Match(line) {
						continue
					}
					a.add(rule, f.Path, n+1, truncate(strings.TrimSpace(line), maxContent))
				}
			}
		}
	}
}

// commentLines uses the tree-sitter grammar for the extension when there is
// one and falls back to a prefix check.
func commentLines(ext, text string, lines []string) map[int]bool {
	if marked, ok, err := lang.CommentLines(ext, []byte(text)); ok && err == nil {
		return marked
	}
	prefixes, known := commentPrefixes[ext]
	if !known {
		prefixes = defaultCommentPrefixes
	}
	marked := make(map[int]bool)
	for n, line := range lines {
		trimmed := strings.TrimSpace(line)
		for _, p := range prefixes {
			if strings.HasPrefix(trimmed, p) {
				marked[n+1] = true
				break
			}
		}
	}
	return marked
}

func (a *Auditor) checkCount(rule *Rule, f model.SourceFile, text string) {
	n := 0
	for _, p := range rule.Patterns {
		n += len(p.re.FindAllStringIndex(text, -1))
	}
	if n == 0 || n == rule.Expected {
		return
	}
	label := rule.Label
	if label == "" {
		label = "matches"
	}
	a.add(rule, f.Path, 0, fmt.Sprintf("Found %d %s (expected %d)", n, label, rule.Expected))
}

func (a *Auditor) checkHeadings(rule *Rule, f model.SourceFile, text string) {
	prev := 0
	for _, m := range headingRe.FindAllStringSubmatchIndex(text, -1) {
		level := int(text[m[2]] - '0')
		if prev > 0 && level > prev+1 {
			line := strings.Count(text[:m[0]], "\n") + 1
			a.add(rule, f.Path, line, fmt.Sprintf("Heading skips: h%d → h%d", prev, level))
		}
		prev = level
	}
}

// CheckDependencies reports every dependency rule whose package is absent
// from dir/package.json. A missing package.json is not an error.
func (a *Auditor) CheckDependencies(dir string) error {
	path := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var pkg struct {
		Dependencies    map[string]json.RawMessage `json:"dependencies"`
		DevDependencies map[string]json.RawMessage `json:"devDependencies"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	for i := range a.rules {
		rule := &a.rules[i]
		if rule.Check != Dependency {
			continue
		}
		_, dep := pkg.Dependencies[rule.Package]
		_, dev := pkg.DevDependencies[rule.Package]
		if dep || dev {
			continue
		}
		a.add(rule, path, 0, "Missing package: "+rule.Package)
		a.findings[len(a.findings)-1].Fix = "npm install " + rule.Package
	}
	return nil
}

func (a *Auditor) add(rule *Rule, path string, line int, content string) {
	a.findings = append(a.findings, model.Finding{
		RuleID:      rule.ID,
		RuleName:    rule.Name,
		Severity:    rule.Severity,
		File:        path,
		Line:        line,
		Content:     content,
		Description: rule.Description,
		Fix:         rule.Fix,
	})
}

// Report summarizes everything found so far. An audit passes when nothing
// CRITICAL was found.
func (a *Auditor) Report(now time.Time) Report {
	rep := Report{
		Timestamp:     now.Format("2006-01-02T15:04:05.000000"),
		FilesScanned:  a.files,
		TotalFindings: len(a.findings),
		Findings:      append([]model.Finding{}, a.findings...),
	}
	for _, f := range a.findings {
		switch {
		case f.Severity == model.Critical:
			rep.Critical++
		case !f.Severity.AtLeast(model.High):
			rep.Warnings++
		}
	}
	rep.Passed = rep.Critical == 0
	return rep
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
