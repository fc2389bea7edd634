package audit

import (
	"regexp"
	"strings"

	"github.com/phobologic/vbscan/internal/model"
)

var (
	htmlExts  = []string{".html"}
	styleExts = []string{".css", ".scss"}
)

// A11yRules check WCAG 2.1 AA basics in templates and stylesheets.
var A11yRules = []Rule{
	{
		ID: "A11Y-001", Name: "Images must have alt attribute", Suite: SuiteA11y, Severity: model.Critical,
		Patterns:    []Pattern{vetoed(`<img\b([^>]*)>`, groupLacks(1, `\balt\s*=`))},
		Extensions:  htmlExts,
		Description: "Screen readers cannot describe images without alternative text",
		Fix:         `Add alt="descriptive text" to all <img> tags`,
	},
	{
		ID: "A11Y-002", Name: "Form inputs must have labels", Suite: SuiteA11y, Severity: model.Critical,
		Patterns:    []Pattern{vetoed(`<input\b([^>]*)>`, groupLacks(1, `aria-label|\[attr\.aria-label\]`))},
		Extensions:  htmlExts,
		Description: "Inputs without a label are announced without context",
		Fix:         `Add <label for="..."> or aria-label attribute`,
	},
	{
		ID: "A11Y-003", Name: "Buttons must have accessible names", Suite: SuiteA11y, Severity: model.Critical,
		Patterns:    []Pattern{pat(`<button\b[^>]*>\s*<(?:mat-icon|i\b)[^>]*>[^<]*</(?:mat-icon|i)>\s*</button>`)},
		Extensions:  htmlExts,
		Description: "Icon-only buttons have no accessible name",
		Fix:         "Add aria-label to icon-only buttons",
	},
	{
		ID: "A11Y-005", Name: "Page should have exactly one h1", Suite: SuiteA11y, Severity: model.Critical,
		Check: Count, Patterns: []Pattern{pat(`<h1[\s>]`)}, Expected: 1, Label: "h1 tags",
		Extensions:  htmlExts,
		Description: "A page needs a single top-level heading",
		Fix:         "Ensure each route component has exactly one <h1>",
	},
	{
		ID: "A11Y-006", Name: "Heading hierarchy must not skip levels", Suite: SuiteA11y, Severity: model.Critical,
		Check:       Headings,
		Extensions:  htmlExts,
		Description: "Skipped heading levels break document outline navigation",
		Fix:         "Use headings in order: h1 → h2 → h3, never skip levels",
	},
	{
		ID: "A11Y-008", Name: "ARIA roles must be valid", Suite: SuiteA11y, Severity: model.Critical,
		Patterns:    []Pattern{vetoed(`role="([^"]*)"`, unknownRole)},
		Extensions:  htmlExts,
		Description: "Unknown roles are ignored by assistive technology",
		Fix:         "Use valid ARIA roles from WAI-ARIA specification",
	},
	{
		ID: "A11Y-W02", Name: "Focus indicators must be visible", Suite: SuiteA11y, Severity: model.Medium,
		Patterns:    []Pattern{vetoed(`outline\s*:\s*(?:none|0)\b`, noLaterOutline)},
		Extensions:  styleExts,
		Description: "Keyboard users lose track of focus without an outline",
		Fix:         "Never remove outline without providing alternative focus indicator",
	},
	{
		ID: "A11Y-W03", Name: "HTML must have lang attribute", Suite: SuiteA11y, Severity: model.Medium,
		Filename:    "index.html",
		Patterns:    []Pattern{vetoed(`<html\b([^>]*)`, groupLacks(1, `\blang\s*=`))},
		Extensions:  htmlExts,
		Description: "Screen readers need the page language to pick a voice",
		Fix:         `Add lang="es" (or appropriate language) to <html> tag`,
	},
	{
		ID: "A11Y-W04", Name: "Tables must have header cells", Suite: SuiteA11y, Severity: model.Medium,
		Patterns:    []Pattern{vetoed(`(?s)<table\b[^>]*>(.*?)</table>`, groupLacks(1, `<th[\s>]`))},
		Extensions:  htmlExts,
		Description: "Data tables without header cells cannot be navigated by column",
		Fix:         "Add <th> elements to table headers",
	},
}

// groupLacks accepts a match whose capture group does not contain expr.
func groupLacks(group int, expr string) func(string, []int) bool {
	re := regexp.MustCompile("(?i)" + expr)
	return func(line string, m []int) bool {
		if m[2*group] < 0 {
			return true
		}
		return !re.MatchString(line[m[2*group]:m[2*group+1]])
	}
}

var validRoles = []string{
	"alert", "button", "checkbox", "dialog", "grid", "heading", "img", "link", "list",
	"listitem", "menu", "menuitem", "navigation", "option", "progressbar", "radio", "row",
	"search", "status", "tab", "tabpanel", "textbox", "toolbar", "tooltip", "tree",
}

// unknownRole accepts a role value that does not start with a known role.
func unknownRole(line string, m []int) bool {
	role := strings.ToLower(line[m[2]:m[3]])
	for _, v := range validRoles {
		if strings.HasPrefix(role, v) {
			return false
		}
	}
	return true
}

// noLaterOutline accepts outline removal unless the same rule block restores
// an outline further along the line.
func noLaterOutline(line string, m []int) bool {
	rest := line[m[1]:]
	if i := strings.IndexByte(rest, '}'); i >= 0 {
		rest = rest[:i]
	}
	return !strings.Contains(strings.ToLower(rest), "outline")
}

var headingRe = regexp.MustCompile(`(?i)<h([1-6])[\s>]`)
