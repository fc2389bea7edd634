// Package repair drives the self-healing loop of a migration: it reads test
// runner output, classifies each failure, plans repairs while capping the
// attempts spent on any single error, and reports how the loop went.
package repair

import (
	"regexp"
	"strconv"
	"strings"
)

// maxMessage caps the error text stored for a failure.
const maxMessage = 500

// Unknown is the error type of a failure no pattern recognizes.
const Unknown = "unknown"

// Failure is one failed test.
type Failure struct {
	TestName     string `json:"test_name"`
	FilePath     string `json:"file_path"`
	ErrorType    string `json:"error_type"`
	Message      string `json:"error_message"`
	Line         int    `json:"line_number"`
	SuggestedFix string `json:"suggested_fix"`
}

// ID identifies an error across runs by file, line and type.
func (f Failure) ID() string {
	return errorID(f.FilePath, f.Line, f.ErrorType)
}

func errorID(file string, line int, errType string) string {
	return file + ":" + strconv.Itoa(line) + ":" + errType
}

// ErrorPattern recognizes a class of test failure. Fix is expanded with the
// pattern's submatches ($1, $2).
type ErrorPattern struct {
	Type string
	re   *regexp.Regexp
	Fix  string
}

func errorPattern(typ, expr, fix string) ErrorPattern {
	return ErrorPattern{Type: typ, re: regexp.MustCompile("(?s)" + expr), Fix: fix}
}

// ErrorPatterns are tried in order; the first match classifies a failure.
var ErrorPatterns = []ErrorPattern{
	errorPattern("property_not_exist", `Property '(\w+)' does not exist on type '(\w+)'`,
		"Add property '$1' to interface/class '$2' or check for typo"),
	errorPattern("cannot_find_module", `Cannot find module '([^']+)'`,
		"Import missing module '$1' or install package"),
	errorPattern("undefined_signal", `Cannot read properties of undefined \(reading '(\w+)'\)`,
		"Initialize signal '$1' before use or check for null"),
	errorPattern("missing_provider", `NullInjectorError: No provider for (\w+)`,
		"Add '$1' to providers in component or app.config"),
	errorPattern("expect_mismatch", `Expected:.*?Received:`,
		"Update expected value or fix implementation to match expected"),
	errorPattern("undefined_function", `(\w+) is not a function`,
		"Check that '$1' is properly exported and imported"),
	errorPattern("mock_not_called", `Expected.*to have been called`,
		"Verify mock setup or ensure function is actually called"),
	errorPattern("element_not_found", `Timeout.*waiting for selector.*'([^']+)'`,
		"Update selector '$1' to match actual element or increase timeout"),
	errorPattern("navigation_timeout", `page.goto: Timeout \d+ms exceeded`,
		"Increase navigation timeout or check if server is running"),
	errorPattern("assertion_failed", `expect\(.*\)\.toHaveURL\(.*\)`,
		"Verify route configuration matches expected URL"),
	errorPattern("zone_change_detection", `NG0100|ExpressionChangedAfterItHasBeenChecked`,
		"Use signal.set() inside effect() or move to constructor"),
	errorPattern("onpush_required", `NG0(?:0)?(?:500|501)`,
		"Add changeDetection: ChangeDetectionStrategy.OnPush to component"),
}

var (
	jestHeader       = regexp.MustCompile(`● ([^\n]+)\n\n`)
	playwrightHeader = regexp.MustCompile(`(?s)(\d+)\) \[.*?\] › (.*?)\n`)
	jestNext         = regexp.MustCompile(`\n\n[ \t]*● `)
	playwrightNext   = regexp.MustCompile(`\n[ \t]*\d+\) `)
	sourceLocation   = regexp.MustCompile(`at .*?([^\s()]+\.ts):(\d+)`)
)

// Parse detects the test runner from its output and extracts the failures.
// Output from neither Jest nor Playwright yields no failures.
func Parse(output string) []Failure {
	switch {
	case strings.Contains(output, "FAIL") && strings.Contains(output, "●"):
		return ParseJest(output)
	case strings.Contains(output, "passed") && strings.Contains(output, "failed"):
		return ParsePlaywright(output)
	}
	return nil
}

// ParseJest extracts the "● name" blocks of Jest output. A block runs until
// the next blank-line-separated, possibly indented "● " or the end of the
// output.
func ParseJest(output string) []Failure {
	var out []Failure
	for pos := 0; pos < len(output); {
		m := jestHeader.FindStringSubmatchIndex(output[pos:])
		if m == nil {
			break
		}
		name := strings.TrimSpace(output[pos+m[2] : pos+m[3]])
		start := pos + m[1]
		end := len(output)
		if loc := jestNext.FindStringIndex(output[start:]); loc != nil {
			end = start + loc[0]
		}
		out = append(out, classify(name, strings.TrimSpace(output[start:end])))
		pos = end
	}
	return out
}

// ParsePlaywright extracts the "N) [project] › path" blocks of Playwright
// output. The failure's file is the path up to the first " › ".
func ParsePlaywright(output string) []Failure {
	var out []Failure
	for pos := 0; pos < len(output); {
		m := playwrightHeader.FindStringSubmatchIndex(output[pos:])
		if m == nil {
			break
		}
		testPath := strings.TrimSpace(output[pos+m[4] : pos+m[5]])
		start := pos + m[1]
		end := len(output)
		if loc := playwrightNext.FindStringIndex(output[start:]); loc != nil {
			end = start + loc[0]
		}
		f := classify(testPath, strings.TrimSpace(output[start:end]))
		f.FilePath, _, _ = strings.Cut(testPath, " › ")
		out = append(out, f)
		pos = end
	}
	return out
}

// classify matches an error block against ErrorPatterns.
func classify(name, block string) Failure {
	f := Failure{
		TestName:     name,
		ErrorType:    Unknown,
		Message:      truncate(block, maxMessage),
		SuggestedFix: "Manual review required - unknown error pattern",
	}
	for _, p := range ErrorPatterns {
		m := p.re.FindStringSubmatchIndex(block)
		if m == nil {
			continue
		}
		f.ErrorType = p.Type
		f.SuggestedFix = string(p.re.ExpandString(nil, p.Fix, block, m))
		if loc := sourceLocation.FindStringSubmatch(block); loc != nil {
			f.FilePath = loc[1]
			f.Line, _ = strconv.Atoi(loc[2])
		}
		break
	}
	return f
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}
