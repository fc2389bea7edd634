package coverage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func summaryJSON(lines, statements, functions, branches string) string {
	return `{"total": {
  "lines": {"total": 10, "covered": 9, "pct": ` + lines + `},
  "statements": {"pct": ` + statements + `},
  "functions": {"pct": ` + functions + `},
  "branches": {"pct": ` + branches + `}
}}`
}

func TestValidatePassAndFail(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "backend.json", summaryJSON("85", "82.5", "90", "70"))
	writeFile(t, root, "frontend.json", summaryJSON("79.9", "80", "80", "65"))

	v := New(DefaultThresholds())
	assert.True(t, v.Validate("Backend", filepath.Join(root, "backend.json")))
	assert.False(t, v.Validate("Frontend", filepath.Join(root, "frontend.json")))
	assert.False(t, v.Passed())

	require.Len(t, v.Layers, 2)
	front := v.Layers[1].Results
	require.Len(t, front, 4)
	assert.Equal(t, Result{Metric: "lines", Actual: 79.9, Threshold: 80, Passed: false}, front[0])
	assert.True(t, front[1].Passed, "equal to the threshold passes")
	assert.Equal(t, Result{Metric: "branches", Actual: 65, Threshold: 70, Passed: false}, front[3])
}

func TestValidateUnknownAndMissingMetrics(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "s.json", `{"total": {"lines": {"pct": "Unknown"}, "statements": {"pct": 100}}}`)

	v := New(DefaultThresholds())
	assert.False(t, v.Validate("Backend", filepath.Join(root, "s.json")))
	r := v.Layers[0].Results
	assert.Equal(t, 100.0, r[0].Actual)
	assert.Equal(t, 0.0, r[2].Actual)
}

func TestValidateUnreadableFileFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "bad.json", "{")

	v := New(DefaultThresholds())
	assert.False(t, v.Validate("Backend", filepath.Join(root, "missing.json")))
	assert.False(t, v.Validate("Frontend", filepath.Join(root, "bad.json")))
	assert.ErrorContains(t, v.Layers[0].Err, "coverage file not found")
	assert.Error(t, v.Layers[1].Err)
	assert.False(t, v.Passed())

	assert.False(t, New(DefaultThresholds()).Passed(), "nothing validated is not a pass")
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	writeFile(t, root, "b.json", summaryJSON("85", "85", "85", "75"))

	v := New(DefaultThresholds())
	v.Validate("Backend", filepath.Join(root, "b.json"))
	md := v.Markdown(time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC))

	assert.True(t, strings.HasPrefix(md, "# Coverage Validation Report\n\n**Generated:** 2024-03-04 05:06:07\n"))
	assert.Contains(t, md, "Lines 80.0% | Statements 80.0% | Functions 80.0% | Branches 70.0%")
	assert.Contains(t, md, "## Backend Coverage ✅ PASS")
	assert.Contains(t, md, "| Branches | 75.0% | 70.0% | ✅ |")
	assert.Contains(t, md, "## ✅ Overall: PASS")

	v.Validate("Frontend", filepath.Join(root, "none.json"))
	md = v.Markdown(time.Now())
	assert.Contains(t, md, "## Frontend Coverage ❌ FAIL\n\ncoverage file not found")
	assert.Contains(t, md, "### Action Required")
}

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	b, f := Discover(root)
	assert.Empty(t, b)
	assert.Empty(t, f)

	writeFile(t, root, "coverage/coverage-summary.json", "{}")
	writeFile(t, root, "analysis/coverage/frontend/coverage-summary.json", "{}")
	b, f = Discover(root)
	assert.Equal(t, filepath.Join(root, "coverage", "coverage-summary.json"), b)
	assert.Equal(t, filepath.Join(root, "analysis", "coverage", "frontend", "coverage-summary.json"), f)

	writeFile(t, root, "analysis/coverage/backend/coverage-summary.json", "{}")
	b, _ = Discover(root)
	assert.Equal(t, filepath.Join(root, "analysis", "coverage", "backend", "coverage-summary.json"), b)
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}
