package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func readJSON(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parsing %s: %v", path, err)
	}
	return doc
}

func createSampleProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTestFile(t, dir, "Orders.vbp", `Type=Exe
Form=frmMain.frm
Form=frmReport.frm
Module=modData; modData.bas
Class=clsOrder; clsOrder.cls
`)
	writeTestFile(t, dir, "frmMain.frm", `VERSION 5.00
Begin VB.Form frmMain
   Caption         =   "Orders"
   Begin VB.CommandButton cmdSave
      Caption         =   "Save"
   End
End
Attribute VB_Name = "frmMain"
Private Sub cmdSave_Click()
    On Error Resume Next
    If SaveOrder(1) Then
        MsgBox "Saved"
    End If
End Sub
`)
	writeTestFile(t, dir, "frmReport.frm", `VERSION 5.00
Begin VB.Form frmReport
   Caption         =   "Report"
End
Attribute VB_Name = "frmReport"
`)
	writeTestFile(t, dir, "modData.bas", `Attribute VB_Name = "modData"
Public gConnString As String
Private Declare Function GetTickCount Lib "kernel32" () As Long

Public Function SaveOrder(id)
    conn.Execute "INSERT INTO Orders (OrderID) VALUES (" & id & ")"
    SaveOrder = True
End Function

Public Sub Unused()
    Debug.Print "never called"
End Sub
`)
	writeTestFile(t, dir, "clsOrder.cls", `Attribute VB_Name = "clsOrder"
Public Sub Load()
    Set rs = conn.Execute("SELECT * FROM Orders WHERE OrderID = 1")
End Sub
`)
	return dir
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{"version"}, {"--version"}} {
		var stdout, stderr bytes.Buffer
		if err := run(args, &stdout, &stderr); err != nil {
			t.Fatalf("run %v: %v", args, err)
		}
		if !strings.HasPrefix(stdout.String(), "vbscan ") {
			t.Errorf("version output for %v: %q", args, stdout.String())
		}
	}
}

func TestRunScan(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	out := filepath.Join(t.TempDir(), "analysis.json")
	html := filepath.Join(t.TempDir(), "audit.html")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", dir, "-o", out, "--html", html}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}

	doc := readJSON(t, out)
	summary, ok := doc["summary"].(map[string]any)
	if !ok {
		t.Fatalf("summary missing: %v", doc)
	}
	for key, want := range map[string]float64{"forms_count": 2, "modules_count": 1, "classes_count": 1, "projects_count": 1} {
		if summary[key] != want {
			t.Errorf("%s = %v, want %v", key, summary[key], want)
		}
	}
	if _, err := os.Stat(html); err != nil {
		t.Errorf("html report not written: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".vb6_scanner_cache.json")); err != nil {
		t.Errorf("cache not written: %v", err)
	}
	if !strings.Contains(stdout.String(), "Analysis saved to") {
		t.Errorf("missing summary:\n%s", stdout.String())
	}
}

func TestRunScanCache(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	out := filepath.Join(t.TempDir(), "analysis.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", dir, "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("first run: %v", err)
	}
	first, _ := os.ReadFile(out)

	stdout.Reset()
	if err := run([]string{"scan", dir, "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(stdout.String(), "cached analysis") {
		t.Errorf("second run should use the cache:\n%s", stdout.String())
	}
	second, _ := os.ReadFile(out)
	if !bytes.Equal(first, second) {
		t.Error("cached analysis differs from the original")
	}

	// A changed file invalidates the cache.
	writeTestFile(t, dir, "modExtra.bas", "Attribute VB_Name = \"modExtra\"\n")
	stdout.Reset()
	if err := run([]string{"scan", dir, "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if strings.Contains(stdout.String(), "cached analysis") {
		t.Error("a new file should force a full scan")
	}
}

func TestRunScanOutputInsideTree(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	out := filepath.Join(dir, "vb6_analysis.json")
	page := filepath.Join(dir, "reports", "analysis.html")

	var stdout, stderr bytes.Buffer
	for i := 0; i < 3; i++ {
		stdout.Reset()
		if err := run([]string{"scan", dir, "-o", out, "--html", page}, &stdout, &stderr); err != nil {
			t.Fatalf("run %d: %v\nstderr: %s", i+1, err, stderr.String())
		}
		if i > 0 && !strings.Contains(stdout.String(), "cached analysis") {
			t.Errorf("run %d should reuse the cache despite its own output in the tree:\n%s", i+1, stdout.String())
		}
	}

	data, _ := json.Marshal(readJSON(t, out)["inventory"])
	for _, name := range []string{"vb6_analysis.json", "analysis.html"} {
		if strings.Contains(string(data), name) {
			t.Errorf("inventory lists the scanner's own output %s", name)
		}
	}
}

func TestRunScanNoCache(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", dir, "--no-cache", "-o", filepath.Join(t.TempDir(), "a.json")}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".vb6_scanner_cache.json")); err == nil {
		t.Error("--no-cache should not write the cache")
	}
}

func TestRunScanStdout(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", dir, "--no-cache", "-o", "-", "--pretty"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	var doc map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &doc); err != nil {
		t.Fatalf("stdout should hold only JSON: %v\n%s", err, stdout.String())
	}
	if _, ok := doc["call_graph"]; !ok {
		t.Error("call_graph missing")
	}
}

func TestRunNotADirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	file := filepath.Join(dir, "file.bas")
	writeTestFile(t, dir, "file.bas", "Attribute VB_Name = \"x\"\n")

	for _, cmd := range []string{"scan", "deadcode", "graph", "metrics", "schema", "hardcoded", "stack"} {
		args := []string{cmd, file}
		if cmd != "stack" {
			args = append(args, "-o", filepath.Join(dir, "out.json"))
		}
		var stdout, stderr bytes.Buffer
		if err := run(args, &stdout, &stderr); err == nil {
			t.Errorf("%s: expected error for non-directory root", cmd)
		}
	}
}

func TestRunAnalyzers(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	tests := []struct {
		cmd  string
		keys []string
	}{
		{cmd: "deadcode", keys: []string{"summary", "dead_functions", "orphan_forms", "unused_globals"}},
		{cmd: "graph", keys: []string{"summary", "nodes", "edges", "circular_dependencies", "hub_modules", "migration_order"}},
		{cmd: "metrics", keys: []string{"summary", "files", "functions", "complexity_distribution", "risk_indicators"}},
		{cmd: "schema", keys: []string{"summary", "tables", "relationships"}},
		{cmd: "hardcoded", keys: []string{"summary", "findings"}},
	}
	for _, tt := range tests {
		t.Run(tt.cmd, func(t *testing.T) {
			t.Parallel()
			out := filepath.Join(t.TempDir(), tt.cmd+".json")

			var stdout, stderr bytes.Buffer
			if err := run([]string{tt.cmd, dir, "-o", out, "--pretty"}, &stdout, &stderr); err != nil {
				t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
			}
			doc := readJSON(t, out)
			for _, k := range tt.keys {
				if _, ok := doc[k]; !ok {
					t.Errorf("key %q missing", k)
				}
			}
		})
	}
}

func TestRunDeadcodeFindsUnused(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	out := filepath.Join(t.TempDir(), "dead.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"deadcode", dir, "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), `.Unused"`) {
		t.Errorf("Unused should be reported dead:\n%s", data)
	}
	if strings.Contains(string(data), `cmdSave_Click"`) {
		t.Error("event handlers are never dead")
	}
}

func TestRunSchemaPrisma(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	tmp := t.TempDir()

	var stdout, stderr bytes.Buffer
	err := run([]string{"schema", dir, "-o", filepath.Join(tmp, "schema.json"), "--prisma", filepath.Join(tmp, "schema.prisma")}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(tmp, "schema.prisma"))
	if err != nil {
		t.Fatalf("prisma schema not written: %v", err)
	}
	if !strings.Contains(string(data), "model Orders") {
		t.Errorf("missing Orders model:\n%s", data)
	}
}

func TestRunGraphToon(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"graph", dir, "--format", "toon", "-n", "2"}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	out := stdout.String()
	if !strings.HasPrefix(out, "source: "+filepath.Base(dir)) {
		t.Errorf("toon output should start with the source name:\n%s", out)
	}
	if !strings.Contains(out, "summary: nodes=2 ") {
		t.Errorf("-n 2 should keep two nodes:\n%s", out)
	}
	if strings.Contains(out, "saved to") {
		t.Error("status lines must not mix with the document on stdout")
	}
}

func TestRunGraphBadFormat(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	var stdout, stderr bytes.Buffer
	err := run([]string{"graph", dir, "--format", "xml"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("expected unsupported format error, got %v", err)
	}
}

func TestRunLogic(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	tmp := t.TempDir()
	analysis := filepath.Join(tmp, "analysis.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"scan", dir, "--no-cache", "-o", analysis}, &stdout, &stderr); err != nil {
		t.Fatalf("scan: %v", err)
	}
	md := filepath.Join(tmp, "logic.md")
	html := filepath.Join(tmp, "logic.html")
	if err := run([]string{"logic", analysis, "-o", md, "--html", html}, &stdout, &stderr); err != nil {
		t.Fatalf("logic: %v\nstderr: %s", err, stderr.String())
	}

	data, _ := os.ReadFile(md)
	if !strings.HasPrefix(string(data), "# VB6 Logic Analysis") {
		t.Errorf("unexpected document:\n%s", data)
	}
	if !strings.Contains(string(data), "```vb") {
		t.Error("routine bodies should be fenced vb blocks")
	}
	page, _ := os.ReadFile(html)
	if !strings.Contains(string(page), "<h1") {
		t.Errorf("html should render the markdown headings:\n%s", page)
	}
}

func TestRunLogicMalformedInput(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "bad.json", "{not json")

	var stdout, stderr bytes.Buffer
	err := run([]string{"logic", filepath.Join(dir, "bad.json"), "-o", filepath.Join(dir, "out.md")}, &stdout, &stderr)
	if err == nil {
		t.Fatal("expected an error for malformed analysis")
	}
	if errors.Is(err, errVerdictFailed) {
		t.Error("malformed input is an error, not a verdict")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "out.md")); statErr == nil {
		t.Error("no output should be written")
	}
}

func TestRunSecurity(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "web/src/app.ts", "const run = (s: string) => eval(s);\n")
	writeTestFile(t, root, "api/src/server.js", "app.listen(3000);\n")
	writeTestFile(t, root, "api/package.json", `{"dependencies": {"express-validator": "1", "express-rate-limit": "1", "helmet": "1"}}`)
	out := filepath.Join(root, "reports", "security.json")
	html := filepath.Join(root, "reports", "security.html")

	var stdout, stderr bytes.Buffer
	err := run([]string{"security", "--frontend", filepath.Join(root, "web/src"), "--backend", filepath.Join(root, "api/src"), "-o", out, "--html", html}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Fatalf("expected failed verdict, got %v", err)
	}

	doc := readJSON(t, out)
	if doc["critical"] != 1.0 || doc["passed"] != false || doc["files_scanned"] != 2.0 {
		t.Errorf("unexpected report: %v", doc)
	}
	page, _ := os.ReadFile(html)
	if !strings.Contains(string(page), "SEC-002") {
		t.Errorf("html report should list the finding:\n%s", page)
	}
}

func TestRunSecurityRequiresInput(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"security", "-o", filepath.Join(t.TempDir(), "s.json")}, &stdout, &stderr)
	if err == nil || errors.Is(err, errVerdictFailed) {
		t.Errorf("expected a usage error, got %v", err)
	}
}

func TestRunA11yPasses(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "src/app/home.html", `<h1>Home</h1>
<h2>Orders</h2>
<img src="logo.png" alt="Logo">
`)
	out := filepath.Join(root, "a11y.json")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"a11y", "--input", filepath.Join(root, "src"), "-o", out}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	doc := readJSON(t, out)
	if doc["passed"] != true || doc["total_findings"] != 0.0 {
		t.Errorf("clean templates should pass: %v", doc)
	}
}

func TestRunA11yRulePack(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	writeTestFile(t, root, "src/page.html", "<h1>Hi</h1>\n<marquee>news</marquee>\n")
	writeTestFile(t, root, "rules.yaml", `rules:
  - id: A11Y-100
    name: Marquee
    suite: a11y
    severity: CRITICAL
    patterns: ['<marquee\b']
    extensions: [.html]
  - id: SEC-100
    suite: security
    severity: CRITICAL
    patterns: ['<h1>']
    extensions: [.html]
`)
	writeTestFile(t, root, "vbscan.yaml", "audit:\n  rules_file: "+filepath.Join(root, "rules.yaml")+"\n")
	out := filepath.Join(root, "a11y.json")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", filepath.Join(root, "vbscan.yaml"), "a11y", "-i", filepath.Join(root, "src"), "-o", out}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Fatalf("expected failed verdict, got %v", err)
	}
	data, _ := os.ReadFile(out)
	if !strings.Contains(string(data), "A11Y-100") {
		t.Errorf("rule pack finding missing:\n%s", data)
	}
	if strings.Contains(string(data), "SEC-100") {
		t.Error("security rules must not run in the a11y suite")
	}
}

const coverageSummary = `{"total": {
  "lines": {"pct": %s},
  "statements": {"pct": 90},
  "functions": {"pct": 85},
  "branches": {"pct": 75}
}}`

func TestRunCoverage(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "good.json", strings.Replace(coverageSummary, "%s", "92.5", 1))
	writeTestFile(t, dir, "bad.json", strings.Replace(coverageSummary, "%s", "41", 1))
	report := filepath.Join(dir, "COVERAGE.md")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"coverage", "-b", filepath.Join(dir, "good.json"), "-o", report}, &stdout, &stderr); err != nil {
		t.Fatalf("passing coverage: %v\nstderr: %s", err, stderr.String())
	}
	data, _ := os.ReadFile(report)
	if !strings.HasPrefix(string(data), "# Coverage Validation Report") {
		t.Errorf("unexpected report:\n%s", data)
	}

	err := run([]string{"coverage", "-b", filepath.Join(dir, "good.json"), "-f", filepath.Join(dir, "bad.json")}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Errorf("expected failed verdict, got %v", err)
	}

	// Lowering the threshold lets the same file pass.
	if err := run([]string{"coverage", "-f", filepath.Join(dir, "bad.json"), "-t", "40"}, &stdout, &stderr); err != nil {
		t.Errorf("threshold override: %v", err)
	}

	err = run([]string{"coverage", "-b", filepath.Join(dir, "missing.json")}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Errorf("a missing summary fails the gate, got %v", err)
	}

	err = run([]string{"coverage", "-b", filepath.Join(dir, "good.json"), "-t", "120"}, &stdout, &stderr)
	if err == nil || errors.Is(err, errVerdictFailed) {
		t.Errorf("expected a threshold error, got %v", err)
	}
}

const jestFailures = `FAIL src/app/order.component.spec.ts
  ● OrderComponent › should create

    NullInjectorError: No provider for OrderService!
        at Object.<anonymous> (src/app/order.component.spec.ts:12:5)

  ● OrderComponent › weird

    Something odd happened
`

func TestRunRepairLoop(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	repairs := filepath.Join(dir, "repairs")
	writeTestFile(t, dir, "jest.txt", jestFailures)
	writeTestFile(t, dir, "clean.txt", "PASS src/app/order.component.spec.ts\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"repair", "plan", filepath.Join(dir, "jest.txt"), "--dir", repairs}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Fatalf("repairs needed should fail the run, got %v", err)
	}
	if !strings.Contains(stdout.String(), "# Test Repair Instructions - Iteration 1") {
		t.Errorf("missing instructions:\n%s", stdout.String())
	}
	if _, err := os.Stat(filepath.Join(repairs, "repair_plan_001.json")); err != nil {
		t.Errorf("plan not saved: %v", err)
	}

	stdout.Reset()
	err = run([]string{"repair", "plan", filepath.Join(dir, "jest.txt"), "--dir", repairs, "--json"}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Fatalf("second plan: %v", err)
	}
	var status map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &status); err != nil {
		t.Fatalf("--json output: %v\n%s", err, stdout.String())
	}
	if status["status"] != "repairs_needed" || status["iteration"] != 2.0 || status["total_failures"] != 2.0 {
		t.Errorf("unexpected status: %v", status)
	}

	stdout.Reset()
	if err := run([]string{"repair", "plan", filepath.Join(dir, "clean.txt"), "--dir", repairs}, &stdout, &stderr); err != nil {
		t.Fatalf("clean run: %v", err)
	}

	summary := filepath.Join(dir, "summary.json")
	html := filepath.Join(dir, "REPAIR_REPORT.html")
	if err := run([]string{"repair", "report", "--dir", repairs, "-o", summary, "--html", html}, &stdout, &stderr); err != nil {
		t.Fatalf("report: %v\nstderr: %s", err, stderr.String())
	}
	doc := readJSON(t, summary)
	s := doc["summary"].(map[string]any)
	if s["total_errors"] != 2.0 || s["skipped"] != 1.0 || s["in_progress"] != 1.0 {
		t.Errorf("unexpected summary: %v", s)
	}
	if _, err := os.Stat(html); err != nil {
		t.Errorf("html not written: %v", err)
	}
}

func TestRunRepairReportFailed(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "jest.txt", jestFailures)

	var stdout, stderr bytes.Buffer
	for i := 0; i < 2; i++ {
		_ = run([]string{"repair", "plan", filepath.Join(dir, "jest.txt"), "--dir", dir, "-m", "2"}, &stdout, &stderr)
	}
	err := run([]string{"repair", "report", "--dir", dir, "-m", "2", "-o", filepath.Join(dir, "summary.json")}, &stdout, &stderr)
	if !errors.Is(err, errVerdictFailed) {
		t.Errorf("an exhausted error should fail the report, got %v", err)
	}
}

func TestRunStack(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"stack", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "vb6" {
		t.Errorf("stack = %q, want vb6", got)
	}
}

func TestRunConfig(t *testing.T) {
	t.Parallel()
	dir := createSampleProject(t)
	tmp := t.TempDir()
	writeTestFile(t, tmp, "bad.yaml", "coverage:\n  lines: 150\n")
	writeTestFile(t, tmp, "nocache.yaml", "cache:\n  enabled: false\n")

	var stdout, stderr bytes.Buffer
	err := run([]string{"--config", filepath.Join(tmp, "bad.yaml"), "stack", dir}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("expected invalid config error, got %v", err)
	}

	err = run([]string{"--config", filepath.Join(tmp, "missing.yaml"), "stack", dir}, &stdout, &stderr)
	if err == nil {
		t.Error("an explicit config file must exist")
	}

	err = run([]string{"--config", filepath.Join(tmp, "nocache.yaml"), "scan", dir, "-o", filepath.Join(tmp, "a.json")}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, ".vb6_scanner_cache.json")); err == nil {
		t.Error("cache.enabled: false should disable the cache")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"frobnicate"}, &stdout, &stderr); err == nil {
		t.Error("expected an error for an unknown command")
	}
}
