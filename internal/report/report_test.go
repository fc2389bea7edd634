package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/vbscan/internal/audit"
	"github.com/phobologic/vbscan/internal/graph"
	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/scan"
)

func sampleAnalysis() *scan.Analysis {
	a := scan.Analyze("/src/Orders", nil, nil, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	a.Forms = []scan.Form{{
		Name:           "frmMain",
		Controls:       []parse.Control{{Library: "VB", Type: "Form", Name: "frmMain"}},
		Properties:     []parse.Property{{Name: "Caption", Value: `"A | B"`}},
		Events:         []parse.Event{{Control: "cmdSave", Event: "Click", Logic: "If x < 1 Then Save"}},
		Functions:      []scan.Routine{{Name: "Empty"}, {Name: "Calc", Logic: "Calc = 1"}},
		CRUDOperations: []string{"CREATE", "READ"},
	}}
	a.Modules = []scan.Module{{Name: "modUtil", Functions: []scan.Routine{{Name: "SaveOrder", Logic: "Debug.Print 1"}}}}
	a.Classes = []scan.Class{{
		Name:       "clsCustomer",
		Methods:    []scan.Routine{{Name: "Rename", Logic: "mName = n"}},
		Properties: []scan.Routine{{Name: "Name", Type: "Property Get", Logic: "Name = mName"}},
	}}
	a.CallGraph = scan.CallGraph{
		Nodes: []string{"frmMain", "modUtil"},
		Edges: []scan.CallEdge{{Source: "frmMain", Target: "modUtil", Function: "SaveOrder"}},
	}
	a.Risks = []scan.Risk{{Level: model.High, Category: "Dependencies", Description: "Found 1 ActiveX/OCX dependencies", Mitigation: "Find modern web alternatives or eliminate"}}
	return a
}

func TestJSONDeterministic(t *testing.T) {
	t.Parallel()

	v := map[string]any{"b": 1, "a": "<x & y>"}
	var b1, b2 bytes.Buffer
	require.NoError(t, JSON(&b1, v, false))
	require.NoError(t, JSON(&b2, v, false))

	assert.Equal(t, b1.String(), b2.String())
	assert.Equal(t, `{"a":"<x & y>","b":1}`+"\n", b1.String())

	var pretty bytes.Buffer
	require.NoError(t, JSON(&pretty, v, true))
	assert.Contains(t, pretty.String(), "\n  \"a\"")
}

func TestWriteFileSkipsOnRenderError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "out.json")
	err := WriteFile(path, func(io.Writer) error { return errors.New("boom") })
	assert.EqualError(t, err, "boom")
	assert.NoFileExists(t, path)

	require.NoError(t, WriteJSON(path, []int{1}, false))
	var got []int
	require.NoError(t, ReadJSON(path, &got))
	assert.Equal(t, []int{1}, got)
}

func TestReadJSONMalformed(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, WriteFile(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "{")
		return err
	}))
	var v map[string]any
	assert.Error(t, ReadJSON(path, &v))
	assert.Error(t, ReadJSON(filepath.Join(t.TempDir(), "missing.json"), &v))
}

func TestLogic(t *testing.T) {
	t.Parallel()

	out := Logic("analysis.json", sampleAnalysis())

	assert.True(t, strings.HasPrefix(out, "# VB6 Logic Analysis\n\nGenerated from: `analysis.json`\n"))
	assert.Contains(t, out, "### Form: frmMain")
	assert.Contains(t, out, "| Caption | \"A \\| B\" |")
	assert.Contains(t, out, "**cmdSave_Click**\n\n```vb\nIf x < 1 Then Save\n```")
	assert.Contains(t, out, "**Function: Calc**")
	assert.NotContains(t, out, "Function: Empty", "routines without a body are omitted")
	assert.Contains(t, out, "### Module: modUtil")
	assert.Contains(t, out, "**Method: Rename**")
	assert.Contains(t, out, "**Property Get: Name**")
	assert.Less(t, strings.Index(out, "## Forms Logic"), strings.Index(out, "## Modules Logic"))
	assert.Less(t, strings.Index(out, "## Modules Logic"), strings.Index(out, "## Classes Logic"))
}

func TestMarkdownToHTML(t *testing.T) {
	t.Parallel()

	var b bytes.Buffer
	require.NoError(t, MarkdownToHTML(&b, "Logic & Rules", []byte(Logic("a.json", sampleAnalysis()))))
	out := b.String()

	assert.Contains(t, out, "<title>Logic &amp; Rules</title>")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, `<code class="language-vb">`)
	assert.Contains(t, out, "If x &lt; 1 Then Save")
}

func TestAnalysisHTMLDoesNotMutate(t *testing.T) {
	t.Parallel()

	a := sampleAnalysis()
	before, err := json.Marshal(a)
	require.NoError(t, err)

	var b bytes.Buffer
	require.NoError(t, AnalysisHTML(&b, a))

	after, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))

	out := b.String()
	assert.Contains(t, out, "VB6 Audit Report - Orders")
	assert.Contains(t, out, `<span class="badge badge-high">HIGH</span>`)
	assert.Contains(t, out, "<strong>frmMain</strong>")
	assert.Contains(t, out, "F0 --&gt; M0")
}

func TestGraphHTMLEmbedsJSON(t *testing.T) {
	t.Parallel()

	g := &graph.Graph{
		Summary: graph.Summary{TotalNodes: 1},
		Nodes:   []graph.Node{{ID: "frmmain", Type: graph.Form, File: "frmMain.frm", Rank: 1}},
		Edges:   []graph.Edge{},
	}
	var b bytes.Buffer
	require.NoError(t, GraphHTML(&b, g))
	out := b.String()

	assert.Contains(t, out, "Nodes: 1")
	assert.Contains(t, out, `"id":"frmmain"`)
	assert.Contains(t, out, "const data = {")
}

func TestFlowDiagram(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "graph LR\n    A[No forms or modules found]", FlowDiagram(&scan.Analysis{}))

	got := FlowDiagram(sampleAnalysis())
	assert.Equal(t, strings.Join([]string{
		"graph TB",
		"    subgraph Forms",
		`        F0["frmMain<br/>CREATE READ"]`,
		"    end",
		"    subgraph Modules",
		`        M0["modUtil<br/>1 funcs"]`,
		"    end",
		"    F0 --> M0",
	}, "\n"), got)
}

func TestAuditHTMLOrdersBySeverity(t *testing.T) {
	t.Parallel()

	rep := &audit.Report{
		FilesScanned: 2,
		Critical:     1,
		Warnings:     1,
		Findings: []model.Finding{
			{RuleID: "SEC-W03", Severity: model.Medium, File: "/x/package.json", Content: "Missing package: helmet"},
			{RuleID: "SEC-001", Severity: model.Critical, File: "/x/src/app.ts", Line: 4, Content: "el.innerHTML = <b>"},
		},
	}
	var b bytes.Buffer
	require.NoError(t, AuditHTML(&b, AuditLabels{Title: "Security Audit Report", Pass: "PASSED", Fail: "FAILED"}, rep))
	out := b.String()

	assert.Contains(t, out, "❌ FAILED")
	assert.Contains(t, out, "<code>app.ts:4</code>")
	assert.Contains(t, out, "el.innerHTML = &lt;b&gt;")
	assert.Less(t, strings.Index(out, "SEC-001"), strings.Index(out, "SEC-W03"))
	assert.Equal(t, "SEC-W03", rep.Findings[0].RuleID, "report order is untouched")

	b.Reset()
	require.NoError(t, AuditHTML(&b, AuditLabels{Title: "A11y", Pass: "Compliant", Fail: "Non-Compliant"}, &audit.Report{Passed: true}))
	assert.Contains(t, b.String(), "✅ Compliant")
	assert.Contains(t, b.String(), "No issues found!")
}
