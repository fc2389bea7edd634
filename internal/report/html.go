package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/phobologic/vbscan/internal/audit"
	"github.com/phobologic/vbscan/internal/graph"
	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/scan"
)

//go:embed templates/*.html
var templateFS embed.FS

// inventoryLimit caps the files listed per inventory category.
const inventoryLimit = 50

var templates = template.Must(template.New("report").Funcs(template.FuncMap{
	"lower":    strings.ToLower,
	"base":     filepath.Base,
	"title":    titleWord,
	"fileSize": fileSize,
	"firstFiles": func(files []model.SourceFile) []model.SourceFile {
		return files[:min(len(files), inventoryLimit)]
	},
	"moreFiles": func(files []model.SourceFile) int {
		return max(len(files)-inventoryLimit, 0)
	},
}).ParseFS(templateFS, "templates/*.html"))

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// MarkdownToHTML renders a Markdown document as a standalone HTML page.
// Raw HTML in the source is escaped.
func MarkdownToHTML(w io.Writer, title string, src []byte) error {
	var body bytes.Buffer
	if err := md.Convert(src, &body); err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	return execute(w, "document", struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
}

// AnalysisHTML renders the audit page of a comprehensive scan.
func AnalysisHTML(w io.Writer, a *scan.Analysis) error {
	return execute(w, "analysis", struct {
		Project string
		Flow    string
		*scan.Analysis
	}{
		Project:  filepath.Base(a.Metadata.SourceDirectory),
		Flow:     FlowDiagram(a),
		Analysis: a,
	})
}

// GraphHTML renders an interactive dependency graph page with the graph
// embedded as a JSON literal.
func GraphHTML(w io.Writer, g *graph.Graph) error {
	return execute(w, "graph", g)
}

// AuditLabels names the verdicts of an audit page.
type AuditLabels struct {
	Title string
	Pass  string
	Fail  string
}

// AuditHTML renders an audit report with the most severe findings first.
func AuditHTML(w io.Writer, labels AuditLabels, rep *audit.Report) error {
	sorted := append([]model.Finding{}, rep.Findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Severity > sorted[j].Severity
	})
	return execute(w, "audit", struct {
		Title     string
		PassLabel string
		FailLabel string
		Sorted    []model.Finding
		*audit.Report
	}{labels.Title, labels.Pass, labels.Fail, sorted, rep})
}

func execute(w io.Writer, name string, data any) error {
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	return nil
}

// Flow diagram limits.
const (
	flowForms   = 15
	flowModules = 10
	flowLabel   = 20
)

// FlowDiagram returns a Mermaid flowchart of forms and modules linked by
// the call graph.
func FlowDiagram(a *scan.Analysis) string {
	if len(a.Forms) == 0 && len(a.Modules) == 0 {
		return "graph LR\n    A[No forms or modules found]"
	}

	ids := make(map[string]string)
	lines := []string{"graph TB", "    subgraph Forms"}
	for i, f := range a.Forms[:min(len(a.Forms), flowForms)] {
		id := fmt.Sprintf("F%d", i)
		ids[f.Name] = id
		lines = append(lines, fmt.Sprintf(`        %s["%s<br/>%s"]`, id, truncateLabel(f.Name), strings.Join(f.CRUDOperations, " ")))
	}
	lines = append(lines, "    end", "    subgraph Modules")
	for i, m := range a.Modules[:min(len(a.Modules), flowModules)] {
		id := fmt.Sprintf("M%d", i)
		ids[m.Name] = id
		lines = append(lines, fmt.Sprintf(`        %s["%s<br/>%d funcs"]`, id, truncateLabel(m.Name), len(m.Functions)))
	}
	lines = append(lines, "    end")

	linked := make(map[[2]string]struct{})
	for _, e := range a.CallGraph.Edges {
		from, ok1 := ids[e.Source]
		to, ok2 := ids[e.Target]
		key := [2]string{from, to}
		if _, dup := linked[key]; !ok1 || !ok2 || dup {
			continue
		}
		linked[key] = struct{}{}
		lines = append(lines, fmt.Sprintf("    %s --> %s", from, to))
	}
	return strings.Join(lines, "\n")
}

func truncateLabel(s string) string {
	r := []rune(s)
	if len(r) > flowLabel {
		return string(r[:flowLabel])
	}
	return s
}

func titleWord(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func fileSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d bytes", n)
	}
	return fmt.Sprintf("%.1f KB", float64(n)/1024)
}
