// Package toon implements TOON (Token-Oriented Object Notation) encoding of
// dependency graphs.
package toon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/phobologic/vbscan/internal/graph"
)

var (
	numeric  = regexp.MustCompile(`^-?(?:0|[1-9]\d*)(?:\.\d+)?$`)
	reserved = map[string]bool{"true": true, "false": true, "null": true}
)

// Encode converts a dependency graph into TOON format. source names the
// scanned directory.
func Encode(source string, g *graph.Graph) string {
	var parts []string

	parts = append(parts, fmt.Sprintf("source: %s", cell(source)))
	parts = append(parts, fmt.Sprintf("summary: nodes=%d edges=%d cycles=%d",
		g.Summary.TotalNodes, g.Summary.TotalEdges, g.Summary.CircularDependencies))

	var nodeRows [][]string
	for _, n := range g.Nodes {
		nodeRows = append(nodeRows, []string{
			n.ID,
			string(n.Type),
			n.File,
			fmt.Sprintf("%.4f", n.Rank),
		})
	}
	parts = append(parts, formatTabular("nodes", []string{"id", "type", "file", "rank"}, nodeRows))

	var edgeRows [][]string
	for _, e := range g.Edges {
		edgeRows = append(edgeRows, []string{
			e.Source,
			e.Target,
			string(e.Type),
			fmt.Sprintf("%d", e.Count),
		})
	}
	parts = append(parts, formatTabular("edges", []string{"source", "target", "type", "count"}, edgeRows))

	if len(g.CircularDependencies) > 0 {
		var cycleRows [][]string
		for _, c := range g.CircularDependencies {
			cycleRows = append(cycleRows, []string{strings.Join(c.Nodes, " ")})
		}
		parts = append(parts, formatTabular("cycles", []string{"nodes"}, cycleRows))
	}

	var hubRows [][]string
	for _, h := range g.HubModules {
		hubRows = append(hubRows, []string{
			h.Name,
			fmt.Sprintf("%d", h.Incoming),
			fmt.Sprintf("%d", h.Outgoing),
			h.Recommendation,
		})
	}
	parts = append(parts, formatTabular("hubs", []string{"name", "incoming", "outgoing", "recommendation"}, hubRows))

	var waveRows [][]string
	for i, wave := range g.MigrationOrder {
		waveRows = append(waveRows, []string{fmt.Sprintf("%d", i), strings.Join(wave, " ")})
	}
	parts = append(parts, formatTabular("waves", []string{"wave", "nodes"}, waveRows))

	return strings.Join(parts, "\n")
}

func formatTabular(name string, columns []string, rows [][]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s[%d]{%s}:", name, len(rows), strings.Join(columns, ","))
	for _, row := range rows {
		b.WriteString("\n  ")
		for i, c := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(cell(c))
		}
	}
	return b.String()
}

// escaper turns the characters a quoted cell cannot hold literally into
// backslash escapes.
var escaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, "\n", `\n`, "\r", `\r`, "\t", `\t`)

// cell renders one scalar, quoting it only when it would read ambiguously.
func cell(v string) string {
	if ambiguous(v) {
		return `"` + escaper.Replace(v) + `"`
	}
	return v
}

func ambiguous(v string) bool {
	switch {
	case v == "":
		return true
	case strings.TrimSpace(v) != v, strings.ContainsAny(v, "\n\r\t"):
		return true
	case reserved[strings.ToLower(v)]:
		return true
	case numeric.MatchString(v):
		return false
	}
	return v[0] == '-' || strings.ContainsAny(v, `,:"\{}[]`)
}
