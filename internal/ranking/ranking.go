// Package ranking trims a dependency graph to the nodes worth showing.
package ranking

import (
	"sort"
	"strings"

	"github.com/phobologic/vbscan/internal/graph"
)

// SelectNodes returns a new Graph with only the maxNodes highest-ranked
// nodes and the edges, cycles, hubs and waves among them. Ties in rank keep
// id order. If maxNodes is <= 0 or >= the node count, g is returned as is.
func SelectNodes(g *graph.Graph, maxNodes int) *graph.Graph {
	if maxNodes <= 0 || maxNodes >= len(g.Nodes) {
		return g
	}

	ranked := append([]graph.Node(nil), g.Nodes...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Rank > ranked[j].Rank
	})

	keep := make(map[string]struct{}, maxNodes)
	for _, n := range ranked[:maxNodes] {
		keep[n.ID] = struct{}{}
	}
	return subgraph(g, keep)
}

// FilterByNode returns a new Graph containing the nodes whose id contains
// substr (case-insensitive), the nodes directly connected to them, and the
// edges touching the matched nodes.
func FilterByNode(g *graph.Graph, substr string) *graph.Graph {
	lower := strings.ToLower(substr)

	matched := make(map[string]struct{})
	for _, n := range g.Nodes {
		if strings.Contains(n.ID, lower) {
			matched[n.ID] = struct{}{}
		}
	}

	keep := make(map[string]struct{}, len(matched))
	for id := range matched {
		keep[id] = struct{}{}
	}
	for _, e := range g.Edges {
		_, srcOK := matched[e.Source]
		_, tgtOK := matched[e.Target]
		if srcOK || tgtOK {
			keep[e.Source] = struct{}{}
			keep[e.Target] = struct{}{}
		}
	}

	out := subgraph(g, keep)
	// Neighbor-to-neighbor edges are context the filter did not ask for.
	edges := out.Edges[:0]
	for _, e := range out.Edges {
		_, srcOK := matched[e.Source]
		_, tgtOK := matched[e.Target]
		if srcOK || tgtOK {
			edges = append(edges, e)
		}
	}
	out.Edges = edges
	out.Summary.TotalEdges = len(edges)
	return out
}

// subgraph copies the parts of g that only involve nodes in keep. Node order
// is preserved.
func subgraph(g *graph.Graph, keep map[string]struct{}) *graph.Graph {
	has := func(id string) bool {
		_, ok := keep[id]
		return ok
	}

	out := &graph.Graph{
		Nodes:                []graph.Node{},
		Edges:                []graph.Edge{},
		CircularDependencies: []graph.Cycle{},
		HubModules:           []graph.Hub{},
		MigrationOrder:       [][]string{},
	}

	for _, n := range g.Nodes {
		if !has(n.ID) {
			continue
		}
		out.Nodes = append(out.Nodes, n)
		switch n.Type {
		case graph.Form:
			out.Summary.Forms++
		case graph.Module:
			out.Summary.Modules++
		case graph.Class:
			out.Summary.Classes++
		}
	}

	for _, e := range g.Edges {
		if has(e.Source) && has(e.Target) {
			out.Edges = append(out.Edges, e)
		}
	}

	for _, c := range g.CircularDependencies {
		all := true
		for _, id := range c.Nodes {
			if !has(id) {
				all = false
				break
			}
		}
		if all {
			out.CircularDependencies = append(out.CircularDependencies, c)
		}
	}

	for _, h := range g.HubModules {
		if has(h.Name) {
			out.HubModules = append(out.HubModules, h)
		}
	}

	for _, wave := range g.MigrationOrder {
		var ids []string
		for _, id := range wave {
			if has(id) {
				ids = append(ids, id)
			}
		}
		if len(ids) > 0 {
			out.MigrationOrder = append(out.MigrationOrder, ids)
		}
	}

	out.Summary.TotalNodes = len(out.Nodes)
	out.Summary.TotalEdges = len(out.Edges)
	out.Summary.CircularDependencies = len(out.CircularDependencies)
	return out
}
