// Package graph builds the artifact dependency graph, detects cycles and hubs,
// ranks nodes with PageRank and orders them into migration waves.
package graph

import (
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/source"
)

// DefaultHubThreshold is the edge-weight total at which a node becomes a hub.
const DefaultHubThreshold = 3

// NodeType is the kind of artifact a node stands for.
type NodeType string

const (
	Form    NodeType = "Form"
	Module  NodeType = "Module"
	Class   NodeType = "Class"
	Control NodeType = "Control"
)

var nodeTypes = map[string]NodeType{
	".frm": Form,
	".bas": Module,
	".cls": Class,
	".ctl": Control,
}

// Node is one artifact. ID is the lower-cased file stem.
type Node struct {
	ID   string   `json:"id"`
	Type NodeType `json:"type"`
	File string   `json:"file"`
	Rank float64  `json:"rank"`
}

// Edge collapses every reference of one kind from Source to Target.
type Edge struct {
	Source string        `json:"source"`
	Target string        `json:"target"`
	Type   model.RefKind `json:"type"`
	Count  int           `json:"count"`
}

// Cycle is a closed dependency path; the first node is repeated at the end.
type Cycle struct {
	Nodes       []string `json:"nodes"`
	Description string   `json:"description"`
}

// Hub is a node whose combined edge weight reached the hub threshold.
type Hub struct {
	Name           string   `json:"name"`
	Type           NodeType `json:"type"`
	Incoming       int      `json:"incoming"`
	Outgoing       int      `json:"outgoing"`
	Total          int      `json:"total"`
	Recommendation string   `json:"recommendation"`
}

// Summary holds the headline counts.
type Summary struct {
	TotalNodes           int `json:"total_nodes"`
	TotalEdges           int `json:"total_edges"`
	Forms                int `json:"forms"`
	Modules              int `json:"modules"`
	Classes              int `json:"classes"`
	CircularDependencies int `json:"circular_dependencies"`
}

// Graph is the full dependency report.
type Graph struct {
	Summary              Summary    `json:"summary"`
	Nodes                []Node     `json:"nodes"`
	Edges                []Edge     `json:"edges"`
	CircularDependencies []Cycle    `json:"circular_dependencies"`
	HubModules           []Hub      `json:"hub_modules"`
	MigrationOrder       [][]string `json:"migration_order"`
}

// Options tune graph analysis.
type Options struct {
	// HubThreshold overrides DefaultHubThreshold when positive.
	HubThreshold int
}

const (
	recMigrateEarly = "Migrate early - many dependents"
	recComplex      = "Complex - many dependencies"
)

type edgeKey struct {
	src, tgt string
	kind     model.RefKind
}

// Build reads every code file through r and assembles the graph. Files must
// be sorted by path for the output to be deterministic.
func Build(files []model.SourceFile, r source.Reader, opts Options) *Graph {
	threshold := opts.HubThreshold
	if threshold <= 0 {
		threshold = DefaultHubThreshold
	}

	nodes := make(map[string]*Node)
	var ids []string
	for _, f := range files {
		typ, ok := nodeTypes[f.Ext]
		if !ok {
			continue
		}
		id := strings.ToLower(f.Stem())
		if _, dup := nodes[id]; dup {
			continue
		}
		nodes[id] = &Node{ID: id, Type: typ, File: f.Name}
		ids = append(ids, id)
	}
	sort.Strings(ids)

	counts := make(map[edgeKey]int)
	for _, f := range files {
		if _, ok := nodeTypes[f.Ext]; !ok {
			continue
		}
		text, ok := r.Read(f.Path)
		if !ok {
			continue
		}
		src := strings.ToLower(f.Stem())
		for _, ref := range parse.References(text) {
			target, ok := nodes[ref.Target]
			if !ok || ref.Target == src {
				continue
			}
			kind := ref.Kind
			if kind == model.References && target.Type == Module {
				kind = model.Calls
			}
			counts[edgeKey{src, ref.Target, kind}]++
		}
	}

	g := &Graph{
		Nodes:                make([]Node, 0, len(ids)),
		Edges:                make([]Edge, 0, len(counts)),
		CircularDependencies: []Cycle{},
		HubModules:           []Hub{},
	}
	for key, n := range counts {
		g.Edges = append(g.Edges, Edge{Source: key.src, Target: key.tgt, Type: key.kind, Count: n})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Type < b.Type
	})

	ranks := Rank(ids, g.Edges)
	for _, id := range ids {
		n := nodes[id]
		n.Rank = ranks[id]
		g.Nodes = append(g.Nodes, *n)
	}

	g.CircularDependencies = FindCycles(ids, g.Edges)
	g.HubModules = Hubs(g.Nodes, g.Edges, threshold)
	g.MigrationOrder = MigrationOrder(ids, g.Edges)

	g.Summary = Summary{
		TotalNodes:           len(g.Nodes),
		TotalEdges:           len(g.Edges),
		CircularDependencies: len(g.CircularDependencies),
	}
	for _, n := range g.Nodes {
		switch n.Type {
		case Form:
			g.Summary.Forms++
		case Module:
			g.Summary.Modules++
		case Class:
			g.Summary.Classes++
		}
	}
	return g
}

// adjacency returns the sorted, de-duplicated successors of every node.
func adjacency(edges []Edge) map[string][]string {
	seen := make(map[[2]string]struct{})
	adj := make(map[string][]string)
	for _, e := range edges {
		k := [2]string{e.Source, e.Target}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		adj[e.Source] = append(adj[e.Source], e.Target)
	}
	for _, targets := range adj {
		sort.Strings(targets)
	}
	return adj
}

// FindCycles runs a depth-first search from every unvisited node in ids
// order. A successor already on the recursion stack closes a cycle, reported
// as the stack slice from that successor through the repeat. Only the first
// cycle found from each root is reported; the search from that root stops
// there, so a strongly connected component with several cycles yields one.
func FindCycles(ids []string, edges []Edge) []Cycle {
	adj := adjacency(edges)
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var dfs func(node string) []string
	dfs = func(node string) []string {
		visited[node] = true
		onStack[node] = true
		path = append(path, node)

		for _, next := range adj[node] {
			if !visited[next] {
				if c := dfs(next); c != nil {
					return c
				}
			} else if onStack[next] {
				start := indexOf(path, next)
				cycle := append([]string{}, path[start:]...)
				return append(cycle, next)
			}
		}

		path = path[:len(path)-1]
		onStack[node] = false
		return nil
	}

	cycles := []Cycle{}
	for _, id := range ids {
		if visited[id] {
			continue
		}
		path = path[:0]
		cycle := dfs(id)
		// An aborted search leaves its stack marked; clear it for the next root.
		for _, n := range path {
			onStack[n] = false
		}
		if cycle != nil {
			cycles = append(cycles, Cycle{Nodes: cycle, Description: strings.Join(cycle, " → ")})
		}
	}
	return cycles
}

func indexOf(s []string, v string) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// Hubs lists nodes whose incoming plus outgoing edge weight reaches
// threshold, heaviest first.
func Hubs(nodes []Node, edges []Edge, threshold int) []Hub {
	incoming := make(map[string]int)
	outgoing := make(map[string]int)
	for _, e := range edges {
		outgoing[e.Source] += e.Count
		incoming[e.Target] += e.Count
	}

	hubs := []Hub{}
	for _, n := range nodes {
		total := incoming[n.ID] + outgoing[n.ID]
		if total < threshold {
			continue
		}
		rec := recComplex
		if incoming[n.ID] > outgoing[n.ID] {
			rec = recMigrateEarly
		}
		hubs = append(hubs, Hub{
			Name:           n.ID,
			Type:           n.Type,
			Incoming:       incoming[n.ID],
			Outgoing:       outgoing[n.ID],
			Total:          total,
			Recommendation: rec,
		})
	}
	sort.SliceStable(hubs, func(i, j int) bool {
		return hubs[i].Total > hubs[j].Total
	})
	return hubs
}

// MigrationOrder groups nodes into waves. Strongly connected components are
// collapsed into one unit; a unit lands one wave after the latest wave of
// anything it depends on, so wave 0 holds the artifacts that depend on
// nothing else. Each wave is sorted.
func MigrationOrder(ids []string, edges []Edge) [][]string {
	if len(ids) == 0 {
		return [][]string{}
	}

	index := make(map[string]int64, len(ids))
	dg := simple.NewDirectedGraph()
	for i, id := range ids {
		index[id] = int64(i)
		dg.AddNode(simple.Node(int64(i)))
	}
	for _, e := range edges {
		from, okF := index[e.Source]
		to, okT := index[e.Target]
		// simple graphs reject self loops
		if !okF || !okT || from == to {
			continue
		}
		dg.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}

	component := make(map[string]int, len(ids))
	var members [][]string
	for c, scc := range topo.TarjanSCC(dg) {
		var names []string
		for _, n := range scc {
			name := ids[n.ID()]
			component[name] = c
			names = append(names, name)
		}
		members = append(members, names)
	}

	deps := make([]map[int]struct{}, len(members))
	for i := range deps {
		deps[i] = make(map[int]struct{})
	}
	for _, e := range edges {
		from, okF := component[e.Source]
		to, okT := component[e.Target]
		if okF && okT && from != to {
			deps[from][to] = struct{}{}
		}
	}

	wave := make([]int, len(members))
	for i := range wave {
		wave[i] = -1
	}
	var level func(c int) int
	level = func(c int) int {
		if wave[c] >= 0 {
			return wave[c]
		}
		w := 0
		for d := range deps[c] {
			if l := level(d) + 1; l > w {
				w = l
			}
		}
		wave[c] = w
		return w
	}

	var waves [][]string
	for c := range members {
		w := level(c)
		for len(waves) <= w {
			waves = append(waves, []string{})
		}
		waves[w] = append(waves[w], members[c]...)
	}
	for _, names := range waves {
		sort.Strings(names)
	}
	return waves
}

// Rank applies PageRank over the edges, weighting each by its count.
// With no edges every node gets the uniform rank.
func Rank(ids []string, edges []Edge) map[string]float64 {
	ranks := make(map[string]float64, len(ids))
	if len(ids) == 0 {
		return ranks
	}

	if len(edges) == 0 {
		uniform := 1.0 / float64(len(ids))
		for _, id := range ids {
			ranks[id] = uniform
		}
		return ranks
	}

	outEdges := make(map[string][]string)
	outDegree := make(map[string]int)
	for _, e := range edges {
		for i := 0; i < e.Count; i++ {
			outEdges[e.Source] = append(outEdges[e.Source], e.Target)
			outDegree[e.Source]++
		}
	}

	return pageRank(ids, outEdges, outDegree, 0.85, 100, 1e-6)
}

// pageRank walks nodes in slice order so floating-point sums, and therefore
// the serialized ranks, are identical from run to run.
func pageRank(
	nodes []string,
	outEdges map[string][]string,
	outDegree map[string]int,
	alpha float64,
	maxIter int,
	tol float64,
) map[string]float64 {
	n := len(nodes)
	rank := make(map[string]float64, n)
	initial := 1.0 / float64(n)
	for _, node := range nodes {
		rank[node] = initial
	}

	teleport := (1.0 - alpha) / float64(n)

	for iter := 0; iter < maxIter; iter++ {
		newRank := make(map[string]float64, n)

		// Dangling nodes spread their rank evenly.
		var danglingSum float64
		for _, node := range nodes {
			if outDegree[node] == 0 {
				danglingSum += rank[node]
			}
		}
		danglingContrib := alpha * danglingSum / float64(n)

		for _, node := range nodes {
			newRank[node] = teleport + danglingContrib
		}

		for _, src := range nodes {
			targets := outEdges[src]
			if len(targets) == 0 {
				continue
			}
			contrib := alpha * rank[src] / float64(outDegree[src])
			for _, tgt := range targets {
				newRank[tgt] += contrib
			}
		}

		var diff float64
		for _, node := range nodes {
			diff += math.Abs(newRank[node] - rank[node])
		}

		rank = newRank

		if diff < tol {
			break
		}
	}

	return rank
}
