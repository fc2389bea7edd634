// Package scan builds the comprehensive analysis document of a VB6 tree:
// inventory, project structure, forms, modules, classes, data access,
// globals, external declarations and migration risks.
package scan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/phobologic/vbscan/internal/cache"
	"github.com/phobologic/vbscan/internal/discover"
	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/source"
)

// Version is stamped into every analysis.
const Version = "2.0.0"

// maxGlobals is the global variable count above which globals are a risk.
const maxGlobals = 10

// Options configure a scan.
type Options struct {
	Discover discover.Options
	// CacheFile enables the incremental cache when non-empty.
	CacheFile string
	// Now stamps the analysis. Defaults to time.Now.
	Now func() time.Time
	// Warn receives non-fatal problems such as cache read errors.
	Warn func(error)
}

// Result is a finished scan.
type Result struct {
	Analysis *Analysis
	// Cached is true when the analysis came from the cache file.
	Cached bool
}

// Run scans root. A missing root is the only fatal error; cache problems
// are passed to opts.Warn and force a full scan.
func Run(root string, r source.Reader, opts Options) (Result, error) {
	if opts.CacheFile != "" {
		opts.Discover.ExcludePaths = append(opts.Discover.ExcludePaths, opts.CacheFile)
	}
	files, err := discover.Files(root, opts.Discover)
	if err != nil {
		return Result{}, err
	}

	warn := opts.Warn
	if warn == nil {
		warn = func(error) {}
	}

	var store cache.Store
	var hash string
	if opts.CacheFile != "" {
		store = cache.Store{Path: opts.CacheFile, Now: opts.Now}
		hash = cache.Fingerprint(files)
		raw, hit, err := store.Load(hash)
		if err != nil {
			warn(err)
		}
		if hit {
			var a Analysis
			err := json.Unmarshal(raw, &a)
			if err == nil {
				return Result{Analysis: &a, Cached: true}, nil
			}
			warn(fmt.Errorf("cache read %s: %w", opts.CacheFile, err))
		}
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	a := Analyze(root, files, r, now())

	if opts.CacheFile != "" {
		if err := store.Save(hash, a); err != nil {
			warn(err)
		}
	}
	return Result{Analysis: a}, nil
}

// Analyze runs every pass over an already discovered file list. All state
// lives in the returned Analysis.
func Analyze(root string, files []model.SourceFile, r source.Reader, at time.Time) *Analysis {
	s := &scanner{
		r:     r,
		files: discover.ByCategory(files),
		texts: make(map[string]string),
		a:     newAnalysis(root, at),
	}
	s.inventory()
	s.projects()
	s.forms()
	s.modules()
	s.classes()
	s.dependencies()
	s.callGraph()
	s.summary(files)
	s.risks()
	return s.a
}

type scanner struct {
	r     source.Reader
	files map[model.Category][]model.SourceFile
	// texts holds decoded code by artifact name for the call-graph pass.
	texts map[string]string
	a     *Analysis
}

func (s *scanner) inventory() {
	for _, c := range model.Categories {
		files := s.files[c]
		if len(files) == 0 {
			continue
		}
		s.a.Inventory[c.String()] = InventoryEntry{
			Description: c.Description(),
			Icon:        c.Icon(),
			Count:       len(files),
			Files:       files,
		}
	}
}

func (s *scanner) projects() {
	for _, f := range s.files[model.Project] {
		if f.Ext != ".vbp" {
			continue
		}
		text, ok := s.r.Read(f.Path)
		if !ok || text == "" {
			continue
		}
		s.a.Projects = append(s.a.Projects, parse.ParseProject(f.Name, f.Path, text))
	}
}

func (s *scanner) forms() {
	for _, f := range s.files[model.Forms] {
		if f.Ext != ".frm" {
			continue
		}
		text, ok := s.r.Read(f.Path)
		if !ok || text == "" {
			continue
		}
		name := f.Stem()
		s.texts[name] = text

		form := Form{
			Name:           name,
			Path:           f.Path,
			Controls:       nonNil(parse.Controls(text)),
			Events:         []parse.Event{},
			CRUDOperations: nonNil(parse.CRUD(text)),
			SQLQueries:     sqlQueries(text),
			Functions:      []Routine{},
			ErrorHandling:  []string{},
			Properties:     nonNil(parse.Properties(text)),
		}

		for _, d := range parse.Declarations(f.RelPath, text) {
			if d.Kind == model.Property {
				continue
			}
			if d.Event {
				ctl, ev, _ := parse.SplitEvent(d.Name)
				form.Events = append(form.Events, parse.Event{
					Visibility: string(d.Visibility),
					Control:    ctl,
					Event:      ev,
					Params:     d.Params,
					Logic:      d.Body,
				})
				continue
			}
			form.Functions = append(form.Functions, routine(d))
		}

		if len(form.CRUDOperations) > 0 {
			s.a.CRUDOperations = append(s.a.CRUDOperations, CRUDEntry{Source: name, Operations: form.CRUDOperations})
		}
		for _, h := range parse.ErrorHandlers(text) {
			form.ErrorHandling = append(form.ErrorHandling, h.Pattern)
			s.a.ErrorHandling = append(s.a.ErrorHandling, ErrorEntry{Source: name, Pattern: h.Pattern})
		}
		for _, c := range parse.Connections(text) {
			s.a.DatabaseConnections = append(s.a.DatabaseConnections, Connection{Source: name, Type: c.Type, Value: c.Value})
		}
		s.a.Forms = append(s.a.Forms, form)
	}
}

func (s *scanner) modules() {
	for _, f := range s.files[model.Modules] {
		text, ok := s.r.Read(f.Path)
		if !ok || text == "" {
			continue
		}
		name := f.Stem()
		s.texts[name] = text

		m := Module{
			Name:            name,
			Path:            f.Path,
			Functions:       []Routine{},
			GlobalVariables: []parse.Global{},
			APIDeclarations: nonNil(parse.APIs(name, text)),
		}
		for _, d := range parse.Declarations(f.RelPath, text) {
			if d.Kind != model.Property {
				m.Functions = append(m.Functions, routine(d))
			}
		}
		for _, g := range parse.Globals(name, text) {
			if !g.Constant {
				m.GlobalVariables = append(m.GlobalVariables, g)
			}
		}
		s.a.GlobalVariables = append(s.a.GlobalVariables, m.GlobalVariables...)
		s.a.APICalls = append(s.a.APICalls, m.APIDeclarations...)
		s.a.Modules = append(s.a.Modules, m)
	}
}

func (s *scanner) classes() {
	for _, f := range s.files[model.Classes] {
		text, ok := s.r.Read(f.Path)
		if !ok || text == "" {
			continue
		}
		c := Class{Name: f.Stem(), Path: f.Path, Methods: []Routine{}, Properties: []Routine{}}
		for _, d := range parse.Declarations(f.RelPath, text) {
			if d.Kind == model.Property {
				c.Properties = append(c.Properties, routine(d))
			} else {
				c.Methods = append(c.Methods, routine(d))
			}
		}
		s.a.Classes = append(s.a.Classes, c)
	}
}

// dependencies lists binary dependencies on disk followed by the COM
// references and ActiveX objects each project declares.
func (s *scanner) dependencies() {
	for _, f := range s.files[model.Dependencies] {
		s.a.Dependencies = append(s.a.Dependencies, Dependency{Name: f.Name, Kind: DependencyFile, Path: f.RelPath})
	}
	for _, p := range s.a.Projects {
		for _, ref := range p.References {
			s.a.Dependencies = append(s.a.Dependencies, Dependency{
				Name:    windowsBase(libraryPath(ref.Location)),
				Kind:    DependencyReference,
				GUID:    ref.GUID,
				Version: ref.Version,
				Path:    ref.Location,
				Project: p.Name,
			})
		}
		for _, obj := range p.Objects {
			s.a.Dependencies = append(s.a.Dependencies, Dependency{
				Name:    obj.Name,
				Kind:    DependencyObject,
				GUID:    obj.GUID,
				Version: obj.Version,
				Project: p.Name,
			})
		}
	}
}

// callGraph links each form or module to the artifacts declaring the
// Public routines it calls. The first declaration of a routine name wins,
// modules before forms.
func (s *scanner) callGraph() {
	owners := make(map[string]publicRoutine)
	addOwners := func(artifact string, routines []Routine) {
		for _, r := range routines {
			key := strings.ToLower(r.Name)
			if _, dup := owners[key]; dup || r.Visibility != string(model.Public) {
				continue
			}
			owners[key] = publicRoutine{artifact: artifact, name: r.Name}
		}
	}
	for _, m := range s.a.Modules {
		addOwners(m.Name, m.Functions)
	}
	for _, f := range s.a.Forms {
		addOwners(f.Name, f.Functions)
	}

	seen := make(map[string]struct{})
	nodes := []string{}
	for _, m := range s.a.Modules {
		if _, dup := seen[m.Name]; !dup {
			seen[m.Name] = struct{}{}
			nodes = append(nodes, m.Name)
		}
	}
	for _, f := range s.a.Forms {
		if _, dup := seen[f.Name]; !dup {
			seen[f.Name] = struct{}{}
			nodes = append(nodes, f.Name)
		}
	}
	sort.Strings(nodes)

	edgeSeen := make(map[CallEdge]struct{})
	edges := []CallEdge{}
	for _, caller := range nodes {
		for _, c := range parse.Calls(s.texts[caller]) {
			owner, ok := owners[strings.ToLower(c.Name)]
			if !ok || owner.artifact == caller {
				continue
			}
			e := CallEdge{Source: caller, Target: owner.artifact, Function: owner.name}
			if _, dup := edgeSeen[e]; dup {
				continue
			}
			edgeSeen[e] = struct{}{}
			edges = append(edges, e)
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		return a.Function < b.Function
	})

	s.a.CallGraph = CallGraph{Nodes: nodes, Edges: edges}
}

type publicRoutine struct {
	artifact string
	name     string
}

func (s *scanner) summary(files []model.SourceFile) {
	sum := Summary{
		TotalFiles:           len(files),
		ProjectsCount:        len(s.a.Projects),
		FormsCount:           len(s.a.Forms),
		ModulesCount:         len(s.a.Modules),
		ClassesCount:         len(s.a.Classes),
		CRUDFormsCount:       len(s.a.CRUDOperations),
		GlobalVariablesCount: len(s.a.GlobalVariables),
		APICallsCount:        len(s.a.APICalls),
		ErrorHandlingIssues:  s.resumeNextCount(),
		Categories:           make(map[string]int),
	}
	for _, f := range files {
		sum.TotalSizeBytes += f.Size
	}
	sum.TotalSizeHuman = HumanSize(sum.TotalSizeBytes)
	for _, f := range s.a.Forms {
		sum.TotalControls += len(f.Controls)
		sum.TotalFunctions += len(f.Functions)
	}
	for _, m := range s.a.Modules {
		sum.TotalFunctions += len(m.Functions)
	}
	for _, c := range model.Categories {
		if c != model.Unknown {
			sum.Categories[c.String()] = len(s.files[c])
		}
	}
	s.a.Summary = sum
}

func (s *scanner) resumeNextCount() int {
	n := 0
	for _, e := range s.a.ErrorHandling {
		if parse.ResumeNextRe.MatchString(e.Pattern) {
			n++
		}
	}
	return n
}

func (s *scanner) risks() {
	if n := len(s.a.APICalls); n > 0 {
		s.a.Risks = append(s.a.Risks, Risk{
			Level:       model.High,
			Category:    "Platform Dependency",
			Description: fmt.Sprintf("Found %d Windows API declarations", n),
			Mitigation:  "These need browser-compatible alternatives or removal",
		})
	}
	if n := s.resumeNextCount(); n > 0 {
		s.a.Risks = append(s.a.Risks, Risk{
			Level:       model.Medium,
			Category:    "Error Handling",
			Description: fmt.Sprintf("Found %d 'On Error Resume Next' statements", n),
			Mitigation:  "Replace with proper try/catch blocks",
		})
	}
	if n := len(s.a.GlobalVariables); n > maxGlobals {
		s.a.Risks = append(s.a.Risks, Risk{
			Level:       model.Medium,
			Category:    "Code Quality",
			Description: fmt.Sprintf("Found %d global variables", n),
			Mitigation:  "Refactor into services or state management",
		})
	}
	if n := len(s.files[model.Dependencies]); n > 0 {
		s.a.Risks = append(s.a.Risks, Risk{
			Level:       model.High,
			Category:    "Dependencies",
			Description: fmt.Sprintf("Found %d ActiveX/OCX dependencies", n),
			Mitigation:  "Find modern web alternatives or eliminate",
		})
	}
}

func routine(d model.Declaration) Routine {
	typ := string(d.Kind)
	if d.Kind == model.Property {
		typ += " " + d.Accessor
	}
	return Routine{
		Visibility: string(d.Visibility),
		Type:       typ,
		Name:       d.Name,
		Params:     d.Params,
		Logic:      d.Body,
	}
}

func sqlQueries(text string) []parse.Statement {
	out := []parse.Statement{}
	for _, st := range parse.SQL(text) {
		if st.Type != parse.Join {
			out = append(out, st)
		}
	}
	return out
}

// libraryPath drops the trailing #description of a reference location.
func libraryPath(loc string) string {
	p, _, _ := strings.Cut(loc, "#")
	return p
}

// windowsBase returns the last element of a Windows path.
func windowsBase(p string) string {
	if i := strings.LastIndexAny(p, `\/`); i >= 0 {
		return p[i+1:]
	}
	return p
}

// HumanSize formats a byte count with one decimal, as in "1.5 KB".
func HumanSize(n int64) string {
	size := float64(n)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.1f %s", size, unit)
		}
		size /= 1024
	}
	return fmt.Sprintf("%.1f TB", size)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
