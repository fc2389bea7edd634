// Package deadcode finds routines, forms and globals nothing uses.
package deadcode

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/source"
)

// builtins are VB runtime functions that user code sometimes shadows.
var builtins = map[string]struct{}{
	"left": {}, "right": {}, "mid": {}, "len": {}, "trim": {}, "str": {}, "val": {},
	"int": {}, "cint": {}, "clng": {}, "cdbl": {}, "csng": {}, "cstr": {}, "cbool": {},
	"cdate": {}, "format": {}, "msgbox": {}, "inputbox": {}, "isnull": {},
	"isnumeric": {}, "isdate": {}, "now": {}, "date": {}, "time": {}, "year": {},
	"month": {}, "day": {}, "hour": {}, "minute": {}, "ucase": {}, "lcase": {},
	"instr": {}, "replace": {}, "split": {}, "join": {}, "array": {}, "ubound": {},
	"lbound": {}, "redim": {}, "shell": {}, "doevents": {},
}

// specialForms are never reported as orphans.
var specialForms = map[string]struct{}{
	"mdiproject": {}, "mdiform": {}, "splash": {}, "about": {},
	"frmabout": {}, "frmsplash": {}, "frmmain": {},
}

// Result is the dead-code report.
type Result struct {
	Summary       Summary        `json:"summary"`
	DeadFunctions []DeadFunction `json:"dead_functions"`
	OrphanForms   []OrphanForm   `json:"orphan_forms"`
	UnusedGlobals []UnusedGlobal `json:"unused_globals"`
}

// Summary holds the headline counts.
type Summary struct {
	TotalFunctionsDeclared int     `json:"total_functions_declared"`
	DeadFunctions          int     `json:"dead_functions"`
	TotalForms             int     `json:"total_forms"`
	OrphanForms            int     `json:"orphan_forms"`
	TotalGlobals           int     `json:"total_globals"`
	UnusedGlobals          int     `json:"unused_globals"`
	DeadCodePercentage     float64 `json:"dead_code_percentage"`
}

// DeadFunction is a routine with no qualifying reference.
type DeadFunction struct {
	Name           string           `json:"name"`
	File           string           `json:"file"`
	Line           int              `json:"line"`
	Type           model.DeclKind   `json:"type"`
	Visibility     model.Visibility `json:"visibility"`
	Recommendation string           `json:"recommendation"`
}

// OrphanForm is a form no code shows or loads.
type OrphanForm struct {
	Name           string `json:"name"`
	File           string `json:"file"`
	Recommendation string `json:"recommendation"`
}

// UnusedGlobal is a global variable or constant nothing outside its
// declaration touches.
type UnusedGlobal struct {
	Name           string `json:"name"`
	File           string `json:"file"`
	Type           string `json:"type"`
	Recommendation string `json:"recommendation"`
}

const (
	recRemoveRoutine = "Review and remove if truly unused"
	recOrphanForm    = "Check if startup form or truly orphaned"
	recRemoveGlobal  = "Remove unused global"
	recLocalize      = "Used only in declaration file - consider localizing"
)

type declInfo struct {
	decl model.Declaration
	stem string
}

type globalInfo struct {
	name     string
	file     string
	constant bool
}

// Detector accumulates declarations and references for one run.
type Detector struct {
	reader source.Reader

	decls      map[string]declInfo
	declOrder  []string
	events     map[string]struct{}
	calls      map[string]map[string]int // name -> file -> occurrences
	forms      map[string]string         // stem -> file
	formOrder  []string
	formRefs   map[string]struct{}
	startup    map[string]struct{}
	globals    map[string]globalInfo
	globalKeys []string
	words      map[string]map[string]int // file -> word -> occurrences
}

// New returns a Detector reading through r.
func New(r source.Reader) *Detector {
	return &Detector{
		reader:   r,
		decls:    make(map[string]declInfo),
		events:   make(map[string]struct{}),
		calls:    make(map[string]map[string]int),
		forms:    make(map[string]string),
		formRefs: make(map[string]struct{}),
		startup:  make(map[string]struct{}),
		globals:  make(map[string]globalInfo),
		words:    make(map[string]map[string]int),
	}
}

var wordRe = regexp.MustCompile(`\w+`)

// Analyze runs both passes over files, which must be sorted by path.
func (d *Detector) Analyze(files []model.SourceFile) Result {
	texts := make(map[string]string)
	for _, f := range files {
		if f.Ext == ".vbp" {
			if text, ok := d.reader.Read(f.Path); ok {
				p := parse.ParseProject(f.Name, f.Path, text)
				if p.Startup != "" {
					d.startup[strings.ToLower(p.Startup)] = struct{}{}
				}
			}
		}
		if f.Ext == ".frm" {
			key := strings.ToLower(f.Stem())
			if _, dup := d.forms[key]; !dup {
				d.forms[key] = f.RelPath
				d.formOrder = append(d.formOrder, key)
			}
		}
		if !f.IsCode() {
			continue
		}
		text, ok := d.reader.Read(f.Path)
		if !ok {
			continue
		}
		texts[f.RelPath] = text
		d.collect(f, text)
	}

	for _, f := range files {
		text, ok := texts[f.RelPath]
		if !ok {
			continue
		}
		d.reference(f, text)
	}

	return d.result()
}

func (d *Detector) collect(f model.SourceFile, text string) {
	stem := f.Stem()
	for _, decl := range parse.Declarations(f.RelPath, text) {
		if decl.Kind == model.Property {
			continue
		}
		key := decl.Key()
		if decl.Event {
			d.events[key] = struct{}{}
		}
		if _, dup := d.decls[key]; dup {
			continue
		}
		d.decls[key] = declInfo{decl: decl, stem: stem}
		d.declOrder = append(d.declOrder, key)
	}
	for _, g := range parse.Globals(stem, text) {
		key := strings.ToLower(g.Name)
		if _, dup := d.globals[key]; dup {
			continue
		}
		d.globals[key] = globalInfo{name: g.Name, file: f.RelPath, constant: g.Constant}
		d.globalKeys = append(d.globalKeys, key)
	}
}

func (d *Detector) reference(f model.SourceFile, text string) {
	for _, c := range parse.Calls(text) {
		key := strings.ToLower(c.Name)
		if d.calls[key] == nil {
			d.calls[key] = make(map[string]int)
		}
		d.calls[key][f.RelPath]++
	}
	for _, r := range parse.References(text) {
		if r.Kind == model.Shows || r.Kind == model.Loads {
			d.formRefs[r.Target] = struct{}{}
		}
	}
	counts := make(map[string]int)
	for _, w := range wordRe.FindAllString(parse.StripComments(text), -1) {
		counts[strings.ToLower(w)]++
	}
	d.words[f.RelPath] = counts
}

// live applies the reference rule: an event handler, a call from another
// file, or more than one call inside the declaring file.
func (d *Detector) live(key string, info declInfo) bool {
	if _, ok := d.events[key]; ok {
		return true
	}
	for file, n := range d.calls[key] {
		if file != info.decl.File && n > 0 {
			return true
		}
	}
	return d.calls[key][info.decl.File] > 1
}

func (d *Detector) result() Result {
	res := Result{
		DeadFunctions: []DeadFunction{},
		OrphanForms:   []OrphanForm{},
		UnusedGlobals: []UnusedGlobal{},
	}

	for _, key := range d.declOrder {
		info := d.decls[key]
		if _, ok := builtins[key]; ok || key == "main" {
			continue
		}
		if d.live(key, info) {
			continue
		}
		res.DeadFunctions = append(res.DeadFunctions, DeadFunction{
			Name:           info.stem + "." + info.decl.Name,
			File:           info.decl.File,
			Line:           info.decl.Line,
			Type:           info.decl.Kind,
			Visibility:     info.decl.Visibility,
			Recommendation: recRemoveRoutine,
		})
	}

	for _, key := range d.formOrder {
		if _, ok := d.formRefs[key]; ok {
			continue
		}
		if _, ok := specialForms[key]; ok {
			continue
		}
		if _, ok := d.startup[key]; ok {
			continue
		}
		res.OrphanForms = append(res.OrphanForms, OrphanForm{
			Name:           key,
			File:           d.forms[key],
			Recommendation: recOrphanForm,
		})
	}
	sort.Slice(res.OrphanForms, func(i, j int) bool {
		return res.OrphanForms[i].Name < res.OrphanForms[j].Name
	})

	for _, key := range d.globalKeys {
		g := d.globals[key]
		outside, inside := false, false
		for file, counts := range d.words {
			n := counts[key]
			if file == g.file {
				inside = n > 1 // the declaration itself is one occurrence
			} else if n > 0 {
				outside = true
			}
		}
		if outside {
			continue
		}
		typ := "Variable"
		if g.constant {
			typ = "Constant"
		}
		rec := recRemoveGlobal
		if inside {
			rec = recLocalize
		}
		res.UnusedGlobals = append(res.UnusedGlobals, UnusedGlobal{
			Name:           key,
			File:           g.file,
			Type:           typ,
			Recommendation: rec,
		})
	}

	res.Summary = Summary{
		TotalFunctionsDeclared: len(d.decls),
		DeadFunctions:          len(res.DeadFunctions),
		TotalForms:             len(d.forms),
		OrphanForms:            len(res.OrphanForms),
		TotalGlobals:           len(d.globals),
		UnusedGlobals:          len(res.UnusedGlobals),
		DeadCodePercentage:     percentage(len(res.DeadFunctions), len(d.decls)),
	}
	return res
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*100*100) / 100
}
