// Package metrics computes size, complexity and risk measurements for VB6
// source files.
package metrics

import (
	"math"
	"strings"

	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/parse"
	"github.com/phobologic/vbscan/internal/source"
)

// Complexity levels.
const (
	LevelLow      = "LOW"
	LevelMedium   = "MEDIUM"
	LevelHigh     = "HIGH"
	LevelVeryHigh = "VERY_HIGH"
)

// Risk indicator types.
const (
	RiskResumeNext   = "On Error Resume Next"
	RiskControlCount = "High Control Count"
	RiskDeepNesting  = "Deep Nesting"
)

const (
	maxControls = 50
	maxNesting  = 5
)

// Function is one routine's measurements.
type Function struct {
	Name       string           `json:"name"`
	Type       model.DeclKind   `json:"type"`
	Visibility model.Visibility `json:"visibility"`
	Complexity int              `json:"complexity"`
	Level      string           `json:"complexity_level"`
	LOC        int              `json:"loc"`
}

// FunctionRef is a Function listed in the cross-file index.
type FunctionRef struct {
	Name       string `json:"name"`
	File       string `json:"file"`
	Complexity int    `json:"complexity"`
	Level      string `json:"complexity_level"`
	LOC        int    `json:"loc"`
}

// File is one source file's measurements.
type File struct {
	Name              string     `json:"name"`
	Path              string     `json:"path"`
	Type              string     `json:"type"`
	LOC               int        `json:"loc"`
	BlankLines        int        `json:"blank_lines"`
	CommentLines      int        `json:"comment_lines"`
	CommentRatio      float64    `json:"comment_ratio"`
	ControlCount      int        `json:"control_count"`
	FunctionCount     int        `json:"function_count"`
	TotalComplexity   int        `json:"total_complexity"`
	AverageComplexity float64    `json:"average_complexity"`
	MaxNestingDepth   int        `json:"max_nesting_depth"`
	OnErrorResumeNext int        `json:"on_error_resume_next"`
	OnErrorGoto       int        `json:"on_error_goto"`
	Functions         []Function `json:"functions"`
}

// Distribution counts routines per complexity level.
type Distribution struct {
	Low      int `json:"low"`
	Medium   int `json:"medium"`
	High     int `json:"high"`
	VeryHigh int `json:"very_high"`
}

// RiskIndicator flags a migration hazard in one file.
type RiskIndicator struct {
	File  string         `json:"file"`
	Type  string         `json:"type"`
	Count int            `json:"count"`
	Risk  model.Severity `json:"risk"`
}

// Summary aggregates every file.
type Summary struct {
	TotalFiles             int          `json:"total_files"`
	TotalLOC               int          `json:"total_loc"`
	TotalCommentLines      int          `json:"total_comment_lines"`
	CommentRatio           float64      `json:"comment_ratio"`
	TotalFunctions         int          `json:"total_functions"`
	AverageComplexity      float64      `json:"average_complexity"`
	AverageLOCPerFile      float64      `json:"average_loc_per_file"`
	ComplexityDistribution Distribution `json:"complexity_distribution"`
	RiskScore              float64      `json:"risk_score"`
}

// Report is the metrics document.
type Report struct {
	Summary                Summary         `json:"summary"`
	Files                  []File          `json:"files"`
	Functions              []FunctionRef   `json:"functions"`
	ComplexityDistribution Distribution    `json:"complexity_distribution"`
	RiskIndicators         []RiskIndicator `json:"risk_indicators"`
}

// Level classifies a complexity score.
func Level(complexity int) string {
	switch {
	case complexity <= 5:
		return LevelLow
	case complexity <= 10:
		return LevelMedium
	case complexity <= 20:
		return LevelHigh
	}
	return LevelVeryHigh
}

func (d *Distribution) add(level string) {
	switch level {
	case LevelLow:
		d.Low++
	case LevelMedium:
		d.Medium++
	case LevelHigh:
		d.High++
	default:
		d.VeryHigh++
	}
}

// Analyze measures every code file. A file that cannot be read is listed
// with zero measurements.
func Analyze(files []model.SourceFile, r source.Reader) Report {
	rep := Report{
		Files:          []File{},
		Functions:      []FunctionRef{},
		RiskIndicators: []RiskIndicator{},
	}

	var totalComplexity int
	for _, f := range files {
		if !f.IsCode() {
			continue
		}
		fm := File{Name: f.Name, Path: f.RelPath, Type: f.Ext, Functions: []Function{}}
		if text, ok := r.Read(f.Path); ok {
			fm = measure(f, text)
		}
		rep.Files = append(rep.Files, fm)

		for _, fn := range fm.Functions {
			rep.ComplexityDistribution.add(fn.Level)
			rep.Functions = append(rep.Functions, FunctionRef{
				Name:       fn.Name,
				File:       f.RelPath,
				Complexity: fn.Complexity,
				Level:      fn.Level,
				LOC:        fn.LOC,
			})
		}
		rep.RiskIndicators = append(rep.RiskIndicators, indicators(fm)...)

		rep.Summary.TotalLOC += fm.LOC
		rep.Summary.TotalCommentLines += fm.CommentLines
		rep.Summary.TotalFunctions += fm.FunctionCount
		totalComplexity += fm.TotalComplexity
	}

	s := &rep.Summary
	s.TotalFiles = len(rep.Files)
	s.CommentRatio = ratio(s.TotalCommentLines, s.TotalLOC)
	s.AverageComplexity = round2(float64(totalComplexity) / float64(max(s.TotalFunctions, 1)))
	s.AverageLOCPerFile = round2(float64(s.TotalLOC) / float64(max(s.TotalFiles, 1)))
	s.ComplexityDistribution = rep.ComplexityDistribution
	if s.TotalFiles > 0 {
		s.RiskScore = RiskScore(s.AverageComplexity, s.CommentRatio, rep.ComplexityDistribution, len(rep.RiskIndicators))
	}
	return rep
}

func measure(f model.SourceFile, text string) File {
	fm := File{Name: f.Name, Path: f.RelPath, Type: f.Ext, Functions: []Function{}}

	for _, l := range parse.Lines(text) {
		switch {
		case strings.TrimSpace(l.Text) == "":
			fm.BlankLines++
		case l.Comment:
			fm.CommentLines++
		default:
			fm.LOC++
		}
	}

	fm.ControlCount = len(parse.Controls(text))

	for _, d := range parse.Declarations(f.RelPath, text) {
		if d.Kind == model.Property {
			continue
		}
		c := parse.Complexity(d.Body)
		fm.Functions = append(fm.Functions, Function{
			Name:       d.Name,
			Type:       d.Kind,
			Visibility: d.Visibility,
			Complexity: c,
			Level:      Level(c),
			LOC:        nonBlank(d.Body),
		})
		fm.TotalComplexity += c
	}
	fm.FunctionCount = len(fm.Functions)
	fm.AverageComplexity = round2(float64(fm.TotalComplexity) / float64(max(fm.FunctionCount, 1)))
	fm.CommentRatio = ratio(fm.CommentLines, fm.LOC)

	for _, h := range parse.ErrorHandlers(text) {
		if parse.ResumeNextRe.MatchString(h.Pattern) {
			fm.OnErrorResumeNext++
		} else {
			fm.OnErrorGoto++
		}
	}

	fm.MaxNestingDepth = parse.MaxNesting(text)
	return fm
}

func indicators(fm File) []RiskIndicator {
	var out []RiskIndicator
	if fm.OnErrorResumeNext > 0 {
		out = append(out, RiskIndicator{File: fm.Name, Type: RiskResumeNext, Count: fm.OnErrorResumeNext, Risk: model.Medium})
	}
	if fm.ControlCount > maxControls {
		out = append(out, RiskIndicator{File: fm.Name, Type: RiskControlCount, Count: fm.ControlCount, Risk: model.High})
	}
	if fm.MaxNestingDepth > maxNesting {
		out = append(out, RiskIndicator{File: fm.Name, Type: RiskDeepNesting, Count: fm.MaxNestingDepth, Risk: model.Medium})
	}
	return out
}

// RiskScore is a 0-100 migration risk estimate: up to 30 points for average
// complexity, 20 for sparse comments, 25 for high-complexity routines and 25
// for risk indicators.
func RiskScore(avgComplexity, commentRatio float64, dist Distribution, indicators int) float64 {
	score := math.Min(30, avgComplexity*2)
	switch {
	case commentRatio < 10:
		score += 20
	case commentRatio < 20:
		score += 10
	}
	score += math.Min(25, float64(dist.High*2+dist.VeryHigh*5))
	score += math.Min(25, float64(indicators*5))
	return round2(math.Min(100, score))
}

func nonBlank(text string) int {
	n := 0
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			n++
		}
	}
	return n
}

// ratio returns part/whole as a percentage rounded to two places. A zero
// whole counts as one.
func ratio(part, whole int) float64 {
	return round2(float64(part) / float64(max(whole, 1)) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
