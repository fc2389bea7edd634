package repair

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Status is the outcome of the repair loop for one error.
type Status string

const (
	Repaired   Status = "REPAIRED"
	Failed     Status = "FAILED"
	SkippedFix Status = "SKIPPED"
	InProgress Status = "IN_PROGRESS"
)

var statusOrder = map[Status]int{Failed: 0, SkippedFix: 1, Repaired: 2, InProgress: 3}

// Record is the repair history of one error.
type Record struct {
	ErrorID      string   `json:"error_id"`
	ErrorType    string   `json:"error_type"`
	FilePath     string   `json:"file_path"`
	Line         int      `json:"line_number"`
	Iterations   int      `json:"iterations"`
	Status       Status   `json:"status"`
	Explanation  string   `json:"explanation"`
	FixesApplied []string `json:"fixes_applied"`
	FirstSeen    string   `json:"-"`
	LastSeen     string   `json:"-"`
	autoFixable  bool
}

// Summary totals a repair history.
type Summary struct {
	TotalErrors     int     `json:"total_errors"`
	Repaired        int     `json:"repaired"`
	Failed          int     `json:"failed"`
	Skipped         int     `json:"skipped"`
	InProgress      int     `json:"in_progress"`
	TotalIterations int     `json:"total_iterations"`
	SuccessRate     float64 `json:"success_rate"`
	StartTime       string  `json:"start_time"`
	EndTime         string  `json:"end_time"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// History is the folded result of every plan in a repair directory.
type History struct {
	Summary       Summary  `json:"summary"`
	Errors        []Record `json:"errors"`
	MaxIterations int      `json:"max_iterations"`
}

// LoadHistory folds the plans in dir into one record per error, in order of
// first appearance. Plans that cannot be read are reported to warn and
// skipped.
func LoadHistory(dir string, maxIterations int, now time.Time, warn func(error)) (*History, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	files, err := planFiles(dir)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*Record)
	var order []string
	var last *Plan
	for _, pf := range files {
		plan, err := readPlan(pf.path)
		if err != nil {
			if warn != nil {
				warn(err)
			}
			continue
		}
		last = plan
		for _, r := range plan.Repairs {
			id := errorID(r.FilePath, r.Line, r.ErrorType)
			rec, ok := byID[id]
			if !ok {
				rec = &Record{
					ErrorID:     id,
					ErrorType:   r.ErrorType,
					FilePath:    r.FilePath,
					Line:        r.Line,
					FirstSeen:   plan.Timestamp,
					autoFixable: r.AutoFixable,
				}
				byID[id] = rec
				order = append(order, id)
			}
			rec.Iterations++
			rec.LastSeen = plan.Timestamp
			rec.FixesApplied = append(rec.FixesApplied, fmt.Sprintf("Iteration %d: %s", plan.Iteration, r.Action))
		}
	}

	pending := make(map[string]bool)
	if last != nil {
		for _, r := range last.Repairs {
			pending[errorID(r.FilePath, r.Line, r.ErrorType)] = true
		}
	}

	h := &History{Errors: []Record{}, MaxIterations: maxIterations}
	for _, id := range order {
		rec := byID[id]
		switch {
		case !rec.autoFixable:
			rec.Status = SkippedFix
		case rec.Iterations >= maxIterations:
			rec.Status = Failed
		case pending[id]:
			rec.Status = InProgress
		default:
			rec.Status = Repaired
		}
		rec.Explanation = explain(rec, maxIterations)
		h.Errors = append(h.Errors, *rec)
	}
	h.Summary = summarize(h.Errors, now)
	return h, nil
}

func explain(r *Record, maxIterations int) string {
	switch r.Status {
	case Repaired:
		return fmt.Sprintf("Successfully fixed after %d iteration(s). The %s error was auto-repaired by applying the suggested fix.", r.Iterations, r.ErrorType)
	case Failed:
		return fmt.Sprintf("Could not repair after %d attempts (max %d). The %s error may require manual intervention.", r.Iterations, maxIterations, r.ErrorType)
	case SkippedFix:
		return fmt.Sprintf("This %s error was marked as not auto-fixable. Manual review is required as the fix pattern is not recognized.", r.ErrorType)
	default:
		return fmt.Sprintf("Currently being processed. %d iteration(s) so far.", r.Iterations)
	}
}

func summarize(records []Record, now time.Time) Summary {
	s := Summary{TotalErrors: len(records), SuccessRate: 100}
	var seen []string
	for _, r := range records {
		switch r.Status {
		case Repaired:
			s.Repaired++
		case Failed:
			s.Failed++
		case SkippedFix:
			s.Skipped++
		case InProgress:
			s.InProgress++
		}
		s.TotalIterations += r.Iterations
		for _, ts := range []string{r.FirstSeen, r.LastSeen} {
			if ts != "" {
				seen = append(seen, ts)
			}
		}
	}
	if s.TotalErrors > 0 {
		s.SuccessRate = float64(s.Repaired) / float64(s.TotalErrors) * 100
	}

	if len(seen) == 0 {
		s.StartTime = now.Format(TimeFormat)
		s.EndTime = s.StartTime
		return s
	}
	sort.Strings(seen)
	s.StartTime, s.EndTime = seen[0], seen[len(seen)-1]
	start, err1 := time.Parse(TimeFormat, s.StartTime)
	end, err2 := time.Parse(TimeFormat, s.EndTime)
	if err1 == nil && err2 == nil {
		s.DurationSeconds = end.Sub(start).Seconds()
	}
	return s
}

// Markdown renders the history as a report, worst outcomes first.
func (h *History) Markdown(now time.Time) string {
	s := h.Summary
	var b strings.Builder
	b.WriteString("# Self-Healing Repair Report\n")
	fmt.Fprintf(&b, "\n**Generated:** %s\n", now.Format("2006-01-02 15:04:05"))
	b.WriteString("\n| Total Errors | Repaired | Failed | Skipped | In Progress | Total Iterations | Duration |\n")
	b.WriteString("|---|---|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %.1fs |\n",
		s.TotalErrors, s.Repaired, s.Failed, s.Skipped, s.InProgress, s.TotalIterations, s.DurationSeconds)
	fmt.Fprintf(&b, "\n**Success rate:** %.1f%%\n", s.SuccessRate)

	b.WriteString("\n## Error Details\n")
	if len(h.Errors) == 0 {
		b.WriteString("\nNo repair history found. All tests passed on the first run.\n")
		return b.String()
	}
	records := append([]Record{}, h.Errors...)
	sort.SliceStable(records, func(i, j int) bool {
		return statusOrder[records[i].Status] < statusOrder[records[j].Status]
	})
	b.WriteString("\n| Status | Type | File | Iterations | Explanation |\n")
	b.WriteString("|---|---|---|---|---|\n")
	for _, r := range records {
		file := "Unknown"
		if r.FilePath != "" {
			file = filepath.Base(r.FilePath)
		}
		if r.Line > 0 {
			file += fmt.Sprintf(":%d", r.Line)
		}
		fmt.Fprintf(&b, "| %s | `%s` | `%s` | %d / %d | %s |\n",
			r.Status, r.ErrorType, file, r.Iterations, h.MaxIterations, r.Explanation)
	}
	fmt.Fprintf(&b, "\nMax %d iterations per error.\n", h.MaxIterations)
	return b.String()
}
