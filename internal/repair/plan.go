package repair

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phobologic/vbscan/internal/report"
)

// DefaultMaxIterations caps the attempts spent on one error.
const DefaultMaxIterations = 5

// HistoryFile holds the per-error attempt counts inside the repair directory.
const HistoryFile = "error_history.json"

// TimeFormat is the timestamp layout of plans.
const TimeFormat = "2006-01-02T15:04:05.000000"

// Priorities in repair order.
const (
	PriorityCritical = "critical"
	PriorityHigh     = "high"
	PriorityMedium   = "medium"
	PriorityLow      = "low"
)

var priorityRank = map[string]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// Strategy says how an error type is repaired.
type Strategy struct {
	Action      string
	Priority    string
	AutoFixable bool
}

// Strategies by error type. Types without one get manualReview.
var Strategies = map[string]Strategy{
	"property_not_exist":    {"add_property", PriorityHigh, true},
	"cannot_find_module":    {"add_import", PriorityHigh, true},
	"undefined_signal":      {"initialize_signal", PriorityHigh, true},
	"missing_provider":      {"add_provider", PriorityHigh, true},
	"element_not_found":     {"update_selector", PriorityMedium, false},
	"expect_mismatch":       {"update_assertion", PriorityMedium, false},
	"zone_change_detection": {"fix_zoneless_pattern", PriorityCritical, true},
}

var manualReview = Strategy{"manual_review", PriorityLow, false}

// Repair is one planned fix.
type Repair struct {
	TestName      string `json:"test_name"`
	FilePath      string `json:"file_path"`
	Line          int    `json:"line_number"`
	ErrorType     string `json:"error_type"`
	ErrorID       string `json:"error_id"`
	Iteration     int    `json:"iteration_for_error"`
	MaxIterations int    `json:"max_iterations"`
	SuggestedFix  string `json:"suggested_fix"`
	Action        string `json:"action"`
	Priority      string `json:"priority"`
	AutoFixable   bool   `json:"auto_fixable"`
}

// Skipped is an error left out of a plan because it reached the cap.
type Skipped struct {
	TestName   string `json:"test_name"`
	FilePath   string `json:"file_path"`
	ErrorID    string `json:"error_id"`
	Iterations int    `json:"iterations"`
	Status     string `json:"status"`
}

// Plan is one iteration of the repair loop.
type Plan struct {
	Iteration     int       `json:"iteration"`
	Timestamp     string    `json:"timestamp"`
	TotalFailures int       `json:"total_failures"`
	AutoFixable   int       `json:"auto_fixable"`
	Repairs       []Repair  `json:"repairs"`
	Skipped       []Skipped `json:"skipped_max_iterations"`
}

// Planner creates plans in a repair directory, tracking attempts per error.
type Planner struct {
	dir       string
	max       int
	iteration int
	history   map[string]int
}

var planName = regexp.MustCompile(`^repair_plan_(\d+)\.json$`)

// NewPlanner opens dir, creating it if needed. An unreadable history file
// starts a fresh history.
func NewPlanner(dir string, maxIterations int) (*Planner, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating repair directory: %w", err)
	}
	plans, err := planFiles(dir)
	if err != nil {
		return nil, err
	}
	p := &Planner{dir: dir, max: maxIterations, iteration: 1, history: map[string]int{}}
	if len(plans) > 0 {
		p.iteration = plans[len(plans)-1].iteration + 1
	}
	if err := report.ReadJSON(filepath.Join(dir, HistoryFile), &p.history); err != nil || p.history == nil {
		p.history = map[string]int{}
	}
	return p, nil
}

// Iteration is the number the next saved plan gets.
func (p *Planner) Iteration() int { return p.iteration }

// Create plans a repair for every failure below the cap and counts the
// attempt. Repairs are ordered by priority, then by input order.
func (p *Planner) Create(failures []Failure, now time.Time) *Plan {
	plan := &Plan{
		Iteration:     p.iteration,
		Timestamp:     now.Format(TimeFormat),
		TotalFailures: len(failures),
		Repairs:       []Repair{},
		Skipped:       []Skipped{},
	}
	for _, f := range failures {
		id := f.ID()
		count := p.history[id]
		if count >= p.max {
			plan.Skipped = append(plan.Skipped, Skipped{
				TestName:   f.TestName,
				FilePath:   f.FilePath,
				ErrorID:    id,
				Iterations: count,
				Status:     "MAX_ITERATIONS_REACHED",
			})
			continue
		}
		p.history[id] = count + 1

		s, ok := Strategies[f.ErrorType]
		if !ok {
			s = manualReview
		}
		plan.Repairs = append(plan.Repairs, Repair{
			TestName:      f.TestName,
			FilePath:      f.FilePath,
			Line:          f.Line,
			ErrorType:     f.ErrorType,
			ErrorID:       id,
			Iteration:     count + 1,
			MaxIterations: p.max,
			SuggestedFix:  f.SuggestedFix,
			Action:        s.Action,
			Priority:      s.Priority,
			AutoFixable:   s.AutoFixable,
		})
		if s.AutoFixable {
			plan.AutoFixable++
		}
	}
	sort.SliceStable(plan.Repairs, func(i, j int) bool {
		return priorityRank[plan.Repairs[i].Priority] < priorityRank[plan.Repairs[j].Priority]
	})
	return plan
}

// Save writes the plan as repair_plan_NNN.json and persists the history.
func (p *Planner) Save(plan *Plan) (string, error) {
	path := filepath.Join(p.dir, fmt.Sprintf("repair_plan_%03d.json", plan.Iteration))
	if err := report.WriteJSON(path, plan, true); err != nil {
		return "", fmt.Errorf("writing repair plan: %w", err)
	}
	if err := report.WriteJSON(filepath.Join(p.dir, HistoryFile), p.history, true); err != nil {
		return "", fmt.Errorf("writing error history: %w", err)
	}
	return path, nil
}

var priorityIcon = map[string]string{
	PriorityCritical: "🔴",
	PriorityHigh:     "🟠",
	PriorityMedium:   "🟡",
	PriorityLow:      "⚪",
}

// Instructions renders a plan as Markdown for whoever applies the fixes.
func Instructions(plan *Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Test Repair Instructions - Iteration %d\n", plan.Iteration)
	fmt.Fprintf(&b, "\n**Timestamp:** %s\n", plan.Timestamp)
	fmt.Fprintf(&b, "**Total Failures:** %d\n", plan.TotalFailures)
	fmt.Fprintf(&b, "**Auto-Fixable:** %d\n", plan.AutoFixable)
	b.WriteString("\n---\n\n## Repairs Required\n")
	for i, r := range plan.Repairs {
		tag := "👤 MANUAL"
		if r.AutoFixable {
			tag = "🤖 AUTO"
		}
		fmt.Fprintf(&b, "\n### %d. %s\n", i+1, r.TestName)
		fmt.Fprintf(&b, "- **Priority:** %s %s\n", priorityIcon[r.Priority], strings.ToUpper(r.Priority))
		fmt.Fprintf(&b, "- **Type:** %s\n", r.ErrorType)
		fmt.Fprintf(&b, "- **File:** `%s`", r.FilePath)
		if r.Line > 0 {
			fmt.Fprintf(&b, " (line %d)", r.Line)
		}
		b.WriteString("\n")
		fmt.Fprintf(&b, "- **Action:** %s %s\n", tag, r.Action)
		fmt.Fprintf(&b, "- **Fix:** %s\n", r.SuggestedFix)
	}
	if len(plan.Skipped) > 0 {
		b.WriteString("\n## Skipped (max iterations reached)\n\n")
		for _, s := range plan.Skipped {
			fmt.Fprintf(&b, "- `%s` after %d attempts\n", s.ErrorID, s.Iterations)
		}
	}
	return b.String()
}

type planFile struct {
	path      string
	iteration int
}

// planFiles lists the plans in dir by iteration number.
func planFiles(dir string) ([]planFile, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing repair plans: %w", err)
	}
	var out []planFile
	for _, e := range entries {
		m := planName.FindStringSubmatch(e.Name())
		if m == nil || e.IsDir() {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		out = append(out, planFile{path: filepath.Join(dir, e.Name()), iteration: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].iteration < out[j].iteration })
	return out, nil
}

// readPlan decodes one plan file.
func readPlan(path string) (*Plan, error) {
	var plan Plan
	if err := report.ReadJSON(path, &plan); err != nil {
		return nil, err
	}
	return &plan, nil
}
