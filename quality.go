package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/phobologic/vbscan/internal/audit"
	"github.com/phobologic/vbscan/internal/coverage"
	"github.com/phobologic/vbscan/internal/output"
	"github.com/phobologic/vbscan/internal/report"
	"github.com/phobologic/vbscan/internal/repair"
)

// rules returns builtin plus the rules of the configured rule pack that
// belong to suite.
func (a *app) rules(builtin []audit.Rule, suite string) ([]audit.Rule, error) {
	rules := append([]audit.Rule(nil), builtin...)
	if a.cfg.Audit.RulesFile == "" {
		return rules, nil
	}
	extra, err := audit.LoadRules(a.cfg.Audit.RulesFile)
	if err != nil {
		return nil, err
	}
	extra = audit.ForSuite(extra, suite)
	a.out.Verbose("%d extra %s rules from %s", len(extra), suite, a.cfg.Audit.RulesFile)
	return append(rules, extra...), nil
}

// scanDir audits dir. A directory that does not exist is skipped with a
// warning, as a migration may not have produced it yet.
func (a *app) scanDir(aud *audit.Auditor, label, dir string) bool {
	if err := aud.ScanDir(dir); err != nil {
		a.out.Warn("Skipping %s: %v", label, err)
		return false
	}
	a.out.Info("Scanned %s: %s", label, dir)
	return true
}

// finishAudit writes the report and turns its verdict into the exit status.
func (a *app) finishAudit(aud *audit.Auditor, f *outputFlags, labels report.AuditLabels) error {
	rep := aud.Report(time.Now())
	if err := a.writeJSON(f.output, rep, true); err != nil {
		return err
	}

	p := a.status(f.output)
	p.Info("Results: %d files scanned, report saved to %s", rep.FilesScanned, f.output)
	p.Step("Critical: %d", rep.Critical)
	p.Step("Warnings: %d", rep.Warnings)
	if err := a.writeHTML(f, p, func(w io.Writer) error {
		return report.AuditHTML(w, labels, &rep)
	}); err != nil {
		return err
	}

	if !rep.Passed {
		a.out.Error("%s", labels.Fail)
		return errVerdictFailed
	}
	p.Success("%s", labels.Pass)
	return nil
}

func newSecurityCmd(a *app) *cobra.Command {
	var (
		f                 outputFlags
		frontend, backend string
	)
	cmd := &cobra.Command{
		Use:   "security",
		Short: "Audit migrated front end and back end code for security hazards",
		Long: `Audit migrated front end and back end code for security hazards: secrets in
source, unsafe HTML binding, eval, SQL built by concatenation, disabled TLS
checks, tokens without expiry and plain HTTP endpoints. The package.json above
the back end directory is checked for validation, rate limiting and security
header middleware.

Exits with status 1 when any CRITICAL finding is reported.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			if frontend == "" && backend == "" {
				return errors.New("at least one of --frontend or --backend is required")
			}
			rules, err := a.rules(audit.SecurityRules, audit.SuiteSecurity)
			if err != nil {
				return err
			}
			aud := audit.New(rules, a.reader())

			if frontend != "" {
				a.scanDir(aud, "frontend", frontend)
			}
			if backend != "" && a.scanDir(aud, "backend", backend) {
				if err := aud.CheckDependencies(filepath.Dir(filepath.Clean(backend))); err != nil {
					a.out.Warn("%v", err)
				}
			}

			return a.finishAudit(aud, &f, report.AuditLabels{
				Title: "Security Audit Report",
				Pass:  "PASSED",
				Fail:  "FAILED",
			})
		},
	}
	f.register(cmd, "security_audit.json", true)
	_ = cmd.Flags().MarkHidden("pretty")
	cmd.Flags().StringVar(&frontend, "frontend", "", "front end source directory")
	cmd.Flags().StringVar(&backend, "backend", "", "back end source directory")
	return cmd
}

func newA11yCmd(a *app) *cobra.Command {
	var (
		f     outputFlags
		input string
	)
	cmd := &cobra.Command{
		Use:   "a11y",
		Short: "Audit migrated templates and styles for WCAG 2.1 AA basics",
		Long: `Audit migrated templates and styles for WCAG 2.1 AA basics: image alt text,
labels on form controls and icon buttons, heading structure, ARIA roles,
focus outlines, the document language and table headers.

Exits with status 1 when any CRITICAL finding is reported.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			rules, err := a.rules(audit.A11yRules, audit.SuiteA11y)
			if err != nil {
				return err
			}
			aud := audit.New(rules, a.reader())
			a.scanDir(aud, "frontend", input)

			return a.finishAudit(aud, &f, report.AuditLabels{
				Title: "Accessibility Audit Report",
				Pass:  "WCAG 2.1 AA compliant",
				Fail:  "Not WCAG 2.1 AA compliant",
			})
		},
	}
	f.register(cmd, "a11y_audit.json", true)
	_ = cmd.Flags().MarkHidden("pretty")
	cmd.Flags().StringVarP(&input, "input", "i", "", "front end source directory")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newCoverageCmd(a *app) *cobra.Command {
	var (
		f                 outputFlags
		backend, frontend string
		lines, branches   float64
	)
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Check Istanbul coverage summaries against thresholds",
		Long: `Check Istanbul coverage-summary.json files against line, statement, function
and branch thresholds. Without --backend or --frontend the conventional
locations under the working directory are searched.

Exits with status 1 when any layer is below a threshold.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if backend == "" && frontend == "" {
				backend, frontend = coverage.Discover(".")
			}
			if backend == "" && frontend == "" {
				return errors.New("no coverage files found or specified; run the tests with coverage enabled")
			}

			t := a.cfg.Coverage
			if cmd.Flags().Changed("threshold") {
				t.Lines, t.Statements, t.Functions = lines, lines, lines
			}
			if cmd.Flags().Changed("branch-threshold") {
				t.Branches = branches
			}
			for _, pct := range []float64{t.Lines, t.Branches} {
				if pct < 0 || pct > 100 {
					return fmt.Errorf("invalid threshold %v (must be between 0 and 100)", pct)
				}
			}

			v := coverage.New(t)
			if backend != "" {
				v.Validate("Backend", backend)
			}
			if frontend != "" {
				v.Validate("Frontend", frontend)
			}

			now := time.Now()
			p := a.status(f.output)
			for _, l := range v.Layers {
				printLayer(p, l)
			}
			doc := v.Markdown(now)
			if f.output != "" {
				if err := a.write(f.output, func(w io.Writer) error {
					_, err := io.WriteString(w, doc)
					return err
				}); err != nil {
					return err
				}
				p.Success("Coverage report saved to %s", f.output)
			}
			if err := a.writeHTML(&f, p, func(w io.Writer) error {
				return report.MarkdownToHTML(w, "Coverage Validation Report", []byte(doc))
			}); err != nil {
				return err
			}

			if !v.Passed() {
				a.out.Error("Coverage below threshold")
				return errVerdictFailed
			}
			p.Success("All coverage thresholds met")
			return nil
		},
	}
	f.register(cmd, "", true)
	_ = cmd.Flags().MarkHidden("pretty")
	cmd.Flags().StringVarP(&backend, "backend", "b", "", "back end coverage-summary.json")
	cmd.Flags().StringVarP(&frontend, "frontend", "f", "", "front end coverage-summary.json")
	cmd.Flags().Float64VarP(&lines, "threshold", "t", 0, "line, statement and function threshold (overrides config)")
	cmd.Flags().Float64Var(&branches, "branch-threshold", 0, "branch threshold (overrides config)")
	return cmd
}

func printLayer(p *output.Printer, l coverage.Layer) {
	if l.Err != nil {
		p.Warn("%s: %v", l.Name, l.Err)
		return
	}
	if l.Passed() {
		p.Success("%s coverage passed", l.Name)
	} else {
		p.Info("%s coverage failed", l.Name)
	}
	for _, r := range l.Results {
		mark := "ok"
		if !r.Passed {
			mark = "below"
		}
		p.Step("%-10s %6.2f%% (threshold %.0f%%) %s", r.Metric, r.Actual, r.Threshold, mark)
	}
}

func newRepairCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Plan and report the self-healing test repair loop",
	}
	cmd.AddCommand(newRepairPlanCmd(a), newRepairReportCmd(a))
	return cmd
}

// repairFlags are shared by the repair subcommands.
type repairFlags struct {
	dir           string
	maxIterations int
}

func (f *repairFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dir, "dir", "", "repair plan directory (default from config)")
	cmd.Flags().IntVarP(&f.maxIterations, "max-iterations", "m", 0, "attempts per error before giving up (default from config)")
}

func (f *repairFlags) resolve(a *app) {
	if f.dir == "" {
		f.dir = a.cfg.Repair.Dir
	}
	if f.maxIterations <= 0 {
		f.maxIterations = a.cfg.Repair.MaxIterations
	}
}

func newRepairPlanCmd(a *app) *cobra.Command {
	var (
		rf     repairFlags
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "plan <test-output>",
		Short: "Classify test failures and write the next repair plan",
		Long: `Classify the failures in a saved Jest or Playwright run and write the next
repair_plan_NNN.json. Errors that already used their attempts are listed as
skipped instead of planned again.

Exits with status 1 when repairs are needed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			rf.resolve(a)
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading test output: %w", err)
			}

			failures := repair.Parse(string(data))
			if len(failures) == 0 {
				if asJSON {
					return report.JSON(a.stdout, map[string]any{"status": "success", "failures": 0}, false)
				}
				a.out.Success("No test failures found")
				return nil
			}

			planner, err := repair.NewPlanner(rf.dir, rf.maxIterations)
			if err != nil {
				return err
			}
			plan := planner.Create(failures, time.Now())
			path, err := planner.Save(plan)
			if err != nil {
				return err
			}

			if asJSON {
				if err := report.JSON(a.stdout, map[string]any{
					"status":         "repairs_needed",
					"iteration":      plan.Iteration,
					"total_failures": plan.TotalFailures,
					"auto_fixable":   plan.AutoFixable,
					"plan_file":      path,
				}, false); err != nil {
					return err
				}
				return errVerdictFailed
			}
			_, _ = fmt.Fprintln(a.stdout, repair.Instructions(plan))
			a.out.Info("Repair plan saved to %s", path)
			return errVerdictFailed
		},
	}
	rf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print a one-line JSON status instead of instructions")
	return cmd
}

func newRepairReportCmd(a *app) *cobra.Command {
	var (
		rf repairFlags
		f  outputFlags
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Summarize every repair plan into a final report",
		Long: `Fold every repair plan into one record per error with its outcome:
REPAIRED, FAILED (attempts exhausted), SKIPPED (not auto-fixable) or
IN_PROGRESS (still in the latest plan).

Exits with status 1 when any error could not be repaired.`,
		Args: cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			rf.resolve(a)
			now := time.Now()
			h, err := repair.LoadHistory(rf.dir, rf.maxIterations, now, func(err error) {
				a.out.Warn("Skipping plan: %v", err)
			})
			if err != nil {
				return err
			}

			p := a.status(f.output)
			if len(h.Errors) == 0 {
				p.Success("No repair history found, all tests passed on the first run")
			}
			if err := a.writeJSON(f.output, h, f.pretty); err != nil {
				return err
			}
			s := h.Summary
			p.Info("Repair summary saved to %s", f.output)
			p.Step("Errors: %d, repaired: %d, failed: %d, skipped: %d, in progress: %d",
				s.TotalErrors, s.Repaired, s.Failed, s.Skipped, s.InProgress)
			p.Step("Iterations: %d, duration: %.1fs, success rate: %.1f%%",
				s.TotalIterations, s.DurationSeconds, s.SuccessRate)

			if err := a.writeHTML(&f, p, func(w io.Writer) error {
				return report.MarkdownToHTML(w, "Self-Healing Repair Report", []byte(h.Markdown(now)))
			}); err != nil {
				return err
			}

			if s.Failed > 0 {
				a.out.Error("%d error(s) could not be auto-repaired", s.Failed)
				return errVerdictFailed
			}
			return nil
		},
	}
	rf.register(cmd)
	f.register(cmd, "repair-summary.json", true)
	return cmd
}
