package main

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phobologic/vbscan/internal/deadcode"
	"github.com/phobologic/vbscan/internal/discover"
	"github.com/phobologic/vbscan/internal/graph"
	"github.com/phobologic/vbscan/internal/hardcoded"
	"github.com/phobologic/vbscan/internal/metrics"
	"github.com/phobologic/vbscan/internal/ranking"
	"github.com/phobologic/vbscan/internal/report"
	"github.com/phobologic/vbscan/internal/scan"
	"github.com/phobologic/vbscan/internal/schema"
	"github.com/phobologic/vbscan/internal/toon"
)

func newScanCmd(a *app) *cobra.Command {
	var (
		f       outputFlags
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "scan <source_dir>",
		Short: "Build the comprehensive analysis of a VB6 source tree",
		Long: `Build the comprehensive analysis of a VB6 source tree: inventory, projects,
forms, modules, classes, data access, call graph, globals, API declarations,
error handling and migration risks.

Results are cached in the source directory and reused while no file changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			root := args[0]
			opts := scan.Options{
				Discover: a.discoverOptions(),
				Warn:     func(err error) { a.out.Warn("%v", err) },
			}
			for _, out := range []string{f.output, f.html} {
				if out != "" && out != stdoutPath {
					opts.Discover.ExcludePaths = append(opts.Discover.ExcludePaths, out)
				}
			}
			if a.cfg.Cache.Enabled && !noCache {
				opts.CacheFile = a.cfg.Cache.File
				if !filepath.IsAbs(opts.CacheFile) {
					opts.CacheFile = filepath.Join(root, opts.CacheFile)
				}
			}

			res, err := scan.Run(root, a.reader(), opts)
			if err != nil {
				return err
			}
			p := a.status(f.output)
			if res.Cached {
				p.Info("No changes since the last scan, using cached analysis")
			}
			if err := a.writeJSON(f.output, res.Analysis, f.pretty); err != nil {
				return err
			}

			s := res.Analysis.Summary
			p.Success("Analysis saved to %s", f.output)
			p.Step("Files: %d (%s)", s.TotalFiles, s.TotalSizeHuman)
			p.Step("Projects: %d, forms: %d, modules: %d, classes: %d",
				s.ProjectsCount, s.FormsCount, s.ModulesCount, s.ClassesCount)
			p.Step("Functions: %d, controls: %d", s.TotalFunctions, s.TotalControls)
			p.Step("Risks: %d", len(res.Analysis.Risks))

			return a.writeHTML(&f, p, func(w io.Writer) error {
				return report.AnalysisHTML(w, res.Analysis)
			})
		},
	}
	f.register(cmd, "vb6_analysis.json", true)
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "ignore and do not update the scan cache")
	return cmd
}

func newDeadcodeCmd(a *app) *cobra.Command {
	var f outputFlags
	cmd := &cobra.Command{
		Use:   "deadcode <source_dir>",
		Short: "Find unreferenced routines, orphan forms and unused globals",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			files, err := a.sources(args[0])
			if err != nil {
				return err
			}
			res := deadcode.New(a.reader()).Analyze(files)
			if err := a.writeJSON(f.output, res, f.pretty); err != nil {
				return err
			}

			s := res.Summary
			p := a.status(f.output)
			p.Success("Dead code report saved to %s", f.output)
			p.Step("Dead functions: %d of %d (%.1f%%)", s.DeadFunctions, s.TotalFunctionsDeclared, s.DeadCodePercentage)
			p.Step("Orphan forms: %d of %d", s.OrphanForms, s.TotalForms)
			p.Step("Unused globals: %d of %d", s.UnusedGlobals, s.TotalGlobals)
			return nil
		},
	}
	f.register(cmd, "vb6_dead_code.json", false)
	return cmd
}

func newGraphCmd(a *app) *cobra.Command {
	var (
		f        outputFlags
		maxNodes int
		focus    string
		format   string
	)
	cmd := &cobra.Command{
		Use:   "graph <source_dir>",
		Short: "Build the form/module/class dependency graph",
		Long: `Build the dependency graph of forms, modules and classes with PageRank
scores, circular dependencies, hub modules and a dependency-first migration
order.

--format toon writes a compact tabular encoding for agents, to stdout unless
-o is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "toon" {
				return fmt.Errorf("unsupported format %q (want json or toon)", format)
			}
			root := args[0]
			files, err := a.sources(root)
			if err != nil {
				return err
			}

			g := graph.Build(files, a.reader(), graph.Options{HubThreshold: a.cfg.Graph.HubThreshold})
			if focus != "" {
				g = ranking.FilterByNode(g, focus)
			}
			g = ranking.SelectNodes(g, maxNodes)

			if format == "toon" && !cmd.Flags().Changed("output") {
				f.output = stdoutPath
			}
			if format == "toon" {
				abs, err := filepath.Abs(root)
				if err != nil {
					return fmt.Errorf("resolving root: %w", err)
				}
				err = a.write(f.output, func(w io.Writer) error {
					_, err := fmt.Fprintln(w, toon.Encode(filepath.Base(abs), g))
					return err
				})
				if err != nil {
					return err
				}
			} else if err := a.writeJSON(f.output, g, f.pretty); err != nil {
				return err
			}

			p := a.status(f.output)
			p.Success("Dependency graph saved to %s", f.output)
			p.Step("Nodes: %d, edges: %d", g.Summary.TotalNodes, g.Summary.TotalEdges)
			if g.Summary.CircularDependencies > 0 {
				p.Step("Circular dependencies: %d", g.Summary.CircularDependencies)
			}
			p.Step("Migration waves: %d", len(g.MigrationOrder))

			return a.writeHTML(&f, p, func(w io.Writer) error {
				return report.GraphHTML(w, g)
			})
		},
	}
	f.register(cmd, "vb6_dependencies.json", true)
	cmd.Flags().IntVarP(&maxNodes, "max-nodes", "n", 0, "keep only the N highest-ranked nodes")
	cmd.Flags().StringVar(&focus, "focus", "", "keep nodes whose name contains this text and their direct neighbors")
	cmd.Flags().StringVar(&format, "format", "json", "output format: json or toon")
	return cmd
}

func newMetricsCmd(a *app) *cobra.Command {
	var f outputFlags
	cmd := &cobra.Command{
		Use:   "metrics <source_dir>",
		Short: "Measure size, comments and cyclomatic complexity",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			files, err := a.sources(args[0])
			if err != nil {
				return err
			}
			rep := metrics.Analyze(files, a.reader())
			if err := a.writeJSON(f.output, rep, f.pretty); err != nil {
				return err
			}

			s := rep.Summary
			p := a.status(f.output)
			p.Success("Metrics saved to %s", f.output)
			p.Step("Files: %d, LOC: %d, functions: %d", s.TotalFiles, s.TotalLOC, s.TotalFunctions)
			p.Step("Average complexity: %.2f, comment ratio: %.1f%%", s.AverageComplexity, s.CommentRatio)
			p.Step("Risk score: %.1f/100", s.RiskScore)
			return nil
		},
	}
	f.register(cmd, "vb6_metrics.json", false)
	return cmd
}

func newSchemaCmd(a *app) *cobra.Command {
	var (
		f      outputFlags
		prisma string
	)
	cmd := &cobra.Command{
		Use:   "schema <source_dir>",
		Short: "Infer the database schema from embedded SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			files, err := a.sources(args[0])
			if err != nil {
				return err
			}
			s := schema.New(a.reader()).Analyze(files)
			if err := a.writeJSON(f.output, s, f.pretty); err != nil {
				return err
			}

			p := a.status(f.output)
			p.Success("Schema saved to %s", f.output)
			p.Step("Tables: %d, relationships: %d", s.Summary.TotalTables, s.Summary.TotalRelationships)
			if s.Summary.DatabaseType != "" {
				p.Step("Database: %s", s.Summary.DatabaseType)
			}

			if prisma == "" {
				return nil
			}
			if err := report.WriteFile(prisma, func(w io.Writer) error { return schema.WritePrisma(w, s) }); err != nil {
				return err
			}
			p.Success("Prisma schema saved to %s", prisma)
			return nil
		},
	}
	f.register(cmd, "vb6_schema.json", false)
	cmd.Flags().StringVar(&prisma, "prisma", "", "also write a draft Prisma schema to this file")
	return cmd
}

func newHardcodedCmd(a *app) *cobra.Command {
	var f outputFlags
	cmd := &cobra.Command{
		Use:   "hardcoded <source_dir>",
		Short: "Extract hardcoded values that belong in configuration",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			files, err := a.sources(args[0])
			if err != nil {
				return err
			}
			rep := hardcoded.Analyze(files, a.reader())
			if err := a.writeJSON(f.output, rep, f.pretty); err != nil {
				return err
			}

			p := a.status(f.output)
			p.Success("Hardcoded values saved to %s", f.output)
			p.Step("Findings: %d, risk level: %s", rep.Summary.TotalFindings, rep.Summary.RiskLevel)
			for _, c := range hardcoded.Categories {
				if n := rep.Summary.ByCategory[c.Name]; n > 0 {
					p.Verbose("%s: %d", c.Name, n)
				}
			}
			return nil
		},
	}
	f.register(cmd, "vb6_hardcoded.json", false)
	return cmd
}

func newLogicCmd(a *app) *cobra.Command {
	var f outputFlags
	cmd := &cobra.Command{
		Use:   "logic <analysis.json>",
		Short: "Extract routine bodies from a scan into a Markdown document",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			input := args[0]
			var analysis scan.Analysis
			if err := report.ReadJSON(input, &analysis); err != nil {
				return err
			}
			doc := report.Logic(input, &analysis)
			if err := a.write(f.output, func(w io.Writer) error {
				_, err := io.WriteString(w, doc)
				return err
			}); err != nil {
				return err
			}

			p := a.status(f.output)
			p.Success("Logic analysis saved to %s", f.output)
			return a.writeHTML(&f, p, func(w io.Writer) error {
				return report.MarkdownToHTML(w, "VB6 Logic Analysis", []byte(doc))
			})
		},
	}
	f.register(cmd, "VB6_LOGIC_ANALYSIS.md", true)
	_ = cmd.Flags().MarkHidden("pretty")
	return cmd
}

func newStackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stack <dir>",
		Short: "Guess the technology stack of a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			stack, err := discover.DetectStack(args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(a.stdout, stack)
			return nil
		},
	}
}
