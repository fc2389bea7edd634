package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

const (
	sentinelStart = "<!-- vbscan:start -->"
	sentinelEnd   = "<!-- vbscan:end -->"
)

// newInitCmd implements `vbscan init`, which writes (or updates) a vbscan
// usage section in a CLAUDE.md file.
func newInitCmd(a *app) *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "init [path-to-CLAUDE.md]",
		Short: "Write a vbscan usage section for agents to CLAUDE.md",
		Long: `Write a vbscan usage section to a CLAUDE.md file. The section is wrapped in
sentinel comments so it can be updated in place on subsequent runs without
touching surrounding content. Creates the file if it does not exist.

path-to-CLAUDE.md defaults to ./CLAUDE.md.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			section := generateSection()

			// --dry-run with no path: just print the section itself.
			if dryRun && len(args) == 0 {
				_, _ = fmt.Fprintln(a.stdout, section)
				return nil
			}

			path := "CLAUDE.md"
			if len(args) > 0 {
				path = args[0]
			}

			existing, err := os.ReadFile(path)
			if err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("reading %s: %w", path, err)
			}
			updated := applySection(string(existing), section)

			if dryRun {
				_, _ = fmt.Fprint(a.stdout, updated)
				return nil
			}

			if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			a.out.Success("Wrote vbscan section to %s", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying the file")
	return cmd
}

// generateSection returns the full sentinel-wrapped vbscan documentation block.
func generateSection() string {
	body := `## vbscan: VB6 migration analysis

Run ` + "`vbscan`" + ` via the Bash tool before planning any part of a VB6 migration.
Its JSON documents replace broad exploration of the legacy sources.

**Availability:** Check with ` + "`vbscan version`" + ` first; skip gracefully if not found.

**Analyze the legacy tree:**
` + "```" + `bash
vbscan scan ./legacy --pretty                 # vb6_analysis.json (cached between runs)
vbscan graph ./legacy --format toon -n 30     # ranked dependency graph, compact
vbscan deadcode ./legacy                      # routines, forms and globals safe to drop
vbscan metrics ./legacy                       # complexity and risk score per file
vbscan schema ./legacy --prisma schema.prisma # tables inferred from embedded SQL
vbscan hardcoded ./legacy                     # values that belong in configuration
vbscan logic vb6_analysis.json                # routine bodies as Markdown
` + "```" + `

**Check the migrated code:**
` + "```" + `bash
vbscan security --frontend web/src --backend api/src
vbscan a11y --input web/src
vbscan coverage --backend api/coverage/coverage-summary.json
vbscan repair plan test-output.txt            # then apply the planned fixes and re-run
vbscan repair report
` + "```" + `

**All commands and flags:** ` + "`vbscan --help`" + `

**How to use the output, follow these rules:**

1. **Migrate in ` + "`migration_order`" + ` waves.** The graph lists dependencies
   before their dependents; members of one wave can be migrated in parallel.

2. **Skip what ` + "`deadcode`" + ` reports** unless the user says otherwise.

3. **Treat a non-zero exit from ` + "`security`" + `, ` + "`a11y`" + `, ` + "`coverage`" + ` or
   ` + "`repair`" + ` as a failed gate.** Fix the findings and run the check again.

4. **Stop repairing an error once ` + "`repair plan`" + ` lists it as skipped.**
   It has used its attempts and needs a human.`

	return sentinelStart + "\n" + body + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	// Append, ensuring a blank line separator.
	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	if len(content) == 0 {
		return section + "\n"
	}
	return content + "\n" + section + "\n"
}
