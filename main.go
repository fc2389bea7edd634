// vbscan inventories legacy VB6 sources and gates the migrated code.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/phobologic/vbscan/internal/config"
	"github.com/phobologic/vbscan/internal/discover"
	"github.com/phobologic/vbscan/internal/model"
	"github.com/phobologic/vbscan/internal/output"
	"github.com/phobologic/vbscan/internal/report"
	"github.com/phobologic/vbscan/internal/scan"
	"github.com/phobologic/vbscan/internal/source"
)

var version = "dev"

// errVerdictFailed is returned by a check that ran to completion and failed.
// The command has already said why, so main only sets the exit code.
var errVerdictFailed = errors.New("check failed")

// stdoutPath as an output path streams the document to stdout.
const stdoutPath = "-"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errVerdictFailed) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdout, stderr)
	cmd.SetArgs(args)
	return cmd.Execute()
}

// app is the state shared by every subcommand of one invocation.
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	configFile string
	verbose    bool

	cfg *config.Config
	out *output.Printer
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:   "vbscan",
		Short: "Analyze VB6 sources and check the code migrated from them",
		Long: `vbscan inventories a VB6 source tree (projects, forms, modules, classes,
data access, dead code, dependencies, complexity, hardcoded values) and checks
the web application migrated from it (security, accessibility, coverage, test
repair loop).

Settings are read from .vbscan.yaml in the working directory, or --config,
and VBSCAN_* environment variables.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(*cobra.Command, []string) error { return a.load() },
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate("vbscan {{.Version}}\n")

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default .vbscan.yaml in the working directory)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "print per-file details to stderr")

	root.AddCommand(
		newScanCmd(a),
		newDeadcodeCmd(a),
		newGraphCmd(a),
		newMetricsCmd(a),
		newSchemaCmd(a),
		newHardcodedCmd(a),
		newLogicCmd(a),
		newSecurityCmd(a),
		newA11yCmd(a),
		newCoverageCmd(a),
		newRepairCmd(a),
		newStackCmd(a),
		newInitCmd(a),
		newVersionCmd(a),
	)
	return root
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			_, _ = fmt.Fprintf(a.stdout, "vbscan %s (analysis format %s)\n", version, scan.Version)
			return nil
		},
	}
}

// load reads the configuration once the command line has been parsed.
func (a *app) load() error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}
	v, err := config.New(a.configFile, dir)
	if err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	a.cfg = cfg
	a.out = output.New(a.stdout, a.stderr, a.verbose)
	return nil
}

func (a *app) reader() source.Reader {
	return source.NewCachingReader(source.FileReader{}, a.cfg.Reader.CacheEntries)
}

func (a *app) discoverOptions() discover.Options {
	return discover.Options{
		RespectGitignore: a.cfg.Discover.RespectGitignore,
		MaxFileSize:      a.cfg.Discover.MaxFileSize,
	}
}

// sources discovers the files under root.
func (a *app) sources(root string) ([]model.SourceFile, error) {
	files, err := discover.Files(root, a.discoverOptions())
	if err != nil {
		return nil, err
	}
	a.out.Verbose("%d files under %s", len(files), root)
	return files, nil
}

// write renders fn into path, or onto stdout for stdoutPath.
func (a *app) write(path string, fn func(io.Writer) error) error {
	if path == stdoutPath {
		return fn(a.stdout)
	}
	return report.WriteFile(path, fn)
}

func (a *app) writeJSON(path string, v any, pretty bool) error {
	return a.write(path, func(w io.Writer) error { return report.JSON(w, v, pretty) })
}

// status returns the printer for summaries about path. Summaries are muted
// while the document itself goes to stdout.
func (a *app) status(path string) *output.Printer {
	if path == stdoutPath {
		return output.New(nil, a.stderr, a.verbose)
	}
	return a.out
}

// outputFlags are the flags shared by the document-producing commands.
type outputFlags struct {
	output string
	pretty bool
	html   string
}

func (f *outputFlags) register(cmd *cobra.Command, defaultOutput string, withHTML bool) {
	cmd.Flags().StringVarP(&f.output, "output", "o", defaultOutput, `output file ("-" for stdout)`)
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "indent JSON output")
	if withHTML {
		cmd.Flags().StringVar(&f.html, "html", "", "also write an HTML report to this file")
	}
}

// writeHTML renders fn into f.html when an HTML report was requested.
func (a *app) writeHTML(f *outputFlags, p *output.Printer, fn func(io.Writer) error) error {
	if f.html == "" {
		return nil
	}
	if err := report.WriteFile(f.html, fn); err != nil {
		return err
	}
	p.Success("HTML report saved to %s", f.html)
	return nil
}
