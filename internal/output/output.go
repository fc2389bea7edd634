// Package output prints styled status lines for the vbscan commands.
//
// Summaries go to the primary writer; warnings and errors go to the error
// writer so JSON written to stdout stays clean.
package output

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("yellow"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// Printer writes styled messages. The zero value discards everything.
type Printer struct {
	out     io.Writer
	err     io.Writer
	verbose bool
}

// New returns a Printer writing to out and errOut.
func New(out, errOut io.Writer, verbose bool) *Printer {
	return &Printer{out: out, err: errOut, verbose: verbose}
}

// Success reports a completed operation.
func (p *Printer) Success(format string, args ...any) {
	p.line(false, successStyle, "✅ ", format, args...)
}

// Error reports a failure that needs attention.
func (p *Printer) Error(format string, args ...any) {
	p.line(true, errorStyle, "❌ ", format, args...)
}

// Warn reports a degraded but non-fatal condition.
func (p *Printer) Warn(format string, args ...any) {
	p.line(true, warnStyle, "⚠️  ", format, args...)
}

// Info prints a status update.
func (p *Printer) Info(format string, args ...any) {
	p.line(false, infoStyle, "ℹ️  ", format, args...)
}

// Step prints an indented detail line.
func (p *Printer) Step(format string, args ...any) {
	p.line(false, stepStyle, "   ", format, args...)
}

// Verbose prints only when verbose output was requested.
func (p *Printer) Verbose(format string, args ...any) {
	if p != nil && p.verbose {
		p.line(true, stepStyle, "🔍 ", format, args...)
	}
}

func (p *Printer) line(toErr bool, style lipgloss.Style, prefix, format string, args ...any) {
	if p == nil {
		return
	}
	w := p.out
	if toErr {
		w = p.err
	}
	if w == nil {
		return
	}
	fmt.Fprintln(w, style.Render(prefix+fmt.Sprintf(format, args...)))
}
