package report

import (
	"fmt"
	"strings"

	"github.com/phobologic/vbscan/internal/scan"
)

// Logic renders the routine bodies of an analysis as a Markdown document,
// one fenced vb block per routine. Routines without a body are omitted.
func Logic(input string, a *scan.Analysis) string {
	var b strings.Builder
	b.WriteString("# VB6 Logic Analysis\n")
	fmt.Fprintf(&b, "\nGenerated from: `%s`\n", input)
	b.WriteString("\n> [!NOTE]\n")
	b.WriteString("> This document contains the extracted logic (code) from forms, modules, and classes.\n")
	b.WriteString("> Use this to implement business rules, validations, and workflows in the new system.\n")

	b.WriteString("\n## Forms Logic\n")
	for _, f := range a.Forms {
		fmt.Fprintf(&b, "\n### Form: %s\n", f.Name)
		if len(f.Properties) > 0 {
			b.WriteString("\n**Key Properties:**\n\n")
			b.WriteString("| Property | Value |\n")
			b.WriteString("|----------|-------|\n")
			for _, p := range f.Properties {
				fmt.Fprintf(&b, "| %s | %s |\n", cell(p.Name), cell(p.Value))
			}
		}
		if len(f.Events) > 0 {
			b.WriteString("\n#### Events\n")
			for _, e := range f.Events {
				codeBlock(&b, e.Control+"_"+e.Event, e.Logic)
			}
		}
		if len(f.Functions) > 0 {
			b.WriteString("\n#### Functions\n")
			for _, fn := range f.Functions {
				codeBlock(&b, "Function: "+fn.Name, fn.Logic)
			}
		}
	}

	b.WriteString("\n## Modules Logic\n")
	for _, m := range a.Modules {
		fmt.Fprintf(&b, "\n### Module: %s\n", m.Name)
		for _, fn := range m.Functions {
			codeBlock(&b, "Function: "+fn.Name, fn.Logic)
		}
	}

	b.WriteString("\n## Classes Logic\n")
	for _, c := range a.Classes {
		fmt.Fprintf(&b, "\n### Class: %s\n", c.Name)
		for _, m := range c.Methods {
			codeBlock(&b, "Method: "+m.Name, m.Logic)
		}
		for _, p := range c.Properties {
			codeBlock(&b, p.Type+": "+p.Name, p.Logic)
		}
	}
	return b.String()
}

func codeBlock(b *strings.Builder, title, logic string) {
	logic = strings.TrimSpace(logic)
	if logic == "" {
		return
	}
	fmt.Fprintf(b, "\n**%s**\n\n```vb\n%s\n```\n", title, logic)
}

// cell escapes a value for a Markdown table cell.
func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
