package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/ritzau/scenegraph/pkg/cycles"
	"github.com/ritzau/scenegraph/pkg/registry"
	"github.com/ritzau/scenegraph/pkg/validation"
)

// Color definitions
var (
	bold   = color.New(color.Bold)
	red    = color.New(color.FgRed)
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
	faint  = color.New(color.Faint)
)

// PrintValidationReport prints the findings for a project and returns how
// many there were
func PrintValidationReport(w io.Writer, source string, modules int, findings []validation.ValidationError) int {
	bold.Fprintln(w, "Scene Graph - Validation Report")
	bold.Fprintln(w, "===============================")
	fmt.Fprintf(w, "Project: %s\n", source)
	fmt.Fprintf(w, "Modules: %d\n", modules)
	fmt.Fprintln(w)

	if len(findings) == 0 {
		green.Fprintln(w, "✓ No problems found")
		return 0
	}

	byModule := make(map[string][]validation.ValidationError)
	var order []string
	for _, f := range findings {
		if _, seen := byModule[f.Module]; !seen {
			order = append(order, f.Module)
		}
		byModule[f.Module] = append(byModule[f.Module], f)
	}

	for _, module := range order {
		name := module
		if name == "" {
			name = "(graph)"
		}
		cyan.Fprintf(w, "%s\n", name)
		for _, f := range byModule[module] {
			kindColor := yellow
			if f.Kind == validation.KindInvalidConnection {
				kindColor = red
			}
			kindColor.Fprintf(w, "  %-18s", f.Kind)
			fmt.Fprintf(w, " %s", f.Message)
			if where := location(f); where != "" {
				faint.Fprintf(w, "  [%s]", where)
			}
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w)
	}

	red.Fprintf(w, "Summary: %d problem(s) in %d module(s)\n", len(findings), len(order))
	return len(findings)
}

func location(f validation.ValidationError) string {
	var parts []string
	if f.NodeID != "" {
		parts = append(parts, "node "+f.NodeID)
	}
	if f.SourceNodeID != "" || f.TargetNodeID != "" {
		parts = append(parts, fmt.Sprintf("edge %s -> %s", f.SourceNodeID, f.TargetNodeID))
	}
	if f.ParameterKey != "" {
		parts = append(parts, "param "+f.ParameterKey)
	}
	return strings.Join(parts, ", ")
}

// PrintCycles lists graph cycles of one module. Nothing is printed when
// there are none.
func PrintCycles(w io.Writer, module string, found []cycles.Cycle) {
	if len(found) == 0 {
		return
	}
	yellow.Fprintf(w, "%s: %d cycle(s)\n", module, len(found))
	for _, c := range found {
		fmt.Fprintf(w, "  %s\n", strings.Join(c.NodeIDs, " -> "))
	}
}

// PrintRegistry lists the available node types grouped by category
func PrintRegistry(w io.Writer, reg *registry.Registry) {
	bold.Fprintln(w, "Node Types")
	bold.Fprintln(w, "==========")
	groups := reg.ByCategory()
	for _, category := range registry.Categories {
		defs := groups[category]
		if len(defs) == 0 {
			continue
		}
		cyan.Fprintf(w, "%s\n", category)
		for _, d := range defs {
			out := string(d.OutputType)
			if out == "" {
				out = "-"
			}
			fmt.Fprintf(w, "  %-18s %-20s -> %s\n", d.Key, d.Label, out)
			for _, p := range d.Parameters {
				faint.Fprintf(w, "      %s: %s\n", p.Key, p.Type)
			}
		}
	}
}

// PrintExport reports the outcome of writing one generated file
func PrintExport(w io.Writer, module, path string, changed bool) {
	if changed {
		green.Fprintf(w, "✓ %s", module)
		fmt.Fprintf(w, " -> %s\n", path)
		return
	}
	faint.Fprintf(w, "= %s -> %s (unchanged)\n", module, path)
}
