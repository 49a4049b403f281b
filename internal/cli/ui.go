package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/soypat/gshade"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleKind    = lipgloss.NewStyle().Foreground(colorCyan)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleWarning.Render(iconWarning)+" "+styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+styleDim.Render(iconArrow)+" "+styleValue.Render(path))
}

// printNodeErrors prints one line per node error grouped under the graph's name.
func printNodeErrors(w io.Writer, name string, errs []gshade.NodeError) {
	printError(w, "%s: %d node error(s)", styleTitle.Render(name), len(errs))
	for _, ne := range errs {
		where := ""
		if ne.Graph != "" && ne.Graph != name {
			where = styleDim.Render(ne.Graph+": ")
		}
		fmt.Fprintln(w, "  "+where+styleKind.Render(ne.Kind.String())+" "+
			styleDim.Render("#"+strconv.Itoa(int(ne.Node)))+" "+ne.Msg)
	}
}

// printResultSummary prints the resources referenced by a compiled graph.
func printResultSummary(w io.Writer, res *gshade.Result) {
	parts := []struct {
		label string
		n     int
	}{
		{"uniforms", len(res.Uniforms)},
		{"defines", len(res.Defines)},
		{"textures", len(res.Textures)},
		{"functions", len(res.Functions)},
		{"streams", len(res.Streams)},
	}
	line := "  "
	first := true
	for _, part := range parts {
		if part.n == 0 {
			continue
		}
		if !first {
			line += styleDim.Render(" · ")
		}
		first = false
		line += styleDim.Render(strconv.Itoa(part.n) + " " + part.label)
	}
	if !first {
		fmt.Fprintln(w, line)
	}
}
