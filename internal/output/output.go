// Package output renders command results for people and for scripts.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/kgcourse/geopub/pkg/router"
)

var (
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	labelStyle = lipgloss.NewStyle().Faint(true)
	headStyle  = lipgloss.NewStyle().Bold(true)
)

func Success(w io.Writer, message string, args ...any) {
	fmt.Fprintln(w, okStyle.Render("✔")+" "+fmt.Sprintf(message, args...))
}

func Error(w io.Writer, err error) {
	fmt.Fprintln(w, errStyle.Render("error:")+" "+err.Error())
}

func Warning(w io.Writer, message string, args ...any) {
	fmt.Fprintln(w, warnStyle.Render("warning:")+" "+fmt.Sprintf(message, args...))
}

// JSON writes v as indented JSON.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Field is one labelled line of Fields output.
type Field struct {
	Label string
	Value string
}

// Fields writes aligned "label: value" lines, skipping empty values.
func Fields(w io.Writer, fields ...Field) {
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}
	label := labelStyle.Width(width + 2)
	for _, f := range fields {
		if f.Value == "" {
			continue
		}
		fmt.Fprintln(w, label.Render(f.Label+":")+f.Value)
	}
}

// Table writes rows in aligned columns. The first row is the header.
func Table(w io.Writer, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}
	for r, row := range rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			if i < len(widths)-1 {
				cell += strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			}
			cells[i] = cell
		}
		line := strings.Join(cells, "  ")
		if r == 0 {
			line = headStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}

// Result renders the outcome of a publish.
func Result(w io.Writer, res router.Result) {
	if !res.Success {
		fmt.Fprintln(w, errStyle.Render("✘")+" publish failed: "+res.Error)
		return
	}
	Success(w, "edit published")
	Fields(w,
		Field{"edit", res.EditID},
		Field{"cid", res.CID},
		Field{"space", res.SpaceID},
		Field{"transaction", res.TransactionHash},
	)
}
