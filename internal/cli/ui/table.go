package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

// Table renders aligned columns under a highlighted header
type Table struct {
	writer  io.Writer
	headers []string
	rows    [][]string
	missing map[int]bool
	noColor bool
}

// NewTable creates a new table with the given headers
func NewTable(w io.Writer, noColor bool, headers ...string) *Table {
	return &Table{
		writer:  w,
		headers: headers,
		missing: make(map[int]bool),
		noColor: noColor,
	}
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// AddMissing adds a row rendered in red, such as a record without a route
func (t *Table) AddMissing(cells ...string) {
	t.missing[len(t.rows)] = true
	t.AddRow(cells...)
}

// Render renders the table to the writer
func (t *Table) Render() {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, header := range t.headers {
		widths[i] = len(header)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	bold := color.New(color.Bold, color.FgCyan)
	gray := color.New(color.FgHiBlack)
	red := color.New(color.FgRed)
	if t.noColor {
		bold.DisableColor()
		gray.DisableColor()
		red.DisableColor()
	}

	t.line(bold, t.headers, widths)
	separators := make([]string, len(widths))
	for i, width := range widths {
		separators[i] = strings.Repeat("─", width)
	}
	t.line(gray, separators, widths)

	plain := color.New()
	if t.noColor {
		plain.DisableColor()
	}
	for i, row := range t.rows {
		c := plain
		if t.missing[i] {
			c = red
		}
		t.line(c, row, widths)
	}
}

func (t *Table) line(c *color.Color, cells []string, widths []int) {
	parts := make([]string, 0, len(cells))
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		if i < len(cells)-1 {
			cell = padRight(cell, widths[i])
		}
		parts = append(parts, cell)
	}
	c.Fprintln(t.writer, strings.Join(parts, "  "))
}

// padRight pads a string with spaces on the right to reach the target width.
// Width counts runes so box-drawing separators line up.
func padRight(s string, width int) string {
	n := len([]rune(s))
	if n >= width {
		return s
	}
	return s + strings.Repeat(" ", width-n)
}

// KeyValue renders "key: value" lines with aligned values
func KeyValue(w io.Writer, noColor bool, pairs ...[2]string) {
	keyWidth := 0
	for _, p := range pairs {
		if len(p[0]) > keyWidth {
			keyWidth = len(p[0])
		}
	}

	cyan := color.New(color.FgCyan)
	if noColor {
		cyan.DisableColor()
	}
	for _, p := range pairs {
		cyan.Fprint(w, padRight(p[0]+":", keyWidth+1))
		fmt.Fprintf(w, " %s\n", p[1])
	}
}
