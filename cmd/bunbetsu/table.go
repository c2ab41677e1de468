package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// maxCell bounds a column's display width.
const maxCell = 40

// printTable writes rows in aligned columns. Widths are display cells, so
// full-width Japanese names line up with ASCII ones.
func printTable(w io.Writer, header []string, rows [][]string) {
	widths := make([]int, len(header))
	cells := make([][]string, 0, len(rows)+1)
	for _, r := range append([][]string{header}, rows...) {
		line := make([]string, len(header))
		for i := range header {
			if i < len(r) {
				line[i] = runewidth.Truncate(r[i], maxCell, "…")
			}
			widths[i] = max(widths[i], runewidth.StringWidth(line[i]))
		}
		cells = append(cells, line)
	}
	for _, line := range cells {
		var sb strings.Builder
		for i, c := range line {
			if i > 0 {
				sb.WriteString("  ")
			}
			sb.WriteString(runewidth.FillRight(c, widths[i]))
		}
		fmt.Fprintln(w, strings.TrimRight(sb.String(), " "))
	}
}
