package htmd

import (
	"strings"

	"github.com/muesli/reflow/ansi"
)

const minColumnWidth = 3

// tableState buffers the cells of one table until it closes. The first row
// becomes the header row.
type tableState struct {
	rows [][]string
}

func (t *tableState) addCell(cell string) {
	if len(t.rows) == 0 {
		t.rows = append(t.rows, nil)
	}
	cell = strings.TrimSpace(strings.ReplaceAll(cell, "\n", " "))
	last := len(t.rows) - 1
	t.rows[last] = append(t.rows[last], cell)
}

// renderTable lays rows out as a GFM pipe table with padded columns. Rows
// without cells are dropped; short rows are padded with empty cells.
func renderTable(rows [][]string) []string {
	var (
		kept  = rows[:0:0]
		cols  int
		empty = true
	)
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		kept = append(kept, row)
		cols = max(cols, len(row))
		for _, cell := range row {
			if cell != "" {
				empty = false
			}
		}
	}
	if cols == 0 || empty {
		return nil
	}
	widths := make([]int, cols)
	for i := range widths {
		widths[i] = minColumnWidth
	}
	for _, row := range kept {
		for i, cell := range row {
			widths[i] = max(widths[i], ansi.PrintableRuneWidth(cell))
		}
	}
	lines := make([]string, 0, len(kept)+1)
	var b strings.Builder
	for r, row := range kept {
		b.Reset()
		b.WriteByte('|')
		for i := 0; i < cols; i++ {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			b.WriteByte(' ')
			b.WriteString(cell)
			b.WriteString(strings.Repeat(" ", widths[i]-ansi.PrintableRuneWidth(cell)))
			b.WriteString(" |")
		}
		lines = append(lines, b.String())
		if r == 0 {
			b.Reset()
			b.WriteByte('|')
			for i := 0; i < cols; i++ {
				b.WriteByte(' ')
				b.WriteString(strings.Repeat("-", widths[i]))
				b.WriteString(" |")
			}
			lines = append(lines, b.String())
		}
	}
	return lines
}
