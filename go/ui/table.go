package ui

import (
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/mgutz/ansi"

	"github.com/lunixbochs/taskcorn/go/kernel/task"
)

var statusColor = map[task.Status]string{
	task.Ready:   ansi.ColorCode("yellow"),
	task.Running: ansi.ColorCode("green+b"),
	task.Zombie:  ansi.ColorCode("red"),
}

// table renders rows as left-aligned columns. Widths are measured in
// terminal cells, ignoring color escapes added by paint.
type table struct {
	header []string
	rows   [][]string
	paint  map[[2]int]string
}

func (t *table) add(row ...string) {
	t.rows = append(t.rows, row)
}

func (t *table) color(col int, code string) {
	if t.paint == nil {
		t.paint = make(map[[2]int]string)
	}
	t.paint[[2]int{len(t.rows) - 1, col}] = code
}

func (t *table) String() string {
	widths := make([]int, len(t.header))
	all := append([][]string{t.header}, t.rows...)
	for _, row := range all {
		for i, cell := range row {
			if i < len(widths) {
				if w := runewidth.StringWidth(cell); w > widths[i] {
					widths[i] = w
				}
			}
		}
	}
	var out []string
	for r, row := range all {
		var cells []string
		for i, cell := range row {
			if i >= len(widths) {
				break
			}
			pad := cell
			if i < len(row)-1 {
				pad = runewidth.FillRight(cell, widths[i])
			}
			if code, ok := t.paint[[2]int{r - 1, i}]; ok && r > 0 {
				pad = code + pad + ansi.Reset
			}
			cells = append(cells, pad)
		}
		out = append(out, strings.TrimRight(strings.Join(cells, "  "), " "))
	}
	return strings.Join(out, "\n") + "\n"
}
