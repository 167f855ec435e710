package ui

import (
	"fmt"
	"strings"

	"github.com/mgutz/ansi"

	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

var chSame = ansi.ColorCode("default:default")
var chNew = ansi.ColorCode("default+bu:default")

func colorPad(s, color string, pad int) string {
	length := len(s)
	s = color + s + ansi.Reset
	if length < pad {
		s = strings.Repeat(" ", pad-length) + s
	}
	return s
}

type ChangeMask struct {
	Old, New string
	Changed  bool
}

// Change is one register between two views of a trap context.
type Change struct {
	Old, New uint64
	Enum     int
	Name     string
}

func (c *Change) Changed() bool {
	return c.Old != c.New
}

// Mask splits the hex rendering of the register into runs of changed and
// unchanged digits.
func (c *Change) Mask() []ChangeMask {
	s1, s2 := fmt.Sprintf("%016x", c.New), fmt.Sprintf("%016x", c.Old)
	pos := 0
	matching := true
	var masks []ChangeMask
	for i := range s1 {
		if (s1[i] == s2[i]) != matching {
			if i > pos {
				masks = append(masks, ChangeMask{New: s1[pos:i], Old: s2[pos:i], Changed: !matching})
				pos = i
			}
			matching = !matching
		}
	}
	if pos < len(s1) {
		masks = append(masks, ChangeMask{New: s1[pos:], Old: s2[pos:], Changed: !matching})
	}
	return masks
}

func (c *Change) String(color bool) string {
	lineStart := fmt.Sprintf(" %4s 0x", c.Name)
	if !c.Changed() {
		return fmt.Sprintf("%s%016x", lineStart, c.New)
	}
	if !color {
		return fmt.Sprintf("+%s%016x", lineStart, c.New)
	}
	out := []string{fmt.Sprintf(" %s 0x", colorPad(c.Name, chNew, 4))}
	for _, mask := range c.Mask() {
		col := chSame
		if mask.Changed {
			col = chNew
		}
		out = append(out, col+mask.New)
	}
	out = append(out, ansi.Reset)
	return strings.Join(out, "")
}

type Changes []*Change

// String lays the registers out column-major, four to a row.
func (cs Changes) String(color bool) string {
	const cols = 4
	var out []string
	rows := (len(cs) + cols - 1) / cols
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			idx := j*rows + i
			if idx >= len(cs) {
				break
			}
			out = append(out, cs[idx].String(color), " ")
		}
		out = append(out, "\n")
	}
	return strings.Join(out, "")
}

func (cs Changes) Count() int {
	n := 0
	for _, c := range cs {
		if c.Changed() {
			n++
		}
	}
	return n
}

// RegDiff remembers the last registers shown for each task, so the next
// view can highlight what changed.
type RegDiff struct {
	old map[int]cpu.TrapContext
}

func NewRegDiff() *RegDiff {
	return &RegDiff{old: make(map[int]cpu.TrapContext)}
}

// Changes compares cx to the last context seen for pid. The program
// counter is listed first.
func (r *RegDiff) Changes(pid int, cx *cpu.TrapContext) Changes {
	old, seen := r.old[pid]
	if !seen {
		old = *cx
	}
	cs := Changes{{Name: "pc", Enum: -1, Old: old.Sepc, New: cx.Sepc}}
	for enum := 1; enum < cpu.NumRegs; enum++ {
		cs = append(cs, &Change{Name: cpu.RegNames[enum], Enum: enum, Old: old.X[enum], New: cx.X[enum]})
	}
	r.old[pid] = *cx
	return cs
}

// Forget drops the saved context of a reaped task.
func (r *RegDiff) Forget(pid int) {
	delete(r.old, pid)
}
