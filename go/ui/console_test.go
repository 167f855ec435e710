package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lunixbochs/taskcorn/go/kernel/proc"
	"github.com/lunixbochs/taskcorn/go/kernel/task"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/loader/builtin"
	"github.com/lunixbochs/taskcorn/go/models"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

func newConsole(t *testing.T) (*Console, *bytes.Buffer) {
	reg := loader.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		t.Fatal(err)
	}
	p := task.NewProcessor(&models.Config{Frames: 512}, reg)
	p.Stdout = &bytes.Buffer{}
	proc.NewKernel(p)
	var out bytes.Buffer
	return NewConsole(p, reg, &out), &out
}

func exec(t *testing.T, c *Console, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	if err := c.Exec(line); err != nil {
		t.Fatalf("%s: %v", line, err)
	}
	return out.String()
}

func TestConsoleSession(t *testing.T) {
	c, out := newConsole(t)
	if s := exec(t, c, out, "apps"); !strings.Contains(s, "forktest\n") || !strings.Contains(s, "initproc\n") {
		t.Fatalf("apps:\n%s", s)
	}
	if s := exec(t, c, out, "boot forktest"); s != "booted forktest as pid 1\n" {
		t.Fatalf("boot: %q", s)
	}
	if err := c.Exec("boot hello"); err == nil {
		t.Fatal("booted twice")
	}
	exec(t, c, out, "step")
	s := exec(t, c, out, "ps")
	lines := strings.Split(strings.TrimSpace(s), "\n")
	// fork ran, so parent and child are listed
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "PID") || !strings.HasPrefix(lines[1], "1 ") {
		t.Fatalf("ps:\n%s", s)
	}
	if s := exec(t, c, out, "maps 1"); !strings.Contains(s, "r-x") {
		t.Fatalf("maps:\n%s", s)
	}
	if s := exec(t, c, out, "x 1 0x10000 16"); !strings.HasPrefix(s, "0x000000010000: ") {
		t.Fatalf("x:\n%s", s)
	}
	if s := exec(t, c, out, "dis 1 0x10000 1"); !strings.HasPrefix(s, "0x10000: li") {
		t.Fatalf("dis: %q", s)
	}
	if s := exec(t, c, out, "run"); s != "init exited with status 0\n" {
		t.Fatalf("run: %q", s)
	}
	if s := exec(t, c, out, "frames"); !strings.HasPrefix(s, "0 in use") {
		t.Fatalf("frames: %q", s)
	}
	if err := c.Exec("maps 1"); err == nil {
		t.Fatal("reaped task still listed")
	}
}

func TestConsoleErrors(t *testing.T) {
	c, _ := newConsole(t)
	for _, line := range []string{"bogus", "boot", "step zero", "maps x", "x 1", "regs 9"} {
		if err := c.Exec(line); err == nil || err == errQuit {
			t.Errorf("%q: expected an error, got %v", line, err)
		}
	}
	if err := c.Exec("quit"); err != errQuit {
		t.Fatal("quit not recognized")
	}
	if err := c.Exec("   "); err != nil {
		t.Fatal(err)
	}
}

func TestRegDiff(t *testing.T) {
	d := NewRegDiff()
	cx := cpu.AppInitContext(0x10000, 0x16000)
	cs := d.Changes(1, cx)
	if cs.Count() != 0 {
		t.Fatal("first view shows changes")
	}
	cx.Sepc += 12
	cx.X[cpu.A0] = 0x42
	cs = d.Changes(1, cx)
	if cs.Count() != 2 {
		t.Fatalf("expected 2 changes, got %d", cs.Count())
	}
	s := cs.String(false)
	if !strings.Contains(s, "+   a0 0x0000000000000042") {
		t.Fatalf("change not marked:\n%s", s)
	}
	if c := cs[0]; c.Name != "pc" || !c.Changed() {
		t.Fatal("pc not first")
	}
}

func TestChangeMask(t *testing.T) {
	c := &Change{Old: 0x1200, New: 0x1234}
	masks := c.Mask()
	if len(masks) != 2 || masks[0].Changed || !masks[1].Changed || masks[1].New != "34" {
		t.Fatalf("bad masks %+v", masks)
	}
}

func TestTable(t *testing.T) {
	tb := &table{header: []string{"A", "NAME", "X"}}
	tb.add("1", "日本", "y")
	tb.add("22", "b", "z")
	want := "A   NAME  X\n1   日本  y\n22  b     z\n"
	if s := tb.String(); s != want {
		t.Fatalf("got\n%q\nwant\n%q", s, want)
	}
}
