// Package ui is the interactive console for inspecting and single-stepping
// the kernel.
package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/taskcorn/go/cpu/uvm"
	"github.com/lunixbochs/taskcorn/go/kernel/task"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/models"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

type command struct {
	args string
	help string
	fn   func(c *Console, args []string) error
}

var commands map[string]*command

func init() {
	commands = map[string]*command{
		"help":   {"", "list commands", (*Console).help},
		"apps":   {"", "list loadable programs", (*Console).apps},
		"boot":   {"<app>", "start the init task", (*Console).boot},
		"step":   {"[n]", "run n time slices", (*Console).step},
		"run":    {"", "run until no task is runnable", (*Console).run},
		"ps":     {"", "list tasks", (*Console).ps},
		"maps":   {"<pid>", "show a task's memory areas", (*Console).maps},
		"regs":   {"<pid>", "show a task's saved registers", (*Console).regs},
		"x":      {"<pid> <addr> [len]", "hexdump task memory", (*Console).examine},
		"frames": {"", "show physical frame usage", (*Console).frames},
		"dis":    {"<pid> [addr] [count]", "disassemble task code, from pc by default", (*Console).dis},
	}
}

var errQuit = errors.New("quit")

// Console drives a Processor one command at a time.
type Console struct {
	P     *task.Processor
	Apps  *loader.Registry
	Out   io.Writer
	Color bool
	Dis   cpu.Disassembler
	diff  *RegDiff
	rl    *readline.Instance
}

func NewConsole(p *task.Processor, apps *loader.Registry, out io.Writer) *Console {
	return &Console{P: p, Apps: apps, Out: out, Dis: &uvm.Dis{}, diff: NewRegDiff()}
}

// StdoutConsole writes to the terminal, with color when stdout is one.
func StdoutConsole(p *task.Processor, apps *loader.Registry, color bool) *Console {
	c := NewConsole(p, apps, colorable.NewColorableStdout())
	c.Color = color && isatty.IsTerminal(os.Stdout.Fd())
	return c
}

func (c *Console) Printf(f string, args ...interface{}) { fmt.Fprintf(c.Out, f, args...) }
func (c *Console) Println(args ...interface{})          { fmt.Fprintln(c.Out, args...) }

// Exec runs one command line. It returns errQuit for quit.
func (c *Console) Exec(line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name := fields[0]
	if name == "quit" || name == "exit" || name == "q" {
		return errQuit
	}
	cmd, ok := commands[name]
	if !ok {
		return errors.Errorf("unknown command %q (try help)", name)
	}
	return cmd.fn(c, fields[1:])
}

// Run reads commands until EOF or quit. History persists in the user's
// cache directory.
func (c *Console) Run() error {
	configDirs := configdir.New("taskcorn", "console")
	cacheDir := configDirs.QueryCacheFolder()
	historyPath := ""
	if err := cacheDir.MkdirAll(); err == nil {
		historyPath = filepath.Join(cacheDir.Path, "history")
	}
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "taskcorn> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
		HistoryFile:     historyPath,
		AutoComplete:    completer(),
	})
	if err != nil {
		return errors.Wrap(err, "readline")
	}
	c.rl = rl
	defer rl.Close()
	if c.Out == nil {
		c.Out = rl.Stdout()
	}
	// task output goes through readline so the prompt is redrawn
	c.P.Stdout = rl.Stdout()

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			return nil
		} else if err != nil {
			return err
		}
		if err := c.Exec(line); err == errQuit {
			return nil
		} else if err != nil {
			c.Println("error:", err)
		}
		c.setPrompt()
	}
}

func (c *Console) setPrompt() {
	if cur := c.P.Current(); cur != nil {
		c.rl.SetPrompt(fmt.Sprintf("[%d %#x]> ", cur.Pid, cur.TrapContext().Sepc))
	} else {
		c.rl.SetPrompt("taskcorn> ")
	}
}

func completer() *readline.PrefixCompleter {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, name := range names {
		items[i] = readline.PcItem(name)
	}
	return readline.NewPrefixCompleter(items...)
}

func (c *Console) help(args []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	t := &table{header: []string{"command", "args", ""}}
	for _, name := range names {
		cmd := commands[name]
		t.add(name, cmd.args, cmd.help)
	}
	t.add("quit", "", "leave the console")
	c.Printf("%s", t)
	return nil
}

func (c *Console) apps(args []string) error {
	for _, name := range c.Apps.Names() {
		c.Println(name)
	}
	return nil
}

func (c *Console) boot(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: boot <app>")
	}
	if c.P.Procs.Len() > 0 {
		return errors.New("already booted")
	}
	t, err := c.P.Boot(args[0])
	if err != nil {
		return err
	}
	c.Printf("booted %s as pid %d\n", args[0], t.Pid)
	return nil
}

func (c *Console) step(args []string) error {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			return errors.Errorf("bad count %q", args[0])
		}
		n = v
	}
	for i := 0; i < n; i++ {
		if !c.P.Step() {
			c.Println("idle")
			break
		}
	}
	c.reportInit()
	return nil
}

func (c *Console) run(args []string) error {
	if err := c.P.Run(context.Background()); err != nil {
		return err
	}
	c.reportInit()
	return nil
}

func (c *Console) reportInit() {
	if code, ok := c.P.InitExit(); ok && c.P.Procs.Len() == 0 {
		c.Printf("init exited with status %d\n", code)
	}
}

func (c *Console) ps(args []string) error {
	t := &table{header: []string{"PID", "PPID", "STATUS", "PRIO", "STRIDE", "CHILD", "PAGES", "SYSCALLS"}}
	for _, st := range c.P.Stats() {
		status := st.Status.String()
		if st.Status == task.Zombie {
			status = fmt.Sprintf("%s(%d)", status, st.ExitCode)
		}
		t.add(
			strconv.Itoa(st.Pid), strconv.Itoa(st.Parent), status,
			strconv.FormatUint(st.Priority, 10), fmt.Sprintf("%#x", st.Stride),
			strconv.Itoa(st.Children), strconv.Itoa(st.Pages), strconv.FormatUint(uint64(st.Syscalls), 10),
		)
		if c.Color {
			t.color(2, statusColor[st.Status])
		}
	}
	c.Printf("%s", t)
	return nil
}

func (c *Console) task(arg string) (*task.TaskControlBlock, error) {
	pid, err := strconv.Atoi(arg)
	if err != nil {
		return nil, errors.Errorf("bad pid %q", arg)
	}
	t, ok := c.P.Procs.Get(pid)
	if !ok {
		c.diff.Forget(pid)
		return nil, errors.Errorf("no task %d", pid)
	}
	return t, nil
}

func (c *Console) maps(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: maps <pid>")
	}
	t, err := c.task(args[0])
	if err != nil {
		return err
	}
	for _, area := range t.Areas() {
		c.Printf("  %s\n", area)
	}
	return nil
}

func (c *Console) regs(args []string) error {
	if len(args) != 1 {
		return errors.New("usage: regs <pid>")
	}
	t, err := c.task(args[0])
	if err != nil {
		return err
	}
	c.Printf("%s", c.diff.Changes(t.Pid, t.TrapContext()).String(c.Color))
	return nil
}

func (c *Console) examine(args []string) error {
	if len(args) < 2 {
		return errors.New("usage: x <pid> <addr> [len]")
	}
	t, err := c.task(args[0])
	if err != nil {
		return err
	}
	addr, err := strconv.ParseUint(args[1], 0, 64)
	if err != nil {
		return errors.Errorf("bad address %q", args[1])
	}
	size := uint64(64)
	if len(args) > 2 {
		if size, err = strconv.ParseUint(args[2], 0, 64); err != nil {
			return errors.Errorf("bad length %q", args[2])
		}
	}
	mem, err := t.CopyIn(addr, size)
	if err != nil {
		return err
	}
	for _, line := range models.HexDump(addr, mem) {
		c.Println(line)
	}
	return nil
}

func (c *Console) frames(args []string) error {
	c.Printf("%d in use, %d free\n", c.P.Frames.InUse(), c.P.Frames.Free())
	return nil
}

func (c *Console) dis(args []string) error {
	if len(args) < 1 {
		return errors.New("usage: dis <pid> [addr] [count]")
	}
	t, err := c.task(args[0])
	if err != nil {
		return err
	}
	addr := t.TrapContext().Sepc
	if len(args) > 1 {
		if addr, err = strconv.ParseUint(args[1], 0, 64); err != nil {
			return errors.Errorf("bad address %q", args[1])
		}
	}
	count := uint64(8)
	if len(args) > 2 {
		if count, err = strconv.ParseUint(args[2], 0, 64); err != nil {
			return errors.Errorf("bad count %q", args[2])
		}
	}
	mem, err := t.CopyIn(addr, count*uvm.InsSize)
	if err != nil {
		return err
	}
	insns, err := c.Dis.Dis(mem, addr)
	if err != nil {
		return err
	}
	for _, ins := range insns {
		c.Printf("%#x: %-6s %s\n", ins.Addr(), ins.Mnemonic(), ins.OpStr())
	}
	return nil
}
