package task

import (
	"bytes"
	"testing"
	"time"

	"github.com/lunixbochs/taskcorn/go/cpu/uvm"
	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/mm"
	"github.com/lunixbochs/taskcorn/go/models"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

type fakeClock struct{ now time.Duration }

func (c *fakeClock) Now() time.Duration { return c.now }

func spinImage(t *testing.T, name string) *loader.Image {
	a := uvm.NewAsm(0x10000)
	a.Label("top")
	a.Syscall(sysno.SYS_YIELD)
	a.Jmp("top")
	img, err := a.Image(name)
	if err != nil {
		t.Fatal(err)
	}
	return img
}

func testProcessor(t *testing.T) (*Processor, *TaskControlBlock) {
	t.Helper()
	reg := loader.NewRegistry()
	reg.Add(spinImage(t, "init"))
	reg.Add(spinImage(t, "app"))
	p := NewProcessor(&models.Config{Frames: 256}, reg)
	p.Clock = &fakeClock{}
	p.Stdout = &bytes.Buffer{}
	boot, err := p.Boot("init")
	if err != nil {
		t.Fatal(err)
	}
	if !p.schedule() || p.Current() != boot {
		t.Fatal("init not scheduled")
	}
	return p, boot
}

func refs(task *TaskControlBlock) int {
	task.mu.Lock()
	defer task.mu.Unlock()
	return task.inner.refs
}

// runUntil switches tasks until want is running.
func runUntil(t *testing.T, p *Processor, want *TaskControlBlock) {
	t.Helper()
	for i := 0; p.Current() != want; i++ {
		if i > 10 {
			t.Fatalf("%s never scheduled", want)
		}
		p.SuspendCurrentAndRunNext()
	}
}

func TestForkWait(t *testing.T) {
	p, boot := testProcessor(t)
	boot.TrapContext().X[cpu.S1] = 99
	child, err := p.Fork(boot)
	if err != nil {
		t.Fatal(err)
	}
	if cx := child.TrapContext(); cx.X[cpu.A0] != 0 || cx.X[cpu.S1] != 99 {
		t.Fatal("child context is not a copy returning 0")
	}
	if child.Parent() != boot.Pid || len(boot.Children()) != 1 {
		t.Fatal("child not linked to parent")
	}
	if m := p.Manager.Count(child.Pid); m != 1 {
		t.Fatalf("child queued %d times", m)
	}
	if pid, _ := p.Waitpid(boot, child.Pid); pid != -2 {
		t.Fatalf("waitpid on live child = %d", pid)
	}

	runUntil(t, p, child)
	p.ExitCurrentAndRunNext(5)
	if child.Status() != Zombie || p.Manager.Contains(child.Pid) {
		t.Fatal("exited child is schedulable")
	}
	if refs(child) != 1 {
		t.Fatalf("zombie has %d holders", refs(child))
	}
	pid, code := p.Waitpid(boot, child.Pid)
	if pid != child.Pid || code != 5 {
		t.Fatalf("waitpid = %d, %d", pid, code)
	}
	if _, ok := p.Procs.Get(child.Pid); ok || len(boot.Children()) != 0 {
		t.Fatal("reaped child still registered")
	}
	if pid, _ := p.Waitpid(boot, child.Pid); pid != -1 {
		t.Fatalf("second waitpid = %d", pid)
	}
	if next, _ := p.Pids.Alloc(); next != child.Pid {
		t.Fatal("reaped pid not recycled")
	}
}

func TestWaitAny(t *testing.T) {
	p, boot := testProcessor(t)
	a, _ := p.Spawn(boot, "app")
	b, _ := p.Spawn(boot, "app")
	if pid, _ := p.Waitpid(boot, -1); pid != -2 {
		t.Fatalf("waitpid(-1) with live children = %d", pid)
	}
	if pid, _ := p.Waitpid(boot, 1234); pid != -1 {
		t.Fatalf("waitpid(1234) = %d", pid)
	}
	runUntil(t, p, b)
	p.ExitCurrentAndRunNext(2)
	runUntil(t, p, a)
	p.ExitCurrentAndRunNext(1)
	// first zombie in children order, regardless of exit order
	if pid, code := p.Waitpid(boot, -1); pid != a.Pid || code != 1 {
		t.Fatalf("waitpid(-1) = %d, %d", pid, code)
	}
	if pid, code := p.Waitpid(boot, -1); pid != b.Pid || code != 2 {
		t.Fatalf("waitpid(-1) = %d, %d", pid, code)
	}
	if pid, _ := p.Waitpid(boot, -1); pid != -1 {
		t.Fatalf("waitpid(-1) with no children = %d", pid)
	}
}

func TestSpawn(t *testing.T) {
	p, boot := testProcessor(t)
	if _, err := p.Spawn(boot, "missing"); err == nil {
		t.Fatal("spawned unknown program")
	}
	child, err := p.Spawn(boot, "app")
	if err != nil {
		t.Fatal(err)
	}
	if p.Manager.Count(child.Pid) != 1 {
		t.Fatal("spawned task not queued exactly once")
	}
	if child.Priority() != DefaultPriority || child.Parent() != boot.Pid {
		t.Fatal("bad spawned task fields")
	}
	if _, ok := child.Fd(1); !ok {
		t.Fatal("spawned task has no stdout")
	}
}

func TestExec(t *testing.T) {
	p, boot := testProcessor(t)
	fd := boot.AllocFd(boot.inner.fdTable[1])
	boot.Mmap(0x10000000, 0x1000, 3)
	if err := p.Exec(boot, "missing"); err == nil {
		t.Fatal("exec of unknown program succeeded")
	}
	if err := p.Exec(boot, "app"); err != nil {
		t.Fatal(err)
	}
	if _, ok := boot.Fd(fd); !ok {
		t.Fatal("exec dropped the fd table")
	}
	if boot.Munmap(0x10000000, 0x1000) != -1 {
		t.Fatal("exec kept the old address space")
	}
	if boot.TrapContext().Sepc != 0x10000 {
		t.Fatal("exec did not reset the context")
	}
}

func TestOrphans(t *testing.T) {
	p, boot := testProcessor(t)
	child, _ := p.Spawn(boot, "app")
	runUntil(t, p, child)
	grandchild, _ := p.Fork(child)
	p.ExitCurrentAndRunNext(0)
	p.Waitpid(boot, child.Pid)
	if grandchild.Parent() != NoPid {
		t.Fatal("orphan still points at its reaped parent")
	}
	runUntil(t, p, grandchild)
	p.ExitCurrentAndRunNext(0)
	if _, ok := p.Procs.Get(grandchild.Pid); ok {
		t.Fatal("parentless task was not reaped at exit")
	}
}

func TestSetPriority(t *testing.T) {
	p, boot := testProcessor(t)
	if p.SetPriority(boot, 1) != -1 || boot.Priority() != DefaultPriority {
		t.Fatal("priority 1 accepted")
	}
	if p.SetPriority(boot, 2) != 2 || boot.Priority() != 2 {
		t.Fatal("priority 2 rejected")
	}
}

func TestMmapMunmap(t *testing.T) {
	_, boot := testProcessor(t)
	const base = 0x10000000
	if boot.Mmap(base+1, 0x1000, 3) != -1 {
		t.Fatal("unaligned mmap succeeded")
	}
	if boot.Mmap(base, 0x1000, 0) != -1 || boot.Mmap(base, 0x1000, 8|1) != -1 {
		t.Fatal("bad port accepted")
	}
	if boot.Mmap(base, 0x3000, 3) != 0 {
		t.Fatal("mmap failed")
	}
	if boot.Mmap(base+0x2000, 0x2000, 1) != -1 {
		t.Fatal("overlapping mmap succeeded")
	}
	// a range past the mapping fails and unmaps nothing
	if boot.Munmap(base+0x1000, 0x3000) != -1 {
		t.Fatal("munmap over a hole succeeded")
	}
	if n := boot.CopyOut(base, make([]byte, 0x3000)); n != 0x3000 {
		t.Fatalf("pages lost after failed munmap: %d", n)
	}
	if boot.Munmap(base, 0x3000) != 0 {
		t.Fatal("munmap failed")
	}
	if boot.Munmap(base, 0x3000) != -1 {
		t.Fatal("second munmap succeeded")
	}
	if boot.Mmap(base, 0, 3) != 0 {
		t.Fatal("empty mmap failed")
	}
	if boot.Mmap(uint64(mm.MaxVirtAddr)-0x1000, 0x2000, 3) != -1 {
		t.Fatal("mmap past the address space succeeded")
	}
}

func TestSbrk(t *testing.T) {
	_, boot := testProcessor(t)
	brk := boot.ChangeProgramBrk(0)
	if brk <= 0 {
		t.Fatalf("brk = %d", brk)
	}
	if boot.ChangeProgramBrk(-1) != -1 {
		t.Fatal("heap shrank below its bottom")
	}
	if boot.ChangeProgramBrk(0x2000) != brk {
		t.Fatal("grow did not return the old break")
	}
	if n := boot.CopyOut(uint64(brk), make([]byte, 0x2000)); n != 0x2000 {
		t.Fatal("heap not mapped after grow")
	}
	if boot.ChangeProgramBrk(-0x1000) != brk+0x2000 {
		t.Fatal("shrink did not return the old break")
	}
	if n := boot.CopyOut(uint64(brk)+0x1000, make([]byte, 8)); n != 0 {
		t.Fatal("heap page still mapped after shrink")
	}
	if boot.ChangeProgramBrk(1<<40) != -1 {
		t.Fatal("impossible growth succeeded")
	}
}

func TestTaskInfo(t *testing.T) {
	p, boot := testProcessor(t)
	clock := p.Clock.(*fakeClock)
	clock.now = 1500 * time.Millisecond
	boot.CountSyscall(sysno.SYS_GETPID)
	boot.CountSyscall(sysno.SYS_GETPID)
	boot.CountSyscall(100000)
	info := p.TaskInfo(boot)
	if info.Status != Running || info.SyscallTimes[sysno.SYS_GETPID] != 2 || info.Time != 1500 {
		t.Fatalf("bad info: status=%v time=%d", info.Status, info.Time)
	}
}

func TestRunYielding(t *testing.T) {
	p, _ := testProcessor(t)
	p.Config.TimeSlice = 10
	var traps []cpu.Trap
	p.OnTrap = func(task *TaskControlBlock, trap cpu.Trap) { traps = append(traps, trap) }
	for i := 0; i < 3; i++ {
		if !p.Step() {
			t.Fatal("nothing to run")
		}
	}
	if len(traps) != 3 || traps[0].Cause != cpu.TrapSyscall {
		t.Fatalf("traps = %v", traps)
	}
}
