package task

import (
	"context"
	"io"
	"os"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/cpu/uvm"
	"github.com/lunixbochs/taskcorn/go/kernel/fs"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/mm"
	"github.com/lunixbochs/taskcorn/go/models"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

var log = logging.MustGetLogger("task")

// exit codes of tasks the kernel kills
const (
	KilledBadSyscall  = -1
	KilledPageFault   = -2
	KilledIllegalInsn = -3
)

// Dispatcher serves a syscall trap for t and returns the value for a0.
type Dispatcher interface {
	Syscall(t *TaskControlBlock, num uint64, args []uint64) uint64
}

// Processor owns the single hart: the running slot, the ready pool, the
// process table and the allocators every lifecycle operation needs.
type Processor struct {
	Config  *models.Config
	Frames  *mm.FrameAllocator
	Loader  loader.Loader
	Manager *Manager
	Procs   *ProcTable
	Pids    *PidAllocator
	Clock   Clock
	Cpu     cpu.Cpu

	Dispatcher Dispatcher
	// OnTrap, if set, sees every trap before it is handled.
	OnTrap func(t *TaskControlBlock, trap cpu.Trap)
	OnExit func(t *TaskControlBlock, code int)

	Stdin  io.Reader
	Stdout io.Writer

	current  *TaskControlBlock
	initPid  int
	initCode int
	initDone bool
}

func NewProcessor(config *models.Config, l loader.Loader) *Processor {
	config.Defaults()
	return &Processor{
		Config:  config,
		Frames:  mm.NewFrameAllocator(0x80000, config.Frames),
		Loader:  l,
		Manager: NewManager(),
		Procs:   NewProcTable(),
		Pids:    NewPidAllocator(),
		Clock:   NewSystemClock(),
		Cpu:     &uvm.Uvm{},
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
	}
}

func (p *Processor) Current() *TaskControlBlock {
	return p.current
}

// InitExit reports the exit code of the boot task once it has exited.
func (p *Processor) InitExit() (int, bool) {
	return p.initCode, p.initDone
}

func (p *Processor) stdFiles() []fs.File {
	stdout := &fs.Stdout{W: p.Stdout}
	return []fs.File{&fs.Stdin{R: p.Stdin}, stdout, stdout}
}

// Boot creates the initial, parentless task from the named image.
func (p *Processor) Boot(name string) (*TaskControlBlock, error) {
	img, ok := p.Loader.Load(name)
	if !ok {
		return nil, errors.Errorf("init program %q not found", name)
	}
	t, err := p.newTask(img, NoPid)
	if err != nil {
		return nil, errors.Wrap(err, "boot")
	}
	p.initPid = t.Pid
	p.Procs.Insert(t)
	p.Manager.Add(t)
	log.Infof("booted %s as pid %d", name, t.Pid)
	return t, nil
}

func (p *Processor) newTask(img *loader.Image, parent int) (*TaskControlBlock, error) {
	memory, sp, entry, err := mm.FromImage(p.Frames, img)
	if err != nil {
		return nil, err
	}
	pid, err := p.Pids.Alloc()
	if err != nil {
		memory.RecycleDataPages()
		return nil, err
	}
	t := newTask(pid, memory, cpu.AppInitContext(entry, sp), sp)
	t.inner.parent = parent
	t.inner.fdTable = p.stdFiles()
	return t, nil
}

// schedule fills the running slot from the ready pool.
func (p *Processor) schedule() bool {
	t := p.Manager.Fetch()
	if t == nil {
		return false
	}
	t.mu.Lock()
	t.inner.status = Running
	t.inner.resident = residentRunning
	t.hold()
	if !t.inner.started {
		t.inner.started = true
		t.inner.startTime = p.Clock.Now()
	}
	t.mu.Unlock()
	p.current = t
	return true
}

// vacate empties the running slot and returns its task.
func (p *Processor) vacate() *TaskControlBlock {
	t := p.current
	if t == nil {
		models.Panic("task", "no current task")
	}
	p.current = nil
	t.mu.Lock()
	t.inner.resident = residentNone
	t.release()
	t.mu.Unlock()
	return t
}

// SuspendCurrentAndRunNext puts the running task back in the ready pool.
func (p *Processor) SuspendCurrentAndRunNext() {
	t := p.vacate()
	p.Manager.Add(t)
	p.schedule()
}

// ExitCurrentAndRunNext turns the running task into a Zombie. It is never
// queued again.
func (p *Processor) ExitCurrentAndRunNext(code int) {
	t := p.vacate()
	p.exit(t, code)
	p.schedule()
}

// Step runs the current task, or the next ready one, for one time slice and
// handles the trap that ends it. It returns false once nothing is runnable.
func (p *Processor) Step() bool {
	if p.current == nil && !p.schedule() {
		return false
	}
	t := p.current
	t.mu.Lock()
	cx, memory := t.inner.trapCx, t.inner.memory
	t.mu.Unlock()

	trap := p.Cpu.Run(cx, memory, p.Config.TimeSlice)
	if p.OnTrap != nil {
		p.OnTrap(t, trap)
	}
	switch trap.Cause {
	case cpu.TrapSyscall:
		p.syscall(t)
	case cpu.TrapTimer:
		p.SuspendCurrentAndRunNext()
	case cpu.TrapPageFault:
		log.Warningf("%s: %v, killed", t, trap)
		p.ExitCurrentAndRunNext(KilledPageFault)
	case cpu.TrapIllegalInstruction:
		log.Warningf("%s: %v, killed", t, trap)
		p.ExitCurrentAndRunNext(KilledIllegalInsn)
	case cpu.TrapBreakpoint:
		log.Debugf("%s: %v", t, trap)
	default:
		models.Panic("task", "unexpected trap %v", trap)
	}
	return true
}

func (p *Processor) syscall(t *TaskControlBlock) {
	t.mu.Lock()
	cx := t.inner.trapCx
	cx.Sepc += uvm.InsSize
	num, args := cx.SyscallArgs()
	t.mu.Unlock()

	t.CountSyscall(num)
	var ret uint64
	if p.Dispatcher != nil {
		ret = p.Dispatcher.Syscall(t, num, args)
	} else {
		log.Warningf("%s: syscall %d with no dispatcher", t, num)
		ret = ^uint64(0)
	}

	// exec may have replaced the context, which still receives the result
	t.mu.Lock()
	if t.inner.status != Zombie {
		t.inner.trapCx.SetReturn(ret)
	}
	t.mu.Unlock()
}

// Run steps until no task is runnable or ctx is done.
func (p *Processor) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if !p.Step() {
			return nil
		}
	}
}

// KillCurrent ends the running task with code, as the kernel does for a bad
// syscall.
func (p *Processor) KillCurrent(code int) {
	if t := p.current; t != nil {
		log.Warningf("%s killed with code %d", t, code)
		p.ExitCurrentAndRunNext(code)
	}
}
