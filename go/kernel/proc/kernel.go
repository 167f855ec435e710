// Package proc is the syscall layer of the kernel: it decodes the trap
// registers into typed arguments and serves each call against the task
// that made it.
package proc

import (
	"fmt"
	"io"

	"github.com/op/go-logging"

	"github.com/lunixbochs/taskcorn/go/kernel/common"
	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/kernel/task"
	"github.com/lunixbochs/taskcorn/go/kernel/trace"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

var log = logging.MustGetLogger("proc")

// Kernel serves syscalls for the tasks of one Processor.
type Kernel struct {
	common.KernelBase
	P *task.Processor

	// Strace receives one line per syscall when set.
	Strace io.Writer
	// Trace records every syscall, fault and exit when set.
	Trace *trace.Writer

	cur *task.TaskControlBlock
}

func NewKernel(p *task.Processor) *Kernel {
	k := &Kernel{P: p}
	k.Config = p.Config
	k.Mem = func() common.UserMemory { return k.cur }
	common.Init(k)
	p.Dispatcher = k
	return k
}

// Attach wires the trace recorder to the processor's trap and exit hooks.
func (k *Kernel) Attach(w *trace.Writer) {
	k.Trace = w
	k.P.OnTrap = func(t *task.TaskControlBlock, trap cpu.Trap) {
		k.traceTrap(t, trap)
	}
	k.P.OnExit = func(t *task.TaskControlBlock, code int) {
		k.record(&trace.Event{Op: trace.OP_EXIT, Pid: int64(t.Pid), Ret: uint64(int64(code))})
	}
}

func (k *Kernel) traceTrap(t *task.TaskControlBlock, trap cpu.Trap) {
	switch trap.Cause {
	case cpu.TrapSyscall, cpu.TrapTimer:
		// syscalls are recorded with their result
	default:
		k.record(&trace.Event{Op: trace.OP_TRAP, Pid: int64(t.Pid), Num: uint64(trap.Cause), Ret: trap.Addr})
	}
}

func (k *Kernel) record(e *trace.Event) {
	if k.Trace == nil {
		return
	}
	if err := k.Trace.Write(e); err != nil {
		log.Errorf("trace: %v", err)
		k.Trace = nil
	}
}

func (k *Kernel) strace(format string, a ...interface{}) {
	if k.Strace != nil {
		fmt.Fprintf(k.Strace, format, a...)
	}
}

// Syscall looks up num and calls it on behalf of t. Unknown numbers kill
// the task.
func (k *Kernel) Syscall(t *task.TaskControlBlock, num uint64, args []uint64) uint64 {
	k.cur = t
	defer func() { k.cur = nil }()

	name, ok := sysno.Names[int(num)]
	var sys *common.Syscall
	if ok {
		sys = common.Lookup(k, name)
	}
	if sys == nil {
		log.Warningf("%s: unsupported syscall %d", t, num)
		k.strace("[%d] syscall_%d(...) = ?\n", t.Pid, num)
		k.P.KillCurrent(task.KilledBadSyscall)
		return ^uint64(0)
	}

	log.Debugf("%s: sys_%s", t, name)
	var desc string
	if k.Strace != nil {
		// rendered before the call, which may replace or free the memory
		desc = sys.Trace(args)
	}
	ret, err := sys.Invoke(args)
	if err != nil {
		log.Debugf("%s: %s: %v", t, name, err)
		ret = ^uint64(0)
	}
	if k.Strace != nil {
		if t.Status() == task.Zombie {
			k.strace("[%d] %s = ?\n", t.Pid, desc)
		} else {
			k.strace("[%d] %s%s\n", t.Pid, desc, sys.TraceRet(args, ret))
		}
	}
	e := &trace.Event{Op: trace.OP_SYSCALL, Pid: int64(t.Pid), Num: num, Ret: ret}
	copy(e.Args[:], args)
	k.record(e)
	return ret
}
