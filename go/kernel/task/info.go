package task

import (
	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
)

// TaskInfo is the snapshot returned by the task_info syscall.
type TaskInfo struct {
	Status       Status
	SyscallTimes [sysno.MaxSyscallNum]uint32
	// milliseconds since the task was first scheduled
	Time uint64
}

func (p *Processor) TaskInfo(t *TaskControlBlock) TaskInfo {
	now := p.Clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	info := TaskInfo{
		Status:       t.inner.status,
		SyscallTimes: t.inner.syscallTimes,
	}
	if t.inner.started {
		info.Time = uint64((now - t.inner.startTime).Milliseconds())
	}
	return info
}

// Stat is a point-in-time view of a task for the console.
type Stat struct {
	Pid      int
	Parent   int
	Status   Status
	Priority uint64
	Stride   uint64
	Children int
	ExitCode int
	Pages    int
	Syscalls uint32
}

func (t *TaskControlBlock) Stat() Stat {
	t.mu.Lock()
	defer t.mu.Unlock()
	in := &t.inner
	st := Stat{
		Pid:      t.Pid,
		Parent:   in.parent,
		Status:   in.status,
		Priority: in.priority,
		Stride:   in.stride,
		Children: len(in.children),
		ExitCode: in.exitCode,
		Pages:    in.memory.PageTable().Len(),
	}
	for _, n := range in.syscallTimes {
		st.Syscalls += n
	}
	return st
}

// Stats lists every live task.
func (p *Processor) Stats() []Stat {
	var out []Stat
	for _, t := range p.Procs.List() {
		out = append(out, t.Stat())
	}
	return out
}
