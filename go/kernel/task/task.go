package task

import (
	"fmt"
	"sync"
	"time"

	"github.com/lunixbochs/taskcorn/go/kernel/fs"
	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/mm"
	"github.com/lunixbochs/taskcorn/go/models"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

type Status int

const (
	Ready Status = iota + 1
	Running
	Zombie
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "Ready"
	case Running:
		return "Running"
	case Zombie:
		return "Zombie"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

const (
	BigStride       = 1 << 20
	DefaultPriority = 16
	MinPriority     = 2
)

// where a live task is resident, besides its parent's children list
const (
	residentNone = iota
	residentQueue
	residentRunning
)

// TaskControlBlock is the kernel's record of one task. Pid never changes;
// everything else lives behind the mutex.
type TaskControlBlock struct {
	Pid int

	mu    sync.Mutex
	inner taskInner
}

type taskInner struct {
	memory   *mm.MemorySet
	trapCx   *cpu.TrapContext
	status   Status
	exitCode int
	// resolved through the process table
	parent   int
	children []*TaskControlBlock
	fdTable  []fs.File

	stride   uint64
	priority uint64

	heapBottom uint64
	programBrk uint64

	syscallTimes [sysno.MaxSyscallNum]uint32
	startTime    time.Duration
	started      bool

	// holders: the parent's children list, the ready queue, the running
	// slot, and a reaper
	refs     int
	resident int
}

func newTask(pid int, memory *mm.MemorySet, trapCx *cpu.TrapContext, heap uint64) *TaskControlBlock {
	return &TaskControlBlock{
		Pid: pid,
		inner: taskInner{
			memory:     memory,
			trapCx:     trapCx,
			status:     Ready,
			priority:   DefaultPriority,
			heapBottom: heap,
			programBrk: heap,
		},
	}
}

func (t *TaskControlBlock) String() string {
	return fmt.Sprintf("task(%d)", t.Pid)
}

func (t *TaskControlBlock) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.status
}

func (t *TaskControlBlock) ExitCode() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.exitCode
}

func (t *TaskControlBlock) Parent() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.parent
}

func (t *TaskControlBlock) Stride() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.stride
}

func (t *TaskControlBlock) Priority() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.priority
}

// SetStride overrides the pass value of a task that is not in the ready
// pool. Queued tasks are refused since the pool orders them by the stride
// they were added with.
func (t *TaskControlBlock) SetStride(stride uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inner.resident == residentQueue {
		return false
	}
	t.inner.stride = stride
	return true
}

// Children returns the pids in children-list order.
func (t *TaskControlBlock) Children() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	pids := make([]int, len(t.inner.children))
	for i, c := range t.inner.children {
		pids[i] = c.Pid
	}
	return pids
}

// TrapContext returns the live register image.
func (t *TaskControlBlock) TrapContext() *cpu.TrapContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inner.trapCx
}

// Areas snapshots the task's VMAs.
func (t *TaskControlBlock) Areas() mm.MapAreas {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inner.memory == nil {
		return nil
	}
	return t.inner.memory.Areas()
}

func (t *TaskControlBlock) hold() {
	t.inner.refs++
}

func (t *TaskControlBlock) release() {
	if t.inner.refs <= 0 {
		models.Panic("task", "%s released with no holders", t)
	}
	t.inner.refs--
}

// AllocFd installs file in the first free slot.
func (t *TaskControlBlock) AllocFd(file fs.File) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	for fd, f := range t.inner.fdTable {
		if f == nil {
			t.inner.fdTable[fd] = file
			return fd
		}
	}
	t.inner.fdTable = append(t.inner.fdTable, file)
	return len(t.inner.fdTable) - 1
}

func (t *TaskControlBlock) Fd(fd int) (fs.File, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.inner.fdTable) || t.inner.fdTable[fd] == nil {
		return nil, false
	}
	return t.inner.fdTable[fd], true
}

func (t *TaskControlBlock) CloseFd(fd int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.inner.fdTable) || t.inner.fdTable[fd] == nil {
		return false
	}
	t.inner.fdTable[fd] = nil
	return true
}

// CountSyscall is the only writer of the syscall counters.
func (t *TaskControlBlock) CountSyscall(num uint64) {
	t.mu.Lock()
	if num < sysno.MaxSyscallNum {
		t.inner.syscallTimes[num]++
	}
	t.mu.Unlock()
}

// UserBuffer resolves [ptr, ptr+size) in the task's address space.
func (t *TaskControlBlock) UserBuffer(ptr, size uint64) (*mm.UserBuffer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mm.NewUserBuffer(t.inner.memory.PageTable(), ptr, size)
}

// CopyOut returns the number of bytes written to user memory.
func (t *TaskControlBlock) CopyOut(ptr uint64, data []byte) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mm.CopyOut(t.inner.memory.PageTable(), ptr, data)
}

func (t *TaskControlBlock) CopyIn(ptr, size uint64) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mm.CopyIn(t.inner.memory.PageTable(), ptr, size)
}

func (t *TaskControlBlock) ReadStr(ptr uint64) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return mm.ReadStr(t.inner.memory.PageTable(), ptr)
}
