package task

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/models"
)

// NoPid is the parent of a task nobody waits on.
const NoPid = 0

const MaxPid = 1 << 15

var ErrNoPid = errors.New("out of pids")

// PidAllocator hands out the smallest released pid first, then fresh ones.
type PidAllocator struct {
	sync.Mutex
	current  int
	recycled []int
}

func NewPidAllocator() *PidAllocator {
	return &PidAllocator{current: NoPid + 1}
}

func (p *PidAllocator) Alloc() (int, error) {
	p.Lock()
	defer p.Unlock()
	if len(p.recycled) > 0 {
		pid := p.recycled[0]
		p.recycled = p.recycled[1:]
		return pid, nil
	}
	if p.current >= MaxPid {
		return 0, errors.WithStack(ErrNoPid)
	}
	pid := p.current
	p.current++
	return pid, nil
}

func (p *PidAllocator) Dealloc(pid int) {
	p.Lock()
	defer p.Unlock()
	i := sort.SearchInts(p.recycled, pid)
	if pid <= NoPid || pid >= p.current || (i < len(p.recycled) && p.recycled[i] == pid) {
		models.Panic("task", "pid %d has not been allocated", pid)
	}
	p.recycled = append(p.recycled, 0)
	copy(p.recycled[i+1:], p.recycled[i:])
	p.recycled[i] = pid
}
