package task

import (
	"sort"
	"sync"
)

// ProcTable maps live pids to tasks. It is how parent links are resolved;
// it does not count as a holder.
type ProcTable struct {
	sync.RWMutex
	tasks map[int]*TaskControlBlock
}

func NewProcTable() *ProcTable {
	return &ProcTable{tasks: make(map[int]*TaskControlBlock)}
}

func (p *ProcTable) Insert(t *TaskControlBlock) {
	p.Lock()
	p.tasks[t.Pid] = t
	p.Unlock()
}

func (p *ProcTable) Remove(pid int) {
	p.Lock()
	delete(p.tasks, pid)
	p.Unlock()
}

func (p *ProcTable) Get(pid int) (*TaskControlBlock, bool) {
	p.RLock()
	defer p.RUnlock()
	t, ok := p.tasks[pid]
	return t, ok
}

func (p *ProcTable) Len() int {
	p.RLock()
	defer p.RUnlock()
	return len(p.tasks)
}

// List returns the live tasks ordered by pid.
func (p *ProcTable) List() []*TaskControlBlock {
	p.RLock()
	list := make([]*TaskControlBlock, 0, len(p.tasks))
	for _, t := range p.tasks {
		list = append(list, t)
	}
	p.RUnlock()
	sort.Slice(list, func(i, j int) bool { return list[i].Pid < list[j].Pid })
	return list
}
