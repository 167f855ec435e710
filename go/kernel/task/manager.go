package task

import (
	"sync"

	"github.com/lunixbochs/taskcorn/go/models"
)

type queued struct {
	task     *TaskControlBlock
	stride   uint64
	priority uint64
}

// Manager is the stride-scheduled ready pool. Queue entries carry a copy of
// the task's stride and priority so the pool never takes a task lock while
// holding its own.
type Manager struct {
	sync.Mutex
	ready []queued
}

func NewManager() *Manager {
	return &Manager{}
}

// strideLess compares strides modulo 2^64. Valid while live strides stay
// within 2^63 of each other, which BigStride/MinPriority per fetch ensures.
func strideLess(a, b uint64) bool {
	return int64(a-b) < 0
}

// Add queues a Ready task.
func (m *Manager) Add(t *TaskControlBlock) {
	t.mu.Lock()
	if t.inner.status == Zombie {
		t.mu.Unlock()
		models.Panic("task", "%s added to the ready queue after exit", t)
	}
	if t.inner.resident != residentNone {
		t.mu.Unlock()
		models.Panic("task", "%s is already queued or running", t)
	}
	t.inner.status = Ready
	t.inner.resident = residentQueue
	t.hold()
	entry := queued{task: t, stride: t.inner.stride, priority: t.inner.priority}
	t.mu.Unlock()

	m.Lock()
	m.ready = append(m.ready, entry)
	m.Unlock()
}

// Fetch removes the task with the smallest stride, first in pool order on a
// tie, and advances its stride by BigStride/priority.
func (m *Manager) Fetch() *TaskControlBlock {
	m.Lock()
	if len(m.ready) == 0 {
		m.Unlock()
		return nil
	}
	best := 0
	for i := 1; i < len(m.ready); i++ {
		if strideLess(m.ready[i].stride, m.ready[best].stride) {
			best = i
		}
	}
	entry := m.ready[best]
	m.ready = append(m.ready[:best], m.ready[best+1:]...)
	m.Unlock()

	t := entry.task
	t.mu.Lock()
	t.inner.stride += BigStride / t.inner.priority
	t.inner.resident = residentNone
	t.release()
	t.mu.Unlock()
	return t
}

func (m *Manager) Len() int {
	m.Lock()
	defer m.Unlock()
	return len(m.ready)
}

// Count returns how many times pid appears in the pool.
func (m *Manager) Count(pid int) int {
	m.Lock()
	defer m.Unlock()
	n := 0
	for _, e := range m.ready {
		if e.task.Pid == pid {
			n++
		}
	}
	return n
}

func (m *Manager) Contains(pid int) bool {
	return m.Count(pid) > 0
}
