package task

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/mm"
	"github.com/lunixbochs/taskcorn/go/models"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

// Fork duplicates parent into a new ready child. The child's copy of the
// context returns 0 from the fork.
func (p *Processor) Fork(parent *TaskControlBlock) (*TaskControlBlock, error) {
	parent.mu.Lock()
	pi := &parent.inner
	memory, err := mm.FromExisted(pi.memory)
	if err != nil {
		parent.mu.Unlock()
		return nil, errors.Wrap(err, "fork")
	}
	pid, err := p.Pids.Alloc()
	if err != nil {
		parent.mu.Unlock()
		memory.RecycleDataPages()
		return nil, errors.Wrap(err, "fork")
	}
	cx := pi.trapCx.Clone()
	cx.SetReturn(0)
	child := newTask(pid, memory, cx, pi.heapBottom)
	ci := &child.inner
	ci.programBrk = pi.programBrk
	ci.parent = parent.Pid
	ci.fdTable = append(ci.fdTable, pi.fdTable...)
	ci.stride = pi.stride
	ci.priority = pi.priority
	pi.children = append(pi.children, child)
	child.hold()
	parent.mu.Unlock()

	p.Procs.Insert(child)
	p.Manager.Add(child)
	log.Infof("%s forked pid %d", parent, pid)
	return child, nil
}

// Exec replaces t's address space and context with the named image. The
// pid, parent, children and fd table are kept.
func (p *Processor) Exec(t *TaskControlBlock, name string) error {
	img, ok := p.Loader.Load(name)
	if !ok {
		return errors.Errorf("exec: %q not found", name)
	}
	memory, sp, entry, err := mm.FromImage(p.Frames, img)
	if err != nil {
		return errors.Wrap(err, "exec")
	}
	t.mu.Lock()
	old := t.inner.memory
	t.inner.memory = memory
	t.inner.trapCx = cpu.AppInitContext(entry, sp)
	t.inner.heapBottom = sp
	t.inner.programBrk = sp
	t.mu.Unlock()
	old.RecycleDataPages()
	log.Infof("%s exec %s", t, name)
	return nil
}

// Spawn starts the named image as a new child of parent without copying
// the parent's address space. The child starts at the parent's stride with
// the default priority.
func (p *Processor) Spawn(parent *TaskControlBlock, name string) (*TaskControlBlock, error) {
	img, ok := p.Loader.Load(name)
	if !ok {
		return nil, errors.Errorf("spawn: %q not found", name)
	}
	child, err := p.newTask(img, parent.Pid)
	if err != nil {
		return nil, errors.Wrap(err, "spawn")
	}
	parent.mu.Lock()
	child.inner.stride = parent.inner.stride
	parent.inner.children = append(parent.inner.children, child)
	child.hold()
	parent.mu.Unlock()

	p.Procs.Insert(child)
	p.Manager.Add(child)
	log.Infof("%s spawned %s as pid %d", parent, name, child.Pid)
	return child, nil
}

// exit makes t a Zombie and releases its memory and files. Children stay
// attached until t itself is reaped. A task with no parent to wait on it
// is reaped immediately.
func (p *Processor) exit(t *TaskControlBlock, code int) {
	t.mu.Lock()
	if t.inner.status == Zombie {
		t.mu.Unlock()
		models.Panic("task", "%s exited twice", t)
	}
	t.inner.status = Zombie
	t.inner.exitCode = code
	t.inner.memory.RecycleDataPages()
	t.inner.fdTable = nil
	parentPid := t.inner.parent
	t.mu.Unlock()
	log.Infof("%s exited with code %d", t, code)
	if p.OnExit != nil {
		p.OnExit(t, code)
	}

	if t.Pid == p.initPid {
		p.initCode, p.initDone = code, true
	}
	if _, ok := p.Procs.Get(parentPid); parentPid == NoPid || !ok {
		t.mu.Lock()
		t.hold()
		t.mu.Unlock()
		p.deallocate(t)
	}
}

// Waitpid reaps a Zombie child of t. pid -1 matches any child. It returns
// -1 if nothing matches and -2 if no match has exited yet; otherwise the
// reaped pid and its exit code.
func (p *Processor) Waitpid(t *TaskControlBlock, pid int) (int, int) {
	t.mu.Lock()
	found := false
	idx := -1
	for i, child := range t.inner.children {
		if pid != -1 && child.Pid != pid {
			continue
		}
		found = true
		// parent before child
		child.mu.Lock()
		zombie := child.inner.status == Zombie
		child.mu.Unlock()
		if zombie {
			idx = i
			break
		}
	}
	if !found {
		t.mu.Unlock()
		return -1, 0
	}
	if idx < 0 {
		t.mu.Unlock()
		return -2, 0
	}
	child := t.inner.children[idx]
	t.inner.children = append(t.inner.children[:idx], t.inner.children[idx+1:]...)
	t.mu.Unlock()

	// the children list's hold passes to us as the reaper
	child.mu.Lock()
	code := child.inner.exitCode
	child.mu.Unlock()
	p.deallocate(child)
	log.Infof("%s reaped pid %d (code %d)", t, child.Pid, code)
	return child.Pid, code
}

// deallocate destroys a reaped task. The caller must be its only holder.
// Its own children become parentless, and any that already exited are
// reaped along with it.
func (p *Processor) deallocate(t *TaskControlBlock) {
	t.mu.Lock()
	if t.inner.status != Zombie {
		t.mu.Unlock()
		models.Panic("task", "%s deallocated while live", t)
	}
	if t.inner.refs != 1 {
		refs := t.inner.refs
		t.mu.Unlock()
		models.Panic("task", "%s reaped with %d holders", t, refs)
	}
	t.inner.refs = 0
	t.inner.memory.RecycleDataPages()
	orphans := t.inner.children
	t.inner.children = nil
	t.mu.Unlock()

	p.Procs.Remove(t.Pid)
	p.Pids.Dealloc(t.Pid)

	for _, child := range orphans {
		child.mu.Lock()
		child.inner.parent = NoPid
		zombie := child.inner.status == Zombie
		child.mu.Unlock()
		if zombie {
			p.deallocate(child)
		} else {
			child.mu.Lock()
			child.release()
			child.mu.Unlock()
		}
	}
}

// SetPriority rejects priorities below MinPriority with -1.
func (p *Processor) SetPriority(t *TaskControlBlock, prio int64) int64 {
	if prio < MinPriority {
		return -1
	}
	t.mu.Lock()
	t.inner.priority = uint64(prio)
	t.mu.Unlock()
	return prio
}
