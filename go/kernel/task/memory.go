package task

import (
	"github.com/lunixbochs/taskcorn/go/mm"
)

// userRange checks start alignment and that [start, start+size) fits in
// the user address space.
func userRange(start, size uint64) (mm.VirtAddr, mm.VirtAddr, bool) {
	end := start + size
	if end < start || !mm.VirtAddr(start).Aligned() || mm.VirtAddr(end) > mm.MaxVirtAddr {
		return 0, 0, false
	}
	return mm.VirtAddr(start), mm.VirtAddr(end), true
}

// Mmap maps fresh frames over [start, start+size) with the rwx bits of
// port. It fails with -1 without side effects if start is unaligned, port
// is empty or has bits beyond rwx, or any page is already mapped.
func (t *TaskControlBlock) Mmap(start, size, port uint64) int64 {
	if port&^7 != 0 || port&7 == 0 {
		return -1
	}
	s, e, ok := userRange(start, size)
	if !ok {
		return -1
	}
	if size == 0 {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	memory := t.inner.memory
	if !memory.CheckRange(s, e, false) {
		return -1
	}
	if err := memory.InsertFramedArea(s, e, mm.PermFromProt(int(port)), "mmap"); err != nil {
		log.Warningf("%s: mmap %s-%s: %v", t, s, e, err)
		return -1
	}
	return 0
}

// Munmap releases [start, start+size). Every page must be mapped, or the
// call fails with -1 and nothing is unmapped.
func (t *TaskControlBlock) Munmap(start, size uint64) int64 {
	s, e, ok := userRange(start, size)
	if !ok {
		return -1
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	memory := t.inner.memory
	if !memory.CheckRange(s, e, true) {
		return -1
	}
	memory.UnmapRange(s, e)
	return 0
}

// ChangeProgramBrk moves the break by delta and returns the old break, or
// -1 if the heap would drop below its bottom or cannot grow.
func (t *TaskControlBlock) ChangeProgramBrk(delta int64) int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	in := &t.inner
	old := in.programBrk
	next := int64(old) + delta
	if next < int64(in.heapBottom) || uint64(next) > uint64(mm.MaxVirtAddr) {
		return -1
	}
	bottom := mm.VirtAddr(in.heapBottom)
	var ok bool
	if delta < 0 {
		ok = in.memory.ShrinkTo(bottom, mm.VirtAddr(next))
	} else {
		ok = in.memory.AppendTo(bottom, mm.VirtAddr(next))
	}
	if !ok {
		return -1
	}
	in.programBrk = uint64(next)
	return int64(old)
}
