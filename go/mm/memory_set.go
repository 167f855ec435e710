package mm

import (
	"sort"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

var log = logging.MustGetLogger("mm")

const UserStackSize = 2 * PageSize

var ErrOverlap = errors.New("range overlaps an existing mapping")

// MemorySet is a task's address space: a page table plus the VMAs that own
// its frames. It is not synchronized; the owning task's lock guards it.
type MemorySet struct {
	pt     *PageTable
	areas  MapAreas
	frames *FrameAllocator
}

func NewBare(frames *FrameAllocator) *MemorySet {
	return &MemorySet{pt: NewPageTable(frames), frames: frames}
}

func (m *MemorySet) PageTable() *PageTable {
	return m.pt
}

// Areas returns the VMAs sorted by start page.
func (m *MemorySet) Areas() MapAreas {
	out := append(MapAreas(nil), m.areas...)
	sort.Sort(out)
	return out
}

func (m *MemorySet) Translate(vpn VirtPageNum) (PageTableEntry, bool) {
	return m.pt.Translate(vpn)
}

// CheckRange walks the pages of [start, end). With mapped set, every page
// must translate to a valid entry; otherwise no page may.
func (m *MemorySet) CheckRange(start, end VirtAddr, mapped bool) bool {
	ok := true
	PageRange(start.Floor(), end.Ceil(), func(vpn VirtPageNum) bool {
		pte, found := m.pt.Translate(vpn)
		valid := found && pte.Valid()
		if valid != mapped {
			ok = false
		}
		return ok
	})
	return ok
}

// InsertFramedArea maps fresh frames over [start, end) and records the VMA.
// Nothing is left mapped if it fails.
func (m *MemorySet) InsertFramedArea(start, end VirtAddr, perm MapPermission, desc string) error {
	_, err := m.insertFramed(start.Floor(), end.Ceil(), perm, desc)
	return err
}

func (m *MemorySet) insertFramed(svpn, evpn VirtPageNum, perm MapPermission, desc string) (*MapArea, error) {
	for vpn := svpn; vpn < evpn; vpn++ {
		if pte, ok := m.pt.Translate(vpn); ok && pte.Valid() {
			return nil, errors.Wrapf(ErrOverlap, "vpn %#x", uint64(vpn))
		}
	}
	area := newMapArea(svpn, evpn, perm, desc)
	if err := m.mapPages(area, svpn, evpn); err != nil {
		return nil, err
	}
	m.areas = append(m.areas, area)
	return area, nil
}

func (m *MemorySet) mapPages(area *MapArea, svpn, evpn VirtPageNum) error {
	for vpn := svpn; vpn < evpn; vpn++ {
		ppn, err := m.frames.Alloc()
		if err != nil {
			m.unmapPages(area, svpn, vpn)
			return errors.Wrap(err, "mapping area")
		}
		area.frames[vpn] = ppn
		m.pt.Map(vpn, ppn, PTEFlags(area.Perm))
	}
	return nil
}

func (m *MemorySet) unmapPages(area *MapArea, svpn, evpn VirtPageNum) {
	for vpn := svpn; vpn < evpn; vpn++ {
		if ppn, ok := area.frames[vpn]; ok {
			m.pt.Unmap(vpn)
			m.frames.Dealloc(ppn)
			delete(area.frames, vpn)
		}
	}
}

// UnmapRange releases every page of [start, end) and trims or splits the
// VMAs that covered it.
func (m *MemorySet) UnmapRange(start, end VirtAddr) {
	svpn, evpn := start.Floor(), end.Ceil()
	tmp := make(MapAreas, 0, len(m.areas))
	for _, area := range m.areas {
		s, e, ok := area.Intersect(svpn, evpn)
		if !ok {
			tmp = append(tmp, area)
			continue
		}
		m.unmapPages(area, s, e)
		left, right := area.split(s, e)
		if left != nil {
			tmp = append(tmp, left)
		}
		if right != nil {
			tmp = append(tmp, right)
		}
	}
	m.areas = tmp
}

func (m *MemorySet) findArea(start VirtPageNum) *MapArea {
	for _, area := range m.areas {
		if area.Start == start {
			return area
		}
	}
	return nil
}

// AppendTo grows the area starting at start so it covers newEnd.
func (m *MemorySet) AppendTo(start, newEnd VirtAddr) bool {
	area := m.findArea(start.Floor())
	if area == nil {
		var err error
		if area, err = m.insertFramed(start.Floor(), start.Floor(), PermR|PermW|PermU, "heap"); err != nil {
			return false
		}
	}
	evpn := newEnd.Ceil()
	if evpn <= area.End {
		return true
	}
	if !m.CheckRange(area.End.Addr(), evpn.Addr(), false) {
		return false
	}
	if err := m.mapPages(area, area.End, evpn); err != nil {
		log.Warningf("heap growth to %s failed: %v", newEnd, err)
		return false
	}
	area.End = evpn
	return true
}

// ShrinkTo releases the pages of the area starting at start above newEnd.
func (m *MemorySet) ShrinkTo(start, newEnd VirtAddr) bool {
	area := m.findArea(start.Floor())
	if area == nil {
		return newEnd.Ceil() <= start.Floor()
	}
	evpn := newEnd.Ceil()
	if evpn < area.Start {
		return false
	}
	if evpn < area.End {
		m.unmapPages(area, evpn, area.End)
		area.End = evpn
	}
	return true
}

// RecycleDataPages releases every frame of the address space.
func (m *MemorySet) RecycleDataPages() {
	for _, area := range m.areas {
		m.unmapPages(area, area.Start, area.End)
	}
	m.areas = nil
}

// FromImage builds a user address space: the image segments, a guard page,
// the user stack and an empty heap area at the stack top.
func FromImage(frames *FrameAllocator, img *loader.Image) (ms *MemorySet, userSP, entry uint64, err error) {
	ms = NewBare(frames)
	var maxEnd VirtPageNum
	for i, seg := range img.Segments {
		size := seg.MemSize
		if size < uint64(len(seg.Data)) {
			size = uint64(len(seg.Data))
		}
		start := VirtAddr(seg.Addr)
		end := VirtAddr(seg.Addr + size)
		if end < start || end > MaxVirtAddr {
			ms.RecycleDataPages()
			return nil, 0, 0, errors.Errorf("%s: segment %d out of range", img.Name, i)
		}
		perm := PermFromProt(seg.Prot)
		if err := ms.InsertFramedArea(start, end, perm, img.Name); err != nil {
			ms.RecycleDataPages()
			return nil, 0, 0, errors.Wrapf(err, "%s: segment %d", img.Name, i)
		}
		ms.copyData(start, seg.Data)
		if e := end.Ceil(); e > maxEnd {
			maxEnd = e
		}
	}
	stackBottom := maxEnd.Addr() + PageSize
	stackTop := stackBottom + UserStackSize
	if err := ms.InsertFramedArea(stackBottom, stackTop, PermR|PermW|PermU, "stack"); err != nil {
		ms.RecycleDataPages()
		return nil, 0, 0, errors.Wrapf(err, "%s: user stack", img.Name)
	}
	if _, err := ms.insertFramed(stackTop.Floor(), stackTop.Floor(), PermR|PermW|PermU, "heap"); err != nil {
		ms.RecycleDataPages()
		return nil, 0, 0, err
	}
	return ms, uint64(stackTop), img.Entry, nil
}

// FromExisted duplicates src into independent frames with identical VMAs.
func FromExisted(src *MemorySet) (*MemorySet, error) {
	ms := NewBare(src.frames)
	for _, area := range src.areas {
		dup := newMapArea(area.Start, area.End, area.Perm, area.Desc)
		for vpn := area.Start; vpn < area.End; vpn++ {
			srcPPN, ok := area.frames[vpn]
			if !ok {
				continue
			}
			ppn, err := ms.frames.Alloc()
			if err != nil {
				ms.areas = append(ms.areas, dup)
				ms.RecycleDataPages()
				return nil, errors.Wrap(err, "duplicating address space")
			}
			dup.frames[vpn] = ppn
			ms.pt.Map(vpn, ppn, PTEFlags(dup.Perm))
			copy(ms.frames.Bytes(ppn), src.frames.Bytes(srcPPN))
		}
		ms.areas = append(ms.areas, dup)
	}
	return ms, nil
}

// copyData writes p at va ignoring permissions. Used while building images.
func (m *MemorySet) copyData(va VirtAddr, p []byte) {
	for len(p) > 0 {
		page, _, ok := m.pt.page(va.Floor())
		if !ok {
			return
		}
		n := copy(page[va.PageOffset():], p)
		va, p = va+VirtAddr(n), p[n:]
	}
}

func protFlags(prot int) PTEFlags {
	flags := PTE_U
	if prot&cpu.PROT_READ != 0 {
		flags |= PTE_R
	}
	if prot&cpu.PROT_WRITE != 0 {
		flags |= PTE_W
	}
	if prot&cpu.PROT_EXEC != 0 {
		flags |= PTE_X
	}
	return flags
}

func (m *MemorySet) access(addr uint64, size int, prot int, fn func(page []byte)) error {
	want := protFlags(prot)
	va := VirtAddr(addr)
	for size > 0 {
		page, pte, ok := m.pt.page(va.Floor())
		if !ok {
			return &cpu.MemError{Addr: uint64(va), Size: size, Enum: cpu.UnmappedEnum(prot)}
		}
		if !pte.Has(want) {
			return &cpu.MemError{Addr: uint64(va), Size: size, Enum: cpu.ProtEnum(prot)}
		}
		off := va.PageOffset()
		n := PageSize - int(off)
		if n > size {
			n = size
		}
		fn(page[off : int(off)+n])
		va, size = va+VirtAddr(n), size-n
	}
	return nil
}

// ReadProt reads user memory, checking the U bit and prot on every page.
func (m *MemorySet) ReadProt(addr, size uint64, prot int) ([]byte, error) {
	out := make([]byte, 0, size)
	err := m.access(addr, int(size), prot, func(page []byte) {
		out = append(out, page...)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (m *MemorySet) WriteProt(addr uint64, p []byte, prot int) error {
	// check the whole range first so a faulting store has no effect
	if err := m.access(addr, len(p), prot, func([]byte) {}); err != nil {
		return err
	}
	return m.access(addr, len(p), prot, func(page []byte) {
		n := copy(page, p)
		p = p[n:]
	})
}
