package mm

import (
	"fmt"

	"github.com/lunixbochs/taskcorn/go/models"
)

type PTEFlags uint8

const (
	PTE_V PTEFlags = 1 << iota
	PTE_R
	PTE_W
	PTE_X
	PTE_U
)

func (f PTEFlags) String() string {
	chars := []string{"v", "r", "w", "x", "u"}
	out := ""
	for i, c := range chars {
		if f&(1<<uint(i)) != 0 {
			out += c
		} else {
			out += "-"
		}
	}
	return out
}

type PageTableEntry struct {
	PPN   PhysPageNum
	Flags PTEFlags
}

func (p PageTableEntry) Valid() bool {
	return p.Flags&PTE_V != 0
}

func (p PageTableEntry) Has(flags PTEFlags) bool {
	return p.Flags&flags == flags
}

func (p PageTableEntry) String() string {
	return fmt.Sprintf("ppn=%#x %s", uint64(p.PPN), p.Flags)
}

// PageTable maps virtual pages of one address space onto physical frames.
// It is a flat map rather than a radix tree; the walk contract is the same.
type PageTable struct {
	entries map[VirtPageNum]PageTableEntry
	frames  *FrameAllocator
}

func NewPageTable(frames *FrameAllocator) *PageTable {
	return &PageTable{entries: make(map[VirtPageNum]PageTableEntry), frames: frames}
}

func (pt *PageTable) Map(vpn VirtPageNum, ppn PhysPageNum, flags PTEFlags) {
	if pte, ok := pt.entries[vpn]; ok && pte.Valid() {
		models.Panic("mm", "vpn %#x is mapped before mapping", uint64(vpn))
	}
	pt.entries[vpn] = PageTableEntry{PPN: ppn, Flags: flags | PTE_V}
}

func (pt *PageTable) Unmap(vpn VirtPageNum) {
	if pte, ok := pt.entries[vpn]; !ok || !pte.Valid() {
		models.Panic("mm", "vpn %#x is invalid before unmapping", uint64(vpn))
	}
	delete(pt.entries, vpn)
}

// Translate looks up vpn. The bool is false when no entry exists at all.
func (pt *PageTable) Translate(vpn VirtPageNum) (PageTableEntry, bool) {
	pte, ok := pt.entries[vpn]
	return pte, ok
}

// TranslateVA resolves a virtual address to its physical address.
func (pt *PageTable) TranslateVA(va VirtAddr) (PhysAddr, bool) {
	pte, ok := pt.Translate(va.Floor())
	if !ok || !pte.Valid() {
		return 0, false
	}
	return pte.PPN.Addr() + PhysAddr(va.PageOffset()), true
}

func (pt *PageTable) Len() int {
	return len(pt.entries)
}

// page returns the frame bytes behind vpn if it is a valid user page.
func (pt *PageTable) page(vpn VirtPageNum) ([]byte, PageTableEntry, bool) {
	pte, ok := pt.Translate(vpn)
	if !ok || !pte.Valid() {
		return nil, pte, false
	}
	return pt.frames.Bytes(pte.PPN), pte, true
}
