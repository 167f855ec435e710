package mm

import "fmt"

const (
	PageShift = 12
	PageSize  = 1 << PageShift

	// user virtual addresses are limited to 39 bits, like an Sv39 hart
	VABits      = 39
	MaxVirtAddr = VirtAddr(1) << VABits
)

type (
	VirtAddr    uint64
	PhysAddr    uint64
	VirtPageNum uint64
	PhysPageNum uint64
)

// Floor returns the page containing addr.
func (a VirtAddr) Floor() VirtPageNum {
	return VirtPageNum(a >> PageShift)
}

// Ceil returns the first page boundary at or above addr.
func (a VirtAddr) Ceil() VirtPageNum {
	return VirtPageNum((a + PageSize - 1) >> PageShift)
}

func (a VirtAddr) PageOffset() uint64 {
	return uint64(a) & (PageSize - 1)
}

func (a VirtAddr) Aligned() bool {
	return a.PageOffset() == 0
}

func (a VirtAddr) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

func (v VirtPageNum) Addr() VirtAddr {
	return VirtAddr(v << PageShift)
}

func (p PhysPageNum) Addr() PhysAddr {
	return PhysAddr(p << PageShift)
}

// PageRange iterates [start, end).
func PageRange(start, end VirtPageNum, fn func(VirtPageNum) bool) {
	for vpn := start; vpn < end; vpn++ {
		if !fn(vpn) {
			return
		}
	}
}
