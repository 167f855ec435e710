package mm

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/models"
)

var ErrOutOfFrames = errors.New("out of physical frames")

// FrameAllocator hands out simulated physical frames from a fixed range.
// Released frames are recycled before untouched ones.
type FrameAllocator struct {
	sync.Mutex
	base     PhysPageNum
	current  PhysPageNum
	end      PhysPageNum
	recycled []PhysPageNum
	free     map[PhysPageNum]bool
	mem      [][]byte
}

func NewFrameAllocator(base PhysPageNum, count int) *FrameAllocator {
	return &FrameAllocator{
		base:    base,
		current: base,
		end:     base + PhysPageNum(count),
		free:    make(map[PhysPageNum]bool),
		mem:     make([][]byte, count),
	}
}

// Alloc returns a zeroed frame.
func (f *FrameAllocator) Alloc() (PhysPageNum, error) {
	f.Lock()
	defer f.Unlock()
	var ppn PhysPageNum
	if n := len(f.recycled); n > 0 {
		ppn = f.recycled[n-1]
		f.recycled = f.recycled[:n-1]
		delete(f.free, ppn)
	} else if f.current < f.end {
		ppn = f.current
		f.current++
	} else {
		return 0, ErrOutOfFrames
	}
	page := f.mem[ppn-f.base]
	if page == nil {
		f.mem[ppn-f.base] = make([]byte, PageSize)
	} else {
		for i := range page {
			page[i] = 0
		}
	}
	return ppn, nil
}

func (f *FrameAllocator) Dealloc(ppn PhysPageNum) {
	f.Lock()
	defer f.Unlock()
	if ppn < f.base || ppn >= f.current || f.free[ppn] {
		models.Panic("mm", "frame ppn=%#x has not been allocated", uint64(ppn))
	}
	f.free[ppn] = true
	f.recycled = append(f.recycled, ppn)
}

// Bytes exposes the backing storage of an allocated frame.
func (f *FrameAllocator) Bytes(ppn PhysPageNum) []byte {
	f.Lock()
	defer f.Unlock()
	if ppn < f.base || ppn >= f.current || f.free[ppn] {
		models.Panic("mm", "access to unallocated frame ppn=%#x", uint64(ppn))
	}
	return f.mem[ppn-f.base]
}

func (f *FrameAllocator) InUse() int {
	f.Lock()
	defer f.Unlock()
	return int(f.current-f.base) - len(f.recycled)
}

func (f *FrameAllocator) Free() int {
	f.Lock()
	defer f.Unlock()
	return int(f.end-f.current) + len(f.recycled)
}
