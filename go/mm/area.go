package mm

import (
	"fmt"
	"sort"
	"strings"
)

// MapPermission shares its bit layout with the PTE flags.
type MapPermission uint8

const (
	PermR MapPermission = MapPermission(PTE_R)
	PermW MapPermission = MapPermission(PTE_W)
	PermX MapPermission = MapPermission(PTE_X)
	PermU MapPermission = MapPermission(PTE_U)
)

// PermFromProt converts a 3-bit rwx mask (bit0=r, bit1=w, bit2=x) into a
// user-accessible permission.
func PermFromProt(prot int) MapPermission {
	return MapPermission(prot&7)<<1 | PermU
}

func (p MapPermission) String() string {
	perms := []MapPermission{PermR, PermW, PermX, PermU}
	chars := []string{"r", "w", "x", "u"}
	out := ""
	for i := range perms {
		if p&perms[i] != 0 {
			out += chars[i]
		} else {
			out += "-"
		}
	}
	return out
}

// MapArea is one VMA: a contiguous page range with uniform permissions,
// backed by frames it owns.
type MapArea struct {
	Start, End VirtPageNum
	Perm       MapPermission
	Desc       string

	frames map[VirtPageNum]PhysPageNum
}

func newMapArea(start, end VirtPageNum, perm MapPermission, desc string) *MapArea {
	return &MapArea{Start: start, End: end, Perm: perm, Desc: desc, frames: make(map[VirtPageNum]PhysPageNum)}
}

func (m *MapArea) String() string {
	desc := fmt.Sprintf("%#x-%#x %s", uint64(m.Start.Addr()), uint64(m.End.Addr()), m.Perm)
	if m.Desc != "" {
		desc += fmt.Sprintf(" [%s]", m.Desc)
	}
	return desc
}

func (m *MapArea) Pages() int {
	return int(m.End - m.Start)
}

func (m *MapArea) Contains(vpn VirtPageNum) bool {
	return vpn >= m.Start && vpn < m.End
}

// start = max(s1, s2), end = min(e1, e2), ok = end > start
func (m *MapArea) Intersect(start, end VirtPageNum) (VirtPageNum, VirtPageNum, bool) {
	s, e := m.Start, m.End
	if e > end {
		e = end
	}
	if s < start {
		s = start
	}
	return s, e, e > s
}

func (m *MapArea) Overlaps(start, end VirtPageNum) bool {
	_, _, ok := m.Intersect(start, end)
	return ok
}

/*
// how to split an area around an unmapped hole //
Start                         End
[------|-----hole----|--------]
[-left-][---removed--][-right-]

	|             |
	start         end
*/
func (m *MapArea) split(start, end VirtPageNum) (left, right *MapArea) {
	if start > m.Start {
		left = newMapArea(m.Start, start, m.Perm, m.Desc)
	}
	if end < m.End {
		right = newMapArea(end, m.End, m.Perm, m.Desc)
	}
	for vpn, ppn := range m.frames {
		switch {
		case left != nil && left.Contains(vpn):
			left.frames[vpn] = ppn
		case right != nil && right.Contains(vpn):
			right.frames[vpn] = ppn
		}
	}
	return left, right
}

type MapAreas []*MapArea

func (m MapAreas) Len() int           { return len(m) }
func (m MapAreas) Swap(i, j int)      { m[i], m[j] = m[j], m[i] }
func (m MapAreas) Less(i, j int) bool { return m[i].Start < m[j].Start }

func (m MapAreas) String() string {
	sorted := append(MapAreas(nil), m...)
	sort.Sort(sorted)
	s := make([]string, len(sorted))
	for i, v := range sorted {
		s[i] = v.String()
	}
	return strings.Join(s, "\n")
}
