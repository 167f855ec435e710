package cpu

import "fmt"

type MemError struct {
	Addr uint64
	Size int
	Enum int
}

func (m *MemError) Error() string {
	reason := "memory error"
	switch m.Enum {
	case MEM_WRITE_UNMAPPED:
		reason = "unmapped write"
	case MEM_READ_UNMAPPED:
		reason = "unmapped read"
	case MEM_FETCH_UNMAPPED:
		reason = "unmapped fetch"
	case MEM_WRITE_PROT:
		reason = "protected write"
	case MEM_READ_PROT:
		reason = "protected read"
	case MEM_FETCH_PROT:
		reason = "protected exec"
	}
	return fmt.Sprintf("%s at %#x(%d)", reason, m.Addr, m.Size)
}

// UnmappedEnum picks the MemError kind for an access of prot to a missing page.
func UnmappedEnum(prot int) int {
	switch {
	case prot&PROT_EXEC != 0:
		return MEM_FETCH_UNMAPPED
	case prot&PROT_WRITE != 0:
		return MEM_WRITE_UNMAPPED
	}
	return MEM_READ_UNMAPPED
}

func ProtEnum(prot int) int {
	switch {
	case prot&PROT_EXEC != 0:
		return MEM_FETCH_PROT
	case prot&PROT_WRITE != 0:
		return MEM_WRITE_PROT
	}
	return MEM_READ_PROT
}
