package cpu

import "fmt"

// Memory is the view of an address space a Cpu executes against. Every
// access names the protection it needs; a missing or insufficient page
// returns a *MemError and has no effect.
type Memory interface {
	ReadProt(addr, size uint64, prot int) ([]byte, error)
	WriteProt(addr uint64, p []byte, prot int) error
}

// Trap describes why Run returned control to the kernel.
type Trap struct {
	Cause int
	// faulting address for page faults, instruction address otherwise
	Addr  uint64
	Steps int
	Err   error
}

func TrapName(cause int) string {
	if name, ok := trapNames[cause]; ok {
		return name
	}
	return fmt.Sprintf("trap(%d)", cause)
}

func (t Trap) String() string {
	name := TrapName(t.Cause)
	if t.Err != nil {
		return fmt.Sprintf("%s at %#x: %v", name, t.Addr, t.Err)
	}
	return fmt.Sprintf("%s at %#x", name, t.Addr)
}

// This interface abstracts the minimum functionality the kernel requires of a hart.
type Cpu interface {
	// Run executes from ctx.Sepc until a trap or until budget instructions
	// have retired. ctx is updated in place.
	Run(ctx *TrapContext, mem Memory, budget int) Trap
}

// Ins is one decoded instruction.
type Ins interface {
	Addr() uint64
	Bytes() []byte
	Mnemonic() string
	OpStr() string
}

type Disassembler interface {
	Dis(mem []byte, addr uint64) ([]Ins, error)
}
