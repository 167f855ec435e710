package cpu

import (
	"github.com/pkg/errors"
)

// TrapContext is the saved user register state of a task. Sepc is the pc
// user mode resumes at.
type TrapContext struct {
	X    [NumRegs]uint64
	Sepc uint64
}

// AppInitContext returns the context a freshly loaded program starts with.
func AppInitContext(entry, sp uint64) *TrapContext {
	ctx := &TrapContext{Sepc: entry}
	ctx.X[SP] = sp
	return ctx
}

func (c *TrapContext) RegRead(enum int) (uint64, error) {
	if enum < 0 || enum >= NumRegs {
		return 0, errors.New("invalid register")
	}
	return c.X[enum], nil
}

// RegWrite ignores writes to the zero register.
func (c *TrapContext) RegWrite(enum int, val uint64) error {
	if enum < 0 || enum >= NumRegs {
		return errors.New("invalid register")
	}
	if enum != ZERO {
		c.X[enum] = val
	}
	return nil
}

// SyscallArgs returns the syscall number in a7 and the arguments in a0..a2.
func (c *TrapContext) SyscallArgs() (uint64, []uint64) {
	return c.X[A7], []uint64{c.X[A0], c.X[A1], c.X[A2]}
}

func (c *TrapContext) SetReturn(val uint64) {
	c.X[A0] = val
}

func (c *TrapContext) Clone() *TrapContext {
	dup := *c
	return &dup
}
