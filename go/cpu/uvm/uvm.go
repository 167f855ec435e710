package uvm

import (
	"encoding/binary"

	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

func rbool(i bool) uint64 {
	if i {
		return 1
	}
	return 0
}

type Builder struct{}

func (b *Builder) New() (cpu.Cpu, error) {
	return &Uvm{}, nil
}

// Uvm interprets user programs against a task's address space. It keeps no
// state between calls to Run; everything lives in the TrapContext.
type Uvm struct{}

func fault(err error, pc uint64, steps int) cpu.Trap {
	addr := pc
	if merr, ok := err.(*cpu.MemError); ok {
		addr = merr.Addr
	}
	return cpu.Trap{Cause: cpu.TrapPageFault, Addr: addr, Steps: steps, Err: err}
}

func load(mem cpu.Memory, addr uint64, size int) (uint64, error) {
	p, err := mem.ReadProt(addr, uint64(size), cpu.PROT_READ)
	if err != nil {
		return 0, err
	}
	switch size {
	case 8:
		return binary.LittleEndian.Uint64(p), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(p)), nil
	}
	return uint64(p[0]), nil
}

func store(mem cpu.Memory, addr uint64, size int, val uint64) error {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], val)
	return mem.WriteProt(addr, tmp[:size], cpu.PROT_WRITE)
}

func (u *Uvm) Run(ctx *cpu.TrapContext, mem cpu.Memory, budget int) cpu.Trap {
	x := &ctx.X
	steps := 0
	for ; steps < budget; steps++ {
		pc := ctx.Sepc
		code, err := mem.ReadProt(pc, InsSize, cpu.PROT_EXEC)
		if err != nil {
			return fault(err, pc, steps)
		}
		ins, ok := decode(code, pc)
		if !ok {
			return cpu.Trap{Cause: cpu.TrapIllegalInstruction, Addr: pc, Steps: steps}
		}
		rs1, rs2, imm := x[ins.rs1], x[ins.rs2], uint64(ins.imm)
		next := pc + InsSize
		var val uint64
		write := true

		switch ins.op {
		case OP_NOP:
			write = false
		case OP_LI:
			val = imm
		case OP_MOV:
			val = rs1
		case OP_ADD:
			val = rs1 + rs2
		case OP_ADDI:
			val = rs1 + imm
		case OP_SUB:
			val = rs1 - rs2
		case OP_MUL:
			val = rs1 * rs2
		case OP_AND:
			val = rs1 & rs2
		case OP_OR:
			val = rs1 | rs2
		case OP_XOR:
			val = rs1 ^ rs2
		case OP_SLL:
			val = rs1 << (rs2 & 63)
		case OP_SRL:
			val = rs1 >> (rs2 & 63)
		case OP_SLLI:
			val = rs1 << (imm & 63)
		case OP_SRLI:
			val = rs1 >> (imm & 63)
		case OP_SLT:
			val = rbool(int64(rs1) < int64(rs2))

		case OP_LD, OP_LW, OP_LB:
			if val, err = load(mem, rs1+imm, memSize[int(ins.op)]); err != nil {
				return fault(err, pc, steps)
			}
		case OP_SD, OP_SW, OP_SB:
			write = false
			if err = store(mem, rs1+imm, memSize[int(ins.op)], rs2); err != nil {
				return fault(err, pc, steps)
			}

		case OP_BEQ, OP_BNE, OP_BLT, OP_BGE:
			write = false
			var taken bool
			switch ins.op {
			case OP_BEQ:
				taken = rs1 == rs2
			case OP_BNE:
				taken = rs1 != rs2
			case OP_BLT:
				taken = int64(rs1) < int64(rs2)
			case OP_BGE:
				taken = int64(rs1) >= int64(rs2)
			}
			if taken {
				next = pc + imm
			}
		case OP_JMP:
			write = false
			next = pc + imm
		case OP_JAL:
			val = pc + InsSize
			next = pc + imm
		case OP_JR:
			write = false
			next = rs1 + imm

		case OP_ECALL:
			// the kernel moves sepc past the ecall once the call is served
			return cpu.Trap{Cause: cpu.TrapSyscall, Addr: pc, Steps: steps + 1}
		case OP_EBREAK:
			ctx.Sepc = next
			return cpu.Trap{Cause: cpu.TrapBreakpoint, Addr: pc, Steps: steps + 1}
		}
		if write && ins.rd != cpu.ZERO {
			x[ins.rd] = val
		}
		ctx.Sepc = next
	}
	return cpu.Trap{Cause: cpu.TrapTimer, Addr: ctx.Sepc, Steps: steps}
}
