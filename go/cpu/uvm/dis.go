package uvm

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

type ins struct {
	addr         uint64
	op           byte
	rd, rs1, rs2 uint8
	imm          int64
	name         string
	arg          int
	bytes        []byte
}

// decode parses one instruction. ok is false for an unknown opcode or a
// register outside the register file.
func decode(p []byte, addr uint64) (*ins, bool) {
	if len(p) < InsSize {
		return nil, false
	}
	i := &ins{
		addr:  addr,
		op:    p[0],
		rd:    p[1],
		rs1:   p[2],
		rs2:   p[3],
		imm:   int64(binary.LittleEndian.Uint64(p[4:InsSize])),
		bytes: p[:InsSize],
	}
	data, ok := opData[int(i.op)]
	if !ok || i.rd >= cpu.NumRegs || i.rs1 >= cpu.NumRegs || i.rs2 >= cpu.NumRegs {
		return i, false
	}
	i.name, i.arg = data.name, data.arg
	return i, true
}

func (i *ins) String() string {
	if s := i.OpStr(); s != "" {
		return i.name + " " + s
	}
	return i.name
}

func (i *ins) Addr() uint64 {
	return i.addr
}

func (i *ins) Bytes() []byte {
	return i.bytes
}

func (i *ins) Mnemonic() string {
	return i.name
}

func reg(n uint8) string {
	return cpu.RegNames[n]
}

func (i *ins) OpStr() string {
	var args []string
	switch i.arg {
	case A_RI:
		args = []string{reg(i.rd), fmt.Sprintf("%#x", i.imm)}
	case A_RR:
		args = []string{reg(i.rd), reg(i.rs1)}
	case A_RRR:
		args = []string{reg(i.rd), reg(i.rs1), reg(i.rs2)}
	case A_RRI:
		args = []string{reg(i.rd), reg(i.rs1), fmt.Sprintf("%d", i.imm)}
	case A_LOAD:
		args = []string{reg(i.rd), fmt.Sprintf("%d(%s)", i.imm, reg(i.rs1))}
	case A_STORE:
		args = []string{reg(i.rs2), fmt.Sprintf("%d(%s)", i.imm, reg(i.rs1))}
	case A_BRANCH:
		args = []string{reg(i.rs1), reg(i.rs2), fmt.Sprintf("%#x", i.target())}
	case A_JUMP:
		args = []string{fmt.Sprintf("%#x", i.target())}
	case A_LINK:
		args = []string{reg(i.rd), fmt.Sprintf("%#x", i.target())}
	case A_REG:
		args = []string{reg(i.rs1)}
		if i.imm != 0 {
			args = append(args, fmt.Sprintf("%d", i.imm))
		}
	}
	return strings.Join(args, ", ")
}

func (i *ins) target() uint64 {
	return i.addr + uint64(i.imm)
}

type Dis struct{}

// Dis decodes instructions until the end of mem or the first invalid one.
func (d *Dis) Dis(mem []byte, addr uint64) ([]cpu.Ins, error) {
	var ret []cpu.Ins
	for len(mem) >= InsSize {
		i, ok := decode(mem, addr)
		if !ok {
			break
		}
		ret = append(ret, i)
		mem = mem[InsSize:]
		addr += InsSize
	}
	return ret, nil
}
