package uvm

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

const pageSize = 0x1000

// wire layout of one instruction
type rawIns struct {
	Op, Rd, Rs1, Rs2 uint8
	Imm              int64
}

const (
	refNone = iota
	refRel  // imm = label - pc
	refAbs  // imm = label address
)

type asmIns struct {
	raw   rawIns
	label string
	ref   int
}

// Asm assembles a uvm program. Code is laid out from Base; data follows on
// the next page boundary. Labels may be referenced before they are defined.
type Asm struct {
	Base uint64

	ins        []asmIns
	labels     map[string]int
	data       []byte
	dataLabels map[string]int
	err        error
}

func NewAsm(base uint64) *Asm {
	return &Asm{Base: base, labels: make(map[string]int), dataLabels: make(map[string]int)}
}

func (a *Asm) defined(name string) bool {
	_, code := a.labels[name]
	_, data := a.dataLabels[name]
	return code || data
}

// Label names the next instruction.
func (a *Asm) Label(name string) {
	if a.defined(name) && a.err == nil {
		a.err = errors.Errorf("duplicate label %q", name)
	}
	a.labels[name] = len(a.ins)
}

func (a *Asm) emit(op, rd, rs1, rs2 int, imm int64) {
	a.ins = append(a.ins, asmIns{raw: rawIns{uint8(op), uint8(rd), uint8(rs1), uint8(rs2), imm}})
}

func (a *Asm) emitRef(op, rd, rs1, rs2 int, label string, ref int) {
	a.ins = append(a.ins, asmIns{raw: rawIns{uint8(op), uint8(rd), uint8(rs1), uint8(rs2), 0}, label: label, ref: ref})
}

// Op emits a raw instruction.
func (a *Asm) Op(op, rd, rs1, rs2 int, imm int64) { a.emit(op, rd, rs1, rs2, imm) }

func (a *Asm) Nop()                     { a.emit(OP_NOP, 0, 0, 0, 0) }
func (a *Asm) Li(rd int, imm int64)     { a.emit(OP_LI, rd, 0, 0, imm) }
func (a *Asm) Mov(rd, rs int)           { a.emit(OP_MOV, rd, rs, 0, 0) }
func (a *Asm) Add(rd, rs1, rs2 int)     { a.emit(OP_ADD, rd, rs1, rs2, 0) }
func (a *Asm) Addi(rd, rs int, i int64) { a.emit(OP_ADDI, rd, rs, 0, i) }
func (a *Asm) Sub(rd, rs1, rs2 int)     { a.emit(OP_SUB, rd, rs1, rs2, 0) }
func (a *Asm) Mul(rd, rs1, rs2 int)     { a.emit(OP_MUL, rd, rs1, rs2, 0) }
func (a *Asm) Slt(rd, rs1, rs2 int)     { a.emit(OP_SLT, rd, rs1, rs2, 0) }
func (a *Asm) Ld(rd, base int, off int64) {
	a.emit(OP_LD, rd, base, 0, off)
}
func (a *Asm) Sd(rs, base int, off int64) {
	a.emit(OP_SD, 0, base, rs, off)
}
func (a *Asm) Lw(rd, base int, off int64) {
	a.emit(OP_LW, rd, base, 0, off)
}
func (a *Asm) Sw(rs, base int, off int64) {
	a.emit(OP_SW, 0, base, rs, off)
}
func (a *Asm) Lb(rd, base int, off int64) {
	a.emit(OP_LB, rd, base, 0, off)
}
func (a *Asm) Sb(rs, base int, off int64) {
	a.emit(OP_SB, 0, base, rs, off)
}

func (a *Asm) Beq(rs1, rs2 int, label string) { a.emitRef(OP_BEQ, 0, rs1, rs2, label, refRel) }
func (a *Asm) Bne(rs1, rs2 int, label string) { a.emitRef(OP_BNE, 0, rs1, rs2, label, refRel) }
func (a *Asm) Blt(rs1, rs2 int, label string) { a.emitRef(OP_BLT, 0, rs1, rs2, label, refRel) }
func (a *Asm) Bge(rs1, rs2 int, label string) { a.emitRef(OP_BGE, 0, rs1, rs2, label, refRel) }
func (a *Asm) Jmp(label string)               { a.emitRef(OP_JMP, 0, 0, 0, label, refRel) }
func (a *Asm) Jal(rd int, label string)       { a.emitRef(OP_JAL, rd, 0, 0, label, refRel) }
func (a *Asm) Jr(rs int)                      { a.emit(OP_JR, 0, rs, 0, 0) }
func (a *Asm) Ecall()                         { a.emit(OP_ECALL, 0, 0, 0, 0) }
func (a *Asm) Ebreak()                        { a.emit(OP_EBREAK, 0, 0, 0, 0) }

// La loads the absolute address of a code or data label.
func (a *Asm) La(rd int, label string) { a.emitRef(OP_LI, rd, 0, 0, label, refAbs) }

// Call jumps to label with the return address in ra.
func (a *Asm) Call(label string) { a.Jal(cpu.RA, label) }
func (a *Asm) Ret()              { a.Jr(cpu.RA) }

// Syscall loads the syscall number into a7 and traps.
func (a *Asm) Syscall(num int) {
	a.Li(cpu.A7, int64(num))
	a.Ecall()
}

// Data appends raw bytes to the data section under label.
func (a *Asm) Data(label string, p []byte) {
	if a.defined(label) && a.err == nil {
		a.err = errors.Errorf("duplicate label %q", label)
	}
	// 8-byte align each datum
	for len(a.data)%8 != 0 {
		a.data = append(a.data, 0)
	}
	a.dataLabels[label] = len(a.data)
	a.data = append(a.data, p...)
}

func (a *Asm) Asciz(label, s string) {
	a.Data(label, append([]byte(s), 0))
}

func (a *Asm) Space(label string, n int) {
	a.Data(label, make([]byte, n))
}

func (a *Asm) Quad(label string, vals ...uint64) {
	p := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint64(p[i*8:], v)
	}
	a.Data(label, p)
}

func (a *Asm) DataBase() uint64 {
	end := a.Base + uint64(len(a.ins))*InsSize
	return (end + pageSize - 1) &^ (pageSize - 1)
}

func (a *Asm) resolve(name string) (uint64, bool) {
	if idx, ok := a.labels[name]; ok {
		return a.Base + uint64(idx)*InsSize, true
	}
	if off, ok := a.dataLabels[name]; ok {
		return a.DataBase() + uint64(off), true
	}
	return 0, false
}

// Assemble resolves labels and returns the code and data sections.
func (a *Asm) Assemble() (code, data []byte, err error) {
	if a.err != nil {
		return nil, nil, a.err
	}
	var buf bytes.Buffer
	for i, ins := range a.ins {
		raw := ins.raw
		if ins.ref != refNone {
			target, ok := a.resolve(ins.label)
			if !ok {
				return nil, nil, errors.Errorf("undefined label %q", ins.label)
			}
			pc := a.Base + uint64(i)*InsSize
			if ins.ref == refRel {
				raw.Imm = int64(target - pc)
			} else {
				raw.Imm = int64(target)
			}
		}
		if err := struc.PackWithOrder(&buf, &raw, binary.LittleEndian); err != nil {
			return nil, nil, errors.Wrap(err, "packing instruction")
		}
	}
	return buf.Bytes(), append([]byte(nil), a.data...), nil
}

// Image assembles the program into a loadable image with an r-x code
// segment and, if there is data, an rw- data segment.
func (a *Asm) Image(name string) (*loader.Image, error) {
	code, data, err := a.Assemble()
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	img := &loader.Image{
		Name:  name,
		Entry: a.Base,
		Segments: []loader.Segment{
			{Addr: a.Base, Data: code, MemSize: uint64(len(code)), Prot: cpu.PROT_READ | cpu.PROT_EXEC},
		},
	}
	if len(data) > 0 {
		img.Segments = append(img.Segments, loader.Segment{
			Addr: a.DataBase(), Data: data, MemSize: uint64(len(data)), Prot: cpu.PROT_READ | cpu.PROT_WRITE,
		})
	}
	return img, nil
}
