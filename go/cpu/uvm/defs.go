package uvm

// every instruction is op, rd, rs1, rs2 bytes followed by a little-endian imm64
const InsSize = 12

const (
	OP_NOP = 0x00
	OP_LI  = 0x01
	OP_MOV = 0x02

	OP_ADD  = 0x10
	OP_ADDI = 0x11
	OP_SUB  = 0x12
	OP_MUL  = 0x13
	OP_AND  = 0x14
	OP_OR   = 0x15
	OP_XOR  = 0x16
	OP_SLL  = 0x17
	OP_SRL  = 0x18
	OP_SLLI = 0x19
	OP_SRLI = 0x1a
	OP_SLT  = 0x1b

	OP_LD = 0x20
	OP_SD = 0x21
	OP_LW = 0x22
	OP_SW = 0x23
	OP_LB = 0x24
	OP_SB = 0x25

	OP_BEQ = 0x30
	OP_BNE = 0x31
	OP_BLT = 0x32
	OP_BGE = 0x33
	OP_JMP = 0x38
	OP_JAL = 0x39
	OP_JR  = 0x3a

	OP_ECALL  = 0x40
	OP_EBREAK = 0x41
)

// operand layouts, used by the disassembler
const (
	A_NONE   = iota
	A_RI     // rd, imm
	A_RR     // rd, rs1
	A_RRR    // rd, rs1, rs2
	A_RRI    // rd, rs1, imm
	A_LOAD   // rd, imm(rs1)
	A_STORE  // rs2, imm(rs1)
	A_BRANCH // rs1, rs2, off
	A_JUMP   // off
	A_LINK   // rd, off
	A_REG    // rs1
)

type op struct {
	name string
	arg  int
}

var opData = map[int]op{
	OP_NOP:    {"nop", A_NONE},
	OP_LI:     {"li", A_RI},
	OP_MOV:    {"mov", A_RR},
	OP_ADD:    {"add", A_RRR},
	OP_ADDI:   {"addi", A_RRI},
	OP_SUB:    {"sub", A_RRR},
	OP_MUL:    {"mul", A_RRR},
	OP_AND:    {"and", A_RRR},
	OP_OR:     {"or", A_RRR},
	OP_XOR:    {"xor", A_RRR},
	OP_SLL:    {"sll", A_RRR},
	OP_SRL:    {"srl", A_RRR},
	OP_SLLI:   {"slli", A_RRI},
	OP_SRLI:   {"srli", A_RRI},
	OP_SLT:    {"slt", A_RRR},
	OP_LD:     {"ld", A_LOAD},
	OP_SD:     {"sd", A_STORE},
	OP_LW:     {"lw", A_LOAD},
	OP_SW:     {"sw", A_STORE},
	OP_LB:     {"lb", A_LOAD},
	OP_SB:     {"sb", A_STORE},
	OP_BEQ:    {"beq", A_BRANCH},
	OP_BNE:    {"bne", A_BRANCH},
	OP_BLT:    {"blt", A_BRANCH},
	OP_BGE:    {"bge", A_BRANCH},
	OP_JMP:    {"jmp", A_JUMP},
	OP_JAL:    {"jal", A_LINK},
	OP_JR:     {"jr", A_REG},
	OP_ECALL:  {"ecall", A_NONE},
	OP_EBREAK: {"ebreak", A_NONE},
}

// access widths of the load/store ops
var memSize = map[int]int{
	OP_LD: 8, OP_SD: 8,
	OP_LW: 4, OP_SW: 4,
	OP_LB: 1, OP_SB: 1,
}
