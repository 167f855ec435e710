package cpu

// integer register file, RISC-V ABI names
const (
	ZERO = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6

	NumRegs
)

var RegNames = []string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// these errors are used for MemError
const (
	MEM_READ_UNMAPPED  = 19
	MEM_WRITE_UNMAPPED = 20
	MEM_FETCH_UNMAPPED = 21
	MEM_WRITE_PROT     = 12
	MEM_READ_PROT      = 13
	MEM_FETCH_PROT     = 14
)

// these constants are used for memory protections
const (
	PROT_NONE  = 0
	PROT_READ  = 1
	PROT_WRITE = 2
	PROT_EXEC  = 4
	PROT_ALL   = 7
)

// trap causes reported by Cpu.Run
const (
	TrapNone = iota
	TrapSyscall
	TrapTimer
	TrapPageFault
	TrapIllegalInstruction
	TrapBreakpoint
)

var trapNames = map[int]string{
	TrapNone:               "none",
	TrapSyscall:            "syscall",
	TrapTimer:              "timer",
	TrapPageFault:          "page fault",
	TrapIllegalInstruction: "illegal instruction",
	TrapBreakpoint:         "breakpoint",
}
