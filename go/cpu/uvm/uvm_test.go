package uvm

import (
	"testing"

	"github.com/lunixbochs/taskcorn/go/mm"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

func setup(t *testing.T, a *Asm) (*mm.MemorySet, *cpu.TrapContext) {
	t.Helper()
	img, err := a.Image("test")
	if err != nil {
		t.Fatal(err)
	}
	ms, sp, entry, err := mm.FromImage(mm.NewFrameAllocator(0, 64), img)
	if err != nil {
		t.Fatal(err)
	}
	return ms, cpu.AppInitContext(entry, sp)
}

func TestArith(t *testing.T) {
	a := NewAsm(0x10000)
	a.Li(cpu.T0, 6)
	a.Li(cpu.T1, 7)
	a.Mul(cpu.A0, cpu.T0, cpu.T1)
	a.Addi(cpu.A0, cpu.A0, -2)
	a.Li(cpu.T2, 1)
	a.Sub(cpu.A1, cpu.ZERO, cpu.T2)
	a.Slt(cpu.A2, cpu.A1, cpu.T2)
	a.Ecall()
	ms, ctx := setup(t, a)
	trap := (&Uvm{}).Run(ctx, ms, 100)
	if trap.Cause != cpu.TrapSyscall {
		t.Fatalf("unexpected trap: %v", trap)
	}
	if ctx.X[cpu.A0] != 40 || ctx.X[cpu.A1] != ^uint64(0) || ctx.X[cpu.A2] != 1 {
		t.Fatalf("bad regs: a0=%d a1=%#x a2=%d", ctx.X[cpu.A0], ctx.X[cpu.A1], ctx.X[cpu.A2])
	}
	if ctx.Sepc != trap.Addr || trap.Steps != 8 {
		t.Fatalf("ecall advanced pc or miscounted: %#x %v", ctx.Sepc, trap)
	}
}

func TestLoopAndMemory(t *testing.T) {
	a := NewAsm(0x10000)
	a.La(cpu.S0, "counter")
	a.Li(cpu.T0, 0)
	a.Li(cpu.T1, 10)
	a.Label("loop")
	a.Addi(cpu.T0, cpu.T0, 1)
	a.Sd(cpu.T0, cpu.S0, 0)
	a.Blt(cpu.T0, cpu.T1, "loop")
	a.Ld(cpu.A0, cpu.S0, 0)
	a.Call("double")
	a.Ecall()
	a.Label("double")
	a.Add(cpu.A0, cpu.A0, cpu.A0)
	a.Ret()
	a.Quad("counter", 0)
	ms, ctx := setup(t, a)
	trap := (&Uvm{}).Run(ctx, ms, 1000)
	if trap.Cause != cpu.TrapSyscall || ctx.X[cpu.A0] != 20 {
		t.Fatalf("trap %v a0=%d", trap, ctx.X[cpu.A0])
	}
}

func TestTraps(t *testing.T) {
	a := NewAsm(0x10000)
	a.Label("spin")
	a.Jmp("spin")
	ms, ctx := setup(t, a)
	if trap := (&Uvm{}).Run(ctx, ms, 50); trap.Cause != cpu.TrapTimer || trap.Steps != 50 {
		t.Fatalf("expected timer trap, got %v", trap)
	}

	a = NewAsm(0x10000)
	a.Li(cpu.T0, 0x1000)
	a.Sd(cpu.T0, cpu.T0, 0)
	ms, ctx = setup(t, a)
	if trap := (&Uvm{}).Run(ctx, ms, 50); trap.Cause != cpu.TrapPageFault || trap.Addr != 0x1000 {
		t.Fatalf("expected page fault, got %v", trap)
	}

	// code is not writable
	a = NewAsm(0x10000)
	a.Li(cpu.T0, 0x10000)
	a.Sb(cpu.T0, cpu.T0, 0)
	ms, ctx = setup(t, a)
	if trap := (&Uvm{}).Run(ctx, ms, 50); trap.Cause != cpu.TrapPageFault {
		t.Fatalf("expected page fault, got %v", trap)
	}

	a = NewAsm(0x10000)
	a.Op(0xff, 0, 0, 0, 0)
	ms, ctx = setup(t, a)
	if trap := (&Uvm{}).Run(ctx, ms, 50); trap.Cause != cpu.TrapIllegalInstruction || trap.Addr != 0x10000 {
		t.Fatalf("expected illegal instruction, got %v", trap)
	}
}

func TestAsmErrors(t *testing.T) {
	a := NewAsm(0)
	a.Jmp("nowhere")
	if _, _, err := a.Assemble(); err == nil {
		t.Fatal("undefined label assembled")
	}
	a = NewAsm(0)
	a.Label("x")
	a.Asciz("x", "dup")
	if _, _, err := a.Assemble(); err == nil {
		t.Fatal("duplicate label assembled")
	}
}

func TestDis(t *testing.T) {
	a := NewAsm(0x1000)
	a.Label("top")
	a.Li(cpu.A0, 1)
	a.Ld(cpu.A1, cpu.SP, 8)
	a.Bne(cpu.A0, cpu.A1, "top")
	a.Ecall()
	code, _, err := a.Assemble()
	if err != nil {
		t.Fatal(err)
	}
	out, _ := (&Dis{}).Dis(code, 0x1000)
	want := []string{"li a0, 0x1", "ld a1, 8(sp)", "bne a0, a1, 0x1000", "ecall"}
	if len(out) != len(want) {
		t.Fatalf("decoded %d instructions", len(out))
	}
	for i, v := range out {
		if s := v.(*ins).String(); s != want[i] {
			t.Errorf("ins %d: %q != %q", i, s, want[i])
		}
	}
}
