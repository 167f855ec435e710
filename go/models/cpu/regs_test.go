package cpu

import (
	"testing"
)

func TestRegs(t *testing.T) {
	ctx := AppInitContext(0x1000, 0x8000)
	if ctx.Sepc != 0x1000 || ctx.X[SP] != 0x8000 {
		t.Fatalf("bad init context: %+v", ctx)
	}
	if err := ctx.RegWrite(A0, 42); err != nil {
		t.Fatal(err)
	}
	if val, _ := ctx.RegRead(A0); val != 42 {
		t.Fatalf("a0 = %d", val)
	}
	ctx.RegWrite(ZERO, 1)
	if ctx.X[ZERO] != 0 {
		t.Fatal("zero register was written")
	}
	if _, err := ctx.RegRead(NumRegs); err == nil {
		t.Fatal("expected invalid register error")
	}
}

func TestSyscallArgs(t *testing.T) {
	ctx := &TrapContext{}
	ctx.X[A7] = 93
	ctx.X[A0], ctx.X[A1], ctx.X[A2] = 1, 2, 3
	num, args := ctx.SyscallArgs()
	if num != 93 || len(args) != 3 || args[0] != 1 || args[2] != 3 {
		t.Fatalf("bad args: %d %v", num, args)
	}
	dup := ctx.Clone()
	dup.SetReturn(7)
	if ctx.X[A0] != 1 || dup.X[A0] != 7 {
		t.Fatal("clone shares state")
	}
}
