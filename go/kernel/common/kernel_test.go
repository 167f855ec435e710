package common

import (
	"testing"

	"github.com/pkg/errors"
)

// flatMem is a user address space of one mapped region starting at 0.
type flatMem []byte

func (f flatMem) CopyOut(ptr uint64, data []byte) int {
	if ptr >= uint64(len(f)) {
		return 0
	}
	return copy(f[ptr:], data)
}

func (f flatMem) CopyIn(ptr, size uint64) ([]byte, error) {
	if ptr+size > uint64(len(f)) {
		return nil, errors.New("unmapped")
	}
	return append([]byte(nil), f[ptr:ptr+size]...), nil
}

func (f flatMem) ReadStr(ptr uint64) (string, error) {
	for i := ptr; i < uint64(len(f)); i++ {
		if f[i] == 0 {
			return string(f[ptr:i]), nil
		}
	}
	return "", errors.New("unterminated")
}

type testKernel struct {
	KernelBase
	exitCode int32
	path     string
}

func (k *testKernel) Exit(code int32) {
	k.exitCode = code
}

func (k *testKernel) SetPriority(prio int64) int64 {
	return prio * 2
}

func (k *testKernel) Exec(path string) int64 {
	k.path = path
	return 0
}

type pair struct {
	A uint32
	B uint64
}

func (k *testKernel) Fill(out Obuf) int64 {
	if err := out.Pack(&pair{1, 2}); err != nil {
		return -1
	}
	return 0
}

func newTestKernel(mem flatMem) *testKernel {
	k := &testKernel{}
	k.Mem = func() UserMemory { return mem }
	Init(k)
	return k
}

func TestKernel(t *testing.T) {
	mem := make(flatMem, 64)
	copy(mem[8:], "app\x00")
	k := newTestKernel(mem)
	Lookup(k, "exit").Call([]uint64{43, 0, 0})
	if k.exitCode != 43 {
		t.Fatal("Syscall failed.")
	}
	if _, err := Lookup(k, "exit").Invoke([]uint64{^uint64(6), 0, 0}); err != nil {
		t.Fatal(err)
	}
	if k.exitCode != -7 {
		t.Fatalf("exit code = %d", k.exitCode)
	}
	sys := Lookup(k, "set_priority")
	if sys == nil {
		t.Fatal("set_priority not registered")
	}
	if ret := sys.Call([]uint64{5, 0, 0}); ret != 10 {
		t.Fatalf("Syscall return failed: %d", ret)
	}
	if ret := sys.Call([]uint64{^uint64(0), 0, 0}); int64(ret) != -2 {
		t.Fatalf("negative argument lost: %d", int64(ret))
	}
	Lookup(k, "exec").Call([]uint64{8, 0, 0})
	if k.path != "app" {
		t.Fatalf("path = %q", k.path)
	}
	if Lookup(k, "taskcorn_kernel") != nil || Lookup(k, "nope") != nil {
		t.Fatal("non-syscall method registered")
	}
}

func TestObufPack(t *testing.T) {
	mem := make(flatMem, 64)
	k := newTestKernel(mem)
	fill := Lookup(k, "fill")
	if ret := fill.Call([]uint64{0, 0, 0}); ret != 0 {
		t.Fatal("pack failed")
	}
	if mem[0] != 1 || mem[4] != 2 {
		t.Fatalf("bad layout: %v", mem[:12])
	}
	// 12 bytes, only 4 of them mapped
	if ret := fill.Call([]uint64{60, 0, 0}); int64(ret) != -1 {
		t.Fatal("partial copy not reported")
	}
}

func TestCamelToSnake(t *testing.T) {
	tests := map[string]string{
		"Getpid":      "getpid",
		"SetPriority": "set_priority",
		"TaskInfo":    "task_info",
		"GetTime":     "get_time",
	}
	for in, out := range tests {
		if got := camelToSnakeCase(in); got != out {
			t.Errorf("%s -> %s, want %s", in, got, out)
		}
	}
}

func TestBadStringArg(t *testing.T) {
	mem := make(flatMem, 16)
	k := newTestKernel(mem)
	// no terminator before the end of memory
	copy(mem, "0123456789abcdef")
	if _, err := Lookup(k, "exec").Invoke([]uint64{0, 0, 0}); err == nil {
		t.Fatal("expected a conversion error")
	}
	if k.path != "" {
		t.Fatal("handler ran with a bad argument")
	}
	if _, err := Lookup(k, "exec").Invoke(nil); err == nil {
		t.Fatal("expected an argument count error")
	}
}
