package trace

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

func TestTraceRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf, "initproc")
	if err != nil {
		t.Fatal(err)
	}
	events := []*Event{
		{Op: OP_SYSCALL, Pid: 1, Num: sysno.SYS_WRITE, Args: [3]uint64{1, 0x10000, 14}, Ret: 14},
		{Op: OP_TRAP, Pid: 2, Num: cpu.TrapPageFault},
		{Op: OP_EXIT, Pid: 2, Ret: ^uint64(1)},
	}
	for _, e := range events {
		if err := w.Write(e); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := NewReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if r.Header.Init != "initproc" {
		t.Fatalf("init = %q", r.Header.Init)
	}
	for i, want := range events {
		got, err := r.Next()
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if *got != *want {
			t.Fatalf("event %d: got %+v, want %+v", i, got, want)
		}
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
}

func TestBadMagic(t *testing.T) {
	data := make([]byte, 40)
	copy(data, "UCIR")
	if _, err := NewReader(bytes.NewReader(data)); err == nil {
		t.Fatal("accepted a foreign trace")
	}
}

func TestEventString(t *testing.T) {
	e := &Event{Op: OP_SYSCALL, Pid: 3, Num: sysno.SYS_WAITPID, Args: [3]uint64{^uint64(0), 0x2000}, Ret: ^uint64(1)}
	s := e.String()
	if !strings.HasPrefix(s, "[3] waitpid(") || !strings.HasSuffix(s, "= -2") {
		t.Fatalf("bad rendering: %s", s)
	}
	e = &Event{Op: OP_EXIT, Pid: 4, Ret: 7}
	if s := e.String(); s != "[4] exit 7" {
		t.Fatalf("bad rendering: %s", s)
	}
}
