package fs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/lunixbochs/taskcorn/go/mm"
)

func userBuffer(t *testing.T, data []byte) *mm.UserBuffer {
	t.Helper()
	return &mm.UserBuffer{Spans: [][]byte{data[:3], data[3:]}}
}

func TestConsole(t *testing.T) {
	var out bytes.Buffer
	stdout := &Stdout{W: &out}
	if n := stdout.Write(userBuffer(t, []byte("hello"))); n != 5 || out.String() != "hello" {
		t.Fatalf("wrote %d %q", n, out.String())
	}
	if stdout.Read(userBuffer(t, make([]byte, 4))) != -1 {
		t.Fatal("stdout is readable")
	}
	stdin := &Stdin{R: strings.NewReader("abcdef")}
	p := make([]byte, 4)
	if n := stdin.Read(userBuffer(t, p)); n != 4 || string(p) != "abcd" {
		t.Fatalf("read %d %q", n, p)
	}
}

func TestMemFile(t *testing.T) {
	f := NewMemFile(nil, true, true)
	if n := f.Write(userBuffer(t, []byte("abcdef"))); n != 6 {
		t.Fatalf("wrote %d", n)
	}
	if string(f.Data) != "abcdef" {
		t.Fatalf("data = %q", f.Data)
	}
	ro := NewMemFile([]byte("xyz"), true, false)
	if ro.Write(userBuffer(t, []byte("abcd"))) != -1 {
		t.Fatal("wrote to read-only file")
	}
	p := make([]byte, 5)
	if n := ro.Read(userBuffer(t, p)); n != 3 || string(p[:3]) != "xyz" {
		t.Fatalf("read %d %q", n, p)
	}
}
