package models

import (
	"strings"
	"testing"
)

func TestRepr(t *testing.T) {
	tests := []struct {
		in      string
		strsize int
		out     string
	}{
		{"hello", 0, `"hello"`},
		{"a\nb\x00", 0, `"a\nb\x00"`},
		{"hello world", 8, `"hello"...`},
	}
	for _, test := range tests {
		if out := Repr([]byte(test.in), test.strsize); out != test.out {
			t.Errorf("Repr(%q, %d) = %s, want %s", test.in, test.strsize, out, test.out)
		}
	}
}

func TestHexDump(t *testing.T) {
	lines := HexDump(0x1000, []byte("0123456789abcdefXY"))
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "0x000000001000: 3031323334353637 3839616263646566") || !strings.HasSuffix(lines[1], "[XY]") {
		t.Fatalf("bad dump:\n%s", strings.Join(lines, "\n"))
	}
}
