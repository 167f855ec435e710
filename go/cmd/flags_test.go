package cmd

import (
	"bytes"
	"flag"
	"strings"
	"testing"
)

func TestWrap(t *testing.T) {
	lines := wrap("trace every syscall as it returns", 12)
	want := []string{"trace every", "syscall as", "it returns"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("got %q", lines)
	}
	if lines := wrap("abcdefgh", 3); strings.Join(lines, "|") != "abc|def|gh" {
		t.Fatalf("got %q", lines)
	}
}

func TestPrintFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("strsize", 30, "limit traced strings to this length")
	fs.Bool("v", false, "verbose")
	var out bytes.Buffer
	var flags []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
	printFlags(&out, flags)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[0], "  -strsize (30)") {
		t.Fatalf("unexpected help:\n%s", out.String())
	}
}
