package cmd

import (
	"bytes"
	"strings"
	"testing"
)

func TestDispatch(t *testing.T) {
	var got []string
	Register("echo-test", "record arguments", func(args []string) int {
		got = args
		return 3
	})
	var stderr bytes.Buffer
	if code := Dispatch([]string{"taskcorn", "echo-test", "-v", "x"}, &stderr); code != 3 {
		t.Fatalf("exit %d", code)
	}
	if strings.Join(got, ",") != "taskcorn echo-test,-v,x" {
		t.Fatalf("args %q", got)
	}
	if code := Dispatch([]string{"taskcorn", "nope"}, &stderr); code != 1 {
		t.Fatal("unknown command accepted")
	}
	if !strings.Contains(stderr.String(), "echo-test | record arguments") {
		t.Fatalf("usage:\n%s", stderr.String())
	}
}
