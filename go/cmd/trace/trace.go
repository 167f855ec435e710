package trace

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/cmd"
	"github.com/lunixbochs/taskcorn/go/kernel/trace"
)

func PrintJson(w io.Writer, tf *trace.Reader) error {
	out, err := json.Marshal(&tf.Header)
	if err != nil {
		return errors.Wrap(err, "error printing header")
	}
	fmt.Fprintf(w, "%s\n", out)
	return each(tf, func(e *trace.Event) {
		out, _ := json.Marshal(e)
		fmt.Fprintf(w, "%s\n", out)
	})
}

func PrintPretty(w io.Writer, tf *trace.Reader) error {
	fmt.Fprintf(w, "[boot %s]\n", tf.Header.Init)
	return each(tf, func(e *trace.Event) {
		fmt.Fprintln(w, e)
	})
}

// Summarize counts events per op and syscalls per pid.
func Summarize(w io.Writer, tf *trace.Reader) error {
	ops := make(map[uint8]int)
	pids := make(map[int64]int)
	var order []int64
	err := each(tf, func(e *trace.Event) {
		ops[e.Op]++
		if e.Op == trace.OP_SYSCALL {
			if _, ok := pids[e.Pid]; !ok {
				order = append(order, e.Pid)
			}
			pids[e.Pid]++
		}
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "syscalls: %d, traps: %d, exits: %d\n", ops[trace.OP_SYSCALL], ops[trace.OP_TRAP], ops[trace.OP_EXIT])
	for _, pid := range order {
		fmt.Fprintf(w, "  pid %d: %d syscalls\n", pid, pids[pid])
	}
	return nil
}

func each(tf *trace.Reader, fn func(e *trace.Event)) error {
	for {
		e, err := tf.Next()
		if err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrap(err, "error reading next trace event")
		}
		fn(e)
	}
}

func Main(args []string) int {
	fs := flag.NewFlagSet("args", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "output trace as line-delimited JSON objects")
	prettyFlag := fs.Bool("pretty", false, "output trace as human-readable console text")
	summaryFlag := fs.Bool("summary", false, "output event counts")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <tracefile>\n", args[0])
		fs.PrintDefaults()
	}

	fs.Parse(args[1:])
	if fs.NArg() == 0 || !(*jsonFlag || *prettyFlag || *summaryFlag) {
		fs.Usage()
		return 1
	}
	path := fs.Arg(0)
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open: %s %v\n", path, err)
		return 1
	}
	tf, err := trace.NewReader(f)
	if err != nil {
		f.Close()
		fmt.Fprintf(os.Stderr, "error opening trace file: %v\n", err)
		return 1
	}
	defer tf.Close()
	switch {
	case *jsonFlag:
		err = PrintJson(os.Stdout, tf)
	case *prettyFlag:
		err = PrintPretty(os.Stdout, tf)
	default:
		err = Summarize(os.Stdout, tf)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	return 0
}

func init() { cmd.Register("trace", "print a saved trace file", Main) }
