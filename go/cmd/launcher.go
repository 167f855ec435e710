package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"
)

type subcommand struct {
	name, desc string
	main       func(args []string) int
}

var subcommands = make(map[string]*subcommand)
var order []string

// Register adds a subcommand. main gets the arguments after the
// subcommand name, with argv[0] set to "taskcorn <name>", and returns the
// exit status.
func Register(name, desc string, main func(args []string) int) {
	if _, ok := subcommands[name]; ok {
		panic(fmt.Sprintf("subcommand %q registered twice", name))
	}
	subcommands[name] = &subcommand{name, desc, main}
	order = append(order, name)
}

func usage(w io.Writer, prog string) {
	pad := 0
	for _, name := range order {
		if len(name) > pad {
			pad = len(name)
		}
	}
	fmt.Fprintln(w, "Commands:")
	for _, name := range order {
		fmt.Fprintf(w, "  %-*s | %s\n", pad, name, subcommands[name].desc)
	}
	fmt.Fprintf(w, "\nExample: %s run -strace -init forktest\n\n", prog)
}

// Dispatch runs the subcommand named by argv[1].
func Dispatch(argv []string, stderr io.Writer) int {
	if len(argv) < 2 || argv[1] == "help" || argv[1] == "-h" {
		usage(stderr, argv[0])
		return 1
	}
	sub, ok := subcommands[argv[1]]
	if !ok {
		fmt.Fprintf(stderr, "Command '%s' not found.\n\n", argv[1])
		usage(stderr, argv[0])
		return 1
	}
	args := append([]string{strings.Join(argv[:2], " ")}, argv[2:]...)
	return sub.main(args)
}

func Main() {
	os.Exit(Dispatch(os.Args, os.Stderr))
}
