package cmd

import (
	"flag"
	"fmt"
	"io"
	"strings"
)

type strslice []string

func (s *strslice) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *strslice) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// printFlags writes flag help wrapped to 80 columns, defaults in a column
// of their own.
func printFlags(w io.Writer, flags []*flag.Flag) {
	wname, wdef := 0, 0
	for _, f := range flags {
		if len(f.Name) > wname {
			wname = len(f.Name)
		}
		if len(f.DefValue) > wdef {
			wdef = len(f.DefValue)
		}
	}
	wdesc := 80 - wname - wdef - 7
	lpad := strings.Repeat(" ", wname+wdef+7)
	for _, f := range flags {
		def := ""
		if f.DefValue != "" && f.DefValue != "[]" {
			def = "(" + f.DefValue + ")"
		}
		fmt.Fprintf(w, "  -%-*s %-*s ", wname, f.Name, wdef+2, def)
		for i, line := range wrap(f.Usage, wdesc) {
			if i > 0 {
				fmt.Fprint(w, lpad)
			}
			fmt.Fprintln(w, line)
		}
	}
}

// wrap splits s at spaces or newlines into lines of at most width bytes,
// hard-breaking words that do not fit.
func wrap(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var lines []string
	for len(s) > width {
		cut := strings.LastIndexAny(s[:width+1], " \n")
		if cut <= 0 {
			lines = append(lines, s[:width])
			s = s[width:]
			continue
		}
		lines = append(lines, s[:cut])
		s = s[cut+1:]
	}
	return append(lines, s)
}
