package models

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Repr quotes p for traces, escaping unprintable bytes and truncating to
// strsize characters.
func Repr(p []byte, strsize int) string {
	tmp := make([]string, len(p))
	for i, b := range p {
		switch {
		case b == '\n':
			tmp[i] = "\\n"
		case b == '"' || b == '\\':
			tmp[i] = "\\" + string(b)
		case b >= 0x20 && b <= 0x7e:
			tmp[i] = string(b)
		default:
			tmp[i] = fmt.Sprintf("\\x%02x", b)
		}
	}
	out := strings.Join(tmp, "")
	if strsize > 0 && len(out) > strsize {
		for i := len(tmp) - 1; len(out) > strsize-3 && i >= 0; i-- {
			out = strings.Join(tmp[:i], "")
		}
		return "\"" + out + "\"..."
	}
	return "\"" + out + "\""
}

// HexDump renders mem as 16-byte rows of 64-bit words.
func HexDump(base uint64, mem []byte) []string {
	clean := func(p []byte) string {
		o := make([]byte, len(p))
		for i, c := range p {
			if c >= 0x20 && c <= 0x7e {
				o[i] = c
			} else {
				o[i] = '.'
			}
		}
		return string(o)
	}
	const lineSize = 16
	var out []string
	for i := 0; i < len(mem); i += lineSize {
		end := i + lineSize
		if end > len(mem) {
			end = len(mem)
		}
		line := mem[i:end]
		var blocks []string
		for j := 0; j < len(line); j += 8 {
			k := j + 8
			if k > len(line) {
				k = len(line)
			}
			blocks = append(blocks, hex.EncodeToString(line[j:k]))
		}
		out = append(out, fmt.Sprintf("0x%012x: %-33s [%s]", base+uint64(i), strings.Join(blocks, " "), clean(line)))
	}
	return out
}
