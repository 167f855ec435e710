package common

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/lunixbochs/taskcorn/go/models"
)

func (s Syscall) strsize() int {
	if s.Kernel.Config != nil {
		return s.Kernel.Config.Strsize
	}
	return 0
}

func (s Syscall) traceArg(args ...interface{}) string {
	hex := func(a interface{}) string {
		tmp := fmt.Sprintf("0x%x", a)
		if strings.HasPrefix(tmp, "0x-") {
			tmp = "-0x" + tmp[3:]
		}
		return tmp
	}

	switch arg := args[0].(type) {
	case Obuf:
		return hex(arg.Addr)
	case Buf:
		if len(args) > 1 {
			if length, ok := args[1].(Len); ok {
				mem, err := s.Kernel.Mem().CopyIn(arg.Addr, uint64(length))
				if err == nil {
					return models.Repr(mem, s.strsize())
				}
			}
		}
		return hex(arg.Addr)
	case Ptr:
		return hex(arg)
	case Fd:
		return fmt.Sprintf("%d", int32(arg))
	case Pid:
		return fmt.Sprintf("%d", int64(arg))
	case string:
		return models.Repr([]byte(arg), s.strsize())
	case uint64:
		return hex(arg)
	case int64:
		return fmt.Sprintf("%d", arg)
	default:
		return fmt.Sprintf("%v", arg)
	}
}

func (s Syscall) traceArgs(regs []uint64) string {
	if len(regs) > len(s.In) {
		regs = regs[:len(s.In)]
	}
	inRef, err := s.Kernel.Argjoy.Convert(s.In, false, regs)
	if err != nil {
		return err.Error()
	}
	in := make([]interface{}, len(inRef))
	for i, val := range inRef {
		in[i] = val.Interface()
	}
	ret := make([]string, len(in))
	for i := range in {
		ret[i] = s.traceArg(in[i:]...)
	}
	return strings.Join(ret, ", ")
}

func (s Syscall) Trace(regs []uint64) string {
	return fmt.Sprintf("%s(%s)", s.Name, s.traceArgs(regs))
}

// TraceRet renders the result, plus any Obuf contents the call filled in
// when it returned a byte count.
func (s Syscall) TraceRet(args []uint64, ret uint64) string {
	var out []string
	for i, typ := range s.In {
		if typ == reflect.TypeOf(Obuf{}) && len(args) > i+1 && i+1 < len(s.In) && s.In[i+1] == reflect.TypeOf(Len(0)) {
			length := int64(ret)
			if uint64(length) <= args[i+1] && length >= 0 {
				if mem, err := s.Kernel.Mem().CopyIn(args[i], uint64(length)); err == nil {
					out = append(out, models.Repr(mem, s.strsize()))
				}
			}
		}
	}
	if len(s.Out) > 0 {
		out = append(out, fmt.Sprintf("%d", int64(ret)))
	}
	if len(out) > 0 {
		return fmt.Sprintf(" = %s", strings.Join(out, ", "))
	}
	return ""
}
