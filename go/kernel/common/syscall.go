package common

import (
	"reflect"

	"github.com/pkg/errors"
)

type Syscall struct {
	Name     string
	Kernel   *KernelBase
	Instance reflect.Value
	Method   reflect.Method
	In       []reflect.Type
	Out      []reflect.Type
}

// Invoke calls a syscall from the dispatch table. Arguments that cannot be
// converted, like a string pointer into unmapped memory, are returned as an
// error without calling the handler.
func (sys Syscall) Invoke(args []uint64) (uint64, error) {
	if len(args) < len(sys.In) {
		return 0, errors.Errorf("not enough arguments to syscall '%s': wanted %d, got %d", sys.Name, len(sys.In), len(args))
	}
	in := make([]reflect.Value, len(sys.In)+1)
	in[0] = sys.Instance
	// convert syscall arguments
	converted, err := sys.Kernel.Argjoy.Convert(sys.In, false, args[:len(sys.In)])
	if err != nil {
		return 0, errors.Wrapf(err, "calling %T.%s()", sys.Instance.Interface(), sys.Method.Name)
	}
	copy(in[1:], converted)
	// call handler function
	out := sys.Method.Func.Call(in)
	// return output if first return of function is representable as an int type
	Uint64Type := reflect.TypeOf(uint64(0))
	if len(out) > 0 && out[0].Type().ConvertibleTo(Uint64Type) {
		return out[0].Convert(Uint64Type).Uint(), nil
	}
	return 0, nil
}

// Call is Invoke for callers that treat bad arguments as a kernel bug.
func (sys Syscall) Call(args []uint64) uint64 {
	ret, err := sys.Invoke(args)
	if err != nil {
		panic(err)
	}
	return ret
}
