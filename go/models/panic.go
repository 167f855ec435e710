package models

import (
	"fmt"

	"github.com/pkg/errors"
)

// KernelError is an unrecoverable kernel condition: a broken ownership or
// bookkeeping invariant, never a user mistake.
type KernelError struct {
	Module  string
	Message string
}

func (e *KernelError) Error() string {
	return fmt.Sprintf("[%s] unrecoverable error: %s", e.Module, e.Message)
}

// Panic halts the kernel. The panic value carries a stack trace so the
// top-level handler can print where the invariant broke.
func Panic(module, format string, args ...interface{}) {
	panic(errors.WithStack(&KernelError{Module: module, Message: fmt.Sprintf(format, args...)}))
}

// AsKernelError unwraps a recovered panic value.
func AsKernelError(v interface{}) (*KernelError, bool) {
	err, ok := v.(error)
	if !ok {
		return nil, false
	}
	kerr, ok := errors.Cause(err).(*KernelError)
	return kerr, ok
}
