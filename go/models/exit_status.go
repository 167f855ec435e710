package models

import "fmt"

// ExitStatus is returned as an error when the init task exits nonzero.
type ExitStatus int

func (e ExitStatus) Error() string {
	return fmt.Sprintf("init exited with status %d", int(e))
}
