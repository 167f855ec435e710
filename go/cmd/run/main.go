package run

import (
	"github.com/lunixbochs/taskcorn/go/cmd"
)

func Main(args []string) int {
	return cmd.NewKernelCmd().Run(args)
}

func init() { cmd.Register("run", "boot the init program and run until it exits", Main) }
