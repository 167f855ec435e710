package repl

import (
	"github.com/lunixbochs/taskcorn/go/cmd"
	"github.com/lunixbochs/taskcorn/go/ui"
)

func Main(args []string) int {
	c := cmd.NewKernelCmd()
	boot := false
	c.SetupFlags = func() error {
		c.Flags.BoolVar(&boot, "boot", false, "boot the init program before the first prompt")
		return nil
	}
	// the flag is only known after parsing
	c.NoInit = true
	c.RunKernel = func() error {
		console := ui.StdoutConsole(c.P, c.Apps, c.Config.Color)
		if boot {
			if err := console.Exec("boot " + c.Config.InitApp); err != nil {
				return err
			}
		}
		return console.Run()
	}
	return c.Run(args)
}

func init() { cmd.Register("repl", "step the kernel from an interactive console", Main) }
