package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/op/go-logging"
	"github.com/pkg/errors"
	"github.com/shibukawa/configdir"

	"github.com/lunixbochs/taskcorn/go/kernel/proc"
	"github.com/lunixbochs/taskcorn/go/kernel/task"
	"github.com/lunixbochs/taskcorn/go/kernel/trace"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/loader/builtin"
	"github.com/lunixbochs/taskcorn/go/models"
)

var log = logging.MustGetLogger("cmd")

// ConfigFile is looked up in the user and system config directories.
const ConfigFile = "config.json"

// KernelCmd holds the flags and the kernel they configure. Subcommands add
// their own flags in SetupFlags and take over after boot in RunKernel.
type KernelCmd struct {
	Config *models.Config
	Flags  *flag.FlagSet

	SetupFlags func() error
	RunKernel  func() error
	Teardown   func()
	// NoInit skips booting the init program.
	NoInit bool

	Apps   *loader.Registry
	P      *task.Processor
	Kernel *proc.Kernel
	trace  *trace.Writer
}

func NewKernelCmd() *KernelCmd {
	return &KernelCmd{Flags: flag.NewFlagSet("cli", flag.ExitOnError)}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

func (c *KernelCmd) PrintError(err error) {
	// print an error, and a stacktrace if available
	fmt.Fprintf(os.Stderr, "%s\n", strings.Repeat("-", 40))
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	if err, ok := err.(stackTracer); ok {
		var frames [][2]string
		width := 0
		for _, f := range err.StackTrace() {
			fileline := fmt.Sprintf("%s:%d", f, f)
			method := fmt.Sprintf("%n", f)
			frames = append(frames, [2]string{fileline, method})
			if len(fileline) > width {
				width = len(fileline)
			}
			if method == "main" {
				break
			}
		}
		for _, f := range frames {
			fmt.Fprintf(os.Stderr, "%-*s | %s()\n", width, f[0], f[1])
		}
	}
}

// loadConfig overlays the first config.json found in the config
// directories onto the defaults.
func loadConfig() (*models.Config, error) {
	config := &models.Config{}
	configDirs := configdir.New("taskcorn", "taskcorn")
	if folder := configDirs.QueryFolderContainsFile(ConfigFile); folder != nil {
		path := folder.Path + string(os.PathSeparator) + ConfigFile
		if err := config.LoadJSON(path); err != nil {
			return nil, err
		}
		log.Debugf("loaded %s", path)
	}
	return config.Defaults(), nil
}

// SetupLogging sends every module's log to out. The level is WARNING, or
// INFO with verbose and ERROR with quiet.
func SetupLogging(out io.Writer, verbose, quiet bool, color bool) {
	backend := logging.NewLogBackend(out, "", 0)
	layout := `%{time:15:04:05.000} %{module:-5s} %{level:.4s} %{message}`
	if color {
		layout = `%{color}%{time:15:04:05.000} %{module:-5s} %{level:.4s}%{color:reset} %{message}`
	}
	leveled := logging.AddModuleLevel(logging.NewBackendFormatter(backend, logging.MustStringFormatter(layout)))
	level := logging.WARNING
	if verbose {
		level = logging.INFO
	}
	if quiet {
		level = logging.ERROR
	}
	leveled.SetLevel(level, "")
	logging.SetBackend(leveled)
}

func (c *KernelCmd) usage() {
	fs := c.Flags
	fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\nOptions:\n", fs.Name())
	var flags []*flag.Flag
	fs.VisitAll(func(f *flag.Flag) { flags = append(flags, f) })
	printFlags(os.Stderr, flags)
	fmt.Fprintf(os.Stderr, "\nExample:\n  %s -strace -init forktest\n", fs.Name())
}

// Setup parses argv and builds the kernel without running it.
func (c *KernelCmd) Setup(argv []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}
	c.Config = config
	fs := c.Flags
	fs.BoolVar(&config.TraceSys, "strace", config.TraceSys, "trace syscalls")
	fs.StringVar(&config.TraceFile, "to", config.TraceFile, "binary trace output file")
	fs.IntVar(&config.Strsize, "strsize", config.Strsize, "limit -strace'd strings to length (0 disables)")
	fs.BoolVar(&config.Verbose, "v", config.Verbose, "verbose output")
	fs.BoolVar(&config.Quiet, "q", config.Quiet, "only log errors")
	fs.BoolVar(&config.Color, "color", config.Color, "colorize logs and the console when writing to a terminal")
	fs.IntVar(&config.TimeSlice, "slice", config.TimeSlice, "instructions per time slice")
	fs.IntVar(&config.Frames, "frames", config.Frames, "physical memory size in pages")
	fs.StringVar(&config.InitApp, "init", config.InitApp, "program to boot")
	fs.StringVar(&config.AppDir, "apps", config.AppDir, "directory of .tci images to add to the builtin programs")
	fs.Usage = c.usage
	if c.SetupFlags != nil {
		if err := c.SetupFlags(); err != nil {
			return err
		}
	}
	fs.Parse(argv[1:])

	color := config.Color && isatty.IsTerminal(os.Stderr.Fd())
	SetupLogging(os.Stderr, config.Verbose, config.Quiet, color)

	c.Apps = loader.NewRegistry()
	if err := builtin.Register(c.Apps); err != nil {
		return errors.Wrap(err, "assembling builtin programs")
	}
	if config.AppDir != "" {
		n, err := loader.LoadDir(c.Apps, config.AppDir)
		if err != nil {
			return err
		}
		log.Infof("loaded %d images from %s", n, config.AppDir)
	}
	c.P = task.NewProcessor(config, c.Apps)
	c.Kernel = proc.NewKernel(c.P)
	if config.TraceSys {
		c.Kernel.Strace = os.Stderr
	}
	if config.TraceFile != "" {
		f, err := os.Create(config.TraceFile)
		if err != nil {
			return errors.Wrap(err, "creating trace file")
		}
		w, err := trace.NewWriter(f, config.InitApp)
		if err != nil {
			f.Close()
			return err
		}
		c.trace = w
		c.Kernel.Attach(w)
	}
	if !c.NoInit {
		if _, err := c.P.Boot(config.InitApp); err != nil {
			return err
		}
	}
	return nil
}

func (c *KernelCmd) teardown() {
	if c.trace != nil {
		if err := c.trace.Close(); err != nil {
			log.Errorf("closing trace: %v", err)
		}
		c.trace = nil
	}
	if c.Teardown != nil {
		c.Teardown()
	}
}

// Run returns the process exit status: init's exit code, or 1 if the
// kernel failed.
func (c *KernelCmd) Run(argv []string) (status int) {
	defer func() {
		if r := recover(); r != nil {
			kerr, ok := models.AsKernelError(r)
			if !ok {
				panic(r)
			}
			c.teardown()
			if err, ok := r.(error); ok {
				c.PrintError(err)
			} else {
				c.PrintError(kerr)
			}
			status = 1
		}
	}()
	if err := c.Setup(argv); err != nil {
		c.PrintError(err)
		return 1
	}
	defer c.teardown()

	var err error
	if c.RunKernel != nil {
		err = c.RunKernel()
	} else {
		err = c.runToCompletion()
	}
	if err != nil {
		if e, ok := errors.Cause(err).(models.ExitStatus); ok {
			return int(e)
		}
		c.PrintError(err)
		return 1
	}
	return 0
}

func (c *KernelCmd) runToCompletion() error {
	if err := c.P.Run(context.Background()); err != nil {
		return err
	}
	code, ok := c.P.InitExit()
	if !ok {
		return errors.New("init never exited")
	}
	if code != 0 {
		return models.ExitStatus(code)
	}
	return nil
}
