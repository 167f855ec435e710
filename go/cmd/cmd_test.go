package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/kernel/proc"
	"github.com/lunixbochs/taskcorn/go/kernel/task"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/loader/builtin"
	"github.com/lunixbochs/taskcorn/go/models"
)

func bootCmd(t *testing.T, init string) *KernelCmd {
	c := NewKernelCmd()
	c.Config = (&models.Config{Frames: 256, InitApp: init}).Defaults()
	c.Apps = loader.NewRegistry()
	if err := builtin.Register(c.Apps); err != nil {
		t.Fatal(err)
	}
	c.P = task.NewProcessor(c.Config, c.Apps)
	c.P.Stdout = &bytes.Buffer{}
	c.Kernel = proc.NewKernel(c.P)
	if _, err := c.P.Boot(init); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestRunToCompletion(t *testing.T) {
	if err := bootCmd(t, "hello").runToCompletion(); err != nil {
		t.Fatal(err)
	}
	err := bootCmd(t, "exit7").runToCompletion()
	if status, ok := errors.Cause(err).(models.ExitStatus); !ok || status != 7 {
		t.Fatalf("got %v", err)
	}
}

func TestSetupLogging(t *testing.T) {
	var out bytes.Buffer
	SetupLogging(&out, false, false, false)
	log.Info("hidden")
	log.Warning("shown")
	if strings.Contains(out.String(), "hidden") || !strings.Contains(out.String(), "cmd   WARN shown") {
		t.Fatalf("got %q", out.String())
	}
	out.Reset()
	SetupLogging(&out, true, false, false)
	log.Info("shown")
	if !strings.Contains(out.String(), "INFO shown") {
		t.Fatalf("got %q", out.String())
	}
	if logging.GetLevel("") != logging.INFO {
		t.Fatal("level not applied")
	}
}
