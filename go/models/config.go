package models

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

type Config struct {
	Color     bool   `json:"color"`
	Quiet     bool   `json:"quiet"`
	TraceSys  bool   `json:"strace"`
	TraceFile string `json:"trace_file"`
	Verbose   bool   `json:"verbose"`
	Strsize   int    `json:"strsize"`

	// instructions a task runs before the timer preempts it
	TimeSlice int `json:"time_slice"`
	// simulated physical memory, in pages
	Frames int `json:"frames"`

	InitApp string `json:"init"`
	AppDir  string `json:"app_dir"`
}

const (
	DefaultTimeSlice = 1000
	DefaultFrames    = 8192
	DefaultStrsize   = 30
)

// Defaults fills unset fields, so a zero Config is usable.
func (c *Config) Defaults() *Config {
	if c.TimeSlice <= 0 {
		c.TimeSlice = DefaultTimeSlice
	}
	if c.Frames <= 0 {
		c.Frames = DefaultFrames
	}
	if c.Strsize <= 0 {
		c.Strsize = DefaultStrsize
	}
	if c.InitApp == "" {
		c.InitApp = "initproc"
	}
	return c
}

// LoadJSON overlays the settings in path onto c.
func (c *Config) LoadJSON(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := json.NewDecoder(f).Decode(c); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}
