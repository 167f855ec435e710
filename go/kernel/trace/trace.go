// Package trace records kernel events to a compressed trace file and reads
// them back.
package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/golang/snappy"
	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

var TRACE_MAGIC = "TCTR"

const TRACE_VERSION = 1

type Header struct {
	// MAGIC ("TCTR")
	Magic   string `struc:"[4]byte" json:"-"`
	Version uint32 `json:"version"`
	// Boot program. Right-null-padded.
	Init string `struc:"[32]byte" json:"init"`
}

const (
	OP_SYSCALL = iota + 1
	OP_TRAP
	OP_EXIT
)

// Event is one fixed-size trace record. For OP_TRAP, Num is the trap cause
// and Ret the faulting address. For OP_EXIT, Ret is the exit code.
type Event struct {
	Op   uint8     `json:"op"`
	Pid  int64     `json:"pid"`
	Num  uint64    `json:"num"`
	Args [3]uint64 `json:"args"`
	Ret  uint64    `json:"ret"`
}

func (e *Event) String() string {
	switch e.Op {
	case OP_SYSCALL:
		name, ok := sysno.Names[int(e.Num)]
		if !ok {
			name = fmt.Sprintf("syscall_%d", e.Num)
		}
		args := make([]string, len(e.Args))
		for i, v := range e.Args {
			args[i] = fmt.Sprintf("%#x", v)
		}
		return fmt.Sprintf("[%d] %s(%s) = %d", e.Pid, name, strings.Join(args, ", "), int64(e.Ret))
	case OP_TRAP:
		return fmt.Sprintf("[%d] trap %s at %#x", e.Pid, cpu.TrapName(int(e.Num)), e.Ret)
	case OP_EXIT:
		return fmt.Sprintf("[%d] exit %d", e.Pid, int64(e.Ret))
	default:
		return fmt.Sprintf("[%d] unknown op %d", e.Pid, e.Op)
	}
}

var order = binary.LittleEndian

type Writer struct {
	w  io.Writer
	zw *snappy.Writer
}

func NewWriter(w io.Writer, init string) (*Writer, error) {
	header := &Header{
		Magic:   TRACE_MAGIC,
		Version: TRACE_VERSION,
		Init:    init,
	}
	if err := struc.PackWithOrder(w, header, order); err != nil {
		return nil, errors.Wrap(err, "failed to pack header")
	}
	return &Writer{w: w, zw: snappy.NewBufferedWriter(w)}, nil
}

func (t *Writer) Write(e *Event) error {
	return errors.Wrap(struc.PackWithOrder(t.zw, e, order), "failed to pack event")
}

// Close flushes buffered events and closes the underlying writer if it is
// an io.Closer.
func (t *Writer) Close() error {
	err := t.zw.Close()
	if c, ok := t.w.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

type Reader struct {
	r      io.Reader
	zr     *snappy.Reader
	Header Header
}

func NewReader(r io.Reader) (*Reader, error) {
	t := &Reader{r: r}
	if err := struc.UnpackWithOrder(r, &t.Header, order); err != nil {
		return nil, errors.Wrap(err, "failed to unpack header")
	}
	if t.Header.Magic != TRACE_MAGIC {
		return nil, errors.New("invalid trace file magic")
	}
	if t.Header.Version != TRACE_VERSION {
		return nil, errors.Errorf("unsupported trace version %d", t.Header.Version)
	}
	t.Header.Init = strings.TrimRight(t.Header.Init, "\x00")
	t.zr = snappy.NewReader(r)
	return t, nil
}

// Next returns io.EOF after the last event.
func (t *Reader) Next() (*Event, error) {
	var e Event
	if err := struc.UnpackWithOrder(t.zr, &e, order); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to unpack event")
	}
	return &e, nil
}

func (t *Reader) Close() {
	t.zr.Reset(nil)
	if c, ok := t.r.(io.Closer); ok {
		c.Close()
	}
}
