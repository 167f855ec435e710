package common

import (
	"bytes"
	"encoding/binary"

	"github.com/lunixbochs/struc"
	"github.com/pkg/errors"
)

var ErrFault = errors.New("bad user address")

type (
	// Buf is a user pointer read by the kernel; Obuf is written by it.
	Buf struct {
		Addr uint64
		K    *KernelBase
	}
	Obuf struct{ Buf }
	Len  uint64
	Fd   int32
	Ptr  uint64
	Pid  int64
)

func NewBuf(k Kernel, addr uint64) Buf {
	return Buf{K: k.TaskcornKernel(), Addr: addr}
}

// Pack serializes i and copies it across the user boundary page span by
// page span. A partial copy is an ErrFault.
func (b Buf) Pack(i interface{}) error {
	var tmp bytes.Buffer
	if err := struc.PackWithOrder(&tmp, i, binary.LittleEndian); err != nil {
		return errors.Wrap(err, "struc.Pack() failed")
	}
	if n := b.K.Mem().CopyOut(b.Addr, tmp.Bytes()); n < tmp.Len() {
		return errors.Wrapf(ErrFault, "wrote %d/%d bytes at %#x", n, tmp.Len(), b.Addr)
	}
	return nil
}

func (b Buf) Unpack(i interface{}) error {
	size, err := b.Sizeof(i)
	if err != nil {
		return err
	}
	data, err := b.K.Mem().CopyIn(b.Addr, uint64(size))
	if err != nil {
		return errors.Wrap(ErrFault, err.Error())
	}
	return errors.Wrap(struc.UnpackWithOrder(bytes.NewReader(data), i, binary.LittleEndian), "struc.Unpack() failed")
}

func (b Buf) Sizeof(i interface{}) (int, error) {
	n, err := struc.Sizeof(i)
	return n, errors.Wrap(err, "struc.Sizeof() failed")
}
