package mm

import (
	"bytes"
	"io"

	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

const MaxStrLen = 4096

// TranslatedByteBuffer splits the user range [ptr, ptr+size) into the
// per-page frame spans backing it. On a missing page it returns the spans
// resolved so far together with a *cpu.MemError.
func TranslatedByteBuffer(pt *PageTable, ptr, size uint64) ([][]byte, error) {
	var spans [][]byte
	va := VirtAddr(ptr)
	if ptr+size < ptr {
		return nil, errors.Errorf("user range %#x+%d wraps", ptr, size)
	}
	for size > 0 {
		page, pte, ok := pt.page(va.Floor())
		if !ok || !pte.Has(PTE_U) {
			return spans, &cpu.MemError{Addr: uint64(va), Size: int(size), Enum: cpu.MEM_WRITE_UNMAPPED}
		}
		off := va.PageOffset()
		n := uint64(PageSize) - off
		if n > size {
			n = size
		}
		spans = append(spans, page[off:off+n])
		va += VirtAddr(n)
		size -= n
	}
	return spans, nil
}

// UserBuffer is a user range viewed through its frame spans. Reads and
// writes advance a shared cursor.
type UserBuffer struct {
	Spans [][]byte
	off   int
}

func NewUserBuffer(pt *PageTable, ptr, size uint64) (*UserBuffer, error) {
	spans, err := TranslatedByteBuffer(pt, ptr, size)
	if err != nil {
		return nil, err
	}
	return &UserBuffer{Spans: spans}, nil
}

func (u *UserBuffer) Len() int {
	n := 0
	for _, s := range u.Spans {
		n += len(s)
	}
	return n
}

// walk calls fn on the unconsumed part of each span until fn stops short.
func (u *UserBuffer) walk(fn func(span []byte) int) int {
	total, pos := 0, 0
	for _, s := range u.Spans {
		if pos+len(s) <= u.off {
			pos += len(s)
			continue
		}
		start := 0
		if u.off > pos {
			start = u.off - pos
		}
		rest := s[start:]
		n := fn(rest)
		total += n
		u.off += n
		pos += len(s)
		if n < len(rest) {
			break
		}
	}
	return total
}

func (u *UserBuffer) Write(p []byte) (int, error) {
	n := u.walk(func(span []byte) int {
		c := copy(span, p)
		p = p[c:]
		return c
	})
	if len(p) > 0 {
		return n, io.ErrShortWrite
	}
	return n, nil
}

func (u *UserBuffer) Read(p []byte) (int, error) {
	n := u.walk(func(span []byte) int {
		c := copy(p, span)
		p = p[c:]
		return c
	})
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Bytes returns a copy of the whole buffer regardless of the cursor.
func (u *UserBuffer) Bytes() []byte {
	return bytes.Join(u.Spans, nil)
}

// CopyOut copies data into user memory at ptr span by span and returns the
// number of bytes written. A count short of len(data) means part of the
// destination was not mapped.
func CopyOut(pt *PageTable, ptr uint64, data []byte) int {
	spans, _ := TranslatedByteBuffer(pt, ptr, uint64(len(data)))
	buf := &UserBuffer{Spans: spans}
	n, _ := buf.Write(data)
	return n
}

func CopyIn(pt *PageTable, ptr, size uint64) ([]byte, error) {
	buf, err := NewUserBuffer(pt, ptr, size)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadStr reads a NUL-terminated string of at most MaxStrLen bytes.
func ReadStr(pt *PageTable, ptr uint64) (string, error) {
	var out []byte
	va := VirtAddr(ptr)
	for len(out) < MaxStrLen {
		page, pte, ok := pt.page(va.Floor())
		if !ok || !pte.Has(PTE_U) {
			return "", &cpu.MemError{Addr: uint64(va), Size: 1, Enum: cpu.MEM_READ_UNMAPPED}
		}
		chunk := page[va.PageOffset():]
		if i := bytes.IndexByte(chunk, 0); i >= 0 {
			out = append(out, chunk[:i]...)
			if len(out) > MaxStrLen {
				break
			}
			return string(out), nil
		}
		out = append(out, chunk...)
		va += VirtAddr(len(chunk))
	}
	return "", errors.Errorf("string at %#x exceeds %d bytes", ptr, MaxStrLen)
}

// Accessible reports whether every page of [ptr, ptr+size) is a mapped user page.
func Accessible(pt *PageTable, ptr, size uint64) bool {
	_, err := TranslatedByteBuffer(pt, ptr, size)
	return err == nil
}
