package fs

import (
	"io"
	"sync"

	"github.com/lunixbochs/taskcorn/go/mm"
)

// File is an open file handle shared between fd tables. Read and Write
// return the byte count, or -1 on error.
type File interface {
	Readable() bool
	Writable() bool
	Read(buf *mm.UserBuffer) int
	Write(buf *mm.UserBuffer) int
}

type Stdin struct {
	R io.Reader
}

func (s *Stdin) Readable() bool { return true }
func (s *Stdin) Writable() bool { return false }

func (s *Stdin) Read(buf *mm.UserBuffer) int {
	p := make([]byte, buf.Len())
	n, err := s.R.Read(p)
	if n == 0 && err != nil && err != io.EOF {
		return -1
	}
	buf.Write(p[:n])
	return n
}

func (s *Stdin) Write(buf *mm.UserBuffer) int { return -1 }

type Stdout struct {
	W io.Writer
}

func (s *Stdout) Readable() bool { return false }
func (s *Stdout) Writable() bool { return true }

func (s *Stdout) Read(buf *mm.UserBuffer) int { return -1 }

func (s *Stdout) Write(buf *mm.UserBuffer) int {
	n, err := s.W.Write(buf.Bytes())
	if err != nil && n == 0 {
		return -1
	}
	return n
}

// MemFile is an in-memory file with its own offset.
type MemFile struct {
	sync.Mutex
	Data     []byte
	off      int
	readable bool
	writable bool
}

func NewMemFile(data []byte, readable, writable bool) *MemFile {
	return &MemFile{Data: data, readable: readable, writable: writable}
}

func (m *MemFile) Readable() bool { return m.readable }
func (m *MemFile) Writable() bool { return m.writable }

func (m *MemFile) Read(buf *mm.UserBuffer) int {
	m.Lock()
	defer m.Unlock()
	if !m.readable {
		return -1
	}
	n, _ := buf.Write(m.Data[m.off:])
	m.off += n
	return n
}

// Write appends at the offset, growing the file as needed.
func (m *MemFile) Write(buf *mm.UserBuffer) int {
	m.Lock()
	defer m.Unlock()
	if !m.writable {
		return -1
	}
	p := buf.Bytes()
	if end := m.off + len(p); end > len(m.Data) {
		m.Data = append(m.Data, make([]byte, end-len(m.Data))...)
	}
	copy(m.Data[m.off:], p)
	m.off += len(p)
	return len(p)
}
