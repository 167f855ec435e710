package loader

import (
	"fmt"
	"sort"
	"sync"

	"github.com/lunixbochs/taskcorn/go/models/cpu"
)

type Segment struct {
	Addr uint64
	Data []byte
	// MemSize may exceed len(Data); the rest is zero filled
	MemSize uint64
	Prot    int
}

func (s *Segment) String() string {
	prots := []int{cpu.PROT_READ, cpu.PROT_WRITE, cpu.PROT_EXEC}
	chars := []string{"r", "w", "x"}
	prot := ""
	for i := range prots {
		if s.Prot&prots[i] != 0 {
			prot += chars[i]
		} else {
			prot += "-"
		}
	}
	return fmt.Sprintf("%#x-%#x %s", s.Addr, s.Addr+s.MemSize, prot)
}

// Image is a loadable user program.
type Image struct {
	Name     string
	Entry    uint64
	Segments []Segment
}

type Loader interface {
	Load(name string) (*Image, bool)
}

// Registry is an in-memory Loader.
type Registry struct {
	sync.RWMutex
	images map[string]*Image
}

func NewRegistry() *Registry {
	return &Registry{images: make(map[string]*Image)}
}

// Add registers img under its name, replacing any previous image.
func (r *Registry) Add(img *Image) {
	r.Lock()
	r.images[img.Name] = img
	r.Unlock()
}

func (r *Registry) Load(name string) (*Image, bool) {
	r.RLock()
	defer r.RUnlock()
	img, ok := r.images[name]
	return img, ok
}

func (r *Registry) Names() []string {
	r.RLock()
	defer r.RUnlock()
	names := make([]string, 0, len(r.images))
	for name := range r.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
