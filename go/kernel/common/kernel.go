package common

import (
	"reflect"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lunixbochs/argjoy"

	"github.com/lunixbochs/taskcorn/go/models"
)

// UserMemory is the calling task's address space as seen by a syscall.
type UserMemory interface {
	// CopyOut returns the number of bytes written; fewer than len(data)
	// means the destination was partly unmapped.
	CopyOut(ptr uint64, data []byte) int
	CopyIn(ptr, size uint64) ([]byte, error)
	ReadStr(ptr uint64) (string, error)
}

type KernelBase struct {
	Syscalls map[string]Syscall
	Config   *models.Config
	Argjoy   argjoy.Argjoy
	// Mem resolves the memory of the task being served.
	Mem func() UserMemory
}

func (k *KernelBase) TaskcornKernel() *KernelBase {
	return k
}

type Kernel interface {
	TaskcornKernel() *KernelBase
}

func camelToSnakeCase(name string) string {
	var words []string
	last := 0
	for i, c := range name {
		if unicode.IsUpper(c) {
			if i > 0 {
				words = append(words, name[last:i])
			}
			last = i
		}
	}
	words = append(words, name[last:])
	return strings.ToLower(strings.Join(words, "_"))
}

// skipped even though they are exported
var notSyscalls = map[string]bool{
	"TaskcornKernel": true,
	"Syscall":        true,
	"Attach":         true,
}

// Init builds the syscall table from kf's exported methods: SetPriority
// becomes set_priority.
func Init(kf Kernel) {
	k := kf.TaskcornKernel()
	k.Syscalls = make(map[string]Syscall)
	instance := reflect.ValueOf(kf)
	typ := instance.Type()
	for i := 0; i < typ.NumMethod(); i++ {
		method := typ.Method(i)
		name := method.Name
		if notSyscalls[name] {
			continue
		}
		if strings.HasPrefix(name, "Literal") {
			name = strings.Replace(name, "Literal", "", 1)
		} else if r, size := utf8.DecodeRuneInString(name); size <= 0 || !unicode.IsUpper(r) {
			// skip private or broken unicode methods
			continue
		}
		name = camelToSnakeCase(name)
		in := make([]reflect.Type, method.Type.NumIn()-1)
		for j := 1; j < method.Type.NumIn(); j++ {
			in[j-1] = method.Type.In(j)
		}
		out := make([]reflect.Type, method.Type.NumOut())
		for j := 0; j < method.Type.NumOut(); j++ {
			out[j] = method.Type.Out(j)
		}
		k.Syscalls[name] = Syscall{
			Name:     name,
			Kernel:   k,
			Instance: instance,
			Method:   method,
			In:       in,
			Out:      out,
		}
	}
	k.Argjoy.Register(k.commonArgCodec)
	k.Argjoy.Register(argjoy.IntToInt)
}

func Lookup(kf Kernel, name string) *Syscall {
	k := kf.TaskcornKernel()
	if k.Syscalls == nil {
		Init(kf)
	}
	if sys, ok := k.Syscalls[name]; ok {
		return &sys
	}
	return nil
}
