package builtin

import (
	"testing"

	"github.com/lunixbochs/taskcorn/go/cpu/uvm"
	"github.com/lunixbochs/taskcorn/go/loader"
)

func TestRegister(t *testing.T) {
	r := loader.NewRegistry()
	if err := Register(r); err != nil {
		t.Fatal(err)
	}
	for _, name := range append([]string{"initproc", "prio5", "prio10"}, DefaultApps...) {
		img, ok := r.Load(name)
		if !ok {
			t.Fatalf("%s not registered", name)
		}
		code := img.Segments[0].Data
		ins, _ := (&uvm.Dis{}).Dis(code, img.Entry)
		if len(ins)*uvm.InsSize != len(code) {
			t.Errorf("%s: only %d of %d bytes decode", name, len(ins)*uvm.InsSize, len(code))
		}
	}
	if _, err := Assemble("nope"); err == nil {
		t.Fatal("assembled unknown program")
	}
}
