package build

import (
	"path/filepath"
	"testing"

	"github.com/lunixbochs/taskcorn/go/loader"
)

func TestBuildLoadDir(t *testing.T) {
	dir := t.TempDir()
	paths, err := Build(dir, []string{"hello", "exit7"})
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || filepath.Base(paths[0]) != "hello"+loader.ImageExt {
		t.Fatalf("paths %v", paths)
	}
	reg := loader.NewRegistry()
	n, err := loader.LoadDir(reg, dir)
	if err != nil || n != 2 {
		t.Fatalf("LoadDir: %d, %v", n, err)
	}
	if _, ok := reg.Load("exit7"); !ok {
		t.Fatal("exit7 not loaded")
	}
	if _, err := Build(dir, []string{"nope"}); err == nil {
		t.Fatal("built an unknown program")
	}
}
