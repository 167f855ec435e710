package build

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/cmd"
	"github.com/lunixbochs/taskcorn/go/loader"
	"github.com/lunixbochs/taskcorn/go/loader/builtin"
)

// Build writes the named builtin programs, or all of them, into dir as
// image files.
func Build(dir string, names []string) ([]string, error) {
	reg := loader.NewRegistry()
	if err := builtin.Register(reg); err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = reg.Names()
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	var paths []string
	for _, name := range names {
		img, ok := reg.Load(name)
		if !ok {
			return paths, errors.Errorf("no builtin program %q", name)
		}
		path := filepath.Join(dir, name+loader.ImageExt)
		if err := loader.SaveFile(path, img); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func Main(args []string) int {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "apps", "output directory")
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [-o dir] [program...]\n", args[0])
		fs.PrintDefaults()
	}
	fs.Parse(args[1:])
	paths, err := Build(*out, fs.Args())
	for _, path := range paths {
		fmt.Println(path)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func init() { cmd.Register("build", "write the builtin programs as image files", Main) }
