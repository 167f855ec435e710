package main

import (
	"github.com/lunixbochs/taskcorn/go/cmd"

	_ "github.com/lunixbochs/taskcorn/go/cmd/build"
	_ "github.com/lunixbochs/taskcorn/go/cmd/repl"
	_ "github.com/lunixbochs/taskcorn/go/cmd/run"
	_ "github.com/lunixbochs/taskcorn/go/cmd/trace"
)

func main() { cmd.Main() }
