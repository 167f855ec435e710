// Package builtin assembles the user programs bundled with the kernel.
package builtin

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/lunixbochs/taskcorn/go/cpu/uvm"
	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/loader"
	. "github.com/lunixbochs/taskcorn/go/models/cpu"
)

const TextBase = 0x10000

// DefaultApps are started by the default initproc.
var DefaultApps = []string{
	"hello", "forktest", "exectest", "spawntest", "mmaptest", "sbrktest",
	"taskinfo", "yieldloop", "exit7", "pgfault",
}

var programs = map[string]func(a *uvm.Asm){
	"hello":     hello,
	"exit7":     func(a *uvm.Asm) { exit(a, 7) },
	"forktest":  forktest,
	"exectest":  exectest,
	"spawntest": spawntest,
	"mmaptest":  mmaptest,
	"sbrktest":  sbrktest,
	"taskinfo":  taskinfo,
	"yieldloop": yieldloop,
	"pgfault":   pgfault,
}

func init() {
	for n := 5; n <= 10; n++ {
		prio := n
		programs[fmt.Sprintf("prio%d", n)] = func(a *uvm.Asm) { priority(a, prio) }
	}
}

// Assemble builds the named program.
func Assemble(name string) (*loader.Image, error) {
	if name == "initproc" {
		return Initproc(DefaultApps)
	}
	gen, ok := programs[name]
	if !ok {
		return nil, errors.Errorf("no builtin program %q", name)
	}
	a := uvm.NewAsm(TextBase)
	gen(a)
	return a.Image(name)
}

// Register adds initproc and every bundled program to r.
func Register(r *loader.Registry) error {
	names := []string{"initproc"}
	for name := range programs {
		names = append(names, name)
	}
	for _, name := range names {
		img, err := Assemble(name)
		if err != nil {
			return err
		}
		r.Add(img)
	}
	return nil
}

// Initproc builds an init program that spawns each app in turn, then reaps
// children until none remain and exits 0.
func Initproc(apps []string) (*loader.Image, error) {
	a := uvm.NewAsm(TextBase)
	var list []byte
	for _, app := range apps {
		list = append(list, app...)
		list = append(list, 0)
	}
	list = append(list, 0)
	a.Data("apps", list)
	a.Space("code", 8)

	a.La(S0, "apps")
	a.Label("spawn")
	a.Lb(T0, S0, 0)
	a.Beq(T0, ZERO, "reap")
	a.Mov(A0, S0)
	a.Syscall(sysno.SYS_SPAWN)
	// skip past the name's terminator
	a.Label("skip")
	a.Lb(T0, S0, 0)
	a.Addi(S0, S0, 1)
	a.Bne(T0, ZERO, "skip")
	a.Jmp("spawn")

	a.Label("reap")
	a.Li(A0, -1)
	a.La(A1, "code")
	a.Syscall(sysno.SYS_WAITPID)
	a.Li(T0, -1)
	a.Beq(A0, T0, "done")
	a.Li(T0, -2)
	a.Bne(A0, T0, "reap")
	a.Syscall(sysno.SYS_YIELD)
	a.Jmp("reap")

	a.Label("done")
	exit(a, 0)
	return a.Image("initproc")
}

func exit(a *uvm.Asm, code int64) {
	a.Li(A0, code)
	a.Syscall(sysno.SYS_EXIT)
}

// puts writes a string from the data section to stdout.
func puts(a *uvm.Asm, label, s string) {
	a.Asciz(label, s)
	a.Li(A0, 1)
	a.La(A1, label)
	a.Li(A2, int64(len(s)))
	a.Syscall(sysno.SYS_WRITE)
}

// expect branches to label unless reg equals val.
func expect(a *uvm.Asm, reg int, val int64, label string) {
	a.Li(T6, val)
	a.Bne(reg, T6, label)
}

func failBlock(a *uvm.Asm) {
	a.Label("fail")
	exit(a, 1)
}

// waitFor reaps the pid in S0, yielding while it runs. The exit code is
// left in A0.
func waitFor(a *uvm.Asm) {
	a.Space("code", 8)
	a.Label("wait")
	a.Mov(A0, S0)
	a.La(A1, "code")
	a.Syscall(sysno.SYS_WAITPID)
	a.Li(T0, -2)
	a.Bne(A0, T0, "reaped")
	a.Syscall(sysno.SYS_YIELD)
	a.Jmp("wait")
	a.Label("reaped")
	a.Bne(A0, S0, "fail")
	a.La(T0, "code")
	a.Lw(A0, T0, 0)
}

func hello(a *uvm.Asm) {
	puts(a, "msg", "Hello, world!\n")
	exit(a, 0)
}

func forktest(a *uvm.Asm) {
	a.Syscall(sysno.SYS_FORK)
	a.Bne(A0, ZERO, "parent")
	puts(a, "child", "forktest: child\n")
	exit(a, 3)

	a.Label("parent")
	a.Blt(A0, ZERO, "fail")
	a.Mov(S0, A0)
	waitFor(a)
	expect(a, A0, 3, "fail")
	puts(a, "ok", "forktest: ok\n")
	exit(a, 0)
	failBlock(a)
}

func exectest(a *uvm.Asm) {
	a.Asciz("path", "exit7")
	a.Asciz("missing", "no-such-app")
	a.Syscall(sysno.SYS_FORK)
	a.Bne(A0, ZERO, "parent")
	a.La(A0, "missing")
	a.Syscall(sysno.SYS_EXEC)
	expect(a, A0, -1, "fail")
	a.La(A0, "path")
	a.Syscall(sysno.SYS_EXEC)
	// only reached if exec failed
	exit(a, 1)

	a.Label("parent")
	a.Mov(S0, A0)
	waitFor(a)
	expect(a, A0, 7, "fail")
	puts(a, "ok", "exectest: ok\n")
	exit(a, 0)
	failBlock(a)
}

func spawntest(a *uvm.Asm) {
	a.Asciz("path", "exit7")
	a.La(A0, "path")
	a.Syscall(sysno.SYS_SPAWN)
	a.Blt(A0, ZERO, "fail")
	a.Mov(S0, A0)
	waitFor(a)
	expect(a, A0, 7, "fail")

	// unknown programs fail without side effects
	a.Asciz("missing", "no-such-app")
	a.La(A0, "missing")
	a.Syscall(sysno.SYS_SPAWN)
	expect(a, A0, -1, "fail")
	puts(a, "ok", "spawntest: ok\n")
	exit(a, 0)
	failBlock(a)
}

const mmapBase = 0x10000000

func mmap(a *uvm.Asm, start, size, port int64) {
	a.Li(A0, start)
	a.Li(A1, size)
	a.Li(A2, port)
	a.Syscall(sysno.SYS_MMAP)
}

func munmap(a *uvm.Asm, start, size int64) {
	a.Li(A0, start)
	a.Li(A1, size)
	a.Syscall(sysno.SYS_MUNMAP)
}

func mmaptest(a *uvm.Asm) {
	mmap(a, mmapBase, 0x2000, PROT_READ|PROT_WRITE)
	expect(a, A0, 0, "fail")
	a.Li(T0, mmapBase)
	a.Li(T1, 0x5a5a)
	a.Sd(T1, T0, 0x1ff8)
	a.Ld(T2, T0, 0x1ff8)
	a.Bne(T1, T2, "fail")

	// overlapping, unaligned and bad ports are rejected
	mmap(a, mmapBase+0x1000, 0x1000, PROT_READ)
	expect(a, A0, -1, "fail")
	mmap(a, mmapBase+0x10, 0x1000, PROT_READ)
	expect(a, A0, -1, "fail")
	mmap(a, mmapBase+0x4000, 0x1000, 0)
	expect(a, A0, -1, "fail")
	mmap(a, mmapBase+0x4000, 0x1000, 8)
	expect(a, A0, -1, "fail")

	// a partly unmapped range is left alone
	munmap(a, mmapBase+0x1000, 0x2000)
	expect(a, A0, -1, "fail")
	a.Li(T0, mmapBase)
	a.Ld(T2, T0, 0x1ff8)
	a.Bne(T1, T2, "fail")

	munmap(a, mmapBase, 0x2000)
	expect(a, A0, 0, "fail")
	munmap(a, mmapBase, 0x1000)
	expect(a, A0, -1, "fail")
	puts(a, "ok", "mmaptest: ok\n")
	exit(a, 0)
	failBlock(a)
}

func sbrk(a *uvm.Asm, delta int64) {
	a.Li(A0, delta)
	a.Syscall(sysno.SYS_SBRK)
}

func sbrktest(a *uvm.Asm) {
	sbrk(a, 0)
	a.Mov(S0, A0)
	sbrk(a, 0x1000)
	a.Bne(A0, S0, "fail")
	a.Li(T1, 0x77)
	a.Sd(T1, S0, 0xff8)
	a.Ld(T2, S0, 0xff8)
	a.Bne(T1, T2, "fail")
	sbrk(a, -0x1000)
	a.Addi(T0, S0, 0x1000)
	a.Bne(A0, T0, "fail")
	sbrk(a, 0)
	a.Bne(A0, S0, "fail")
	// the heap cannot shrink below its bottom
	sbrk(a, -0x100000)
	expect(a, A0, -1, "fail")
	puts(a, "ok", "sbrktest: ok\n")
	exit(a, 0)
	failBlock(a)
}

func taskinfo(a *uvm.Asm) {
	a.Space("tv", 16)
	a.Space("info", 2016)
	a.La(A0, "tv")
	a.Li(A1, 0)
	a.Syscall(sysno.SYS_GET_TIME)
	expect(a, A0, 0, "fail")
	a.La(A0, "info")
	a.Syscall(sysno.SYS_TASK_INFO)
	expect(a, A0, 0, "fail")
	// status is Running
	a.La(T0, "info")
	a.Lw(T1, T0, 0)
	expect(a, T1, 2, "fail")
	// one get_time call has been counted
	a.Lw(T1, T0, 4+4*sysno.SYS_GET_TIME)
	expect(a, T1, 1, "fail")
	puts(a, "ok", "taskinfo: ok\n")
	exit(a, 0)
	failBlock(a)
}

func yieldloop(a *uvm.Asm) {
	a.Li(S0, 5)
	a.Label("loop")
	a.Syscall(sysno.SYS_YIELD)
	a.Addi(S0, S0, -1)
	a.Bne(S0, ZERO, "loop")
	exit(a, 0)
}

func pgfault(a *uvm.Asm) {
	a.Li(T0, 0)
	a.Sd(T0, T0, 0)
	exit(a, 0)
}

// priority spins through a fixed amount of work at the given priority and
// exits with the priority as its code.
func priority(a *uvm.Asm, prio int) {
	a.Li(A0, int64(prio))
	a.Syscall(sysno.SYS_SET_PRIORITY)
	a.Li(S0, 200000)
	a.Label("spin")
	a.Addi(S0, S0, -1)
	a.Bne(S0, ZERO, "spin")
	puts(a, "done", fmt.Sprintf("prio%d: done\n", prio))
	exit(a, int64(prio))
}
