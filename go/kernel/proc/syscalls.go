package proc

import (
	"github.com/lunixbochs/taskcorn/go/kernel/common"
	"github.com/lunixbochs/taskcorn/go/kernel/sysno"
	"github.com/lunixbochs/taskcorn/go/kernel/task"
)

func (k *Kernel) Exit(code int32) int64 {
	k.P.ExitCurrentAndRunNext(int(code))
	return 0
}

func (k *Kernel) Yield() int64 {
	k.P.SuspendCurrentAndRunNext()
	return 0
}

func (k *Kernel) Getpid() int64 {
	return int64(k.cur.Pid)
}

func (k *Kernel) Getppid() int64 {
	return int64(k.cur.Parent())
}

func (k *Kernel) Fork() int64 {
	child, err := k.P.Fork(k.cur)
	if err != nil {
		log.Errorf("%s: %v", k.cur, err)
		return -1
	}
	return int64(child.Pid)
}

// Exec only returns to its caller on failure.
func (k *Kernel) Exec(path string) int64 {
	if err := k.P.Exec(k.cur, path); err != nil {
		log.Debugf("%s: %v", k.cur, err)
		return -1
	}
	return 0
}

func (k *Kernel) Spawn(path string) int64 {
	child, err := k.P.Spawn(k.cur, path)
	if err != nil {
		log.Debugf("%s: %v", k.cur, err)
		return -1
	}
	return int64(child.Pid)
}

type exitStatus struct {
	Code int32
}

// Waitpid reaps a child and stores its exit code as an i32 at code. The
// child is reaped even if that store faults, which then returns -1.
func (k *Kernel) Waitpid(pid common.Pid, code common.Obuf) int64 {
	found, exitCode := k.P.Waitpid(k.cur, int(pid))
	if found < 0 {
		return int64(found)
	}
	if code.Addr != 0 {
		if err := code.Pack(&exitStatus{int32(exitCode)}); err != nil {
			log.Debugf("%s: waitpid: %v", k.cur, err)
			return -1
		}
	}
	return int64(found)
}

func (k *Kernel) SetPriority(prio int64) int64 {
	return k.P.SetPriority(k.cur, prio)
}

func (k *Kernel) Mmap(start uint64, size common.Len, port uint64) int64 {
	return k.cur.Mmap(start, uint64(size), port)
}

func (k *Kernel) Munmap(start uint64, size common.Len) int64 {
	return k.cur.Munmap(start, uint64(size))
}

func (k *Kernel) Sbrk(delta int32) int64 {
	return k.cur.ChangeProgramBrk(int64(delta))
}

type TimeVal struct {
	Sec  uint64
	Usec uint64
}

// GetTime writes the time since boot. The timezone argument is ignored.
func (k *Kernel) GetTime(ts common.Obuf, tz uint64) int64 {
	now := k.P.Clock.Now()
	tv := &TimeVal{
		Sec:  uint64(now.Seconds()),
		Usec: uint64(now.Microseconds() % 1e6),
	}
	if err := ts.Pack(tv); err != nil {
		return -1
	}
	return 0
}

// wire layout of task_info
type taskInfo struct {
	Status       uint32
	SyscallTimes [sysno.MaxSyscallNum]uint32
	Reserved     uint32
	// milliseconds
	Time uint64
}

func (k *Kernel) TaskInfo(ti common.Obuf) int64 {
	info := k.P.TaskInfo(k.cur)
	out := &taskInfo{
		Status:       uint32(info.Status),
		SyscallTimes: info.SyscallTimes,
		Time:         info.Time,
	}
	if err := ti.Pack(out); err != nil {
		return -1
	}
	return 0
}

func (k *Kernel) Read(fd common.Fd, buf common.Buf, size common.Len) int64 {
	file, ok := k.cur.Fd(int(fd))
	if !ok || !file.Readable() {
		return -1
	}
	ub, err := k.cur.UserBuffer(buf.Addr, uint64(size))
	if err != nil {
		return -1
	}
	return int64(file.Read(ub))
}

func (k *Kernel) Write(fd common.Fd, buf common.Buf, size common.Len) int64 {
	file, ok := k.cur.Fd(int(fd))
	if !ok || !file.Writable() {
		return -1
	}
	ub, err := k.cur.UserBuffer(buf.Addr, uint64(size))
	if err != nil {
		return -1
	}
	return int64(file.Write(ub))
}

func (k *Kernel) Close(fd common.Fd) int64 {
	if !k.cur.CloseFd(int(fd)) {
		return -1
	}
	return 0
}

var _ task.Dispatcher = (*Kernel)(nil)
