// Package sysno holds the syscall numbers shared by the kernel and the
// bundled user programs.
package sysno

const (
	SYS_CLOSE        = 57
	SYS_READ         = 63
	SYS_WRITE        = 64
	SYS_EXIT         = 93
	SYS_YIELD        = 124
	SYS_SET_PRIORITY = 140
	SYS_GET_TIME     = 169
	SYS_GETPID       = 172
	SYS_GETPPID      = 173
	SYS_SBRK         = 214
	SYS_MUNMAP       = 215
	SYS_FORK         = 220
	SYS_EXEC         = 221
	SYS_MMAP         = 222
	SYS_WAITPID      = 260
	SYS_SPAWN        = 400
	SYS_TASK_INFO    = 410
)

// MaxSyscallNum bounds the per-task syscall counters.
const MaxSyscallNum = 500

var Names = map[int]string{
	SYS_CLOSE:        "close",
	SYS_READ:         "read",
	SYS_WRITE:        "write",
	SYS_EXIT:         "exit",
	SYS_YIELD:        "yield",
	SYS_SET_PRIORITY: "set_priority",
	SYS_GET_TIME:     "get_time",
	SYS_GETPID:       "getpid",
	SYS_GETPPID:      "getppid",
	SYS_SBRK:         "sbrk",
	SYS_MUNMAP:       "munmap",
	SYS_FORK:         "fork",
	SYS_EXEC:         "exec",
	SYS_MMAP:         "mmap",
	SYS_WAITPID:      "waitpid",
	SYS_SPAWN:        "spawn",
	SYS_TASK_INFO:    "task_info",
}
