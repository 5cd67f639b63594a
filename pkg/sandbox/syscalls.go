package sandbox

// allowedSyscalls is the unconditional allow-list a worker is permitted to
// call. Names verbatim from original_source/glycin/src/sandbox.rs's
// ALLOWED_SYSCALLS, resolved to numbers for the current architecture at
// filter-build time via seccomp.GetSyscallFromName in BuildSeccompFilter.
var allowedSyscalls = []string{
	"access", "arch_prctl", "arm_fadvise64_64", "brk",
	"capget", "capset", "chdir", "clock_getres", "clock_gettime", "clock_gettime64",
	"clone", "clone3", "close", "connect", "creat", "dup",
	"epoll_create", "epoll_create1", "epoll_ctl", "epoll_pwait", "epoll_wait",
	"eventfd", "eventfd2", "execve", "exit", "exit_group",
	"faccessat", "fadvise64", "fadvise64_64", "fchdir", "fcntl", "fcntl64",
	"fstat", "fstatfs", "fstatfs64", "ftruncate", "ftruncate64", "futex", "futex_time64",
	"get_mempolicy", "getcwd", "getdents64", "getegid", "getegid32", "geteuid", "geteuid32",
	"getgid", "getgid32", "getpid", "getppid", "getpriority", "getrandom", "gettid",
	"gettimeofday", "getuid", "getuid32", "ioctl", "madvise", "membarrier", "memfd_create",
	"mmap", "mmap2", "mprotect", "mremap", "munmap", "newfstatat", "open", "openat",
	"pipe", "pipe2", "pivot_root", "poll", "ppoll", "ppoll_time64", "prctl",
	"pread64", "prlimit64", "read", "readlink", "readlinkat", "recv", "recvfrom", "recvmsg",
	"rseq", "rt_sigaction", "rt_sigprocmask", "rt_sigreturn", "sched_getaffinity",
	"sched_yield", "sendmsg", "sendto", "set_mempolicy", "set_robust_list",
	"set_thread_area", "set_tid_address", "set_tls", "setpriority", "sigaltstack",
	"signalfd4", "socket", "socketcall", "stat", "statfs", "statfs64", "statx",
	"sysinfo", "tgkill", "timerfd_create", "timerfd_settime", "timerfd_settime64",
	"ugetrlimit", "uname", "unshare", "wait4", "write", "writev",
}

// allowedSyscallsFontconfig is the additional allow-list granted only when
// a worker has the Fontconfig flag set, since font cache maintenance needs
// to create/rename/remove files under the exposed cache directory.
var allowedSyscallsFontconfig = []string{
	"chmod", "link", "linkat", "rename", "renameat", "renameat2", "unlink", "unlinkat",
}

// inheritedEnvVars is the whitelist of environment variables a sandboxed
// worker inherits from the host, regardless of mechanism.
var inheritedEnvVars = []string{"RUST_BACKTRACE", "RUST_LOG", "XDG_RUNTIME_DIR"}
