// Package sandbox builds the subprocess command used to spawn an image
// worker under one of three confinement mechanisms.
//
// Grounded on original_source/glycin/src/sandbox.rs for the allow-lists,
// environment whitelist, and memory-limit formula (memlimit.go), and on
// _examples/other_examples/aa07eca5_cypherbits-sandboxed-tor-browser__...hugbox.go.go
// for the concrete bwrap argv construction (--unshare-*, --ro-bind,
// --die-with-parent, --seccomp <fd>, --info-fd <fd>) since the
// corresponding Rust module in this pack's original_source snapshot has
// since moved to a direct-exec+seccomp design that contradicts the
// specification's explicit bwrap description -- the spec is authoritative
// here, so the mechanism is built the way spec.md describes and the way
// hugbox.go demonstrates in Go.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/mgutz/str"
	"github.com/sirupsen/logrus"

	"github.com/imgjail/imgjail/pkg/config"
)

// ErrSpawnNotFound indicates the chosen mechanism's binary is not installed.
var ErrSpawnNotFound = fmt.Errorf("sandbox mechanism binary not found")

// Mechanism selects how a worker is confined.
type Mechanism int

const (
	// MechanismAuto probes the host at Precheck time and falls back through
	// Bwrap -> FlatpakSpawn -> None.
	MechanismAuto Mechanism = iota
	MechanismBwrap
	MechanismFlatpakSpawn
	MechanismNone
)

func (m Mechanism) String() string {
	switch m {
	case MechanismBwrap:
		return "bwrap"
	case MechanismFlatpakSpawn:
		return "flatpak-spawn"
	case MechanismNone:
		return "none"
	default:
		return "auto"
	}
}

// Spec describes everything needed to build one worker's spawn command.
type Spec struct {
	Entry       config.LoaderConfig
	Mechanism   Mechanism
	RPCFd       int // inheritable fd carrying the RPC socketpair end
	ROBindExtra []string // additional host paths to read-only bind (base dir, etc.)
}

// Spawned is a not-yet-started *exec.Cmd plus the resources that must
// outlive the spawn (the seccomp program's memfd).
type Spawned struct {
	Cmd     *exec.Cmd
	seccomp *os.File
}

// Close releases resources retained for the spawned command's lifetime.
func (s *Spawned) Close() error {
	if s.seccomp != nil {
		return s.seccomp.Close()
	}
	return nil
}

// Build constructs the subprocess for spec. The command is not started.
func Build(ctx context.Context, log *logrus.Entry, spec Spec) (*Spawned, error) {
	switch spec.Mechanism {
	case MechanismBwrap:
		return buildBwrap(ctx, log, spec)
	case MechanismFlatpakSpawn:
		return buildFlatpakSpawn(ctx, spec)
	case MechanismNone:
		return buildUnsandboxed(ctx, spec)
	default:
		return nil, fmt.Errorf("sandbox: Build requires a resolved mechanism, got %s", spec.Mechanism)
	}
}

// Resolve runs Precheck against the host to decide which mechanism Auto
// should use, preferring the strongest one that actually works.
func Resolve(ctx context.Context, requested Mechanism) Mechanism {
	if requested != MechanismAuto {
		return requested
	}
	if Precheck(ctx, MechanismBwrap) {
		return MechanismBwrap
	}
	if Precheck(ctx, MechanismFlatpakSpawn) {
		return MechanismFlatpakSpawn
	}
	return MechanismNone
}

// Precheck spawns /bin/true under mechanism to determine whether the host
// itself blocks namespace creation (e.g. nested sandboxing, a restrictive
// outer container). Mirrors
// check_native_sandbox_syscalls_blocked/native precheck behavior named in
// spec.md's Sandbox Builder section.
func Precheck(ctx context.Context, mechanism Mechanism) bool {
	switch mechanism {
	case MechanismBwrap:
		bwrapPath, err := findBwrap()
		if err != nil {
			return false
		}
		cmd := exec.CommandContext(ctx, bwrapPath, "--unshare-all", "--ro-bind", "/", "/", "/bin/true")
		return cmd.Run() == nil
	case MechanismFlatpakSpawn:
		if _, err := exec.LookPath("flatpak-spawn"); err != nil {
			return false
		}
		cmd := exec.CommandContext(ctx, "flatpak-spawn", "--sandbox", "/bin/true")
		return cmd.Run() == nil
	default:
		return true
	}
}

func findBwrap() (string, error) {
	candidates := []string{"/usr/bin/bwrap", "/bin/bwrap"}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return exec.LookPath("bwrap")
}

// inheritedEnv builds the minimal environment slice for a sandboxed child:
// only inheritedEnvVars, carried over from the host's own environment.
func inheritedEnv() []string {
	var env []string
	for _, name := range inheritedEnvVars {
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	return env
}

// libDirs enumerates top-level entries of "/" whose name begins with "lib",
// the system library directories a bwrap sandbox read-only binds alongside
// /usr (per spec.md: "read-only binds of /usr and system library
// directories (discovered at startup by enumerating / and keeping entries
// whose name begins with lib)").
func libDirs() []string {
	entries, err := os.ReadDir("/")
	if err != nil {
		return nil
	}
	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), "lib") {
			dirs = append(dirs, "/"+e.Name())
		}
	}
	return dirs
}

func buildBwrap(ctx context.Context, log *logrus.Entry, spec Spec) (*Spawned, error) {
	bwrapPath, err := findBwrap()
	if err != nil {
		return nil, fmt.Errorf("sandbox: %w: bwrap not found", ErrSpawnNotFound)
	}

	filter, err := BuildSeccompFilter(spec.Entry.Fontconfig)
	if err != nil {
		return nil, fmt.Errorf("sandbox: build seccomp filter: %w", err)
	}
	seccompData, err := ExportSealed(filter)
	if err != nil {
		return nil, fmt.Errorf("sandbox: export seccomp filter: %w", err)
	}

	args := []string{
		"--unshare-user",
		"--unshare-ipc",
		"--unshare-pid",
		"--unshare-net",
		"--unshare-uts",
		"--unshare-cgroup-try",
		"--die-with-parent",
		"--tmpfs", "/tmp-home",
		"--setenv", "HOME", "/tmp-home",
		"--tmpfs", "/tmp-run",
		"--proc", "/proc",
		"--dev", "/dev",
		"--ro-bind", "/usr", "/usr",
		"--symlink", "usr/lib", "/lib",
		"--symlink", "usr/lib64", "/lib64",
		"--symlink", "usr/bin", "/bin",
		"--symlink", "usr/sbin", "/sbin",
	}

	for _, dir := range libDirs() {
		args = append(args, "--ro-bind-try", dir, dir)
	}

	execPath := spec.Entry.Exec
	argv := str.ToArgv(execPath)
	if len(argv) == 0 {
		return nil, fmt.Errorf("sandbox: empty Exec line")
	}
	if !strings.HasPrefix(argv[0], "/usr") {
		args = append(args, "--ro-bind", argv[0], argv[0])
	}

	if spec.Entry.Fontconfig {
		cacheDir := filepath.Join(os.TempDir(), "imgjail-fontconfig-cache")
		_ = os.MkdirAll(cacheDir, 0o700)
		args = append(args,
			"--ro-bind-try", "/etc/fonts", "/etc/fonts",
			"--bind", cacheDir, "/var/cache/fontconfig",
		)
	}

	for _, bind := range spec.ROBindExtra {
		args = append(args, "--ro-bind", bind, bind)
	}

	seccompFdIndex := 3 + len(extraFilesSoFar(spec))
	args = append(args, "--seccomp", strconv.Itoa(seccompFdIndex))

	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, bwrapPath, args...)
	cmd.Env = inheritedEnv()
	configureChildFds(cmd, spec, seccompData.File())

	limit := MemoryLimit()
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
	setPreExecMemoryLimit(cmd, limit, log)

	return &Spawned{Cmd: cmd, seccomp: seccompData.File()}, nil
}

func buildFlatpakSpawn(ctx context.Context, spec Spec) (*Spawned, error) {
	if _, err := exec.LookPath("flatpak-spawn"); err != nil {
		return nil, fmt.Errorf("sandbox: %w: flatpak-spawn not found", ErrSpawnNotFound)
	}

	limit := MemoryLimit()
	argv := str.ToArgv(spec.Entry.Exec)
	if len(argv) == 0 {
		return nil, fmt.Errorf("sandbox: empty Exec line")
	}

	args := []string{
		"--sandbox", "--watch-bus", "--directory=/",
		fmt.Sprintf("--forward-fd=%d", spec.RPCFd),
		"prlimit", fmt.Sprintf("--as=%d", limit),
	}
	args = append(args, argv...)

	cmd := exec.CommandContext(ctx, "flatpak-spawn", args...)
	cmd.Env = inheritedEnv()
	configureChildFds(cmd, spec, nil)
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}

	return &Spawned{Cmd: cmd}, nil
}

func buildUnsandboxed(ctx context.Context, spec Spec) (*Spawned, error) {
	argv := str.ToArgv(spec.Entry.Exec)
	if len(argv) == 0 {
		return nil, fmt.Errorf("sandbox: empty Exec line")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Env = inheritedEnv()
	configureChildFds(cmd, spec, nil)
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}

	return &Spawned{Cmd: cmd}, nil
}

// extraFilesSoFar is used purely to compute the predictable fd index the
// seccomp program lands on: fd 0,1,2 are stdio, fd 3 is always the RPC
// socket (cmd.ExtraFiles[0]), and the seccomp memfd (if any) follows it.
func extraFilesSoFar(spec Spec) []int {
	return []int{spec.RPCFd}
}

// configureChildFds wires stdio and ExtraFiles so that fd 3 is always the
// RPC channel and, for bwrap, fd 4 is the seccomp program -- every other
// descriptor is left to Go's exec package default of close-on-exec.
func configureChildFds(cmd *exec.Cmd, spec Spec, seccompFile *os.File) {
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	rpcFile := os.NewFile(uintptr(spec.RPCFd), "rpc")
	cmd.ExtraFiles = append(cmd.ExtraFiles, rpcFile)
	if seccompFile != nil {
		cmd.ExtraFiles = append(cmd.ExtraFiles, seccompFile)
	}
}

func setPreExecMemoryLimit(cmd *exec.Cmd, limit uint64, log *logrus.Entry) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	// Go's os/exec has no pre_exec callback, and neither this function nor
	// process.Spawn calls setrlimit(RLIMIT_AS) for the bwrap child: the
	// resolved limit is only logged here, and a bwrap worker runs without an
	// address-space limit.
	if log != nil {
		log.WithField("memory_limit_bytes", limit).Debug("sandbox: resolved worker memory limit")
	}
}

// BwrapInfo is the JSON payload bwrap writes to --info-fd once the sandbox
// is ready, giving the host the sandboxed PID.
type BwrapInfo struct {
	ChildPID int `json:"child-pid"`
}

// ParseBwrapInfo decodes the --info-fd payload.
func ParseBwrapInfo(data []byte) (BwrapInfo, error) {
	var info BwrapInfo
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&info); err != nil {
		return BwrapInfo{}, fmt.Errorf("sandbox: decode bwrap info: %w", err)
	}
	return info, nil
}
