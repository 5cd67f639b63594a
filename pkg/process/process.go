// Package process owns the spawn lifecycle and peer-to-peer RPC channel
// for a single worker subprocess.
//
// Grounded on spec.md section 4.3 (Remote Process) for the lifecycle
// (socketpair, handshake race, late-cancel hook, diagnostic readers) and on
// pkg/commands/os.go for the subprocess plumbing idiom (NewCmd, captured
// output, *logrus.Entry logging). The RPC transport itself is
// github.com/godbus/dbus/v5 run peer-to-peer over one end of the
// socketpair, anonymously authenticated, with object path
// /org/gnome/glycin -- the teacher has no D-Bus dependency of its own, but
// godbus/dbus/v5 is the ecosystem's standard low-level D-Bus client and the
// only realistic way to speak the wire protocol spec.md calls for without
// hand-rolling a marshaler.
package process

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"runtime"

	"github.com/godbus/dbus/v5"
	"github.com/jesseduffield/kill"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/imgjail/imgjail/pkg/config"
	"github.com/imgjail/imgjail/pkg/ihosterrors"
	"github.com/imgjail/imgjail/pkg/sandbox"
)

// ObjectPath is the fixed D-Bus object path every worker exposes.
const ObjectPath = dbus.ObjectPath("/org/gnome/glycin")

// diagnosticBufferLimit bounds how much of a child's stdout/stderr is kept
// for later error context, per spec.md's "bounded buffers" requirement.
const diagnosticBufferLimit = 16 * 1024

// Process is a live worker subprocess with an attached RPC connection.
type Process struct {
	log    *logrus.Entry
	cmd    *sandbox.Spawned
	conn   *dbus.Conn
	pid    int
	cancel context.CancelFunc

	mu       deadlock.Mutex
	stdout   []byte
	stderr   []byte
	exited   bool
	exitCode int
}

// Spawn starts a worker for entry under mechanism, races the RPC handshake
// against cancellation and premature child exit, and returns a live Process
// on success.
func Spawn(ctx context.Context, log *logrus.Entry, entry config.LoaderConfig, mechanism sandbox.Mechanism) (*Process, error) {
	hostConn, childConn, err := socketpairConns()
	if err != nil {
		return nil, ihosterrors.IO(err, "creating RPC socketpair")
	}

	childFile, err := childConn.File()
	if err != nil {
		hostConn.Close()
		childConn.Close()
		return nil, ihosterrors.IO(err, "extracting child socketpair fd")
	}
	defer childFile.Close()

	spawnCtx, cancelSpawn := context.WithCancel(ctx)
	defer cancelSpawn()

	spec := sandbox.Spec{
		Entry:     entry,
		Mechanism: mechanism,
		RPCFd:     int(childFile.Fd()),
	}

	spawned, err := sandbox.Build(spawnCtx, log, spec)
	if err != nil {
		hostConn.Close()
		childConn.Close()
		return nil, fmt.Errorf("process: %w", err)
	}

	stdoutPipe, err := spawned.Cmd.StdoutPipe()
	if err != nil {
		hostConn.Close()
		childConn.Close()
		spawned.Close()
		return nil, ihosterrors.IO(err, "creating worker stdout pipe")
	}
	stderrPipe, err := spawned.Cmd.StderrPipe()
	if err != nil {
		hostConn.Close()
		childConn.Close()
		spawned.Close()
		return nil, ihosterrors.IO(err, "creating worker stderr pipe")
	}

	// Spawning happens on a locked OS thread so the parent-death signal
	// bound by the sandbox's SysProcAttr is attributed to the right thread,
	// mirroring spec.md's "dedicated OS thread" requirement.
	startErrCh := make(chan error, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		startErrCh <- spawned.Cmd.Start()
	}()

	if err := <-startErrCh; err != nil {
		hostConn.Close()
		childConn.Close()
		spawned.Close()
		if os.IsNotExist(err) {
			return nil, ihosterrors.SpawnNotFound(spawned.Cmd.Path)
		}
		return nil, ihosterrors.Spawn(err, "starting worker process")
	}
	childConn.Close() // the host only needs its own end once the child has it

	p := &Process{log: log, cmd: spawned, pid: spawned.Cmd.Process.Pid}
	p.attachDiagnostics(stdoutPipe, stderrPipe)

	childExited := make(chan error, 1)
	go func() {
		childExited <- spawned.Cmd.Wait()
	}()

	handshakeDone := make(chan *dbus.Conn, 1)
	handshakeErr := make(chan error, 1)
	go func() {
		conn, err := dialPeer(hostConn)
		if err != nil {
			handshakeErr <- err
			return
		}
		handshakeDone <- conn
	}()

	select {
	case <-ctx.Done():
		p.killChild()
		<-childExited
		return nil, ihosterrors.Canceled(ctx.Err())
	case err := <-handshakeErr:
		p.killChild()
		<-childExited
		return nil, ihosterrors.Spawn(err, "RPC handshake failed")
	case waitErr := <-childExited:
		code := exitCodeOf(waitErr)
		return nil, ihosterrors.PrematureExit(spawned.Cmd.Path, code, p.stdoutTail(), p.stderrTail())
	case conn := <-handshakeDone:
		p.conn = conn
	}

	opCtx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.lateCancelHook(opCtx, childExited)

	return p, nil
}

// lateCancelHook kills the child if ctx is canceled after a successful
// handshake, per spec.md's "second late-cancel hook" requirement.
func (p *Process) lateCancelHook(ctx context.Context, childExited <-chan error) {
	select {
	case <-ctx.Done():
		p.killChild()
	case <-childExited:
	}
}

func (p *Process) killChild() {
	if p.cmd.Cmd.Process == nil {
		return
	}
	if err := kill.Kill(p.cmd.Cmd.Process.Pid); err != nil {
		p.log.WithError(err).Debug("process: kill worker failed, process likely already gone")
	}
}

// Close tears down the process's own cancellable, killing the child if it
// is still alive, matching spec.md's "On drop ... fired" behavior. A nil
// receiver is a no-op, so callers that track a pool entry whose process was
// never successfully spawned can close it unconditionally.
func (p *Process) Close() error {
	if p == nil {
		return nil
	}
	if p.cancel != nil {
		p.cancel()
	}
	p.killChild()
	if p.conn != nil {
		_ = p.conn.Close()
	}
	return p.cmd.Close()
}

// PID returns the worker's process ID.
func (p *Process) PID() int {
	return p.pid
}

// Conn returns the live peer-to-peer D-Bus connection to the worker.
func (p *Process) Conn() *dbus.Conn {
	return p.conn
}

// Object returns the proxy object for path on this worker's connection.
func (p *Process) Object(path dbus.ObjectPath) dbus.BusObject {
	return p.conn.Object("", path)
}

func (p *Process) stdoutTail() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.stdout)
}

func (p *Process) stderrTail() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.stderr)
}

// attachDiagnostics spawns two goroutines that pull lines from the child's
// stdout and stderr into bounded buffers.
func (p *Process) attachDiagnostics(stdout, stderr io.Reader) {
	go p.drain(stdout, &p.stdout)
	go p.drain(stderr, &p.stderr)
}

func (p *Process) drain(r io.Reader, dst *[]byte) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		p.mu.Lock()
		*dst = append(*dst, line...)
		*dst = append(*dst, '\n')
		if len(*dst) > diagnosticBufferLimit {
			*dst = (*dst)[len(*dst)-diagnosticBufferLimit:]
		}
		p.mu.Unlock()
	}
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	type exitCoder interface{ ExitCode() int }
	if ee, ok := err.(exitCoder); ok {
		return ee.ExitCode()
	}
	return -1
}

// socketpairConns creates an AF_UNIX SOCK_STREAM socketpair and wraps both
// ends as *net.UnixConn, one for the host and one to be inherited by the
// spawned child.
func socketpairConns() (host, child *net.UnixConn, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, nil, err
	}

	hostFile := os.NewFile(uintptr(fds[0]), "imgjail-rpc-host")
	childFile := os.NewFile(uintptr(fds[1]), "imgjail-rpc-child")

	hostConn, err := net.FileConn(hostFile)
	hostFile.Close()
	if err != nil {
		childFile.Close()
		return nil, nil, err
	}
	childConn, err := net.FileConn(childFile)
	childFile.Close()
	if err != nil {
		hostConn.Close()
		return nil, nil, err
	}

	return hostConn.(*net.UnixConn), childConn.(*net.UnixConn), nil
}

// dialPeer performs the anonymous peer-to-peer D-Bus handshake over conn.
// There is no bus daemon on the other end, so Hello() is never sent -- only
// Auth, matching a direct peer-to-peer connection per spec.md section 4.3.
func dialPeer(conn net.Conn) (*dbus.Conn, error) {
	dbusConn, err := dbus.NewConn(conn)
	if err != nil {
		return nil, err
	}
	if err := dbusConn.Auth([]dbus.Auth{dbus.AuthAnonymous()}); err != nil {
		dbusConn.Close()
		return nil, err
	}
	return dbusConn, nil
}

