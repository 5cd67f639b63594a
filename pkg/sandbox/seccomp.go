// Seccomp filter construction for the native bwrap sandbox mechanism.
//
// Grounded on original_source/glycin/src/sandbox.rs (seccomp_filter,
// ALLOWED_SYSCALLS[_FONTCONFIG], the KILL_PROCESS environment override) and
// the hand-rolled BPF program in
// _examples/other_examples/e950660e_kornnellio-runc-Go__linux-seccomp.go.go,
// which is the pack's only example of constructing a raw seccomp BPF
// program and is kept here as the basis for understanding the semantics
// libseccomp-golang wraps. We use libseccomp-golang directly (already an
// indirect teacher dependency via containers/buildah's container
// confinement) rather than re-deriving the BPF bytecode by hand, since it
// is the ecosystem's standard way to build and export a seccomp program in
// Go and the teacher's own dependency tree already demonstrates trusting it
// for this exact purpose.
package sandbox

import (
	"bytes"
	"fmt"
	"os"

	seccomp "github.com/seccomp/libseccomp-golang"

	"github.com/imgjail/imgjail/pkg/shm"
)

// defaultSeccompAction returns Trap (delivers SIGSYS, allowing the worker to
// report what it tried) unless IMGJAIL_SECCOMP_DEFAULT_ACTION=kill-process
// is set, in which case a disallowed syscall kills the process outright.
func defaultSeccompAction() seccomp.ScmpAction {
	if os.Getenv("IMGJAIL_SECCOMP_DEFAULT_ACTION") == "kill-process" {
		return seccomp.ActKillProcess
	}
	return seccomp.ActTrap
}

// BuildSeccompFilter constructs the syscall allow-list filter for a worker,
// adding the fontconfig extension set when fontconfig is true.
func BuildSeccompFilter(fontconfig bool) (*seccomp.ScmpFilter, error) {
	filter, err := seccomp.NewFilter(defaultSeccompAction())
	if err != nil {
		return nil, fmt.Errorf("sandbox: new seccomp filter: %w", err)
	}

	names := append([]string{}, allowedSyscalls...)
	if fontconfig {
		names = append(names, allowedSyscallsFontconfig...)
	}

	for _, name := range names {
		call, err := seccomp.GetSyscallFromName(name)
		if err != nil {
			// Syscall unknown to this libseccomp/kernel combination; skip it
			// rather than fail the whole filter, matching the original's
			// tolerance for an incomplete allow-list on older kernels.
			continue
		}
		if err := filter.AddRule(call, seccomp.ActAllow); err != nil {
			return nil, fmt.Errorf("sandbox: add rule for %s: %w", name, err)
		}
	}

	return filter, nil
}

// ExportSealed exports filter as a BPF program into a sealed memfd, ready to
// be passed to bwrap via --seccomp N. Mirrors the original's "export to a
// sealed memory object" step.
func ExportSealed(filter *seccomp.ScmpFilter) (*shm.BinaryData, error) {
	var buf bytes.Buffer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("sandbox: pipe for seccomp export: %w", err)
	}
	defer r.Close()

	errCh := make(chan error, 1)
	go func() {
		_, copyErr := buf.ReadFrom(r)
		errCh <- copyErr
	}()

	if err := filter.ExportBPF(w); err != nil {
		w.Close()
		return nil, fmt.Errorf("sandbox: export seccomp BPF: %w", err)
	}
	w.Close()
	if copyErr := <-errCh; copyErr != nil {
		return nil, fmt.Errorf("sandbox: read seccomp BPF: %w", copyErr)
	}

	return shm.NewBinaryData("imgjail-seccomp", buf.Bytes())
}

// syscallNumber resolves a syscall name to its number on the running
// architecture, used only for diagnostics since libseccomp-golang resolves
// names internally for filter construction.
func syscallNumber(name string) (int, error) {
	call, err := seccomp.GetSyscallFromName(name)
	if err != nil {
		return 0, err
	}
	return int(call), nil
}
