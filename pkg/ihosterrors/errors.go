// Package ihosterrors defines the tagged error taxonomy surfaced to callers
// of pkg/imgjail, adapted from pkg/commands/errors.go's ComplexError/xerrors
// pattern: every category carries a stable Code a caller can switch on via
// HasCode, while Error() still renders a readable message, %+v adds the
// xerrors caller frame, and errors.Unwrap yields the wrapped cause.
// WrapStack adds a go-errors stack trace for top-level diagnostics.
package ihosterrors

import (
	"fmt"

	"github.com/go-errors/errors"
	"golang.org/x/xerrors"
)

// Code identifies one error taxonomy category from the error handling design.
type Code int

const (
	CodeRemote Code = iota
	CodeConfiguration
	CodeSpawn
	CodeValidation
	CodeIO
	CodeCancellation
	CodeAlreadyTransferred
	CodeOverflow
)

func (c Code) String() string {
	switch c {
	case CodeRemote:
		return "Remote"
	case CodeConfiguration:
		return "Configuration"
	case CodeSpawn:
		return "Spawn"
	case CodeValidation:
		return "Validation"
	case CodeIO:
		return "I/O"
	case CodeCancellation:
		return "Cancellation"
	case CodeAlreadyTransferred:
		return "AlreadyTransferred"
	case CodeOverflow:
		return "Overflow"
	default:
		return "Unknown"
	}
}

// RemoteKind enumerates the typed failures a worker can signal back over RPC.
type RemoteKind int

const (
	RemoteLoadingError RemoteKind = iota
	RemoteInternalLoaderError
	RemoteEditingError
	RemoteInternalEditorError
	RemoteUnsupportedImageFormat
	RemoteConversionTooLarge
	RemoteOutOfMemory
	RemoteAborted
	RemoteNoMoreFrames
)

func (k RemoteKind) String() string {
	switch k {
	case RemoteLoadingError:
		return "LoadingError"
	case RemoteInternalLoaderError:
		return "InternalLoaderError"
	case RemoteEditingError:
		return "EditingError"
	case RemoteInternalEditorError:
		return "InternalEditorError"
	case RemoteUnsupportedImageFormat:
		return "UnsupportedImageFormat"
	case RemoteConversionTooLarge:
		return "ConversionTooLargerError"
	case RemoteOutOfMemory:
		return "OutOfMemory"
	case RemoteAborted:
		return "Aborted"
	case RemoteNoMoreFrames:
		return "NoMoreFrames"
	default:
		return "Unknown"
	}
}

// HostError is the concrete error type every package in this module returns
// for a tagged failure. It carries enough context (stderr/stdout tails, an
// optional RemoteKind, an optional process exit code) to let a caller
// degrade gracefully without parsing message text.
type HostError struct {
	Code       Code
	Message    string
	RemoteKind RemoteKind
	HasRemote  bool
	ExitCode   int
	HasExit    bool
	Stdout     string
	Stderr     string
	frame      xerrors.Frame
	cause      error
}

// FormatError implements xerrors.Formatter so %+v prints a stack frame.
func (e *HostError) FormatError(p xerrors.Printer) error {
	p.Printf("%s: %s", e.Code, e.Message)
	e.frame.Format(p)
	return e.cause
}

// Format implements fmt.Formatter.
func (e *HostError) Format(f fmt.State, c rune) {
	xerrors.FormatError(e, f, c)
}

func (e *HostError) Error() string {
	return fmt.Sprint(e)
}

func (e *HostError) Unwrap() error {
	return e.cause
}

func newError(code Code, cause error, format string, args ...any) *HostError {
	return &HostError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		frame:   xerrors.Caller(2),
		cause:   cause,
	}
}

// Remote builds a CodeRemote error for a typed worker failure.
func Remote(kind RemoteKind, cause error, format string, args ...any) *HostError {
	e := newError(CodeRemote, cause, format, args...)
	e.RemoteKind = kind
	e.HasRemote = true
	return e
}

// Configuration builds a CodeConfiguration error (no loaders configured,
// unknown MIME type, unknown content type).
func Configuration(format string, args ...any) *HostError {
	return newError(CodeConfiguration, nil, format, args...)
}

// SpawnNotFound builds a CodeSpawn error for a missing executable.
func SpawnNotFound(cmdline string) *HostError {
	return newError(CodeSpawn, nil, "executable not found: %s", cmdline)
}

// Spawn builds a generic CodeSpawn error.
func Spawn(cause error, format string, args ...any) *HostError {
	return newError(CodeSpawn, cause, format, args...)
}

// PrematureExit builds a CodeSpawn error for a child that exited before the
// RPC handshake completed, carrying the exit code and command-line.
func PrematureExit(cmdline string, exitCode int, stdout, stderr string) *HostError {
	e := newError(CodeSpawn, nil, "child exited before handshake (code %d): %s", exitCode, cmdline)
	e.ExitCode = exitCode
	e.HasExit = true
	e.Stdout = stdout
	e.Stderr = stderr
	return e
}

// Validation builds a CodeValidation error (texture/stride/dimension checks).
func Validation(format string, args ...any) *HostError {
	return newError(CodeValidation, nil, format, args...)
}

// IO builds a CodeIO error wrapping a generic I/O failure.
func IO(cause error, format string, args ...any) *HostError {
	return newError(CodeIO, cause, format, args...)
}

// Canceled wraps cause as a CodeCancellation error, per the propagation
// policy that any in-flight error becomes Canceled(inner) once the
// cancellable fires.
func Canceled(cause error) *HostError {
	return newError(CodeCancellation, cause, "canceled: %v", cause)
}

// AlreadyTransferred builds a CodeAlreadyTransferred error for a reused
// single-use source.
func AlreadyTransferred() *HostError {
	return newError(CodeAlreadyTransferred, nil, "stream source was already transferred")
}

// Overflow builds a CodeOverflow error for a checked arithmetic failure.
func Overflow(op string) *HostError {
	return newError(CodeOverflow, nil, "arithmetic overflow: %s", op)
}

// WithOutput attaches captured stdout/stderr tails to an existing error,
// used when a worker failure is surfaced verbatim with diagnostic context.
func WithOutput(e *HostError, stdout, stderr string) *HostError {
	e.Stdout = stdout
	e.Stderr = stderr
	return e
}

// HasCode reports whether err (or anything it wraps) is a HostError with code.
func HasCode(err error, code Code) bool {
	var he *HostError
	if xerrors.As(err, &he) {
		return he.Code == code
	}
	return false
}

// IsRemoteKind reports whether err is a CodeRemote HostError of the given kind.
func IsRemoteKind(err error, kind RemoteKind) bool {
	var he *HostError
	if xerrors.As(err, &he) {
		return he.HasRemote && he.RemoteKind == kind
	}
	return false
}

// WrapStack wraps err with a go-errors stack trace for top-level diagnostics,
// matching WrapError in pkg/commands/errors.go. go-errors does not return nil
// for a nil input on its own, so that case is special-cased here too.
func WrapStack(err error) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, 0)
}
