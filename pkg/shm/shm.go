// Package shm implements the zero-copy shared memory substrate used to move
// pixel buffers and other large payloads between the host and a sandboxed
// worker: an anonymous, sealed memfd on the writer side and a read-only mmap
// on the reader side.
//
// Grounded on original_source/glycin-common/src/shared_memory.rs and
// original_source/glycin-common/src/binary_data.rs (seal-then-share
// protocol), using golang.org/x/sys/unix for MemfdCreate/fcntl/mmap exactly
// as the teacher's pkg/commands/os.go reaches for golang.org/x/sys-adjacent
// raw syscalls rather than a higher-level wrapper.
package shm

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// sealRetryBudget and sealRetryInterval bound Seal's retry loop, matching
// seal_fd's "rare ResourceBusy" handling in the original: keep retrying a
// failed F_ADD_SEALS for up to ten seconds, sleeping briefly between tries,
// rather than surfacing a spurious failure to a caller racing a concurrent
// mmap of the same fd.
const (
	sealRetryBudget   = 10 * time.Second
	sealRetryInterval = time.Millisecond
)

// BinaryData is an owned, sealed memfd holding a payload that can be handed
// to a sandboxed process by file descriptor and mapped read-only on both
// sides without a copy.
type BinaryData struct {
	file *os.File
	size int64
}

// NewBinaryData creates a sealed anonymous memfd containing data.
func NewBinaryData(name string, data []byte) (*BinaryData, error) {
	fd, err := unix.MemfdCreate(name, unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	file := os.NewFile(uintptr(fd), name)

	if _, err := file.Write(data); err != nil {
		file.Close()
		return nil, fmt.Errorf("shm: write to memfd: %w", err)
	}

	if err := Seal(file); err != nil {
		file.Close()
		return nil, err
	}

	return &BinaryData{file: file, size: int64(len(data))}, nil
}

// Seal applies the seal set that makes a memfd's contents immutable: no
// further grow/shrink/write, matching the original's "sealed after write"
// invariant so a reader can trust the mapping never changes underneath it.
func Seal(file *os.File) error {
	seals := unix.F_SEAL_SEAL | unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE

	start := time.Now()
	for {
		_, _, errno := unix.Syscall(unix.SYS_FCNTL, file.Fd(), unix.F_ADD_SEALS, uintptr(seals))
		if errno == 0 {
			return nil
		}
		if time.Since(start) > sealRetryBudget {
			return fmt.Errorf("shm: F_ADD_SEALS: %w", errno)
		}
		time.Sleep(sealRetryInterval)
	}
}

// IsSealed reports whether a memfd already carries the full immutability
// seal set, used by the receiving side to refuse to trust an fd that the
// sender did not seal.
func IsSealed(file *os.File) (bool, error) {
	got, _, errno := unix.Syscall(unix.SYS_FCNTL, file.Fd(), unix.F_GET_SEALS, 0)
	if errno != 0 {
		return false, fmt.Errorf("shm: F_GET_SEALS: %w", errno)
	}
	want := uintptr(unix.F_SEAL_SEAL | unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE)
	return got&want == want, nil
}

// File returns the underlying memfd. The caller is responsible for passing
// it across the RPC boundary as an ancillary descriptor; BinaryData retains
// ownership until Close.
func (b *BinaryData) File() *os.File { return b.file }

// Size is the number of bytes written when the BinaryData was created.
func (b *BinaryData) Size() int64 { return b.size }

// Close releases the host-side reference to the memfd. Any peer that
// received a duplicate of the descriptor keeps its own independent mapping.
func (b *BinaryData) Close() error {
	if b.file == nil {
		return nil
	}
	return b.file.Close()
}

// Mapping is a read-only view onto a BinaryData's bytes, obtained via mmap
// so that large frame buffers are never copied into Go-managed memory.
type Mapping struct {
	data []byte
}

// Map mmaps the first n bytes of file read-only. n must not exceed the
// sealed size advertised by the sender.
func Map(file *os.File, n int) (*Mapping, error) {
	if n == 0 {
		return &Mapping{data: []byte{}}, nil
	}
	data, err := unix.Mmap(int(file.Fd()), 0, n, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Mapping{data: data}, nil
}

// Bytes returns the mapped region. The slice is only valid until Unmap.
func (m *Mapping) Bytes() []byte { return m.data }

// Unmap releases the mapping.
func (m *Mapping) Unmap() error {
	if len(m.data) == 0 {
		return nil
	}
	return unix.Munmap(m.data)
}

// FromFD wraps a descriptor received over the RPC channel (already
// duplicated by the transport) as a BinaryData of the given declared size,
// without re-sealing it -- sealing is the writer's responsibility.
func FromFD(fd int, name string, size int64) *BinaryData {
	return &BinaryData{file: os.NewFile(uintptr(fd), name), size: size}
}
