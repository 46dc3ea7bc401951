package protocols

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CreateKeymapFile writes a NUL-terminated keymap into an anonymous memory
// file and returns its descriptor and size, terminator included. The caller
// owns the descriptor.
func CreateKeymapFile(keymap string) (int, uint32, error) {
	size := len(keymap) + 1
	if size > 0x7FFFFFFF {
		return -1, 0, fmt.Errorf("invalid keymap size: %d", size)
	}

	fd, err := unix.MemfdCreate("waydo-keymap", unix.MFD_CLOEXEC|unix.MFD_ALLOW_SEALING)
	if err != nil {
		return -1, 0, fmt.Errorf("memfd_create failed: %w", err)
	}

	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		_ = unix.Close(fd)
		return -1, 0, fmt.Errorf("ftruncate failed: %w", err)
	}

	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		_ = unix.Close(fd)
		return -1, 0, fmt.Errorf("mmap failed: %w", err)
	}
	copy(data, keymap)
	data[len(keymap)] = 0
	if err := unix.Munmap(data); err != nil {
		_ = unix.Close(fd)
		return -1, 0, fmt.Errorf("munmap failed: %w", err)
	}

	// The compositor maps it read-only; keep it from changing under it
	seals := unix.F_SEAL_SHRINK | unix.F_SEAL_GROW | unix.F_SEAL_WRITE | unix.F_SEAL_SEAL
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_ADD_SEALS, seals); err != nil {
		_ = unix.Close(fd)
		return -1, 0, fmt.Errorf("sealing keymap failed: %w", err)
	}

	return fd, uint32(size), nil
}
