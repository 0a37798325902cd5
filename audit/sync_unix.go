//go:build linux || darwin

package audit

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile issues a direct fsync(2) syscall on the file descriptor. Using
// unix.Fsync rather than os.File.Sync keeps the durability knob explicit
// and matches the POSIX-syscall style the rest of this codebase uses for
// platform-specific behavior.
func fsyncFile(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
