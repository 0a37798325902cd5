//go:build !linux && !darwin

package audit

import "os"

// fsyncFile falls back to the portable os.File.Sync on platforms where the
// unix package's Fsync is unavailable.
func fsyncFile(f *os.File) error {
	return f.Sync()
}
