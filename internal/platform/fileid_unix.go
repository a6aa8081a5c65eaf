//go:build linux || darwin

package platform

import (
	"os"
	"syscall"
)

// FileID identifies a file on disk independent of its path. Two hard links
// to the same file share a FileID.
type FileID struct {
	Dev uint64
	Ino uint64
}

// IdentityOf extracts the on-disk identity from a stat result. ok is false
// when the platform stat structure is unavailable (e.g. synthetic
// filesystems), in which case callers must treat the file as unique.
func IdentityOf(info os.FileInfo) (FileID, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileID{}, false
	}
	return FileID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}
