//go:build !windows

package uploader

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"syscall"
)

// fileKey identifies the file behind path. Hardlinks of one file share a key.
func fileKey(fi fs.FileInfo, path string) string {
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		return fmt.Sprintf("%d:%d", st.Dev, st.Ino)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
