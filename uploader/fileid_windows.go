//go:build windows

package uploader

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// fileKey identifies the file behind path. Hardlinks are not detected on
// Windows; only repeated paths collapse.
func fileKey(_ fs.FileInfo, path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return strings.ToLower(abs)
	}
	return strings.ToLower(filepath.Clean(path))
}
