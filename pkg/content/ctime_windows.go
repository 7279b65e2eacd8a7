//go:build windows

package content

import (
	"os"
	"syscall"
	"time"
)

// creationTime returns the file creation time.
func creationTime(info os.FileInfo) time.Time {
	if attr, ok := info.Sys().(*syscall.Win32FileAttributeData); ok {
		return time.Unix(0, attr.CreationTime.Nanoseconds())
	}
	return info.ModTime()
}
