//go:build unix

package streamer

import "golang.org/x/sys/unix"

// checkAccess reports whether path is still readable by this process
func checkAccess(path string) error {
	return unix.Access(path, unix.R_OK)
}
