//go:build !unix

package streamer

import "os"

func checkAccess(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
