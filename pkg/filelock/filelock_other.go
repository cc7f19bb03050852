//go:build !unix

package filelock

import "os"

// Without flock(2) only the in-process guard in Lock applies.
func lockFile(_ *os.File) error {
	return nil
}

func unlockFile(_ *os.File) error {
	return nil
}
