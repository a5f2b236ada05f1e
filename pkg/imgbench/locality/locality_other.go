//go:build !darwin && !windows

package locality

import "os"

func statusOf(path string) Status {
	if _, err := os.Lstat(path); err != nil {
		return Unknown
	}
	return Local
}
