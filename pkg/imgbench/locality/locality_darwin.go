//go:build darwin

package locality

import "golang.org/x/sys/unix"

func statusOf(path string) Status {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return Unknown
	}
	return statusFromStatFlags(st.Flags)
}
