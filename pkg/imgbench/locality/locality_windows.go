//go:build windows

package locality

import "golang.org/x/sys/windows"

func statusOf(path string) Status {
	p, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return Unknown
	}

	attrs, err := windows.GetFileAttributes(p)
	if err != nil {
		return Unknown
	}
	return statusFromAttributes(attrs)
}
