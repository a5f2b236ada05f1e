// Package locality reports whether a file's content is resident on local
// storage or is a cloud placeholder that would be downloaded on first read.
// All checks use filesystem metadata only and never open the file.
package locality

// Status is the availability of a file's content.
type Status int

const (
	// Unknown means the status could not be determined.
	Unknown Status = iota
	// Local means the content is immediately available.
	Local
	// OnDemand means reading the content triggers a download.
	OnDemand
)

// String returns a short name for the status.
func (s Status) String() string {
	switch s {
	case Local:
		return "local"
	case OnDemand:
		return "on-demand"
	default:
		return "unknown"
	}
}

// Description returns a human-readable explanation of the status.
func (s Status) Description() string {
	switch s {
	case Local:
		return "Local file (immediately available)"
	case OnDemand:
		return "On-demand file (will download when accessed)"
	default:
		return "Unknown availability status"
	}
}

// WillTriggerDownload reports whether reading the file fetches it remotely.
func (s Status) WillTriggerDownload() bool {
	return s == OnDemand
}

// Safe reports whether the file may be read without risking a download.
// Unknown is not safe.
func (s Status) Safe() bool {
	return s == Local
}

// Checker reports the locality of a path.
type Checker interface {
	Status(path string) Status
}

// CheckerFunc adapts a function to the Checker interface.
type CheckerFunc func(path string) Status

// Status calls f(path).
func (f CheckerFunc) Status(path string) Status {
	return f(path)
}

// FS is the Checker backed by the host filesystem.
type FS struct{}

// Status returns the locality of path using platform file metadata.
func (FS) Status(path string) Status {
	return statusOf(path)
}

// IsRemotePlaceholder reports whether path is anything other than a local file.
func IsRemotePlaceholder(c Checker, path string) bool {
	return !c.Status(path).Safe()
}

// Windows file attribute bits used by cloud sync providers.
const (
	attrOffline            uint32 = 0x00001000
	attrUnpinned           uint32 = 0x00100000
	attrRecallOnDataAccess uint32 = 0x00400000
)

// statusFromAttributes classifies Windows file attributes. Files with both
// the unpinned and recall-on-data-access bits are on-demand, files with
// neither are local, and mixed combinations are unknown.
func statusFromAttributes(attrs uint32) Status {
	if attrs&attrOffline != 0 {
		return OnDemand
	}

	unpinned := attrs&attrUnpinned != 0
	recall := attrs&attrRecallOnDataAccess != 0

	switch {
	case unpinned && recall:
		return OnDemand
	case !unpinned && !recall:
		return Local
	default:
		return Unknown
	}
}

// sfDataless is the BSD stat flag set on files whose content has been
// evicted by a file provider.
const sfDataless uint32 = 0x40000000

// statusFromStatFlags classifies BSD st_flags.
func statusFromStatFlags(flags uint32) Status {
	if flags&sfDataless != 0 {
		return OnDemand
	}
	return Local
}
