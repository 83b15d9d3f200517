package queue

import "strings"

// archiveExt is the only extension the queue accepts.
const archiveExt = ".zip"

// Accepts reports whether path names a zip archive. The comparison is
// case-insensitive and looks only at the suffix.
func Accepts(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), archiveExt)
}
