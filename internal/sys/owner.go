package sys

import "os"

// DefaultUid and DefaultGid are the owner and group reported for a node
// when ownership information cannot be retrieved from the host.
const (
	DefaultUid = ""
	DefaultGid = ""
)

// FileOwner retrieves ownership information for the file at path,
// resolving numeric uid/gid to names where the host supports it. On
// hosts with no notion of file ownership, FileOwner falls back to
// DefaultUid and DefaultGid.
func FileOwner(path string, fi os.FileInfo) (uid, gid string) {
	return fileOwner(path, fi)
}
