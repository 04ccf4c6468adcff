// +build !android,!darwin,!dragonfly,!freebsd,!linux,!nacl,!netbsd,!openbsd,!solaris

package sys

import "os"

func fileOwner(path string, fi os.FileInfo) (uid, gid string) {
	return DefaultUid, DefaultGid
}
