// +build android darwin dragonfly freebsd linux nacl netbsd openbsd solaris

package sys

import (
	"os"
	"os/user"
	"strconv"

	"golang.org/x/sys/unix"
)

// fileOwner stats path directly through golang.org/x/sys/unix rather than
// type-asserting fi.Sys(), so it keeps working if fi was synthesized
// (e.g. by a test) without a backing *syscall.Stat_t.
func fileOwner(path string, fi os.FileInfo) (uid, gid string) {
	uid = DefaultUid
	gid = DefaultGid

	var stat unix.Stat_t
	if err := unix.Lstat(path, &stat); err != nil {
		return
	}

	uid = strconv.Itoa(int(stat.Uid))
	gid = strconv.Itoa(int(stat.Gid))

	if u, err := user.LookupId(uid); err == nil {
		uid = u.Username
	}
	if g, err := groupLookup(gid); err == nil {
		gid = g
	}
	return uid, gid
}
