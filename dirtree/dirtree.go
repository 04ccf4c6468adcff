// Package dirtree models a served directory hierarchy as a flat array of
// nodes linked by integer indices, rather than as a tree of pointers or a
// path-keyed map. Parent, first-child, next-sibling, and symlink-target
// relationships are all plain ints into the same backing slice; -1 marks
// the absence of a relationship.
//
// This layout is a deliberate departure from a map[string]Entry keyed
// by normalized path: a flat node array is what
// a directory tree that must also resolve relative, dotted, and symlinked
// paths the way an FTP CWD/PWD pair does wants, and it makes relocation of
// a subtree (MKD/RNTO/RMD) a pointer-index rewrite instead of a full
// re-keying of a map.
package dirtree

import (
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"aqwari.net/net/vosftp/internal/sys"
)

func fileOwner(path string, fi os.FileInfo) (uid, gid string) { return sys.FileOwner(path, fi) }

// noIndex marks the absence of a parent, child, sibling, or link target.
const noIndex = -1

// A Node is one entry in a Tree: a file, directory, or symlink.
type Node struct {
	Name        string
	Parent      int
	FirstChild  int
	NextSibling int
	LinkTarget  int // index of the node this symlink resolves to, or noIndex

	IsDir   bool
	IsLink  bool
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	Uid     string
	Gid     string
}

// A Tree is a scanned directory hierarchy rooted at RootPath. The root
// node is always Nodes[0]; its Name is "/" regardless of the real
// basename of RootPath, so client-visible paths are rooted the way an FTP
// session expects.
type Tree struct {
	RootPath string
	Nodes    []Node
}

// NotFoundError reports that a path component does not exist in the
// tree.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("dirtree: %s: no such file or directory", e.Path) }

// root returns the index of the tree's root node.
func (t *Tree) root() int { return 0 }

// Root returns the index of the tree's root node, for callers outside
// the package (a new session's initial cwdNode).
func (t *Tree) Root() int { return t.root() }

// Node returns the node at index i. Callers must only pass indices
// returned by this package's own operations.
func (t *Tree) Node(i int) *Node { return &t.Nodes[i] }

// Path renders the absolute client-visible path of the node at index i by
// walking parent pointers up to the root.
func (t *Tree) Path(i int) string {
	if i == t.root() {
		return "/"
	}
	var parts []string
	for n := i; n != t.root(); n = t.Nodes[n].Parent {
		parts = append([]string{t.Nodes[n].Name}, parts...)
	}
	return "/" + strings.Join(parts, "/")
}

func (t *Tree) addChild(parent int, n Node) int {
	n.Parent = parent
	n.FirstChild = noIndex
	n.NextSibling = noIndex
	n.LinkTarget = noIndex
	idx := len(t.Nodes)
	t.Nodes = append(t.Nodes, n)

	p := &t.Nodes[parent]
	if p.FirstChild == noIndex {
		p.FirstChild = idx
		return idx
	}
	sib := p.FirstChild
	for t.Nodes[sib].NextSibling != noIndex {
		sib = t.Nodes[sib].NextSibling
	}
	t.Nodes[sib].NextSibling = idx
	return idx
}

// childByName returns the index of parent's child named name, or
// (noIndex, false).
func (t *Tree) childByName(parent int, name string) (int, bool) {
	for c := t.Nodes[parent].FirstChild; c != noIndex; c = t.Nodes[c].NextSibling {
		if t.Nodes[c].Name == name {
			return c, true
		}
	}
	return noIndex, false
}

func nodeFromStat(path, name string, fi os.FileInfo) Node {
	uid, gid := fileOwner(path, fi)
	return Node{
		Name:    name,
		IsDir:   fi.IsDir(),
		IsLink:  fi.Mode()&os.ModeSymlink != 0,
		Size:    fi.Size(),
		Mode:    fi.Mode(),
		ModTime: fi.ModTime(),
		Uid:     uid,
		Gid:     gid,
	}
}

// InsertChild stats absPath and, on success, attaches a new child named
// name under parent. It is used after MKD, STOR, and RNTO to bring the
// new object into the tree without a full rescan.
func (t *Tree) InsertChild(parent int, absPath, name string) (int, error) {
	fi, err := os.Lstat(absPath)
	if err != nil {
		return noIndex, err
	}
	n := nodeFromStat(absPath, name, fi)
	return t.addChild(parent, n), nil
}

// RemoveChildByName detaches parent's child named name, along with its
// entire subtree. The detached nodes remain in Nodes (indices already
// handed out elsewhere stay valid) but are unreachable from the root.
func (t *Tree) RemoveChildByName(parent int, name string) error {
	p := &t.Nodes[parent]
	if p.FirstChild == noIndex {
		return &NotFoundError{Path: name}
	}
	if t.Nodes[p.FirstChild].Name == name {
		p.FirstChild = t.Nodes[p.FirstChild].NextSibling
		return nil
	}
	prev := p.FirstChild
	for cur := t.Nodes[prev].NextSibling; cur != noIndex; cur = t.Nodes[cur].NextSibling {
		if t.Nodes[cur].Name == name {
			t.Nodes[prev].NextSibling = t.Nodes[cur].NextSibling
			return nil
		}
		prev = cur
	}
	return &NotFoundError{Path: name}
}

// Refresh re-runs stat on the node at index i and updates its cached
// attributes in place, leaving its tree position untouched.
func (t *Tree) Refresh(i int) error {
	fi, err := os.Lstat(t.realPath(i))
	if err != nil {
		return err
	}
	n := &t.Nodes[i]
	n.Size = fi.Size()
	n.Mode = fi.Mode()
	n.ModTime = fi.ModTime()
	n.Uid, n.Gid = fileOwner(t.realPath(i), fi)
	return nil
}

// RealPath renders the real filesystem path backing node i, for
// handlers that need to open, stat, or mutate the underlying file.
func (t *Tree) RealPath(i int) string { return t.realPath(i) }

// realPath renders the real filesystem path backing node i (as opposed
// to Path, which renders the client-visible path; they coincide except
// through a wired symlink).
func (t *Tree) realPath(i int) string {
	if i == t.root() {
		return t.RootPath
	}
	return path.Join(t.realPath(t.Nodes[i].Parent), t.Nodes[i].Name)
}

// Resolve walks the segments of p (absolute if it begins with "/",
// otherwise relative to anchor) against the tree one at a time and
// returns the index of the last existing component, the index of that
// component's parent, and the final segment name. A path ending in a
// not-yet-existing final segment is not an error — MKD, STOR, and RNTO
// all resolve such paths — but any non-terminal segment that is absent
// is *NotFoundError.
//
// Segments are matched against the tree as they are read rather than
// collapsed ahead of time with path.Clean: path.Clean has no notion of
// anchor, so pre-cleaning a relative path against a synthetic "/"
// root turns every ".." into "move toward the real root" instead of
// "move toward anchor's parent". Walking segments one at a time lets
// "." and ".." be resolved against whatever node cur currently is,
// anchor included.
func (t *Tree) Resolve(p string, anchor int) (node, parent int, name string, err error) {
	cur := anchor
	if path.IsAbs(p) {
		cur = t.root()
	}

	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, s)
		}
	}
	if len(segs) == 0 {
		return cur, t.Nodes[cur].Parent, t.Nodes[cur].Name, nil
	}

	parent = t.Nodes[cur].Parent
	name = t.Nodes[cur].Name
	for i, seg := range segs {
		last := i == len(segs)-1
		switch seg {
		case ".":
			parent, name = t.Nodes[cur].Parent, t.Nodes[cur].Name
			continue
		case "..":
			if cur != t.root() {
				cur = t.Nodes[cur].Parent
			}
			parent, name = t.Nodes[cur].Parent, t.Nodes[cur].Name
			continue
		}
		target := cur
		if t.Nodes[cur].IsLink && t.Nodes[cur].LinkTarget != noIndex {
			target = t.Nodes[cur].LinkTarget
		}
		child, ok := t.childByName(target, seg)
		if !ok {
			if last {
				return noIndex, target, seg, nil
			}
			return noIndex, noIndex, "", &NotFoundError{Path: seg}
		}
		parent, cur, name = target, child, seg
	}
	return cur, parent, name, nil
}
