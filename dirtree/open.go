package dirtree

import (
	"os"
	"path/filepath"
	"sort"
)

// pendingLink records a symlink node discovered during the first scan
// pass, along with the real path its target resolves to, so the second
// pass can wire it to an already-built node once every real directory
// has one.
type pendingLink struct {
	node     int
	realPath string
}

// Open resolves path to a real absolute path (following any leading
// symlinks in path itself, via filepath.EvalSymlinks) and performs a
// breadth-first scan to depth levels below the root; depth = -1 means
// unlimited, depth = 0 means root only.
//
// The scan runs in two passes, mirroring the original Dir/DirNode
// design: pass one walks real directories (and symlinks whose target
// falls outside the root, which are kept as leaves) building every
// non-symlink node; pass two wires each in-root symlink to the
// already-built node at its target's real path. A symlink whose chain
// of targets cycles back to an ancestor is cut rather than wired,
// leaving it a childless leaf, since a cycle has no well-defined
// listing.
func Open(rootArg string, depth int) (*Tree, error) {
	root, err := filepath.EvalSymlinks(rootArg)
	if err != nil {
		return nil, err
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	fi, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}

	t := &Tree{RootPath: root}
	rootNode := nodeFromStat(root, "/", fi)
	rootNode.Parent = noIndex
	rootNode.FirstChild = noIndex
	rootNode.NextSibling = noIndex
	rootNode.LinkTarget = noIndex
	t.Nodes = append(t.Nodes, rootNode)

	byRealPath := map[string]int{root: t.root()}
	var links []pendingLink

	var scan func(node int, real string, level int)
	scan = func(node int, real string, level int) {
		if depth >= 0 && level >= depth {
			return
		}
		if !t.Nodes[node].IsDir {
			return
		}
		entries, err := os.ReadDir(real)
		if err != nil {
			// EACCES (and similar) leaves this directory
			// present but empty, rather than failing the scan.
			return
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

		for _, ent := range entries {
			childReal := filepath.Join(real, ent.Name())
			lfi, err := os.Lstat(childReal)
			if err != nil {
				continue
			}
			n := nodeFromStat(childReal, ent.Name(), lfi)
			idx := t.addChild(node, n)

			if n.IsLink {
				target, err := filepath.EvalSymlinks(childReal)
				if err != nil {
					continue
				}
				links = append(links, pendingLink{node: idx, realPath: target})
				continue
			}
			byRealPath[childReal] = idx
			if n.IsDir {
				scan(idx, childReal, level+1)
			}
		}
	}
	scan(t.root(), root, 0)

	for _, l := range links {
		t.wireLink(l, byRealPath)
	}
	return t, nil
}

// wireLink resolves one pending symlink. If its target's real path lies
// within the already-scanned directories (found in byRealPath),
// LinkTarget is set to that node's index. A target outside the root has
// no entry in byRealPath and is left a leaf. A target from which the
// symlink itself can be reached again, through children and links
// wired so far (an ancestor directory, or a chain of links leading
// back), would close a cycle, so the symlink is left a leaf as well.
func (t *Tree) wireLink(l pendingLink, byRealPath map[string]int) {
	target, ok := byRealPath[l.realPath]
	if !ok {
		return
	}
	seen := map[int]bool{}
	stack := []int{target}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == l.node {
			return
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		if lt := t.Nodes[n].LinkTarget; lt != noIndex {
			stack = append(stack, lt)
		}
		for c := t.Nodes[n].FirstChild; c != noIndex; c = t.Nodes[c].NextSibling {
			stack = append(stack, c)
		}
	}
	t.Nodes[l.node].LinkTarget = target
}
