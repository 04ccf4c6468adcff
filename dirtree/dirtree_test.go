package dirtree_test

import (
	"os"
	"path/filepath"
	"testing"

	"aqwari.net/net/vosftp/dirtree"
)

func mkTestdata(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a", "b"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "file.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "a", "b", "leaf.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestOpenBasicScan(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Path(0) != "/" {
		t.Errorf("root path = %q, want /", tree.Path(0))
	}
	node, _, _, err := tree.Resolve("/a/b/leaf.txt", 0)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Path(node) != "/a/b/leaf.txt" {
		t.Errorf("Path(resolved leaf) = %q, want /a/b/leaf.txt", tree.Path(node))
	}
}

func TestOpenDepthLimit(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, 1)
	if err != nil {
		t.Fatal(err)
	}
	// depth 1 scans root's immediate children ("a") but does not
	// descend into them, so "a/b" is an unscanned, terminal segment:
	// absence of a terminal segment is not an error.
	node, parent, name, err := tree.Resolve("/a/b", 0)
	if err != nil {
		t.Fatalf("terminal absence under depth limit returned error: %v", err)
	}
	if node != -1 {
		t.Errorf("node = %d, want -1 (unscanned, not found)", node)
	}
	if name != "b" || tree.Path(parent) != "/a" {
		t.Errorf("parent/name = %q/%q, want /a/b", tree.Path(parent), name)
	}

	// A segment below the unscanned "b" is non-terminal-absent: "b"
	// itself was never added as a node, so this must error.
	if _, _, _, err := tree.Resolve("/a/b/leaf.txt", 0); err == nil {
		t.Fatal("expected NotFoundError resolving through an unscanned directory")
	}
}

func TestResolveDotDotNeverAboveRoot(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	node, _, _, err := tree.Resolve("/a/../../../..", 0)
	if err != nil {
		t.Fatal(err)
	}
	if node != 0 {
		t.Errorf("excess .. climbed above root: node = %d, want 0 (root)", node)
	}
}

func TestResolveDotDotRelativeToAnchorMovesToParent(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	bNode, _, _, err := tree.Resolve("/a/b", 0)
	if err != nil {
		t.Fatal(err)
	}
	aNode, _, _, err := tree.Resolve("/a", 0)
	if err != nil {
		t.Fatal(err)
	}
	// Anchored at /a/b, ".." must move to /a/b's parent (/a), not stay
	// put and not jump to the real root.
	node, _, _, err := tree.Resolve("..", bNode)
	if err != nil {
		t.Fatal(err)
	}
	if node != aNode {
		t.Errorf("Resolve(\"..\", /a/b) = %q, want /a", tree.Path(node))
	}
}

func TestResolveTerminalAbsenceIsNotError(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	node, parent, name, err := tree.Resolve("/a/newfile.txt", 0)
	if err != nil {
		t.Fatalf("terminal absence returned error: %v", err)
	}
	if node != -1 {
		t.Errorf("node = %d, want -1 (not found)", node)
	}
	if name != "newfile.txt" {
		t.Errorf("name = %q, want newfile.txt", name)
	}
	if tree.Path(parent) != "/a" {
		t.Errorf("parent path = %q, want /a", tree.Path(parent))
	}
}

func TestResolveNonTerminalAbsenceIsError(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := tree.Resolve("/nosuchdir/newfile.txt", 0); err == nil {
		t.Fatal("expected NotFoundError for missing non-terminal segment")
	}
}

func TestInsertAndRemoveChild(t *testing.T) {
	root := mkTestdata(t)
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	aNode, _, _, err := tree.Resolve("/a", 0)
	if err != nil {
		t.Fatal(err)
	}
	newPath := filepath.Join(root, "a", "new.txt")
	if err := os.WriteFile(newPath, []byte("z"), 0644); err != nil {
		t.Fatal(err)
	}
	idx, err := tree.InsertChild(aNode, newPath, "new.txt")
	if err != nil {
		t.Fatal(err)
	}
	if tree.Path(idx) != "/a/new.txt" {
		t.Errorf("Path(new child) = %q, want /a/new.txt", tree.Path(idx))
	}

	if err := tree.RemoveChildByName(aNode, "new.txt"); err != nil {
		t.Fatal(err)
	}
	if _, _, _, err := tree.Resolve("/a/new.txt", 0); err != nil {
		t.Fatalf("removed child should report terminal absence without error, got %v", err)
	}
}

func TestSymlinkWithinRootWired(t *testing.T) {
	root := mkTestdata(t)
	if err := os.Symlink(filepath.Join(root, "a", "b"), filepath.Join(root, "link")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	linkNode, _, _, err := tree.Resolve("/link", 0)
	if err != nil {
		t.Fatal(err)
	}
	if !tree.Node(linkNode).IsLink {
		t.Fatal("node at /link is not marked as a symlink")
	}
	if tree.Node(linkNode).LinkTarget == -1 {
		t.Fatal("in-root symlink was not wired to its target node")
	}
	// Listing through the link means listing /a/b's children: resolve
	// a path through the link and expect it to land on leaf.txt.
	node, _, _, err := tree.Resolve("/link/leaf.txt", 0)
	if err != nil {
		t.Fatalf("resolve through symlink failed: %v", err)
	}
	if tree.Node(node).Name != "leaf.txt" {
		t.Errorf("resolved name = %q, want leaf.txt", tree.Node(node).Name)
	}
}

func TestSymlinkOutsideRootIsLeaf(t *testing.T) {
	root := mkTestdata(t)
	outside := t.TempDir()
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}
	tree, err := dirtree.Open(root, -1)
	if err != nil {
		t.Fatal(err)
	}
	node, _, _, err := tree.Resolve("/escape", 0)
	if err != nil {
		t.Fatal(err)
	}
	if tree.Node(node).LinkTarget != -1 {
		t.Error("symlink pointing outside root should not be wired to a target node")
	}
}
