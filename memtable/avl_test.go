package memtable

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"
)

func k(s string) []byte { return []byte(s) }

func TestEmptyTree(t *testing.T) {
	tr := NewAVLTree()
	if tr.Len() != 0 {
		t.Fatalf("expected size 0, got %d", tr.Len())
	}
	if _, ok := tr.Get(k("a")); ok {
		t.Fatal("expected not found in empty tree")
	}
}

func TestSetAndGet(t *testing.T) {
	tr := NewAVLTree()
	tr.Set(k("a"), k("1"))
	v, ok := tr.Get(k("a"))
	if !ok || !bytes.Equal(v, k("1")) {
		t.Fatalf("got (%q,%v)", v, ok)
	}
}

func TestOverwriteIsIdempotentOnStructure(t *testing.T) {
	tr := NewAVLTree()
	tr.Set(k("a"), k("1"))
	tr.Set(k("a"), k("2"))

	if tr.Len() != 1 {
		t.Fatalf("expected exactly one node, got %d", tr.Len())
	}
	v, ok := tr.Get(k("a"))
	if !ok || !bytes.Equal(v, k("2")) {
		t.Fatalf("got (%q,%v)", v, ok)
	}
}

func TestUnsetAbsentIsNoop(t *testing.T) {
	tr := NewAVLTree()
	tr.Set(k("a"), k("1"))
	tr.Unset(k("zzz"))
	if tr.Len() != 1 {
		t.Fatalf("expected size 1, got %d", tr.Len())
	}
}

func TestSetUnsetGetAbsent(t *testing.T) {
	tr := NewAVLTree()
	tr.Set(k("a"), k("1"))
	tr.Unset(k("a"))
	if _, ok := tr.Get(k("a")); ok {
		t.Fatal("expected absent after unset")
	}
}

func TestInOrderAscendingNoDuplicates(t *testing.T) {
	tr := NewAVLTree()
	keys := []string{"m", "b", "z", "a", "c", "y", "n"}
	for _, s := range keys {
		tr.Set(k(s), k(s))
	}

	var last []byte
	count := 0
	for rec := range tr.InOrder() {
		if last != nil && bytes.Compare(last, rec.Key) >= 0 {
			t.Fatalf("keys not strictly ascending at %q after %q", rec.Key, last)
		}
		last = rec.Key
		count++
	}
	if count != len(keys) {
		t.Fatalf("expected %d entries, got %d", len(keys), count)
	}
}

// TestSkewedInsertHeights reproduces scenario 1 from the testable
// properties: inserting "qw","q","qwe","qwer","qwert" in that order must
// leave the root at "qw" with height 3, root.left="q" height 1, and
// root.right="qwer" height 2 with children "qwe" (h=1) and "qwert" (h=1).
func TestSkewedInsertHeights(t *testing.T) {
	tr := NewAVLTree()
	for _, s := range []string{"qw", "q", "qwe", "qwer", "qwert"} {
		tr.Set(k(s), k(s))
	}

	root := tr.root
	if root == nil || string(root.key) != "qw" || root.height != 3 {
		t.Fatalf("root = %+v, want key=qw height=3", root)
	}
	if root.left == nil || string(root.left.key) != "q" || root.left.height != 1 {
		t.Fatalf("root.left = %+v, want key=q height=1", root.left)
	}
	if root.right == nil || string(root.right.key) != "qwer" || root.right.height != 2 {
		t.Fatalf("root.right = %+v, want key=qwer height=2", root.right)
	}
	if root.right.left == nil || string(root.right.left.key) != "qwe" || root.right.left.height != 1 {
		t.Fatalf("root.right.left = %+v, want key=qwe height=1", root.right.left)
	}
	if root.right.right == nil || string(root.right.right.key) != "qwert" || root.right.right.height != 1 {
		t.Fatalf("root.right.right = %+v, want key=qwert height=1", root.right.right)
	}
}

// TestDeleteWithTwoChildren reproduces scenario 3: from the tree of
// scenario 1, deleting "qwer" (two children) must splice in its in-order
// predecessor "qwe", leaving root.right="qwe" with right child "qwert".
func TestDeleteWithTwoChildren(t *testing.T) {
	tr := NewAVLTree()
	for _, s := range []string{"qw", "q", "qwe", "qwer", "qwert"} {
		tr.Set(k(s), k(s))
	}

	tr.Unset(k("qwer"))

	root := tr.root
	if root.right == nil || string(root.right.key) != "qwe" {
		t.Fatalf("root.right = %+v, want key=qwe", root.right)
	}
	if root.right.right == nil || string(root.right.right.key) != "qwert" {
		t.Fatalf("root.right.right = %+v, want key=qwert", root.right.right)
	}
	if !isBalanced(root) {
		t.Fatal("tree is not balanced after delete")
	}
}

// isBalanced walks the tree checking both the BST order and the AVL
// height invariants, failing fast on the first violation.
func isBalanced(n *node) bool {
	ok := true
	var walk func(n *node) int8
	walk = func(n *node) int8 {
		if n == nil {
			return 0
		}
		lh := walk(n.left)
		rh := walk(n.right)
		if lh-rh > 1 || rh-lh > 1 {
			ok = false
		}
		wantHeight := 1 + max8(lh, rh)
		if n.height != wantHeight {
			ok = false
		}
		return n.height
	}
	walk(n)
	return ok
}

func checkBSTOrder(t *testing.T, n *node, lo, hi []byte) {
	t.Helper()
	if n == nil {
		return
	}
	if lo != nil && bytes.Compare(n.key, lo) <= 0 {
		t.Fatalf("key %q not greater than lower bound %q", n.key, lo)
	}
	if hi != nil && bytes.Compare(n.key, hi) >= 0 {
		t.Fatalf("key %q not less than upper bound %q", n.key, hi)
	}
	checkBSTOrder(t, n.left, lo, n.key)
	checkBSTOrder(t, n.right, n.key, hi)
}

// TestRandomSequenceMaintainsInvariants runs a long pseudo-random sequence
// of Set/Unset operations and checks BST order and AVL balance hold after
// every single mutation, with deterministic randomness for repeatability.
func TestRandomSequenceMaintainsInvariants(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tr := NewAVLTree()
	present := map[string]bool{}

	for i := 0; i < 2000; i++ {
		key := fmt.Sprintf("k%03d", rng.Intn(200))
		if rng.Intn(3) == 0 {
			tr.Unset(k(key))
			delete(present, key)
		} else {
			tr.Set(k(key), k(key))
			present[key] = true
		}

		if !isBalanced(tr.root) {
			t.Fatalf("unbalanced after op %d (key=%s)", i, key)
		}
		checkBSTOrder(t, tr.root, nil, nil)
	}

	for key := range present {
		if _, ok := tr.Get(k(key)); !ok {
			t.Fatalf("expected %s present", key)
		}
	}
}

func TestFootprintGrowsAndShrinks(t *testing.T) {
	tr := NewAVLTree()
	if tr.Footprint() != 0 {
		t.Fatalf("expected 0 footprint on empty tree, got %d", tr.Footprint())
	}
	tr.Set(k("abc"), k("xyz"))
	want := int64(fixedNodeOverhead + 3 + 3)
	if tr.Footprint() != want {
		t.Fatalf("footprint = %d, want %d", tr.Footprint(), want)
	}
	tr.Clear()
	if tr.Footprint() != 0 {
		t.Fatalf("expected 0 footprint after clear, got %d", tr.Footprint())
	}
}
