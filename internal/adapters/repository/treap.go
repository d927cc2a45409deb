package repository

import "math/rand/v2"

// Treap-based ordered index with subtree sizes, giving O(log n) expected
// insert, delete and rank. Keys are (primary, seq); seq is the admission
// sequence and is unique, so every key is distinct and ties on primary
// resolve by admission order.

type key struct {
	primary float64
	seq     uint64
}

type node struct {
	key   key
	id    string
	prio  uint64
	left  *node
	right *node
	size  int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

// index orders ids by key. desc puts larger primaries first; seq is always
// ascending.
type index struct {
	root *node
	desc bool
}

// less returns true if a comes before b in index order.
func (ix *index) less(a, b key) bool {
	if a.primary != b.primary {
		if ix.desc {
			return a.primary > b.primary
		}
		return a.primary < b.primary
	}
	return a.seq < b.seq
}

func (ix *index) insert(k key, id string) {
	ix.root = ix.insertAt(ix.root, k, id)
}

func (ix *index) insertAt(n *node, k key, id string) *node {
	if n == nil {
		return &node{key: k, id: id, prio: rand.Uint64(), size: 1} //nolint:gosec // treap balance only
	}
	if ix.less(k, n.key) {
		n.left = ix.insertAt(n.left, k, id)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = ix.insertAt(n.right, k, id)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func (ix *index) delete(k key) {
	ix.root = ix.deleteAt(ix.root, k)
}

func (ix *index) deleteAt(n *node, k key) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.key == k:
		// Rotate the higher priority child up until n is a leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = ix.deleteAt(n.right, k)
		} else {
			n = rotateLeft(n)
			n.left = ix.deleteAt(n.left, k)
		}
	case ix.less(k, n.key):
		n.left = ix.deleteAt(n.left, k)
	default:
		n.right = ix.deleteAt(n.right, k)
	}
	fix(n)
	return n
}

// move re-keys id from old to updated.
func (ix *index) move(old, updated key, id string) {
	if old == updated {
		return
	}
	ix.delete(old)
	ix.insert(updated, id)
}

// rank returns the 0-based position of k, which must be present.
func (ix *index) rank(k key) int {
	r := 0
	n := ix.root
	for n != nil {
		switch {
		case n.key == k:
			return r + nsize(n.left)
		case ix.less(k, n.key):
			n = n.left
		default:
			r += nsize(n.left) + 1
			n = n.right
		}
	}
	return r
}

// collect appends up to limit ids in index order.
func (ix *index) collect(limit int) []string {
	out := make([]string, 0, min(limit, nsize(ix.root)))
	collectAt(ix.root, limit, &out)
	return out
}

func collectAt(n *node, limit int, out *[]string) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectAt(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n.id)
	}
	if len(*out) < limit {
		collectAt(n.right, limit, out)
	}
}

func (ix *index) count() int {
	return nsize(ix.root)
}
