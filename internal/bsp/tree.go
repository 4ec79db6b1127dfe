package bsp

import (
	"errors"
	"fmt"
)

// WindowID identifies a managed window. Zero is reserved as "no window",
// matching the protocol's None resource id.
type WindowID uint32

// None is the absent window id.
const None WindowID = 0

// Direction is the orientation of a split.
type Direction int

const (
	// Vertical places children side by side (the split line is vertical).
	Vertical Direction = iota
	// Horizontal stacks children top over bottom.
	Horizontal
)

func (d Direction) String() string {
	if d == Vertical {
		return "vertical"
	}
	return "horizontal"
}

// flip returns the other direction.
func (d Direction) flip() Direction {
	if d == Vertical {
		return Horizontal
	}
	return Vertical
}

var (
	// ErrWindowNotFound is returned when an operation names a window the
	// tree does not hold.
	ErrWindowNotFound = errors.New("window not found in tree")
	// ErrDuplicateWindow is returned when adding a window already present.
	ErrDuplicateWindow = errors.New("window already in tree")
	// ErrNoParent is returned when an operation needs a parent split and
	// the window is the root leaf.
	ErrNoParent = errors.New("window has no parent split")
)

// minRatio bounds split ratios away from zero. Ratios live in (0,1]; a
// degenerate ratio is clamped at write time, never at read time.
const minRatio = 0.01

func clampRatio(r float64) float64 {
	if r < minRatio {
		return minRatio
	}
	if r > 1 {
		return 1
	}
	return r
}

// node is one arena slot. A node is either a leaf holding a window or a
// split holding a direction, a ratio and two children. Integer indices
// instead of pointers keep restructuring (add/remove/rotate) free of any
// lifetime bookkeeping.
type node struct {
	parent int // -1 for the root
	leaf   bool

	// split fields
	dir         Direction
	ratio       float64
	left, right int

	// leaf field
	window WindowID
}

// Tree is a binary space partition of one workspace. The zero value is not
// usable; construct with NewTree.
type Tree struct {
	nodes []node
	root  int // -1 when empty
	free  []int
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{root: -1}
}

func (t *Tree) alloc(n node) int {
	if len(t.free) > 0 {
		i := t.free[len(t.free)-1]
		t.free = t.free[:len(t.free)-1]
		t.nodes[i] = n
		return i
	}
	t.nodes = append(t.nodes, n)
	return len(t.nodes) - 1
}

func (t *Tree) release(i int) {
	t.nodes[i] = node{parent: -1}
	t.free = append(t.free, i)
}

// findLeaf returns the arena index of the leaf holding win, or -1.
func (t *Tree) findLeaf(win WindowID) int {
	if t.root < 0 || win == None {
		return -1
	}
	return t.findLeafIn(t.root, win)
}

func (t *Tree) findLeafIn(i int, win WindowID) int {
	n := &t.nodes[i]
	if n.leaf {
		if n.window == win {
			return i
		}
		return -1
	}
	if j := t.findLeafIn(n.left, win); j >= 0 {
		return j
	}
	return t.findLeafIn(n.right, win)
}

// lastLeaf returns the final leaf in depth-first order. With no focused
// window to target, additions split this leaf: it is the most recently
// subdivided region, which keeps repeated untargeted adds deterministic.
func (t *Tree) lastLeaf() int {
	i := t.root
	for !t.nodes[i].leaf {
		i = t.nodes[i].right
	}
	return i
}

func (t *Tree) depth(i int) int {
	d := 0
	for t.nodes[i].parent >= 0 {
		i = t.nodes[i].parent
		d++
	}
	return d
}

// AddWindow inserts win into the tree. An empty tree gains win as the root
// leaf. Otherwise the target leaf (the leaf holding target, or the last
// leaf in depth-first order when target is None) is replaced in place by a
// split holding the old window on the left and win on the right. The split
// direction alternates with depth: even depths split vertically, odd
// horizontally.
func (t *Tree) AddWindow(target, win WindowID, ratio float64) error {
	if win == None {
		return fmt.Errorf("add window: %w", ErrWindowNotFound)
	}
	if t.findLeaf(win) >= 0 {
		return fmt.Errorf("add window %d: %w", win, ErrDuplicateWindow)
	}
	if t.root < 0 {
		t.root = t.alloc(node{parent: -1, leaf: true, window: win})
		return nil
	}

	at := -1
	if target != None {
		if at = t.findLeaf(target); at < 0 {
			return fmt.Errorf("add window: target %d: %w", target, ErrWindowNotFound)
		}
	} else {
		at = t.lastLeaf()
	}

	dir := Vertical
	if t.depth(at)%2 == 1 {
		dir = Horizontal
	}

	old := t.nodes[at].window
	left := t.alloc(node{parent: at, leaf: true, window: old})
	right := t.alloc(node{parent: at, leaf: true, window: win})
	t.nodes[at] = node{
		parent: t.nodes[at].parent,
		dir:    dir,
		ratio:  clampRatio(ratio),
		left:   left,
		right:  right,
	}
	return nil
}

// RemoveWindow deletes win's leaf and hoists its sibling subtree into the
// parent's place. Removing an absent window is a no-op.
func (t *Tree) RemoveWindow(win WindowID) {
	at := t.findLeaf(win)
	if at < 0 {
		return
	}
	p := t.nodes[at].parent
	if p < 0 {
		t.release(at)
		t.root = -1
		return
	}

	sib := t.nodes[p].left
	if sib == at {
		sib = t.nodes[p].right
	}
	gp := t.nodes[p].parent
	t.nodes[sib].parent = gp
	if gp < 0 {
		t.root = sib
	} else if t.nodes[gp].left == p {
		t.nodes[gp].left = sib
	} else {
		t.nodes[gp].right = sib
	}
	t.release(at)
	t.release(p)
}

// Rotate flips the direction of win's immediate parent split. Ratio,
// children and every other node are untouched, so applying it twice is the
// identity. Rotating the sole leaf is a no-op.
func (t *Tree) Rotate(win WindowID) {
	at := t.findLeaf(win)
	if at < 0 {
		return
	}
	p := t.nodes[at].parent
	if p < 0 {
		return
	}
	t.nodes[p].dir = t.nodes[p].dir.flip()
}

// Swap exchanges the windows held by two leaves. Tree shape, ratios and
// directions are unchanged.
func (t *Tree) Swap(a, b WindowID) error {
	ia := t.findLeaf(a)
	if ia < 0 {
		return fmt.Errorf("swap: %d: %w", a, ErrWindowNotFound)
	}
	ib := t.findLeaf(b)
	if ib < 0 {
		return fmt.Errorf("swap: %d: %w", b, ErrWindowNotFound)
	}
	t.nodes[ia].window, t.nodes[ib].window = t.nodes[ib].window, t.nodes[ia].window
	return nil
}

// Balance sets every split's ratio to leftLeaves/(leftLeaves+rightLeaves)
// in a single post-order pass. Directions and depth-first leaf order are
// preserved. Empty and single-leaf trees are untouched.
func (t *Tree) Balance() {
	if t.root < 0 {
		return
	}
	t.balanceAt(t.root)
}

func (t *Tree) balanceAt(i int) int {
	n := &t.nodes[i]
	if n.leaf {
		return 1
	}
	l := t.balanceAt(n.left)
	r := t.balanceAt(n.right)
	n.ratio = clampRatio(float64(l) / float64(l+r))
	return l + r
}

// Windows returns the managed windows in depth-first leaf order.
func (t *Tree) Windows() []WindowID {
	if t.root < 0 {
		return nil
	}
	out := make([]WindowID, 0, t.Count())
	t.collect(t.root, &out)
	return out
}

func (t *Tree) collect(i int, out *[]WindowID) {
	n := &t.nodes[i]
	if n.leaf {
		*out = append(*out, n.window)
		return
	}
	t.collect(n.left, out)
	t.collect(n.right, out)
}

// Has reports whether win is managed by this tree.
func (t *Tree) Has(win WindowID) bool {
	return t.findLeaf(win) >= 0
}

// Count returns the number of managed windows.
func (t *Tree) Count() int {
	if t.root < 0 {
		return 0
	}
	return t.countAt(t.root)
}

func (t *Tree) countAt(i int) int {
	n := &t.nodes[i]
	if n.leaf {
		return 1
	}
	return t.countAt(n.left) + t.countAt(n.right)
}

// NextWindow returns the window after win in depth-first order, wrapping
// to the first. The second result is false when win is absent.
func (t *Tree) NextWindow(win WindowID) (WindowID, bool) {
	return t.step(win, 1)
}

// PrevWindow returns the window before win in depth-first order, wrapping
// to the last.
func (t *Tree) PrevWindow(win WindowID) (WindowID, bool) {
	return t.step(win, -1)
}

func (t *Tree) step(win WindowID, delta int) (WindowID, bool) {
	order := t.Windows()
	for i, w := range order {
		if w == win {
			j := (i + delta + len(order)) % len(order)
			return order[j], true
		}
	}
	return None, false
}

// SplitContains reports whether the parent split of win's leaf has other
// somewhere in its subtree. Used to decide whether rotating win's split
// invalidates cached bounds for other (zoom/fullscreen staleness).
func (t *Tree) SplitContains(win, other WindowID) bool {
	at := t.findLeaf(win)
	if at < 0 {
		return false
	}
	p := t.nodes[at].parent
	if p < 0 {
		return false
	}
	o := t.findLeaf(other)
	for o >= 0 {
		if o == p {
			return true
		}
		o = t.nodes[o].parent
	}
	return false
}

// Clone returns a deep copy of the tree.
func (t *Tree) Clone() *Tree {
	c := &Tree{
		nodes: append([]node(nil), t.nodes...),
		root:  t.root,
		free:  append([]int(nil), t.free...),
	}
	return c
}

// Equal reports structural equality: same shape, directions, ratios and
// windows in the same positions. Arena layout is irrelevant.
func (t *Tree) Equal(o *Tree) bool {
	if (t.root < 0) != (o.root < 0) {
		return false
	}
	if t.root < 0 {
		return true
	}
	return t.equalAt(t.root, o, o.root)
}

func (t *Tree) equalAt(i int, o *Tree, j int) bool {
	a, b := &t.nodes[i], &o.nodes[j]
	if a.leaf != b.leaf {
		return false
	}
	if a.leaf {
		return a.window == b.window
	}
	if a.dir != b.dir || a.ratio != b.ratio {
		return false
	}
	return t.equalAt(a.left, o, b.left) && t.equalAt(a.right, o, b.right)
}
