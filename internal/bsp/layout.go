package bsp

import (
	"fmt"
	"math"
)

// Rect is a rectangle in screen pixel space.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Geometry is the computed placement of one window. It is output only,
// recomputed on every layout pass and never persisted.
type Geometry struct {
	Window WindowID
	X      int
	Y      int
	Width  int
	Height int
}

// Params are the layout knobs that shape geometry computation. Border
// width participates only in configuration validation and the final
// configure call; the tile arithmetic itself uses the gap alone.
type Params struct {
	Gap             int
	MinWindowWidth  int
	MinWindowHeight int
	BorderWidth     int
}

// Geometries maps the tree onto screen, recursively partitioning
// rectangles: each split subtracts one gap from the available span and
// divides the remainder by its ratio. Pure arithmetic, no mutation, no
// I/O, cannot fail.
//
// When the configured minimums do not fit, gaps are compressed (halved
// until zero) before windows shrink below their minimums. With all gaps
// gone the minimums become best effort and spans floor at one pixel.
func Geometries(t *Tree, screen Rect, p Params) []Geometry {
	if t == nil || t.root < 0 {
		return nil
	}
	gap := effectiveGap(t, screen, p)
	out := make([]Geometry, 0, t.Count())
	t.partition(t.root, inset(screen, gap), gap, func(i int, r Rect) {
		out = append(out, Geometry{
			Window: t.nodes[i].window,
			X:      r.X,
			Y:      r.Y,
			Width:  maxInt(r.Width, 1),
			Height: maxInt(r.Height, 1),
		})
	})
	return out
}

// ParentBounds returns the rectangle owned by the immediate parent split
// of win, subdividing screen exactly as Geometries would. This is the
// zoom-to-parent target. The root leaf has no parent to zoom into.
func ParentBounds(t *Tree, win WindowID, screen Rect, p Params) (Rect, error) {
	at := t.findLeaf(win)
	if at < 0 {
		return Rect{}, fmt.Errorf("parent bounds: %d: %w", win, ErrWindowNotFound)
	}
	parent := t.nodes[at].parent
	if parent < 0 {
		return Rect{}, fmt.Errorf("parent bounds: %d: %w", win, ErrNoParent)
	}

	gap := effectiveGap(t, screen, p)
	var found Rect
	ok := false
	t.walk(t.root, inset(screen, gap), gap, func(i int, r Rect) bool {
		if i == parent {
			found, ok = r, true
			return false
		}
		return true
	})
	if !ok {
		// The parent index came from the same tree; not reaching it in
		// the walk is a structural bug, not a runtime condition.
		return Rect{}, fmt.Errorf("parent bounds: %d: parent split unreachable", win)
	}
	return found, nil
}

// effectiveGap compresses the configured gap until every leaf satisfies
// the minimum window dimensions, or the gap is exhausted.
func effectiveGap(t *Tree, screen Rect, p Params) int {
	gap := p.Gap
	for gap > 0 && !fits(t, screen, gap, p) {
		gap /= 2
	}
	return gap
}

func fits(t *Tree, screen Rect, gap int, p Params) bool {
	ok := true
	t.partition(t.root, inset(screen, gap), gap, func(i int, r Rect) {
		if r.Width < p.MinWindowWidth || r.Height < p.MinWindowHeight {
			ok = false
		}
	})
	return ok
}

// partition runs the subdivision and calls emit for every leaf.
func (t *Tree) partition(root int, r Rect, gap int, emit func(i int, r Rect)) {
	t.walk(root, r, gap, func(i int, nr Rect) bool {
		if t.nodes[i].leaf {
			emit(i, nr)
		}
		return true
	})
}

// walk visits every node with the rectangle it owns, splitting on the way
// down. Returning false from visit stops the walk.
func (t *Tree) walk(i int, r Rect, gap int, visit func(i int, r Rect) bool) bool {
	if !visit(i, r) {
		return false
	}
	n := &t.nodes[i]
	if n.leaf {
		return true
	}
	left, right := splitRect(r, n.dir, n.ratio, gap)
	if !t.walk(n.left, left, gap, visit) {
		return false
	}
	return t.walk(n.right, right, gap, visit)
}

// splitRect divides r along dir: one gap is subtracted from the span and
// the remainder divided by ratio. Left + gap + right reconstructs the
// span exactly.
func splitRect(r Rect, dir Direction, ratio float64, gap int) (Rect, Rect) {
	if dir == Vertical {
		avail := r.Width - gap
		lw := int(math.Round(float64(avail) * ratio))
		left := Rect{X: r.X, Y: r.Y, Width: lw, Height: r.Height}
		right := Rect{X: r.X + lw + gap, Y: r.Y, Width: avail - lw, Height: r.Height}
		return left, right
	}
	avail := r.Height - gap
	lh := int(math.Round(float64(avail) * ratio))
	top := Rect{X: r.X, Y: r.Y, Width: r.Width, Height: lh}
	bottom := Rect{X: r.X, Y: r.Y + lh + gap, Width: r.Width, Height: avail - lh}
	return top, bottom
}

func inset(r Rect, gap int) Rect {
	return Rect{
		X:      r.X + gap,
		Y:      r.Y + gap,
		Width:  r.Width - 2*gap,
		Height: r.Height - 2*gap,
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
