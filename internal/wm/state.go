package wm

import (
	"fmt"

	"github.com/1broseidon/bsptile/internal/bsp"
)

// State owns one BSP tree per workspace plus the focus, fullscreen and
// zoom flags. Fullscreen and zoom are mutually exclusive: setting one
// clears the other. State has exactly one owner (the Coordinator) for its
// whole lifetime, so there is no locking.
type State struct {
	trees      []*bsp.Tree
	current    int
	splitRatio float64

	focused    bsp.WindowID
	fullscreen bsp.WindowID
	zoomed     bsp.WindowID
}

// NewState creates empty trees for the given number of workspaces.
func NewState(workspaces int, splitRatio float64) *State {
	if workspaces < 1 {
		workspaces = 1
	}
	trees := make([]*bsp.Tree, workspaces)
	for i := range trees {
		trees[i] = bsp.NewTree()
	}
	return &State{trees: trees, splitRatio: splitRatio}
}

// Tree returns the visible workspace's tree.
func (s *State) Tree() *bsp.Tree { return s.trees[s.current] }

// Workspace returns the visible workspace index (0-based).
func (s *State) Workspace() int { return s.current }

// WorkspaceCount returns the configured number of workspaces.
func (s *State) WorkspaceCount() int { return len(s.trees) }

// Focused returns the focused window, or bsp.None.
func (s *State) Focused() bsp.WindowID { return s.focused }

// Fullscreen returns the fullscreen window, or bsp.None.
func (s *State) Fullscreen() bsp.WindowID { return s.fullscreen }

// Zoomed returns the zoomed window, or bsp.None.
func (s *State) Zoomed() bsp.WindowID { return s.zoomed }

// Has reports whether win is managed on any workspace.
func (s *State) Has(win bsp.WindowID) bool {
	return s.workspaceOf(win) >= 0
}

// WindowCount returns the number of windows on the visible workspace.
func (s *State) WindowCount() int { return s.Tree().Count() }

func (s *State) workspaceOf(win bsp.WindowID) int {
	for i, t := range s.trees {
		if t.Has(win) {
			return i
		}
	}
	return -1
}

// AddWindow inserts win into the visible workspace, splitting the focused
// window's leaf (or the last leaf in depth-first order when nothing is
// focused), and focuses it.
func (s *State) AddWindow(win bsp.WindowID) error {
	target := s.focused
	if !s.Tree().Has(target) {
		target = bsp.None
	}
	if err := s.Tree().AddWindow(target, win, s.splitRatio); err != nil {
		return err
	}
	s.focused = win
	return nil
}

// RemoveWindow drops win from whichever workspace holds it. Destroying
// the fullscreen or zoomed window clears that mode; destroying the
// focused window moves focus to its depth-first successor.
func (s *State) RemoveWindow(win bsp.WindowID) {
	ws := s.workspaceOf(win)
	if ws < 0 {
		return
	}
	t := s.trees[ws]

	var successor bsp.WindowID
	if next, ok := t.NextWindow(win); ok && next != win {
		successor = next
	}
	t.RemoveWindow(win)

	if s.fullscreen == win {
		s.fullscreen = bsp.None
	}
	if s.zoomed == win {
		s.zoomed = bsp.None
	}
	if s.focused == win {
		if ws == s.current {
			s.focused = successor
		} else {
			s.focused = bsp.None
		}
	}
}

// FocusWindow moves focus to win if it is on the visible workspace. A
// deliberate focus change away from an active mode window drops the mode:
// the user is looking elsewhere now.
func (s *State) FocusWindow(win bsp.WindowID) bool {
	if !s.Tree().Has(win) {
		return false
	}
	if s.fullscreen != bsp.None && s.fullscreen != win {
		s.fullscreen = bsp.None
	}
	if s.zoomed != bsp.None && s.zoomed != win {
		s.zoomed = bsp.None
	}
	s.focused = win
	return true
}

// NoteFocus records a protocol-level focus notification without touching
// modes. Background focus traffic (input methods, override-redirect
// popups) must never cancel fullscreen or zoom.
func (s *State) NoteFocus(win bsp.WindowID) bool {
	if !s.Tree().Has(win) {
		return false
	}
	s.focused = win
	return true
}

// NextWindow returns the window after the focused one, wrapping around.
func (s *State) NextWindow() (bsp.WindowID, bool) {
	return s.Tree().NextWindow(s.focused)
}

// PrevWindow returns the window before the focused one, wrapping around.
func (s *State) PrevWindow() (bsp.WindowID, bool) {
	return s.Tree().PrevWindow(s.focused)
}

// ToggleFullscreen toggles fullscreen for win, clearing zoom when it
// engages.
func (s *State) ToggleFullscreen(win bsp.WindowID) {
	if !s.Tree().Has(win) {
		return
	}
	if s.fullscreen == win {
		s.fullscreen = bsp.None
		return
	}
	s.fullscreen = win
	s.zoomed = bsp.None
}

// ToggleZoom toggles zoom-to-parent for win. Zoom is inert while
// fullscreen is active; the call reports whether it took effect. Zoom on
// a second window switches the zoom target.
func (s *State) ToggleZoom(win bsp.WindowID) bool {
	if s.fullscreen != bsp.None {
		return false
	}
	if !s.Tree().Has(win) {
		return false
	}
	if s.zoomed == win {
		s.zoomed = bsp.None
	} else {
		s.zoomed = win
	}
	return true
}

// Rotate flips win's parent split. If the rotated split is an ancestor of
// the fullscreen/zoomed window, the mode is dropped: the tree shape under
// it changed and its cached bounds are stale.
func (s *State) Rotate(win bsp.WindowID) {
	t := s.Tree()
	if !t.Has(win) {
		return
	}
	if s.fullscreen != bsp.None && t.SplitContains(win, s.fullscreen) {
		s.fullscreen = bsp.None
	}
	if s.zoomed != bsp.None && t.SplitContains(win, s.zoomed) {
		s.zoomed = bsp.None
	}
	t.Rotate(win)
}

// SwapNext exchanges the focused window's leaf with its depth-first
// successor's.
func (s *State) SwapNext() {
	next, ok := s.Tree().NextWindow(s.focused)
	if !ok || next == s.focused {
		return
	}
	// Both windows were just found in the tree.
	_ = s.Tree().Swap(s.focused, next)
}

// Balance equalizes every split ratio on the visible workspace.
func (s *State) Balance() {
	s.Tree().Balance()
}

// SwitchWorkspace makes workspace n (0-based) visible. Modes are
// properties of the visible tree and are cleared on switch. Focus lands
// on the new workspace's last leaf.
func (s *State) SwitchWorkspace(n int) error {
	if n < 0 || n >= len(s.trees) {
		return fmt.Errorf("workspace %d out of range (have %d)", n+1, len(s.trees))
	}
	if n == s.current {
		return nil
	}
	s.current = n
	s.fullscreen = bsp.None
	s.zoomed = bsp.None
	s.focused = bsp.None
	if wins := s.Tree().Windows(); len(wins) > 0 {
		s.focused = wins[len(wins)-1]
	}
	return nil
}

// MoveToWorkspace moves win from the visible workspace to workspace n
// without following it.
func (s *State) MoveToWorkspace(win bsp.WindowID, n int) error {
	if n < 0 || n >= len(s.trees) {
		return fmt.Errorf("workspace %d out of range (have %d)", n+1, len(s.trees))
	}
	if !s.Tree().Has(win) {
		return fmt.Errorf("move to workspace: %d: %w", win, bsp.ErrWindowNotFound)
	}
	if n == s.current {
		return nil
	}
	s.RemoveWindow(win)
	return s.trees[n].AddWindow(bsp.None, win, s.splitRatio)
}
