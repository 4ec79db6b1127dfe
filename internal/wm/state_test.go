package wm

import (
	"testing"

	"github.com/1broseidon/bsptile/internal/bsp"
)

func newTestState(t *testing.T, wins ...bsp.WindowID) *State {
	t.Helper()
	s := NewState(3, 0.5)
	for _, w := range wins {
		if err := s.AddWindow(w); err != nil {
			t.Fatalf("add window %d: %v", w, err)
		}
	}
	return s
}

func TestAddWindow_FocusesNewWindow(t *testing.T) {
	s := newTestState(t, 1, 2)
	if s.Focused() != 2 {
		t.Fatalf("expected focus on 2, got %d", s.Focused())
	}
	if s.WindowCount() != 2 {
		t.Fatalf("expected 2 windows, got %d", s.WindowCount())
	}
}

func TestRemoveWindow_FocusMovesToSuccessor(t *testing.T) {
	s := newTestState(t, 1, 2, 3)
	s.FocusWindow(2)
	s.RemoveWindow(2)
	if s.Focused() != 3 {
		t.Fatalf("expected focus on depth-first successor 3, got %d", s.Focused())
	}
}

func TestRemoveWindow_LastWindowClearsFocus(t *testing.T) {
	s := newTestState(t, 1)
	s.RemoveWindow(1)
	if s.Focused() != bsp.None {
		t.Fatalf("expected no focus, got %d", s.Focused())
	}
}

func TestToggleFullscreen(t *testing.T) {
	s := newTestState(t, 1, 2)

	s.ToggleFullscreen(1)
	if s.Fullscreen() != 1 {
		t.Fatalf("expected fullscreen on 1, got %d", s.Fullscreen())
	}
	s.ToggleFullscreen(1)
	if s.Fullscreen() != bsp.None {
		t.Fatalf("expected fullscreen cleared, got %d", s.Fullscreen())
	}
}

func TestModeExclusivity_FullscreenClearsZoom(t *testing.T) {
	s := newTestState(t, 1, 2)

	if !s.ToggleZoom(2) {
		t.Fatalf("zoom should engage")
	}
	s.ToggleFullscreen(1)
	if s.Zoomed() != bsp.None {
		t.Fatalf("engaging fullscreen must clear zoom, still zoomed on %d", s.Zoomed())
	}
	if s.Fullscreen() != 1 {
		t.Fatalf("expected fullscreen on 1, got %d", s.Fullscreen())
	}
}

func TestToggleZoom_InertWhileFullscreen(t *testing.T) {
	s := newTestState(t, 1, 2)
	s.ToggleFullscreen(1)

	if s.ToggleZoom(2) {
		t.Fatalf("zoom must be rejected while fullscreen is active")
	}
	if s.Zoomed() != bsp.None || s.Fullscreen() != 1 {
		t.Fatalf("state changed by rejected zoom: zoom=%d fullscreen=%d", s.Zoomed(), s.Fullscreen())
	}
}

func TestToggleZoom_SwitchesTarget(t *testing.T) {
	s := newTestState(t, 1, 2, 3)

	s.ToggleZoom(2)
	if s.Zoomed() != 2 {
		t.Fatalf("expected zoom on 2, got %d", s.Zoomed())
	}
	s.ToggleZoom(3)
	if s.Zoomed() != 3 {
		t.Fatalf("zoom on another window should switch target, got %d", s.Zoomed())
	}
	s.ToggleZoom(3)
	if s.Zoomed() != bsp.None {
		t.Fatalf("expected zoom cleared, got %d", s.Zoomed())
	}
}

func TestDestroyModeWindowClearsMode(t *testing.T) {
	s := newTestState(t, 1, 2)
	s.ToggleFullscreen(2)
	s.RemoveWindow(2)
	if s.Fullscreen() != bsp.None {
		t.Fatalf("destroying the fullscreen window must clear the mode")
	}

	s2 := newTestState(t, 1, 2)
	s2.ToggleZoom(2)
	s2.RemoveWindow(2)
	if s2.Zoomed() != bsp.None {
		t.Fatalf("destroying the zoomed window must clear the mode")
	}
}

func TestRotate_AncestorSplitClearsMode(t *testing.T) {
	// 1 | (2 / 3): rotating 3's parent split reshapes the subtree that
	// holds the zoomed window 2.
	s := newTestState(t, 1, 2, 3)
	s.ToggleZoom(2)
	s.Rotate(3)
	if s.Zoomed() != bsp.None {
		t.Fatalf("rotating an ancestor split must drop zoom")
	}
}

func TestRotate_UnrelatedSplitPreservesMode(t *testing.T) {
	// Tree is 1 | (2 / (3 | 4)); the parent split of 4 holds {3,4} only,
	// so rotating it does not touch window 1's zoom.
	s := newTestState(t, 1, 2, 3, 4)
	s.ToggleZoom(1)
	s.Rotate(4)
	if s.Zoomed() != 1 {
		t.Fatalf("rotating an unrelated split must preserve zoom, got %d", s.Zoomed())
	}
}

func TestNoteFocus_NeverTouchesModes(t *testing.T) {
	s := newTestState(t, 1, 2)
	s.ToggleFullscreen(1)

	if !s.NoteFocus(2) {
		t.Fatalf("expected focus note for managed window")
	}
	if s.Fullscreen() != 1 {
		t.Fatalf("protocol focus noise cancelled fullscreen")
	}
}

func TestFocusWindow_AwayFromModeWindowDropsMode(t *testing.T) {
	s := newTestState(t, 1, 2)
	s.ToggleFullscreen(1)
	s.FocusWindow(2)
	if s.Fullscreen() != bsp.None {
		t.Fatalf("deliberate focus away from fullscreen window should drop it")
	}

	s.ToggleFullscreen(2)
	s.FocusWindow(2)
	if s.Fullscreen() != 2 {
		t.Fatalf("focusing the mode window itself must keep the mode")
	}
}

func TestSwitchWorkspace(t *testing.T) {
	s := newTestState(t, 1, 2)
	s.ToggleFullscreen(1)

	if err := s.SwitchWorkspace(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Workspace() != 1 || s.WindowCount() != 0 {
		t.Fatalf("expected empty workspace 1, got ws=%d count=%d", s.Workspace(), s.WindowCount())
	}
	if s.Fullscreen() != bsp.None {
		t.Fatalf("workspace switch must clear modes")
	}

	if err := s.SwitchWorkspace(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Focused() == bsp.None {
		t.Fatalf("returning to a populated workspace should focus a window")
	}

	if err := s.SwitchWorkspace(5); err == nil {
		t.Fatalf("expected range error for workspace 5")
	}
}

func TestMoveToWorkspace(t *testing.T) {
	s := newTestState(t, 1, 2)
	if err := s.MoveToWorkspace(2, 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.WindowCount() != 1 || !s.Has(2) {
		t.Fatalf("window 2 should be managed on another workspace")
	}
	if err := s.SwitchWorkspace(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !s.Tree().Has(2) {
		t.Fatalf("window 2 should be on workspace 1")
	}
}
