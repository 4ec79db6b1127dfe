package wm

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/bsptile/internal/bsp"
	"github.com/1broseidon/bsptile/internal/shortcut"
)

// fakeServer records every command the coordinator issues, in order.
type serverCall struct {
	name     string
	win      bsp.WindowID
	geo      bsp.Geometry
	border   int
	decision shortcut.Decision
}

type fakeServer struct {
	screen bsp.Rect
	held   map[xproto.Keycode]bool
	calls  []serverCall
}

func newFakeServer() *fakeServer {
	return &fakeServer{screen: bsp.Rect{Width: 1920, Height: 1080}}
}

func (f *fakeServer) record(c serverCall) { f.calls = append(f.calls, c) }

func (f *fakeServer) Screen() bsp.Rect { return f.screen }

func (f *fakeServer) Apply(geo bsp.Geometry, borderWidth int) error {
	f.record(serverCall{name: "apply", win: geo.Window, geo: geo, border: borderWidth})
	return nil
}

func (f *fakeServer) AckConfigure(req WindowConfigureRequested) error {
	f.record(serverCall{name: "ack", win: req.Window})
	return nil
}

func (f *fakeServer) MapWindow(win bsp.WindowID) error {
	f.record(serverCall{name: "map", win: win})
	return nil
}

func (f *fakeServer) UnmapWindow(win bsp.WindowID) error {
	f.record(serverCall{name: "unmap", win: win})
	return nil
}

func (f *fakeServer) Raise(win bsp.WindowID) error {
	f.record(serverCall{name: "raise", win: win})
	return nil
}

func (f *fakeServer) SetFocus(win bsp.WindowID) error {
	f.record(serverCall{name: "focus", win: win})
	return nil
}

func (f *fakeServer) SetBorderColor(win bsp.WindowID, pixel uint32) error {
	f.record(serverCall{name: "border", win: win})
	return nil
}

func (f *fakeServer) AllowKey(d shortcut.Decision, time uint32) error {
	f.record(serverCall{name: "allow", decision: d})
	return nil
}

func (f *fakeServer) KeyState() (shortcut.KeyState, error) {
	return heldKeys(f.held), nil
}

func (f *fakeServer) CloseWindow(win bsp.WindowID) error {
	f.record(serverCall{name: "close", win: win})
	return nil
}

func (f *fakeServer) applies() []serverCall {
	var out []serverCall
	for _, c := range f.calls {
		if c.name == "apply" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeServer) firstIndex(name string) int {
	for i, c := range f.calls {
		if c.name == name {
			return i
		}
	}
	return -1
}

type heldKeys map[xproto.Keycode]bool

func (h heldKeys) Held(code xproto.Keycode) bool { return h[code] }

type stubResolver map[string][]xproto.Keycode

func (r stubResolver) Keycodes(keysym string) []xproto.Keycode { return r[keysym] }

// fakeSpawner records spawned command lines.
type fakeSpawner struct {
	spawned []string
}

func (f *fakeSpawner) Spawn(cmdline string) error {
	f.spawned = append(f.spawned, cmdline)
	return nil
}

func newTestCoordinator(t *testing.T, wins ...bsp.WindowID) (*Coordinator, *fakeServer, *fakeSpawner) {
	t.Helper()
	srv := newFakeServer()
	sp := &fakeSpawner{}
	shortcuts := shortcut.NewManager(stubResolver{"t": {28}})
	if err := shortcuts.Bind("super+t", shortcut.Command{Action: shortcut.ActionRotate}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	coord := NewCoordinator(NewState(3, 0.5), srv, shortcuts, sp, Options{
		Layout:         bsp.Params{Gap: 0, BorderWidth: 2},
		FocusedColor:   0xffffff,
		UnfocusedColor: 0x333333,
	})
	for _, w := range wins {
		coord.Dispatch(WindowCreateRequested{Window: w})
	}
	srv.calls = nil
	return coord, srv, sp
}

func TestCreate_MapsAndTiles(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t)
	coord.Dispatch(WindowCreateRequested{Window: 1})

	if srv.firstIndex("map") < 0 {
		t.Fatalf("new window was not mapped")
	}
	applies := srv.applies()
	if len(applies) != 1 || applies[0].win != 1 {
		t.Fatalf("expected one tile apply for window 1, got %v", applies)
	}
	if coord.State().Focused() != 1 {
		t.Fatalf("new window should take focus")
	}
}

func TestCreate_DuplicateIsIgnored(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1)
	coord.Dispatch(WindowCreateRequested{Window: 1})
	if len(srv.calls) != 0 {
		t.Fatalf("duplicate create should be a no-op, got %v", srv.calls)
	}
}

func TestConfigure_AlwaysAckedFirst(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.Dispatch(WindowConfigureRequested{Window: 1, Width: 5000, Height: 5000})

	ack := srv.firstIndex("ack")
	if ack != 0 {
		t.Fatalf("configure must be acknowledged before anything else, first ack at %d", ack)
	}
	if apply := srv.firstIndex("apply"); apply < ack {
		t.Fatalf("tiling ran before the ack")
	}
}

func TestConfigure_UnmanagedWindowStillAcked(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1)
	coord.Dispatch(WindowConfigureRequested{Window: 99, Width: 300, Height: 200})

	if srv.firstIndex("ack") != 0 {
		t.Fatalf("unmanaged configure must still be acknowledged")
	}
	if len(srv.applies()) != 0 {
		t.Fatalf("unmanaged configure must not trigger a tiling pass")
	}
}

func TestDestroy_RetilesRemaining(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.Dispatch(WindowDestroyed{Window: 2})

	applies := srv.applies()
	if len(applies) != 1 || applies[0].win != 1 {
		t.Fatalf("expected survivor retiled alone, got %v", applies)
	}
	if applies[0].geo.Width != 1920 {
		t.Fatalf("survivor should reclaim the full width, got %d", applies[0].geo.Width)
	}
}

func TestDestroy_UnmanagedIsIgnored(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1)
	coord.Dispatch(WindowDestroyed{Window: 99})
	if len(srv.calls) != 0 {
		t.Fatalf("unmanaged destroy should be a no-op, got %v", srv.calls)
	}
}

func TestKey_MatchConsumesAfterRelay(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.Dispatch(KeyPressed{Keycode: 28, Mods: xproto.ModMask4, Time: 42})

	allow := srv.firstIndex("allow")
	if allow < 0 || srv.calls[allow].decision != shortcut.Consume {
		t.Fatalf("expected a consume relay, calls: %v", srv.calls)
	}
	// The keyboard is frozen until the relay: the command's side effects
	// must come strictly after it.
	for i, c := range srv.calls {
		if c.name != "allow" && i < allow {
			t.Fatalf("server command %q issued before the key relay", c.name)
		}
	}
	if len(srv.applies()) == 0 {
		t.Fatalf("rotate should have retiled")
	}
}

func TestKey_NoMatchReplaysAndStops(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.Dispatch(KeyPressed{Keycode: 28, Mods: xproto.ModMaskControl})

	if len(srv.calls) != 1 {
		t.Fatalf("expected only the relay, got %v", srv.calls)
	}
	if srv.calls[0].name != "allow" || srv.calls[0].decision != shortcut.Replay {
		t.Fatalf("unmatched press must be replayed, got %v", srv.calls[0])
	}
}

func TestPointerEnter_MovesFocus(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.Dispatch(PointerEnteredWindow{Window: 1})

	if coord.State().Focused() != 1 {
		t.Fatalf("expected focus on 1, got %d", coord.State().Focused())
	}
	if srv.firstIndex("focus") < 0 {
		t.Fatalf("focus change should reach the server")
	}
}

func TestPointerEnter_SameWindowIsQuiet(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.Dispatch(PointerEnteredWindow{Window: 2}) // already focused
	if len(srv.calls) != 0 {
		t.Fatalf("re-entering the focused window should issue nothing, got %v", srv.calls)
	}
}

func TestFullscreen_SurvivesRoutineEvents(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.State().ToggleFullscreen(2)
	coord.Dispatch(WindowCreateRequested{Window: 3})
	coord.Dispatch(WindowConfigureRequested{Window: 1, Width: 100, Height: 100})
	coord.Dispatch(FocusChanged{Window: 1})
	coord.Dispatch(WindowDestroyed{Window: 3})

	if coord.State().Fullscreen() != 2 {
		t.Fatalf("fullscreen cancelled by routine events, now %d", coord.State().Fullscreen())
	}
	// While fullscreen is active every render applies only the fullscreen
	// window, at full screen size with no border.
	for _, c := range srv.applies() {
		if c.win != 2 {
			t.Fatalf("tiling pass ran for window %d while fullscreen", c.win)
		}
		if c.geo.Width != 1920 || c.geo.Height != 1080 || c.border != 0 {
			t.Fatalf("fullscreen geometry wrong: %+v border=%d", c.geo, c.border)
		}
	}
	if srv.firstIndex("raise") < 0 {
		t.Fatalf("fullscreen window should be raised")
	}
}

func TestZoom_AppliesParentBounds(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2, 3)
	coord.State().ToggleZoom(3)
	coord.Dispatch(WindowConfigureRequested{Window: 1, Width: 100, Height: 100})

	// Tree is 1 | (2 / 3): the parent split of 3 owns the right half.
	applies := srv.applies()
	if len(applies) != 1 || applies[0].win != 3 {
		t.Fatalf("expected only the zoomed window applied, got %v", applies)
	}
	if g := applies[0].geo; g.X != 960 || g.Width != 960 || g.Height != 1080 {
		t.Fatalf("zoom bounds wrong: %+v", g)
	}
	if applies[0].border != 2 {
		t.Fatalf("zoom keeps the configured border, got %d", applies[0].border)
	}
}

func TestZoom_RootLeafFallsBackToTiling(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1)
	// Zoom on a sole window has no parent split to expand into; the next
	// render drops it and tiles normally.
	coord.State().ToggleZoom(1)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionBalance})

	if coord.State().Zoomed() != bsp.None {
		t.Fatalf("zoom without a parent split should self-clear")
	}
	applies := srv.applies()
	if len(applies) != 1 || applies[0].geo.Width != 1920 {
		t.Fatalf("expected a normal tiling pass, got %v", applies)
	}
}

func TestBalance_ThreeWindowsFirstWidth(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2, 3)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionBalance})

	for _, c := range srv.applies() {
		if c.win == 1 {
			if c.geo.Width != 640 {
				t.Fatalf("after balance window 1 should take a third of 1920, got %d", c.geo.Width)
			}
			return
		}
	}
	t.Fatalf("window 1 never applied: %v", srv.calls)
}

func TestWorkspaceSwitch_UnmapsOldMapsNew(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionWorkspace, Index: 2})

	var unmapped []bsp.WindowID
	for _, c := range srv.calls {
		if c.name == "unmap" {
			unmapped = append(unmapped, c.win)
		}
	}
	if len(unmapped) != 2 {
		t.Fatalf("expected both windows unmapped, got %v", unmapped)
	}
	if coord.State().Workspace() != 1 {
		t.Fatalf("expected workspace 1, got %d", coord.State().Workspace())
	}

	// Switching back remaps them.
	srv.calls = nil
	coord.runCommand(shortcut.Command{Action: shortcut.ActionWorkspace, Index: 1})
	var mapped []bsp.WindowID
	for _, c := range srv.calls {
		if c.name == "map" {
			mapped = append(mapped, c.win)
		}
	}
	if len(mapped) != 2 {
		t.Fatalf("expected both windows remapped, got %v", mapped)
	}
}

func TestWorkspaceSwitch_SameWorkspaceIsQuiet(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionWorkspace, Index: 1})
	if len(srv.calls) != 0 {
		t.Fatalf("switching to the current workspace should issue nothing, got %v", srv.calls)
	}
}

func TestMoveToWorkspace_UnmapsAndRetiles(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionMoveToWorkspace, Index: 3})

	if srv.firstIndex("unmap") < 0 {
		t.Fatalf("moved window should be unmapped")
	}
	if coord.State().WindowCount() != 1 {
		t.Fatalf("expected 1 window left, got %d", coord.State().WindowCount())
	}
	if !coord.State().Has(2) {
		t.Fatalf("moved window should still be managed")
	}
}

func TestClose_TargetsFocusedWindow(t *testing.T) {
	coord, srv, _ := newTestCoordinator(t, 1, 2)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionClose})

	i := srv.firstIndex("close")
	if i < 0 || srv.calls[i].win != 2 {
		t.Fatalf("expected close for focused window 2, calls: %v", srv.calls)
	}
}

func TestSpawn_ReachesSpawner(t *testing.T) {
	coord, _, sp := newTestCoordinator(t, 1)
	coord.runCommand(shortcut.Command{Action: shortcut.ActionSpawn, Arg: "xterm -fg white"})
	if len(sp.spawned) != 1 || sp.spawned[0] != "xterm -fg white" {
		t.Fatalf("spawn command line not passed through: %v", sp.spawned)
	}
}

func TestQuit_InvokesCallback(t *testing.T) {
	coord, _, _ := newTestCoordinator(t, 1)
	var quit bool
	coord.OnQuit = func() { quit = true }
	coord.runCommand(shortcut.Command{Action: shortcut.ActionQuit})
	if !quit {
		t.Fatalf("quit callback not invoked")
	}
}

// Every action must be handled without panicking, including on an empty
// workspace where there is nothing to act on.
func TestRunCommand_HandlesEveryAction(t *testing.T) {
	for _, a := range shortcut.Actions() {
		coord, _, _ := newTestCoordinator(t)
		coord.OnQuit = func() {}
		coord.runCommand(shortcut.Command{Action: a, Arg: "true", Index: 1})

		coord2, _, _ := newTestCoordinator(t, 1, 2)
		coord2.OnQuit = func() {}
		coord2.runCommand(shortcut.Command{Action: a, Arg: "true", Index: 1})
	}
}
