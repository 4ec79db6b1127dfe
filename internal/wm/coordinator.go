package wm

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/charmbracelet/log"

	"github.com/1broseidon/bsptile/internal/bsp"
	"github.com/1broseidon/bsptile/internal/shortcut"
)

// Event is an abstract display-server event. The x11 package translates
// protocol events into these; tests construct them directly.
type Event interface {
	isEvent()
}

// WindowCreateRequested asks the manager to adopt a new window.
type WindowCreateRequested struct {
	Window bsp.WindowID
}

// WindowConfigureRequested carries a client's requested geometry. It must
// be acknowledged immediately even though tiling will override it:
// clients block on their own timeout (seconds) waiting for the answer.
type WindowConfigureRequested struct {
	Window      bsp.WindowID
	X, Y        int
	Width       int
	Height      int
	BorderWidth int
	Sibling     uint32
	StackMode   byte
	Mask        uint16 // raw protocol value mask, passed through on ack
}

// WindowDestroyed reports a window is gone.
type WindowDestroyed struct {
	Window bsp.WindowID
}

// KeyPressed is a grabbed key press. The keyboard is frozen until the
// consume/replay decision is relayed back.
type KeyPressed struct {
	Keycode uint8
	Mods    uint16 // lock modifiers already stripped
	Time    uint32
}

// PointerEnteredWindow reports the pointer crossing into a window.
type PointerEnteredWindow struct {
	Window bsp.WindowID
}

// FocusChanged reports a protocol-level focus notification.
type FocusChanged struct {
	Window bsp.WindowID
}

func (WindowCreateRequested) isEvent()    {}
func (WindowConfigureRequested) isEvent() {}
func (WindowDestroyed) isEvent()          {}
func (KeyPressed) isEvent()               {}
func (PointerEnteredWindow) isEvent()     {}
func (FocusChanged) isEvent()             {}

// Server is everything the coordinator needs from the display server.
// Keeping it an interface keeps the whole state machine runnable under
// test without a protocol connection.
type Server interface {
	Screen() bsp.Rect
	Apply(geo bsp.Geometry, borderWidth int) error
	AckConfigure(req WindowConfigureRequested) error
	MapWindow(win bsp.WindowID) error
	UnmapWindow(win bsp.WindowID) error
	Raise(win bsp.WindowID) error
	SetFocus(win bsp.WindowID) error
	SetBorderColor(win bsp.WindowID, pixel uint32) error
	AllowKey(d shortcut.Decision, time uint32) error
	KeyState() (shortcut.KeyState, error)
	CloseWindow(win bsp.WindowID) error
}

// Spawner launches external programs. Process management stays outside
// the core; the binary wires this to os/exec.
type Spawner interface {
	Spawn(cmdline string) error
}

// Options carries the render-relevant configuration into the coordinator.
type Options struct {
	Layout         bsp.Params
	FocusedColor   uint32
	UnfocusedColor uint32
}

// Coordinator is the single event loop's state machine: it mutates State,
// recomputes geometry and issues commands back through Server. Handlers
// never panic on unknown or stale window ids; they log and ignore.
type Coordinator struct {
	state     *State
	server    Server
	shortcuts *shortcut.Manager
	spawner   Spawner
	opts      Options

	// OnQuit is invoked when the quit command runs.
	OnQuit func()
}

// NewCoordinator wires the collaborators together.
func NewCoordinator(state *State, server Server, shortcuts *shortcut.Manager, spawner Spawner, opts Options) *Coordinator {
	return &Coordinator{
		state:     state,
		server:    server,
		shortcuts: shortcuts,
		spawner:   spawner,
		opts:      opts,
	}
}

// State exposes the window state, mainly for tests and diagnostics.
func (c *Coordinator) State() *State { return c.state }

// Dispatch handles one event to completion: state mutation, then layout,
// then server commands.
func (c *Coordinator) Dispatch(ev Event) {
	switch ev := ev.(type) {
	case WindowCreateRequested:
		c.handleCreate(ev)
	case WindowConfigureRequested:
		c.handleConfigure(ev)
	case WindowDestroyed:
		c.handleDestroy(ev)
	case KeyPressed:
		c.handleKey(ev)
	case PointerEnteredWindow:
		c.handleEnter(ev)
	case FocusChanged:
		c.handleFocus(ev)
	}
}

func (c *Coordinator) handleCreate(ev WindowCreateRequested) {
	if c.state.Has(ev.Window) {
		log.Debug("create for managed window, ignoring", "window", ev.Window)
		return
	}
	if err := c.state.AddWindow(ev.Window); err != nil {
		log.Warn("add window", "window", ev.Window, "err", err)
		return
	}
	if err := c.server.MapWindow(ev.Window); err != nil {
		log.Warn("map window", "window", ev.Window, "err", err)
	}
	c.render()
}

func (c *Coordinator) handleConfigure(ev WindowConfigureRequested) {
	// Acknowledge first, unconditionally. Tiling overrides the requested
	// geometry right after, but a client left waiting here stalls for its
	// own multi-second timeout.
	if err := c.server.AckConfigure(ev); err != nil {
		log.Warn("ack configure", "window", ev.Window, "err", err)
	}
	if c.state.Tree().Has(ev.Window) {
		c.render()
	}
}

func (c *Coordinator) handleDestroy(ev WindowDestroyed) {
	if !c.state.Has(ev.Window) {
		log.Debug("destroy for unmanaged window, ignoring", "window", ev.Window)
		return
	}
	onCurrent := c.state.Tree().Has(ev.Window)
	c.state.RemoveWindow(ev.Window)
	if onCurrent {
		c.render()
	}
}

// handleKey resolves the consume/replay decision and relays it before
// anything else runs: the synchronous grab freezes the device until the
// server hears back.
func (c *Coordinator) handleKey(ev KeyPressed) {
	keys, err := c.server.KeyState()
	if err != nil {
		log.Warn("query key state", "err", err)
		keys = nil
	}
	cmd, decision := c.shortcuts.Match(xproto.Keycode(ev.Keycode), ev.Mods, keys)
	if err := c.server.AllowKey(decision, ev.Time); err != nil {
		log.Warn("allow key", "decision", decision, "err", err)
	}
	if decision == shortcut.Consume {
		c.runCommand(cmd)
	}
}

func (c *Coordinator) handleEnter(ev PointerEnteredWindow) {
	if !c.state.Tree().Has(ev.Window) {
		return
	}
	prev := c.state.Focused()
	if !c.state.FocusWindow(ev.Window) || prev == ev.Window {
		return
	}
	c.render()
}

func (c *Coordinator) handleFocus(ev FocusChanged) {
	// Protocol focus noise. Record it for border highlighting but never
	// let it near the mode flags or the tiling pass: a regression here
	// once let background input-method traffic cancel fullscreen.
	if !c.state.NoteFocus(ev.Window) {
		return
	}
	c.applyBorderColors()
}

// runCommand dispatches a matched shortcut. The switch is exhaustive over
// the closed action set; a dedicated test enumerates every action.
func (c *Coordinator) runCommand(cmd shortcut.Command) {
	switch cmd.Action {
	case shortcut.ActionFocusNext:
		if next, ok := c.state.NextWindow(); ok {
			c.state.FocusWindow(next)
			c.render()
		}
	case shortcut.ActionFocusPrev:
		if prev, ok := c.state.PrevWindow(); ok {
			c.state.FocusWindow(prev)
			c.render()
		}
	case shortcut.ActionRotate:
		if f := c.state.Focused(); f != bsp.None {
			c.state.Rotate(f)
			c.render()
		}
	case shortcut.ActionSwapNext:
		c.state.SwapNext()
		c.render()
	case shortcut.ActionBalance:
		c.state.Balance()
		c.render()
	case shortcut.ActionFullscreen:
		if f := c.state.Focused(); f != bsp.None {
			c.state.ToggleFullscreen(f)
			c.render()
		}
	case shortcut.ActionZoom:
		if f := c.state.Focused(); f != bsp.None {
			if c.state.ToggleZoom(f) {
				c.render()
			}
		}
	case shortcut.ActionClose:
		if f := c.state.Focused(); f != bsp.None {
			if err := c.server.CloseWindow(f); err != nil {
				log.Warn("close window", "window", f, "err", err)
			}
		}
	case shortcut.ActionQuit:
		if c.OnQuit != nil {
			c.OnQuit()
		}
	case shortcut.ActionSpawn:
		if c.spawner == nil {
			log.Warn("no spawner wired, ignoring spawn", "cmdline", cmd.Arg)
			return
		}
		if err := c.spawner.Spawn(cmd.Arg); err != nil {
			log.Warn("spawn", "cmdline", cmd.Arg, "err", err)
		}
	case shortcut.ActionWorkspace:
		c.switchWorkspace(cmd.Index - 1)
	case shortcut.ActionMoveToWorkspace:
		c.moveToWorkspace(cmd.Index - 1)
	}
}

func (c *Coordinator) switchWorkspace(n int) {
	if n == c.state.Workspace() {
		return
	}
	old := c.state.Tree().Windows()
	if err := c.state.SwitchWorkspace(n); err != nil {
		log.Warn("switch workspace", "err", err)
		return
	}
	for _, win := range old {
		if err := c.server.UnmapWindow(win); err != nil {
			log.Warn("unmap window", "window", win, "err", err)
		}
	}
	for _, win := range c.state.Tree().Windows() {
		if err := c.server.MapWindow(win); err != nil {
			log.Warn("map window", "window", win, "err", err)
		}
	}
	c.render()
}

func (c *Coordinator) moveToWorkspace(n int) {
	f := c.state.Focused()
	if f == bsp.None {
		return
	}
	if err := c.state.MoveToWorkspace(f, n); err != nil {
		log.Warn("move to workspace", "window", f, "err", err)
		return
	}
	if err := c.server.UnmapWindow(f); err != nil {
		log.Warn("unmap window", "window", f, "err", err)
	}
	c.render()
}

// render recomputes and applies geometry for the visible workspace.
//
// Mode check comes first: with fullscreen or zoom active the normal
// tiling pass is skipped entirely and only the mode window's geometry,
// stacking and input focus are touched. Running the tiling pass here is
// what once let routine render triggers silently cancel fullscreen.
func (c *Coordinator) render() {
	screen := c.server.Screen()

	if fs := c.state.Fullscreen(); fs != bsp.None {
		geo := bsp.Geometry{Window: fs, X: screen.X, Y: screen.Y, Width: screen.Width, Height: screen.Height}
		if err := c.server.Apply(geo, 0); err != nil {
			log.Warn("apply fullscreen", "window", fs, "err", err)
		}
		if err := c.server.Raise(fs); err != nil {
			log.Warn("raise", "window", fs, "err", err)
		}
		c.focus(fs)
		return
	}

	if z := c.state.Zoomed(); z != bsp.None {
		bounds, err := bsp.ParentBounds(c.state.Tree(), z, screen, c.opts.Layout)
		if err != nil {
			// Root leaf or stale id; zoom has nothing to expand into.
			log.Debug("zoom bounds unavailable", "window", z, "err", err)
			c.state.ToggleZoom(z)
		} else {
			geo := bsp.Geometry{Window: z, X: bounds.X, Y: bounds.Y, Width: bounds.Width, Height: bounds.Height}
			if err := c.server.Apply(geo, c.opts.Layout.BorderWidth); err != nil {
				log.Warn("apply zoom", "window", z, "err", err)
			}
			if err := c.server.Raise(z); err != nil {
				log.Warn("raise", "window", z, "err", err)
			}
			c.focus(z)
			return
		}
	}

	// Per-window apply failures are logged and skipped: partial layout
	// beats aborting the whole pass.
	for _, geo := range bsp.Geometries(c.state.Tree(), screen, c.opts.Layout) {
		if err := c.server.Apply(geo, c.opts.Layout.BorderWidth); err != nil {
			log.Warn("apply geometry", "window", geo.Window, "err", err)
		}
	}
	c.applyBorderColors()
	if f := c.state.Focused(); f != bsp.None {
		c.focus(f)
	}
}

func (c *Coordinator) focus(win bsp.WindowID) {
	if err := c.server.SetFocus(win); err != nil {
		log.Warn("set focus", "window", win, "err", err)
	}
	c.applyBorderColors()
}

func (c *Coordinator) applyBorderColors() {
	focused := c.state.Focused()
	for _, win := range c.state.Tree().Windows() {
		pixel := c.opts.UnfocusedColor
		if win == focused {
			pixel = c.opts.FocusedColor
		}
		if err := c.server.SetBorderColor(win, pixel); err != nil {
			log.Warn("set border color", "window", win, "err", err)
		}
	}
}
