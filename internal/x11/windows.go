package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"

	"github.com/1broseidon/bsptile/internal/bsp"
	"github.com/1broseidon/bsptile/internal/wm"
)

// Apply moves, resizes and borders a window per the computed geometry.
func (c *Conn) Apply(geo bsp.Geometry, borderWidth int) error {
	err := xproto.ConfigureWindowChecked(
		c.xu.Conn(),
		xproto.Window(geo.Window),
		xproto.ConfigWindowX|xproto.ConfigWindowY|
			xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|
			xproto.ConfigWindowBorderWidth,
		[]uint32{
			uint32(geo.X),
			uint32(geo.Y),
			uint32(geo.Width),
			uint32(geo.Height),
			uint32(borderWidth),
		},
	).Check()
	if err != nil {
		return fmt.Errorf("configure window %d: %w", geo.Window, err)
	}
	return nil
}

// AckConfigure answers a configure request by passing the requested
// changes through unmodified. The tiling pass overrides the geometry
// immediately afterwards; what matters is that the client gets its answer
// now instead of stalling on its own timeout.
func (c *Conn) AckConfigure(req wm.WindowConfigureRequested) error {
	values := make([]uint32, 0, 7)
	if req.Mask&xproto.ConfigWindowX != 0 {
		values = append(values, uint32(req.X))
	}
	if req.Mask&xproto.ConfigWindowY != 0 {
		values = append(values, uint32(req.Y))
	}
	if req.Mask&xproto.ConfigWindowWidth != 0 {
		values = append(values, uint32(req.Width))
	}
	if req.Mask&xproto.ConfigWindowHeight != 0 {
		values = append(values, uint32(req.Height))
	}
	if req.Mask&xproto.ConfigWindowBorderWidth != 0 {
		values = append(values, uint32(req.BorderWidth))
	}
	if req.Mask&xproto.ConfigWindowSibling != 0 {
		values = append(values, req.Sibling)
	}
	if req.Mask&xproto.ConfigWindowStackMode != 0 {
		values = append(values, uint32(req.StackMode))
	}
	err := xproto.ConfigureWindowChecked(
		c.xu.Conn(),
		xproto.Window(req.Window),
		req.Mask,
		values,
	).Check()
	if err != nil {
		return fmt.Errorf("ack configure for window %d: %w", req.Window, err)
	}
	return nil
}

// MapWindow maps a window and selects the per-window events the manager
// needs from it (pointer entry, focus traffic).
func (c *Conn) MapWindow(win bsp.WindowID) error {
	w := xproto.Window(win)
	err := xproto.ChangeWindowAttributesChecked(
		c.xu.Conn(),
		w,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskEnterWindow | xproto.EventMaskFocusChange},
	).Check()
	if err != nil {
		return fmt.Errorf("select events on window %d: %w", win, err)
	}
	if err := xproto.MapWindowChecked(c.xu.Conn(), w).Check(); err != nil {
		return fmt.Errorf("map window %d: %w", win, err)
	}
	return nil
}

// UnmapWindow hides a window (workspace switch). The resulting
// UnmapNotify is ours and is filtered out of the event stream.
func (c *Conn) UnmapWindow(win bsp.WindowID) error {
	c.pendingUnmaps[xproto.Window(win)]++
	if err := xproto.UnmapWindowChecked(c.xu.Conn(), xproto.Window(win)).Check(); err != nil {
		return fmt.Errorf("unmap window %d: %w", win, err)
	}
	return nil
}

// Raise stacks a window above its siblings.
func (c *Conn) Raise(win bsp.WindowID) error {
	err := xproto.ConfigureWindowChecked(
		c.xu.Conn(),
		xproto.Window(win),
		xproto.ConfigWindowStackMode,
		[]uint32{xproto.StackModeAbove},
	).Check()
	if err != nil {
		return fmt.Errorf("raise window %d: %w", win, err)
	}
	return nil
}

// SetFocus gives a window input focus.
func (c *Conn) SetFocus(win bsp.WindowID) error {
	err := xproto.SetInputFocusChecked(
		c.xu.Conn(),
		xproto.InputFocusPointerRoot,
		xproto.Window(win),
		xproto.TimeCurrentTime,
	).Check()
	if err != nil {
		return fmt.Errorf("set input focus to window %d: %w", win, err)
	}
	return nil
}

// SetBorderColor recolors a window's border.
func (c *Conn) SetBorderColor(win bsp.WindowID, pixel uint32) error {
	err := xproto.ChangeWindowAttributesChecked(
		c.xu.Conn(),
		xproto.Window(win),
		xproto.CwBorderPixel,
		[]uint32{pixel},
	).Check()
	if err != nil {
		return fmt.Errorf("set border color on window %d: %w", win, err)
	}
	return nil
}

// CloseWindow asks a window to close via WM_DELETE_WINDOW when the client
// participates in the protocol, killing the client otherwise.
func (c *Conn) CloseWindow(win bsp.WindowID) error {
	w := xproto.Window(win)
	if c.supportsDelete(w) {
		ev := xproto.ClientMessageEvent{
			Format: 32,
			Window: w,
			Type:   c.atoms["WM_PROTOCOLS"],
			Data: xproto.ClientMessageDataUnionData32New([]uint32{
				uint32(c.atoms["WM_DELETE_WINDOW"]),
				uint32(xproto.TimeCurrentTime),
				0, 0, 0,
			}),
		}
		err := xproto.SendEventChecked(
			c.xu.Conn(),
			false,
			w,
			xproto.EventMaskNoEvent,
			string(ev.Bytes()),
		).Check()
		if err != nil {
			return fmt.Errorf("send delete to window %d: %w", win, err)
		}
		return nil
	}
	if err := xproto.KillClientChecked(c.xu.Conn(), uint32(w)).Check(); err != nil {
		return fmt.Errorf("kill client of window %d: %w", win, err)
	}
	return nil
}

func (c *Conn) supportsDelete(w xproto.Window) bool {
	prop, err := xproto.GetProperty(
		c.xu.Conn(), false, w, c.atoms["WM_PROTOCOLS"],
		xproto.AtomAtom, 0, (1<<32)-1,
	).Reply()
	if err != nil || prop.Format != 32 {
		return false
	}
	for i := 0; i < int(prop.ValueLen); i++ {
		if xproto.Atom(xgb.Get32(prop.Value[i*4:])) == c.atoms["WM_DELETE_WINDOW"] {
			return true
		}
	}
	return false
}

// ExistingWindows lists the viewable top-level windows present before the
// manager started, for adoption into the layout. Override-redirect
// windows (menus, tooltips) are skipped.
func (c *Conn) ExistingWindows() ([]bsp.WindowID, error) {
	tree, err := xproto.QueryTree(c.xu.Conn(), c.root).Reply()
	if err != nil {
		return nil, fmt.Errorf("query window tree: %w", err)
	}
	var out []bsp.WindowID
	for _, w := range tree.Children {
		attrs, err := xproto.GetWindowAttributes(c.xu.Conn(), w).Reply()
		if err != nil {
			continue
		}
		if attrs.OverrideRedirect || attrs.MapState != xproto.MapStateViewable {
			continue
		}
		out = append(out, bsp.WindowID(w))
	}
	return out, nil
}
