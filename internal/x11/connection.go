// Package x11 is the display-server collaborator: it owns the protocol
// connection, translates wire events into the coordinator's abstract
// events and applies its geometry/focus decisions.
package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/charmbracelet/log"

	"github.com/1broseidon/bsptile/internal/bsp"
	"github.com/1broseidon/bsptile/internal/wm"
)

// Conn manages the X11 connection and core X resources. It implements
// wm.Server.
type Conn struct {
	xu     *xgbutil.XUtil
	root   xproto.Window
	screen bsp.Rect

	atoms    map[string]xproto.Atom
	lockMask uint16 // caps + num + scroll lock bits on this keyboard

	// Unmaps this manager caused (workspace switches) that must not be
	// taken as clients withdrawing their windows.
	pendingUnmaps map[xproto.Window]int
}

// NewConn connects to the X server and claims window management on the
// root window. A BadAccess error means another manager owns the display.
func NewConn() (*Conn, error) {
	xu, err := xgbutil.NewConn()
	if err != nil {
		return nil, fmt.Errorf("connect to X server: %w", err)
	}

	// Keysym tables, needed for shortcut keycode resolution.
	keybind.Initialize(xu)

	root := xu.RootWin()
	err = xproto.ChangeWindowAttributesChecked(
		xu.Conn(),
		root,
		xproto.CwEventMask,
		[]uint32{
			xproto.EventMaskSubstructureNotify |
				xproto.EventMaskSubstructureRedirect,
		},
	).Check()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("claim root window (is another window manager running?): %w", err)
	}

	geom, err := xproto.GetGeometry(xu.Conn(), xproto.Drawable(root)).Reply()
	if err != nil {
		xu.Conn().Close()
		return nil, fmt.Errorf("query screen geometry: %w", err)
	}

	c := &Conn{
		xu:   xu,
		root: root,
		screen: bsp.Rect{
			Width:  int(geom.Width),
			Height: int(geom.Height),
		},
		atoms:         map[string]xproto.Atom{},
		pendingUnmaps: map[xproto.Window]int{},
	}
	c.lockMask = c.detectLockMask()

	for _, name := range []string{"WM_PROTOCOLS", "WM_DELETE_WINDOW"} {
		reply, err := xproto.InternAtom(xu.Conn(), false, uint16(len(name)), name).Reply()
		if err != nil {
			xu.Conn().Close()
			return nil, fmt.Errorf("intern atom %s: %w", name, err)
		}
		c.atoms[name] = reply.Atom
	}
	return c, nil
}

// Screen returns the root window rectangle.
func (c *Conn) Screen() bsp.Rect { return c.screen }

// Close disconnects from the X server.
func (c *Conn) Close() {
	c.xu.Conn().Close()
}

// Run blocks on the connection, translating each protocol event into an
// abstract one and handing it to dispatch. It returns only when the
// connection dies, which is fatal and not retried.
func (c *Conn) Run(dispatch func(wm.Event)) error {
	for {
		event, xerr := c.xu.Conn().WaitForEvent()
		if event == nil && xerr == nil {
			return fmt.Errorf("X connection closed")
		}
		if xerr != nil {
			log.Warn("X error", "err", xerr)
			continue
		}

		switch ev := event.(type) {
		case xproto.MapRequestEvent:
			dispatch(wm.WindowCreateRequested{Window: bsp.WindowID(ev.Window)})
		case xproto.ConfigureRequestEvent:
			dispatch(wm.WindowConfigureRequested{
				Window:      bsp.WindowID(ev.Window),
				X:           int(ev.X),
				Y:           int(ev.Y),
				Width:       int(ev.Width),
				Height:      int(ev.Height),
				BorderWidth: int(ev.BorderWidth),
				Sibling:     uint32(ev.Sibling),
				StackMode:   ev.StackMode,
				Mask:        ev.ValueMask,
			})
		case xproto.DestroyNotifyEvent:
			dispatch(wm.WindowDestroyed{Window: bsp.WindowID(ev.Window)})
		case xproto.UnmapNotifyEvent:
			if c.pendingUnmaps[ev.Window] > 0 {
				c.pendingUnmaps[ev.Window]--
				if c.pendingUnmaps[ev.Window] == 0 {
					delete(c.pendingUnmaps, ev.Window)
				}
				continue
			}
			// A client unmapping itself withdraws from the layout.
			dispatch(wm.WindowDestroyed{Window: bsp.WindowID(ev.Window)})
		case xproto.KeyPressEvent:
			dispatch(wm.KeyPressed{
				Keycode: uint8(ev.Detail),
				Mods:    ev.State &^ c.lockMask,
				Time:    uint32(ev.Time),
			})
		case xproto.EnterNotifyEvent:
			dispatch(wm.PointerEnteredWindow{Window: bsp.WindowID(ev.Event)})
		case xproto.FocusInEvent:
			dispatch(wm.FocusChanged{Window: bsp.WindowID(ev.Event)})
		}
	}
}

// detectLockMask finds the modifier bits owned by CapsLock, NumLock and
// ScrollLock so grabs can cover them and event state can shed them.
func (c *Conn) detectLockMask() uint16 {
	mask := uint16(xproto.ModMaskLock)
	for _, keysym := range []string{"Num_Lock", "Scroll_Lock"} {
		for _, keycode := range keybind.StrToKeycodes(c.xu, keysym) {
			if m := keybind.ModGet(c.xu, keycode); m != 0 {
				mask |= m
			}
		}
	}
	return mask
}
