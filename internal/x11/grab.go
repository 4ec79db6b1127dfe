package x11

import (
	"fmt"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/keybind"
	"github.com/charmbracelet/log"

	"github.com/1broseidon/bsptile/internal/shortcut"
)

// Keycodes resolves a keysym name against the connected keyboard's map.
// Implements shortcut.KeycodeResolver.
func (c *Conn) Keycodes(keysym string) []xproto.Keycode {
	return keybind.StrToKeycodes(c.xu, keysym)
}

// GrabShortcuts registers a synchronous key grab on the root window for
// every shortcut. The grab repeats for each lock-modifier combination so
// CapsLock or NumLock being lit does not defeat a binding. Keyboard mode
// is synchronous: the device freezes on each press until AllowKey relays
// the consume/replay decision.
func (c *Conn) GrabShortcuts(m *shortcut.Manager) error {
	for _, s := range m.Shortcuts() {
		for _, code := range s.Keycodes {
			for _, lock := range c.lockVariants() {
				err := xproto.GrabKeyChecked(
					c.xu.Conn(),
					true,
					c.root,
					s.Mods|lock,
					code,
					xproto.GrabModeAsync, // pointer
					xproto.GrabModeSync,  // keyboard: frozen until AllowEvents
				).Check()
				if err != nil {
					return fmt.Errorf("grab key %q (keycode %d): %w", s.Combo, code, err)
				}
			}
		}
		log.Debug("grabbed shortcut", "combo", s.Combo, "command", s.Command.Action)
	}
	return nil
}

// lockVariants returns every subset of the detected lock-modifier bits,
// the empty mask included.
func (c *Conn) lockVariants() []uint16 {
	bits := []uint16{}
	for bit := uint16(1); bit != 0; bit <<= 1 {
		if c.lockMask&bit != 0 {
			bits = append(bits, bit)
		}
	}
	variants := []uint16{0}
	for _, bit := range bits {
		for _, v := range variants[:len(variants):len(variants)] {
			variants = append(variants, v|bit)
		}
	}
	return variants
}

// AllowKey completes the synchronous grab handshake for the frozen
// device: replay forwards the press to the focused client, consume
// releases the freeze and swallows it.
func (c *Conn) AllowKey(d shortcut.Decision, time uint32) error {
	mode := byte(xproto.AllowAsyncKeyboard)
	if d == shortcut.Replay {
		mode = xproto.AllowReplayKeyboard
	}
	return xproto.AllowEventsChecked(c.xu.Conn(), mode, xproto.Timestamp(time)).Check()
}

// keymap is a QueryKeymap snapshot: one bit per keycode.
type keymap struct {
	bits [32]byte
}

// Held reports whether the physical key for code was down at snapshot
// time.
func (k keymap) Held(code xproto.Keycode) bool {
	return k.bits[code/8]&(1<<(code%8)) != 0
}

// KeyState queries which physical keys are currently held. Taken while
// the grab freeze is in effect, it is what distinguishes the left Alt
// key from the right one.
func (c *Conn) KeyState() (shortcut.KeyState, error) {
	reply, err := xproto.QueryKeymap(c.xu.Conn()).Reply()
	if err != nil {
		return nil, fmt.Errorf("query keymap: %w", err)
	}
	var k keymap
	copy(k.bits[:], reply.Keys)
	return k, nil
}
