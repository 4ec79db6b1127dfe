package shortcut

import "github.com/BurntSushi/xgb/xproto"

// Decision is the answer the display server is owed for every grabbed key
// press. Under a synchronous grab the keyboard is frozen until the caller
// relays this back, so a press that matches nothing must be replayed to
// the focused client rather than dropped.
type Decision int

const (
	// Replay forwards the raw key event to the focused client.
	Replay Decision = iota
	// Consume executes the matched shortcut and swallows the event.
	Consume
)

func (d Decision) String() string {
	if d == Consume {
		return "consume"
	}
	return "replay"
}

// KeyState is a point-in-time snapshot of which physical keys are held,
// taken from the server while the grab freeze is in effect.
type KeyState interface {
	Held(code xproto.Keycode) bool
}

// Match resolves a key press against the registered shortcuts, first
// registration wins. mods must already have lock modifiers stripped.
//
// A shortcut narrowed to one Alt side additionally requires the snapshot
// to show exactly that physical key held. With no match at all the
// decision is Replay: the grab intercepts every binding-shaped press
// globally, so an unmatched one belongs to the focused application.
func (m *Manager) Match(code xproto.Keycode, mods uint16, state KeyState) (Command, Decision) {
	for _, s := range m.shortcuts {
		if s.Mods != mods || !hasKeycode(s.Keycodes, code) {
			continue
		}
		if s.Mods&xproto.ModMask1 != 0 && s.Side != AltEither {
			if !m.sideHeld(s.Side, state) {
				continue
			}
		}
		return s.Command, Consume
	}
	return Command{}, Replay
}

// sideHeld reports whether exactly the requested physical Alt key is
// down. An undetected keycode for the requested side can never match.
func (m *Manager) sideHeld(side AltSide, state KeyState) bool {
	if state == nil {
		return false
	}
	left := m.altLeft != 0 && state.Held(m.altLeft)
	right := m.altRight != 0 && state.Held(m.altRight)
	if side == AltLeftOnly {
		return left && !right
	}
	return right && !left
}

func hasKeycode(codes []xproto.Keycode, code xproto.Keycode) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}
