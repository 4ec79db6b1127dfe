// Package shortcut parses configured key combinations and matches live key
// presses against them, including disambiguation of the physically distinct
// left and right Alt keys, which share a modifier bit and are only told
// apart by querying the keyboard state.
package shortcut

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/charmbracelet/log"
)

// AltSide narrows a shortcut with an Alt modifier to one physical key.
type AltSide int

const (
	AltEither AltSide = iota
	AltLeftOnly
	AltRightOnly
)

func (s AltSide) String() string {
	switch s {
	case AltLeftOnly:
		return "left"
	case AltRightOnly:
		return "right"
	}
	return "either"
}

// ErrEmptyCombination is returned for a blank combo string.
var ErrEmptyCombination = errors.New("empty key combination")

// UnknownModifierError names a modifier token that is not in the alias
// table.
type UnknownModifierError struct {
	Name string
}

func (e UnknownModifierError) Error() string {
	return fmt.Sprintf("unknown modifier %q", e.Name)
}

// UnknownKeyError names a key token that is not in the symbol table or
// produces no keycode on this keyboard.
type UnknownKeyError struct {
	Name string
}

func (e UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key name %q", e.Name)
}

// Shortcut is one parsed binding. Immutable after startup.
type Shortcut struct {
	Mods     uint16
	Keycodes []xproto.Keycode // every keycode producing the bound keysym
	Side     AltSide
	Command  Command
	Combo    string // original combo string, for logging
}

// KeycodeResolver resolves a keysym name (as in the protocol's keysym
// tables: "t", "Return", "Alt_L") to the keycodes producing it on the
// connected keyboard.
type KeycodeResolver interface {
	Keycodes(keysym string) []xproto.Keycode
}

const hyperMask = xproto.ModMaskShift | xproto.ModMaskControl | xproto.ModMask1 | xproto.ModMask4

// modAliases maps lowercase modifier tokens to their mask. Alt side
// narrowing is handled separately in parse.
var modAliases = map[string]uint16{
	"super": xproto.ModMask4, "mod4": xproto.ModMask4, "win": xproto.ModMask4,
	"windows": xproto.ModMask4, "cmd": xproto.ModMask4,
	"alt": xproto.ModMask1, "mod1": xproto.ModMask1, "meta": xproto.ModMask1,
	"alt_l": xproto.ModMask1, "alt_r": xproto.ModMask1,
	"ctrl": xproto.ModMaskControl, "control": xproto.ModMaskControl, "ctl": xproto.ModMaskControl,
	"shift": xproto.ModMaskShift,
	"mod2":  xproto.ModMask2, "numlock": xproto.ModMask2, "num": xproto.ModMask2,
	"mod3": xproto.ModMask3, "scrolllock": xproto.ModMask3, "scroll": xproto.ModMask3,
	"mod5": xproto.ModMask5, "altgr": xproto.ModMask5, "altgraph": xproto.ModMask5,
	"hyper": hyperMask,
}

// keyNames maps lowercase key tokens to keysym names. Single letters and
// digits pass through as themselves.
var keyNames = map[string]string{
	"space":     "space",
	"return":    "Return",
	"enter":     "Return",
	"tab":       "Tab",
	"escape":    "Escape",
	"esc":       "Escape",
	"backspace": "BackSpace",
	"delete":    "Delete",
	"left":      "Left",
	"right":     "Right",
	"up":        "Up",
	"down":      "Down",
}

func init() {
	for i := 1; i <= 12; i++ {
		keyNames[fmt.Sprintf("f%d", i)] = fmt.Sprintf("F%d", i)
	}
}

// Manager holds the parsed shortcut set and the detected physical Alt
// keycodes. Built once at startup, read-only thereafter.
type Manager struct {
	resolver  KeycodeResolver
	shortcuts []Shortcut
	altLeft   xproto.Keycode // 0 when the keyboard has no Alt_L
	altRight  xproto.Keycode
}

// NewManager builds a manager, resolving the Alt_L/Alt_R keycodes once so
// matching can check the physical side against a key-state snapshot.
func NewManager(resolver KeycodeResolver) *Manager {
	m := &Manager{resolver: resolver}
	if codes := resolver.Keycodes("Alt_L"); len(codes) > 0 {
		m.altLeft = codes[0]
	}
	if codes := resolver.Keycodes("Alt_R"); len(codes) > 0 {
		m.altRight = codes[0]
	}
	return m
}

// Bind parses combo and registers it for cmd. Shortcuts match in
// registration order.
func (m *Manager) Bind(combo string, cmd Command) error {
	s, err := m.parse(combo)
	if err != nil {
		return err
	}
	s.Command = cmd
	m.shortcuts = append(m.shortcuts, s)
	return nil
}

// BindAll registers every combo → command string pair in order. A single
// entry failing to parse is logged and skipped; the rest still register.
func (m *Manager) BindAll(bindings []Binding) {
	for _, b := range bindings {
		cmd, err := ParseCommand(b.Command)
		if err != nil {
			log.Warn("skipping binding", "combo", b.Combo, "err", err)
			continue
		}
		if err := m.Bind(b.Combo, cmd); err != nil {
			log.Warn("skipping binding", "combo", b.Combo, "err", err)
		}
	}
}

// Binding is one raw combo/command pair from configuration, in file order.
type Binding struct {
	Combo   string
	Command string
}

// Shortcuts returns the registered shortcuts in registration order.
func (m *Manager) Shortcuts() []Shortcut {
	return m.shortcuts
}

// AltKeycodes returns the detected physical Alt keycodes (zero when
// absent from the keymap).
func (m *Manager) AltKeycodes() (left, right xproto.Keycode) {
	return m.altLeft, m.altRight
}

// parse splits combo on "+": every token but the last is a modifier, the
// last is the key.
func (m *Manager) parse(combo string) (Shortcut, error) {
	tokens := strings.Split(combo, "+")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
	}
	if len(tokens) == 0 || tokens[len(tokens)-1] == "" {
		return Shortcut{}, ErrEmptyCombination
	}

	s := Shortcut{Side: AltEither, Combo: combo}
	for _, tok := range tokens[:len(tokens)-1] {
		low := strings.ToLower(tok)
		mask, ok := modAliases[low]
		if !ok {
			return Shortcut{}, UnknownModifierError{Name: tok}
		}
		s.Mods |= mask
		switch low {
		case "alt_l":
			s.Side = AltLeftOnly
		case "alt_r":
			s.Side = AltRightOnly
		}
	}

	keyTok := tokens[len(tokens)-1]
	keysym, err := keysymName(keyTok)
	if err != nil {
		return Shortcut{}, err
	}
	codes := m.resolver.Keycodes(keysym)
	if len(codes) == 0 {
		return Shortcut{}, UnknownKeyError{Name: keyTok}
	}
	s.Keycodes = codes
	return s, nil
}

func keysymName(tok string) (string, error) {
	low := strings.ToLower(tok)
	if len(low) == 1 {
		c := low[0]
		if c >= 'a' && c <= 'z' || c >= '0' && c <= '9' {
			return low, nil
		}
	}
	if name, ok := keyNames[low]; ok {
		return name, nil
	}
	return "", UnknownKeyError{Name: tok}
}
