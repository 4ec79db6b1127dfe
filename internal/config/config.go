package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout holds the tiling parameters fed into geometry computation.
type Layout struct {
	Gap             int     `toml:"gap"`               // outer and inner gap, pixels (0-500)
	BorderWidth     int     `toml:"border_width"`      // window border, pixels (0-50)
	SplitRatio      float64 `toml:"split_ratio"`       // default ratio for new splits, (0,1]
	MinWindowWidth  int     `toml:"min_window_width"`  // gaps compress before windows go below this
	MinWindowHeight int     `toml:"min_window_height"`
}

// Workspaces configures the fixed workspace set.
type Workspaces struct {
	Count int `toml:"count"` // 1-32
}

// Colors are window border colors as "#rrggbb" strings.
type Colors struct {
	Focused   string `toml:"focused"`
	Unfocused string `toml:"unfocused"`
}

// Binding is one combo/command pair. An array of tables keeps file order,
// which is the shortcut matching order.
type Binding struct {
	Combo   string `toml:"combo"`
	Command string `toml:"command"`
}

// Config is the full bsptile configuration.
type Config struct {
	Layout     Layout     `toml:"layout"`
	Workspaces Workspaces `toml:"workspaces"`
	Colors     Colors     `toml:"colors"`
	Bindings   []Binding  `toml:"bindings"`
}

// Default returns the built-in configuration used when no file exists.
func Default() *Config {
	return &Config{
		Layout: Layout{
			Gap:             10,
			BorderWidth:     2,
			SplitRatio:      0.5,
			MinWindowWidth:  80,
			MinWindowHeight: 60,
		},
		Workspaces: Workspaces{Count: 9},
		Colors: Colors{
			Focused:   "#a6da95",
			Unfocused: "#4c4f69",
		},
		Bindings: []Binding{
			{Combo: "super+return", Command: "spawn xterm"},
			{Combo: "super+j", Command: "focus-next"},
			{Combo: "super+k", Command: "focus-prev"},
			{Combo: "super+r", Command: "rotate"},
			{Combo: "super+s", Command: "swap-next"},
			{Combo: "super+b", Command: "balance"},
			{Combo: "super+f", Command: "fullscreen"},
			{Combo: "super+z", Command: "zoom"},
			{Combo: "super+q", Command: "close"},
			{Combo: "super+shift+e", Command: "quit"},
			{Combo: "super+1", Command: "workspace 1"},
			{Combo: "super+2", Command: "workspace 2"},
			{Combo: "super+3", Command: "workspace 3"},
			{Combo: "super+shift+1", Command: "move-to-workspace 1"},
			{Combo: "super+shift+2", Command: "move-to-workspace 2"},
			{Combo: "super+shift+3", Command: "move-to-workspace 3"},
		},
	}
}

// Validate checks every range constraint, collecting all violations.
func (c *Config) Validate() error {
	var problems []string

	l := c.Layout
	if l.Gap < 0 || l.Gap > 500 {
		problems = append(problems, fmt.Sprintf("layout.gap must be 0-500, got %d", l.Gap))
	}
	if l.BorderWidth < 0 || l.BorderWidth > 50 {
		problems = append(problems, fmt.Sprintf("layout.border_width must be 0-50, got %d", l.BorderWidth))
	}
	if l.Gap+l.BorderWidth > 600 {
		problems = append(problems, fmt.Sprintf("layout.gap + layout.border_width must be <= 600, got %d", l.Gap+l.BorderWidth))
	}
	if l.SplitRatio <= 0 || l.SplitRatio > 1 {
		problems = append(problems, fmt.Sprintf("layout.split_ratio must be in (0,1], got %g", l.SplitRatio))
	}
	if l.MinWindowWidth < 0 {
		problems = append(problems, fmt.Sprintf("layout.min_window_width must be >= 0, got %d", l.MinWindowWidth))
	}
	if l.MinWindowHeight < 0 {
		problems = append(problems, fmt.Sprintf("layout.min_window_height must be >= 0, got %d", l.MinWindowHeight))
	}

	if c.Workspaces.Count < 1 || c.Workspaces.Count > 32 {
		problems = append(problems, fmt.Sprintf("workspaces.count must be 1-32, got %d", c.Workspaces.Count))
	}

	if _, err := ParseColor(c.Colors.Focused); err != nil {
		problems = append(problems, fmt.Sprintf("colors.focused: %v", err))
	}
	if _, err := ParseColor(c.Colors.Unfocused); err != nil {
		problems = append(problems, fmt.Sprintf("colors.unfocused: %v", err))
	}

	// Binding parse errors are deliberately not validated here: a bad
	// binding is skipped with a warning at registration so the rest of
	// the set still works.

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return nil
}

// ParseColor parses "#rrggbb" into a pixel value.
func ParseColor(s string) (uint32, error) {
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return 0, fmt.Errorf("color must be #rrggbb, got %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("color must be #rrggbb, got %q", s)
	}
	return uint32(v), nil
}
