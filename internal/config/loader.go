package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

// raw is the file schema. Scalars are pointers so an absent key is
// distinguishable from an explicit zero and defaults only fill true gaps.
type raw struct {
	Layout struct {
		Gap             *int     `toml:"gap"`
		BorderWidth     *int     `toml:"border_width"`
		SplitRatio      *float64 `toml:"split_ratio"`
		MinWindowWidth  *int     `toml:"min_window_width"`
		MinWindowHeight *int     `toml:"min_window_height"`
	} `toml:"layout"`
	Workspaces struct {
		Count *int `toml:"count"`
	} `toml:"workspaces"`
	Colors struct {
		Focused   *string `toml:"focused"`
		Unfocused *string `toml:"unfocused"`
	} `toml:"colors"`
	Bindings []Binding `toml:"bindings"`
}

// DefaultPath returns the standard config location
// ($XDG_CONFIG_HOME/bsptile/config.toml).
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, "bsptile", "config.toml")
}

// Load reads and validates the config at path. An empty path means the
// default location; a missing file at the default location yields the
// built-in defaults, while an explicitly named missing file is an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes TOML, fills unset keys from the defaults and validates.
func Parse(data []byte) (*Config, error) {
	var r raw
	if err := toml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if v := r.Layout.Gap; v != nil {
		cfg.Layout.Gap = *v
	}
	if v := r.Layout.BorderWidth; v != nil {
		cfg.Layout.BorderWidth = *v
	}
	if v := r.Layout.SplitRatio; v != nil {
		cfg.Layout.SplitRatio = *v
	}
	if v := r.Layout.MinWindowWidth; v != nil {
		cfg.Layout.MinWindowWidth = *v
	}
	if v := r.Layout.MinWindowHeight; v != nil {
		cfg.Layout.MinWindowHeight = *v
	}
	if v := r.Workspaces.Count; v != nil {
		cfg.Workspaces.Count = *v
	}
	if v := r.Colors.Focused; v != nil {
		cfg.Colors.Focused = *v
	}
	if v := r.Colors.Unfocused; v != nil {
		cfg.Colors.Unfocused = *v
	}
	if r.Bindings != nil {
		cfg.Bindings = r.Bindings
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
