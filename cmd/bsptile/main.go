package main

import (
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/1broseidon/bsptile/internal/bsp"
	"github.com/1broseidon/bsptile/internal/config"
	"github.com/1broseidon/bsptile/internal/shortcut"
	"github.com/1broseidon/bsptile/internal/wm"
	"github.com/1broseidon/bsptile/internal/x11"
)

var version = "dev"

func main() {
	var (
		configPath string
		debug      bool
	)

	root := &cobra.Command{
		Use:          "bsptile",
		Short:        "A binary space partitioning tiling window manager for X11",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if debug {
				log.SetLevel(log.DebugLevel)
			}
			return run(configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/bsptile/config.toml)")
	root.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	check := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration without connecting to X",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			fmt.Printf("config ok: %d bindings, %d workspaces, gap=%d border=%d\n",
				len(cfg.Bindings), cfg.Workspaces.Count, cfg.Layout.Gap, cfg.Layout.BorderWidth)
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the bsptile version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("bsptile", version)
		},
	}

	root.AddCommand(check, versionCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	conn, err := x11.NewConn()
	if err != nil {
		return err
	}
	defer conn.Close()

	shortcuts := shortcut.NewManager(conn)
	shortcuts.BindAll(toBindings(cfg.Bindings))
	if err := conn.GrabShortcuts(shortcuts); err != nil {
		return err
	}

	focused, _ := config.ParseColor(cfg.Colors.Focused)
	unfocused, _ := config.ParseColor(cfg.Colors.Unfocused)

	state := wm.NewState(cfg.Workspaces.Count, cfg.Layout.SplitRatio)
	coord := wm.NewCoordinator(state, conn, shortcuts, execSpawner{}, wm.Options{
		Layout: bsp.Params{
			Gap:             cfg.Layout.Gap,
			MinWindowWidth:  cfg.Layout.MinWindowWidth,
			MinWindowHeight: cfg.Layout.MinWindowHeight,
			BorderWidth:     cfg.Layout.BorderWidth,
		},
		FocusedColor:   focused,
		UnfocusedColor: unfocused,
	})
	coord.OnQuit = func() {
		log.Info("quit requested")
		conn.Close()
	}

	// Windows mapped before the manager started join the layout.
	existing, err := conn.ExistingWindows()
	if err != nil {
		log.Warn("adopting existing windows", "err", err)
	}
	for _, win := range existing {
		coord.Dispatch(wm.WindowCreateRequested{Window: win})
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sig
		log.Info("shutting down", "signal", s)
		conn.Close()
	}()

	log.Info("bsptile running",
		"screen", conn.Screen(),
		"workspaces", cfg.Workspaces.Count,
		"shortcuts", len(shortcuts.Shortcuts()),
	)
	return conn.Run(coord.Dispatch)
}

func toBindings(in []config.Binding) []shortcut.Binding {
	out := make([]shortcut.Binding, len(in))
	for i, b := range in {
		out[i] = shortcut.Binding{Combo: b.Combo, Command: b.Command}
	}
	return out
}

// execSpawner launches shortcut-spawned programs detached through the
// shell, so command lines from config can carry arguments.
type execSpawner struct{}

func (execSpawner) Spawn(cmdline string) error {
	cmdline = strings.TrimSpace(cmdline)
	if cmdline == "" {
		return fmt.Errorf("empty command line")
	}
	cmd := exec.Command("/bin/sh", "-c", cmdline)
	cmd.Stdout = nil
	cmd.Stderr = nil
	return cmd.Start()
}
