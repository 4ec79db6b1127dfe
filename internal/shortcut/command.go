package shortcut

import (
	"fmt"
	"strconv"
	"strings"
)

// Action is a window manager command a shortcut can trigger. The set is
// closed: the event coordinator dispatches with an exhaustive switch, so
// adding an action without a handler is a compile-time visible change.
type Action int

const (
	ActionFocusNext Action = iota
	ActionFocusPrev
	ActionRotate
	ActionSwapNext
	ActionBalance
	ActionFullscreen
	ActionZoom
	ActionClose
	ActionQuit
	ActionSpawn
	ActionWorkspace
	ActionMoveToWorkspace
)

// Actions lists every defined action, in declaration order.
func Actions() []Action {
	return []Action{
		ActionFocusNext,
		ActionFocusPrev,
		ActionRotate,
		ActionSwapNext,
		ActionBalance,
		ActionFullscreen,
		ActionZoom,
		ActionClose,
		ActionQuit,
		ActionSpawn,
		ActionWorkspace,
		ActionMoveToWorkspace,
	}
}

func (a Action) String() string {
	switch a {
	case ActionFocusNext:
		return "focus-next"
	case ActionFocusPrev:
		return "focus-prev"
	case ActionRotate:
		return "rotate"
	case ActionSwapNext:
		return "swap-next"
	case ActionBalance:
		return "balance"
	case ActionFullscreen:
		return "fullscreen"
	case ActionZoom:
		return "zoom"
	case ActionClose:
		return "close"
	case ActionQuit:
		return "quit"
	case ActionSpawn:
		return "spawn"
	case ActionWorkspace:
		return "workspace"
	case ActionMoveToWorkspace:
		return "move-to-workspace"
	}
	return fmt.Sprintf("action(%d)", int(a))
}

// Command is an action plus its argument, if the action takes one.
type Command struct {
	Action Action
	Arg    string // spawn: the command line to run
	Index  int    // workspace actions: 1-based workspace number
}

// ParseCommand parses a configured command string such as "rotate",
// "spawn xterm" or "workspace 3".
func ParseCommand(s string) (Command, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(s), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "focus-next":
		return Command{Action: ActionFocusNext}, nil
	case "focus-prev":
		return Command{Action: ActionFocusPrev}, nil
	case "rotate":
		return Command{Action: ActionRotate}, nil
	case "swap-next":
		return Command{Action: ActionSwapNext}, nil
	case "balance":
		return Command{Action: ActionBalance}, nil
	case "fullscreen":
		return Command{Action: ActionFullscreen}, nil
	case "zoom":
		return Command{Action: ActionZoom}, nil
	case "close":
		return Command{Action: ActionClose}, nil
	case "quit":
		return Command{Action: ActionQuit}, nil
	case "spawn":
		if arg == "" {
			return Command{}, fmt.Errorf("spawn requires a command line")
		}
		return Command{Action: ActionSpawn, Arg: arg}, nil
	case "workspace", "move-to-workspace":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("%s requires a workspace number >= 1, got %q", name, arg)
		}
		if name == "workspace" {
			return Command{Action: ActionWorkspace, Index: n}, nil
		}
		return Command{Action: ActionMoveToWorkspace, Index: n}, nil
	}
	return Command{}, fmt.Errorf("unknown command %q", name)
}
