package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rorsim/gfxbridge/internal/dispatcher"
	"github.com/rorsim/gfxbridge/internal/gfx"
	"github.com/rorsim/gfxbridge/internal/logging"
	"github.com/rorsim/gfxbridge/pkg/core"
)

var errUsage = errors.New("usage")

// setupCommands registers the console commands. Commands touching proxies
// run on the render goroutine, commands touching actors on the sim goroutine.
func (a *app) setupCommands(logger dispatcher.Logger) error {
	d, err := dispatcher.New(logger)
	if err != nil {
		return fmt.Errorf("dispatcher: %w", err)
	}
	a.commands = d
	a.renderCmds = make(chan func(), 16)
	a.simCmds = make(chan func(), 16)

	d.Register("help", func(dispatcher.Command) (string, error) {
		return strings.Join(d.Help(), "\n"), nil
	}, dispatcher.Usage("lists commands"))

	d.Register("debugview", a.onRender(func(c dispatcher.Command, actor *gfx.Actor) error {
		if len(c.Args) < 2 {
			actor.CycleDebugView()
			return nil
		}
		switch c.Args[1] {
		case "toggle":
			actor.ToggleDebugView()
		default:
			v, err := core.ParseDebugView(strings.ToUpper(c.Args[1]))
			if err != nil {
				return err
			}
			actor.SetDebugView(v)
		}
		return nil
	}), dispatcher.Usage("<actor> [toggle|<view>]"), dispatcher.Logged())

	d.Register("meshes", a.onRender(func(c dispatcher.Command, actor *gfx.Actor) error {
		if len(c.Args) < 2 {
			return fmt.Errorf("%w: meshes <actor> on|off", errUsage)
		}
		actor.SetAllMeshesVisible(c.Args[1] == "on")
		return nil
	}), dispatcher.Usage("<actor> on|off"), dispatcher.Logged())

	d.Register("shadows", a.onRender(func(c dispatcher.Command, actor *gfx.Actor) error {
		if len(c.Args) < 2 {
			return fmt.Errorf("%w: shadows <actor> on|off", errUsage)
		}
		actor.SetCastShadows(c.Args[1] == "on")
		return nil
	}), dispatcher.Usage("<actor> on|off"), dispatcher.Logged())

	d.Register("resetflex", a.onRender(func(_ dispatcher.Command, actor *gfx.Actor) error {
		actor.ResetFlexbodies()
		return nil
	}), dispatcher.Usage("<actor>"), dispatcher.Logged())

	d.Register("player", func(c dispatcher.Command) (string, error) {
		id, err := actorArg(c)
		if err != nil {
			return "", err
		}
		a.registry.SetPlayerActor(id)
		return fmt.Sprintf("player actor %d", id), nil
	}, dispatcher.Usage("<actor>|-1"), dispatcher.Logged())

	d.Register("pause", a.onSim(true), dispatcher.Usage("<actor>"), dispatcher.Logged())
	d.Register("resume", a.onSim(false), dispatcher.Usage("<actor>"), dispatcher.Logged())

	d.Register("remove", a.onRender(func(_ dispatcher.Command, actor *gfx.Actor) error {
		id := actor.ID()
		if !a.registry.Remove(id) {
			return fmt.Errorf("actor %d already removed", id)
		}
		if a.recorder != nil {
			a.recorder.Unregister(id)
		}
		return nil
	}), dispatcher.Usage("<actor>"), dispatcher.Logged())

	d.Register("status", func(dispatcher.Command) (string, error) {
		st := a.status()
		a.logger.Info("Status", "frame", st.Frame, "actors", st.Actors, "updated", st.Updated,
			"tasks", st.Tasks, "frameMs", st.FrameMs, "pendingFrames", st.PendingFrames)
		return "", nil
	}, dispatcher.Buffered(4), dispatcher.Usage("logs the current status"))

	return nil
}

func actorArg(c dispatcher.Command) (int, error) {
	if len(c.Args) == 0 {
		return 0, fmt.Errorf("%w: %s <actor>", errUsage, c.Name)
	}
	id, err := strconv.Atoi(c.Args[0])
	if err != nil {
		return 0, fmt.Errorf("invalid actor id %q: %w", c.Args[0], err)
	}
	return id, nil
}

// onRender queues fn for the render goroutine.
func (a *app) onRender(fn func(dispatcher.Command, *gfx.Actor) error) dispatcher.HandlerFunc {
	return func(c dispatcher.Command) (string, error) {
		id, err := actorArg(c)
		if err != nil {
			return "", err
		}
		actor, ok := a.registry.Get(id)
		if !ok {
			return "", fmt.Errorf("actor %d not found", id)
		}
		return enqueue(a.renderCmds, func() {
			if err := fn(c, actor); err != nil {
				ctx := logging.WithActor(context.Background(), actor.ID())
				a.logger.WarnContext(ctx, "Command failed", "command", c.Name, "error", err)
			}
		})
	}
}

// onSim queues a pause change for the sim goroutine.
func (a *app) onSim(paused bool) dispatcher.HandlerFunc {
	return func(c dispatcher.Command) (string, error) {
		id, err := actorArg(c)
		if err != nil {
			return "", err
		}
		if id < 1 || id > len(a.actors) {
			return "", fmt.Errorf("actor %d not found", id)
		}
		s := a.actors[id-1]
		return enqueue(a.simCmds, func() { s.SetPaused(paused) })
	}
}

func enqueue(cmds chan<- func(), fn func()) (string, error) {
	select {
	case cmds <- fn:
		return "queued", nil
	default:
		return "", errors.New("command queue full")
	}
}

// drain runs the queued commands of one goroutine.
func drain(cmds <-chan func()) {
	for {
		select {
		case fn := <-cmds:
			fn()
		default:
			return
		}
	}
}

// readCommands dispatches one command per input line until r is exhausted or
// ctx is done.
func (a *app) readCommands(ctx context.Context, r io.Reader, w io.Writer) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		c, ok := dispatcher.Parse(sc.Text())
		if !ok {
			continue
		}
		out, err := a.commands.Dispatch(c)
		switch {
		case err != nil:
			fmt.Fprintln(w, "error:", err)
		case out != "":
			fmt.Fprintln(w, out)
		}
	}
}
