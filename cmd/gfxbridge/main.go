// Command gfxbridge runs scripted actors through the snapshot bridge and the
// render update cycle, recording sampled snapshots to a storage backend.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/rorsim/gfxbridge/internal/config"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const appName = "gfxbridge"

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet(appName, pflag.ContinueOnError)
	flags.String("config", ".", "directory containing "+config.FileName)
	flags.String("logLevel", "info", "log level (debug, info, warn, error)")
	flags.String("logsDir", "./logs", "directory for log files")
	flags.Int("actors", 3, "number of scripted actors to spawn")
	flags.Duration("duration", 0, "stop after this long (0 runs until interrupted)")
	flags.Int("sim.rateHz", 200, "simulation ticks per second")
	flags.Int("render.fps", 60, "render frames per second")
	flags.Int("workers.count", 4, "worker pool size")
	flags.String("storage.type", "memory", "recorder backend (memory, sqlite, postgres, websocket)")
	flags.Bool("recorder.enabled", true, "sample snapshots into the storage backend")
	flags.Bool("commands", false, "read console commands from stdin")
	return flags
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := newFlagSet()
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	start := time.Now()
	app, err := setup(flags, start)
	defer app.shutdown()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if d := config.GetDriverConfig().Duration; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	return app.loop(ctx)
}
