package main

import (
	"context"
	"os"
	"time"

	"github.com/rorsim/gfxbridge/internal/config"

	"golang.org/x/sync/errgroup"
)

// loop runs the simulation and render goroutines until ctx is done.
func (a *app) loop(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.simLoop(ctx) })
	g.Go(func() error { return a.renderLoop(ctx) })
	if config.GetBool("commands") {
		// Reading stdin cannot be interrupted, so the reader is not part of
		// the group.
		go a.readCommands(ctx, os.Stdin, os.Stdout)
	}

	a.logger.Info("Running", "simRateHz", a.driver.SimRateHz, "renderFps", a.driver.RenderFPS,
		"duration", a.driver.Duration)
	return g.Wait()
}

func period(hz int, fallback int) time.Duration {
	if hz <= 0 {
		hz = fallback
	}
	return time.Second / time.Duration(hz)
}

// simLoop is the producer: it steps every actor and publishes the snapshots.
func (a *app) simLoop(ctx context.Context) error {
	p := period(a.driver.SimRateHz, 200)
	dt := float32(p.Seconds())
	ticker := time.NewTicker(p)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			drain(a.simCmds)
			for _, s := range a.actors {
				s.Step(dt)
			}
			n := a.registry.PublishAll()
			if a.metrics != nil {
				if err := a.metrics.WriteTick(n, time.Since(now), now); err != nil {
					a.logger.Debug("Failed to write tick point", "error", err)
				}
			}
		}
	}
}

// renderLoop is the consumer: it runs the update cycle and samples the
// acquired snapshots into the recorder.
func (a *app) renderLoop(ctx context.Context) error {
	ticker := time.NewTicker(period(a.driver.RenderFPS, 60))
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			dt := float32(now.Sub(last).Seconds())
			last = now
			drain(a.renderCmds)

			stats := a.registry.RenderFrame(dt)
			a.frame.Store(stats.Frame)
			a.lastStats.Store(&stats)
			if a.metrics != nil {
				if err := a.metrics.WriteFrame(stats, now); err != nil {
					a.logger.Debug("Failed to write frame point", "error", err)
				}
			}
			a.sample(now)
		}
	}
}

func (a *app) sample(now time.Time) {
	if a.recorder == nil {
		return
	}
	for _, actor := range a.registry.Actors() {
		if !actor.IsInitialized() {
			continue
		}
		if _, err := a.recorder.Sample(now, actor.ID(), actor.SimBuffer()); err != nil {
			a.logger.Debug("Failed to record frame", "actorId", actor.ID(), "error", err)
		}
	}
}
