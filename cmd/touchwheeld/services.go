package main

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// services owns the daemon's background goroutines. Stop cancels them, waits
// for every one to return and only then runs the closers, newest first.
type services struct {
	ctx     context.Context
	cancel  context.CancelFunc
	group   *errgroup.Group
	closers []func()
	logger  *slog.Logger
}

func newServices(parent context.Context, logger *slog.Logger) *services {
	ctx, cancel := context.WithCancel(parent)
	group, ctx := errgroup.WithContext(ctx)
	return &services{ctx: ctx, cancel: cancel, group: group, logger: logger}
}

// Context is cancelled by Stop or by the first service that fails.
func (s *services) Context() context.Context { return s.ctx }

// Go runs fn in its own goroutine. An error stops the other services.
func (s *services) Go(name string, fn func() error) {
	s.group.Go(func() error {
		err := fn()
		if err != nil {
			s.logger.Error(name+" stopped", "error", err)
		}
		return err
	})
}

// OnStop registers fn to run after every goroutine started with Go has
// returned. Use it for resources those goroutines still touch.
func (s *services) OnStop(fn func()) {
	s.closers = append(s.closers, fn)
}

func (s *services) Stop() {
	s.cancel()
	_ = s.group.Wait()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
