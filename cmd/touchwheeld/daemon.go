package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"touchwheel"
)

// ============================================================================
// Poll loop - the only owner of the engine
// ============================================================================
//
// Every tick the loop reads one sample, runs Physics and the Classifier, drains
// the event queue and hands each event to the publishers. Requests from IPC and
// websocket clients are served between ticks, so the engine is never touched
// concurrently.
//
// ============================================================================

// wheelLoop holds the engine plus the bookkeeping around it.
type wheelLoop struct {
	src     touchwheel.Source
	srcKind string
	phys    *touchwheel.Physics
	cls     *touchwheel.Classifier
	pubs    []Publisher
	logger  *slog.Logger

	maxReadErrors  int
	streamReadings bool
	newSessionID   func() string

	startedAt  time.Time
	session    string
	position   int
	polls      uint64
	readErrors uint64
	events     uint64
	failStreak int
}

type wheelLoopConfig struct {
	SourceKind     string
	MaxReadErrors  int
	StreamReadings bool
}

func newWheelLoop(src touchwheel.Source, phys *touchwheel.Physics, cls *touchwheel.Classifier, pubs []Publisher, cfg wheelLoopConfig, logger *slog.Logger) *wheelLoop {
	maxErrs := cfg.MaxReadErrors
	if maxErrs <= 0 {
		maxErrs = defaultMaxReadErrors
	}
	return &wheelLoop{
		src:            src,
		srcKind:        cfg.SourceKind,
		phys:           phys,
		cls:            cls,
		pubs:           pubs,
		logger:         logger,
		maxReadErrors:  maxErrs,
		streamReadings: cfg.StreamReadings,
		newSessionID:   uuid.NewString,
		startedAt:      time.Now(),
	}
}

// poll runs one tick. It returns an error only when the source has failed
// more than maxReadErrors times in a row.
func (w *wheelLoop) poll(now time.Time) error {
	w.polls++

	raw, err := w.src.Read()
	if err != nil {
		if errors.Is(err, errSourceNotReady) {
			return nil
		}
		w.readErrors++
		w.failStreak++
		if w.failStreak > w.maxReadErrors {
			return fmt.Errorf("source failed %d consecutive reads: %w", w.failStreak, err)
		}
		w.logger.Warn("source read failed, skipping tick", "error", err, "consecutive", w.failStreak)
		return nil
	}
	if w.failStreak > 0 {
		w.logger.Info("source recovered", "failed_reads", w.failStreak)
		w.failStreak = 0
	}

	w.cls.Update(w.phys.Update(raw))

	if w.cls.SessionStarted() {
		w.session = w.newSessionID()
		w.logger.Debug("touch session started", "session", w.session)
	}

	for {
		ev, ok := w.cls.Events().Pop()
		if !ok {
			break
		}
		if ev.Kind == touchwheel.EventDial {
			w.position += ev.Delta
		}
		w.events++
		w.publish(BroadcastEvent{Event: ev, Session: w.session, Position: w.position, At: now})
	}

	if w.streamReadings {
		w.publish(BroadcastReading{Snapshot: w.cls.Snapshot(), Session: w.session, At: now})
	}

	if w.cls.SessionEnded() {
		w.logger.Debug("touch session ended", "session", w.session)
		w.session = ""
	}
	return nil
}

func (w *wheelLoop) publish(b WheelBroadcast) {
	for _, p := range w.pubs {
		p.Publish(b)
	}
}

// status returns a snapshot of the loop state.
func (w *wheelLoop) status() StatusSnapshot {
	cal := w.phys.Calibration()
	return StatusSnapshot{
		Source:     w.srcKind,
		StartedAt:  w.startedAt,
		Session:    w.session,
		Touched:    w.cls.Touched(),
		Position:   w.position,
		Polls:      w.polls,
		ReadErrors: w.readErrors,
		Events:     w.events,
		PadMax:     append([]float64(nil), cal.Max[:]...),
		PadMin:     append([]float64(nil), cal.Min[:]...),
		Wheel:      w.cls.Snapshot(),
	}
}

// reset drops the current session and zeroes the dial position.
func (w *wheelLoop) reset() {
	w.cls.Reset()
	w.session = ""
	w.position = 0
	w.logger.Info("wheel reset")
}

func (w *wheelLoop) handleRequest(req Request) {
	switch r := req.(type) {
	case RequestStatus:
		select {
		case r.Reply <- w.status():
		default:
			w.logger.Warn("status reply dropped (reply channel not ready)")
		}

	case RequestReset:
		w.reset()
		select {
		case r.Reply <- nil:
		default:
		}

	default:
		w.logger.Warn("unknown request", "type", fmt.Sprintf("%T", req))
	}
}

// runDaemon drives the poll loop at pollHz until ctx is canceled, the
// requests channel is closed, or the source fails for good.
func runDaemon(ctx context.Context, loop *wheelLoop, requests <-chan Request, pollHz int, logger *slog.Logger) error {
	if pollHz <= 0 {
		pollHz = defaultPollHz
	}
	ticker := time.NewTicker(time.Second / time.Duration(pollHz))
	defer ticker.Stop()

	logger.Info("poll loop starting", "poll_hz", pollHz)

	for {
		select {
		case <-ctx.Done():
			logger.Info("poll loop stopping (context canceled)")
			return nil

		case req, ok := <-requests:
			if !ok {
				logger.Info("poll loop stopping (requests channel closed)")
				return nil
			}
			loop.handleRequest(req)

		case now := <-ticker.C:
			if err := loop.poll(now); err != nil {
				return err
			}
		}
	}
}
