package render

import (
	"log/slog"
	"sync"
	"time"
)

// Painter is the scheduler's view of the renderer: one entry point that
// paints every attached head once.
type Painter interface {
	PaintFrame() error
}

// Scheduler is the paint worker. It turns any number of change signals
// into throttled, coalesced PaintFrame calls on a single long-lived
// goroutine.
//
// It has two states: disabled (initial, and final after Close) and
// enabled. Signals arriving while a paint is pending collapse into one.
type Scheduler struct {
	painter  Painter
	logger   *slog.Logger
	interval time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	enabled  bool
	pending  bool
	painting bool
	closed   bool
	done     chan struct{}
}

// NewScheduler starts a paint worker driving painter at most once per
// interval. Painting stays disabled until EnablePainting.
func NewScheduler(painter Painter, interval time.Duration, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = 8 * time.Millisecond
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		painter:  painter,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

// EnablePainting moves the scheduler to the enabled state. Signals
// received while disabled are retained and painted once enabled.
func (s *Scheduler) EnablePainting() {
	s.mu.Lock()
	s.enabled = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// NotifyPaint signals that something changed. Level-triggered: any number
// of calls before the next paint produce exactly one paint.
func (s *Scheduler) NotifyPaint() {
	s.mu.Lock()
	s.pending = true
	s.cond.Broadcast()
	s.mu.Unlock()
}

// WaitForPaintCompletionAndDisable blocks until any in-flight paint
// finishes or timeout elapses, then forces the disabled state. A negative
// timeout waits indefinitely.
func (s *Scheduler) WaitForPaintCompletionAndDisable(timeout time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if timeout < 0 {
		for s.painting {
			s.cond.Wait()
		}
		s.enabled = false
		return
	}

	deadline := time.Now().Add(timeout)
	// The timer wakes the cond so the deadline is honored even with no
	// paint activity.
	timer := time.AfterFunc(timeout, func() {
		s.mu.Lock()
		s.cond.Broadcast()
		s.mu.Unlock()
	})
	defer timer.Stop()

	for s.painting && time.Now().Before(deadline) {
		s.cond.Wait()
	}
	s.enabled = false
}

// Enabled reports whether painting is currently enabled.
func (s *Scheduler) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Close stops the worker goroutine. The scheduler is disabled and unusable
// afterwards. Safe to call more than once.
func (s *Scheduler) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.enabled = false
	s.cond.Broadcast()
	s.mu.Unlock()
	<-s.done
}

func (s *Scheduler) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for !s.closed && !(s.enabled && s.pending) {
			s.cond.Wait()
		}
		if s.closed {
			s.mu.Unlock()
			return
		}
		s.pending = false
		s.painting = true
		s.mu.Unlock()

		if err := s.painter.PaintFrame(); err != nil {
			s.logger.Error("paint frame", "error", err)
		}

		s.mu.Lock()
		s.painting = false
		s.cond.Broadcast()
		s.mu.Unlock()

		// The sleep is the throttle: signal bursts arriving during it
		// coalesce into the next paint.
		time.Sleep(s.interval)
	}
}
