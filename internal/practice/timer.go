package practice

import (
	"context"
	"time"
)

// seconds rounds d up to whole seconds.
func seconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}

// remainingLocked derives the countdown from the start time, the limit and
// the recorded pauses, so it survives restarts without drift.
func (e *Engine) remainingLocked() time.Duration {
	s := e.session
	if s == nil {
		return 0
	}
	at := e.clock.Now()
	switch {
	case s.EndTime != nil:
		at = *s.EndTime
	case s.PausedAt != nil:
		at = *s.PausedAt
	}
	elapsed := at.Sub(s.StartTime) - s.PausedFor
	return min(max(s.TimeLimit-elapsed, 0), s.TimeLimit)
}

// Remaining returns the time left on the active session.
func (e *Engine) Remaining() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.remainingLocked()
}

// Tick advances the countdown and ends the session once it reaches zero.
// It reports whether this call ended the session.
func (e *Engine) Tick() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return false
	}
	return e.tickLocked(e.session.ID)
}

func (e *Engine) tickLocked(id string) bool {
	s := e.session
	if s == nil || s.ID != id || s.Complete || s.PausedAt != nil {
		return false
	}
	if e.remainingLocked() > 0 {
		return false
	}
	e.endLocked()
	return true
}

func (e *Engine) startTickerLocked() {
	e.stopTickerLocked()
	if e.cfg.TickInterval <= 0 || e.session == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.stopTick = cancel
	id := e.session.ID
	interval := e.cfg.TickInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				e.mu.Lock()
				if ctx.Err() == nil {
					e.tickLocked(id)
				}
				e.mu.Unlock()
			}
		}
	}()
}

func (e *Engine) stopTickerLocked() {
	if e.stopTick != nil {
		e.stopTick()
		e.stopTick = nil
	}
}

// Close stops the background countdown.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopTickerLocked()
}
