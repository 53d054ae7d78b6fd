package game

import "time"

// Scheduler is the single cancellable timer a session goroutine owns. Arm
// replaces any pending deadline; a fired deadline is delivered on C tagged
// with its sequence number, and Current tells whether it is still the live one.
type Scheduler struct {
	C     chan uint64
	timer *time.Timer
	seq   uint64
	done  <-chan struct{}
}

// NewScheduler creates a scheduler whose pending fires are dropped once done closes.
func NewScheduler(done <-chan struct{}) *Scheduler {
	return &Scheduler{C: make(chan uint64, 1), done: done}
}

// Arm schedules a fire after d and returns its sequence number.
func (s *Scheduler) Arm(d time.Duration) uint64 {
	s.Cancel()
	s.seq++
	seq := s.seq
	s.timer = time.AfterFunc(d, func() {
		select {
		case s.C <- seq:
		case <-s.done:
		}
	})
	return seq
}

// Cancel stops the pending fire, if any. A fire already in flight is made stale.
func (s *Scheduler) Cancel() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.seq++
}

// Current reports whether seq belongs to the most recent Arm.
func (s *Scheduler) Current(seq uint64) bool {
	return s.timer != nil && seq == s.seq
}
