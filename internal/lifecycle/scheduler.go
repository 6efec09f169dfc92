package lifecycle

import (
	"sync"
	"time"
)

// Handle is one cancellable scheduled task.
type Handle struct {
	timer *time.Timer

	mu        sync.Mutex
	fired     bool
	cancelled bool
}

// Cancel stops the task if it has not started firing yet and reports whether
// it did. Once the task has begun it runs to completion.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fired || h.cancelled {
		return false
	}
	h.cancelled = true
	h.timer.Stop()
	return true
}

// Scheduler runs deferred tasks on timer goroutines and tracks their handles
// so everything still pending can be released on shutdown.
type Scheduler struct {
	mu      sync.Mutex
	handles map[*Handle]struct{}
	stopped bool
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{handles: make(map[*Handle]struct{})}
}

// Schedule runs task after delay unless the returned handle is cancelled
// first. A nil handle is returned when the scheduler is already stopped.
func (s *Scheduler) Schedule(delay time.Duration, task func()) *Handle {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}

	h := &Handle{}
	h.timer = time.AfterFunc(delay, func() {
		h.mu.Lock()
		if h.cancelled {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.mu.Unlock()

		s.remove(h)
		task()
	})

	s.handles[h] = struct{}{}
	s.mu.Unlock()
	return h
}

// Pending returns the number of tasks not yet fired or cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Stop cancels every pending task and rejects new ones. Tasks already firing
// run to completion.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	handles := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		handles = append(handles, h)
	}
	s.handles = make(map[*Handle]struct{})
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
}

func (s *Scheduler) remove(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h)
	s.mu.Unlock()
}
