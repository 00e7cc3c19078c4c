package app

import (
	"sync"
	"time"
)

type taskState int

const (
	taskPending taskState = iota
	taskFired
	taskCancelled
)

// Task is a one-shot delayed callback owned by a Scheduler.
type Task struct {
	s     *Scheduler
	timer *time.Timer
	state taskState
}

// Cancel stops the task. It reports false if the task already fired or was
// cancelled. Once Cancel returns the callback will not start.
func (t *Task) Cancel() bool {
	if t == nil {
		return false
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return t.s.cancelLocked(t)
}

// Scheduler runs delayed one-shot tasks and cancels all of them on Close.
// Tasks are tied to the lifetime of the lesson session that owns the scheduler.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[*Task]struct{}
	closed bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{tasks: make(map[*Task]struct{})}
}

// Schedule runs fn once after delay. On a closed scheduler it returns a
// cancelled task and fn never runs.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := &Task{s: s}
	if s.closed {
		t.state = taskCancelled
		return t
	}
	s.tasks[t] = struct{}{}
	t.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if t.state != taskPending {
			s.mu.Unlock()
			return
		}
		t.state = taskFired
		delete(s.tasks, t)
		s.mu.Unlock()
		fn()
	})
	return t
}

// Pending returns the number of tasks that have neither fired nor been cancelled.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Close cancels every pending task and rejects new ones.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for t := range s.tasks {
		s.cancelLocked(t)
	}
}

func (s *Scheduler) cancelLocked(t *Task) bool {
	if t.state != taskPending {
		return false
	}
	t.state = taskCancelled
	if t.timer != nil {
		t.timer.Stop()
	}
	delete(s.tasks, t)
	return true
}
