package game

import (
	"sync"
	"time"
)

type (
	// Cancel revokes a scheduled task. Calling it more than once is fine.
	Cancel func()

	// Scheduler runs fn once after d
	Scheduler interface {
		Schedule(d time.Duration, fn func()) Cancel
	}
)

type realScheduler struct{}

// RealScheduler schedules on time.AfterFunc
func RealScheduler() Scheduler {
	return realScheduler{}
}

func (realScheduler) Schedule(d time.Duration, fn func()) Cancel {
	t := time.AfterFunc(d, fn)
	return func() { t.Stop() }
}

type (
	// ManualScheduler queues tasks until they are run explicitly.
	// Tasks run on the caller of RunNext in the order they were scheduled.
	ManualScheduler struct {
		mu    sync.Mutex
		seq   uint64
		tasks []*manualTask
	}
	manualTask struct {
		id    uint64
		delay time.Duration
		fn    func()
	}
)

var (
	_ Scheduler = realScheduler{}
	_ Scheduler = (*ManualScheduler)(nil)
)

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{}
}

func (m *ManualScheduler) Schedule(d time.Duration, fn func()) Cancel {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	id := m.seq
	m.tasks = append(m.tasks, &manualTask{id: id, delay: d, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, t := range m.tasks {
			if t.id == id {
				m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
				return
			}
		}
	}
}

// RunNext runs the oldest pending task. It reports false if none was pending.
func (m *ManualScheduler) RunNext() bool {
	m.mu.Lock()
	if len(m.tasks) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.tasks[0]
	m.tasks = m.tasks[1:]
	m.mu.Unlock()
	t.fn()
	return true
}

// NextDelay returns the delay of the oldest pending task
func (m *ManualScheduler) NextDelay() (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.tasks) == 0 {
		return 0, false
	}
	return m.tasks[0].delay, true
}

func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
