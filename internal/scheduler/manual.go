package scheduler

import (
	"context"
	"sync"
	"time"
)

type manualTask struct {
	id   ID
	name string
	at   time.Time
	ctx  context.Context
	task Task
}

// ManualScheduler is a virtual clock. Tasks run synchronously inside Advance,
// ordered by fire time then by scheduling order.
type ManualScheduler struct {
	mu      sync.Mutex
	now     time.Time
	nextID  ID
	tasks   []*manualTask
	stopped bool
}

// NewManualScheduler starts the virtual clock at start
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

func (m *ManualScheduler) Schedule(ctx context.Context, name string, delay time.Duration, task Task) ID {
	if ctx.Err() != nil {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0
	}

	m.nextID++
	m.tasks = append(m.tasks, &manualTask{
		id:   m.nextID,
		name: name,
		at:   m.now.Add(delay),
		ctx:  ctx,
		task: task,
	})
	return m.nextID
}

func (m *ManualScheduler) Cancel(id ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.tasks {
		if t.id == id {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return true
		}
	}
	return false
}

// Pending counts tasks whose context is still live
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		if t.ctx.Err() == nil {
			n++
		}
	}
	return n
}

// Names lists live pending task names in fire order
func (m *ManualScheduler) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for _, t := range m.sorted() {
		if t.ctx.Err() == nil {
			names = append(names, t.name)
		}
	}
	return names
}

func (m *ManualScheduler) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward, running every task that comes due,
// including tasks scheduled by tasks run during this call.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		m.mu.Unlock()

		if next.ctx.Err() == nil {
			next.task(next.ctx)
		}
	}
}

// popDue removes and returns the earliest task due by target
func (m *ManualScheduler) popDue(target time.Time) *manualTask {
	idx := -1
	for i, t := range m.tasks {
		if t.at.After(target) {
			continue
		}
		if idx == -1 || t.at.Before(m.tasks[idx].at) {
			idx = i
		}
	}
	if idx == -1 {
		return nil
	}
	t := m.tasks[idx]
	m.tasks = append(m.tasks[:idx], m.tasks[idx+1:]...)
	return t
}

// sorted returns tasks by fire time, stable on scheduling order
func (m *ManualScheduler) sorted() []*manualTask {
	out := make([]*manualTask, len(m.tasks))
	copy(out, m.tasks)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].at.Before(out[j-1].at); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func (m *ManualScheduler) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = nil
	m.stopped = true
}
