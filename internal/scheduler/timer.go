package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// timerEntry tracks information about a scheduled timer
type timerEntry struct {
	timer       *time.Timer
	name        string
	scheduledAt time.Time
	expiresAt   time.Time
	release     func() bool // detaches the context watcher
}

// TimerScheduler implements Scheduler on time.AfterFunc
type TimerScheduler struct {
	mu      sync.Mutex
	timers  map[ID]*timerEntry
	nextID  ID
	stopped bool
	logger  *zap.Logger
}

// NewTimerScheduler creates a new TimerScheduler
func NewTimerScheduler(logger *zap.Logger) *TimerScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimerScheduler{
		timers: make(map[ID]*timerEntry),
		logger: logger.Named("scheduler"),
	}
}

// Schedule runs task after delay unless ctx is done first or the task is cancelled
func (t *TimerScheduler) Schedule(ctx context.Context, name string, delay time.Duration, task Task) ID {
	if ctx.Err() != nil {
		return 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.stopped {
		t.logger.Debug("scheduler stopped, dropping task", zap.String("task", name))
		return 0
	}

	t.nextID++
	id := t.nextID
	now := time.Now()

	timer := time.AfterFunc(delay, func() {
		if !t.remove(id) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		t.logger.Debug("running scheduled task", zap.Int64("id", int64(id)), zap.String("task", name))
		task(ctx)
	})

	t.timers[id] = &timerEntry{
		timer:       timer,
		name:        name,
		scheduledAt: now,
		expiresAt:   now.Add(delay),
		release:     context.AfterFunc(ctx, func() { t.Cancel(id) }),
	}
	return id
}

// remove drops an entry; false means it was already cancelled
func (t *TimerScheduler) remove(id ID) bool {
	t.mu.Lock()
	entry, ok := t.timers[id]
	delete(t.timers, id)
	t.mu.Unlock()

	if ok {
		entry.release()
	}
	return ok
}

// Cancel stops a pending task
func (t *TimerScheduler) Cancel(id ID) bool {
	t.mu.Lock()
	entry, ok := t.timers[id]
	delete(t.timers, id)
	t.mu.Unlock()

	if !ok {
		return false
	}
	entry.timer.Stop()
	entry.release()
	return true
}

// Pending returns the number of tasks that have not fired yet
func (t *TimerScheduler) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.timers)
}

func (t *TimerScheduler) Now() time.Time {
	return time.Now()
}

// Active returns information about all pending tasks, soonest first
func (t *TimerScheduler) Active() []Info {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	result := make([]Info, 0, len(t.timers))
	for id, entry := range t.timers {
		remaining := entry.expiresAt.Sub(now)
		if remaining < 0 {
			remaining = 0
		}
		result = append(result, Info{
			ID:          id,
			Name:        entry.name,
			ScheduledAt: entry.scheduledAt,
			ExpiresAt:   entry.expiresAt,
			Remaining:   remaining,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ExpiresAt.Before(result[j].ExpiresAt) })
	return result
}

// Stop cancels all pending tasks and refuses new ones
func (t *TimerScheduler) Stop() {
	t.mu.Lock()
	timers := t.timers
	t.timers = make(map[ID]*timerEntry)
	t.stopped = true
	t.mu.Unlock()

	for _, entry := range timers {
		entry.timer.Stop()
		entry.release()
	}
	t.logger.Debug("scheduler stopped", zap.Int("cancelled", len(timers)))
}
