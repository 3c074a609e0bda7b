package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTimerSchedulerRunsTask(t *testing.T) {
	s := NewTimerScheduler(zaptest.NewLogger(t))
	defer s.Stop()

	done := make(chan struct{})
	id := s.Schedule(context.Background(), "ping", 10*time.Millisecond, func(ctx context.Context) {
		close(done)
	})
	require.NotZero(t, id)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := NewTimerScheduler(nil)
	defer s.Stop()

	var ran atomic.Bool
	id := s.Schedule(context.Background(), "never", 50*time.Millisecond, func(ctx context.Context) { ran.Store(true) })
	assert.Equal(t, 1, s.Pending())
	assert.True(t, s.Cancel(id))
	assert.False(t, s.Cancel(id))
	assert.Equal(t, 0, s.Pending())

	time.Sleep(100 * time.Millisecond)
	assert.False(t, ran.Load())
}

func TestTimerSchedulerContextCancellation(t *testing.T) {
	s := NewTimerScheduler(nil)
	defer s.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	var ran atomic.Bool
	s.Schedule(ctx, "bound", 50*time.Millisecond, func(ctx context.Context) { ran.Store(true) })
	s.Schedule(ctx, "bound-too", 60*time.Millisecond, func(ctx context.Context) { ran.Store(true) })
	require.Equal(t, 2, s.Pending())

	cancel()
	assert.Eventually(t, func() bool { return s.Pending() == 0 }, time.Second, 5*time.Millisecond)

	time.Sleep(100 * time.Millisecond)
	assert.False(t, ran.Load())

	assert.Zero(t, s.Schedule(ctx, "late", time.Millisecond, func(ctx context.Context) { ran.Store(true) }))
}

func TestTimerSchedulerStop(t *testing.T) {
	s := NewTimerScheduler(nil)

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		s.Schedule(context.Background(), "batch", 50*time.Millisecond, func(ctx context.Context) { ran.Add(1) })
	}
	assert.Len(t, s.Active(), 5)

	s.Stop()
	assert.Equal(t, 0, s.Pending())
	assert.Zero(t, s.Schedule(context.Background(), "after-stop", time.Millisecond, func(ctx context.Context) { ran.Add(1) }))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())
}

func TestTimerSchedulerActiveOrder(t *testing.T) {
	s := NewTimerScheduler(nil)
	defer s.Stop()

	s.Schedule(context.Background(), "later", time.Hour, func(ctx context.Context) {})
	s.Schedule(context.Background(), "sooner", time.Minute, func(ctx context.Context) {})

	active := s.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "sooner", active[0].Name)
	assert.Equal(t, "later", active[1].Name)
	assert.LessOrEqual(t, active[0].Remaining, time.Minute)
}

func TestManualSchedulerOrdersByFireTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	s := NewManualScheduler(start)

	var mu sync.Mutex
	var order []string
	record := func(name string) Task {
		return func(ctx context.Context) {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}

	s.Schedule(context.Background(), "c", 3*time.Second, record("c"))
	s.Schedule(context.Background(), "a", time.Second, record("a"))
	s.Schedule(context.Background(), "b", time.Second, record("b"))
	assert.Equal(t, []string{"a", "b", "c"}, s.Names())

	s.Advance(2 * time.Second)
	assert.Equal(t, []string{"a", "b"}, order)
	assert.Equal(t, start.Add(2*time.Second), s.Now())

	s.Advance(time.Second)
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, s.Pending())
}

func TestManualSchedulerChainedTasks(t *testing.T) {
	start := time.Unix(0, 0)
	s := NewManualScheduler(start)

	var fired []time.Time
	s.Schedule(context.Background(), "first", time.Second, func(ctx context.Context) {
		fired = append(fired, s.Now())
		s.Schedule(ctx, "second", 2*time.Second, func(ctx context.Context) {
			fired = append(fired, s.Now())
		})
	})

	s.Advance(10 * time.Second)
	require.Len(t, fired, 2)
	assert.Equal(t, start.Add(time.Second), fired[0])
	assert.Equal(t, start.Add(3*time.Second), fired[1])
}

func TestManualSchedulerSkipsCancelledContext(t *testing.T) {
	s := NewManualScheduler(time.Unix(0, 0))
	ctx, cancel := context.WithCancel(context.Background())

	ran := false
	id := s.Schedule(ctx, "bound", time.Second, func(ctx context.Context) { ran = true })
	require.NotZero(t, id)
	assert.Equal(t, 1, s.Pending())

	cancel()
	assert.Equal(t, 0, s.Pending())
	s.Advance(time.Minute)
	assert.False(t, ran)

	other := s.Schedule(context.Background(), "x", time.Second, func(ctx context.Context) { ran = true })
	assert.True(t, s.Cancel(other))
	s.Advance(time.Minute)
	assert.False(t, ran)

	s.Stop()
	assert.Zero(t, s.Schedule(context.Background(), "y", 0, func(ctx context.Context) {}))
}
