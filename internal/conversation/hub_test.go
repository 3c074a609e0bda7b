package conversation

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
	"github.com/ShivaTri14/nagar-seva-ai/internal/scheduler"
)

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingSink) sink(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSink) sessions() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int)
	for _, ev := range r.events {
		out[ev.SessionID]++
	}
	return out
}

func newTestHub(t *testing.T, idle time.Duration) (*Hub, *scheduler.ManualScheduler) {
	t.Helper()
	sched := scheduler.NewManualScheduler(testStart)
	hub := NewHub(HubConfig{
		Defaults:    Options{Language: models.LanguageHindi},
		IdleTimeout: idle,
	}, Deps{Scheduler: sched, Logger: zaptest.NewLogger(t)})
	t.Cleanup(hub.CloseAll)
	return hub, sched
}

func TestHubOpenReusesSessions(t *testing.T) {
	hub, _ := newTestHub(t, 0)

	c, created := hub.Open("", "")
	require.True(t, created)
	assert.NotEmpty(t, c.SessionID())
	assert.Equal(t, models.LanguageHindi, c.Language())

	again, created := hub.Open(c.SessionID(), "citizen-1")
	assert.False(t, created)
	assert.Same(t, c, again)
	assert.Equal(t, "citizen-1", c.UserID())

	// an existing identity is not overwritten
	hub.Open(c.SessionID(), "someone-else")
	assert.Equal(t, "citizen-1", c.UserID())

	named, created := hub.Open("kiosk-3", "")
	assert.True(t, created)
	assert.Equal(t, "kiosk-3", named.SessionID())
	assert.Equal(t, 2, hub.Len())

	got, ok := hub.Get("kiosk-3")
	require.True(t, ok)
	assert.Same(t, named, got)

	assert.True(t, hub.Close("kiosk-3"))
	assert.False(t, hub.Close("kiosk-3"))
	assert.True(t, named.Closed())
	_, ok = hub.Get("kiosk-3")
	assert.False(t, ok)
}

func TestHubSinksReceiveSessionEvents(t *testing.T) {
	hub, sched := newTestHub(t, 0)
	rec := &recordingSink{}
	hub.AddSink(rec.sink)

	a, _ := hub.Open("a", "")
	b, _ := hub.Open("b", "")
	_, err := a.Submit("पानी")
	require.NoError(t, err)
	_, err = b.ToggleLanguage()
	require.NoError(t, err)
	sched.Advance(2 * time.Second)

	hub.CloseAll()
	got := rec.sessions()
	assert.Equal(t, 4, got["a"]) // user message, typing, reply, typing
	assert.Equal(t, 3, got["b"]) // message, language change, notification
	assert.Equal(t, 0, hub.Len())
}

func TestHubSweepEvictsIdleSessions(t *testing.T) {
	hub, sched := newTestHub(t, 30*time.Minute)

	stale, _ := hub.Open("stale", "")
	sched.Advance(20 * time.Minute)
	fresh, _ := hub.Open("fresh", "")
	_, err := stale.Submit("bill")
	require.NoError(t, err)
	hub.Open("stale-2", "")

	sched.Advance(15 * time.Minute)
	_, err = fresh.Submit("road")
	require.NoError(t, err)

	// last activity: stale and stale-2 at 20m, fresh at 35m
	assert.Equal(t, 0, hub.Sweep(sched.Now()))
	assert.Equal(t, 2, hub.Sweep(sched.Now().Add(15*time.Minute)))
	assert.Equal(t, 1, hub.Len())
	assert.True(t, stale.Closed())
	assert.False(t, fresh.Closed())

	noIdle, _ := newTestHub(t, 0)
	noIdle.Open("x", "")
	assert.Equal(t, 0, noIdle.Sweep(testStart.Add(24*time.Hour)))
}

func TestValidSessionID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"ws-1", true},
		{"3f1c2a9e-8f4d-4c1b-9a57-0d2e6b7c8a91", true},
		{"user_42", true},
		{"", false},
		{"a.b", false},
		{"orders.*", false},
		{">", false},
		{"a b", false},
		{"tab\tid", false},
		{"सत्र", false},
		{strings.Repeat("x", MaxSessionIDLength), true},
		{strings.Repeat("x", MaxSessionIDLength+1), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidSessionID(tt.id), "id %q", tt.id)
	}
}
