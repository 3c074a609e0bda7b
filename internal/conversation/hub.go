package conversation

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// EventSink receives every event of every session, e.g. a NATS publisher
type EventSink func(models.Event)

// HubConfig holds session defaults and the idle policy
type HubConfig struct {
	Defaults    Options // SessionID and UserID are ignored
	IdleTimeout time.Duration
	SweepEvery  time.Duration
	EventBuffer int
}

// Hub is the registry of live sessions
type Hub struct {
	cfg    HubConfig
	deps   Deps
	logger *zap.Logger

	mu       sync.Mutex
	sessions map[string]*Controller
	sinks    []EventSink
	pumps    sync.WaitGroup
}

func NewHub(cfg HubConfig, deps Deps) *Hub {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if cfg.SweepEvery <= 0 {
		cfg.SweepEvery = time.Minute
	}
	return &Hub{
		cfg:      cfg,
		deps:     deps,
		logger:   deps.Logger.Named("hub"),
		sessions: make(map[string]*Controller),
	}
}

// AddSink registers a sink for sessions opened afterwards
func (h *Hub) AddSink(sink EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sinks = append(h.sinks, sink)
}

// MaxSessionIDLength bounds client-chosen session ids
const MaxSessionIDLength = 64

// ValidSessionID reports whether id is usable as a session id. Ids end up as
// a NATS subject token, so only letters, digits, '-' and '_' are allowed.
func ValidSessionID(id string) bool {
	if id == "" || len(id) > MaxSessionIDLength {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}

// Open returns the session with this id, creating it when missing.
// An empty id creates a new session with a generated id. Callers check
// client-supplied ids with ValidSessionID first.
func (h *Hub) Open(sessionID, userID string) (*Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessionID != "" {
		if c, ok := h.sessions[sessionID]; ok {
			if userID != "" && c.UserID() == "" {
				c.SetUserID(userID)
			}
			return c, false
		}
	}

	opts := h.cfg.Defaults
	opts.SessionID = sessionID
	opts.UserID = userID
	c := New(opts, h.deps)
	h.sessions[c.SessionID()] = c

	if len(h.sinks) > 0 {
		sinks := append([]EventSink(nil), h.sinks...)
		events, _ := c.Subscribe(h.cfg.EventBuffer)
		h.pumps.Add(1)
		go func() {
			defer h.pumps.Done()
			for ev := range events {
				for _, sink := range sinks {
					sink(ev)
				}
			}
		}()
	}

	h.logger.Info("session opened", zap.String("session_id", c.SessionID()), zap.Bool("authenticated", userID != ""))
	return c, true
}

// Get returns a live session
func (h *Hub) Get(sessionID string) (*Controller, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.sessions[sessionID]
	return c, ok
}

// Close ends and forgets one session
func (h *Hub) Close(sessionID string) bool {
	h.mu.Lock()
	c, ok := h.sessions[sessionID]
	delete(h.sessions, sessionID)
	h.mu.Unlock()

	if !ok {
		return false
	}
	c.Close()
	h.logger.Info("session closed", zap.String("session_id", sessionID))
	return true
}

// Len returns the number of live sessions
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Sweep closes sessions idle since before now minus the idle timeout
func (h *Hub) Sweep(now time.Time) int {
	if h.cfg.IdleTimeout <= 0 {
		return 0
	}

	h.mu.Lock()
	var idle []*Controller
	for id, c := range h.sessions {
		if now.Sub(c.LastActive()) >= h.cfg.IdleTimeout {
			idle = append(idle, c)
			delete(h.sessions, id)
		}
	}
	h.mu.Unlock()

	for _, c := range idle {
		c.Close()
	}
	if len(idle) > 0 {
		h.logger.Info("evicted idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Run sweeps idle sessions until ctx is done, then closes every session
func (h *Hub) Run(ctx context.Context) error {
	ticker := time.NewTicker(h.cfg.SweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.CloseAll()
			return nil
		case now := <-ticker.C:
			h.Sweep(now)
		}
	}
}

// CloseAll ends every session and waits for event pumps to drain
func (h *Hub) CloseAll() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*Controller)
	h.mu.Unlock()

	for _, c := range sessions {
		c.Close()
	}
	h.pumps.Wait()
	h.logger.Info("all sessions closed", zap.Int("count", len(sessions)))
}
