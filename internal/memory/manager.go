package memory

import (
	"container/list"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/memory"
	"go.uber.org/zap"
)

// DefaultHistoryTurns bounds how many turns are loaded into a user's buffer
const DefaultHistoryTurns = 50

// TurnRecord is what the conversation engine hands over for persistence
type TurnRecord struct {
	UserID      string
	SessionID   string
	UserMessage string
	BotResponse string
	Language    string
	Intent      string
}

// DefaultMaxCachedUsers bounds the buffer cache when no option is given
const DefaultMaxCachedUsers = 1000

// userBuffer is one user's cached conversation. mu serializes that user's
// store writes and buffer updates; other users never wait on it.
type userBuffer struct {
	userID string
	mu     sync.Mutex
	mem    *memory.ConversationBuffer // nil until loaded
	refs   int                        // guarded by Manager.mu
	elem   *list.Element              // guarded by Manager.mu
}

// Manager orchestrates durable conversation memory using a Store + LangChainGo
type Manager struct {
	store     Store
	logger    *zap.Logger
	now       func() time.Time
	maxCached int

	mu    sync.Mutex // guards users and lru, never held across store I/O
	users map[string]*userBuffer
	lru   *list.List // most recently used at the front
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithMaxCachedUsers caps how many user buffers stay in memory
func WithMaxCachedUsers(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.maxCached = n
		}
	}
}

// NewManager creates a new memory manager
func NewManager(store Store, logger *zap.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		store:     store,
		logger:    logger.Named("memory"),
		now:       time.Now,
		maxCached: DefaultMaxCachedUsers,
		users:     make(map[string]*userBuffer),
		lru:       list.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire returns the user's cache entry, pinned until release
func (m *Manager) acquire(userID string) *userBuffer {
	m.mu.Lock()
	defer m.mu.Unlock()

	ub, ok := m.users[userID]
	if ok {
		m.lru.MoveToFront(ub.elem)
	} else {
		ub = &userBuffer{userID: userID}
		ub.elem = m.lru.PushFront(ub)
		m.users[userID] = ub
	}
	ub.refs++
	m.evictLocked()
	return ub
}

func (m *Manager) release(ub *userBuffer) {
	m.mu.Lock()
	ub.refs--
	m.evictLocked()
	m.mu.Unlock()
}

// evictLocked drops least recently used entries over the cap, skipping pinned ones
func (m *Manager) evictLocked() {
	for e := m.lru.Back(); e != nil && len(m.users) > m.maxCached; {
		prev := e.Prev()
		ub := e.Value.(*userBuffer)
		if ub.refs == 0 {
			m.lru.Remove(e)
			delete(m.users, ub.userID)
			m.logger.Debug("evicted user buffer", zap.String("user_id", ub.userID))
		}
		e = prev
	}
}

// loadLocked fills ub.mem from the store; the caller holds ub.mu
func (m *Manager) loadLocked(ctx context.Context, ub *userBuffer) error {
	if ub.mem != nil {
		return nil
	}

	mem := memory.NewConversationBuffer()

	turns, err := m.store.Turns(ctx, ub.userID, DefaultHistoryTurns)
	if err != nil {
		return fmt.Errorf("failed to load turns: %w", err)
	}

	for _, turn := range turns {
		if err := mem.ChatHistory.AddUserMessage(ctx, turn.UserMessage); err != nil {
			return fmt.Errorf("failed to add user message to memory: %w", err)
		}
		if err := mem.ChatHistory.AddAIMessage(ctx, turn.BotResponse); err != nil {
			return fmt.Errorf("failed to add AI message to memory: %w", err)
		}
	}

	ub.mem = mem
	m.logger.Debug("loaded user history", zap.String("user_id", ub.userID), zap.Int("turns", len(turns)))
	return nil
}

// Persist durably appends one exchange and mirrors it into the user's buffer
func (m *Manager) Persist(ctx context.Context, rec TurnRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("user id is required")
	}

	ub := m.acquire(rec.UserID)
	defer m.release(ub)
	ub.mu.Lock()
	defer ub.mu.Unlock()

	if err := m.loadLocked(ctx, ub); err != nil {
		return err
	}

	turn := Turn{
		ID:          uuid.NewString(),
		UserID:      rec.UserID,
		SessionID:   rec.SessionID,
		UserMessage: rec.UserMessage,
		BotResponse: rec.BotResponse,
		Language:    rec.Language,
		Intent:      rec.Intent,
		CreatedAt:   m.now().UTC(),
	}

	if err := m.store.AppendTurn(ctx, turn); err != nil {
		return fmt.Errorf("failed to save turn: %w", err)
	}

	if err := ub.mem.ChatHistory.AddUserMessage(ctx, rec.UserMessage); err != nil {
		return fmt.Errorf("failed to add user message to memory: %w", err)
	}
	if err := ub.mem.ChatHistory.AddAIMessage(ctx, rec.BotResponse); err != nil {
		return fmt.Errorf("failed to add AI message to memory: %w", err)
	}

	m.logger.Debug("saved turn", zap.String("user_id", rec.UserID), zap.String("session_id", rec.SessionID))
	return nil
}

// FormattedHistory returns the user's conversation as "User:/Assistant:" lines
func (m *Manager) FormattedHistory(ctx context.Context, userID string) (string, error) {
	ub := m.acquire(userID)
	defer m.release(ub)
	ub.mu.Lock()
	defer ub.mu.Unlock()

	if err := m.loadLocked(ctx, ub); err != nil {
		return "", err
	}

	messages, err := ub.mem.ChatHistory.Messages(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get messages: %w", err)
	}

	if len(messages) == 0 {
		return "No previous conversation.", nil
	}

	var b strings.Builder
	for _, msg := range messages {
		switch msg := msg.(type) {
		case llms.HumanChatMessage:
			fmt.Fprintf(&b, "User: %s\n", msg.Content)
		case llms.AIChatMessage:
			fmt.Fprintf(&b, "Assistant: %s\n", msg.Content)
		}
	}
	return b.String(), nil
}

// Turns returns raw turns from the store
func (m *Manager) Turns(ctx context.Context, userID string, limit int) ([]Turn, error) {
	return m.store.Turns(ctx, userID, limit)
}

// ClearUser clears a user from both cache and store
func (m *Manager) ClearUser(ctx context.Context, userID string) error {
	m.mu.Lock()
	if ub, ok := m.users[userID]; ok {
		m.lru.Remove(ub.elem)
		delete(m.users, userID)
	}
	m.mu.Unlock()

	if err := m.store.ClearUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to clear user: %w", err)
	}
	m.logger.Info("cleared user history", zap.String("user_id", userID))
	return nil
}

// CachedUsers returns the number of users with a loaded buffer
func (m *Manager) CachedUsers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// Ping checks the underlying store
func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}
