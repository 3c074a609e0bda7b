package memory

import (
	"sync"
	"time"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// ChangeKind tells subscribers how the log changed
type ChangeKind int

const (
	ChangeAppended ChangeKind = iota + 1
	ChangeReplaced
)

// Change is delivered to log subscribers after every mutation
type Change struct {
	Kind    ChangeKind
	Message models.Message
}

// Log is the ordered in-session transcript. It owns id generation: ids come
// from a monotonic counter, never from the current length.
type Log struct {
	mu       sync.RWMutex
	nextID   int64
	messages []models.Message
	index    map[int64]int
	now      func() time.Time

	subMu   sync.RWMutex
	subs    map[int]func(Change)
	nextSub int
}

// NewLog creates an empty log. now may be nil.
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{
		index: make(map[int64]int),
		now:   now,
		subs:  make(map[int]func(Change)),
	}
}

// Append assigns the next id and a timestamp and appends the message
func (l *Log) Append(msg models.Message) models.Message {
	l.mu.Lock()
	l.nextID++
	msg.ID = l.nextID
	msg.Timestamp = l.now()
	l.index[msg.ID] = len(l.messages)
	l.messages = append(l.messages, msg)
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeAppended, Message: msg})
	return msg
}

// Replace swaps the message stored under id, keeping its id and position.
// It reports false and does nothing when id is unknown.
func (l *Log) Replace(id int64, msg models.Message) (models.Message, bool) {
	l.mu.Lock()
	pos, ok := l.index[id]
	if !ok {
		l.mu.Unlock()
		return models.Message{}, false
	}
	msg.ID = id
	msg.Timestamp = l.now()
	l.messages[pos] = msg
	l.mu.Unlock()

	l.notify(Change{Kind: ChangeReplaced, Message: msg})
	return msg, true
}

// Get returns the message stored under id
func (l *Log) Get(id int64) (models.Message, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	pos, ok := l.index[id]
	if !ok {
		return models.Message{}, false
	}
	return l.messages[pos], true
}

// Snapshot returns a copy of the transcript in order
func (l *Log) Snapshot() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}

// Subscribe registers fn for every later change. The returned func removes it.
// fn runs on the mutating goroutine after the log lock is released.
func (l *Log) Subscribe(fn func(Change)) func() {
	l.subMu.Lock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn
	l.subMu.Unlock()

	return func() {
		l.subMu.Lock()
		delete(l.subs, id)
		l.subMu.Unlock()
	}
}

func (l *Log) notify(c Change) {
	l.subMu.RLock()
	fns := make([]func(Change), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.subMu.RUnlock()

	for _, fn := range fns {
		fn(c)
	}
}
