package conversation

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

// DefaultEventBuffer is the per-subscriber channel capacity
const DefaultEventBuffer = 64

// emitter fans session events out to subscribers without ever blocking the
// session. A full subscriber loses the event.
type emitter struct {
	sessionID string
	now       func() time.Time
	logger    *zap.Logger

	mu     sync.Mutex
	subs   map[int]chan models.Event
	next   int
	closed bool
}

func newEmitter(sessionID string, now func() time.Time, logger *zap.Logger) *emitter {
	return &emitter{
		sessionID: sessionID,
		now:       now,
		logger:    logger,
		subs:      make(map[int]chan models.Event),
	}
}

func (e *emitter) subscribe(buffer int) (<-chan models.Event, func()) {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	ch := make(chan models.Event, buffer)

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		close(ch)
		return ch, func() {}
	}
	id := e.next
	e.next++
	e.subs[id] = ch

	return ch, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if sub, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(sub)
		}
	}
}

func (e *emitter) emit(ev models.Event) {
	ev.SessionID = e.sessionID
	if ev.At.IsZero() {
		ev.At = e.now()
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- ev:
		default:
			e.logger.Warn("subscriber too slow, dropping event",
				zap.Int("subscriber", id),
				zap.String("type", string(ev.Type)))
		}
	}
}

func (e *emitter) close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for id, ch := range e.subs {
		close(ch)
		delete(e.subs, id)
	}
}
