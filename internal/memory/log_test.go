package memory

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShivaTri14/nagar-seva-ai/internal/models"
)

func fixedClock() func() time.Time {
	t0 := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return t0 }
}

func TestLogAppendAssignsMonotonicIDs(t *testing.T) {
	log := NewLog(fixedClock())

	a := log.Append(models.Message{Text: "a", Sender: models.SenderBot})
	b := log.Append(models.Message{Text: "b", Sender: models.SenderUser})

	assert.Equal(t, int64(1), a.ID)
	assert.Equal(t, int64(2), b.ID)
	assert.False(t, a.Timestamp.IsZero())

	snap := log.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "a", snap[0].Text)
	assert.Equal(t, "b", snap[1].Text)
}

func TestLogReplaceKeepsPosition(t *testing.T) {
	log := NewLog(nil)
	log.Append(models.Message{Text: "hello"})
	pending := log.Append(models.Message{Text: "analyzing", Status: models.StatusPending})
	log.Append(models.Message{Text: "later"})

	got, ok := log.Replace(pending.ID, models.Message{Text: "done", Status: models.StatusSuccess, Sender: models.SenderBot})
	require.True(t, ok)
	assert.Equal(t, pending.ID, got.ID)

	snap := log.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "done", snap[1].Text)
	assert.Equal(t, models.StatusSuccess, snap[1].Status)
	assert.Equal(t, "later", snap[2].Text)
}

func TestLogReplaceUnknownIsNoop(t *testing.T) {
	log := NewLog(nil)
	log.Append(models.Message{Text: "only"})

	_, ok := log.Replace(42, models.Message{Text: "ghost"})
	assert.False(t, ok)
	assert.Equal(t, 1, log.Len())
	assert.Equal(t, "only", log.Snapshot()[0].Text)
}

func TestLogIDsNeverReuseAfterReplace(t *testing.T) {
	log := NewLog(nil)
	first := log.Append(models.Message{Text: "x"})
	log.Replace(first.ID, models.Message{Text: "y"})
	next := log.Append(models.Message{Text: "z"})

	assert.Greater(t, next.ID, first.ID)
}

func TestLogSnapshotIsACopy(t *testing.T) {
	log := NewLog(nil)
	log.Append(models.Message{Text: "original"})

	snap := log.Snapshot()
	snap[0].Text = "mutated"

	assert.Equal(t, "original", log.Snapshot()[0].Text)
}

func TestLogSubscribers(t *testing.T) {
	log := NewLog(nil)

	var changes []Change
	unsubscribe := log.Subscribe(func(c Change) { changes = append(changes, c) })

	m := log.Append(models.Message{Text: "one"})
	log.Replace(m.ID, models.Message{Text: "uno"})
	unsubscribe()
	log.Append(models.Message{Text: "two"})

	require.Len(t, changes, 2)
	assert.Equal(t, ChangeAppended, changes[0].Kind)
	assert.Equal(t, ChangeReplaced, changes[1].Kind)
	assert.Equal(t, "uno", changes[1].Message.Text)
}

func TestLogConcurrentAppendsStayUnique(t *testing.T) {
	log := NewLog(nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Append(models.Message{Text: "x"})
		}()
	}
	wg.Wait()

	seen := make(map[int64]bool)
	var prev int64
	for _, m := range log.Snapshot() {
		assert.False(t, seen[m.ID])
		assert.Greater(t, m.ID, prev)
		seen[m.ID] = true
		prev = m.ID
	}
	assert.Len(t, seen, 50)
}
