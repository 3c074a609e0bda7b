package memory

import (
	"context"
	"time"
)

// Turn is one persisted exchange: what the user sent and what the bot answered
type Turn struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	SessionID   string    `json:"session_id" bson:"session_id"`
	UserMessage string    `json:"user_message" bson:"user_message"`
	BotResponse string    `json:"bot_response" bson:"bot_response"`
	Language    string    `json:"language" bson:"language"`
	Intent      string    `json:"intent" bson:"intent"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// Store defines the interface for durable conversation storage
// This allows us to swap between Redis, PostgreSQL, SQLite, MongoDB, in-memory
type Store interface {
	// AppendTurn durably appends a turn for the turn's user
	AppendTurn(ctx context.Context, turn Turn) error

	// Turns returns the user's turns oldest first; limit <= 0 means all
	Turns(ctx context.Context, userID string, limit int) ([]Turn, error)

	// ClearUser removes every turn stored for a user
	ClearUser(ctx context.Context, userID string) error

	// Ping checks the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}

// lastN trims turns to the newest limit entries
func lastN(turns []Turn, limit int) []Turn {
	if limit > 0 && len(turns) > limit {
		return turns[len(turns)-limit:]
	}
	return turns
}
