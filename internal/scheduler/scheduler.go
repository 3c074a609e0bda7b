// Package scheduler runs delayed follow-up tasks bound to a context.
package scheduler

import (
	"context"
	"time"
)

// ID identifies a scheduled task; zero means nothing was scheduled
type ID int64

// Task runs when its delay elapses. ctx is the context it was scheduled with.
type Task func(ctx context.Context)

// Scheduler defers tasks. A task whose context is done before it fires never runs.
type Scheduler interface {
	Schedule(ctx context.Context, name string, delay time.Duration, task Task) ID
	Cancel(id ID) bool
	Pending() int
	Now() time.Time
	Stop()
}

// Info describes a pending task
type Info struct {
	ID          ID            `json:"id"`
	Name        string        `json:"name"`
	ScheduledAt time.Time     `json:"scheduled_at"`
	ExpiresAt   time.Time     `json:"expires_at"`
	Remaining   time.Duration `json:"remaining"`
}
