package port

import (
	"context"
	"errors"
	"time"
)

// Task is a background job message: a stable type string plus opaque payload
// bytes. Payload encoding is up to callers.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes a Task. A non-nil error signals retry per adapter policy,
// so handlers must be idempotent.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption controls enqueue behavior; zero values mean "unspecified".
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before processing
	MaxRetry  int           // max retries for the task
	// UniqueTTL suppresses duplicate enqueues of the same task within the
	// window. The sweep relies on this to collapse concurrent instances to
	// one execution per interval.
	UniqueTTL time.Duration
}

// ErrDuplicate signals that an identical task is already queued inside its
// unique window. For periodic tasks this is the expected outcome on all but
// one instance.
var ErrDuplicate = errors.New("queue: duplicate task")

// Client enqueues tasks for background processing.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs background workers. Run blocks until the context is canceled.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
