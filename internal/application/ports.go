package application

import (
	"context"

	"vn.io.arda/notification-pipeline/internal/domain"
)

// Router maps a consumed notification to a navigation outcome.
// The default implementation lives in internal/routing.
type Router interface {
	// Route dispatches the intent. The error is non-nil only when ctx was cancelled;
	// every other failure is reported through the result.
	Route(ctx context.Context, in domain.Intent, fromUserInteraction bool) (domain.RouteResult, error)
}

// Renderer presents a notification to the user. Rendering is best-effort: errors are
// logged and never fail ingestion.
type Renderer interface {
	Render(ctx context.Context, in domain.Intent) error
}

// PendingQueue holds intents whose routing was deferred until navigation is ready.
// It must be FIFO.
type PendingQueue interface {
	Push(ctx context.Context, in domain.Intent) error
	// PushFront puts ins back at the head in the given order, ahead of anything queued since.
	PushFront(ctx context.Context, ins ...domain.Intent) error
	// Pop removes the oldest intent. ok is false when the queue is empty.
	Pop(ctx context.Context) (in domain.Intent, ok bool, err error)
	Len(ctx context.Context) (int, error)
}

type noopRenderer struct{}

func (noopRenderer) Render(context.Context, domain.Intent) error { return nil }
