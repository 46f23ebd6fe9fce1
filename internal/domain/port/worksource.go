package port

import "context"

// WorkItem is one acquired unit of work. Receipt is the source's opaque
// completion token (queue receipt handle, delivery tag); empty for sources
// that track state upstream.
type WorkItem struct {
	VideoID string
	Receipt string
}

// WorkSource hands out pending video ids one at a time.
type WorkSource interface {
	// Next returns the next pending item, or nil when there is no work.
	Next(ctx context.Context) (*WorkItem, error)
	// Complete removes the item from the source after full job completion.
	Complete(ctx context.Context, item *WorkItem) error
	// Release makes the item eligible for redelivery after a failure.
	Release(ctx context.Context, item *WorkItem) error
}
