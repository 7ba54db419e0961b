package watch

import "context"

// Op is the kind of change observed on a path.
type Op string

// Ops reported by event sources.
const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Event is a change to a path under the watched directory.
type Event struct {
	Path string
	Op   Op
}

// EventSource reports changes in a directory.
type EventSource interface {
	// Watch starts reporting events. The returned channel is closed once ctx
	// is done and the source has released its resources.
	Watch(ctx context.Context) (<-chan Event, error)
}
