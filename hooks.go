package entwine

import (
	"context"
	"errors"
)

// Event lifecycle event name
type Event string

const (
	EventCreating  Event = "creating"
	EventCreated   Event = "created"
	EventUpdating  Event = "updating"
	EventUpdated   Event = "updated"
	EventSaving    Event = "saving"
	EventSaved     Event = "saved"
	EventDeleting  Event = "deleting"
	EventDeleted   Event = "deleted"
	EventRestoring Event = "restoring"
	EventRestored  Event = "restored"
)

// Hook runs on a lifecycle event. Pre-action hooks (creating, updating,
// saving, deleting, restoring) may cancel the operation by returning Abort();
// post-action hooks observe only.
type Hook func(ctx context.Context, e *Entity) error

// Observer aggregates hooks for every lifecycle event of one type; nil
// fields are skipped.
type Observer struct {
	Creating, Created   Hook
	Updating, Updated   Hook
	Saving, Saved       Hook
	Deleting, Deleted   Hook
	Restoring, Restored Hook
}

// fireHooks run all hooks for one event in registration order. An Abort()
// from any hook stops the chain and reports proceed=false.
func (e *Entity) fireHooks(ctx context.Context, event Event) (proceed bool, err error) {
	for _, hook := range e.schema.hooks[event] {
		if err := hook(ctx, e); err != nil {
			if errors.Is(err, errAborted) {
				return false, nil
			}
			return false, err
		}
	}
	return true, nil
}
