package client

import (
	"context"
	"io"
)

// Event is a typed invalidation message from the run channel. It never
// carries the data of record; receivers refetch.
type Event struct {
	Type string `json:"type"`
}

// Known event types.
const (
	EventRunUpdated          = "run_updated"
	EventBidUpdated          = "bid_updated"
	EventParticipantUpdated  = "participant_updated"
	EventShoppingItemUpdated = "shopping_item_updated"
)

// EventSource yields events from some transport (a WebSocket, a test
// fixture). Next blocks until an event arrives or the source closes,
// in which case it returns io.EOF.
type EventSource interface {
	Next(ctx context.Context) (Event, error)
}

// Invalidator is notified that a slice of the read model went stale.
// Implementations refetch; applying the same event twice, or events in
// a different order than the mutations happened, must converge to the
// same state (refetching makes that hold trivially).
type Invalidator interface {
	Invalidate(ctx context.Context, eventType string)
}

// InvalidatorFunc adapts a function to the Invalidator interface.
type InvalidatorFunc func(ctx context.Context, eventType string)

func (f InvalidatorFunc) Invalidate(ctx context.Context, eventType string) { f(ctx, eventType) }

// Subscribe pumps events from src to inv until the context ends or the
// source closes. Unknown event types are forwarded too: the contract is
// "refetch on anything", so a new server-side type degrades safely.
func Subscribe(ctx context.Context, src EventSource, inv Invalidator) error {
	for {
		ev, err := src.Next(ctx)
		if err != nil {
			if err == io.EOF || ctx.Err() != nil {
				return nil
			}
			return err
		}
		inv.Invalidate(ctx, ev.Type)
	}
}
