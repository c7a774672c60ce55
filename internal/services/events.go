package services

// Event types pushed over the run WebSocket channel. They carry no
// payload of record; subscribers refetch the affected read model.
const (
	EventRunUpdated          = "run_updated"
	EventBidUpdated          = "bid_updated"
	EventParticipantUpdated  = "participant_updated"
	EventShoppingItemUpdated = "shopping_item_updated"
)

// Publisher pushes a cache-invalidation event to everyone watching a
// run. Implemented by the ws hub; tests may leave it nil.
type Publisher interface {
	Publish(runID, eventType string)
}

func publish(p Publisher, runID, eventType string) {
	if p != nil {
		p.Publish(runID, eventType)
	}
}
