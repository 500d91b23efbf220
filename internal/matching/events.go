package matching

import (
	"time"

	"github.com/google/uuid"
)

// EventType distinguishes match lifecycle events
type EventType string

const (
	EventMatchCreated EventType = "match_created"
	EventMatchRevoked EventType = "match_revoked"
)

// Event is the payload pushed to the chat/notification collaborators when a
// match is created or revoked. Delivery beyond the channel boundary is the
// consumer's concern.
type Event struct {
	EventID    string    `json:"event_id"`
	Type       EventType `json:"type"`
	MatchID    int64     `json:"match_id"`
	UserAID    int64     `json:"user_a_id"`
	UserBID    int64     `json:"user_b_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Events is the engine's outbound match-event boundary. Publishing never
// blocks the like/block request path: when no consumer keeps up, events are
// dropped and counted.
type Events struct {
	ch chan Event
}

// NewEvents creates the event boundary with the given buffer size
func NewEvents(buffer int) *Events {
	return &Events{ch: make(chan Event, buffer)}
}

// Subscribe returns the consumer side of the boundary
func (e *Events) Subscribe() <-chan Event {
	return e.ch
}

// PublishMatchCreated emits a match_created event for the pair
func (e *Events) PublishMatchCreated(match *Match) {
	e.publish(Event{
		EventID:    uuid.NewString(),
		Type:       EventMatchCreated,
		MatchID:    match.ID,
		UserAID:    match.UserAID,
		UserBID:    match.UserBID,
		OccurredAt: match.MatchedAt,
	})
}

// PublishMatchRevoked emits a match_revoked event for the pair
func (e *Events) PublishMatchRevoked(match *Match) {
	e.publish(Event{
		EventID:    uuid.NewString(),
		Type:       EventMatchRevoked,
		MatchID:    match.ID,
		UserAID:    match.UserAID,
		UserBID:    match.UserBID,
		OccurredAt: time.Now().UTC(),
	})
}

func (e *Events) publish(evt Event) {
	if e == nil {
		return
	}
	select {
	case e.ch <- evt:
	default:
		RecordEventDropped()
	}
}
