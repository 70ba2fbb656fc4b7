package notify

import (
	"encoding/json"
	"time"
)

// ChangeEvent tells other active viewers of an owner's ledger that something
// changed and a refetch is in order. It is advisory only: the writer's own
// response remains the source of truth for the writing session.
type ChangeEvent struct {
	Owner     string    `json:"owner"`
	Entity    string    `json:"entity"` // account | category | transaction | transfer | import
	Op        string    `json:"op"`     // create | update | delete | commit
	IDs       []string  `json:"ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewChangeEvent builds a timestamped event for an owner-scoped write.
func NewChangeEvent(owner, entity, op string, ids ...string) ChangeEvent {
	return ChangeEvent{
		Owner:     owner,
		Entity:    entity,
		Op:        op,
		IDs:       ids,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (e ChangeEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// ChangeEventFromJSON parses an event from JSON bytes.
func ChangeEventFromJSON(data []byte) (ChangeEvent, error) {
	var e ChangeEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return ChangeEvent{}, err
	}
	return e, nil
}
