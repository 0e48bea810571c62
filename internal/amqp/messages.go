package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeAction names the mutation that produced a ChangeMessage.
type ChangeAction string

const (
	ActionCreated ChangeAction = "created"
	ActionUpdated ChangeAction = "updated"
	ActionDeleted ChangeAction = "deleted"
	ActionCleared ChangeAction = "cleared"
)

// Valid reports whether a is one of the known actions.
func (a ChangeAction) Valid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted, ActionCleared:
		return true
	}
	return false
}

// ChangeMessage announces that the expense collection changed. It carries
// only the id; consumers read the current state from the store.
type ChangeMessage struct {
	Action    ChangeAction `json:"action"`
	ID        int64        `json:"id,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

func NewChangeMessage(action ChangeAction, id int64) *ChangeMessage {
	return &ChangeMessage{
		Action:    action,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and checks a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.Valid() {
		return nil, fmt.Errorf("unknown change action %q", msg.Action)
	}
	return &msg, nil
}
