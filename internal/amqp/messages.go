package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RecomputeMessage asks the worker to refresh one cached aggregate. It carries
// only the target kind and id; the worker reads everything else from the
// ledger.
type RecomputeMessage struct {
	MessageID string    `json:"message_id"`
	Target    string    `json:"target"`
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecomputeMessage creates a message with a fresh id.
func NewRecomputeMessage(target string, id int64) *RecomputeMessage {
	return &RecomputeMessage{
		MessageID: uuid.NewString(),
		Target:    target,
		ID:        id,
		Timestamp: time.Now(),
	}
}

// Validate rejects messages no handler could act on.
func (m *RecomputeMessage) Validate() error {
	if m.Target == "" {
		return fmt.Errorf("recompute message %s: missing target", m.MessageID)
	}
	if m.ID <= 0 {
		return fmt.Errorf("recompute message %s: invalid id %d", m.MessageID, m.ID)
	}
	return nil
}

// ToJSON converts the message to JSON bytes
func (m *RecomputeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecomputeMessageFromJSON decodes and validates a message body.
func RecomputeMessageFromJSON(data []byte) (*RecomputeMessage, error) {
	var msg RecomputeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
