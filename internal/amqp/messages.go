package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"gastos/internal/storage"
)

// ChangeMessage announces a committed mutation. It carries only the
// identity of what changed; consumers refetch the data themselves.
type ChangeMessage struct {
	Entity    storage.Entity `json:"entity"`
	Op        storage.Op     `json:"op"`
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
}

func NewChangeMessage(c storage.Change) *ChangeMessage {
	ts := c.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ChangeMessage{Entity: c.Entity, Op: c.Op, ID: c.ID, Timestamp: ts}
}

// Change converts the message back into a storage change.
func (m *ChangeMessage) Change() storage.Change {
	return storage.Change{Entity: m.Entity, Op: m.Op, ID: m.ID, At: m.Timestamp}
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Entity == "" || msg.Op == "" {
		return nil, fmt.Errorf("incomplete change message")
	}
	return &msg, nil
}
