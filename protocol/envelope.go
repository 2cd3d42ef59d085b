package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Envelope is the frame carried in both directions over the socket.
type Envelope struct {
	Type string          `json:"type"`
	CID  string          `json:"cid,omitempty"`
	Data json.RawMessage `json:"data,omitempty"`
}

// NewCID returns a fresh correlation id for an intent that wants its
// outcome attributed.
func NewCID() string { return uuid.NewString() }

// EncodeIntent wraps an intent in an envelope and marshals it. cid may be
// empty for plain fire-and-forget intents.
func EncodeIntent(in Intent, cid string) ([]byte, error) {
	data, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", in.IntentType(), err)
	}
	return json.Marshal(Envelope{Type: in.IntentType(), CID: cid, Data: data})
}
