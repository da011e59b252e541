package events

import (
	"encoding/json"
	"fmt"
)

// knownKinds is consulted on decode; anything else maps to KindUnknown so
// that future producers can add kinds without breaking old consumers.
var knownKinds = map[Kind]bool{
	KindStart:     true,
	KindProgress:  true,
	KindThinking:  true,
	KindStreaming: true,
	KindError:     true,
	KindComplete:  true,
}

// MarshalWire encodes the event payload as pushed on the wire.
func MarshalWire(e Event) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", e.Kind, err)
	}
	return b, nil
}

// DecodeWire parses a wire payload. Unknown kinds decode successfully with
// Kind set to KindUnknown; malformed JSON is an error.
func DecodeWire(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if !knownKinds[e.Kind] {
		e.Kind = KindUnknown
	}
	if e.Status == StatusCompleted {
		e.Status = StatusSuccess
	}
	return e, nil
}
