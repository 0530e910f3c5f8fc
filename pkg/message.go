package pkg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"
)

var errMalformedMessage = errors.New("malformed message")

// Event is a server generated notification.
type Event struct {
	Event   EventType `json:"event"`
	UserID  string    `json:"user_id,omitempty"`
	Message string    `json:"message,omitempty"`
}

func playerJoined(userID string) *Event {
	return &Event{Event: EventTypePlayerJoined, UserID: userID}
}

func playerLeft(userID string) *Event {
	return &Event{Event: EventTypePlayerLeft, UserID: userID}
}

func gameStart(size int) *Event {
	return &Event{
		Event:   EventTypeGameStart,
		Message: fmt.Sprintf("%d people have gathered. Starting the game.", size),
	}
}

// decodeRelayMessage checks that a client payload is a JSON object and
// returns it untouched for forwarding.
func decodeRelayMessage(message []byte) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(message)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", errMalformedMessage)
	}

	// Relayed messages go out as text frames; a browser fails the whole
	// connection on a text frame that is not UTF-8.
	if !utf8.Valid(trimmed) {
		return nil, fmt.Errorf("%w: invalid UTF-8", errMalformedMessage)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedMessage, err)
	}

	return json.RawMessage(trimmed), nil
}
