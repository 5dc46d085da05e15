package payment

import (
	"encoding/json"
	"errors"
	"strings"
)

// EventCheckoutCompleted is the event type emitted when a hosted checkout
// session finishes with a successful payment.
const EventCheckoutCompleted = "checkout.session.completed"

// Event is a webhook notification from the processor.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
	Data    struct {
		Object Session `json:"object"`
	} `json:"data"`
}

// ParseEvent decodes a verified webhook payload.
func ParseEvent(payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, err
	}
	if strings.TrimSpace(event.ID) == "" || strings.TrimSpace(event.Type) == "" {
		return Event{}, errors.New("event id and type are required")
	}
	return event, nil
}
