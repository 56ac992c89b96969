package server

import (
	"encoding/json"
	"fmt"

	"github.com/rovista/listingflow/internal/content"
)

// Inbound message types.
const (
	// MessageStart opens or continues a conversation with free text.
	MessageStart = "start"
	// MessageProvideDetails supplies structured fields a previous turn
	// asked for.
	MessageProvideDetails = "provide-details"
)

// Details carries the structured listing fields of a provide-details
// message. Features is a comma-separated list.
type Details struct {
	Location      string `json:"location"`
	Price         string `json:"price"`
	Bedrooms      string `json:"bedrooms"`
	Features      string `json:"features"`
	ShouldPublish bool   `json:"shouldPublish"`
}

// inbound is the wire shape of a client message.
type inbound struct {
	Type      string   `json:"type"`
	UserInput string   `json:"userInput,omitempty"`
	Details   *Details `json:"details,omitempty"`
}

// decodeMessage turns a raw client frame into the partial update a turn
// starts from. Malformed frames and unknown types are errors; the caller
// reports them to the client without touching the engine.
func decodeMessage(data []byte) (content.Update, error) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return content.Update{}, fmt.Errorf("malformed message: %w", err)
	}

	switch msg.Type {
	case MessageStart:
		if msg.UserInput == "" {
			return content.Update{}, fmt.Errorf("start message requires userInput")
		}
		return content.StartUpdate(msg.UserInput), nil
	case MessageProvideDetails:
		if msg.Details == nil {
			return content.Update{}, fmt.Errorf("provide-details message requires details")
		}
		d := msg.Details
		return content.DetailsUpdate(d.Location, d.Price, d.Bedrooms, d.Features, d.ShouldPublish), nil
	case "":
		return content.Update{}, fmt.Errorf("message missing type")
	default:
		return content.Update{}, fmt.Errorf("unknown message type: %s", msg.Type)
	}
}
