package engine

// EventType discriminates the events a turn streams to the caller.
type EventType string

// Event types, in the order a typical turn produces them.
const (
	// EventStepUpdate carries one step's partial contribution.
	EventStepUpdate EventType = "step-update"
	// EventInputRequest names the required fields a turn still lacks.
	EventInputRequest EventType = "input-request"
	// EventError reports a non-fatal failure; the turn keeps going.
	EventError EventType = "error"
	// EventFinal ends a turn that reached a terminal step.
	EventFinal EventType = "final"
)

// Event is the wire-shaped structure pushed over the client channel.
// Events are produced per turn and never persisted.
type Event struct {
	Type    EventType      `json:"type"`
	Step    string         `json:"step,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Fields  []string       `json:"fields,omitempty"`
	Message string         `json:"message,omitempty"`
}

// EventSink consumes a turn's events in emission order. Sinks for
// disconnected sessions must drop events silently, never block or
// panic.
type EventSink func(Event)

// stepUpdate builds a step-update event.
func stepUpdate(step string, data map[string]any) Event {
	return Event{Type: EventStepUpdate, Step: step, Data: data}
}

// inputRequest builds an input-request event.
func inputRequest(step string, fields []string) Event {
	return Event{Type: EventInputRequest, Step: step, Fields: fields}
}

// errorEvent builds an error event.
func errorEvent(message string) Event {
	return Event{Type: EventError, Message: message}
}

// finalEvent builds a final event.
func finalEvent(step, message string, data map[string]any) Event {
	return Event{Type: EventFinal, Step: step, Message: message, Data: data}
}
