// Package protocol parses the foundry event stream envelope.
//
// The backend wraps every frame in a small JSON envelope; step frames carry
// the agent's full state as a JSON-encoded string inside the "data" field
// (double-encoded JSON, a quirk of the wire contract this package hides
// from the rest of the client).
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/foundrylabs/foundryctl/internal/campaign"
)

// Envelope event types.
const (
	EventStep  = "step"
	EventDone  = "done"
	EventError = "error"
)

type envelope struct {
	Event string `json:"event"`
	Node  string `json:"node,omitempty"`
	Data  string `json:"data,omitempty"`
}

// Event is one parsed inbound frame: *Step, *Done, or *StreamError.
type Event interface {
	eventType() string
}

// Step reports one agent's current full-state snapshot.
type Step struct {
	Node  string
	State *campaign.State
	Raw   json.RawMessage // decoded inner payload, for snapshot display
}

// Done signals successful completion of the run.
type Done struct{}

// StreamError carries a backend-reported error description.
type StreamError struct {
	Message string
}

func (*Step) eventType() string        { return EventStep }
func (*Done) eventType() string        { return EventDone }
func (*StreamError) eventType() string { return EventError }

// PayloadError reports a step whose inner data string was not valid JSON.
// The envelope itself was well-formed, so the session can log and move on.
type PayloadError struct {
	Node string
	Err  error
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Node, e.Err)
}

func (e *PayloadError) Unwrap() error { return e.Err }

// Parse converts one inbound text frame into a typed event. Malformed outer
// JSON or an unknown event tag is returned as a plain error; a step whose
// inner payload fails to decode is returned as *PayloadError.
func Parse(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}

	switch env.Event {
	case EventStep:
		inner := []byte(env.Data)
		var st campaign.State
		if err := json.Unmarshal(inner, &st); err != nil {
			return nil, &PayloadError{Node: env.Node, Err: err}
		}
		return &Step{Node: env.Node, State: &st, Raw: json.RawMessage(inner)}, nil
	case EventDone:
		return &Done{}, nil
	case EventError:
		return &StreamError{Message: env.Data}, nil
	}

	return nil, fmt.Errorf("unknown event %q", env.Event)
}

// StartRequest is the single client-to-server message.
type StartRequest struct {
	InitialPrompt string `json:"initial_prompt"`
}

// EncodeStart builds the initial-prompt frame.
func EncodeStart(prompt string) ([]byte, error) {
	data, err := json.Marshal(StartRequest{InitialPrompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("encode start request: %w", err)
	}
	return data, nil
}
