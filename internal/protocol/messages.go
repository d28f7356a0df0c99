// Package protocol is the line-delimited JSON protocol spoken between the
// quote feed and the upstream provider. Each message is one JSON object
// terminated by a newline.
package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

const (
	MsgRequestQuote = "REQ_QUOTE"
	MsgRespQuote    = "RESP_QUOTE"
	MsgNotFound     = "NOT_FOUND"
	MsgError        = "ERROR"
)

type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type QuoteRequest struct {
	Symbol string `json:"symbol"`
}

type QuotePayload struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewMessage(msgType string, data any) (Message, error) {
	if data == nil {
		return Message{Type: msgType}, nil
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal %s payload: %w", msgType, err)
	}
	return Message{Type: msgType, Payload: payload}, nil
}

// Write encodes msg as a single line.
func Write(w io.Writer, msg Message) error {
	return json.NewEncoder(w).Encode(msg)
}

// Decode unmarshals the payload of msg into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return fmt.Errorf("%s message has no payload", m.Type)
	}
	return json.Unmarshal(m.Payload, v)
}
