package protocol

import (
	"encoding/json"

	apperrors "github.com/discountcodes/discount-server-go/internal/errors"
)

// Envelope is the outer frame. Payload is the JSON encoding of the message as a string.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload *string     `json:"payload"`
}

type rawEnvelope struct {
	Type    string  `json:"type"`
	Payload *string `json:"payload"`
}

// Encode wraps msg in an envelope tagged with its type.
func Encode(msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	s := string(payload)
	return json.Marshal(Envelope{Type: msg.MessageType(), Payload: &s})
}

// Decode reads an envelope and its payload into the concrete Message selected by the tag.
// Failures are AppErrors: INVALID_JSON for undecodable input, INVALID_MESSAGE for a
// missing payload and UNKNOWN_MESSAGE_TYPE for an unrecognized tag.
func Decode(frame []byte) (Message, error) {
	var env rawEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, apperrors.InvalidJSON(err)
	}
	if env.Payload == nil {
		return nil, apperrors.InvalidMessage()
	}

	t, ok := ParseMessageType(env.Type)
	if !ok {
		return nil, apperrors.UnknownMessageType(env.Type)
	}

	switch t {
	case TypeGenerateRequest:
		return decodePayload[GenerateRequest](*env.Payload)
	case TypeGenerateResponse:
		return decodePayload[GenerateResponse](*env.Payload)
	case TypeUseCodeRequest:
		return decodePayload[UseCodeRequest](*env.Payload)
	case TypeUseCodeResponse:
		return decodePayload[UseCodeResponse](*env.Payload)
	case TypeErrorResponse:
		return decodePayload[ErrorResponse](*env.Payload)
	default:
		return nil, apperrors.UnknownMessageType(env.Type)
	}
}

// DecodeRequest is Decode restricted to the messages a server accepts.
// A response type arriving at the server is reported as an unknown message type.
func DecodeRequest(frame []byte) (Request, error) {
	msg, err := Decode(frame)
	if err != nil {
		return nil, err
	}
	req, ok := msg.(Request)
	if !ok {
		return nil, apperrors.UnknownMessageType(msg.MessageType().String())
	}
	return req, nil
}

// decodePayload leaves msg at its zero value for a "null" payload, so the
// request still reaches the service and is rejected there like any other
// out-of-range input.
func decodePayload[T Message](payload string) (Message, error) {
	var msg T
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return nil, apperrors.InvalidJSON(err)
	}
	return msg, nil
}
