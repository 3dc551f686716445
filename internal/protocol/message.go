// Package protocol defines the frames exchanged over the discount WebSocket.
//
// Every frame is an envelope {"type": "...", "payload": "..."} whose payload is
// itself a JSON document encoded as a string. The type tag selects exactly one
// payload shape from a closed set.
package protocol

import (
	"fmt"
	"strings"

	"github.com/discountcodes/discount-server-go/internal/model"
)

// MessageType is the envelope discriminant.
type MessageType uint8

const (
	TypeGenerateRequest MessageType = iota
	TypeGenerateResponse
	TypeUseCodeRequest
	TypeUseCodeResponse
	TypeErrorResponse
)

var messageTypeNames = map[MessageType]string{
	TypeGenerateRequest:  "generateRequest",
	TypeGenerateResponse: "generateResponse",
	TypeUseCodeRequest:   "useCodeRequest",
	TypeUseCodeResponse:  "useCodeResponse",
	TypeErrorResponse:    "errorResponse",
}

func (t MessageType) String() string {
	if name, ok := messageTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("MessageType(%d)", uint8(t))
}

func (t MessageType) MarshalText() ([]byte, error) {
	name, ok := messageTypeNames[t]
	if !ok {
		return nil, fmt.Errorf("unknown message type %d", uint8(t))
	}
	return []byte(name), nil
}

// UnmarshalText accepts the camelCase names, ignoring case.
func (t *MessageType) UnmarshalText(text []byte) error {
	parsed, ok := ParseMessageType(string(text))
	if !ok {
		return fmt.Errorf("unknown message type %q", string(text))
	}
	*t = parsed
	return nil
}

// ParseMessageType resolves a wire name to its MessageType.
func ParseMessageType(name string) (MessageType, bool) {
	for t, n := range messageTypeNames {
		if strings.EqualFold(n, name) {
			return t, true
		}
	}
	return 0, false
}

// Message is one of the five payload shapes.
type Message interface {
	MessageType() MessageType
}

// Request is a Message a client may send to the server.
type Request interface {
	Message
	isRequest()
}

type GenerateRequest struct {
	Count  uint16 `json:"count"`
	Length uint8  `json:"length"`
}

type GenerateResponse struct {
	Result bool `json:"result"`
}

type UseCodeRequest struct {
	Code string `json:"code"`
}

type UseCodeResponse struct {
	Result model.UseCodeResult `json:"result"`
}

type ErrorResponse struct {
	Message string `json:"message"`
}

func (GenerateRequest) MessageType() MessageType  { return TypeGenerateRequest }
func (GenerateResponse) MessageType() MessageType { return TypeGenerateResponse }
func (UseCodeRequest) MessageType() MessageType   { return TypeUseCodeRequest }
func (UseCodeResponse) MessageType() MessageType  { return TypeUseCodeResponse }
func (ErrorResponse) MessageType() MessageType    { return TypeErrorResponse }

func (GenerateRequest) isRequest() {}
func (UseCodeRequest) isRequest()  {}
