package s3i

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MessageType discriminates the concrete shape of an S3I message body.
type MessageType string

const (
	MessageTypeGetValueRequest MessageType = "getValueRequest"
	MessageTypeGetValueReply   MessageType = "getValueReply"
)

// ImageValueType is the sentinel a getValueReply's value map carries when it
// holds a base64-encoded camera image.
const ImageValueType = "b64 jpeg"

// Envelope is the parsed form of one inbound broker payload: the common
// header fields plus exactly one populated variant, selected by Type.
type Envelope struct {
	Sender     string
	Identifier string
	Receivers  []string
	Type       MessageType

	Request *GetValueRequest
	Reply   *GetValueReply
}

// GetValueRequest asks a thing for the value at an attribute path.
type GetValueRequest struct {
	ReplyToEndpoint string `json:"replyToEndpoint"`
	AttributePath   string `json:"attributePath"`
}

// GetValueReply answers a GetValueRequest with a free-form value map.
type GetValueReply struct {
	ReplyingToMessage string         `json:"replyingToMessage"`
	Value             map[string]any `json:"value"`
}

// rawEnvelope carries the fields shared by every message type plus the
// variant-specific remainder, decoded in a second pass.
type rawEnvelope struct {
	Sender      string   `json:"sender"`
	Identifier  string   `json:"identifier"`
	Receivers   []string `json:"receivers"`
	MessageType string   `json:"messageType"`
}

// ParseEnvelope decodes and validates one broker payload. Unknown or missing
// discriminators and missing required fields are MalformedMessageErrors.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var head rawEnvelope
	if err := json.Unmarshal(raw, &head); err != nil {
		return Envelope{}, &MalformedMessageError{Message: "payload is not valid JSON", Err: err}
	}
	if head.MessageType == "" {
		return Envelope{}, &MalformedMessageError{Message: "messageType field is missing"}
	}
	if head.Sender == "" || head.Identifier == "" || len(head.Receivers) == 0 {
		return Envelope{}, &MalformedMessageError{
			Message: fmt.Sprintf("message %q is missing sender, identifier or receivers", head.Identifier),
		}
	}

	env := Envelope{
		Sender:     head.Sender,
		Identifier: head.Identifier,
		Receivers:  head.Receivers,
		Type:       MessageType(head.MessageType),
	}

	switch env.Type {
	case MessageTypeGetValueRequest:
		var body GetValueRequest
		if err := json.Unmarshal(raw, &body); err != nil {
			return Envelope{}, &MalformedMessageError{Message: "invalid getValueRequest body", Err: err}
		}
		if body.ReplyToEndpoint == "" || body.AttributePath == "" {
			return Envelope{}, &MalformedMessageError{Message: "getValueRequest is missing replyToEndpoint or attributePath"}
		}
		env.Request = &body
	case MessageTypeGetValueReply:
		var body GetValueReply
		if err := json.Unmarshal(raw, &body); err != nil {
			return Envelope{}, &MalformedMessageError{Message: "invalid getValueReply body", Err: err}
		}
		if body.ReplyingToMessage == "" || body.Value == nil {
			return Envelope{}, &MalformedMessageError{Message: "getValueReply is missing replyingToMessage or value"}
		}
		env.Reply = &body
	default:
		return Envelope{}, &MalformedMessageError{
			Message: fmt.Sprintf("unknown messageType %q", head.MessageType),
		}
	}

	return env, nil
}

// IsImageMessage reports whether the envelope is a getValueReply whose value
// map announces a base64 jpeg payload. It only classifies; the image fields
// are validated separately once the classification matches.
func IsImageMessage(env Envelope) bool {
	if env.Type != MessageTypeGetValueReply || env.Reply == nil {
		return false
	}
	t, ok := env.Reply.Value["type"].(string)
	return ok && t == ImageValueType
}

// NewMessageIdentifier generates a globally unique message identifier in the
// platform's s3i:<uuid> format.
func NewMessageIdentifier() string {
	return fmt.Sprintf("s3i:%s", uuid.NewString())
}

// NewGetValueRequestMessage builds an outbound getValueRequest payload with
// a fresh identifier, ready for Broker.Send.
func NewGetValueRequestMessage(sender string, receivers []string, replyToEndpoint, attributePath string) map[string]any {
	return map[string]any{
		"sender":          sender,
		"identifier":      NewMessageIdentifier(),
		"receivers":       receivers,
		"messageType":     string(MessageTypeGetValueRequest),
		"replyToEndpoint": replyToEndpoint,
		"attributePath":   attributePath,
	}
}
