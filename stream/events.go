package stream

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

// Event type discriminators carried in the "type" field of every payload.
const (
	EventOrderStatus  = "order:status"
	EventChatMessage  = "chat:message"
	EventSessionEnded = "session:ended"
	EventConnected    = "connected"
	EventChatRead     = "chat:read"
)

type OrderStatusEvent struct {
	OrderID uint   `json:"orderId"`
	Status  string `json:"status"`
}

type ChatMessageEvent struct {
	SessionID   uint   `json:"sessionId,omitempty"`
	MessageID   uint   `json:"messageId,omitempty"`
	Sender      string `json:"sender"`
	Text        string `json:"text,omitempty"`
	MessageType string `json:"messageType"`
	ImageURL    string `json:"imageUrl,omitempty"`
}

type SessionEndedEvent struct {
	SessionID uint `json:"sessionId,omitempty"`
}

type ConnectedEvent struct {
	Timestamp int64 `json:"timestamp"`
}

// ChatReadEvent propagates a read-cursor move to other devices. The cursor,
// not the unread count, is the synchronized value; every device recomputes
// its own count.
type ChatReadEvent struct {
	SessionID         uint   `json:"sessionId"`
	Viewer            string `json:"viewer,omitempty"`
	LastReadMessageID uint   `json:"lastReadMessageId"`
}

// ErrUnknownType marks a payload whose type discriminator is not
// recognized. Unknown types are accepted and ignored, never treated as
// errors, so newer servers can add event kinds.
var ErrUnknownType = errors.New("stream: unknown event type")

const envelopeSchemaJSON = `{
	"type": "object",
	"required": ["type"],
	"properties": {"type": {"type": "string", "minLength": 1}}
}`

var eventSchemaJSON = map[string]string{
	EventOrderStatus: `{
		"type": "object",
		"required": ["type", "orderId", "status"],
		"properties": {
			"orderId": {"type": "integer", "minimum": 1},
			"status": {"type": "string", "minLength": 1}
		}
	}`,
	EventChatMessage: `{
		"type": "object",
		"required": ["type", "sender", "messageType"],
		"properties": {
			"sessionId": {"type": "integer"},
			"messageId": {"type": "integer"},
			"sender": {"type": "string", "minLength": 1},
			"text": {"type": "string"},
			"messageType": {"type": "string", "minLength": 1},
			"imageUrl": {"type": "string"}
		}
	}`,
	EventSessionEnded: `{
		"type": "object",
		"required": ["type"],
		"properties": {"sessionId": {"type": "integer"}}
	}`,
	EventConnected: `{
		"type": "object",
		"required": ["type", "timestamp"],
		"properties": {"timestamp": {"type": "integer"}}
	}`,
	EventChatRead: `{
		"type": "object",
		"required": ["type", "sessionId", "lastReadMessageId"],
		"properties": {
			"sessionId": {"type": "integer", "minimum": 1},
			"viewer": {"type": "string"},
			"lastReadMessageId": {"type": "integer"}
		}
	}`,
}

var (
	envelopeSchema *gojsonschema.Schema
	eventSchemas   map[string]*gojsonschema.Schema
)

func init() {
	var err error
	envelopeSchema, err = gojsonschema.NewSchema(gojsonschema.NewStringLoader(envelopeSchemaJSON))
	if err != nil {
		panic(err)
	}
	eventSchemas = make(map[string]*gojsonschema.Schema, len(eventSchemaJSON))
	for typ, raw := range eventSchemaJSON {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
		if err != nil {
			panic(err)
		}
		eventSchemas[typ] = schema
	}
}

// Decode validates one raw payload against its schema and returns the typed
// event. Invalid payloads are rejected here, at the edge, so handlers never
// probe fields defensively.
func Decode(payload []byte) (interface{}, error) {
	doc := gojsonschema.NewBytesLoader(payload)

	result, err := envelopeSchema.Validate(doc)
	if err != nil {
		return nil, errors.Wrap(err, "stream: malformed payload")
	}
	if !result.Valid() {
		return nil, errors.Errorf("stream: payload missing type discriminator: %v", result.Errors())
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return nil, errors.Wrap(err, "stream: malformed payload")
	}

	schema, ok := eventSchemas[head.Type]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownType, "%q", head.Type)
	}
	result, err = schema.Validate(doc)
	if err != nil {
		return nil, errors.Wrapf(err, "stream: invalid %s payload", head.Type)
	}
	if !result.Valid() {
		return nil, errors.Errorf("stream: invalid %s payload: %v", head.Type, result.Errors())
	}

	switch head.Type {
	case EventOrderStatus:
		var ev OrderStatusEvent
		err = json.Unmarshal(payload, &ev)
		return ev, err
	case EventChatMessage:
		var ev ChatMessageEvent
		err = json.Unmarshal(payload, &ev)
		return ev, err
	case EventSessionEnded:
		var ev SessionEndedEvent
		err = json.Unmarshal(payload, &ev)
		return ev, err
	case EventConnected:
		var ev ConnectedEvent
		err = json.Unmarshal(payload, &ev)
		return ev, err
	case EventChatRead:
		var ev ChatReadEvent
		err = json.Unmarshal(payload, &ev)
		return ev, err
	}
	return nil, errors.Wrapf(ErrUnknownType, "%q", head.Type)
}
