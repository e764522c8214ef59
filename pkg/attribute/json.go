package attribute

import (
	"encoding/json"

	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// JSON is an attribute server whose payload is an arbitrary JSON document.
type JSON struct{ *Server[json.RawMessage] }

// NewJSON wires a json attribute at topic with initial value v.
func NewJSON(sess pubsub.Session, topic string, v json.RawMessage, meta Meta) (JSON, error) {
	meta.Type = "json"
	s, err := NewServer[json.RawMessage](sess, topic, codec.JSON, v, meta)
	return JSON{s}, err
}

// Structure is the structure attribute kind: an opaque JSON object,
// sharing JSON's codec.
type Structure struct{ *Server[json.RawMessage] }

// NewStructure wires a structure attribute at topic with initial value v.
func NewStructure(sess pubsub.Session, topic string, v json.RawMessage, meta Meta) (Structure, error) {
	meta.Type = "structure"
	s, err := NewServer[json.RawMessage](sess, topic, codec.JSON, v, meta)
	return Structure{s}, err
}
