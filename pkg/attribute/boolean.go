package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// Boolean is a boolean-valued attribute server.
type Boolean struct{ *Server[bool] }

// NewBoolean wires a boolean attribute at topic with initial value v.
func NewBoolean(sess pubsub.Session, topic string, v bool, meta Meta) (Boolean, error) {
	meta.Type = "boolean"
	s, err := NewServer[bool](sess, topic, codec.Boolean, v, meta)
	return Boolean{s}, err
}
