package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// String is a string-valued attribute server.
type String struct{ *Server[string] }

// NewString wires a string attribute at topic with initial value v.
func NewString(sess pubsub.Session, topic string, v string, meta Meta) (String, error) {
	meta.Type = "string"
	s, err := NewServer[string](sess, topic, codec.String, v, meta)
	return String{s}, err
}
