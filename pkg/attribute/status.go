package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// Status is a {code, message} attribute server.
type Status struct{ *Server[codec.Status] }

// NewStatus wires a status attribute at topic with initial value v.
func NewStatus(sess pubsub.Session, topic string, v codec.Status, meta Meta) (Status, error) {
	meta.Type = "status"
	s, err := NewServer[codec.Status](sess, topic, codec.StatusCodec, v, meta)
	return Status{s}, err
}
