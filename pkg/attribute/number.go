package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// Number is a float64-valued attribute server.
type Number struct{ *Server[float64] }

// NewNumber wires a number attribute at topic with initial value v.
func NewNumber(sess pubsub.Session, topic string, v float64, meta Meta) (Number, error) {
	meta.Type = "number"
	s, err := NewServer[float64](sess, topic, codec.Number, v, meta)
	return Number{s}, err
}
