package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// Bytes is a raw byte-slice attribute server.
type Bytes struct{ *Server[[]byte] }

// NewBytes wires a bytes attribute at topic with initial value v.
func NewBytes(sess pubsub.Session, topic string, v []byte, meta Meta) (Bytes, error) {
	meta.Type = "bytes"
	s, err := NewServer[[]byte](sess, topic, codec.Bytes, v, meta)
	return Bytes{s}, err
}
