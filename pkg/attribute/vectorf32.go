package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// VectorF32 is a []float32-valued attribute server.
type VectorF32 struct{ *Server[[]float32] }

// NewVectorF32 wires a vector_f32 attribute at topic with initial value v.
func NewVectorF32(sess pubsub.Session, topic string, v []float32, meta Meta) (VectorF32, error) {
	meta.Type = "vector_f32"
	s, err := NewServer[[]float32](sess, topic, codec.VectorF32, v, meta)
	return VectorF32{s}, err
}
