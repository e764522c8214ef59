package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// SI is a numeric attribute server with a physical unit, a [Min, Max]
// range guard and a fixed decimal count, recovered from
// original_source's finish_as_si.
type SI struct{ *Server[float64] }

// NewSI wires an si attribute at topic. v must be within [min, max].
func NewSI(sess pubsub.Session, topic, unit string, min, max float64, decimals int, v float64, meta Meta) (SI, error) {
	c := codec.SI{Unit: unit, Min: min, Max: max, Decimals: decimals}
	if _, err := c.Encode(v); err != nil {
		return SI{}, pzaerr.BadSettings("si %s: initial value %v outside [%v, %v]", topic, v, min, max)
	}
	meta.Type = "si"
	s, err := NewServer[float64](sess, topic, c, v, meta)
	return SI{s}, err
}
