package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// Enum is a string-valued attribute server restricted to a fixed choice
// set.
type Enum struct{ *Server[string] }

// NewEnum wires an enum attribute at topic. v must be one of choices.
func NewEnum(sess pubsub.Session, topic string, choices []string, v string, meta Meta) (Enum, error) {
	c := codec.Enum{Choices: choices}
	if _, err := c.Encode(v); err != nil {
		return Enum{}, pzaerr.BadSettings("enum %s: initial value %q not in choices %v", topic, v, choices)
	}
	meta.Type = "enum"
	s, err := NewServer[string](sess, topic, c, v, meta)
	return Enum{s}, err
}
