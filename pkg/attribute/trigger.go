package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// Trigger is a fire-and-forget attribute server whose payload carries no
// data.
type Trigger struct{ *Server[codec.Trigger] }

// NewTrigger wires a trigger attribute at topic.
func NewTrigger(sess pubsub.Session, topic string, meta Meta) (Trigger, error) {
	meta.Type = "trigger"
	s, err := NewServer[codec.Trigger](sess, topic, codec.TriggerCodec, codec.Trigger{}, meta)
	return Trigger{s}, err
}

// Fire publishes an empty trigger payload.
func (t Trigger) Fire() error { return t.Set(codec.Trigger{}) }
