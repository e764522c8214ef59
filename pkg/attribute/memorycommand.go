package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// MemoryCommand is an attribute server for raw memory read/write commands.
type MemoryCommand struct{ *Server[codec.MemoryCommand] }

// NewMemoryCommand wires a memory_command attribute at topic.
func NewMemoryCommand(sess pubsub.Session, topic string, v codec.MemoryCommand, meta Meta) (MemoryCommand, error) {
	meta.Type = "memory_command"
	s, err := NewServer[codec.MemoryCommand](sess, topic, codec.MemoryCommandCodec, v, meta)
	return MemoryCommand{s}, err
}
