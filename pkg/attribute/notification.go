package attribute

import (
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

// Notification is a {level, message} attribute server, used for
// transient alert-like announcements separate from the runtime's own
// Notification tagged union in pkg/notification.
type Notification struct{ *Server[codec.Notification] }

// NewNotification wires a notification attribute at topic.
func NewNotification(sess pubsub.Session, topic string, v codec.Notification, meta Meta) (Notification, error) {
	meta.Type = "notification"
	s, err := NewServer[codec.Notification](sess, topic, codec.NotificationCodec, v, meta)
	return Notification{s}, err
}
