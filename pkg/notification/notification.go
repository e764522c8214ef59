// Package notification defines the tagged-union event that flows out of
// the runtime on a single best-effort channel: state transitions, class
// creation, attribute creation/update, alerts and enablement changes.
package notification

import "encoding/json"

// Kind discriminates the Notification tagged union.
type Kind string

const (
	KindState      Kind = "state"
	KindClass      Kind = "class"
	KindAttribute  Kind = "attribute"
	KindAlert      Kind = "alert"
	KindEnablement Kind = "enablement"
)

// Notification is the single event type published on the runtime's
// notification channel.
type Notification struct {
	Kind     Kind            `json:"kind"`
	Instance string          `json:"instance"`
	Topic    string          `json:"topic,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

// State builds a state-transition notification.
func State(instance, state string) Notification {
	payload, _ := json.Marshal(struct {
		State string `json:"state"`
	}{State: state})
	return Notification{Kind: KindState, Instance: instance, Payload: payload}
}

// Class builds a class-creation notification.
func Class(instance, topic string) Notification {
	return Notification{Kind: KindClass, Instance: instance, Topic: topic}
}

// Attribute builds an attribute creation/update notification carrying the
// settings JSON object the attribute was built with.
func Attribute(instance, topic string, settings json.RawMessage) Notification {
	return Notification{Kind: KindAttribute, Instance: instance, Topic: topic, Payload: settings}
}

// Alert builds an alert notification.
func Alert(instance, topic, level, message string) Notification {
	payload, _ := json.Marshal(struct {
		Level   string `json:"level"`
		Message string `json:"message"`
	}{Level: level, Message: message})
	return Notification{Kind: KindAlert, Instance: instance, Topic: topic, Payload: payload}
}

// Enablement builds an enablement-change notification.
func Enablement(instance, topic string, enabled bool) Notification {
	payload, _ := json.Marshal(struct {
		Enabled bool `json:"enabled"`
	}{Enabled: enabled})
	return Notification{Kind: KindEnablement, Instance: instance, Topic: topic, Payload: payload}
}

// Capacity is the fixed size of the runtime's notification channel,
// matching original_source's NOTIFICATION_CHANNEL_SIZE constant.
const Capacity = 512

// Sink is a bounded, best-effort fan-in point for notifications: a full
// channel drops the notification and reports it to the onDropped callback
// given to NewSink rather than blocking the producer.
type Sink struct {
	ch      chan Notification
	dropped func(Notification)
}

// NewSink creates a Sink with the runtime's fixed capacity. onDropped, if
// non-nil, is invoked (synchronously, from the publishing goroutine) for
// every notification that could not be queued.
func NewSink(onDropped func(Notification)) *Sink {
	return &Sink{ch: make(chan Notification, Capacity), dropped: onDropped}
}

// Channel returns the receive side, for a consumer to range over.
func (s *Sink) Channel() <-chan Notification { return s.ch }

// Publish attempts to enqueue n, dropping it (and invoking the dropped
// callback) if the channel is saturated.
func (s *Sink) Publish(n Notification) {
	select {
	case s.ch <- n:
	default:
		if s.dropped != nil {
			s.dropped(n)
		}
	}
}

// Close closes the underlying channel. Callers must stop calling Publish
// before calling Close.
func (s *Sink) Close() { close(s.ch) }
