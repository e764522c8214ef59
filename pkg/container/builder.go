package container

import (
	"encoding/json"

	"github.com/panduza/pza-runtime/pkg/attribute"
	"github.com/panduza/pza-runtime/pkg/codec"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/topic"
)

// Access describes whether an attribute accepts inbound commands, is
// purely informational, or both. Aliased onto attribute.Access (rather
// than redefined here) since pkg/attribute.NewServer is the package that
// actually has to act on it — container only threads the caller's choice
// through.
type Access = attribute.Access

const (
	ReadOnly  = attribute.ReadOnly
	WriteOnly = attribute.WriteOnly
	ReadWrite = attribute.ReadWrite
)

// AttributeBuilder is the fluent entry point for mounting a new attribute
// under a Container. A terminal Finish-As verb consumes the builder.
type AttributeBuilder struct {
	core   *Core
	name   string
	access Access
	info   string
	typ    string
}

// WithTopic sets the attribute's leaf name (the topic segment under the
// parent container).
func (b *AttributeBuilder) WithTopic(name string) *AttributeBuilder {
	b.name = name
	return b
}

// WithInfo attaches a human-readable description surfaced in the
// attribute's creation notification.
func (b *AttributeBuilder) WithInfo(info string) *AttributeBuilder {
	b.info = info
	return b
}

// WithRO marks the attribute read-only: it never subscribes to its /cmd
// topic, and inbound commands on it are structurally impossible.
func (b *AttributeBuilder) WithRO() *AttributeBuilder { b.access = ReadOnly; return b }

// WithWO marks the attribute write-only.
func (b *AttributeBuilder) WithWO() *AttributeBuilder { b.access = WriteOnly; return b }

// WithRW marks the attribute read-write (the default).
func (b *AttributeBuilder) WithRW() *AttributeBuilder { b.access = ReadWrite; return b }

func (b *AttributeBuilder) topic() string {
	return topic.Join(b.core.topicStr, b.name)
}

// meta builds the identity and delivery context passed into every
// attribute.NewXxx constructor: the access mode NewServer must honor, and
// where the server's alert/enablement notifications and cmd-ingress task
// go. Type is filled in by the specific attribute.NewXxx constructor
// called afterwards.
func (b *AttributeBuilder) meta() attribute.Meta {
	return attribute.Meta{
		InstanceName: b.core.instanceName,
		Access:       b.access,
		Sink:         b.core.sink,
		Monitor:      b.core.monitor,
	}
}

// attach records a successfully constructed attribute, setting its type
// string and sending its creation notification, then attaching it to the
// parent Class's children list so a later change_enablement on the
// parent propagates down to it.
func (b *AttributeBuilder) attach(typ string, e Enableable, settings map[string]any) {
	b.typ = typ
	if settings == nil {
		settings = map[string]any{}
	}
	settings["type"] = b.typ
	settings["mode"] = string(b.access)
	if b.info != "" {
		settings["info"] = b.info
	}
	payload, _ := json.Marshal(settings)
	b.core.sink.Publish(notification.Attribute(b.core.instanceName, b.topic(), payload))
	b.core.attachChild(e)
}

// FinishAsBoolean mounts a boolean attribute.
func (b *AttributeBuilder) FinishAsBoolean(initial bool) (attribute.Boolean, error) {
	a, err := attribute.NewBoolean(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("boolean", a, nil)
	}
	return a, err
}

// FinishAsNumber mounts a number attribute.
func (b *AttributeBuilder) FinishAsNumber(initial float64) (attribute.Number, error) {
	a, err := attribute.NewNumber(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("number", a, nil)
	}
	return a, err
}

// FinishAsString mounts a string attribute.
func (b *AttributeBuilder) FinishAsString(initial string) (attribute.String, error) {
	a, err := attribute.NewString(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("string", a, nil)
	}
	return a, err
}

// FinishAsBytes mounts a bytes attribute.
func (b *AttributeBuilder) FinishAsBytes(initial []byte) (attribute.Bytes, error) {
	a, err := attribute.NewBytes(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("bytes", a, nil)
	}
	return a, err
}

// FinishAsTrigger mounts a trigger attribute.
func (b *AttributeBuilder) FinishAsTrigger() (attribute.Trigger, error) {
	a, err := attribute.NewTrigger(b.core.sess, b.topic(), b.meta())
	if err == nil {
		b.attach("trigger", a, nil)
	}
	return a, err
}

// FinishAsJSON mounts a json attribute.
func (b *AttributeBuilder) FinishAsJSON(initial json.RawMessage) (attribute.JSON, error) {
	a, err := attribute.NewJSON(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("json", a, nil)
	}
	return a, err
}

// FinishAsStructure mounts a structure attribute.
func (b *AttributeBuilder) FinishAsStructure(initial json.RawMessage) (attribute.Structure, error) {
	a, err := attribute.NewStructure(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("structure", a, nil)
	}
	return a, err
}

// FinishAsStatus mounts a status attribute.
func (b *AttributeBuilder) FinishAsStatus(initial codec.Status) (attribute.Status, error) {
	a, err := attribute.NewStatus(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("status", a, nil)
	}
	return a, err
}

// FinishAsNotification mounts a notification attribute.
func (b *AttributeBuilder) FinishAsNotification(initial codec.Notification) (attribute.Notification, error) {
	a, err := attribute.NewNotification(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("notification", a, nil)
	}
	return a, err
}

// FinishAsVectorF32 mounts a vector_f32 attribute.
func (b *AttributeBuilder) FinishAsVectorF32(initial []float32) (attribute.VectorF32, error) {
	a, err := attribute.NewVectorF32(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("vector_f32", a, nil)
	}
	return a, err
}

// FinishAsMemoryCommand mounts a memory_command attribute.
func (b *AttributeBuilder) FinishAsMemoryCommand(initial codec.MemoryCommand) (attribute.MemoryCommand, error) {
	a, err := attribute.NewMemoryCommand(b.core.sess, b.topic(), initial, b.meta())
	if err == nil {
		b.attach("memory_command", a, nil)
	}
	return a, err
}

// FinishAsEnum mounts an enum attribute restricted to choices.
func (b *AttributeBuilder) FinishAsEnum(choices []string, initial string) (attribute.Enum, error) {
	a, err := attribute.NewEnum(b.core.sess, b.topic(), choices, initial, b.meta())
	if err == nil {
		b.attach("enum", a, map[string]any{"choices": choices})
	}
	return a, err
}

// FinishAsSI mounts an si attribute with a physical unit and range.
func (b *AttributeBuilder) FinishAsSI(unit string, min, max float64, decimals int, initial float64) (attribute.SI, error) {
	a, err := attribute.NewSI(b.core.sess, b.topic(), unit, min, max, decimals, initial, b.meta())
	if err == nil {
		b.attach("si", a, map[string]any{"unit": unit, "min": min, "max": max, "decimals": decimals})
	}
	return a, err
}
