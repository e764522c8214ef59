// Package container implements the container tree: the Instance (root)
// and Class (sub-container) types every driver mounts its attributes
// under, plus the fluent AttributeBuilder used to mount attributes
// (classes are created directly by CreateClass).
package container

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/panduza/pza-runtime/pkg/log"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
	"github.com/panduza/pza-runtime/pkg/topic"
)

// Container is implemented by both Instance and Class: anything that can
// host sub-classes, attributes, a reset signal and monitored tasks.
type Container interface {
	Topic() string
	Logger() zerolog.Logger
	CreateClass(name string) *Class
	CreateAttribute() *AttributeBuilder
	ResetSignal() <-chan struct{}
	TriggerResetSignal()
	MonitorTask() chan<- taskmonitor.NamedTask
}

// Enableable is satisfied by anything whose active/inactive state can be
// flipped from above: typed attribute servers (via their promoted
// Server.SetEnabled) and nested Classes alike, so a Class's enablement
// change propagates uniformly down everything mounted under it.
type Enableable interface {
	SetEnabled(enabled bool)
}

// Core holds the state shared by every container in the tree: its full
// topic, the pub/sub session attributes are declared on, the notification
// sink, the task monitor tasks are submitted to, the reset-signal
// broadcaster, and the enabled-flag with its children list used to
// propagate a change_enablement call down to every attribute and
// sub-class mounted here.
type Core struct {
	instanceName string
	topicStr     string
	sess         pubsub.Session
	sink         *notification.Sink
	monitor      *taskmonitor.Monitor

	mu       sync.Mutex
	resetCh  chan struct{}
	enabled  bool
	children []Enableable
}

// NewCore creates the root Core for an instance named instanceName, rooted
// at topicStr.
func NewCore(instanceName, topicStr string, sess pubsub.Session, sink *notification.Sink, monitor *taskmonitor.Monitor) *Core {
	return &Core{
		instanceName: instanceName,
		topicStr:     topicStr,
		sess:         sess,
		sink:         sink,
		monitor:      monitor,
		resetCh:      make(chan struct{}),
		enabled:      true,
	}
}

// Topic returns this container's full topic.
func (c *Core) Topic() string { return c.topicStr }

// Logger returns a topic-scoped logger.
func (c *Core) Logger() zerolog.Logger { return log.WithTopic(c.topicStr) }

// MonitorTask returns the channel used to submit a new supervised task.
func (c *Core) MonitorTask() chan<- taskmonitor.NamedTask { return c.monitor.HandleSender() }

// ResetSignal returns a channel that is closed every time
// TriggerResetSignal is called. Callers must call ResetSignal again after
// it fires to observe the next reset (closed channels cannot be reused),
// mirroring a tokio Notify::notify_waiters broadcast rather than a
// single-receiver wake.
func (c *Core) ResetSignal() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resetCh
}

// TriggerResetSignal wakes every current ResetSignal waiter.
func (c *Core) TriggerResetSignal() {
	c.mu.Lock()
	old := c.resetCh
	c.resetCh = make(chan struct{})
	c.mu.Unlock()
	close(old)
}

// CreateClass creates a sub-container named name under this one, sends a
// Class notification, and attaches the new Class to this container's
// children list so a later SetEnabled call propagates into it.
func (c *Core) CreateClass(name string) *Class {
	child := &Core{
		instanceName: c.instanceName,
		topicStr:     topic.Join(c.topicStr, name),
		sess:         c.sess,
		sink:         c.sink,
		monitor:      c.monitor,
		resetCh:      make(chan struct{}),
		enabled:      true,
	}
	c.sink.Publish(notification.Class(c.instanceName, child.topicStr))
	class := &Class{Core: child}
	c.attachChild(class)
	return class
}

// CreateAttribute starts a fluent attribute build rooted at this
// container, defaulting to ReadWrite access until overridden by WithRO/
// WithWO.
func (c *Core) CreateAttribute() *AttributeBuilder {
	return &AttributeBuilder{core: c, access: ReadWrite}
}

// attachChild records e as a child of this container, so it is reached by
// a later SetEnabled propagation.
func (c *Core) attachChild(e Enableable) {
	c.mu.Lock()
	c.children = append(c.children, e)
	c.mu.Unlock()
}

// Enabled reports this container's current enabled flag.
func (c *Core) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// SetEnabled flips this container's enabled flag, emits an Enablement
// notification, and recursively propagates the new state to every
// attribute and sub-class attached under it.
func (c *Core) SetEnabled(enabled bool) {
	c.mu.Lock()
	c.enabled = enabled
	children := append([]Enableable{}, c.children...)
	c.mu.Unlock()

	c.sink.Publish(notification.Enablement(c.instanceName, c.topicStr, enabled))
	for _, child := range children {
		child.SetEnabled(enabled)
	}
}

// Class is a non-root container: a named grouping of attributes and
// sub-classes under an Instance.
type Class struct {
	*Core
}
