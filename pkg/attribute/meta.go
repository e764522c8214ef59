package attribute

import (
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
)

// Access describes whether an attribute accepts inbound commands, is
// purely informational, or both. A ReadOnly attribute never subscribes
// to its "/cmd" topic; a WriteOnly attribute never declares a queryable
// on "/att".
type Access string

const (
	ReadOnly  Access = "ro"
	WriteOnly Access = "wo"
	ReadWrite Access = "rw"
)

// Meta carries the identity and delivery context every typed attribute
// constructor threads into NewServer, beyond its codec and initial
// value: who owns the attribute, which mode it was built with, where its
// alert/enablement notifications go, and which Task Monitor its
// cmd-ingress task registers with. The zero value is a sensible default
// for tests: Access defaults to ReadWrite, and a nil Sink/Monitor simply
// means alerts/enablement go nowhere and the cmd-ingress task runs
// unsupervised.
type Meta struct {
	InstanceName string
	Type         string
	Access       Access
	Sink         *notification.Sink
	Monitor      *taskmonitor.Monitor
}
