// Package fsm wraps github.com/looplab/fsm with the Instance lifecycle
// state table: Booting -> Initializating -> (Running | Error), with Error
// looping back to Initializating after a reboot wait. Connecting,
// Warning, Cleaning, Stopping and Undefined exist as named states but no
// event in this implementation drives a transition into them: they are
// reserved, matching the no-op semantics recovered from
// original_source/src/instance.rs.
package fsm

import (
	"context"

	"github.com/looplab/fsm"
)

// State is one of the nine Instance lifecycle states.
type State string

const (
	Booting        State = "Booting"
	Initializating State = "Initializating"
	Running        State = "Running"
	Error          State = "Error"
	Connecting     State = "Connecting"
	Warning        State = "Warning"
	Cleaning       State = "Cleaning"
	Stopping       State = "Stopping"
	Undefined      State = "Undefined"
)

const (
	EventStart    = "start"
	EventMountOK  = "mount_ok"
	EventMountErr = "mount_err"
	EventFault    = "fault"
	EventReboot   = "reboot"
)

// Machine is the Instance lifecycle state machine. OnEnter is invoked
// synchronously every time the machine settles into a new state,
// including the initial Booting state reached by calling Boot.
type Machine struct {
	f *fsm.FSM
}

// New builds a Machine starting in Undefined. Call Boot to move it into
// Booting and begin the lifecycle.
func New(onEnter func(ctx context.Context, s State)) *Machine {
	m := &Machine{}
	m.f = fsm.NewFSM(
		string(Undefined),
		fsm.Events{
			{Name: "boot", Src: []string{string(Undefined)}, Dst: string(Booting)},
			{Name: EventStart, Src: []string{string(Booting)}, Dst: string(Initializating)},
			{Name: EventMountOK, Src: []string{string(Initializating)}, Dst: string(Running)},
			{Name: EventMountErr, Src: []string{string(Initializating)}, Dst: string(Error)},
			{Name: EventFault, Src: []string{string(Running), string(Initializating)}, Dst: string(Error)},
			{Name: EventReboot, Src: []string{string(Error)}, Dst: string(Initializating)},
		},
		fsm.Callbacks{
			"enter_state": func(ctx context.Context, e *fsm.Event) {
				if onEnter != nil {
					onEnter(ctx, State(e.Dst))
				}
			},
		},
	)
	return m
}

// Current returns the machine's current state.
func (m *Machine) Current() State { return State(m.f.Current()) }

// Boot moves the machine from Undefined into Booting, and Start
// immediately chains it into Initializating, matching the automatic
// Booting -> Initializating transition.
func (m *Machine) Boot(ctx context.Context) error {
	if err := m.f.Event(ctx, "boot"); err != nil {
		return err
	}
	return m.f.Event(ctx, EventStart)
}

// MountOK reports a successful mount, moving Initializating -> Running.
func (m *Machine) MountOK(ctx context.Context) error { return m.f.Event(ctx, EventMountOK) }

// MountErr reports a failed mount, moving Initializating -> Error.
func (m *Machine) MountErr(ctx context.Context) error { return m.f.Event(ctx, EventMountErr) }

// Fault reports a fatal task failure, moving Running or Initializating ->
// Error.
func (m *Machine) Fault(ctx context.Context) error { return m.f.Event(ctx, EventFault) }

// Reboot moves Error -> Initializating, to be called after
// wait_reboot_event completes.
func (m *Machine) Reboot(ctx context.Context) error { return m.f.Event(ctx, EventReboot) }
