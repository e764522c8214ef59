// Package instance implements the driver instance: the root Container of
// its attribute tree, running under an Instance FSM that calls into
// driver-supplied Actions to mount attributes and to wait out a fault
// before rebooting.
package instance

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/panduza/pza-runtime/pkg/container"
	"github.com/panduza/pza-runtime/pkg/fsm"
	"github.com/panduza/pza-runtime/pkg/metrics"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
)

// Actions is supplied by a Producer for one produced Instance. Mount
// builds the attribute tree (typically calling CreateClass/CreateAttribute
// on the Container) and starts whatever background tasks the driver
// needs, submitting them through c.MonitorTask(). WaitRebootEvent is
// called once the Instance enters Error and all monitored tasks have been
// cancelled; it returns once the Instance should attempt Mount again
// (immediately, after a backoff, or after an external reset signal).
type Actions interface {
	Mount(ctx context.Context, c container.Container) error
	WaitRebootEvent(ctx context.Context, c container.Container) error
}

const stateChannelCapacity = 8

// Instance is the root Container for one produced driver. It embeds
// *container.Core, so it satisfies container.Container directly.
type Instance struct {
	*container.Core

	name     string
	settings json.RawMessage
	actions  Actions
	sink     *notification.Sink
	monitor  *taskmonitor.Monitor
	machine  *fsm.Machine

	mu              sync.Mutex
	state           fsm.State
	sinceTransition time.Time

	stateCh chan fsm.State
	cancel  context.CancelFunc
}

// New constructs an Instance rooted at instanceTopic and immediately
// boots its FSM. The returned Instance is running: its context is a child
// of ctx and is cancelled by Close.
func New(ctx context.Context, sess pubsub.Session, name, instanceTopic string, actions Actions, settings json.RawMessage, sink *notification.Sink) *Instance {
	runCtx, cancel := context.WithCancel(ctx)
	monitor := taskmonitor.New(runCtx)
	core := container.NewCore(name, instanceTopic, sess, sink, monitor)

	inst := &Instance{
		Core:     core,
		name:     name,
		settings: settings,
		actions:  actions,
		sink:     sink,
		monitor:  monitor,
		state:    fsm.Undefined,
		stateCh:  make(chan fsm.State, stateChannelCapacity),
		cancel:   cancel,
	}
	inst.machine = fsm.New(inst.onEnterState)

	go inst.handleTaskMonitorEvents(runCtx)
	go inst.runFSM(runCtx)

	if err := inst.machine.Boot(runCtx); err != nil {
		inst.Logger().Error().Err(err).Msg("instance failed to boot")
	}

	return inst
}

// Name returns the instance's name (the production order's name, not its
// dref).
func (inst *Instance) Name() string { return inst.name }

// State returns the current FSM state.
func (inst *Instance) State() fsm.State {
	inst.mu.Lock()
	defer inst.mu.Unlock()
	return inst.state
}

// Settings returns the production order settings this instance was built
// with.
func (inst *Instance) Settings() json.RawMessage { return inst.settings }

// Close cancels every task owned by this instance and tears down its FSM
// loop. It does not block for in-flight tasks to finish; watch
// taskmonitor events if that's required.
func (inst *Instance) Close() {
	inst.cancel()
	inst.monitor.Close()
}

func (inst *Instance) onEnterState(_ context.Context, s fsm.State) {
	inst.mu.Lock()
	prev := inst.state
	now := time.Now()
	if !inst.sinceTransition.IsZero() {
		metrics.FSMTransitionDuration.Observe(now.Sub(inst.sinceTransition).Seconds())
	}
	inst.sinceTransition = now
	inst.state = s
	inst.mu.Unlock()

	if prev != fsm.Undefined {
		metrics.InstancesTotal.WithLabelValues(string(prev)).Dec()
	}
	metrics.InstancesTotal.WithLabelValues(string(s)).Inc()

	inst.sink.Publish(notification.State(inst.name, string(s)))

	select {
	case inst.stateCh <- s:
	default:
		inst.Logger().Warn().Str("state", string(s)).Msg("state channel saturated, FSM side effect may be delayed")
		inst.stateCh <- s
	}
}

func (inst *Instance) runFSM(ctx context.Context) {
	for {
		select {
		case s := <-inst.stateCh:
			inst.handleState(ctx, s)
		case <-ctx.Done():
			return
		}
	}
}

func (inst *Instance) handleState(ctx context.Context, s fsm.State) {
	switch s {
	case fsm.Initializating:
		go inst.tryMount(ctx)
	case fsm.Error:
		go inst.handleFault(ctx)
	case fsm.Booting, fsm.Running,
		fsm.Connecting, fsm.Warning, fsm.Cleaning, fsm.Stopping, fsm.Undefined:
		// Booting chains automatically into Initializating; Running needs
		// no driving; the remaining states are reserved no-ops.
	}
}

func (inst *Instance) tryMount(ctx context.Context) {
	err := inst.actions.Mount(ctx, inst)
	if err != nil {
		inst.Logger().Error().Err(err).Msg("mount failed")
		if ferr := inst.machine.MountErr(ctx); ferr != nil {
			inst.Logger().Error().Err(ferr).Msg("failed to transition to Error after mount failure")
		}
		return
	}
	if ferr := inst.machine.MountOK(ctx); ferr != nil {
		inst.Logger().Error().Err(ferr).Msg("failed to transition to Running after mount success")
	}
}

func (inst *Instance) handleFault(ctx context.Context) {
	inst.monitor.CancelAllMonitoredTasks(ctx)
	if err := inst.actions.WaitRebootEvent(ctx, inst); err != nil {
		inst.Logger().Warn().Err(err).Msg("wait_reboot_event returned an error, rebooting anyway")
	}
	if err := inst.machine.Reboot(ctx); err != nil {
		inst.Logger().Error().Err(err).Msg("failed to transition back to Initializating")
	}
}

// raiseAlert publishes an alert notification scoped to the given task or
// attribute name and records it in the alerts-raised counter. topic is the
// bare name, not a full pub/sub path; callers monitoring topics may prefix
// it themselves.
func (inst *Instance) raiseAlert(topic, level, message string) {
	metrics.AlertsRaisedTotal.WithLabelValues(topic, level).Inc()
	inst.sink.Publish(notification.Alert(inst.name, topic, level, message))
}

func (inst *Instance) handleTaskMonitorEvents(ctx context.Context) {
	for {
		select {
		case ev, ok := <-inst.monitor.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case taskmonitor.TaskStopWithPain, taskmonitor.TaskPanicOMG:
				inst.Logger().Error().Str("task", ev.Name).Err(ev.Err).Msg("monitored task died, faulting instance")
				inst.raiseAlert(ev.Name, "error", fmt.Sprintf("task %q died: %v", ev.Name, ev.Err))
				if err := inst.machine.Fault(ctx); err != nil {
					inst.Logger().Debug().Err(err).Msg("fault event ignored (not in Running/Initializating)")
				}
			case taskmonitor.TaskMonitorError:
				inst.Logger().Warn().Str("task", ev.Name).Err(ev.Err).Msg("task monitor error")
			default:
				inst.Logger().Trace().Str("task", ev.Name).Str("kind", string(ev.Kind)).Msg("task monitor event")
			}
		case <-ctx.Done():
			return
		}
	}
}
