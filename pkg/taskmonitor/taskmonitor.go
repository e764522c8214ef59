// Package taskmonitor supervises the set of concurrent tasks belonging to
// one scope (typically one Instance) and reports their lifecycle as a
// typed event stream, so a supervisor can react to a crashed task without
// polling goroutine state directly.
package taskmonitor

import (
	"context"
	"fmt"
	"sync"

	"github.com/panduza/pza-runtime/pkg/metrics"
)

// EventKind identifies one kind of task lifecycle event.
type EventKind string

const (
	TaskCreated      EventKind = "task_created"
	TaskStopProperly EventKind = "task_stop_properly"
	TaskStopWithPain EventKind = "task_stop_with_pain"
	TaskPanicOMG     EventKind = "task_panic_omg"
	NoMoreTask       EventKind = "no_more_task"
	TaskMonitorError EventKind = "task_monitor_error"
)

// Event is emitted on the monitor's Events channel whenever a supervised
// task changes state.
type Event struct {
	Kind EventKind
	Name string
	Err  error
}

// NamedTask is a function to run under supervision, paired with a name
// used in logs and events.
type NamedTask struct {
	Name string
	Run  func(ctx context.Context) error
}

const eventChannelCapacity = 64

// Monitor supervises a dynamic set of named goroutines and reports their
// outcome on a single event channel.
type Monitor struct {
	mu       sync.Mutex
	parent   context.Context
	runCtx   context.Context
	runCancel context.CancelFunc
	running  int
	tasks    chan NamedTask
	events   chan Event
	stopped  bool
}

// New creates a Monitor bound to parent; cancelling parent stops the
// monitor entirely. CancelAllMonitoredTasks cancels the current generation
// of tasks without tearing the monitor down, so it can keep accepting new
// tasks afterwards (the Instance FSM relies on this: Error state cancels
// everything, then Initializating spawns a fresh mount).
func New(parent context.Context) *Monitor {
	runCtx, runCancel := context.WithCancel(parent)
	m := &Monitor{
		parent:    parent,
		runCtx:    runCtx,
		runCancel: runCancel,
		tasks:     make(chan NamedTask, 16),
		events:    make(chan Event, eventChannelCapacity),
	}
	go m.intake()
	return m
}

// HandleSender returns the channel used to submit new tasks for
// supervision.
func (m *Monitor) HandleSender() chan<- NamedTask { return m.tasks }

// Events returns the channel of lifecycle events. It is never closed;
// tasks still running when Close is called report their termination on it
// once they return.
func (m *Monitor) Events() <-chan Event { return m.events }

func (m *Monitor) intake() {
	for {
		select {
		case task, ok := <-m.tasks:
			if !ok {
				return
			}
			m.spawn(task)
		case <-m.parent.Done():
			return
		}
	}
}

func (m *Monitor) spawn(task NamedTask) {
	m.mu.Lock()
	m.running++
	ctx := m.runCtx
	m.mu.Unlock()

	m.emit(Event{Kind: TaskCreated, Name: task.Name})
	metrics.TaskEventsTotal.WithLabelValues(string(TaskCreated)).Inc()

	go func() {
		defer m.finish(task.Name)
		defer func() {
			if r := recover(); r != nil {
				m.emit(Event{Kind: TaskPanicOMG, Name: task.Name, Err: fmt.Errorf("panic: %v", r)})
				metrics.TaskEventsTotal.WithLabelValues(string(TaskPanicOMG)).Inc()
			}
		}()

		err := task.Run(ctx)
		switch {
		case err == nil:
			m.emit(Event{Kind: TaskStopProperly, Name: task.Name})
			metrics.TaskEventsTotal.WithLabelValues(string(TaskStopProperly)).Inc()
		default:
			m.emit(Event{Kind: TaskStopWithPain, Name: task.Name, Err: err})
			metrics.TaskEventsTotal.WithLabelValues(string(TaskStopWithPain)).Inc()
		}
	}()
}

func (m *Monitor) finish(name string) {
	m.mu.Lock()
	m.running--
	remaining := m.running
	m.mu.Unlock()

	if remaining == 0 {
		m.emit(Event{Kind: NoMoreTask, Name: name})
		metrics.TaskEventsTotal.WithLabelValues(string(NoMoreTask)).Inc()
	}
}

func (m *Monitor) emit(e Event) {
	select {
	case m.events <- e:
	default:
		select {
		case m.events <- Event{Kind: TaskMonitorError, Name: e.Name, Err: fmt.Errorf("event channel saturated, dropped %s", e.Kind)}:
		default:
		}
		metrics.TaskEventsTotal.WithLabelValues(string(TaskMonitorError)).Inc()
	}
}

// CancelAllMonitoredTasks cancels the context every currently running
// supervised task received, and opens a fresh generation so the monitor
// can keep accepting new tasks afterwards. It does not block for the
// goroutines themselves to return — callers watch Events for NoMoreTask to
// know when the scope has gone quiet.
func (m *Monitor) CancelAllMonitoredTasks(_ context.Context) {
	m.mu.Lock()
	m.runCancel()
	m.runCtx, m.runCancel = context.WithCancel(m.parent)
	m.mu.Unlock()
}

// Close stops the monitor's intake loop and cancels any running tasks.
func (m *Monitor) Close() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	m.runCancel()
	m.mu.Unlock()
	close(m.tasks)
}
