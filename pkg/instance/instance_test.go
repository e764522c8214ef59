package instance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/panduza/pza-runtime/pkg/container"
	"github.com/panduza/pza-runtime/pkg/fsm"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
)

func taskThatFails() taskmonitor.NamedTask {
	return taskmonitor.NamedTask{
		Name: "flaky",
		Run:  func(ctx context.Context) error { return errors.New("boom") },
	}
}

// fakeActions is a hand-written test double for Actions: deterministic,
// inspectable, and scripted per test rather than generated.
type fakeActions struct {
	mu          sync.Mutex
	mountCalls  int
	mountErr    error
	mounted     chan struct{}
	rebootCalls int
	rebootDone  chan struct{}
}

func newFakeActions() *fakeActions {
	return &fakeActions{mounted: make(chan struct{}, 8), rebootDone: make(chan struct{}, 8)}
}

func (f *fakeActions) Mount(ctx context.Context, c container.Container) error {
	f.mu.Lock()
	f.mountCalls++
	err := f.mountErr
	f.mu.Unlock()
	f.mounted <- struct{}{}
	return err
}

func (f *fakeActions) WaitRebootEvent(ctx context.Context, c container.Container) error {
	f.mu.Lock()
	f.rebootCalls++
	f.mu.Unlock()
	f.rebootDone <- struct{}{}
	return nil
}

func (f *fakeActions) MountCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mountCalls
}

func TestInstanceReachesRunningOnSuccessfulMount(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()
	sink := notification.NewSink(nil)
	actions := newFakeActions()

	inst := New(context.Background(), b, "dev1", "pza/dev1", actions, nil, sink)
	defer inst.Close()

	select {
	case <-actions.mounted:
	case <-time.After(time.Second):
		t.Fatal("mount was never called")
	}

	require.Eventually(t, func() bool { return inst.State() == fsm.Running }, time.Second, time.Millisecond)
}

func TestInstanceFaultsAndRebootsOnMountFailure(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()
	sink := notification.NewSink(nil)
	actions := newFakeActions()
	actions.mountErr = context.DeadlineExceeded

	inst := New(context.Background(), b, "dev2", "pza/dev2", actions, nil, sink)
	defer inst.Close()

	select {
	case <-actions.rebootDone:
	case <-time.After(time.Second):
		t.Fatal("wait_reboot_event was never called")
	}

	require.Eventually(t, func() bool { return actions.MountCalls() >= 2 }, time.Second, time.Millisecond)
}

func TestInstanceFaultsOnTaskCrash(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()
	sink := notification.NewSink(nil)
	actions := newFakeActions()

	inst := New(context.Background(), b, "dev3", "pza/dev3", actions, nil, sink)
	defer inst.Close()

	select {
	case <-actions.mounted:
	case <-time.After(time.Second):
		t.Fatal("mount was never called")
	}
	require.Eventually(t, func() bool { return inst.State() == fsm.Running }, time.Second, time.Millisecond)

	inst.MonitorTask() <- taskThatFails()

	require.Eventually(t, func() bool { return actions.MountCalls() >= 2 }, time.Second, time.Millisecond)
}

func TestInstanceRaisesAlertOnTaskCrash(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()
	sink := notification.NewSink(nil)
	actions := newFakeActions()

	inst := New(context.Background(), b, "dev4", "pza/dev4", actions, nil, sink)
	defer inst.Close()

	select {
	case <-actions.mounted:
	case <-time.After(time.Second):
		t.Fatal("mount was never called")
	}
	require.Eventually(t, func() bool { return inst.State() == fsm.Running }, time.Second, time.Millisecond)

	inst.MonitorTask() <- taskThatFails()

	for {
		select {
		case n := <-sink.Channel():
			if n.Kind == notification.KindAlert && n.Topic == "flaky" {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("no alert notification was published after the monitored task crashed")
		}
	}
}
