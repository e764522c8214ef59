package attribute

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
)

func TestBooleanCommandDispatch(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewBoolean(b, "pza/inst/a/switch", false, Meta{})
	require.NoError(t, err)
	defer attr.Close()

	received := make(chan bool, 1)
	attr.AddCallback(nil, func(v bool) { received <- v })

	pub, err := b.DeclarePublisher("pza/inst/a/switch/cmd")
	require.NoError(t, err)
	require.NoError(t, pub.Put([]byte("true")))

	select {
	case v := <-received:
		require.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}

	v, ok := attr.CurrentValue()
	require.True(t, ok)
	require.True(t, v)
}

func TestLateJoinQuery(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewNumber(b, "pza/inst/a/voltage", 3.3, Meta{})
	require.NoError(t, err)
	defer attr.Close()

	require.NoError(t, attr.Set(5.0))

	reply, ok := b.Query("pza/inst/a/voltage/att", nil)
	require.True(t, ok)
	require.Equal(t, "5", string(reply))
}

func TestDisabledServerQueuesCommands(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewNumber(b, "pza/inst/a/voltage", 0, Meta{})
	require.NoError(t, err)
	defer attr.Close()

	var calls int
	attr.AddCallback(nil, func(float64) { calls++ })
	attr.SetEnabled(false)

	pub, err := b.DeclarePublisher("pza/inst/a/voltage/cmd")
	require.NoError(t, err)
	require.NoError(t, pub.Put([]byte("1")))
	require.NoError(t, pub.Put([]byte("2")))

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, calls)

	attr.SetEnabled(true)
	require.Eventually(t, func() bool { return calls == 2 }, time.Second, time.Millisecond)

	v, ok := attr.CurrentValue()
	require.True(t, ok)
	require.Equal(t, 2.0, v)
}

func TestEnumRejectsInvalidInitialValue(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	_, err := NewEnum(b, "pza/inst/a/mode", []string{"a", "b"}, "z", Meta{})
	require.Error(t, err)
}

func TestSIRejectsOutOfRangeCommand(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewSI(b, "pza/inst/a/vset", "V", 0, 10, 2, 1, Meta{})
	require.NoError(t, err)
	defer attr.Close()

	var calls int
	attr.AddCallback(nil, func(float64) { calls++ })

	pub, err := b.DeclarePublisher("pza/inst/a/vset/cmd")
	require.NoError(t, err)
	require.NoError(t, pub.Put([]byte("99")))

	time.Sleep(50 * time.Millisecond)
	require.Equal(t, 0, calls)
}

func TestReadOnlyAttributeDoesNotSubscribeCmd(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewNumber(b, "pza/inst/a/temperature", 21.0, Meta{Access: ReadOnly})
	require.NoError(t, err)
	defer attr.Close()

	pub, err := b.DeclarePublisher("pza/inst/a/temperature/cmd")
	require.NoError(t, err)
	require.NoError(t, pub.Put([]byte("99")))

	time.Sleep(50 * time.Millisecond)

	reply, ok := b.Query("pza/inst/a/temperature/att", nil)
	require.True(t, ok)
	require.Equal(t, "21", string(reply))
}

func TestWriteOnlyAttributeHasNoQueryable(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewBoolean(b, "pza/inst/a/buzzer", false, Meta{Access: WriteOnly})
	require.NoError(t, err)
	defer attr.Close()

	received := make(chan bool, 1)
	attr.AddCallback(nil, func(v bool) { received <- v })

	pub, err := b.DeclarePublisher("pza/inst/a/buzzer/cmd")
	require.NoError(t, err)
	require.NoError(t, pub.Put([]byte("true")))

	select {
	case v := <-received:
		require.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("callback was not invoked")
	}

	_, ok := b.Query("pza/inst/a/buzzer/att", nil)
	require.False(t, ok)
}

func TestTriggerAlertPublishesNotification(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	sink := notification.NewSink(nil)
	defer sink.Close()

	attr, err := NewBoolean(b, "pza/inst/a/fault", false, Meta{InstanceName: "a", Sink: sink})
	require.NoError(t, err)
	defer attr.Close()

	require.NoError(t, attr.TriggerAlert("overtemperature"))

	select {
	case n := <-sink.Channel():
		require.Equal(t, notification.KindAlert, n.Kind)
		require.Equal(t, "a", n.Instance)
		require.Equal(t, "pza/inst/a/fault", n.Topic)
	case <-time.After(time.Second):
		t.Fatal("no alert notification published")
	}
}

func TestTriggerAlertWithoutSinkErrors(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	attr, err := NewBoolean(b, "pza/inst/a/fault", false, Meta{})
	require.NoError(t, err)
	defer attr.Close()

	require.Error(t, attr.TriggerAlert("overtemperature"))
}

func TestSetEnabledPublishesEnablementNotification(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	sink := notification.NewSink(nil)
	defer sink.Close()

	attr, err := NewBoolean(b, "pza/inst/a/relay", false, Meta{InstanceName: "a", Sink: sink})
	require.NoError(t, err)
	defer attr.Close()

	attr.SetEnabled(false)

	select {
	case n := <-sink.Channel():
		require.Equal(t, notification.KindEnablement, n.Kind)
		require.Equal(t, "pza/inst/a/relay", n.Topic)
	case <-time.After(time.Second):
		t.Fatal("no enablement notification published")
	}
}

func TestCmdIngressTaskRegisteredWithMonitor(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	mon := taskmonitor.New(t.Context())
	defer mon.Close()

	attr, err := NewNumber(b, "pza/inst/a/setpoint", 0, Meta{Type: "number", Monitor: mon})
	require.NoError(t, err)
	defer attr.Close()

	select {
	case ev := <-mon.Events():
		require.Equal(t, taskmonitor.TaskCreated, ev.Kind)
		require.Equal(t, "SERVER/number >> pza/inst/a/setpoint", ev.Name)
	case <-time.After(time.Second):
		t.Fatal("cmd-ingress task was never registered with the monitor")
	}
}
