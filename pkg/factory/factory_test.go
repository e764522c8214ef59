package factory

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/panduza/pza-runtime/pkg/container"
	"github.com/panduza/pza-runtime/pkg/fsm"
	"github.com/panduza/pza-runtime/pkg/instance"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

type stubActions struct{ settings json.RawMessage }

func (a *stubActions) Mount(ctx context.Context, c container.Container) error { return nil }
func (a *stubActions) WaitRebootEvent(ctx context.Context, c container.Container) error {
	<-ctx.Done()
	return ctx.Err()
}

type stubProducer struct{}

func (stubProducer) Description() string { return "a stub bench supply" }
func (stubProducer) Produce(settings json.RawMessage) (instance.Actions, error) {
	return &stubActions{settings: settings}, nil
}

func TestProduceBuildsRunningInstance(t *testing.T) {
	f := New(zerolog.Nop())
	f.AddProducer("acme", "psu1", stubProducer{})

	store := f.Store()
	require.Contains(t, store.Products, "acme.psu1")

	b := pubsub.NewBroker()
	defer b.Close()
	sink := notification.NewSink(nil)

	inst, err := f.Produce(context.Background(), b, "pza", ProductionOrder{
		Dref: "acme.psu1",
		Name: "bench1",
	}, sink)
	require.NoError(t, err)
	defer inst.Close()

	require.Equal(t, "pza/bench1", inst.Topic())
	require.Eventually(t, func() bool { return inst.State() == fsm.Running }, time.Second, time.Millisecond)
}

func TestProduceUnknownDref(t *testing.T) {
	f := New(zerolog.Nop())
	b := pubsub.NewBroker()
	defer b.Close()
	sink := notification.NewSink(nil)

	_, err := f.Produce(context.Background(), b, "pza", ProductionOrder{Dref: "nope.nope", Name: "x"}, sink)
	require.Error(t, err)
}

func TestProductionOrderFromYAML(t *testing.T) {
	order, err := ProductionOrderFromYAML([]byte(`
dref: acme.psu1
name: bench1
settings:
  voltage: 5
`))
	require.NoError(t, err)
	require.Equal(t, "acme.psu1", order.Dref)
	require.Equal(t, "bench1", order.Name)
	require.JSONEq(t, `{"voltage":5}`, string(order.Settings))
}

func TestProductionOrderFromYAMLRejectsGarbage(t *testing.T) {
	_, err := ProductionOrderFromYAML([]byte("not: [valid"))
	require.Error(t, err)
}
