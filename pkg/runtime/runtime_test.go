package runtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/panduza/pza-runtime/pkg/container"
	"github.com/panduza/pza-runtime/pkg/factory"
	"github.com/panduza/pza-runtime/pkg/fsm"
	"github.com/panduza/pza-runtime/pkg/instance"
	"github.com/panduza/pza-runtime/pkg/pubsub"
)

type okActions struct{}

func (okActions) Mount(ctx context.Context, c container.Container) error { return nil }
func (okActions) WaitRebootEvent(ctx context.Context, c container.Container) error {
	<-ctx.Done()
	return ctx.Err()
}

type okProducer struct{}

func (okProducer) Description() string { return "ok" }
func (okProducer) Produce(settings json.RawMessage) (instance.Actions, error) {
	return okActions{}, nil
}

func TestRuntimeProducesInstanceFromSubmittedOrder(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	f := factory.New(zerolog.Nop())
	f.AddProducer("acme", "psu1", okProducer{})

	r := New(zerolog.Nop(), f, b, DefaultOptions())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	_, err := r.Submit(ctx, factory.ProductionOrder{Dref: "acme.psu1", Name: "bench1"})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, ok := r.Instance("bench1")
		return ok
	}, time.Second, time.Millisecond)

	inst, _ := r.Instance("bench1")
	require.Eventually(t, func() bool { return inst.State() == fsm.Running }, time.Second, time.Millisecond)

	r.Shutdown()
}

func TestRuntimeRejectsDuplicateName(t *testing.T) {
	b := pubsub.NewBroker()
	defer b.Close()

	f := factory.New(zerolog.Nop())
	f.AddProducer("acme", "psu1", okProducer{})

	r := New(zerolog.Nop(), f, b, DefaultOptions())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go r.Run(ctx)

	_, err := r.Submit(ctx, factory.ProductionOrder{Dref: "acme.psu1", Name: "dup"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := r.Instance("dup")
		return ok
	}, time.Second, time.Millisecond)

	_, err = r.Submit(ctx, factory.ProductionOrder{Dref: "acme.psu1", Name: "dup"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	r.Shutdown()
}
