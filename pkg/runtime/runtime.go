// Package runtime implements the top-level orchestrator: it owns the
// Factory and the pub/sub Session, accepts ProductionOrders on a bounded
// queue, and supervises one goroutine per produced Instance.
package runtime

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/panduza/pza-runtime/pkg/factory"
	"github.com/panduza/pza-runtime/pkg/instance"
	"github.com/panduza/pza-runtime/pkg/metrics"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/topic"
)

// Channel capacities recovered from original_source/src/runtime.rs's
// TASK_CHANNEL_SIZE / PROD_ORDER_CHANNEL_SIZE / NOTIFICATION_CHANNEL_SIZE
// constants.
const (
	DefaultProductionOrderQueueSize = 64
	DefaultNotificationCapacity     = notification.Capacity
)

// Options configures a Runtime.
type Options struct {
	// Namespace prefixes the pza pivot for every topic this runtime's
	// instances are rooted under.
	Namespace string

	// ProductionOrderQueueSize bounds how many orders can be queued before
	// Submit blocks.
	ProductionOrderQueueSize int
}

// DefaultOptions returns the spec-mandated defaults.
func DefaultOptions() Options {
	return Options{ProductionOrderQueueSize: DefaultProductionOrderQueueSize}
}

// Runtime owns a Factory and a pub/sub Session, and supervises the
// Instances produced from accepted ProductionOrders.
type Runtime struct {
	logger  zerolog.Logger
	factory *factory.Factory
	sess    pubsub.Session
	sink    *notification.Sink
	opts    Options

	orders chan factory.ProductionOrder

	mu        sync.Mutex
	instances map[string]*instance.Instance
}

// New creates a Runtime. Notifications published by every instance it
// produces flow through the returned Runtime's Notifications channel.
func New(logger zerolog.Logger, f *factory.Factory, sess pubsub.Session, opts Options) *Runtime {
	if opts.ProductionOrderQueueSize <= 0 {
		opts.ProductionOrderQueueSize = DefaultProductionOrderQueueSize
	}

	r := &Runtime{
		logger:    logger,
		factory:   f,
		sess:      sess,
		opts:      opts,
		orders:    make(chan factory.ProductionOrder, opts.ProductionOrderQueueSize),
		instances: make(map[string]*instance.Instance),
	}
	r.sink = notification.NewSink(func(n notification.Notification) {
		r.logger.Warn().Str("kind", string(n.Kind)).Msg("notification dropped, channel saturated")
	})
	return r
}

// Notifications returns the channel every produced Instance's
// notifications are multiplexed onto.
func (r *Runtime) Notifications() <-chan notification.Notification { return r.sink.Channel() }

// RootTopic is the topic every Instance produced by this Runtime is
// rooted under.
func (r *Runtime) RootTopic() string { return topic.RootTopic(r.opts.Namespace) }

// Submit enqueues a ProductionOrder, stamping it with a correlation id for
// logs, and returns that id. It blocks if the queue is full.
func (r *Runtime) Submit(ctx context.Context, order factory.ProductionOrder) (uuid.UUID, error) {
	id := uuid.New()
	r.logger.Info().Str("correlation_id", id.String()).Str("dref", order.Dref).Str("name", order.Name).Msg("production order submitted")

	select {
	case r.orders <- order:
		return id, nil
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Instance looks up a produced Instance by name.
func (r *Runtime) Instance(name string) (*instance.Instance, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inst, ok := r.instances[name]
	return inst, ok
}

// Run consumes production orders until ctx is cancelled, producing one
// Instance per order and registering it under its name. It returns once
// ctx is done. Every produced Instance runs under a context derived from
// ctx, so cancelling ctx also stops their FSMs and monitored tasks;
// Shutdown closes them and clears the registry.
func (r *Runtime) Run(ctx context.Context) error {
	for {
		select {
		case order := <-r.orders:
			r.handleOrder(ctx, order)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Runtime) handleOrder(ctx context.Context, order factory.ProductionOrder) {
	r.mu.Lock()
	if _, exists := r.instances[order.Name]; exists {
		r.mu.Unlock()
		r.logger.Error().Str("name", order.Name).Msg("production order rejected: name already in use")
		metrics.ProductionOrdersTotal.WithLabelValues("rejected").Inc()
		return
	}
	r.mu.Unlock()

	inst, err := r.factory.Produce(ctx, r.sess, r.RootTopic(), order, r.sink)
	if err != nil {
		r.logger.Error().Err(err).Str("dref", order.Dref).Str("name", order.Name).Msg("failed to produce instance")
		metrics.ProductionOrdersTotal.WithLabelValues("failed").Inc()
		return
	}

	r.mu.Lock()
	r.instances[order.Name] = inst
	r.mu.Unlock()
	metrics.ProductionOrdersTotal.WithLabelValues("accepted").Inc()
}

// Shutdown closes every produced Instance. The Runtime's Run loop must
// already have returned (cancel its context first).
func (r *Runtime) Shutdown() {
	r.mu.Lock()
	instances := make([]*instance.Instance, 0, len(r.instances))
	for _, inst := range r.instances {
		instances = append(instances, inst)
	}
	r.instances = make(map[string]*instance.Instance)
	r.mu.Unlock()

	for _, inst := range instances {
		inst.Close()
	}
}
