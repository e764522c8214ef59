// Package attribute implements the attribute server protocol: for each
// typed attribute it declares a "<topic>/cmd" subscriber for inbound
// commands (unless the attribute is ReadOnly), a "<topic>/att" publisher
// for outbound state, and a "<topic>/att" queryable that replies with
// the current value for late-joining subscribers (unless the attribute
// is WriteOnly). Inbound commands are decoded and dispatched by a
// dedicated cmd-ingress task registered with the owning Instance's Task
// Monitor, so a panicking callback shows up as a monitored task fault
// rather than a silently dead subscription.
package attribute

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/panduza/pza-runtime/pkg/metrics"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/pzaerr"
	"github.com/panduza/pza-runtime/pkg/taskmonitor"
	"github.com/panduza/pza-runtime/pkg/topic"
)

// cmdQueueCapacity bounds the cmd-ingress channel between the raw pubsub
// callback and the monitored decode/dispatch task.
const cmdQueueCapacity = 32

// CallbackID identifies a registered callback so it can later be removed.
type CallbackID uint64

// Codec is the minimal codec contract Server needs from pkg/codec's typed
// codecs.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(payload []byte) (T, error)
}

type callbackEntry[T any] struct {
	id        CallbackID
	predicate func(T) bool
	fn        func(T)
}

// Server is the generic attribute server engine every typed attribute
// (boolean, number, si, ...) is a thin wrapper around.
type Server[T any] struct {
	topic        string
	codec        Codec[T]
	sess         pubsub.Session
	log          zerologLogger
	access       Access
	instanceName string
	sink         *notification.Sink

	mu           sync.Mutex
	currentValue T
	hasValue     bool
	enabled      bool
	callbacks    []callbackEntry[T]
	nextID       uint64
	cmdQueue     []T // buffered while disabled

	cmdCh         chan pubsub.Sample
	cancelIngress context.CancelFunc

	pub   pubsub.Publisher
	sub   pubsub.Subscriber
	query pubsub.Queryable
}

// zerologLogger is the narrow slice of zerolog.Logger this package uses,
// kept as an interface so tests don't need a real logger.
type zerologLogger interface {
	Warnf(format string, args ...any)
}

// noopLogger discards everything; used when no logger is supplied.
type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}

// zerologAdapter satisfies zerologLogger on top of a real zerolog.Logger.
type zerologAdapter struct{ logger zerolog.Logger }

func (a zerologAdapter) Warnf(format string, args ...any) {
	a.logger.Warn().Msgf(format, args...)
}

// NewServer wires a new attribute server for topic on sess. It always
// declares a publisher for "<topic>/att". Per meta.Access, it also
// subscribes to "<topic>/cmd" and spawns a cmd-ingress task (unless
// ReadOnly), and declares a queryable on "<topic>/att" (unless
// WriteOnly).
func NewServer[T any](sess pubsub.Session, attrTopic string, codec Codec[T], initial T, meta Meta) (*Server[T], error) {
	access := meta.Access
	if access == "" {
		access = ReadWrite
	}

	s := &Server[T]{
		topic:        attrTopic,
		codec:        codec,
		sess:         sess,
		log:          noopLogger{},
		access:       access,
		instanceName: meta.InstanceName,
		currentValue: initial,
		hasValue:     true,
		enabled:      true,
		cmdCh:        make(chan pubsub.Sample, cmdQueueCapacity),
		sink:         meta.Sink,
	}

	pub, err := sess.DeclarePublisher(topic.AttTopic(attrTopic))
	if err != nil {
		return nil, pzaerr.Publish(attrTopic, 0, err)
	}
	s.pub = pub

	if access != WriteOnly {
		q, err := sess.DeclareQueryable(topic.AttTopic(attrTopic), s.handleQuery)
		if err != nil {
			return nil, pzaerr.MessageAttributeSubscribe(attrTopic, err)
		}
		s.query = q
	}

	if access != ReadOnly {
		sub, err := sess.DeclareSubscriber(topic.CmdTopic(attrTopic), s.enqueueCmd)
		if err != nil {
			return nil, pzaerr.MessageAttributeSubscribe(attrTopic, err)
		}
		s.sub = sub

		taskName := fmt.Sprintf("SERVER/%s >> %s", meta.Type, attrTopic)
		if meta.Monitor != nil {
			meta.Monitor.HandleSender() <- taskmonitor.NamedTask{Name: taskName, Run: s.runCmdIngress}
		} else {
			ctx, cancel := context.WithCancel(context.Background())
			s.cancelIngress = cancel
			go func() { _ = s.runCmdIngress(ctx) }()
		}
	}

	return s, nil
}

// enqueueCmd is the raw pubsub subscriber callback. It must never block
// the transport, so it only ever pushes onto the cmd-ingress queue,
// dropping the sample if that queue is saturated.
func (s *Server[T]) enqueueCmd(sample pubsub.Sample) {
	select {
	case s.cmdCh <- sample:
	default:
		s.log.Warnf("attribute %s: cmd-ingress queue saturated, dropping sample", s.topic)
	}
}

// runCmdIngress is the cmd-ingress task registered with the owning
// Instance's Task Monitor under "SERVER/<type> >> <topic>" (or run as a
// plain unsupervised goroutine when no Monitor was supplied): it decodes
// every queued sample and dispatches it to callbacks, or buffers it while
// the server is disabled.
func (s *Server[T]) runCmdIngress(ctx context.Context) error {
	for {
		select {
		case sample := <-s.cmdCh:
			s.decodeAndDispatch(sample)
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server[T]) decodeAndDispatch(sample pubsub.Sample) {
	metrics.AttributeCommandsTotal.WithLabelValues(s.topic).Inc()
	value, err := s.codec.Decode(sample.Payload)
	if err != nil {
		s.log.Warnf("attribute %s: bad command payload: %v", s.topic, err)
		return
	}

	s.mu.Lock()
	if !s.enabled {
		s.cmdQueue = append(s.cmdQueue, value)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	s.dispatch(value)
}

func (s *Server[T]) dispatch(value T) {
	s.mu.Lock()
	s.currentValue = value
	s.hasValue = true
	callbacks := append([]callbackEntry[T]{}, s.callbacks...)
	s.mu.Unlock()

	// Callbacks are invoked after the lock is released, so a slow or
	// re-entrant callback never blocks the next inbound command.
	for _, cb := range callbacks {
		if cb.predicate == nil || cb.predicate(value) {
			cb.fn(value)
		}
	}
}

func (s *Server[T]) handleQuery(q pubsub.Query) {
	s.mu.Lock()
	value := s.currentValue
	has := s.hasValue
	s.mu.Unlock()

	if !has {
		return
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		s.log.Warnf("attribute %s: encode for query failed: %v", s.topic, err)
		return
	}
	_ = q.Reply(payload)
}

// Set publishes a new outbound value (the device-side state), independent
// of any inbound command.
func (s *Server[T]) Set(value T) error {
	payload, err := s.codec.Encode(value)
	if err != nil {
		return pzaerr.Codec("attribute %s: encode failed: %v", s.topic, err)
	}

	s.mu.Lock()
	s.currentValue = value
	s.hasValue = true
	s.mu.Unlock()

	if err := s.pub.Put(payload); err != nil {
		metrics.AttributePublishErrorsTotal.WithLabelValues(s.topic).Inc()
		return pzaerr.Publish(s.topic, len(payload), err)
	}
	metrics.AttributePublishesTotal.WithLabelValues(s.topic).Inc()
	return nil
}

// CurrentValue returns the last known value and whether one has ever been
// set.
func (s *Server[T]) CurrentValue() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentValue, s.hasValue
}

// AddCallback registers fn to be invoked on every inbound command whose
// decoded value satisfies predicate (nil predicate matches everything),
// and returns an id that can later be passed to RemoveCallback.
func (s *Server[T]) AddCallback(predicate func(T) bool, fn func(T)) CallbackID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := CallbackID(s.nextID)
	s.callbacks = append(s.callbacks, callbackEntry[T]{id: id, predicate: predicate, fn: fn})
	return id
}

// RemoveCallback unregisters a previously added callback.
func (s *Server[T]) RemoveCallback(id CallbackID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cb := range s.callbacks {
		if cb.id == id {
			s.callbacks = append(s.callbacks[:i], s.callbacks[i+1:]...)
			return
		}
	}
}

// ClearCallbacks removes every registered callback.
func (s *Server[T]) ClearCallbacks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = nil
}

// CallbackCount reports how many callbacks are currently registered.
func (s *Server[T]) CallbackCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.callbacks)
}

// WithLogger attaches a zerolog.Logger the server will use for warnings
// (bad command payloads, encode failures). Safe to call once, right after
// NewServer.
func (s *Server[T]) WithLogger(logger zerolog.Logger) *Server[T] {
	s.log = zerologAdapter{logger: logger}
	return s
}

// TriggerAlert emits an Alert notification on the runtime notification
// sink and records it in the alerts-raised counter. It is a no-op error
// if the server was built without a sink (e.g. in isolation, outside a
// Container tree).
func (s *Server[T]) TriggerAlert(message string) error {
	if s.sink == nil {
		return pzaerr.InternalLogic("attribute %s: trigger_alert called without a notification sink", s.topic)
	}
	metrics.AlertsRaisedTotal.WithLabelValues(s.topic, "alert").Inc()
	s.sink.Publish(notification.Alert(s.instanceName, s.topic, "alert", message))
	return nil
}

// SetEnabled toggles whether inbound commands are dispatched to callbacks,
// and emits an Enablement notification. While disabled, commands keep
// arriving on the subscription (it is never torn down) and are queued in
// FIFO order; re-enabling flushes the queue before accepting new
// commands, per the open-question resolution in SPEC_FULL.md: disabled
// servers buffer, they never drop.
func (s *Server[T]) SetEnabled(enabled bool) {
	if !enabled {
		s.mu.Lock()
		s.enabled = false
		s.mu.Unlock()
	}

	if s.sink != nil {
		s.sink.Publish(notification.Enablement(s.instanceName, s.topic, enabled))
	}
	if !enabled {
		return
	}

	// Stay disabled while flushing, so commands arriving meanwhile are
	// queued behind the ones already buffered instead of overtaking them.
	for {
		s.mu.Lock()
		queued := s.cmdQueue
		s.cmdQueue = nil
		if len(queued) == 0 {
			s.enabled = true
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		for _, v := range queued {
			s.dispatch(v)
		}
	}
}

// Close undeclares the publisher, subscriber and queryable, and stops the
// cmd-ingress task when it was run unsupervised (no Monitor supplied).
func (s *Server[T]) Close() error {
	if s.cancelIngress != nil {
		s.cancelIngress()
	}

	var firstErr error
	if s.sub != nil {
		if err := s.sub.Cancel(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.query != nil {
		if err := s.query.Cancel(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if s.pub != nil {
		if err := s.pub.Undeclare(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
