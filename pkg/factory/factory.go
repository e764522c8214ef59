// Package factory implements the producer catalog: producers are
// registered keyed by "<manufacturer>.<model>" (a dref), and a
// ProductionOrder is turned into a running Instance by looking up its
// dref and asking the matching Producer for a fresh set of driver
// Actions.
package factory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/panduza/pza-runtime/pkg/instance"
	"github.com/panduza/pza-runtime/pkg/notification"
	"github.com/panduza/pza-runtime/pkg/pubsub"
	"github.com/panduza/pza-runtime/pkg/pzaerr"
	"github.com/panduza/pza-runtime/pkg/topic"
)

// Producer builds a fresh set of driver Actions for one dref. A Producer
// is stateless across instances: Produce is called once per
// ProductionOrder and must not share mutable state between the Instances
// it builds.
type Producer interface {
	Produce(settings json.RawMessage) (instance.Actions, error)
	Description() string
}

// ProductionOrder requests one new Instance.
type ProductionOrder struct {
	Dref     string          `json:"dref"`
	Name     string          `json:"name"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// yamlProductionOrder mirrors ProductionOrder but keeps settings as a raw
// yaml.Node: Settings is a json.RawMessage on the wire type, and yaml.v3
// has no notion of "embed this node as JSON", so the nested mapping is
// decoded generically and re-marshaled through encoding/json instead of
// unmarshaling straight into a []byte field (which yaml.v3 treats as
// base64, not nested structure).
type yamlProductionOrder struct {
	Dref     string    `yaml:"dref"`
	Name     string    `yaml:"name"`
	Settings yaml.Node `yaml:"settings"`
}

// ProductionOrderFromYAML parses a ProductionOrder from a YAML document,
// for CLI front ends that apply a file rather than building the order
// from flags (mirroring the teacher's "apply -f resource.yaml" front
// door).
func ProductionOrderFromYAML(data []byte) (ProductionOrder, error) {
	var raw yamlProductionOrder
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return ProductionOrder{}, pzaerr.DeserializeError(err)
	}

	order := ProductionOrder{Dref: raw.Dref, Name: raw.Name}
	if raw.Settings.Kind != 0 {
		var v any
		if err := raw.Settings.Decode(&v); err != nil {
			return ProductionOrder{}, pzaerr.DeserializeError(err)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return ProductionOrder{}, pzaerr.SerializeFailure(err)
		}
		order.Settings = b
	}
	return order, nil
}

// Product describes one entry of the catalog Store.
type Product struct {
	Description string `json:"description"`
}

// Store is the JSON-serializable catalog of every registered producer,
// for introspection (e.g. listing available manufacturer.model pairs
// without instantiating anything).
type Store struct {
	Products map[string]Product `json:"products"`
}

// ToJSON serializes the Store.
func (s Store) ToJSON() ([]byte, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, pzaerr.SerializeFailure(err)
	}
	return b, nil
}

// Factory owns the producer catalog and turns ProductionOrders into
// running Instances.
type Factory struct {
	logger zerolog.Logger

	mu        sync.RWMutex
	producers map[string]Producer
}

// New creates an empty Factory.
func New(logger zerolog.Logger) *Factory {
	return &Factory{logger: logger, producers: make(map[string]Producer)}
}

func dref(manufacturer, model string) string { return manufacturer + "." + model }

// AddProducer registers p under "<manufacturer>.<model>", replacing any
// producer previously registered under the same dref.
func (f *Factory) AddProducer(manufacturer, model string, p Producer) {
	key := dref(manufacturer, model)
	f.logger.Info().Str("dref", key).Msg("registering producer")

	f.mu.Lock()
	f.producers[key] = p
	f.mu.Unlock()
}

// Store returns a snapshot of the current catalog.
func (f *Factory) Store() Store {
	f.mu.RLock()
	defer f.mu.RUnlock()

	products := make(map[string]Product, len(f.producers))
	for key, p := range f.producers {
		products[key] = Product{Description: p.Description()}
	}
	return Store{Products: products}
}

// Produce looks up the producer for order.Dref, builds its Actions, and
// constructs a running Instance rooted under rootTopic.
func (f *Factory) Produce(ctx context.Context, sess pubsub.Session, rootTopic string, order ProductionOrder, sink *notification.Sink) (*instance.Instance, error) {
	f.mu.RLock()
	p, ok := f.producers[order.Dref]
	f.mu.RUnlock()
	if !ok {
		return nil, pzaerr.InvalidArgument("no producer registered for dref %q", order.Dref)
	}

	actions, err := p.Produce(order.Settings)
	if err != nil {
		return nil, pzaerr.Plugin(order.Dref, err)
	}

	instanceTopic := topic.Join(rootTopic, order.Name)
	return instance.New(ctx, sess, order.Name, instanceTopic, actions, order.Settings, sink), nil
}
