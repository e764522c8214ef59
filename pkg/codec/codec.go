// Package codec implements the typed attribute payload encodings the
// attribute server protocol carries over the pub/sub transport: boolean,
// number, string, enum, si, json, bytes, status, structure, notification,
// vector_f32, memory_command and trigger.
package codec

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/panduza/pza-runtime/pkg/pzaerr"
)

// Codec encodes and decodes a Go value to and from the wire payload for one
// attribute kind.
type Codec[T any] interface {
	Encode(value T) ([]byte, error)
	Decode(payload []byte) (T, error)
}

// ---- boolean ----

type booleanCodec struct{}

// Boolean is the codec for boolean attributes.
var Boolean booleanCodec

func (booleanCodec) Encode(v bool) ([]byte, error) {
	if v {
		return []byte("true"), nil
	}
	return []byte("false"), nil
}

func (booleanCodec) Decode(p []byte) (bool, error) {
	v, err := strconv.ParseBool(strings.TrimSpace(string(p)))
	if err != nil {
		return false, pzaerr.Codec("invalid boolean payload %q: %v", p, err)
	}
	return v, nil
}

// ---- number ----

type numberCodec struct{}

// Number is the codec for float64-valued attributes.
var Number numberCodec

func (numberCodec) Encode(v float64) ([]byte, error) {
	return []byte(strconv.FormatFloat(v, 'g', -1, 64)), nil
}

func (numberCodec) Decode(p []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	if err != nil {
		return 0, pzaerr.Codec("invalid number payload %q: %v", p, err)
	}
	return v, nil
}

// ---- string ----

type stringCodec struct{}

// String is the identity codec for string attributes.
var String stringCodec

func (stringCodec) Encode(v string) ([]byte, error) { return []byte(v), nil }
func (stringCodec) Decode(p []byte) (string, error) { return string(p), nil }

// ---- bytes ----

type bytesCodec struct{}

// Bytes is the identity codec for raw byte payloads.
var Bytes bytesCodec

func (bytesCodec) Encode(v []byte) ([]byte, error) { return v, nil }
func (bytesCodec) Decode(p []byte) ([]byte, error) { return p, nil }

// ---- trigger ----

// Trigger carries no data; its payload is always empty.
type Trigger struct{}

type triggerCodec struct{}

// TriggerCodec is the codec for trigger attributes.
var TriggerCodec triggerCodec

func (triggerCodec) Encode(Trigger) ([]byte, error) { return nil, nil }
func (triggerCodec) Decode([]byte) (Trigger, error) { return Trigger{}, nil }

// ---- json / structure ----

type jsonCodec struct{}

// JSON passes through any valid JSON document, used both for the json
// attribute kind and for structure (an opaque JSON object).
var JSON jsonCodec

func (jsonCodec) Encode(v json.RawMessage) ([]byte, error) {
	if !json.Valid(v) {
		return nil, pzaerr.Codec("value is not valid json")
	}
	return v, nil
}

func (jsonCodec) Decode(p []byte) (json.RawMessage, error) {
	if !json.Valid(p) {
		return nil, pzaerr.Codec("payload is not valid json: %q", p)
	}
	out := make(json.RawMessage, len(p))
	copy(out, p)
	return out, nil
}

// ---- status ----

// Status is the payload of a status attribute: a numeric code plus a
// human-readable message.
type Status struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type statusCodec struct{}

// StatusCodec is the codec for status attributes.
var StatusCodec statusCodec

func (statusCodec) Encode(v Status) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, pzaerr.SerializeFailure(err)
	}
	return b, nil
}

func (statusCodec) Decode(p []byte) (Status, error) {
	var v Status
	if err := json.Unmarshal(p, &v); err != nil {
		return Status{}, pzaerr.DeserializeError(err)
	}
	return v, nil
}

// ---- notification ----

// Notification is the payload of a notification attribute.
type Notification struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

type notificationCodec struct{}

// NotificationCodec is the codec for notification attributes.
var NotificationCodec notificationCodec

func (notificationCodec) Encode(v Notification) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, pzaerr.SerializeFailure(err)
	}
	return b, nil
}

func (notificationCodec) Decode(p []byte) (Notification, error) {
	var v Notification
	if err := json.Unmarshal(p, &v); err != nil {
		return Notification{}, pzaerr.DeserializeError(err)
	}
	return v, nil
}

// ---- vector_f32 ----

type vectorF32Codec struct{}

// VectorF32 is the codec for float32 vector attributes, carried as a JSON
// array of numbers.
var VectorF32 vectorF32Codec

func (vectorF32Codec) Encode(v []float32) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, pzaerr.SerializeFailure(err)
	}
	return b, nil
}

func (vectorF32Codec) Decode(p []byte) ([]float32, error) {
	var v []float32
	if err := json.Unmarshal(p, &v); err != nil {
		return nil, pzaerr.DeserializeError(err)
	}
	return v, nil
}

// ---- memory_command ----

// MemoryCommand addresses a single read/write against a driver's memory
// map.
type MemoryCommand struct {
	Address   uint64          `json:"address"`
	Operation string          `json:"operation"`
	Value     json.RawMessage `json:"value,omitempty"`
}

type memoryCommandCodec struct{}

// MemoryCommandCodec is the codec for memory_command attributes.
var MemoryCommandCodec memoryCommandCodec

func (memoryCommandCodec) Encode(v MemoryCommand) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, pzaerr.SerializeFailure(err)
	}
	return b, nil
}

func (memoryCommandCodec) Decode(p []byte) (MemoryCommand, error) {
	var v MemoryCommand
	if err := json.Unmarshal(p, &v); err != nil {
		return MemoryCommand{}, pzaerr.DeserializeError(err)
	}
	return v, nil
}

// ---- enum ----

// Enum encodes as a JSON string and validates against a fixed choice set.
type Enum struct {
	Choices []string
}

func (e Enum) Encode(v string) ([]byte, error) {
	if err := e.validate(v); err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, pzaerr.SerializeFailure(err)
	}
	return b, nil
}

func (e Enum) Decode(p []byte) (string, error) {
	var v string
	if err := json.Unmarshal(p, &v); err != nil {
		return "", pzaerr.DeserializeError(err)
	}
	if err := e.validate(v); err != nil {
		return "", err
	}
	return v, nil
}

func (e Enum) validate(v string) error {
	for _, c := range e.Choices {
		if c == v {
			return nil
		}
	}
	return pzaerr.EnumOutOfChoices(v, e.Choices)
}

// ---- si ----

// SI formats a numeric value as a fixed-decimal string and enforces a
// [Min, Max] range, recovered from original_source's finish_as_si guard.
type SI struct {
	Unit     string
	Min      float64
	Max      float64
	Decimals int
}

func (s SI) Encode(v float64) ([]byte, error) {
	if err := s.validate(v); err != nil {
		return nil, err
	}
	return []byte(strconv.FormatFloat(v, 'f', s.Decimals, 64)), nil
}

func (s SI) Decode(p []byte) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(string(p)), 64)
	if err != nil {
		return 0, pzaerr.Codec("invalid si payload %q: %v", p, err)
	}
	if err := s.validate(v); err != nil {
		return 0, err
	}
	return v, nil
}

func (s SI) validate(v float64) error {
	if v < s.Min || v > s.Max {
		return pzaerr.SiOutOfRange(v, s.Min, s.Max)
	}
	return nil
}
