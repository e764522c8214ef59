package notification

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSinkDropsOnSaturation(t *testing.T) {
	var dropped []Notification
	s := NewSink(func(n Notification) { dropped = append(dropped, n) })

	for i := 0; i < Capacity; i++ {
		s.Publish(State("inst", "Running"))
	}
	require.Empty(t, dropped)

	s.Publish(State("inst", "Error"))
	require.Len(t, dropped, 1)
	require.Equal(t, KindState, dropped[0].Kind)
}

func TestAttributeNotificationCarriesSettings(t *testing.T) {
	n := Attribute("inst", "pza/inst/a/b", []byte(`{"unit":"V"}`))
	require.Equal(t, KindAttribute, n.Kind)
	require.JSONEq(t, `{"unit":"V"}`, string(n.Payload))
}
