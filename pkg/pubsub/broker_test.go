package pubsub

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerFIFOPerTopic(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	var mu sync.Mutex
	var got []int

	sub, err := b.DeclareSubscriber("t/x", func(s Sample) {
		mu.Lock()
		got = append(got, int(s.Payload[0]))
		mu.Unlock()
	})
	require.NoError(t, err)
	defer sub.Cancel()

	pub, err := b.DeclarePublisher("t/x")
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, pub.Put([]byte{byte(i)}))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 10
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestBrokerQuery(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	q, err := b.DeclareQueryable("t/q", func(query Query) {
		_ = query.Reply([]byte("hello"))
	})
	require.NoError(t, err)
	defer q.Cancel()

	reply, ok := b.Query("t/q", nil)
	require.True(t, ok)
	require.Equal(t, "hello", string(reply))
}

func TestBrokerQueryNoQueryable(t *testing.T) {
	b := NewBroker()
	defer b.Close()

	_, ok := b.Query("missing", nil)
	require.False(t, ok)
}
