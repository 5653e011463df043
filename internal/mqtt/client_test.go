package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnect_UnreachableBrokerDoesNotBlock(t *testing.T) {
	start := time.Now()
	c, err := Connect(Options{BrokerURL: "tcp://127.0.0.1:1", ClientID: "waypoint-test"})
	require.NoError(t, err)
	require.Less(t, time.Since(start), connectTimeout)
	require.False(t, c.Connected())

	// Subscriptions are held until a connection exists.
	require.NoError(t, c.Subscribe(DefaultTopic, 1, func(Message) {}))
	c.mu.Lock()
	require.Contains(t, c.subs, DefaultTopic)
	c.mu.Unlock()

	closed := make(chan struct{})
	go func() {
		c.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not stop the retrying client")
	}
}

func TestConnect_RejectsInvalidBrokerURL(t *testing.T) {
	testCases := []struct {
		name string
		url  string
	}{
		{"unknown scheme", "http://broker:1883"},
		{"missing host", "tcp://"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Connect(Options{BrokerURL: tc.url})
			require.Error(t, err)
		})
	}
}
