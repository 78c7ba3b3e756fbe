package broadcast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan int) int {
	t.Helper()
	select {
	case v, ok := <-ch:
		require.True(t, ok, "channel closed")
		return v
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for value")
		return 0
	}
}

func TestFanOut(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source)
	defer b.Close()

	l1 := b.Subscribe()
	l2 := b.Subscribe()
	go func() { source <- 42 }()
	assert.Equal(t, 42, receive(t, l1))
	assert.Equal(t, 42, receive(t, l2))
}

func TestSlowListenerDoesNotStallSource(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source, WithSendTimeout[int](time.Millisecond))
	defer b.Close()

	slow := b.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; i <= 5; i++ {
			source <- i
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("source stalled by slow listener")
	}
	b.CancelSubscription(slow)
	for range slow {
	}
}

func TestCloseClosesListeners(t *testing.T) {
	source := make(chan int)
	b := NewBroadcastServer("test", source, WithBufferSize[int](4))
	l := b.Subscribe()
	b.Close()
	select {
	case _, ok := <-l:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("listener not closed")
	}
}
