package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_DeliversInOrder(t *testing.T) {
	b := NewWithQueueSize(64)

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	b.Subscribe(EventTypeLightUpdate, func(e Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Data["n"].(int))
		if len(got) == 50 {
			close(done)
		}
	})

	for i := 0; i < 50; i++ {
		require.True(t, b.Publish(Event{Type: EventTypeLightUpdate, Data: map[string]interface{}{"n": i}}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("events not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	for i, n := range got {
		assert.Equal(t, i, n)
	}
	b.Close(context.Background())
}

func TestBus_Unsubscribe(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	calls := make(chan string, 10)
	unsubA := b.Subscribe(EventTypeLightUpdate, func(Event) { calls <- "a" })
	b.Subscribe(EventTypeLightUpdate, func(Event) { calls <- "b" })

	unsubA()
	unsubA()

	b.Publish(Event{Type: EventTypeLightUpdate})
	select {
	case c := <-calls:
		assert.Equal(t, "b", c)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
	select {
	case c := <-calls:
		t.Fatalf("unexpected delivery to %s", c)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBus_PanicDoesNotStopDispatch(t *testing.T) {
	b := New()
	defer b.Close(context.Background())

	ok := make(chan struct{}, 1)
	b.Subscribe(EventTypeConnectivity, func(Event) { panic("boom") })
	b.Subscribe(EventTypeLightUpdate, func(Event) { ok <- struct{}{} })

	b.Publish(Event{Type: EventTypeConnectivity})
	b.Publish(Event{Type: EventTypeLightUpdate})

	select {
	case <-ok:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher stopped after panic")
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	b := New()
	b.Close(context.Background())
	b.Close(context.Background())
	assert.False(t, b.Publish(Event{Type: EventTypeLightUpdate}))
}
