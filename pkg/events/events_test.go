package events

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventJSONRoundTrip(t *testing.T) {
	metadata := NewEventMetadata("c1", "gemini-1.5-pro")
	temperature := 0.4
	metadata.Temperature = &temperature

	cases := []Event{
		NewStartEvent(metadata),
		NewFinalEvent(metadata, "hello"),
		NewErrorEvent(metadata, errors.New("quota exceeded")),
	}
	for _, ev := range cases {
		t.Run(string(ev.Type()), func(t *testing.T) {
			b, err := json.Marshal(ev)
			require.NoError(t, err)

			decoded, err := NewEventFromJson(b)
			require.NoError(t, err)
			assert.Equal(t, ev.Type(), decoded.Type())
			assert.Equal(t, metadata, decoded.Metadata())
			assert.Equal(t, b, decoded.Payload())
		})
	}

	b, _ := json.Marshal(NewFinalEvent(metadata, "hello"))
	decoded, err := NewEventFromJson(b)
	require.NoError(t, err)
	final, ok := decoded.(*EventFinal)
	require.True(t, ok)
	assert.Equal(t, "hello", final.Text)

	b, _ = json.Marshal(NewErrorEvent(metadata, errors.New("quota exceeded")))
	decoded, err = NewEventFromJson(b)
	require.NoError(t, err)
	assert.Equal(t, "quota exceeded", decoded.(*EventError).ErrorString)
}

func TestNewEventFromJsonRejectsUnknown(t *testing.T) {
	_, err := NewEventFromJson([]byte(`{"type":"partial"}`))
	assert.Error(t, err)
	_, err = NewEventFromJson([]byte(`not json`))
	assert.Error(t, err)
}

func TestRouterDeliversPublishedEvents(t *testing.T) {
	router, err := NewEventRouter()
	require.NoError(t, err)

	var mu sync.Mutex
	var received []Event
	done := make(chan struct{})
	router.AddEventHandler("collect", TopicChat, func(_ context.Context, ev Event) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, ev)
		if len(received) == 2 {
			close(done)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	sink := NewWatermillSink(router.Publisher, TopicChat)
	metadata := NewEventMetadata("c1", "gemini-2.0-flash")
	require.NoError(t, sink.PublishEvent(NewStartEvent(metadata)))
	require.NoError(t, sink.PublishEvent(NewFinalEvent(metadata, "hi")))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events were not delivered")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, EventTypeStart, received[0].Type())
	assert.Equal(t, EventTypeFinal, received[1].Type())
	assert.Equal(t, "c1", received[1].Metadata().ConversationID)

	require.NoError(t, router.Close())
}

func TestLogEventsAcceptsAllTypes(t *testing.T) {
	metadata := NewEventMetadata("c1", "gemini-1.5-pro")
	metadata.SetDuration(time.Now())
	for _, ev := range []Event{
		NewStartEvent(metadata),
		NewFinalEvent(metadata, "hi"),
		NewErrorEvent(metadata, errors.New("x")),
	} {
		assert.NoError(t, LogEvents(context.Background(), ev))
	}
	assert.NoError(t, NullSink{}.PublishEvent(NewStartEvent(metadata)))
}

func TestRouterWithoutBlockingPublish(t *testing.T) {
	router, err := NewEventRouter(WithBlockingPublish(false))
	require.NoError(t, err)

	received := make(chan EventType, 2)
	router.AddEventHandler("collect", TopicChat, func(_ context.Context, ev Event) error {
		received <- ev.Type()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_ = router.Run(ctx)
	}()
	<-router.Running()

	sink := NewWatermillSink(router.Publisher, TopicChat)
	metadata := NewEventMetadata("c1", "gemini-2.0-flash")
	require.NoError(t, sink.PublishEvent(NewStartEvent(metadata)))
	require.NoError(t, sink.PublishEvent(NewErrorEvent(metadata, errors.New("boom"))))

	// delivery order is not guaranteed once publishing stops waiting for acks
	var types []EventType
	for len(types) < 2 {
		select {
		case ty := <-received:
			types = append(types, ty)
		case <-time.After(5 * time.Second):
			t.Fatal("events were not delivered")
		}
	}
	assert.ElementsMatch(t, []EventType{EventTypeStart, EventTypeError}, types)

	require.NoError(t, router.Close())
}
