package eventing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type priceEvent struct {
	Region string
}

type otherEvent struct{}

func TestInMemoryBus_TypedSubscribe(t *testing.T) {
	bus := NewInMemoryBus(nil)

	var got []string
	var eventIDs []string
	Subscribe(bus, "first", func(ctx context.Context, evt priceEvent) error {
		got = append(got, "first:"+evt.Region)
		id, ok := EventIDFromContext(ctx)
		require.True(t, ok)
		eventIDs = append(eventIDs, id)
		return nil
	})
	Subscribe(bus, "second", func(ctx context.Context, evt priceEvent) error {
		got = append(got, "second:"+evt.Region)
		id, _ := EventIDFromContext(ctx)
		eventIDs = append(eventIDs, id)
		return nil
	})
	Subscribe(bus, "other", func(ctx context.Context, evt otherEvent) error {
		got = append(got, "other")
		return nil
	})

	require.NoError(t, bus.Publish(context.Background(), priceEvent{Region: "FI"}))
	require.NoError(t, bus.Publish(context.Background(), &priceEvent{Region: "SE3"}))

	assert.Equal(t, []string{"first:FI", "second:FI", "first:SE3", "second:SE3"}, got)
	require.Len(t, eventIDs, 4)
	assert.Equal(t, eventIDs[0], eventIDs[1])
	assert.NotEqual(t, eventIDs[0], eventIDs[2])
}

func TestInMemoryBus_AllHandlersRunOnError(t *testing.T) {
	bus := NewInMemoryBus(nil)
	boom := errors.New("boom")
	calls := 0
	Subscribe(bus, "failing", func(ctx context.Context, evt priceEvent) error {
		calls++
		return boom
	})
	Subscribe(bus, "ok", func(ctx context.Context, evt priceEvent) error {
		calls++
		return nil
	})

	err := bus.Publish(context.Background(), priceEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "failing")
	assert.Equal(t, 2, calls)
}

func TestInMemoryBus_NilEvent(t *testing.T) {
	assert.ErrorIs(t, NewInMemoryBus(nil).Publish(context.Background(), nil), ErrNilEvent)
}

func TestEventTypeOf(t *testing.T) {
	assert.Equal(t, EventType(priceEvent{}), EventTypeOf[priceEvent]())
	assert.Equal(t, EventType(&priceEvent{}), EventTypeOf[priceEvent]())
}
