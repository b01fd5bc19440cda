package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcher_PublishInvokesSubscribers(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	var seen []Event
	d.Subscribe(EventUserLoggedIn, func(_ context.Context, e Event) error {
		seen = append(seen, e)
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserLoggedIn, UserID: 3})
	require.NoError(t, err)
	require.Len(t, seen, 1)
	assert.Equal(t, int64(3), seen[0].UserID)
}

func TestDispatcher_HandlerErrorsDoNotPropagate(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	calls := 0
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		calls++
		return errors.New("notification failed")
	})
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		calls++
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventUserRegistered})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDispatcher_IgnoresUnrelatedEvents(t *testing.T) {
	t.Parallel()

	d := NewInMemoryDispatcher()

	called := false
	d.Subscribe(EventUserRegistered, func(context.Context, Event) error {
		called = true
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventUserLoggedIn}))
	assert.False(t, called)
}
