package bus

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClassifier models a tiny protocol with one numeric event whose single
// argument must parse as an integer.
type testClassifier struct{}

type numberEvent struct {
	Value int
}

func (testClassifier) Event(raw string) (string, bool) {
	if raw == "NUM" {
		return "number", true
	}
	return "", false
}

func (testClassifier) Parse(event string, meta string, args []string) (any, error) {
	if len(args) == 0 {
		return nil, errors.New("missing argument")
	}
	v, err := strconv.Atoi(args[0])
	if err != nil {
		return nil, err
	}
	return numberEvent{Value: v}, nil
}

func newTestBus() *Bus[string, string] {
	return New[string, string]("test", testClassifier{}, nil)
}

func TestEmitDispatchesToListenersInOrder(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	var got []int
	for i := range 3 {
		Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, data.Value*10+i)
			return nil
		})
	}

	err := b.Emit(context.Background(), "NUM", []string{"4"}, "meta")
	require.NoError(t, err)
	b.Wait()

	assert.ElementsMatch(t, []int{40, 41, 42}, got)
}

func TestEmitDropsUnknownTokensSilently(t *testing.T) {
	b := newTestBus()

	called := false
	Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
		called = true
		return nil
	})

	err := b.Emit(context.Background(), "UNKNOWN", []string{"4"}, "meta")
	require.NoError(t, err)
	b.Wait()

	assert.False(t, called, "no listener may run for an unclassified token")
}

func TestEmitReturnsParseErrors(t *testing.T) {
	b := newTestBus()

	called := false
	Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
		called = true
		return nil
	})

	err := b.Emit(context.Background(), "NUM", []string{"not-a-number"}, "meta")
	require.Error(t, err)
	b.Wait()

	assert.False(t, called, "a parse failure must not dispatch")
}

func TestMiddlewareAbortsDispatch(t *testing.T) {
	b := newTestBus()

	var order []string
	b.Use(func(c *Context[string, string]) bool {
		order = append(order, "first")
		return true
	})
	b.Use(func(c *Context[string, string]) bool {
		order = append(order, "second")
		return false
	})
	b.Use(func(c *Context[string, string]) bool {
		order = append(order, "third")
		return true
	})

	called := false
	Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
		called = true
		return nil
	})

	require.NoError(t, b.Emit(context.Background(), "NUM", []string{"1"}, "meta"))
	b.Wait()

	assert.Equal(t, []string{"first", "second"}, order)
	assert.False(t, called)
}

func TestMiddlewareSeesTypedPayload(t *testing.T) {
	b := newTestBus()

	var seen any
	b.Use(func(c *Context[string, string]) bool {
		seen = c.Data
		return true
	})

	require.NoError(t, b.Emit(context.Background(), "NUM", []string{"7"}, "meta"))
	b.Wait()

	assert.Equal(t, numberEvent{Value: 7}, seen)
}

func TestEmitEventBypassesClassification(t *testing.T) {
	b := newTestBus()

	var got numberEvent
	done := make(chan struct{})
	Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
		got = data
		close(done)
		return nil
	})

	b.EmitEvent(context.Background(), "number", numberEvent{Value: 99}, "meta")
	<-done

	assert.Equal(t, 99, got.Value)
}

func TestListenerErrorsDoNotAffectSiblings(t *testing.T) {
	b := newTestBus()

	var mu sync.Mutex
	var succeeded int
	Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
		return errors.New("boom")
	})
	Listen(b, "number", func(ctx context.Context, data numberEvent, meta string) error {
		mu.Lock()
		defer mu.Unlock()
		succeeded++
		return nil
	})

	require.NoError(t, b.Emit(context.Background(), "NUM", []string{"1"}, "meta"))
	b.Wait()

	assert.Equal(t, 1, succeeded)
}
