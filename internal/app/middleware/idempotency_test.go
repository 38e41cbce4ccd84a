package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/app/commands"
)

type echoCommand struct {
	KeyV  string
	Value string
}

func (c echoCommand) Key() string { return "test.echo" }

func (c echoCommand) IdempotencyKey() string { return c.KeyV }

func (c echoCommand) ResultPrototype() any { return &echoResult{} }

type echoResult struct {
	Value string `json:"value"`
}

type countingHandler struct {
	calls int
	err   error
}

func (h *countingHandler) Handle(ctx context.Context, cmd echoCommand) (*echoResult, error) {
	h.calls++
	if h.err != nil {
		return nil, h.err
	}
	return &echoResult{Value: cmd.Value}, nil
}

type mapStore struct {
	items map[string]IdempotencyRecord
}

func newMapStore() *mapStore {
	return &mapStore{items: make(map[string]IdempotencyRecord)}
}

func (s *mapStore) Get(ctx context.Context, key string) (IdempotencyRecord, bool, error) {
	rec, ok := s.items[key]
	return rec, ok, nil
}

func (s *mapStore) Save(ctx context.Context, rec IdempotencyRecord) error {
	s.items[rec.Key] = rec
	return nil
}

func newEchoBus(handler *countingHandler, store IdempotencyStore) commands.Bus {
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, echoCommand{}.Key(), handler)
	return ChainCommands(base, Idempotency(store, nil))
}

func TestIdempotency(t *testing.T) {
	t.Parallel()

	t.Run("first dispatch executes and stores", func(t *testing.T) {
		t.Parallel()
		handler := &countingHandler{}
		store := newMapStore()
		bus := newEchoBus(handler, store)

		result, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "k1", Value: "hello"})
		require.NoError(t, err)
		assert.Equal(t, "hello", result.Value)
		assert.Equal(t, 1, handler.calls)
		assert.Contains(t, store.items, "k1")
	})

	t.Run("replay returns the stored result without executing", func(t *testing.T) {
		t.Parallel()
		handler := &countingHandler{}
		bus := newEchoBus(handler, newMapStore())

		first, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "k1", Value: "hello"})
		require.NoError(t, err)
		second, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "k1", Value: "changed"})
		require.NoError(t, err)

		assert.Equal(t, first.Value, second.Value)
		assert.Equal(t, 1, handler.calls)
	})

	t.Run("failed dispatch replays the error", func(t *testing.T) {
		t.Parallel()
		handler := &countingHandler{err: errors.New("boom")}
		bus := newEchoBus(handler, newMapStore())

		_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "k1"})
		require.Error(t, err)
		handler.err = nil

		_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "k1"})
		require.EqualError(t, err, "boom")
		assert.Equal(t, 1, handler.calls)
	})

	t.Run("commands without a key always execute", func(t *testing.T) {
		t.Parallel()
		handler := &countingHandler{}
		bus := newEchoBus(handler, newMapStore())

		for i := 0; i < 3; i++ {
			_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{Value: "x"})
			require.NoError(t, err)
		}
		assert.Equal(t, 3, handler.calls)
	})

	t.Run("distinct keys execute independently", func(t *testing.T) {
		t.Parallel()
		handler := &countingHandler{}
		bus := newEchoBus(handler, newMapStore())

		_, err := commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "a", Value: "1"})
		require.NoError(t, err)
		_, err = commands.Dispatch[echoCommand, *echoResult](context.Background(), bus, echoCommand{KeyV: "b", Value: "2"})
		require.NoError(t, err)
		assert.Equal(t, 2, handler.calls)
	})
}
