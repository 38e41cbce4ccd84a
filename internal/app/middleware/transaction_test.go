package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/app/commands"
	"carrental/internal/app/uow"
	domainbooking "carrental/internal/domain/booking"
	domaincar "carrental/internal/domain/car"
)

type flakyCommand struct {
	Value string
}

func (c flakyCommand) Key() string { return "test.flaky" }

type flakyHandler struct {
	calls    int
	failures int
	err      error
}

func (h *flakyHandler) Handle(ctx context.Context, cmd flakyCommand) (*echoResult, error) {
	h.calls++
	if h.err != nil && h.calls <= h.failures {
		return nil, h.err
	}
	if _, ok := uow.FromContext(ctx); !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	return &echoResult{Value: cmd.Value}, nil
}

type stubFactory struct {
	begun      int
	commits    int
	rollbacks  int
	commitErrs []error
}

func (f *stubFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	f.begun++
	var err error
	if len(f.commitErrs) >= f.begun {
		err = f.commitErrs[f.begun-1]
	}
	return &stubUnit{owner: f, commitErr: err}, nil
}

type stubUnit struct {
	owner     *stubFactory
	commitErr error
}

func (u *stubUnit) Cars() domaincar.Repository         { return nil }
func (u *stubUnit) Bookings() domainbooking.Repository { return nil }

func (u *stubUnit) Commit(context.Context) error {
	if u.commitErr != nil {
		return u.commitErr
	}
	u.owner.commits++
	return nil
}

func (u *stubUnit) Rollback(context.Context) error {
	u.owner.rollbacks++
	return nil
}

func newFlakyBus(handler *flakyHandler, factory *stubFactory) commands.Bus {
	base := commands.NewInMemoryBus()
	commands.RegisterHandler(base, flakyCommand{}.Key(), handler)
	return ChainCommands(base, Transaction(factory, nil))
}

func TestTransaction(t *testing.T) {
	t.Parallel()

	t.Run("commits on success", func(t *testing.T) {
		t.Parallel()
		handler := &flakyHandler{}
		factory := &stubFactory{}
		bus := newFlakyBus(handler, factory)

		result, err := commands.Dispatch[flakyCommand, *echoResult](context.Background(), bus, flakyCommand{Value: "ok"})
		require.NoError(t, err)
		assert.Equal(t, "ok", result.Value)
		assert.Equal(t, 1, factory.begun)
		assert.Equal(t, 1, factory.commits)
		assert.Equal(t, 0, factory.rollbacks)
	})

	t.Run("rolls back and surfaces handler errors", func(t *testing.T) {
		t.Parallel()
		handler := &flakyHandler{err: errors.New("boom"), failures: 1}
		factory := &stubFactory{}
		bus := newFlakyBus(handler, factory)

		_, err := commands.Dispatch[flakyCommand, *echoResult](context.Background(), bus, flakyCommand{})
		require.EqualError(t, err, "boom")
		assert.Equal(t, 1, handler.calls)
		assert.Equal(t, 1, factory.rollbacks)
		assert.Equal(t, 0, factory.commits)
	})

	t.Run("re-runs a command that lost a serialization race", func(t *testing.T) {
		t.Parallel()
		handler := &flakyHandler{err: fmt.Errorf("save: %w", uow.ErrConcurrentConflict), failures: 1}
		factory := &stubFactory{}
		bus := newFlakyBus(handler, factory)

		result, err := commands.Dispatch[flakyCommand, *echoResult](context.Background(), bus, flakyCommand{Value: "second try"})
		require.NoError(t, err)
		assert.Equal(t, "second try", result.Value)
		assert.Equal(t, 2, handler.calls)
		assert.Equal(t, 2, factory.begun)
		assert.Equal(t, 1, factory.commits)
		assert.Equal(t, 1, factory.rollbacks)
	})

	t.Run("re-runs when the commit itself conflicts", func(t *testing.T) {
		t.Parallel()
		handler := &flakyHandler{}
		factory := &stubFactory{commitErrs: []error{fmt.Errorf("commit: %w", uow.ErrConcurrentConflict)}}
		bus := newFlakyBus(handler, factory)

		_, err := commands.Dispatch[flakyCommand, *echoResult](context.Background(), bus, flakyCommand{Value: "ok"})
		require.NoError(t, err)
		assert.Equal(t, 2, factory.begun)
		assert.Equal(t, 1, factory.commits)
	})

	t.Run("persistent conflict surfaces after one re-run", func(t *testing.T) {
		t.Parallel()
		handler := &flakyHandler{err: fmt.Errorf("save: %w", uow.ErrConcurrentConflict), failures: 10}
		factory := &stubFactory{}
		bus := newFlakyBus(handler, factory)

		_, err := commands.Dispatch[flakyCommand, *echoResult](context.Background(), bus, flakyCommand{})
		require.ErrorIs(t, err, uow.ErrConcurrentConflict)
		assert.Equal(t, 2, handler.calls)
		assert.Equal(t, 2, factory.begun)
		assert.Equal(t, 2, factory.rollbacks)
	})
}
