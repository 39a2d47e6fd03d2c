package eventbus

import (
	"context"
	"errors"
	"testing"
)

func TestEmitInvokesInOrder(t *testing.T) {
	b := New()
	var order []int

	b.On("test", func(ctx context.Context, args ...any) error {
		order = append(order, 1)
		return nil
	})
	b.On("test", func(ctx context.Context, args ...any) error {
		order = append(order, 2)
		return nil
	})

	b.Emit(context.Background(), "test")

	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Fatalf("expected handlers in registration order, got %v", order)
	}
}

func TestEmitSwallowsErrors(t *testing.T) {
	b := New()
	called := false
	b.On("test", func(ctx context.Context, args ...any) error {
		return errors.New("boom")
	})
	b.On("test", func(ctx context.Context, args ...any) error {
		called = true
		return nil
	})

	b.Emit(context.Background(), "test")

	if !called {
		t.Fatal("expected second handler to run despite first handler's error")
	}
}

func TestEmitAsyncAggregatesErrors(t *testing.T) {
	b := New()
	err1 := errors.New("first")
	err2 := errors.New("second")

	b.On("test", func(ctx context.Context, args ...any) error { return err1 })
	b.On("test", func(ctx context.Context, args ...any) error { return err2 })

	err := b.EmitAsync(context.Background(), "test")
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if !errors.Is(err, err1) || !errors.Is(err, err2) {
		t.Fatalf("expected aggregate to wrap both errors, got %v", err)
	}
}

func TestOffRemovesHandler(t *testing.T) {
	b := New()
	calls := 0
	h := func(ctx context.Context, args ...any) error {
		calls++
		return nil
	}

	b.On("test", h)
	b.Off("test", h)
	b.Emit(context.Background(), "test")

	if calls != 0 {
		t.Fatalf("expected handler to be removed, got %d calls", calls)
	}
}

func TestEmitPassesArgs(t *testing.T) {
	b := New()
	var got []any
	b.On("test", func(ctx context.Context, args ...any) error {
		got = args
		return nil
	})

	b.Emit(context.Background(), "test", "a", 2)

	if len(got) != 2 || got[0] != "a" || got[1] != 2 {
		t.Fatalf("expected args to propagate, got %v", got)
	}
}
