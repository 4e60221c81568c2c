package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker("gamma", CircuitBreakerConfig{
		FailureThreshold: 3,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	boom := errors.New("boom")
	for i := 0; i < 3; i++ {
		if err := cb.Execute(context.Background(), func() error { return boom }); !errors.Is(err, boom) {
			t.Fatalf("failure %d: got %v, want boom", i, err)
		}
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	err := cb.Execute(context.Background(), func() error {
		t.Fatal("open circuit must not execute the call")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerRecoversThroughHalfOpen(t *testing.T) {
	cb := NewCircuitBreaker("clob", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 2,
		Timeout:          5 * time.Millisecond,
	})

	_ = cb.Execute(context.Background(), func() error { return errors.New("down") })
	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}

	time.Sleep(10 * time.Millisecond)

	// First probe succeeds but the circuit stays half-open until the
	// success threshold is met.
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("state = %s, want HALF_OPEN", cb.State())
	}
	if err := cb.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Fatalf("second probe: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %s, want CLOSED", cb.State())
	}
}

func TestCircuitBreakerFailedProbeReopens(t *testing.T) {
	cb := NewCircuitBreaker("rpc", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          5 * time.Millisecond,
	})

	_ = cb.Execute(context.Background(), func() error { return errors.New("down") })
	time.Sleep(10 * time.Millisecond)
	_ = cb.Execute(context.Background(), func() error { return errors.New("still down") })

	if cb.State() != CircuitOpen {
		t.Fatalf("state = %s, want OPEN", cb.State())
	}
	if err := cb.Execute(context.Background(), func() error { return nil }); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("got %v, want ErrCircuitOpen", err)
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb := NewCircuitBreaker("gamma", CircuitBreakerConfig{
		FailureThreshold: 1,
		SuccessThreshold: 1,
		Timeout:          time.Minute,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := cb.Execute(ctx, func() error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}

	// A cancellation surfaced by the call is the caller's doing and
	// must not trip the breaker.
	if err := cb.Execute(context.Background(), func() error { return context.Canceled }); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
	if cb.State() != CircuitClosed {
		t.Fatalf("state = %s, want CLOSED", cb.State())
	}
	if got := cb.Stats().TotalFailures; got != 0 {
		t.Fatalf("TotalFailures = %d, want 0", got)
	}
}
