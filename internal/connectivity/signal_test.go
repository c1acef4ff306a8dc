package connectivity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSignal_SetClear(t *testing.T) {
	s := NewSignal()

	if s.IsSet() {
		t.Fatal("new signal is set")
	}

	s.Set()
	s.Set()
	if !s.IsSet() {
		t.Fatal("IsSet() = false after Set")
	}
	if err := s.Wait(context.Background()); err != nil {
		t.Errorf("Wait() on set signal error = %v", err)
	}

	s.Clear()
	s.Clear()
	if s.IsSet() {
		t.Fatal("IsSet() = true after Clear")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() on cleared signal error = %v, want DeadlineExceeded", err)
	}
}

func TestSignal_ReleasesAllWaiters(t *testing.T) {
	s := NewSignal()

	const waiters = 3
	released := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			if s.Wait(context.Background()) == nil {
				released <- struct{}{}
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	s.Set()

	for i := 0; i < waiters; i++ {
		select {
		case <-released:
		case <-time.After(time.Second):
			t.Fatalf("only %d of %d waiters released", i, waiters)
		}
	}
}
