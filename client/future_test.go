package client

import (
	"context"
	"testing"
	"time"

	"github.com/kbukum/httpkit/errors"
)

func TestFuture_CompletesOnce(t *testing.T) {
	f := newFuture[int](nil)
	if !f.complete(1, nil) {
		t.Fatal("first completion should win")
	}
	if f.complete(2, nil) || f.Cancel() {
		t.Fatal("later completions must lose")
	}
	v, err := f.Get()
	if v != 1 || err != nil {
		t.Errorf("expected 1, got %d %v", v, err)
	}
}

func TestFuture_CancelPropagates(t *testing.T) {
	ctx, cancel := context.WithCancelCause(context.Background())
	f := newFuture[int](cancel)

	if !f.Cancel() {
		t.Fatal("expected cancel to win")
	}
	if !errors.IsCancelled(f.Err()) {
		t.Errorf("expected CANCELLED, got %v", f.Err())
	}
	if ctx.Err() == nil {
		t.Error("cancel must abort the operation context")
	}
}

func TestFuture_AwaitContext(t *testing.T) {
	f := newFuture[int](nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := f.Await(ctx); !errors.IsCancelled(err) {
		t.Errorf("expected CANCELLED from Await, got %v", err)
	}
	select {
	case <-f.Done():
		t.Error("giving up on Await must not complete the future")
	default:
	}
}

func TestFuture_DeliverHoldsCompletion(t *testing.T) {
	f := newFuture[int](nil)
	inside := make(chan struct{})
	cancelled := make(chan bool)

	go func() {
		<-inside
		cancelled <- f.Cancel()
	}()
	ran, err := f.deliver(func() error {
		close(inside)
		if !<-cancelled {
			t.Error("Cancel during delivery should win")
		}
		select {
		case <-f.Done():
			t.Error("Done closed while a delivery was running")
		default:
		}
		return nil
	})
	if !ran || err != nil {
		t.Fatalf("expected delivery to run, got ran=%v err=%v", ran, err)
	}
	select {
	case <-f.Done():
	default:
		t.Fatal("Done must close once the delivery returns")
	}
	if !errors.IsCancelled(f.Err()) {
		t.Errorf("expected CANCELLED, got %v", f.Err())
	}
	if ran, _ := f.deliver(func() error { t.Error("delivered after completion"); return nil }); ran {
		t.Error("deliver must refuse a completed future")
	}
}
