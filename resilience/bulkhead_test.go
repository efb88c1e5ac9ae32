package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	var rejected string
	b := NewBulkhead(BulkheadConfig{Name: "bh", MaxConcurrent: 1, OnReject: func(n string) { rejected = n }})

	release, err := b.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("expected ErrBulkheadFull, got %v", err)
	}
	if rejected != "bh" {
		t.Errorf("expected OnReject with name, got %q", rejected)
	}

	release()
	release()
	if b.Available() != 1 || b.InUse() != 0 {
		t.Errorf("expected slot freed exactly once, available=%d in-use=%d", b.Available(), b.InUse())
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	release, _ := b.Acquire(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		release()
	}()

	if err := b.Execute(context.Background(), func() error { return nil }); err != nil {
		t.Errorf("expected slot after release, got %v", err)
	}
}

func TestBulkhead_TimeoutAndContext(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	if _, err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := b.Acquire(context.Background()); !errors.Is(err, ErrBulkheadTimeout) {
		t.Errorf("expected ErrBulkheadTimeout, got %v", err)
	}

	b = NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Hour})
	_, _ = b.Acquire(context.Background())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
