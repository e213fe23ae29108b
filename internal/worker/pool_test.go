package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestSubmitRunsJobs(t *testing.T) {
	pool := NewPool(2, 8, testLogger())
	pool.Start(context.Background())

	var ran atomic.Int32
	for i := 0; i < 5; i++ {
		if err := pool.Submit(func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	pool.Close()

	if got := ran.Load(); got != 5 {
		t.Fatalf("ran %d jobs, want 5", got)
	}
}

func TestDoReturnsJobError(t *testing.T) {
	pool := NewPool(1, 2, testLogger())
	pool.Start(context.Background())
	defer pool.Close()

	wantErr := errors.New("boom")
	if err := pool.Do(context.Background(), func(ctx context.Context) error {
		return wantErr
	}); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v, want %v", err, wantErr)
	}

	if err := pool.Do(context.Background(), func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
}

func TestDoHonorsCallerContext(t *testing.T) {
	pool := NewPool(1, 2, testLogger())
	pool.Start(context.Background())
	defer pool.Close()

	block := make(chan struct{})
	defer close(block)
	// Occupy the single worker so the next job queues.
	if err := pool.Submit(func(ctx context.Context) error {
		<-block
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := pool.Do(ctx, func(ctx context.Context) error { return nil }); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
}

func TestSubmitAfterClose(t *testing.T) {
	pool := NewPool(1, 2, testLogger())
	pool.Start(context.Background())
	pool.Close()

	if err := pool.Submit(func(ctx context.Context) error { return nil }); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("err = %v, want ErrPoolClosed", err)
	}
	if err := pool.Do(context.Background(), func(ctx context.Context) error { return nil }); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("Do after close err = %v, want ErrPoolClosed", err)
	}
	// Close is idempotent.
	pool.Close()
}
