package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyWorker struct {
	runs     atomic.Int32
	panicked atomic.Bool
}

// Run panics on its first invocation, then blocks until cancellation.
func (w *flakyWorker) Run(ctx context.Context) error {
	w.runs.Add(1)
	if !w.panicked.Swap(true) {
		panic("first run always explodes")
	}
	<-ctx.Done()
	return nil
}

func TestSupervisor_Restarts_Panicked_Worker(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	worker := &flakyWorker{}
	sup.Add(worker)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(done)
	}()

	// The worker must come back after the panic.
	req.Eventually(func() bool { return worker.runs.Load() >= 2 },
		2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor did not stop after cancel")
	}
}

type countdownWorker struct {
	remaining atomic.Int32
}

func (w *countdownWorker) Run(context.Context) error {
	w.remaining.Add(-1)
	return nil
}

func TestSupervisor_Lets_Finished_Workers_Go(t *testing.T) {
	req := require.New(t)
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	worker := &countdownWorker{}
	worker.remaining.Store(1)
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("supervisor kept a finished worker alive")
	}
	req.Equal(int32(0), worker.remaining.Load())
}

func TestSupervisor_Stop_Cancels_Workers(t *testing.T) {
	sup := NewSupervisor(slog.Default(), 10*time.Millisecond)
	worker := &flakyWorker{}
	worker.panicked.Store(true) // skip the panic, block immediately
	sup.Add(worker)

	done := make(chan struct{})
	go func() {
		sup.Run(context.Background())
		close(done)
	}()

	require.Eventually(t, func() bool { return worker.runs.Load() == 1 },
		time.Second, 10*time.Millisecond)

	sup.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not unwind the supervisor")
	}
}
