package job

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

func TestUploadMaintenanceStartSweepsAndPrunes(t *testing.T) {
	dir := t.TempDir()
	aged := filepath.Join(dir, "chart_aged.png")
	if err := os.WriteFile(aged, []byte("x"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(aged, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	pruner := &stubCandlePruner{}
	job := NewUploadMaintenance(trace.NewNoopTracerProvider().Tracer("test"), dir, time.Minute, pruner)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("maintenance job did not stop")
	}

	if _, err := os.Stat(aged); !os.IsNotExist(err) {
		t.Fatal("expected aged chart file swept on startup")
	}
	if atomic.LoadInt32(&pruner.calls) == 0 {
		t.Fatal("expected candle prune to run at least once")
	}
}

func TestUploadMaintenanceNilPruner(t *testing.T) {
	job := NewUploadMaintenance(trace.NewNoopTracerProvider().Tracer("test"), t.TempDir(), time.Minute, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		job.Start(ctx)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("maintenance job did not stop")
	}
}

type stubCandlePruner struct {
	calls int32
}

func (s *stubCandlePruner) DeleteCandlesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	atomic.AddInt32(&s.calls, 1)
	return 0, nil
}
