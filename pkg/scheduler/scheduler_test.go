package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nyc-design/neil-logger/pkg/logger"
	"github.com/nyc-design/neil-logger/pkg/storage"
)

type countingFlusher struct {
	name  string
	count atomic.Int32
	err   error
}

func (f *countingFlusher) Name() string { return f.name }

func (f *countingFlusher) Flush(ctx context.Context) error {
	f.count.Add(1)
	return f.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestStartRequiresTargets(t *testing.T) {
	s := New(Config{})
	if err := s.Start(context.Background()); err == nil {
		t.Fatal("expected an error with nothing scheduled")
	}
	if err := s.Stop(); err == nil {
		t.Fatal("expected an error stopping a scheduler that never started")
	}
}

func TestPeriodicFlushAndFinalFlush(t *testing.T) {
	s := New(Config{})
	f := &countingFlusher{name: "periodic"}
	if err := s.AddWithInterval(f, 10*time.Millisecond); err != nil {
		t.Fatalf("AddWithInterval: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("expected an error starting twice")
	}
	if !s.IsRunning() {
		t.Error("scheduler should be running")
	}

	waitFor(t, func() bool { return f.count.Load() >= 2 })

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	stopped := f.count.Load()
	time.Sleep(30 * time.Millisecond)
	if got := f.count.Load(); got != stopped {
		t.Errorf("flushes continued after Stop: %d -> %d", stopped, got)
	}
	if s.IsRunning() {
		t.Error("scheduler should not be running")
	}
}

func TestZeroIntervalFlushesOnlyOnStop(t *testing.T) {
	s := New(Config{})
	f := &countingFlusher{name: "on-stop"}
	if err := s.AddWithInterval(f, 0); err != nil {
		t.Fatalf("AddWithInterval: %v", err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if got := f.count.Load(); got != 0 {
		t.Fatalf("flushed %d times before Stop", got)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := f.count.Load(); got != 1 {
		t.Errorf("flushes = %d, want 1", got)
	}
}

func TestAddWhileRunningAndRemove(t *testing.T) {
	s := New(Config{})
	idle := &countingFlusher{name: "idle"}
	if err := s.AddWithInterval(idle, 0); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	late := &countingFlusher{name: "late"}
	if err := s.AddWithInterval(late, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return late.count.Load() >= 1 })

	names := s.Names()
	sort.Strings(names)
	if len(names) != 2 || names[0] != "idle" || names[1] != "late" {
		t.Errorf("Names = %v", names)
	}

	s.Remove("late")
	if names := s.Names(); len(names) != 1 || names[0] != "idle" {
		t.Errorf("Names after Remove = %v", names)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := idle.count.Load(); got != 1 {
		t.Errorf("idle flushes = %d, want 1", got)
	}
}

func TestFlushAllJoinsFailures(t *testing.T) {
	errA := errors.New("a down")
	errB := errors.New("b down")
	s := New(Config{})
	_ = s.Add(&countingFlusher{name: "a", err: errA})
	_ = s.Add(&countingFlusher{name: "b", err: errB})
	_ = s.Add(&countingFlusher{name: "ok"})

	err := s.FlushAll(context.Background())
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Fatalf("expected both failures, got %v", err)
	}
}

func TestNegativeInterval(t *testing.T) {
	s := New(Config{})
	if err := s.AddWithInterval(&countingFlusher{name: "neg"}, -time.Second); err == nil {
		t.Fatal("expected an error for a negative interval")
	}
}

func TestSchedulesLoggerFlushes(t *testing.T) {
	store := storage.NewMemory()
	l, err := logger.New(logger.Options{Name: "scheduler-test", RunID: "sched-run", Store: store})
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(func() { l.Close(context.Background()) })

	s := New(Config{})
	if err := s.AddWithInterval(l, 10*time.Millisecond); err != nil {
		t.Fatal(err)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	l.Info("first")
	waitFor(t, func() bool { return len(store.Documents(logger.DefaultLogCollection)) == 1 })

	l.Info("second")
	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := len(store.Documents(logger.DefaultLogCollection)); got != 2 {
		t.Errorf("run batches = %d, want 2", got)
	}
}
