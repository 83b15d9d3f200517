package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"zip-resizer/internal/domain"
	"zip-resizer/internal/queue"
)

// fakeEngine allows injecting custom process behavior per test.
type fakeEngine struct {
	calls   atomic.Int32
	process func(ctx context.Context, path string, opts *domain.ProcessingOptions) error
}

// Process counts the call and delegates to the injected function.
func (e *fakeEngine) Process(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
	e.calls.Add(1)
	if e.process == nil {
		return nil
	}
	return e.process(ctx, path, opts)
}

// newTestQueue builds a registry publishing into a fresh event bus.
func newTestQueue(t *testing.T, paths ...string) (*queue.Registry, *EventBus) {
	t.Helper()
	bus := NewEventBus(1000)
	registry := queue.NewRegistry(bus)
	for _, p := range paths {
		if !registry.Add(p) {
			t.Fatalf("add %s failed", p)
		}
	}
	return registry, bus
}

// statusOf returns the current status of path.
func statusOf(t *testing.T, registry *queue.Registry, path string) domain.JobStatus {
	t.Helper()
	job, ok := registry.Get(path)
	if !ok {
		t.Fatalf("job %s not found", path)
	}
	return job.Status
}

// TestRunEmptyQueueIsNoop checks the empty-queue guard.
func TestRunEmptyQueueIsNoop(t *testing.T) {
	registry, bus := newTestQueue(t)
	engine := &fakeEngine{}
	o := NewOrchestrator(registry, engine, nil, bus)

	if _, ok := o.Run(context.Background()); ok {
		t.Fatal("expected run to be dropped")
	}
	if engine.calls.Load() != 0 {
		t.Fatalf("engine calls = %d, want 0", engine.calls.Load())
	}
	if o.Processing() {
		t.Fatal("processing flag should stay false")
	}
	if len(bus.Since(0)) != 0 {
		t.Fatalf("unexpected events: %+v", bus.Since(0))
	}
}

// TestRunWhileProcessingIsDropped checks the single-run guard.
func TestRunWhileProcessingIsDropped(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip", "b.zip")
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(2)
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		entered.Done()
		<-release
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	if _, ok := o.Start(context.Background()); !ok {
		t.Fatal("expected first run to start")
	}
	entered.Wait()
	if !o.Processing() {
		t.Fatal("expected processing flag during run")
	}

	before := len(bus.Since(0))
	if _, ok := o.Run(context.Background()); ok {
		t.Fatal("expected second run to be dropped")
	}
	if _, ok := o.Start(context.Background()); ok {
		t.Fatal("expected second start to be dropped")
	}
	if after := len(bus.Since(0)); after != before {
		t.Fatalf("events grew from %d to %d while guard was active", before, after)
	}
	if engine.calls.Load() != 2 {
		t.Fatalf("engine calls = %d, want 2", engine.calls.Load())
	}

	close(release)
	if !o.WaitAll(context.Background()) {
		t.Fatal("expected run to finish")
	}
	if o.Processing() {
		t.Fatal("processing flag should reset after run")
	}
}

// TestRunIsolatesJobFailures checks per-job outcomes regardless of completion order.
func TestRunIsolatesJobFailures(t *testing.T) {
	registry, bus := newTestQueue(t, "1.zip", "2.zip", "3.zip")
	gates := map[string]chan struct{}{
		"1.zip": make(chan struct{}),
		"2.zip": make(chan struct{}),
		"3.zip": make(chan struct{}),
	}
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		<-gates[path]
		if path == "2.zip" {
			return errors.New("corrupt archive")
		}
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Run(context.Background())
	}()

	// Release in reverse order.
	close(gates["3.zip"])
	close(gates["2.zip"])
	close(gates["1.zip"])

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not complete")
	}

	want := map[string]domain.JobStatus{
		"1.zip": domain.JobStatusDone,
		"2.zip": domain.JobStatusFailed,
		"3.zip": domain.JobStatusDone,
	}
	for path, status := range want {
		if got := statusOf(t, registry, path); got != status {
			t.Fatalf("%s status = %s, want %s", path, got, status)
		}
	}
	if o.Processing() {
		t.Fatal("processing flag should reset after run")
	}
	assertEventTypeExists(t, bus.Since(0), EventTypeError)
	assertEventTypeExists(t, bus.Since(0), EventTypeRunFinished)
}

// TestRunMarksProcessingBeforeEngineCall checks the per-job ordering guarantee.
func TestRunMarksProcessingBeforeEngineCall(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip", "b.zip")
	var mismatches atomic.Int32
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		if job, _ := registry.Get(path); job.Status != domain.JobStatusProcessing {
			mismatches.Add(1)
		}
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	if _, ok := o.Run(context.Background()); !ok {
		t.Fatal("expected run")
	}
	if mismatches.Load() != 0 {
		t.Fatalf("%d jobs were not processing when dispatched", mismatches.Load())
	}

	for _, path := range []string{"a.zip", "b.zip"} {
		var seen []domain.JobStatus
		for _, e := range bus.Since(0) {
			if e.Type == EventTypeStatus && e.Path == path {
				seen = append(seen, e.Status)
			}
		}
		if len(seen) != 2 || seen[0] != domain.JobStatusProcessing || seen[1] != domain.JobStatusDone {
			t.Fatalf("%s transitions = %v", path, seen)
		}
	}
}

// TestRunRedispatchesCompletedJobs checks that finished jobs run again.
func TestRunRedispatchesCompletedJobs(t *testing.T) {
	registry, bus := newTestQueue(t, "ok.zip", "bad.zip")
	fail := true
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		if path == "bad.zip" && fail {
			return errors.New("boom")
		}
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	o.Run(context.Background())
	if got := statusOf(t, registry, "bad.zip"); got != domain.JobStatusFailed {
		t.Fatalf("bad.zip status = %s, want failed", got)
	}

	fail = false
	if _, ok := o.Run(context.Background()); !ok {
		t.Fatal("expected second run")
	}
	if engine.calls.Load() != 4 {
		t.Fatalf("engine calls = %d, want 4", engine.calls.Load())
	}
	if got := statusOf(t, registry, "bad.zip"); got != domain.JobStatusDone {
		t.Fatalf("bad.zip status = %s, want done", got)
	}
}

// TestRunResolvesOptionsOncePerRun checks every job shares one options value.
func TestRunResolvesOptionsOncePerRun(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip", "b.zip", "c.zip")
	var resolves atomic.Int32
	width := 800
	source := func() domain.ProcessingOptions {
		resolves.Add(1)
		return domain.ProcessingOptions{MaxWidth: &width}
	}

	var mu sync.Mutex
	seen := map[*domain.ProcessingOptions]struct{}{}
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		mu.Lock()
		defer mu.Unlock()
		if opts == nil || opts.MaxWidth == nil || *opts.MaxWidth != 800 || opts.Quality != nil {
			t.Errorf("unexpected options for %s: %+v", path, opts)
		}
		seen[opts] = struct{}{}
		return nil
	}}
	o := NewOrchestrator(registry, engine, source, bus)

	o.Run(context.Background())
	o.Run(context.Background())

	if resolves.Load() != 2 {
		t.Fatalf("resolves = %d, want 2", resolves.Load())
	}
	if len(seen) != 2 {
		t.Fatalf("distinct option values = %d, want one per run", len(seen))
	}
}

// TestRunWithoutOptionsSource checks the minimal variant passes nil options.
func TestRunWithoutOptionsSource(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip")
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		if opts != nil {
			return errors.New("expected nil options")
		}
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	o.Run(context.Background())
	if got := statusOf(t, registry, "a.zip"); got != domain.JobStatusDone {
		t.Fatalf("status = %s, want done", got)
	}
}

// TestRunRecoversEnginePanic checks a panicking job fails alone.
func TestRunRecoversEnginePanic(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip", "b.zip")
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		if path == "a.zip" {
			panic("nil image")
		}
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	o.Run(context.Background())
	if got := statusOf(t, registry, "a.zip"); got != domain.JobStatusFailed {
		t.Fatalf("a.zip status = %s, want failed", got)
	}
	if got := statusOf(t, registry, "b.zip"); got != domain.JobStatusDone {
		t.Fatalf("b.zip status = %s, want done", got)
	}
	if o.Processing() {
		t.Fatal("processing flag should reset after panic")
	}
}

// TestRunIgnoresCallerCancellation checks runs are not interruptible.
func TestRunIgnoresCallerCancellation(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip")
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		return ctx.Err()
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o.Run(ctx)

	if got := statusOf(t, registry, "a.zip"); got != domain.JobStatusDone {
		t.Fatalf("status = %s, want done", got)
	}
}

// TestClearRejectedDuringRun checks the queue cannot be emptied mid-run.
func TestClearRejectedDuringRun(t *testing.T) {
	registry, bus := newTestQueue(t, "a.zip")
	release := make(chan struct{})
	entered := make(chan struct{})
	engine := &fakeEngine{process: func(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
		close(entered)
		<-release
		return nil
	}}
	o := NewOrchestrator(registry, engine, nil, bus)

	o.Start(context.Background())
	<-entered
	if _, err := o.Clear(); !errors.Is(err, ErrRunInProgress) {
		t.Fatalf("clear error = %v, want %v", err, ErrRunInProgress)
	}
	for _, e := range bus.Since(0) {
		if e.Type == EventTypeCleared {
			t.Fatal("rejected clear must not publish")
		}
	}
	close(release)
	o.WaitAll(context.Background())

	n, err := o.Clear()
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 1 || registry.Len() != 0 {
		t.Fatalf("cleared = %d, len = %d", n, registry.Len())
	}

	events := bus.Since(0)
	if last := events[len(events)-1]; last.Type != EventTypeCleared {
		t.Fatalf("last event = %+v, want %s", last, EventTypeCleared)
	}
}

// assertEventTypeExists verifies at least one event of given type exists.
func assertEventTypeExists(t *testing.T, events []Event, want EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
