package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"zip-resizer/internal/domain"
	"zip-resizer/internal/queue"
)

// ErrRunInProgress is returned when the queue is modified during a run.
var ErrRunInProgress = errors.New("run in progress")

// Engine processes one archive. Any returned error marks the job failed.
type Engine interface {
	Process(ctx context.Context, path string, opts *domain.ProcessingOptions) error
}

// OptionsSource yields the options for a new run. It is called once per run.
type OptionsSource func() domain.ProcessingOptions

// Orchestrator dispatches every queued job to the engine and tracks the
// process-wide processing flag. A run request that arrives while another
// run is in flight, or while the queue is empty, is dropped.
type Orchestrator struct {
	registry *queue.Registry
	engine   Engine
	options  OptionsSource
	events   *EventBus

	mu         sync.Mutex
	processing bool
	runID      string
	workersWG  sync.WaitGroup
}

// NewOrchestrator wires a registry to an engine. options may be nil, in
// which case the engine receives no options at all; events may be nil.
func NewOrchestrator(registry *queue.Registry, engine Engine, options OptionsSource, events *EventBus) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		engine:   engine,
		options:  options,
		events:   events,
	}
}

// Processing reports whether a run is in flight.
func (o *Orchestrator) Processing() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.processing
}

// CurrentRun returns the ID of the run in flight, if any.
func (o *Orchestrator) CurrentRun() (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runID, o.processing
}

// Run dispatches all queued jobs and blocks until each of them reached a
// terminal status. It reports the run ID and whether a run took place.
func (o *Orchestrator) Run(ctx context.Context) (string, bool) {
	runID, snapshot, ok := o.begin()
	if !ok {
		return "", false
	}
	o.dispatch(ctx, runID, snapshot)
	return runID, true
}

// Start behaves like Run but dispatches in the background. The guard is
// evaluated before Start returns.
func (o *Orchestrator) Start(ctx context.Context) (string, bool) {
	runID, snapshot, ok := o.begin()
	if !ok {
		return "", false
	}

	o.workersWG.Add(1)
	go func() {
		defer o.workersWG.Done()
		o.dispatch(ctx, runID, snapshot)
	}()
	return runID, true
}

// WaitAll blocks until background runs finish or the context is done.
// Returns true if all runs finished, false if timed out.
func (o *Orchestrator) WaitAll(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		o.workersWG.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Clear empties the queue and publishes a cleared event. It fails while a
// run is in flight.
func (o *Orchestrator) Clear() (int, error) {
	o.mu.Lock()
	if o.processing {
		o.mu.Unlock()
		return 0, ErrRunInProgress
	}
	removed := o.registry.Clear()
	o.mu.Unlock()

	log.Info().Int("removed", removed).Msg("queue cleared")
	o.publish(Event{Type: EventTypeCleared, Message: fmt.Sprintf("%d jobs removed", removed)})
	return removed, nil
}

// begin applies the run guard and snapshots the queue.
func (o *Orchestrator) begin() (string, []domain.Job, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.processing {
		log.Debug().Str("run_id", o.runID).Msg("run request dropped: already processing")
		return "", nil, false
	}
	snapshot := o.registry.All()
	if len(snapshot) == 0 {
		log.Debug().Msg("run request dropped: queue is empty")
		return "", nil, false
	}

	o.processing = true
	o.runID = uuid.NewString()
	return o.runID, snapshot, true
}

// finish resets the processing flag if runID is still the active run.
func (o *Orchestrator) finish(runID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runID != runID {
		return
	}
	o.processing = false
	o.runID = ""
}

// dispatch fans out one engine call per job and waits for all of them.
func (o *Orchestrator) dispatch(ctx context.Context, runID string, snapshot []domain.Job) {
	defer o.finish(runID)

	// Runs are not interruptible once started.
	ctx = context.WithoutCancel(ctx)
	started := time.Now()

	var opts *domain.ProcessingOptions
	if o.options != nil {
		resolved := o.options()
		opts = &resolved
	}

	log.Info().Str("run_id", runID).Int("jobs", len(snapshot)).Msg("run started")
	o.publish(Event{Type: EventTypeRunStarted, RunID: runID, Message: fmt.Sprintf("%d jobs", len(snapshot))})

	var wg sync.WaitGroup
	for _, job := range snapshot {
		if err := o.registry.SetStatus(job.Path, domain.JobStatusProcessing); err != nil {
			log.Warn().Str("run_id", runID).Str("path", job.Path).Err(err).Msg("skip job")
			continue
		}

		wg.Add(1)
		go func(path string) {
			defer wg.Done()
			o.runJob(ctx, runID, path, opts)
		}(job.Path)
	}
	wg.Wait()

	summary := Summarize(o.registry.All())
	log.Info().
		Str("run_id", runID).
		Int("done", summary.Done).
		Int("failed", summary.Failed).
		Dur("elapsed", time.Since(started)).
		Msg("run finished")
	o.finish(runID)
	o.publish(Event{Type: EventTypeRunFinished, RunID: runID, Summary: &summary})
}

// runJob invokes the engine for one path and records its outcome. Engine
// errors and panics stay local to the job.
func (o *Orchestrator) runJob(ctx context.Context, runID, path string, opts *domain.ProcessingOptions) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("run_id", runID).Str("path", path).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("engine panicked")
			o.fail(runID, path, fmt.Errorf("engine panic: %v", r))
		}
	}()

	if err := o.engine.Process(ctx, path, opts); err != nil {
		o.fail(runID, path, err)
		return
	}
	if err := o.registry.SetStatus(path, domain.JobStatusDone); err != nil {
		log.Warn().Str("run_id", runID).Str("path", path).Err(err).Msg("record done status failed")
	}
}

// fail marks a job failed and reports the cause.
func (o *Orchestrator) fail(runID, path string, cause error) {
	log.Warn().Str("run_id", runID).Str("path", path).Err(cause).Msg("job failed")
	if err := o.registry.SetStatus(path, domain.JobStatusFailed); err != nil {
		log.Warn().Str("run_id", runID).Str("path", path).Err(err).Msg("record failed status failed")
	}
	o.publish(Event{
		Type:    EventTypeError,
		RunID:   runID,
		Path:    path,
		Status:  domain.JobStatusFailed,
		Message: cause.Error(),
	})
}

func (o *Orchestrator) publish(event Event) {
	if o.events != nil {
		o.events.Publish(event)
	}
}
