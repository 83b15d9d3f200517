package queue

import (
	"errors"
	"fmt"
	"sync"

	"zip-resizer/internal/domain"
)

// ErrJobNotFound is returned when a status update names an unknown path.
var ErrJobNotFound = errors.New("job not found")

// ErrInvalidTransition is returned for status changes outside the job state machine.
var ErrInvalidTransition = errors.New("invalid status transition")

// Listener observes registry mutations. Callbacks run after the registry
// lock is released, on the goroutine that caused the change.
type Listener interface {
	JobAdded(job domain.Job)
	JobStatusChanged(path string, status domain.JobStatus)
}

// Registry is the ordered, deduplicated set of queued jobs. It is the only
// writer of job status.
type Registry struct {
	mu       sync.RWMutex
	jobs     []domain.Job
	index    map[string]int
	listener Listener
}

// NewRegistry creates an empty registry. listener may be nil.
func NewRegistry(listener Listener) *Registry {
	return &Registry{
		index:    make(map[string]int),
		listener: listener,
	}
}

// Add appends a pending job for path. Paths that are not zip archives or
// are already queued are ignored; the return value reports whether a job
// was created.
func (r *Registry) Add(path string) bool {
	if !Accepts(path) {
		return false
	}

	r.mu.Lock()
	if _, exists := r.index[path]; exists {
		r.mu.Unlock()
		return false
	}
	job := domain.Job{Path: path, Status: domain.JobStatusPending}
	r.index[path] = len(r.jobs)
	r.jobs = append(r.jobs, job)
	r.mu.Unlock()

	if r.listener != nil {
		r.listener.JobAdded(job)
	}
	return true
}

// All returns a snapshot of the jobs in insertion order.
func (r *Registry) All() []domain.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Job, len(r.jobs))
	copy(out, r.jobs)
	return out
}

// Len returns the number of queued jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}

// Get returns the job stored for path.
func (r *Registry) Get(path string) (domain.Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[path]
	if !ok {
		return domain.Job{}, false
	}
	return r.jobs[i], true
}

// SetStatus validates and applies a status transition for one job.
// Setting the current status again is a silent no-op.
func (r *Registry) SetStatus(path string, status domain.JobStatus) error {
	r.mu.Lock()
	i, ok := r.index[path]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrJobNotFound, path)
	}
	current := r.jobs[i].Status
	if current == status {
		r.mu.Unlock()
		return nil
	}
	if !isValidTransition(current, status) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
	}
	r.jobs[i].Status = status
	r.mu.Unlock()

	if r.listener != nil {
		r.listener.JobStatusChanged(path, status)
	}
	return nil
}

// Clear removes every job and returns how many were dropped.
func (r *Registry) Clear() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.jobs)
	r.jobs = nil
	r.index = make(map[string]int)
	return n
}

// isValidTransition enforces the allowed job state machine edges.
func isValidTransition(from, to domain.JobStatus) bool {
	switch from {
	case domain.JobStatusPending:
		return to == domain.JobStatusProcessing
	case domain.JobStatusProcessing:
		return to == domain.JobStatusDone || to == domain.JobStatusFailed
	case domain.JobStatusDone, domain.JobStatusFailed:
		return to == domain.JobStatusProcessing
	default:
		return false
	}
}
