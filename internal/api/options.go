package api

import (
	"sync"

	"zip-resizer/internal/domain"
	"zip-resizer/internal/options"
)

// RunOptions holds the raw option inputs the next run resolves.
type RunOptions struct {
	mu  sync.Mutex
	raw domain.RawOptions
}

// NewRunOptions starts from the configured inputs.
func NewRunOptions(defaults domain.RawOptions) *RunOptions {
	return &RunOptions{raw: defaults}
}

// Set replaces the inputs used by subsequent runs.
func (o *RunOptions) Set(raw domain.RawOptions) {
	o.mu.Lock()
	o.raw = raw
	o.mu.Unlock()
}

// Raw returns the current inputs.
func (o *RunOptions) Raw() domain.RawOptions {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.raw
}

// Resolve parses the current inputs; it is the orchestrator's options source.
func (o *RunOptions) Resolve() domain.ProcessingOptions {
	return options.Resolve(o.Raw())
}
