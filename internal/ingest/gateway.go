package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"zip-resizer/internal/queue"
)

// Picker asks the user for files. An empty result means the dialog was cancelled.
type Picker interface {
	PickFiles(ctx context.Context) ([]string, error)
}

// Gateway turns drop, picker and watcher input into registry adds. Paths
// that are not archives or already queued are dropped without error.
type Gateway struct {
	registry *queue.Registry
	onHover  func(bool)

	mu    sync.Mutex
	hover bool
}

// NewGateway creates a gateway. onHover, when set, is called whenever the
// drop hover hint changes.
func NewGateway(registry *queue.Registry, onHover func(bool)) *Gateway {
	return &Gateway{registry: registry, onHover: onHover}
}

// HoverStart marks that files are being dragged over the drop area.
func (g *Gateway) HoverStart() {
	g.setHover(true)
}

// HoverCancel clears the hover hint without touching the queue.
func (g *Gateway) HoverCancel() {
	g.setHover(false)
}

// Hovering reports the current hover hint.
func (g *Gateway) Hovering() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.hover
}

// DropComplete clears the hover hint and queues the dropped paths in order.
// It returns how many jobs were created.
func (g *Gateway) DropComplete(paths []string) int {
	g.setHover(false)
	return g.Add(paths)
}

// PickerComplete queues the paths returned by a file dialog. A nil or empty
// selection is a cancelled dialog and leaves the queue untouched.
func (g *Gateway) PickerComplete(paths []string) int {
	if len(paths) == 0 {
		return 0
	}
	return g.Add(paths)
}

// SelectFiles runs picker and queues its result.
func (g *Gateway) SelectFiles(ctx context.Context, picker Picker) (int, error) {
	paths, err := picker.PickFiles(ctx)
	if err != nil {
		return 0, fmt.Errorf("pick files: %w", err)
	}
	return g.PickerComplete(paths), nil
}

// Add queues paths in the given order and returns how many jobs were created.
func (g *Gateway) Add(paths []string) int {
	added := 0
	for _, p := range paths {
		if g.registry.Add(p) {
			added++
			continue
		}
		log.Debug().Str("path", p).Msg("path ignored")
	}
	return added
}

func (g *Gateway) setHover(hover bool) {
	g.mu.Lock()
	changed := g.hover != hover
	g.hover = hover
	g.mu.Unlock()

	if changed && g.onHover != nil {
		g.onHover(hover)
	}
}
