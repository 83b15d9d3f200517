package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"zip-resizer/internal/queue"
	"zip-resizer/internal/resize"
)

const defaultSettle = 500 * time.Millisecond

// WatchConfig describes a watched inbox directory.
type WatchConfig struct {
	Dir         string
	InitialScan bool          // queue archives already present at startup
	Settle      time.Duration // quiet period before a written file is queued
}

// Watcher queues archives that appear in a directory.
type Watcher struct {
	cfg  WatchConfig
	sink func(paths []string) int
}

// NewWatcher creates a watcher feeding sink, usually Gateway.Add.
func NewWatcher(cfg WatchConfig, sink func(paths []string) int) *Watcher {
	if cfg.Settle <= 0 {
		cfg.Settle = defaultSettle
	}
	return &Watcher{cfg: cfg, sink: sink}
}

// Run watches until ctx is done. Paths are queued once no write has been
// seen for the settle period, in name order per batch.
func (w *Watcher) Run(ctx context.Context) error {
	if w.cfg.Dir == "" {
		return errors.New("empty watch dir")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = fsw.Close() }()

	if err := fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}
	log.Info().Str("dir", w.cfg.Dir).Msg("watching for archives")

	if w.cfg.InitialScan {
		existing, err := scanDir(w.cfg.Dir)
		if err != nil {
			return err
		}
		w.flush(existing)
	}

	pending := make(map[string]time.Time)
	ticker := time.NewTicker(w.cfg.Settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !watchable(ev.Name) {
				continue
			}
			pending[ev.Name] = time.Now()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			log.Warn().Str("dir", w.cfg.Dir).Err(err).Msg("watcher error")
		case now := <-ticker.C:
			var ready []string
			for path, last := range pending {
				if now.Sub(last) >= w.cfg.Settle {
					ready = append(ready, path)
					delete(pending, path)
				}
			}
			sort.Strings(ready)
			w.flush(ready)
		}
	}
}

// flush queues the paths that still exist as regular files.
func (w *Watcher) flush(paths []string) {
	present := make([]string, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			log.Debug().Str("path", path).Msg("watched path gone before queueing")
			continue
		}
		present = append(present, path)
	}
	if len(present) == 0 {
		return
	}
	paths = present
	added := w.sink(paths)
	log.Info().Str("dir", w.cfg.Dir).Int("seen", len(paths)).Int("added", added).Msg("archives queued from watch dir")
}

// scanDir lists archive files directly inside dir, sorted by name.
func scanDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read watch dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !watchable(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	return out, nil
}

// watchable reports whether a file in the watch dir should be queued. Hidden
// files and resizer outputs are skipped.
func watchable(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") {
		return false
	}
	return queue.Accepts(name) && !resize.IsOutput(name)
}
