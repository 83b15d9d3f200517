package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"zip-resizer/internal/config"
	"zip-resizer/internal/diagnostics"
	"zip-resizer/internal/domain"
	"zip-resizer/internal/ingest"
	"zip-resizer/internal/jobs"
	"zip-resizer/internal/logging"
	resolver "zip-resizer/internal/options"
	"zip-resizer/internal/queue"
	"zip-resizer/internal/resize"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

const shutdownTimeout = 30 * time.Second

var archiveDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Zip archives",
		Pattern:     "*.zip",
	},
}

// App wires configuration, the job queue, dispatch and UI runtime callbacks.
type App struct {
	Settings     domain.Settings
	Store        config.Store
	Registry     *queue.Registry
	Gateway      *ingest.Gateway
	Orchestrator *jobs.Orchestrator
	Diagnostics  domain.DiagnosticReport
	assets       fs.FS
	checker      *diagnostics.Checker
	picker       ingest.Picker
	openFolder   func(string) error

	mu          sync.Mutex
	events      *jobs.EventBus
	runtimeCtx  context.Context
	stopWatcher context.CancelFunc
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	path, err := config.SettingsPath()
	if err != nil {
		return nil, fmt.Errorf("resolve settings path: %w", err)
	}

	store := config.NewJSONStore(path)
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	logging.Setup(settings.LogLevel, true)
	log.Info().Str("path", store.Path()).Msg("settings loaded")

	app := newApp(store, settings, nil)
	app.assets = assets
	app.checker = diagnostics.NewChecker()
	app.Diagnostics = app.checker.Run(settings)
	return app, nil
}

// newApp wires the core components. A nil engine selects the zip resizer
// writing into the configured output directory.
func newApp(store config.Store, settings domain.Settings, engine jobs.Engine) *App {
	a := &App{
		Settings:   settings,
		Store:      store,
		events:     jobs.NewEventBus(1000),
		openFolder: openInFileManager,
	}
	if engine == nil {
		engine = &settingsEngine{app: a}
	}

	a.Registry = queue.NewRegistry(a.events)
	a.Gateway = ingest.NewGateway(a.Registry, a.publishHover)
	a.Orchestrator = jobs.NewOrchestrator(a.Registry, engine, a.resolveOptions, a.events)
	a.picker = &dialogPicker{app: a}
	a.events.Subscribe(a.emit)
	return a
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Zip Resizer",
		Width:       960,
		Height:      680,
		AssetServer: assetOptions,
		DragAndDrop: &options.DragAndDrop{
			EnableFileDrop:     true,
			DisableWebViewDrop: true,
		},
		OnStartup:  a.Startup,
		OnShutdown: a.Shutdown,
		Bind:       []interface{}{a},
	})
}

// Startup stores Wails runtime context and subscribes to native file drops.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	a.runtimeCtx = ctx
	watchDir := a.Settings.WatchDir
	a.mu.Unlock()

	wailsruntime.OnFileDrop(ctx, func(_, _ int, paths []string) {
		a.Gateway.DropComplete(paths)
	})
	a.restartWatcher(watchDir)
}

// Shutdown stops the folder watcher and lets an in-flight run finish.
func (a *App) Shutdown(ctx context.Context) {
	a.restartWatcher("")

	waitCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if !a.Orchestrator.WaitAll(waitCtx) {
		log.Warn().Msg("run did not finish before shutdown")
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = nil
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics
// and the folder watcher.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	previousWatch := a.Settings.WatchDir
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	started := a.runtimeCtx != nil
	a.mu.Unlock()

	if started && previousWatch != normalized.WatchDir {
		a.restartWatcher(normalized.WatchDir)
	}
	return normalized, nil
}

// SelectFiles opens the native picker and queues the chosen archives.
// A cancelled dialog queues nothing.
func (a *App) SelectFiles() (int, error) {
	return a.Gateway.SelectFiles(context.Background(), a.picker)
}

// DropFiles queues paths dropped onto the web view.
func (a *App) DropFiles(paths []string) int {
	return a.Gateway.DropComplete(paths)
}

// SetDropHover toggles the drop-area hover hint.
func (a *App) SetDropHover(hover bool) {
	if hover {
		a.Gateway.HoverStart()
		return
	}
	a.Gateway.HoverCancel()
}

// ProcessFiles records the current option inputs and starts a run in the
// background. It reports false when a run is already in flight or the
// queue is empty.
func (a *App) ProcessFiles(raw domain.RawOptions) bool {
	a.mu.Lock()
	a.Settings.Options = raw
	settings := a.Settings
	a.mu.Unlock()

	if err := a.Store.Save(settings); err != nil {
		log.Warn().Err(err).Msg("persist option inputs failed")
	}

	_, started := a.Orchestrator.Start(context.Background())
	return started
}

// ListJobs returns the queue in insertion order.
func (a *App) ListJobs() []domain.Job {
	return a.Registry.All()
}

// ClearJobs empties the queue when no run is in flight.
func (a *App) ClearJobs() (int, error) {
	return a.Orchestrator.Clear()
}

// IsProcessing reports whether a run is in flight.
func (a *App) IsProcessing() bool {
	return a.Orchestrator.Processing()
}

// Summary counts queued jobs by status.
func (a *App) Summary() jobs.Summary {
	return jobs.Summarize(a.Registry.All())
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// OpenOutputFolder opens the folder holding the resized copy of the job at
// path. An empty path opens the configured output directory.
func (a *App) OpenOutputFolder(path string) error {
	a.mu.Lock()
	outputDir := a.Settings.OutputDir
	a.mu.Unlock()

	target := outputDir
	if input := strings.TrimSpace(path); input != "" {
		target = filepath.Dir(resize.NewEngine(outputDir).OutputPath(input))
	}
	if target == "" {
		return fmt.Errorf("output folder is not configured")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output folder: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output folder is not a directory: %s", target)
	}
	return a.openFolder(target)
}

// resolveOptions parses the current option inputs for a new run.
func (a *App) resolveOptions() domain.ProcessingOptions {
	a.mu.Lock()
	raw := a.Settings.Options
	a.mu.Unlock()
	return resolver.Resolve(raw)
}

// publishHover records drop-area hover changes.
func (a *App) publishHover(hover bool) {
	a.events.Publish(jobs.Event{Type: jobs.EventTypeDropHover, Hover: hover})
}

// emit pushes one published event to the frontend.
func (a *App) emit(event jobs.Event) {
	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "job:event", event)
	}
}

// restartWatcher replaces the folder watcher; an empty dir stops it.
func (a *App) restartWatcher(dir string) {
	a.mu.Lock()
	if a.stopWatcher != nil {
		a.stopWatcher()
		a.stopWatcher = nil
	}
	if dir == "" {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWatcher = cancel
	a.mu.Unlock()

	watcher := ingest.NewWatcher(ingest.WatchConfig{Dir: dir, InitialScan: true}, a.Gateway.Add)
	go func() {
		if err := watcher.Run(ctx); err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("folder watcher stopped")
		}
	}()
}

// settingsEngine runs the zip resizer against the current output directory.
type settingsEngine struct {
	app *App
}

// Process builds an engine for the configured output directory and runs it.
func (e *settingsEngine) Process(ctx context.Context, path string, opts *domain.ProcessingOptions) error {
	e.app.mu.Lock()
	outputDir := e.app.Settings.OutputDir
	e.app.mu.Unlock()
	return resize.NewEngine(outputDir).Process(ctx, path, opts)
}

// dialogPicker asks the user for archives through the native dialog.
type dialogPicker struct {
	app *App
}

// PickFiles opens a multi-select dialog filtered to zip archives.
func (p *dialogPicker) PickFiles(context.Context) ([]string, error) {
	ctx, err := p.app.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select zip archives",
		Filters: archiveDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(paths))
	for _, path := range paths {
		if trimmed := strings.TrimSpace(path); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out, nil
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies the default log level.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.WatchDir = strings.TrimSpace(settings.WatchDir)
	settings.LogLevel = strings.ToLower(strings.TrimSpace(settings.LogLevel))
	settings.Options.MaxWidth = strings.TrimSpace(settings.Options.MaxWidth)
	settings.Options.MaxHeight = strings.TrimSpace(settings.Options.MaxHeight)
	settings.Options.Quality = strings.TrimSpace(settings.Options.Quality)
	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}
	return settings
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}
