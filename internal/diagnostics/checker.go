package diagnostics

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"zip-resizer/internal/domain"
	"zip-resizer/internal/options"
	"zip-resizer/internal/resize"
)

// Checker validates configured directories and option inputs.
type Checker struct {
	stat       func(string) (os.FileInfo, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
	now        func() time.Time
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker() *Checker {
	return &Checker{
		stat:       os.Stat,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
		now:        time.Now,
	}
}

// Run executes all startup checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	return domain.NewDiagnosticReport(c.now(),
		c.checkOptions(settings.Options),
		c.checkOutputDir(settings.OutputDir),
		c.checkWatchDir(settings.WatchDir),
	)
}

// checkOptions reports option values the engine would reject.
func (c *Checker) checkOptions(raw domain.RawOptions) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "options",
		Name: "Resize options",
	}

	resolved := options.Resolve(raw)
	if _, err := resize.NewOptions(&resolved); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = err.Error()
		item.Hint = "Use positive size limits and a quality between 0 and 100, or leave a field empty for the default."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = "Options are valid."
	return item
}

// checkOutputDir validates output directory existence and write access.
// An empty value means outputs are written next to each archive.
func (c *Checker) checkOutputDir(outputDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "output_dir",
		Name: "Output directory",
	}

	if strings.TrimSpace(outputDir) == "" {
		item.Status = domain.DiagnosticStatusSkip
		item.Message = "Resized archives are written next to their source."
		return item
	}

	if err := c.mkdirAll(outputDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create output directory: %s", outputDir)
		item.Hint = "Choose a writable location or adjust filesystem permissions."
		return item
	}

	tmpFile, err := c.createTemp(outputDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Output directory is not writable: %s", outputDir)
		item.Hint = "Choose a writable directory for resized archives."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", outputDir)
	return item
}

// checkWatchDir validates the optional inbox directory.
func (c *Checker) checkWatchDir(watchDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "watch_dir",
		Name: "Watch directory",
	}

	if strings.TrimSpace(watchDir) == "" {
		item.Status = domain.DiagnosticStatusSkip
		item.Message = "Folder watching is disabled."
		return item
	}

	info, err := c.stat(watchDir)
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		if IsNotExist(err) {
			item.Message = fmt.Sprintf("Watch directory does not exist: %s", watchDir)
		} else {
			item.Message = fmt.Sprintf("Cannot access watch directory: %s", watchDir)
		}
		item.Hint = "Create the directory or clear the setting."
		return item
	}
	if !info.IsDir() {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Watch path is not a directory: %s", watchDir)
		item.Hint = "Point the setting at a folder."
		return item
	}

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Watching %s", watchDir)
	return item
}

// NewCheckerForTests creates checker with injectable dependencies.
func NewCheckerForTests(
	stat func(string) (os.FileInfo, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		stat:       stat,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
		now:        time.Now,
	}
}

// IsNotExist reports whether error represents file-not-found.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
