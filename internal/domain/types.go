package domain

// JobStatus tracks one archive job through a batch run.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusDone       JobStatus = "done"
	JobStatusFailed     JobStatus = "failed"
)

// IsTerminal reports whether the status ends a dispatch.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusDone || s == JobStatusFailed
}

// Job is one queued archive keyed by its path.
type Job struct {
	Path   string    `json:"path"`
	Status JobStatus `json:"status"`
}

// ProcessingOptions is handed to the engine for every job of a run.
// A nil field means the engine default applies.
type ProcessingOptions struct {
	MaxWidth  *int `json:"maxWidth,omitempty"`
	MaxHeight *int `json:"maxHeight,omitempty"`
	Quality   *int `json:"quality,omitempty"`
}

// RawOptions holds option inputs exactly as the user typed them.
type RawOptions struct {
	MaxWidth  string `json:"maxWidth"`
	MaxHeight string `json:"maxHeight"`
	Quality   string `json:"quality"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	Options   RawOptions `json:"options"`
	OutputDir string     `json:"outputDir"`
	WatchDir  string     `json:"watchDir"`
	LogLevel  string     `json:"logLevel"`
}
