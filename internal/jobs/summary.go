package jobs

import (
	"github.com/samber/lo"

	"zip-resizer/internal/domain"
)

// Summary counts jobs by status.
type Summary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Done       int `json:"done"`
	Failed     int `json:"failed"`
}

// Summarize builds a Summary from a registry snapshot.
func Summarize(list []domain.Job) Summary {
	counts := lo.CountValuesBy(list, func(job domain.Job) domain.JobStatus {
		return job.Status
	})
	return Summary{
		Total:      len(list),
		Pending:    counts[domain.JobStatusPending],
		Processing: counts[domain.JobStatusProcessing],
		Done:       counts[domain.JobStatusDone],
		Failed:     counts[domain.JobStatusFailed],
	}
}
