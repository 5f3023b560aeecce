package scheduler

import (
	"context"
	"time"
)

// Job is a scheduled unit of work
// SSOT: the job interface is defined here only
type Job interface {
	// Name returns the job name
	Name() string

	// Run executes the job
	Run(ctx context.Context) error

	// Schedule returns the cron expression, seconds field included.
	// Examples: "0 0 22 * * 1-5" (22:00 UTC on weekdays), "@hourly"
	Schedule() string
}

// JobResult is one job execution outcome
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps a bounded window of recent results per job
type JobHistory struct {
	Results []JobResult
}

// historyWindow caps retained results per job
const historyWindow = 100

// AddResult appends a result, evicting the oldest past the window
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyWindow {
		h.Results = h.Results[len(h.Results)-historyWindow:]
	}
}

// Latest returns the most recent result, nil when none exist
func (h *JobHistory) Latest() *JobResult {
	if len(h.Results) == 0 {
		return nil
	}
	return &h.Results[len(h.Results)-1]
}

// SuccessRate returns the fraction of successful runs in the window
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	success := 0
	for _, result := range h.Results {
		if result.Success {
			success++
		}
	}
	return float64(success) / float64(len(h.Results))
}
