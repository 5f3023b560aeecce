package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/divsage/pkg/logger"
)

type fakeJob struct {
	name     string
	schedule string
	runs     int
	err      error
}

func (j *fakeJob) Name() string                  { return j.name }
func (j *fakeJob) Schedule() string              { return j.schedule }
func (j *fakeJob) Run(ctx context.Context) error { j.runs++; return j.err }

func newTestScheduler() *Scheduler {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond
	return s
}

func TestScheduler_AddJob(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "refresh", schedule: "0 30 22 * * 1-5"}

	require.NoError(t, s.AddJob(job))

	err := s.AddJob(&fakeJob{name: "refresh", schedule: "@hourly"})
	assert.Error(t, err, "duplicate job names must be rejected")
}

func TestScheduler_AddJob_BadSchedule(t *testing.T) {
	s := newTestScheduler()
	err := s.AddJob(&fakeJob{name: "broken", schedule: "not a cron expression"})
	assert.Error(t, err)
}

func TestScheduler_RunJob_Unknown(t *testing.T) {
	s := newTestScheduler()
	assert.Error(t, s.RunJob("missing"))
}

func TestScheduler_RunJobRecordsHistory(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "refresh", schedule: "@hourly"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	stats := s.GetJobStats()
	stat, ok := stats["refresh"]
	require.True(t, ok)
	assert.Equal(t, 1, stat.TotalRuns)
	assert.Equal(t, 1.0, stat.SuccessRate)
	assert.Empty(t, stat.LastError)
	require.NotNil(t, stat.LastRun)
	assert.Equal(t, 1, job.runs)
}

func TestScheduler_RunJobRetriesUntilExhausted(t *testing.T) {
	s := newTestScheduler()
	job := &fakeJob{name: "refresh", schedule: "@hourly", err: errors.New("provider down")}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	stats := s.GetJobStats()
	stat := stats["refresh"]
	assert.Equal(t, 1, stat.TotalRuns)
	assert.Equal(t, 0.0, stat.SuccessRate)
	assert.Contains(t, stat.LastError, "provider down")
	assert.Equal(t, s.maxRetries+1, job.runs, "initial attempt plus retries")
}

func TestJobHistory_Window(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < historyWindow+10; i++ {
		h.AddResult(JobResult{JobName: "refresh", Success: i%2 == 0})
	}

	assert.Len(t, h.Results, historyWindow)
	require.NotNil(t, h.Latest())
}

func TestJobHistory_SuccessRate(t *testing.T) {
	h := &JobHistory{}
	assert.Equal(t, 0.0, h.SuccessRate())

	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: true})
	h.AddResult(JobResult{Success: false})
	h.AddResult(JobResult{Success: true})

	assert.InDelta(t, 0.75, h.SuccessRate(), 1e-9)
}
