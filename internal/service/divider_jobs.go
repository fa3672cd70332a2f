package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/wfm-timesheet/internal/models"
	appErrors "github.com/noah-isme/wfm-timesheet/pkg/errors"
	"github.com/noah-isme/wfm-timesheet/pkg/jobs"
)

// Divider job states.
const (
	JobStateQueued   = "queued"
	JobStateRunning  = "running"
	JobStateRetrying = "retrying"
	JobStateDone     = "done"
	JobStateFailed   = "failed"
)

const (
	dividerJobType     = "timesheet.calc"
	maxTrackedStatuses = 1024
)

type calcRunner interface {
	CalcTimesheet(ctx context.Context, employeeIDs []string, dtFrom, dtTo time.Time, reraise bool) (models.CalcStats, error)
}

// DividerJob asks for a recalculation of the given employees over a date range.
type DividerJob struct {
	EmployeeIDs []string  `json:"employee_ids"`
	DtFrom      time.Time `json:"dt_from"`
	DtTo        time.Time `json:"dt_to"`
	RequestID   string    `json:"request_id,omitempty"`
}

// DividerJobStatus is the last known state of an enqueued job.
type DividerJobStatus struct {
	ID         string            `json:"id"`
	State      string            `json:"state"`
	Attempts   int               `json:"attempts"`
	Stats      *models.CalcStats `json:"stats,omitempty"`
	Error      string            `json:"error,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

// DividerJobs runs calc_timesheet requests on the background worker pool.
type DividerJobs struct {
	queue      *jobs.Queue
	runner     calcRunner
	metrics    *MetricsService
	logger     *zap.Logger
	maxRetries int

	mu       sync.RWMutex
	statuses map[string]*DividerJobStatus
	order    []string
}

// NewDividerJobs wires the queue so that only transient storage failures are retried.
func NewDividerJobs(runner calcRunner, metrics *MetricsService, logger *zap.Logger, cfg jobs.QueueConfig) *DividerJobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &DividerJobs{
		runner:     runner,
		metrics:    metrics,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		statuses:   make(map[string]*DividerJobStatus),
	}
	cfg.Retryable = appErrors.IsRetryable
	cfg.OnFinish = d.finish
	cfg.Logger = logger
	d.queue = jobs.NewQueue("timesheet-divider", d.handle, cfg)
	return d
}

// Start launches the workers.
func (d *DividerJobs) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop cancels running jobs and waits for the workers.
func (d *DividerJobs) Stop() {
	d.queue.Stop()
}

// Enqueue schedules a job and returns its id.
func (d *DividerJobs) Enqueue(job DividerJob) (string, error) {
	if len(uniqueStrings(job.EmployeeIDs)) == 0 {
		return "", appErrors.Clone(appErrors.ErrValidation, "at least one employee id is required")
	}
	if job.DtTo.Before(job.DtFrom) {
		return "", appErrors.Clone(appErrors.ErrValidation, "dt_to must not be before dt_from")
	}
	id := uuid.NewString()
	now := time.Now().UTC()
	d.track(&DividerJobStatus{ID: id, State: JobStateQueued, EnqueuedAt: now})

	if err := d.queue.Enqueue(jobs.Job{ID: id, Type: dividerJobType, Payload: job, Enqueued: now}); err != nil {
		d.update(id, func(s *DividerJobStatus) {
			s.State = JobStateFailed
			s.Error = err.Error()
			s.FinishedAt = &now
		})
		d.metrics.ObserveQueueJob("rejected")
		return id, appErrors.Wrap(err, "QUEUE_UNAVAILABLE", http.StatusServiceUnavailable, "divider queue unavailable")
	}
	return id, nil
}

// Status returns a copy of the tracked job status.
func (d *DividerJobs) Status(id string) (DividerJobStatus, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	status, ok := d.statuses[id]
	if !ok {
		return DividerJobStatus{}, false
	}
	return *status, true
}

func (d *DividerJobs) handle(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(DividerJob)
	if !ok {
		return appErrors.Configuration("unexpected payload %T for job %s", job.Payload, job.ID)
	}
	d.update(job.ID, func(s *DividerJobStatus) {
		s.State = JobStateRunning
		s.Attempts = job.Attempt + 1
	})

	stats, err := d.runner.CalcTimesheet(ctx, payload.EmployeeIDs, payload.DtFrom, payload.DtTo, false)
	d.update(job.ID, func(s *DividerJobStatus) {
		s.Stats = &stats
	})
	if err != nil {
		return err
	}
	for _, e := range stats.Errors {
		if appErrors.IsRetryableCode(e.Code) {
			return appErrors.Wrap(errors.New(e.Message), e.Code, http.StatusServiceUnavailable, "employee-month failed transiently")
		}
	}
	return nil
}

func (d *DividerJobs) finish(job jobs.Job, err error, duration time.Duration) {
	now := time.Now().UTC()
	outcome := OutcomeSuccess
	d.update(job.ID, func(s *DividerJobStatus) {
		switch {
		case err == nil:
			s.State = JobStateDone
			s.Error = ""
			s.FinishedAt = &now
		case appErrors.IsRetryable(err) && job.Attempt < d.maxRetries:
			s.State = JobStateRetrying
			s.Error = err.Error()
			outcome = OutcomeRetried
		default:
			s.State = JobStateFailed
			s.Error = err.Error()
			s.FinishedAt = &now
			outcome = OutcomeFailed
		}
	})
	d.metrics.ObserveQueueJob(outcome)
	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.Int("attempt", job.Attempt+1),
		zap.String("outcome", outcome),
		zap.Duration("duration", duration),
	}
	if payload, ok := job.Payload.(DividerJob); ok && payload.RequestID != "" {
		fields = append(fields, zap.String("request_id", payload.RequestID))
	}
	d.logger.Info("divider job finished", fields...)
}

func (d *DividerJobs) track(status *DividerJobStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[status.ID] = status
	d.order = append(d.order, status.ID)
	for len(d.order) > maxTrackedStatuses {
		delete(d.statuses, d.order[0])
		d.order = d.order[1:]
	}
}

func (d *DividerJobs) update(id string, apply func(*DividerJobStatus)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if status, ok := d.statuses[id]; ok {
		apply(status)
	}
}
