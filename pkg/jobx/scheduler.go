package jobx

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Scheduler enqueues jobs into a Store and dispatches due jobs to the
// handlers of a Registry. Construct one per process and run Start in
// its own goroutine.
type Scheduler struct {
	store    Store
	registry *Registry
	opts     Options

	sem      *semaphore.Weighted
	inflight atomic.Int64
	wg       sync.WaitGroup

	mu         sync.Mutex
	running    bool
	base       context.Context
	cancelBase context.CancelFunc
}

// New creates a scheduler. A nil registry is replaced by an empty one.
func New(store Store, registry *Registry, options ...Option) *Scheduler {
	opts := defaultOptions()
	for _, o := range options {
		o(&opts)
	}
	opts.normalize()

	if registry == nil {
		registry = NewRegistry()
	}

	base, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		store:      store,
		registry:   registry,
		opts:       opts,
		sem:        semaphore.NewWeighted(int64(opts.Concurrency)),
		base:       base,
		cancelBase: cancel,
	}
}

func (s *Scheduler) Registry() *Registry { return s.registry }

// Options returns the effective configuration after defaults.
func (s *Scheduler) Options() Options { return s.opts }

func (s *Scheduler) now() time.Time { return s.opts.Clock().UTC() }

// EnqueueOption customizes a single AddJob call.
type EnqueueOption func(*enqueueOptions)

type enqueueOptions struct {
	delay       time.Duration
	maxAttempts int
}

// WithDelay defers the job; it becomes due at enqueue time + d.
func WithDelay(d time.Duration) EnqueueOption {
	return func(o *enqueueOptions) {
		o.delay = d
	}
}

// WithMaxAttempts overrides the policy default. Values are clamped
// into 1..10.
func WithMaxAttempts(n int) EnqueueOption {
	return func(o *enqueueOptions) {
		o.maxAttempts = n
	}
}

// AddJob persists a pending job and returns its id. It never runs the
// job itself.
func (s *Scheduler) AddJob(ctx context.Context, jobType string, payload Payload, options ...EnqueueOption) (string, error) {
	var eo enqueueOptions
	for _, o := range options {
		o(&eo)
	}

	jobType = strings.TrimSpace(jobType)
	if jobType == "" {
		return "", jobxErrors.NewWithMessage(ErrInvalidJobSpec, "job type is required")
	}
	if eo.delay < 0 {
		return "", jobxErrors.NewWithMessage(ErrInvalidJobSpec, "delay must not be negative").
			WithDetail("delay", eo.delay.String())
	}

	normalized, err := normalizePayload(payload)
	if err != nil {
		return "", jobxErrors.NewWithCause(ErrInvalidJobSpec, err).WithDetail("job_type", jobType)
	}

	now := s.now()
	job := &Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     normalized,
		Status:      StatusPending,
		RunAt:       now.Add(eo.delay),
		MaxAttempts: s.opts.Retry.ClampMaxAttempts(eo.maxAttempts),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.store.Insert(ctx, job); err != nil {
		return "", err
	}

	s.opts.Observer.JobEnqueued(job)
	logx.WithFields(logx.Fields{
		"job_id":   job.ID,
		"job_type": job.Type,
		"run_at":   job.RunAt.Format(time.RFC3339),
	}).Debug("jobx: job enqueued")

	return job.ID, nil
}

// normalizePayload round-trips through JSON so every backend hands
// handlers the same shapes (numbers as float64, nested maps as
// map[string]any) and unserializable values are caught at enqueue.
func normalizePayload(p Payload) (Payload, error) {
	if p == nil {
		return Payload{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	out := Payload{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ScheduleEmail enqueues a send_email job with payload {kind, args}.
func (s *Scheduler) ScheduleEmail(ctx context.Context, kind string, args map[string]any, delay time.Duration) (string, error) {
	if strings.TrimSpace(kind) == "" {
		return "", jobxErrors.NewWithMessage(ErrInvalidJobSpec, "email kind is required")
	}
	if args == nil {
		args = map[string]any{}
	}
	return s.AddJob(ctx, TypeSendEmail, Payload{"kind": kind, "args": args}, WithDelay(delay))
}

// ScheduleRentalReminder enqueues a rental_reminder job due at when.
// A time in the past makes it due on the next tick.
func (s *Scheduler) ScheduleRentalReminder(ctx context.Context, rentalID kernel.RentalID, when time.Time) (string, error) {
	return s.scheduleRentalJob(ctx, TypeRentalReminder, rentalID, when)
}

// ScheduleReviewRequest enqueues a review_request job due at when.
func (s *Scheduler) ScheduleReviewRequest(ctx context.Context, rentalID kernel.RentalID, when time.Time) (string, error) {
	return s.scheduleRentalJob(ctx, TypeReviewRequest, rentalID, when)
}

func (s *Scheduler) scheduleRentalJob(ctx context.Context, jobType string, rentalID kernel.RentalID, when time.Time) (string, error) {
	if rentalID.IsEmpty() {
		return "", jobxErrors.NewWithMessage(ErrInvalidJobSpec, "rental id is required").WithDetail("job_type", jobType)
	}
	delay := max(when.Sub(s.now()), 0)
	return s.AddJob(ctx, jobType, Payload{"rentalId": rentalID.String()}, WithDelay(delay))
}

// CancelJob cancels a pending job. Running and terminal jobs yield
// ErrInvalidTransition; there is no cancellation of in-flight work.
func (s *Scheduler) CancelJob(ctx context.Context, id string) error {
	job, err := s.store.Cancel(ctx, id, s.now())
	if err != nil {
		return err
	}
	logx.WithFields(logx.Fields{"job_id": job.ID, "job_type": job.Type}).Info("jobx: job cancelled")
	return nil
}

func (s *Scheduler) GetStats(ctx context.Context) (Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Scheduler) GetJob(ctx context.Context, id string) (*Job, error) {
	return s.store.Get(ctx, id)
}

// ListJobs pages through jobs, newest first. An empty status lists all.
func (s *Scheduler) ListJobs(ctx context.Context, status Status, opts kernel.PaginationOptions) (kernel.Paginated[*Job], error) {
	if status != "" && !status.IsValid() {
		return kernel.Paginated[*Job]{}, jobxErrors.NewWithMessage(ErrInvalidJobSpec, "unknown job status").
			WithDetail("status", string(status))
	}
	return s.store.List(ctx, status, opts.Normalize(defaultPageSize, maxPageSize))
}

// Requeue re-enqueues a failed or cancelled job as a new job with the
// same type, payload and attempt ceiling. The original row is kept.
func (s *Scheduler) Requeue(ctx context.Context, id string) (string, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != StatusFailed && job.Status != StatusCancelled {
		return "", InvalidTransition(job.ID, job.Status, "requeue")
	}

	newID, err := s.AddJob(ctx, job.Type, job.Payload, WithMaxAttempts(job.MaxAttempts))
	if err != nil {
		return "", err
	}
	logx.WithFields(logx.Fields{
		"job_id":     newID,
		"job_type":   job.Type,
		"requeue_of": job.ID,
	}).Info("jobx: job requeued")
	return newID, nil
}
