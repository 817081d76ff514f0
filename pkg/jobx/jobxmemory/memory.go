// Package jobxmemory is an in-process jobx.Store for tests, local
// development and single-node deployments that accept losing jobs on
// restart.
package jobxmemory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/Abraxas-365/rentify/pkg/ptrx"
)

// Store keeps jobs in a map guarded by a mutex. Jobs are copied on the
// way in and out.
type Store struct {
	mu   sync.Mutex
	jobs map[string]*jobx.Job
}

var _ jobx.Store = (*Store)(nil)

func New() *Store {
	return &Store{jobs: make(map[string]*jobx.Job)}
}

func (s *Store) Insert(_ context.Context, job *jobx.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return jobx.NewError(jobx.ErrInvalidJobSpec).WithDetail("job_id", job.ID).WithDetail("reason", "duplicate id")
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) Get(_ context.Context, id string) (*jobx.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, jobx.NotFound(id)
	}
	return job.Clone(), nil
}

func (s *Store) FindDue(_ context.Context, now time.Time, limit int) ([]*jobx.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []*jobx.Job
	for _, job := range s.jobs {
		if job.IsDue(now) {
			due = append(due, job)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].RunAt.Equal(due[j].RunAt) {
			return due[i].CreatedAt.Before(due[j].CreatedAt)
		}
		return due[i].RunAt.Before(due[j].RunAt)
	})
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]*jobx.Job, len(due))
	for i, job := range due {
		out[i] = job.Clone()
	}
	return out, nil
}

func (s *Store) Claim(_ context.Context, id string, now time.Time) (*jobx.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || !job.IsDue(now) {
		return nil, jobx.ClaimConflict(id)
	}
	job.Status = jobx.StatusRunning
	job.Attempts++
	job.ClaimedAt = ptrx.Of(now)
	job.UpdatedAt = now
	return job.Clone(), nil
}

// held returns the job when it is still running under attempt.
func (s *Store) held(id string, attempt int) (*jobx.Job, error) {
	job, ok := s.jobs[id]
	if !ok || job.Status != jobx.StatusRunning || job.Attempts != attempt {
		return nil, jobx.ClaimConflict(id)
	}
	return job, nil
}

func (s *Store) Complete(_ context.Context, id string, attempt int, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := s.held(id, attempt)
	if err != nil {
		return err
	}
	job.Status = jobx.StatusSucceeded
	job.ClaimedAt = nil
	job.UpdatedAt = now
	return nil
}

func (s *Store) Retry(_ context.Context, id string, attempt int, runAt time.Time, lastError string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := s.held(id, attempt)
	if err != nil {
		return err
	}
	job.Status = jobx.StatusPending
	job.RunAt = runAt
	job.LastError = lastError
	job.ClaimedAt = nil
	job.UpdatedAt = now
	return nil
}

func (s *Store) Fail(_ context.Context, id string, attempt int, lastError string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, err := s.held(id, attempt)
	if err != nil {
		return err
	}
	job.Status = jobx.StatusFailed
	job.LastError = lastError
	job.ClaimedAt = nil
	job.UpdatedAt = now
	return nil
}

func (s *Store) Cancel(_ context.Context, id string, now time.Time) (*jobx.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, jobx.NotFound(id)
	}
	if !job.Status.CanTransitionTo(jobx.StatusCancelled) {
		return nil, jobx.InvalidTransition(id, job.Status, "cancel")
	}
	job.Status = jobx.StatusCancelled
	job.UpdatedAt = now
	return job.Clone(), nil
}

func (s *Store) Stats(_ context.Context) (jobx.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var stats jobx.Stats
	for _, job := range s.jobs {
		stats.Add(job.Status, 1)
	}
	return stats, nil
}

func (s *Store) List(_ context.Context, status jobx.Status, opts kernel.PaginationOptions) (kernel.Paginated[*jobx.Job], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []*jobx.Job
	for _, job := range s.jobs {
		if status == "" || job.Status == status {
			matched = append(matched, job)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID > matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	start := min(opts.Offset(), total)
	end := min(start+opts.PageSize, total)

	items := make([]*jobx.Job, 0, end-start)
	for _, job := range matched[start:end] {
		items = append(items, job.Clone())
	}
	return kernel.NewPaginated(items, opts.Page, opts.PageSize, total), nil
}

func (s *Store) RequeueStale(_ context.Context, claimedBefore, now time.Time) (jobx.ReapResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res jobx.ReapResult
	for _, job := range s.jobs {
		if job.Status != jobx.StatusRunning || job.ClaimedAt == nil || !job.ClaimedAt.Before(claimedBefore) {
			continue
		}
		job.LastError = jobx.StaleClaimMessage
		job.ClaimedAt = nil
		job.UpdatedAt = now
		if job.HasAttemptsLeft() {
			job.Status = jobx.StatusPending
			job.RunAt = now
			res.Requeued++
		} else {
			job.Status = jobx.StatusFailed
			res.Failed++
		}
	}
	return res, nil
}

func (s *Store) Prune(_ context.Context, updatedBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, job := range s.jobs {
		if job.Status.IsTerminal() && job.UpdatedAt.Before(updatedBefore) {
			delete(s.jobs, id)
			n++
		}
	}
	return n, nil
}
