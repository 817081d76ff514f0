// Package jobxpostgres stores jobs in PostgreSQL. Every state change is
// a single conditional UPDATE so concurrent workers in any number of
// processes never both win a claim.
package jobxpostgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const columns = `id, type, payload, status, run_at, attempts, max_attempts, last_error, claimed_at, created_at, updated_at`

// Store implements jobx.Store on a jobx_jobs table.
type Store struct {
	db *sqlx.DB
}

var _ jobx.Store = (*Store)(nil)

func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Insert(ctx context.Context, job *jobx.Job) error {
	query := `
		INSERT INTO jobx_jobs (` + columns + `)
		VALUES (:id, :type, :payload, :status, :run_at, :attempts, :max_attempts, :last_error, :claimed_at, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, query, job); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return pgErrors.New(ErrDuplicate).WithDetail("job_id", job.ID)
		}
		return queryError(err, "insert").WithDetail("job_id", job.ID)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobx.Job, error) {
	query := `SELECT ` + columns + ` FROM jobx_jobs WHERE id = $1`

	var job jobx.Job
	if err := s.db.GetContext(ctx, &job, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobx.NotFound(id)
		}
		return nil, queryError(err, "get").WithDetail("job_id", id)
	}
	return &job, nil
}

func (s *Store) FindDue(ctx context.Context, now time.Time, limit int) ([]*jobx.Job, error) {
	query := `
		SELECT ` + columns + `
		FROM jobx_jobs
		WHERE status = 'pending' AND run_at <= $1
		ORDER BY run_at, created_at
		LIMIT $2`

	var jobs []*jobx.Job
	if err := s.db.SelectContext(ctx, &jobs, query, now, limit); err != nil {
		return nil, queryError(err, "find_due")
	}
	return jobs, nil
}

func (s *Store) Claim(ctx context.Context, id string, now time.Time) (*jobx.Job, error) {
	query := `
		UPDATE jobx_jobs
		SET status = 'running', attempts = attempts + 1, claimed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending' AND run_at <= $2
		RETURNING ` + columns

	var job jobx.Job
	if err := s.db.GetContext(ctx, &job, query, id, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, jobx.ClaimConflict(id)
		}
		return nil, queryError(err, "claim").WithDetail("job_id", id)
	}
	return &job, nil
}

// finish applies a guarded update to a running job.
func (s *Store) finish(ctx context.Context, op, id string, attempt int, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, append([]any{id, attempt}, args...)...)
	if err != nil {
		return queryError(err, op).WithDetail("job_id", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return queryError(err, op).WithDetail("job_id", id)
	}
	if n == 0 {
		return jobx.ClaimConflict(id)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string, attempt int, now time.Time) error {
	return s.finish(ctx, "complete", id, attempt, `
		UPDATE jobx_jobs
		SET status = 'succeeded', claimed_at = NULL, updated_at = $3
		WHERE id = $1 AND status = 'running' AND attempts = $2`, now)
}

func (s *Store) Retry(ctx context.Context, id string, attempt int, runAt time.Time, lastError string, now time.Time) error {
	return s.finish(ctx, "retry", id, attempt, `
		UPDATE jobx_jobs
		SET status = 'pending', run_at = $3, last_error = $4, claimed_at = NULL, updated_at = $5
		WHERE id = $1 AND status = 'running' AND attempts = $2`, runAt, lastError, now)
}

func (s *Store) Fail(ctx context.Context, id string, attempt int, lastError string, now time.Time) error {
	return s.finish(ctx, "fail", id, attempt, `
		UPDATE jobx_jobs
		SET status = 'failed', last_error = $3, claimed_at = NULL, updated_at = $4
		WHERE id = $1 AND status = 'running' AND attempts = $2`, lastError, now)
}

func (s *Store) Cancel(ctx context.Context, id string, now time.Time) (*jobx.Job, error) {
	query := `
		UPDATE jobx_jobs
		SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + columns

	var job jobx.Job
	err := s.db.GetContext(ctx, &job, query, id, now)
	if err == nil {
		return &job, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, queryError(err, "cancel").WithDetail("job_id", id)
	}

	current, getErr := s.Get(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, jobx.InvalidTransition(id, current.Status, "cancel")
}

func (s *Store) Stats(ctx context.Context) (jobx.Stats, error) {
	var rows []struct {
		Status jobx.Status `db:"status"`
		Count  int64       `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows, `SELECT status, COUNT(*) AS count FROM jobx_jobs GROUP BY status`); err != nil {
		return jobx.Stats{}, queryError(err, "stats")
	}

	var stats jobx.Stats
	for _, r := range rows {
		stats.Add(r.Status, r.Count)
	}
	return stats, nil
}

func (s *Store) List(ctx context.Context, status jobx.Status, opts kernel.PaginationOptions) (kernel.Paginated[*jobx.Job], error) {
	var total int
	if err := s.db.GetContext(ctx, &total,
		`SELECT COUNT(*) FROM jobx_jobs WHERE ($1 = '' OR status = $1)`, string(status)); err != nil {
		return kernel.Paginated[*jobx.Job]{}, queryError(err, "list_count")
	}

	query := `
		SELECT ` + columns + `
		FROM jobx_jobs
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`

	var jobs []*jobx.Job
	if err := s.db.SelectContext(ctx, &jobs, query, string(status), opts.PageSize, opts.Offset()); err != nil {
		return kernel.Paginated[*jobx.Job]{}, queryError(err, "list")
	}
	return kernel.NewPaginated(jobs, opts.Page, opts.PageSize, total), nil
}

func (s *Store) RequeueStale(ctx context.Context, claimedBefore, now time.Time) (jobx.ReapResult, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return jobx.ReapResult{}, queryError(err, "requeue_stale")
	}
	defer func() { _ = tx.Rollback() }()

	requeued, err := execCount(ctx, tx, `
		UPDATE jobx_jobs
		SET status = 'pending', run_at = $2, last_error = $3, claimed_at = NULL, updated_at = $2
		WHERE status = 'running' AND claimed_at < $1 AND attempts < max_attempts`,
		claimedBefore, now, jobx.StaleClaimMessage)
	if err != nil {
		return jobx.ReapResult{}, err
	}

	failed, err := execCount(ctx, tx, `
		UPDATE jobx_jobs
		SET status = 'failed', last_error = $3, claimed_at = NULL, updated_at = $2
		WHERE status = 'running' AND claimed_at < $1 AND attempts >= max_attempts`,
		claimedBefore, now, jobx.StaleClaimMessage)
	if err != nil {
		return jobx.ReapResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return jobx.ReapResult{}, queryError(err, "requeue_stale")
	}
	return jobx.ReapResult{Requeued: int(requeued), Failed: int(failed)}, nil
}

func execCount(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, queryError(err, "requeue_stale")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError(err, "requeue_stale")
	}
	return n, nil
}

func (s *Store) Prune(ctx context.Context, updatedBefore time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM jobx_jobs
		WHERE status IN ('succeeded', 'failed', 'cancelled') AND updated_at < $1`, updatedBefore)
	if err != nil {
		return 0, queryError(err, "prune")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, queryError(err, "prune")
	}
	return n, nil
}
