// Package jobxredis stores jobs in Redis. State changes run as Lua
// scripts so each transition is atomic on the server.
package jobxredis

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/redis/go-redis/v9"
)

const keepLastError = "\x00"

// Store implements jobx.Store on Redis hashes and sorted sets.
type Store struct {
	rdb    redis.UniversalClient
	prefix string
}

var _ jobx.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Default "jobx".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

func New(rdb redis.UniversalClient, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: "jobx"}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) jobKey(id string) string   { return s.prefix + ":job:" + id }
func (s *Store) indexKey(st string) string { return s.prefix + ":idx:" + st }

func millis(t time.Time) int64 { return t.UnixMilli() }

func (s *Store) Insert(ctx context.Context, job *jobx.Job) error {
	payload, err := json.Marshal(job.Payload)
	if err != nil {
		return redisErrors.NewWithCause(ErrMarshal, err).WithDetail("job_id", job.ID)
	}

	ok, err := insertScript.Run(ctx, s.rdb, nil,
		s.prefix, job.ID, job.Type, string(payload),
		millis(job.RunAt), job.Attempts, job.MaxAttempts,
		millis(job.CreatedAt), millis(job.UpdatedAt),
	).Int()
	if err != nil {
		return commandError(err, "insert").WithDetail("job_id", job.ID)
	}
	if ok == 0 {
		return redisErrors.New(ErrDuplicate).WithDetail("job_id", job.ID)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobx.Job, error) {
	fields, err := s.rdb.HGetAll(ctx, s.jobKey(id)).Result()
	if err != nil {
		return nil, commandError(err, "get").WithDetail("job_id", id)
	}
	if len(fields) == 0 {
		return nil, jobx.NotFound(id)
	}
	return decodeJob(fields)
}

// load fetches jobs by id in one round trip, skipping ids deleted in
// between.
func (s *Store) load(ctx context.Context, ids []string) ([]*jobx.Job, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	pipe := s.rdb.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, s.jobKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, commandError(err, "load")
	}

	jobs := make([]*jobx.Job, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}
		job, err := decodeJob(fields)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Store) FindDue(ctx context.Context, now time.Time, limit int) ([]*jobx.Job, error) {
	ids, err := s.rdb.ZRangeByScore(ctx, s.prefix+":due", &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(millis(now), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, commandError(err, "find_due")
	}
	return s.load(ctx, ids)
}

func (s *Store) Claim(ctx context.Context, id string, now time.Time) (*jobx.Job, error) {
	res, err := claimScript.Run(ctx, s.rdb, nil, s.prefix, id, millis(now)).Result()
	if err != nil {
		return nil, commandError(err, "claim").WithDetail("job_id", id)
	}
	flat, ok := res.([]any)
	if !ok {
		return nil, jobx.ClaimConflict(id)
	}

	fields := make(map[string]string, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		k, _ := flat[i].(string)
		v, _ := flat[i+1].(string)
		fields[k] = v
	}
	return decodeJob(fields)
}

func (s *Store) finish(ctx context.Context, op, id string, attempt int, to jobx.Status, now time.Time, lastError string, runAt time.Time) error {
	ok, err := finishScript.Run(ctx, s.rdb, nil,
		s.prefix, id, attempt, string(to), millis(now), lastError, millis(runAt),
	).Int()
	if err != nil {
		return commandError(err, op).WithDetail("job_id", id)
	}
	if ok == 0 {
		return jobx.ClaimConflict(id)
	}
	return nil
}

func (s *Store) Complete(ctx context.Context, id string, attempt int, now time.Time) error {
	return s.finish(ctx, "complete", id, attempt, jobx.StatusSucceeded, now, keepLastError, now)
}

func (s *Store) Retry(ctx context.Context, id string, attempt int, runAt time.Time, lastError string, now time.Time) error {
	return s.finish(ctx, "retry", id, attempt, jobx.StatusPending, now, lastError, runAt)
}

func (s *Store) Fail(ctx context.Context, id string, attempt int, lastError string, now time.Time) error {
	return s.finish(ctx, "fail", id, attempt, jobx.StatusFailed, now, lastError, now)
}

func (s *Store) Cancel(ctx context.Context, id string, now time.Time) (*jobx.Job, error) {
	res, err := cancelScript.Run(ctx, s.rdb, nil, s.prefix, id, millis(now)).Text()
	if err != nil {
		return nil, commandError(err, "cancel").WithDetail("job_id", id)
	}
	switch res {
	case "ok":
		return s.Get(ctx, id)
	case "":
		return nil, jobx.NotFound(id)
	default:
		return nil, jobx.InvalidTransition(id, jobx.Status(res), "cancel")
	}
}

func (s *Store) Stats(ctx context.Context) (jobx.Stats, error) {
	pipe := s.rdb.Pipeline()
	cmds := make(map[jobx.Status]*redis.IntCmd, len(jobx.Statuses))
	for _, st := range jobx.Statuses {
		cmds[st] = pipe.ZCard(ctx, s.indexKey(string(st)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return jobx.Stats{}, commandError(err, "stats")
	}

	var stats jobx.Stats
	for st, cmd := range cmds {
		stats.Add(st, cmd.Val())
	}
	return stats, nil
}

func (s *Store) List(ctx context.Context, status jobx.Status, opts kernel.PaginationOptions) (kernel.Paginated[*jobx.Job], error) {
	index := s.indexKey("all")
	if status != "" {
		index = s.indexKey(string(status))
	}

	total, err := s.rdb.ZCard(ctx, index).Result()
	if err != nil {
		return kernel.Paginated[*jobx.Job]{}, commandError(err, "list_count")
	}
	if opts.PageSize <= 0 {
		return kernel.NewPaginated[*jobx.Job](nil, opts.Page, opts.PageSize, int(total)), nil
	}

	start := int64(opts.Offset())
	ids, err := s.rdb.ZRevRange(ctx, index, start, start+int64(opts.PageSize)-1).Result()
	if err != nil {
		return kernel.Paginated[*jobx.Job]{}, commandError(err, "list")
	}
	jobs, err := s.load(ctx, ids)
	if err != nil {
		return kernel.Paginated[*jobx.Job]{}, err
	}
	return kernel.NewPaginated(jobs, opts.Page, opts.PageSize, int(total)), nil
}

func (s *Store) RequeueStale(ctx context.Context, claimedBefore, now time.Time) (jobx.ReapResult, error) {
	counts, err := reapScript.Run(ctx, s.rdb, nil,
		s.prefix, millis(claimedBefore), millis(now), jobx.StaleClaimMessage,
	).Int64Slice()
	if err != nil {
		return jobx.ReapResult{}, commandError(err, "requeue_stale")
	}
	if len(counts) != 2 {
		return jobx.ReapResult{}, commandError(errors.New("unexpected reply"), "requeue_stale")
	}
	return jobx.ReapResult{Requeued: int(counts[0]), Failed: int(counts[1])}, nil
}

func (s *Store) Prune(ctx context.Context, updatedBefore time.Time) (int64, error) {
	n, err := pruneScript.Run(ctx, s.rdb, nil, s.prefix, millis(updatedBefore)).Int64()
	if err != nil {
		return 0, commandError(err, "prune")
	}
	return n, nil
}
