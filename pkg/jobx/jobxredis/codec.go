package jobxredis

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/ptrx"
)

func decodeJob(f map[string]string) (*jobx.Job, error) {
	job := &jobx.Job{
		ID:        f["id"],
		Type:      f["type"],
		Status:    jobx.Status(f["status"]),
		LastError: f["last_error"],
	}

	var err error
	if job.Attempts, err = strconv.Atoi(f["attempts"]); err != nil {
		return nil, unmarshalError(job.ID, "attempts", err)
	}
	if job.MaxAttempts, err = strconv.Atoi(f["max_attempts"]); err != nil {
		return nil, unmarshalError(job.ID, "max_attempts", err)
	}

	for field, dst := range map[string]*time.Time{
		"run_at":     &job.RunAt,
		"created_at": &job.CreatedAt,
		"updated_at": &job.UpdatedAt,
	} {
		if *dst, err = parseMillis(f[field]); err != nil {
			return nil, unmarshalError(job.ID, field, err)
		}
	}
	if raw := f["claimed_at"]; raw != "" {
		t, err := parseMillis(raw)
		if err != nil {
			return nil, unmarshalError(job.ID, "claimed_at", err)
		}
		job.ClaimedAt = ptrx.Of(t)
	}

	job.Payload = jobx.Payload{}
	if raw := f["payload"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &job.Payload); err != nil {
			return nil, unmarshalError(job.ID, "payload", err)
		}
	}
	return job, nil
}

func parseMillis(raw string) (time.Time, error) {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func unmarshalError(id, field string, err error) error {
	return redisErrors.NewWithCause(ErrUnmarshal, err).
		WithDetail("job_id", id).
		WithDetail("field", field)
}
