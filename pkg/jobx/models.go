package jobx

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Abraxas-365/rentify/pkg/ptrx"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending: {StatusRunning, StatusCancelled},
	StatusRunning: {StatusSucceeded, StatusPending, StatusFailed},
}

// CanTransitionTo reports whether next is a legal edge from s.
// running -> pending is the retry edge.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus accepts the empty string as "any status".
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if raw == "" || s.IsValid() {
		return s, nil
	}
	return "", jobxErrors.NewWithMessage(ErrInvalidJobSpec, fmt.Sprintf("unknown job status %q", raw))
}

// Payload is the opaque key/value data a handler receives. It is stored
// as JSON by every backend.
type Payload map[string]any

func (p Payload) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *Payload) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*p = Payload{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jobx: cannot scan %T into Payload", src)
	}
	out := Payload{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*p = out
	return nil
}

// String returns the string value stored under key, or "".
func (p Payload) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Job is a durable record of deferred work.
type Job struct {
	ID          string     `db:"id" json:"id"`
	Type        string     `db:"type" json:"type"`
	Payload     Payload    `db:"payload" json:"payload"`
	Status      Status     `db:"status" json:"status"`
	RunAt       time.Time  `db:"run_at" json:"runAt"`
	Attempts    int        `db:"attempts" json:"attempts"`
	MaxAttempts int        `db:"max_attempts" json:"maxAttempts"`
	LastError   string     `db:"last_error" json:"lastError,omitempty"`
	ClaimedAt   *time.Time `db:"claimed_at" json:"claimedAt,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsDue reports whether the job may be claimed at now.
func (j *Job) IsDue(now time.Time) bool {
	return j.Status == StatusPending && !j.RunAt.After(now)
}

// HasAttemptsLeft reports whether a failure of the current attempt may
// be retried.
func (j *Job) HasAttemptsLeft() bool {
	return j.Attempts < j.MaxAttempts
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Payload = clonePayload(j.Payload)
	if j.ClaimedAt != nil {
		c.ClaimedAt = ptrx.Of(*j.ClaimedAt)
	}
	return &c
}

func clonePayload(p Payload) Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, e := range t {
			m[k] = cloneValue(e)
		}
		return m
	case Payload:
		return clonePayload(t)
	case []any:
		s := make([]any, len(t))
		for i, e := range t {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// Stats is the aggregate job count per status.
type Stats struct {
	Pending   int64 `json:"pendingCount"`
	Running   int64 `json:"runningCount"`
	Succeeded int64 `json:"succeededCount"`
	Failed    int64 `json:"failedCount"`
	Cancelled int64 `json:"cancelledCount"`
}

// Add increments the counter for status by n.
func (s *Stats) Add(status Status, n int64) {
	switch status {
	case StatusPending:
		s.Pending += n
	case StatusRunning:
		s.Running += n
	case StatusSucceeded:
		s.Succeeded += n
	case StatusFailed:
		s.Failed += n
	case StatusCancelled:
		s.Cancelled += n
	}
}

func (s Stats) Total() int64 {
	return s.Pending + s.Running + s.Succeeded + s.Failed + s.Cancelled
}

// ReapResult counts the outcome of a stale-claim reconciliation pass.
type ReapResult struct {
	Requeued int
	Failed   int
}
