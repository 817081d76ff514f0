package jobx

import "time"

// Outcome is how one dispatched attempt ended.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeRetried   Outcome = "retried"
	OutcomeFailed    Outcome = "failed"
	// OutcomeLost means the final status write lost its guard because
	// the claim was reaped or taken over.
	OutcomeLost Outcome = "lost"
)

// Observer receives scheduler events. Implementations must be fast and
// safe for concurrent use; they run on dispatch goroutines.
type Observer interface {
	JobEnqueued(job *Job)
	JobClaimed(job *Job)
	JobFinished(job *Job, outcome Outcome, elapsed time.Duration)
	JobsReaped(result ReapResult)
}

type nopObserver struct{}

func (nopObserver) JobEnqueued(*Job)                         {}
func (nopObserver) JobClaimed(*Job)                          {}
func (nopObserver) JobFinished(*Job, Outcome, time.Duration) {}
func (nopObserver) JobsReaped(ReapResult)                    {}
