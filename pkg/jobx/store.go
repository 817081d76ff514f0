package jobx

import (
	"context"
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
)

// JobWriter creates and cancels jobs.
type JobWriter interface {
	Insert(ctx context.Context, job *Job) error
	// Cancel moves a pending job to cancelled. Any other status yields
	// ErrInvalidTransition, a missing id ErrJobNotFound.
	Cancel(ctx context.Context, id string, now time.Time) (*Job, error)
}

// JobReader serves the query side of the admin surface.
type JobReader interface {
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context, status Status, opts kernel.PaginationOptions) (kernel.Paginated[*Job], error)
	Stats(ctx context.Context) (Stats, error)
}

// JobProcessor provides the operations of the dispatch loop.
//
// Claim must be a single conditional update guarded on status=pending
// and runAt<=now; it increments attempts and stamps claimedAt. The
// loser of a race gets ErrClaimConflict.
//
// Complete, Retry and Fail are guarded on status=running and the
// attempt number returned by Claim, so a worker whose claim expired
// cannot overwrite the state written by a newer claim. A failed guard
// yields ErrClaimConflict.
type JobProcessor interface {
	FindDue(ctx context.Context, now time.Time, limit int) ([]*Job, error)
	Claim(ctx context.Context, id string, now time.Time) (*Job, error)
	Complete(ctx context.Context, id string, attempt int, now time.Time) error
	Retry(ctx context.Context, id string, attempt int, runAt time.Time, lastError string, now time.Time) error
	Fail(ctx context.Context, id string, attempt int, lastError string, now time.Time) error
	// RequeueStale recovers running jobs claimed before claimedBefore:
	// back to pending at now when attempts remain, failed otherwise.
	RequeueStale(ctx context.Context, claimedBefore, now time.Time) (ReapResult, error)
	// Prune deletes terminal jobs last updated before updatedBefore.
	Prune(ctx context.Context, updatedBefore time.Time) (int64, error)
}

// Store is the job record store.
type Store interface {
	JobWriter
	JobReader
	JobProcessor
}

// StaleClaimMessage is recorded as lastError on jobs recovered by the reaper.
const StaleClaimMessage = "claim expired"
