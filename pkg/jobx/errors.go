package jobx

import (
	"errors"

	"github.com/Abraxas-365/rentify/pkg/errx"
)

var jobxErrors = errx.NewRegistry("JOBX")

var (
	ErrInvalidJobSpec    = jobxErrors.Register("INVALID_JOB_SPEC", errx.TypeValidation, 400, "Invalid job specification")
	ErrInvalidTransition = jobxErrors.Register("INVALID_TRANSITION", errx.TypeConflict, 409, "Job state does not allow this operation")
	ErrUnknownJobType    = jobxErrors.Register("UNKNOWN_JOB_TYPE", errx.TypeBusiness, 422, "No handler registered for job type")
	ErrHandlerFailure    = jobxErrors.Register("HANDLER_FAILURE", errx.TypeInternal, 500, "Job handler failed")
	ErrHandlerTimeout    = jobxErrors.Register("HANDLER_TIMEOUT", errx.TypeTimeout, 504, "Job handler timed out")
	ErrClaimConflict     = jobxErrors.Register("CLAIM_CONFLICT", errx.TypeConflict, 409, "Job was claimed or changed by another worker")
	ErrJobNotFound       = jobxErrors.Register("JOB_NOT_FOUND", errx.TypeNotFound, 404, "Job not found")
	ErrDuplicateHandler  = jobxErrors.Register("DUPLICATE_HANDLER", errx.TypeConflict, 409, "Handler already registered for job type")
	ErrAlreadyRunning    = jobxErrors.Register("ALREADY_RUNNING", errx.TypeConflict, 409, "Scheduler is already running")
)

// NewError builds an error from one of the JOBX codes. Store
// implementations use it so callers can match with errors.Is.
func NewError(code *errx.ErrorCode) *errx.Error {
	return jobxErrors.New(code)
}

// InvalidTransition reports an operation the job's current status forbids.
func InvalidTransition(id string, from Status, op string) *errx.Error {
	return jobxErrors.New(ErrInvalidTransition).
		WithDetail("job_id", id).
		WithDetail("status", string(from)).
		WithDetail("operation", op)
}

// NotFound reports a missing job id.
func NotFound(id string) *errx.Error {
	return jobxErrors.New(ErrJobNotFound).WithDetail("job_id", id)
}

// ClaimConflict reports a lost compare-and-swap on a job row.
func ClaimConflict(id string) *errx.Error {
	return jobxErrors.New(ErrClaimConflict).WithDetail("job_id", id)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string  { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a handler error as non-retryable. The job is failed
// on the current attempt regardless of attempts left.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
