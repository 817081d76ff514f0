package jobxredis

import "github.com/Abraxas-365/rentify/pkg/errx"

var redisErrors = errx.NewRegistry("JOBX_REDIS")

var (
	ErrCommand   = redisErrors.Register("COMMAND", errx.TypeExternal, 502, "Redis job store command failed")
	ErrDuplicate = redisErrors.Register("DUPLICATE", errx.TypeConflict, 409, "Job id already exists")
	ErrMarshal   = redisErrors.Register("MARSHAL", errx.TypeInternal, 500, "Failed to marshal job data")
	ErrUnmarshal = redisErrors.Register("UNMARSHAL", errx.TypeInternal, 500, "Failed to unmarshal job data")
)

func commandError(err error, op string) *errx.Error {
	return redisErrors.NewWithCause(ErrCommand, err).WithDetail("operation", op)
}
