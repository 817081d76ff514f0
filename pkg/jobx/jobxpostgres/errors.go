package jobxpostgres

import "github.com/Abraxas-365/rentify/pkg/errx"

var pgErrors = errx.NewRegistry("JOBX_PG")

var (
	ErrQuery     = pgErrors.Register("QUERY", errx.TypeExternal, 502, "Job store query failed")
	ErrMigrate   = pgErrors.Register("MIGRATE", errx.TypeInternal, 500, "Job store migration failed")
	ErrDuplicate = pgErrors.Register("DUPLICATE", errx.TypeConflict, 409, "Job id already exists")
)

func queryError(err error, op string) *errx.Error {
	return pgErrors.NewWithCause(ErrQuery, err).WithDetail("operation", op)
}
