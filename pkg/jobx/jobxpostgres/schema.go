package jobxpostgres

import (
	"context"

	"github.com/jmoiron/sqlx"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobx_jobs (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	payload       JSONB NOT NULL DEFAULT '{}'::jsonb,
	status        TEXT NOT NULL CHECK (status IN ('pending', 'running', 'succeeded', 'failed', 'cancelled')),
	run_at        TIMESTAMPTZ NOT NULL,
	attempts      INTEGER NOT NULL DEFAULT 0,
	max_attempts  INTEGER NOT NULL CHECK (max_attempts BETWEEN 1 AND 10),
	last_error    TEXT NOT NULL DEFAULT '',
	claimed_at    TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL,
	updated_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobx_jobs_due ON jobx_jobs (status, run_at);
CREATE INDEX IF NOT EXISTS idx_jobx_jobs_claimed ON jobx_jobs (claimed_at) WHERE status = 'running';
CREATE INDEX IF NOT EXISTS idx_jobx_jobs_created ON jobx_jobs (created_at DESC);
`

// Migrate creates the jobx_jobs table and its indexes if missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return pgErrors.NewWithCause(ErrMigrate, err)
	}
	return nil
}
