package rentalinfra

import (
	"context"

	"github.com/Abraxas-365/rentify/pkg/rental"
	"github.com/jmoiron/sqlx"
)

// schema covers the marketplace tables the background jobs read and
// write. The web application owns their full definition.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	email       TEXT NOT NULL UNIQUE,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS items (
	id        TEXT PRIMARY KEY,
	owner_id  TEXT NOT NULL REFERENCES users (id),
	title     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rentals (
	id          TEXT PRIMARY KEY,
	item_id     TEXT NOT NULL REFERENCES items (id),
	renter_id   TEXT NOT NULL REFERENCES users (id),
	status      TEXT NOT NULL,
	start_date  TIMESTAMPTZ NOT NULL,
	end_date    TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS payments (
	id            TEXT PRIMARY KEY,
	rental_id     TEXT NOT NULL REFERENCES rentals (id),
	amount_cents  BIGINT NOT NULL,
	currency      TEXT NOT NULL,
	status        TEXT NOT NULL DEFAULT 'pending',
	provider_ref  TEXT,
	captured_at   TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS password_reset_tokens (
	token       TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users (id),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL REFERENCES users (id),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_password_reset_tokens_expires ON password_reset_tokens (expires_at);
CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions (expires_at);
`

// Migrate creates the tables above if missing.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return rental.RepositoryError(err, "migrate")
	}
	return nil
}
