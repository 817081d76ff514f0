package rentalinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/Abraxas-365/rentify/pkg/rental"
	"github.com/jmoiron/sqlx"
)

// PostgresRentalRepository reads rental summaries with sqlx.
type PostgresRentalRepository struct {
	db *sqlx.DB
}

var _ rental.RentalRepository = (*PostgresRentalRepository)(nil)

func NewPostgresRentalRepository(db *sqlx.DB) *PostgresRentalRepository {
	return &PostgresRentalRepository{db: db}
}

func (r *PostgresRentalRepository) GetSummary(ctx context.Context, id kernel.RentalID) (*rental.Summary, error) {
	query := `
		SELECT r.id, r.status, i.title AS item_title,
		       u.id AS renter_id, u.name AS renter_name, u.email AS renter_email,
		       r.start_date, r.end_date
		FROM rentals r
		JOIN items i ON i.id = r.item_id
		JOIN users u ON u.id = r.renter_id
		WHERE r.id = $1`

	var summary rental.Summary
	if err := r.db.GetContext(ctx, &summary, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rental.RentalNotFound(id.String())
		}
		return nil, rental.RepositoryError(err, "get_rental_summary")
	}
	return &summary, nil
}

// PostgresPaymentRepository stores payment state transitions. Each
// transition is a conditional UPDATE on status = 'pending'.
type PostgresPaymentRepository struct {
	db *sqlx.DB
}

var _ rental.PaymentRepository = (*PostgresPaymentRepository)(nil)

func NewPostgresPaymentRepository(db *sqlx.DB) *PostgresPaymentRepository {
	return &PostgresPaymentRepository{db: db}
}

func (r *PostgresPaymentRepository) GetPayment(ctx context.Context, id kernel.PaymentID) (*rental.Payment, error) {
	query := `
		SELECT id, rental_id, amount_cents, currency, status, provider_ref, captured_at, created_at
		FROM payments
		WHERE id = $1`

	var payment rental.Payment
	if err := r.db.GetContext(ctx, &payment, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, rental.PaymentNotFound(id.String())
		}
		return nil, rental.RepositoryError(err, "get_payment")
	}
	return &payment, nil
}

func (r *PostgresPaymentRepository) MarkCaptured(ctx context.Context, id kernel.PaymentID, providerRef string, at time.Time) (bool, error) {
	query := `
		UPDATE payments
		SET status = 'captured', provider_ref = $2, captured_at = $3
		WHERE id = $1 AND status = 'pending'`

	return r.transition(ctx, "mark_captured", query, id, providerRef, at)
}

func (r *PostgresPaymentRepository) MarkFailed(ctx context.Context, id kernel.PaymentID, _ time.Time) (bool, error) {
	query := `UPDATE payments SET status = 'failed' WHERE id = $1 AND status = 'pending'`

	return r.transition(ctx, "mark_failed", query, id)
}

func (r *PostgresPaymentRepository) transition(ctx context.Context, op, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, rental.RepositoryError(err, op)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, rental.RepositoryError(err, op)
	}
	return n == 1, nil
}

// PostgresTokenRepository deletes expired password-reset tokens and
// sessions.
type PostgresTokenRepository struct {
	db *sqlx.DB
}

var _ rental.TokenRepository = (*PostgresTokenRepository)(nil)

func NewPostgresTokenRepository(db *sqlx.DB) *PostgresTokenRepository {
	return &PostgresTokenRepository{db: db}
}

func (r *PostgresTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, rental.RepositoryError(err, "delete_expired_tokens")
	}
	defer tx.Rollback()

	var total int64
	for _, query := range []string{
		`DELETE FROM password_reset_tokens WHERE expires_at <= $1`,
		`DELETE FROM sessions WHERE expires_at <= $1`,
	} {
		res, err := tx.ExecContext(ctx, query, now)
		if err != nil {
			return 0, rental.RepositoryError(err, "delete_expired_tokens")
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, rental.RepositoryError(err, "delete_expired_tokens")
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, rental.RepositoryError(err, "delete_expired_tokens")
	}
	return total, nil
}
