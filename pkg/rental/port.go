package rental

import (
	"context"
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
)

type RentalRepository interface {
	GetSummary(ctx context.Context, id kernel.RentalID) (*Summary, error)
}

type PaymentRepository interface {
	GetPayment(ctx context.Context, id kernel.PaymentID) (*Payment, error)
	// MarkCaptured moves a pending payment to captured. It reports false
	// when the payment was no longer pending.
	MarkCaptured(ctx context.Context, id kernel.PaymentID, providerRef string, at time.Time) (bool, error)
	MarkFailed(ctx context.Context, id kernel.PaymentID, at time.Time) (bool, error)
}

// PaymentGateway captures funds with the payment provider. Capture must
// be idempotent per payment id.
type PaymentGateway interface {
	Capture(ctx context.Context, payment *Payment) (providerRef string, err error)
}

// TokenRepository owns password-reset and session tokens.
type TokenRepository interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
