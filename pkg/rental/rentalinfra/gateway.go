package rentalinfra

import (
	"context"

	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/Abraxas-365/rentify/pkg/rental"
)

// ManualGateway settles payments collected outside the platform, such
// as cash on pickup. Capture only records a reference.
type ManualGateway struct{}

var _ rental.PaymentGateway = ManualGateway{}

func (ManualGateway) Capture(_ context.Context, payment *rental.Payment) (string, error) {
	logx.WithFields(logx.Fields{
		"payment_id":   payment.ID.String(),
		"rental_id":    payment.RentalID.String(),
		"amount_cents": payment.AmountCents,
		"currency":     payment.Currency,
	}).Info("rental: payment captured manually")
	return "manual-" + payment.ID.String(), nil
}
