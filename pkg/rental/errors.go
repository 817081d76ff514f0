package rental

import (
	"net/http"

	"github.com/Abraxas-365/rentify/pkg/errx"
)

var rentalErrors = errx.NewRegistry("RENTAL")

var (
	ErrRentalNotFound  = rentalErrors.Register("RENTAL_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Rental not found")
	ErrPaymentNotFound = rentalErrors.Register("PAYMENT_NOT_FOUND", errx.TypeNotFound, http.StatusNotFound, "Payment not found")
	ErrPaymentDeclined = rentalErrors.Register("PAYMENT_DECLINED", errx.TypeBusiness, http.StatusPaymentRequired, "Payment declined by provider")
	ErrRepository      = rentalErrors.Register("REPOSITORY", errx.TypeInternal, http.StatusInternalServerError, "Rental data access failed")
)

func RentalNotFound(id string) *errx.Error {
	return rentalErrors.New(ErrRentalNotFound).WithDetail("rental_id", id)
}

func PaymentNotFound(id string) *errx.Error {
	return rentalErrors.New(ErrPaymentNotFound).WithDetail("payment_id", id)
}

func PaymentDeclined(id, reason string) *errx.Error {
	return rentalErrors.New(ErrPaymentDeclined).WithDetail("payment_id", id).WithDetail("reason", reason)
}

func RepositoryError(err error, op string) *errx.Error {
	return rentalErrors.NewWithCause(ErrRepository, err).WithDetail("operation", op)
}
