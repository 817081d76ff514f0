package rental

import (
	"time"

	"github.com/Abraxas-365/rentify/pkg/kernel"
)

type Status string

const (
	StatusRequested Status = "requested"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Summary is the read model the background jobs need about a rental:
// who rents what, and when.
type Summary struct {
	ID          kernel.RentalID `db:"id" json:"id"`
	Status      Status          `db:"status" json:"status"`
	ItemTitle   string          `db:"item_title" json:"itemTitle"`
	RenterID    kernel.UserID   `db:"renter_id" json:"renterId"`
	RenterName  string          `db:"renter_name" json:"renterName"`
	RenterEmail string          `db:"renter_email" json:"renterEmail"`
	StartDate   time.Time       `db:"start_date" json:"startDate"`
	EndDate     time.Time       `db:"end_date" json:"endDate"`
}

func (s *Summary) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// EmailData is the template data shared by the rental emails.
func (s *Summary) EmailData() map[string]any {
	return map[string]any{
		"name":      s.RenterName,
		"itemTitle": s.ItemTitle,
		"rentalId":  s.ID.String(),
		"startDate": s.StartDate.Format("Jan 2, 2006"),
		"endDate":   s.EndDate.Format("Jan 2, 2006"),
	}
}

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentCaptured PaymentStatus = "captured"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type Payment struct {
	ID          kernel.PaymentID `db:"id" json:"id"`
	RentalID    kernel.RentalID  `db:"rental_id" json:"rentalId"`
	AmountCents int64            `db:"amount_cents" json:"amountCents"`
	Currency    string           `db:"currency" json:"currency"`
	Status      PaymentStatus    `db:"status" json:"status"`
	ProviderRef *string          `db:"provider_ref" json:"providerRef,omitempty"`
	CapturedAt  *time.Time       `db:"captured_at" json:"capturedAt,omitempty"`
	CreatedAt   time.Time        `db:"created_at" json:"createdAt"`
}

func (p *Payment) IsSettled() bool {
	return p.Status != PaymentPending
}
