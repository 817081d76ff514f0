package jobx

// Job types handled by the rental marketplace.
const (
	TypeSendEmail            = "send_email"
	TypeRentalReminder       = "rental_reminder"
	TypeReviewRequest        = "review_request"
	TypePaymentProcessing    = "payment_processing"
	TypeCleanupExpiredTokens = "cleanup_expired_tokens"
)
