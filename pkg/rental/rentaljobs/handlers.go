// Package rentaljobs holds the background job handlers of the rental
// marketplace: transactional emails, rental lifecycle reminders,
// payment capture and token cleanup.
package rentaljobs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/Abraxas-365/rentify/pkg/notifx"
	"github.com/Abraxas-365/rentify/pkg/rental"
)

// Mailer renders and sends a named email template.
type Mailer interface {
	SendTemplatedEmail(ctx context.Context, name string, to []string, data map[string]any, opts ...notifx.Option) error
}

// Handlers carries the collaborators the job handlers need.
type Handlers struct {
	mailer   Mailer
	rentals  rental.RentalRepository
	payments rental.PaymentRepository
	gateway  rental.PaymentGateway
	tokens   rental.TokenRepository
	now      func() time.Time
}

func NewHandlers(
	mailer Mailer,
	rentals rental.RentalRepository,
	payments rental.PaymentRepository,
	gateway rental.PaymentGateway,
	tokens rental.TokenRepository,
) *Handlers {
	return &Handlers{
		mailer:   mailer,
		rentals:  rentals,
		payments: payments,
		gateway:  gateway,
		tokens:   tokens,
		now:      time.Now,
	}
}

// Register adds a handler for every marketplace job type.
func (h *Handlers) Register(reg *jobx.Registry) error {
	for jobType, fn := range map[string]jobx.HandlerFunc{
		jobx.TypeSendEmail:            h.SendEmail,
		jobx.TypeRentalReminder:       h.RentalReminder,
		jobx.TypeReviewRequest:        h.ReviewRequest,
		jobx.TypePaymentProcessing:    h.ProcessPayment,
		jobx.TypeCleanupExpiredTokens: h.CleanupExpiredTokens,
	} {
		if err := reg.Register(jobType, fn); err != nil {
			return err
		}
	}
	return nil
}

type emailPayload struct {
	Kind string         `json:"kind"`
	Args map[string]any `json:"args"`
}

// recipients reads args.to as a string or a list of strings.
func recipients(args map[string]any) []string {
	switch to := args["to"].(type) {
	case string:
		if strings.TrimSpace(to) != "" {
			return []string{strings.TrimSpace(to)}
		}
	case []any:
		var out []string
		for _, v := range to {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// SendEmail handles send_email jobs with payload {kind, args}. kind
// names a notifx template; args.to is required and the remaining args
// are the template data.
func (h *Handlers) SendEmail(ctx context.Context, job *jobx.Job) error {
	p, err := jobx.Decode[emailPayload](job)
	if err != nil {
		return err
	}
	if p.Kind == "" {
		return jobx.Permanent(errors.New("send_email: missing kind"))
	}
	to := recipients(p.Args)
	if len(to) == 0 {
		return jobx.Permanent(fmt.Errorf("send_email %s: missing recipient", p.Kind))
	}

	return h.send(ctx, p.Kind, to, p.Args, job.ID)
}

// send maps template and validation errors to permanent failures; a
// transport failure stays retryable.
func (h *Handlers) send(ctx context.Context, kind string, to []string, data map[string]any, jobID string) error {
	err := h.mailer.SendTemplatedEmail(ctx, kind, to, data, notifx.WithTags(map[string]string{"job_id": jobID}))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, notifx.ErrTemplateNotFound),
		errors.Is(err, notifx.ErrTemplateRender),
		errors.Is(err, notifx.ErrInvalidMessage):
		return jobx.Permanent(err)
	default:
		return err
	}
}

type rentalPayload struct {
	RentalID kernel.RentalID `json:"rentalId"`
}

func (h *Handlers) RentalReminder(ctx context.Context, job *jobx.Job) error {
	return h.rentalEmail(ctx, job, notifx.TemplateRentalReminder)
}

func (h *Handlers) ReviewRequest(ctx context.Context, job *jobx.Job) error {
	return h.rentalEmail(ctx, job, notifx.TemplateReviewRequest)
}

// rentalEmail sends a rental lifecycle email to the renter. Rentals
// that vanished or were cancelled since scheduling complete silently.
func (h *Handlers) rentalEmail(ctx context.Context, job *jobx.Job, template string) error {
	p, err := jobx.Decode[rentalPayload](job)
	if err != nil {
		return err
	}
	if p.RentalID.IsEmpty() {
		return jobx.Permanent(fmt.Errorf("%s: missing rentalId", job.Type))
	}

	log := logx.WithFields(logx.Fields{"job_id": job.ID, "rental_id": p.RentalID.String()})

	summary, err := h.rentals.GetSummary(ctx, p.RentalID)
	if errors.Is(err, rental.ErrRentalNotFound) {
		log.Info("rental: rental no longer exists, skipping email")
		return nil
	}
	if err != nil {
		return err
	}
	if summary.IsCancelled() {
		log.Info("rental: rental cancelled, skipping email")
		return nil
	}

	return h.send(ctx, template, []string{summary.RenterEmail}, summary.EmailData(), job.ID)
}

type paymentPayload struct {
	PaymentID kernel.PaymentID `json:"paymentId"`
}

// ProcessPayment captures a pending payment. A payment that is already
// settled is left untouched, so a re-run after a crash is harmless.
func (h *Handlers) ProcessPayment(ctx context.Context, job *jobx.Job) error {
	p, err := jobx.Decode[paymentPayload](job)
	if err != nil {
		return err
	}
	if p.PaymentID.IsEmpty() {
		return jobx.Permanent(errors.New("payment_processing: missing paymentId"))
	}

	payment, err := h.payments.GetPayment(ctx, p.PaymentID)
	if errors.Is(err, rental.ErrPaymentNotFound) {
		return jobx.Permanent(err)
	}
	if err != nil {
		return err
	}

	log := logx.WithFields(logx.Fields{"job_id": job.ID, "payment_id": payment.ID.String()})
	if payment.IsSettled() {
		log.WithField("status", string(payment.Status)).Info("rental: payment already settled")
		return nil
	}

	ref, err := h.gateway.Capture(ctx, payment)
	if errors.Is(err, rental.ErrPaymentDeclined) {
		if _, markErr := h.payments.MarkFailed(ctx, payment.ID, h.now()); markErr != nil {
			return markErr
		}
		return jobx.Permanent(err)
	}
	if err != nil {
		return err
	}

	captured, err := h.payments.MarkCaptured(ctx, payment.ID, ref, h.now())
	if err != nil {
		return err
	}
	if !captured {
		log.Warn("rental: payment changed state during capture")
		return nil
	}
	log.WithField("provider_ref", ref).Info("rental: payment captured")
	return nil
}

// CleanupExpiredTokens deletes expired password-reset tokens and
// sessions. The payload is ignored.
func (h *Handlers) CleanupExpiredTokens(ctx context.Context, job *jobx.Job) error {
	n, err := h.tokens.DeleteExpired(ctx, h.now())
	if err != nil {
		return err
	}
	logx.WithFields(logx.Fields{"job_id": job.ID, "deleted": n}).Info("rental: expired tokens cleaned up")
	return nil
}
