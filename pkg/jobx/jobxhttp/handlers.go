// Package jobxhttp exposes the job scheduler over an admin-only fiber API.
package jobxhttp

import (
	"context"
	"math"
	"time"

	"github.com/Abraxas-365/rentify/pkg/errx"
	"github.com/Abraxas-365/rentify/pkg/iam/auth"
	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/gofiber/fiber/v2"
)

// Scheduler is the part of *jobx.Scheduler the handlers use.
type Scheduler interface {
	AddJob(ctx context.Context, jobType string, payload jobx.Payload, options ...jobx.EnqueueOption) (string, error)
	CancelJob(ctx context.Context, id string) error
	GetStats(ctx context.Context) (jobx.Stats, error)
	GetJob(ctx context.Context, id string) (*jobx.Job, error)
	ListJobs(ctx context.Context, status jobx.Status, opts kernel.PaginationOptions) (kernel.Paginated[*jobx.Job], error)
	Requeue(ctx context.Context, id string) (string, error)
}

type Handlers struct {
	scheduler Scheduler
	audit     auth.AuditService
}

// NewHandlers builds the handlers. audit may be nil.
func NewHandlers(scheduler Scheduler, audit auth.AuditService) *Handlers {
	return &Handlers{scheduler: scheduler, audit: audit}
}

// RegisterRoutes mounts the job routes under /jobs behind mw's
// Authenticate and RequireAdmin.
func (h *Handlers) RegisterRoutes(router fiber.Router, mw *auth.TokenMiddleware) {
	jobs := router.Group("/jobs", mw.Authenticate(), mw.RequireAdmin())

	jobs.Post("/schedule", h.scheduleJob)
	jobs.Get("/schedule", h.stats)
	jobs.Get("/", h.listJobs)
	jobs.Get("/:id", h.getJob)
	jobs.Delete("/:id", h.cancelJob)
	jobs.Post("/:id/requeue", h.requeueJob)
}

// ScheduleJobRequest is the body of POST /jobs/schedule. Delay is in
// milliseconds.
type ScheduleJobRequest struct {
	Type        string       `json:"type"`
	Data        jobx.Payload `json:"data"`
	Delay       int64        `json:"delay,omitempty"`
	MaxAttempts int          `json:"maxAttempts,omitempty"`
}

// maxDelayMillis is the largest delay that still fits a time.Duration.
const maxDelayMillis = int64(math.MaxInt64 / int64(time.Millisecond))

type ScheduleJobResponse struct {
	JobID string `json:"jobId"`
}

func (h *Handlers) scheduleJob(c *fiber.Ctx) error {
	var req ScheduleJobRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, jobx.NewError(jobx.ErrInvalidJobSpec).WithDetail("body", err.Error()))
	}

	if req.Delay < 0 || req.Delay > maxDelayMillis {
		return respondError(c, jobx.NewError(jobx.ErrInvalidJobSpec).
			WithDetail("delay", req.Delay).
			WithDetail("max_delay", maxDelayMillis))
	}

	id, err := h.scheduler.AddJob(c.UserContext(), req.Type, req.Data,
		jobx.WithDelay(time.Duration(req.Delay)*time.Millisecond),
		jobx.WithMaxAttempts(req.MaxAttempts),
	)
	if err != nil {
		return respondError(c, err)
	}

	h.auditAction(c, "job.schedule", id)
	return c.Status(fiber.StatusCreated).JSON(ScheduleJobResponse{JobID: id})
}

func (h *Handlers) stats(c *fiber.Ctx) error {
	stats, err := h.scheduler.GetStats(c.UserContext())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(stats)
}

func (h *Handlers) listJobs(c *fiber.Ctx) error {
	status, err := jobx.ParseStatus(c.Query("status"))
	if err != nil {
		return respondError(c, err)
	}

	page, err := h.scheduler.ListJobs(c.UserContext(), status, kernel.PaginationOptions{
		Page:     c.QueryInt("page", 1),
		PageSize: c.QueryInt("page_size", 0),
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(page)
}

func (h *Handlers) getJob(c *fiber.Ctx) error {
	job, err := h.scheduler.GetJob(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(job)
}

func (h *Handlers) cancelJob(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.scheduler.CancelJob(c.UserContext(), id); err != nil {
		return respondError(c, err)
	}

	h.auditAction(c, "job.cancel", id)
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handlers) requeueJob(c *fiber.Ctx) error {
	id := c.Params("id")
	newID, err := h.scheduler.Requeue(c.UserContext(), id)
	if err != nil {
		return respondError(c, err)
	}

	h.auditAction(c, "job.requeue", id)
	return c.Status(fiber.StatusCreated).JSON(ScheduleJobResponse{JobID: newID})
}

func (h *Handlers) auditAction(c *fiber.Ctx, action, target string) {
	if h.audit == nil {
		return
	}
	actor, _ := auth.FromContext(c)
	h.audit.LogAdminAction(c.UserContext(), actor, action, target, c.IP())
}

// respondError renders err as {error, code, type, details} with the
// status of its code. Errors outside errx become a 500.
func respondError(c *fiber.Ctx, err error) error {
	e, ok := errx.As(err)
	if !ok {
		logx.WithFields(logx.Fields{
			"path":   c.Path(),
			"method": c.Method(),
		}).WithError(err).Error("jobxhttp: unexpected error")
		e = errx.Wrap(err, "Internal server error", errx.TypeInternal)
	}
	return c.Status(e.HTTPStatus).JSON(e.ToHTTPResponse())
}
