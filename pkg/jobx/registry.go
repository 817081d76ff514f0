package jobx

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"sync"
)

// HandlerFunc processes one attempt of a job.
//
// Delivery is at-least-once: a crash between a successful return and
// the status write re-runs the job after the stale-claim reaper
// recovers it. Handlers must therefore tolerate running twice for the
// same job id. Return Permanent(err) for failures a retry cannot fix.
// ctx is cancelled when the handler timeout expires.
type HandlerFunc func(ctx context.Context, job *Job) error

// Registry maps job types to handlers. Handlers are registered at
// startup; lookups are safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register adds a handler for jobType.
func (r *Registry) Register(jobType string, handler HandlerFunc) error {
	jobType = strings.TrimSpace(jobType)
	if jobType == "" || handler == nil {
		return jobxErrors.NewWithMessage(ErrInvalidJobSpec, "handler registration needs a type and a function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[jobType]; exists {
		return jobxErrors.New(ErrDuplicateHandler).WithDetail("job_type", jobType)
	}
	r.handlers[jobType] = handler
	return nil
}

// MustRegister is Register for wiring code; it panics on error.
func (r *Registry) MustRegister(jobType string, handler HandlerFunc) {
	if err := r.Register(jobType, handler); err != nil {
		panic(err)
	}
}

func (r *Registry) Resolve(jobType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}

// Types returns the registered job types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

// Decode unmarshals a job payload into T. A payload that does not fit
// is reported as a permanent failure.
func Decode[T any](job *Job) (T, error) {
	var out T
	raw, err := json.Marshal(job.Payload)
	if err != nil {
		return out, Permanent(fmt.Errorf("encode payload: %w", err))
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, Permanent(fmt.Errorf("decode %s payload: %w", job.Type, err))
	}
	return out, nil
}
