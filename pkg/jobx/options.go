package jobx

import "time"

// Options configures the scheduler and its dispatch loop.
type Options struct {
	Concurrency     int
	PollInterval    time.Duration
	BatchSize       int
	HandlerTimeout  time.Duration
	ShutdownTimeout time.Duration
	// StaleAfter is how long a claim may stay running before the reaper
	// recovers it. It is raised above HandlerTimeout when lower.
	StaleAfter   time.Duration
	ReapInterval time.Duration
	Retry        RetryPolicy
	Observer     Observer
	Clock        func() time.Time

	periodic  []periodicJob
	retention time.Duration
	pruneSpec string
}

func defaultOptions() Options {
	return Options{
		Concurrency:     4,
		PollInterval:    time.Second,
		BatchSize:       20,
		HandlerTimeout:  30 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		StaleAfter:      5 * time.Minute,
		ReapInterval:    time.Minute,
		Retry:           DefaultRetryPolicy(),
		Observer:        nopObserver{},
		Clock:           time.Now,
	}
}

func (o *Options) normalize() {
	if o.StaleAfter <= o.HandlerTimeout {
		o.StaleAfter = o.HandlerTimeout + time.Minute
	}
	if o.ReapInterval <= 0 {
		o.ReapInterval = time.Minute
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
}

// Option is a functional option for configuring the scheduler.
type Option func(*Options)

// WithConcurrency caps the number of handlers running at once.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Concurrency = n
		}
	}
}

// WithPollInterval sets the interval between dispatch ticks.
func WithPollInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.PollInterval = d
		}
	}
}

// WithBatchSize bounds the number of due jobs fetched per tick.
func WithBatchSize(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.BatchSize = n
		}
	}
}

func WithHandlerTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.HandlerTimeout = d
		}
	}
}

// WithShutdownTimeout sets how long Start waits for in-flight handlers
// before cancelling them.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *Options) {
		if d >= 0 {
			o.ShutdownTimeout = d
		}
	}
}

func WithStaleAfter(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.StaleAfter = d
		}
	}
}

func WithReapInterval(d time.Duration) Option {
	return func(o *Options) {
		if d > 0 {
			o.ReapInterval = d
		}
	}
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(o *Options) {
		o.Retry = p
	}
}

func WithObserver(obs Observer) Option {
	return func(o *Options) {
		o.Observer = obs
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		o.Clock = now
	}
}

// WithPeriodicJob enqueues a job of jobType on a cron schedule while
// Start is running. spec accepts five-field expressions and
// descriptors such as "@every 1h" or "@daily".
func WithPeriodicJob(spec, jobType string, payload Payload) Option {
	return func(o *Options) {
		o.periodic = append(o.periodic, periodicJob{spec: spec, jobType: jobType, payload: payload})
	}
}

// WithRetention prunes terminal jobs older than d on the cron schedule
// spec. A zero d disables pruning.
func WithRetention(d time.Duration, spec string) Option {
	return func(o *Options) {
		o.retention = d
		o.pruneSpec = spec
	}
}
