package config

import "time"

// JobxConfig configures the background job scheduler.
type JobxConfig struct {
	// Backend selects the job store: postgres, redis or memory.
	Backend            string
	Concurrency        int
	PollInterval       time.Duration
	BatchSize          int
	HandlerTimeout     time.Duration
	ShutdownTimeout    time.Duration
	StaleAfter         time.Duration
	RetryBaseDelay     time.Duration
	RetryMaxDelay      time.Duration
	RetryJitter        float64
	DefaultMaxAttempts int
	Retention          time.Duration
	CleanupSchedule    string
	PruneSchedule      string
}

func loadJobxConfig() JobxConfig {
	return JobxConfig{
		Backend:            getEnv("JOBX_BACKEND", "postgres"),
		Concurrency:        getEnvInt("JOBX_CONCURRENCY", 4),
		PollInterval:       getEnvDuration("JOBX_POLL_INTERVAL", time.Second),
		BatchSize:          getEnvInt("JOBX_BATCH_SIZE", 20),
		HandlerTimeout:     getEnvDuration("JOBX_HANDLER_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    getEnvDuration("JOBX_SHUTDOWN_TIMEOUT", 30*time.Second),
		StaleAfter:         getEnvDuration("JOBX_STALE_AFTER", 5*time.Minute),
		RetryBaseDelay:     getEnvDuration("JOBX_RETRY_BASE_DELAY", 30*time.Second),
		RetryMaxDelay:      getEnvDuration("JOBX_RETRY_MAX_DELAY", time.Hour),
		RetryJitter:        getEnvFloat("JOBX_RETRY_JITTER", 0.2),
		DefaultMaxAttempts: getEnvInt("JOBX_DEFAULT_MAX_ATTEMPTS", 3),
		Retention:          getEnvDuration("JOBX_RETENTION", 30*24*time.Hour),
		CleanupSchedule:    getEnv("JOBX_CLEANUP_SCHEDULE", "@every 1h"),
		PruneSchedule:      getEnv("JOBX_PRUNE_SCHEDULE", "@daily"),
	}
}
