package config

import "time"

// WorkerSettings holds configuration for the delivery worker pool.
type WorkerSettings struct {
	Concurrency     int           `mapstructure:"concurrency" validate:"gt=0"`
	MaxAttempts     int           `mapstructure:"max_attempts" validate:"gt=0"`
	BackoffBase     time.Duration `mapstructure:"backoff_base"`     // initial backoff duration
	BackoffMax      time.Duration `mapstructure:"backoff_max"`      // cap for the exponential schedule
	DeliveryTimeout time.Duration `mapstructure:"delivery_timeout"` // per-request HTTP timeout
	PromoteInterval time.Duration `mapstructure:"promote_interval"` // how often due retries are moved back to ready
}
