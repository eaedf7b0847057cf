package config

import (
	"time"

	"ltiprovider/core"
)

const (
	defaultOutcomeTimeout = 10 * time.Second
	defaultUserAgent      = "lti-provider"

	defaultDispatchInterval = time.Second
	defaultDispatchBatch    = 50
	defaultDispatchCapacity = 8
	defaultMaxAttempts      = 10

	defaultConsumerCapacity = 1024
	defaultConsumerTTL      = 5 * time.Minute
)

func defaults(cfg *core.Config) {
	if cfg.Outcome.Timeout <= 0 {
		cfg.Outcome.Timeout = core.Duration(defaultOutcomeTimeout)
	}

	if cfg.Outcome.UserAgent == "" {
		cfg.Outcome.UserAgent = defaultUserAgent
	}

	if cfg.Dispatcher.Interval <= 0 {
		cfg.Dispatcher.Interval = core.Duration(defaultDispatchInterval)
	}

	if cfg.Dispatcher.Batch <= 0 {
		cfg.Dispatcher.Batch = defaultDispatchBatch
	}

	if cfg.Dispatcher.Capacity <= 0 {
		cfg.Dispatcher.Capacity = defaultDispatchCapacity
	}

	if cfg.Dispatcher.MaxAttempts <= 0 {
		cfg.Dispatcher.MaxAttempts = defaultMaxAttempts
	}

	if cfg.Cache.ConsumerCapacity <= 0 {
		cfg.Cache.ConsumerCapacity = defaultConsumerCapacity
	}

	if cfg.Cache.ConsumerTTL <= 0 {
		cfg.Cache.ConsumerTTL = core.Duration(defaultConsumerTTL)
	}
}
