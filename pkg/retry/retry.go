package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	errs "pusharc/pkg/errors"
	"pusharc/pkg/logger"
)

// ErrExhausted is wrapped into the error returned when every allowed retry
// has been spent without success.
var ErrExhausted = errors.New("retry attempts exhausted")

// Operation is a function that performs an operation that might need retrying
type Operation func() error

// OperationWithResult is a function that returns a result and might need retrying
type OperationWithResult[T any] func() (T, error)

// Config holds retry configuration
type Config struct {
	// MaxRetries is the number of retries allowed after the initial attempt
	MaxRetries int
	// Backoff strategy to use between attempts
	Backoff BackoffStrategy
	// RetryIf determines if an error should be retried
	RetryIf func(error) bool
	// OnRetry is called before each retry attempt
	OnRetry func(attempt int, err error, delay time.Duration)
	// Context for cancellation during delays
	Context context.Context
	// Logger for retry attempts
	Logger logger.Logger
}

// DefaultConfig returns a retry configuration matching the archiver's
// page-fetch policy: 7 retries, constant 5 second delay, timeouts only.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries: 7,
		Backoff:    &ConstantBackoff{Delay: 5 * time.Second},
		RetryIf:    DefaultRetryIf,
		Context:    context.Background(),
		Logger:     logger.GetLogger(),
	}
}

// DefaultRetryIf retries only the server-timeout error class
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *errs.Error
	if errors.As(err, &apiErr) {
		return errs.IsRetryable(apiErr.Type)
	}

	return false
}

// Do executes an operation with retry logic
func Do(op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error

	for attempt := 0; ; attempt++ {
		err := op()
		if err == nil {
			if attempt > 0 && cfg.Logger != nil {
				cfg.Logger.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt + 1,
				})
			}
			return nil
		}

		lastErr = err

		if !cfg.RetryIf(err) {
			if cfg.Logger != nil {
				cfg.Logger.DebugWithFields("error is not retryable", map[string]interface{}{
					"error": err.Error(),
				})
			}
			return err
		}

		if attempt >= cfg.MaxRetries {
			if cfg.Logger != nil {
				cfg.Logger.ErrorWithFields("max retry attempts exceeded", map[string]interface{}{
					"attempts":   attempt + 1,
					"last_error": lastErr.Error(),
				})
			}
			return fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt+1, lastErr)
		}

		delay := cfg.Backoff.NextDelay(attempt + 1)

		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt+1, err, delay)
		}

		if cfg.Logger != nil {
			cfg.Logger.WarnWithFields("retrying operation", map[string]interface{}{
				"attempt":     attempt + 1,
				"max_retries": cfg.MaxRetries,
				"error":       err.Error(),
				"delay_ms":    delay.Milliseconds(),
			})
		}

		if err := Wait(cfg.Context, delay); err != nil {
			if cfg.Logger != nil {
				cfg.Logger.WarnWithFields("retry cancelled", map[string]interface{}{
					"attempt": attempt + 1,
					"reason":  err.Error(),
				})
			}
			return fmt.Errorf("retry cancelled: %w", err)
		}
	}
}

// DoWithResult executes an operation that returns a result with retry logic
func DoWithResult[T any](op OperationWithResult[T], cfg *Config) (T, error) {
	var result T

	err := Do(func() error {
		var opErr error
		result, opErr = op()
		return opErr
	}, cfg)

	return result, err
}

// Retrier provides a reusable retry mechanism
type Retrier struct {
	config *Config
}

// NewRetrier creates a new retrier with the given configuration
func NewRetrier(cfg *Config) *Retrier {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Retrier{config: cfg}
}

// Do executes an operation with retry logic
func (r *Retrier) Do(op Operation) error {
	return Do(op, r.config)
}

// WithMaxRetries returns a new retrier with updated retry bound
func (r *Retrier) WithMaxRetries(maxRetries int) *Retrier {
	newConfig := *r.config
	newConfig.MaxRetries = maxRetries
	return &Retrier{config: &newConfig}
}

// WithBackoff returns a new retrier with updated backoff strategy
func (r *Retrier) WithBackoff(backoff BackoffStrategy) *Retrier {
	newConfig := *r.config
	newConfig.Backoff = backoff
	return &Retrier{config: &newConfig}
}
