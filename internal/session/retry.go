package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chukul/sessionctl/internal/awscloud"
	"github.com/chukul/sessionctl/internal/azure"
)

// RetryConfig controls backoff for transient provider errors.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
	}
}

func isTransient(err error) bool {
	return errors.Is(err, ErrProviderUnavailable) || awscloud.IsTransient(err) || azure.IsTransient(err)
}

// errorCode labels a provider error for logs: the AWS error code, or
// "transient" for az failures worth retrying.
func errorCode(err error) string {
	if code := awscloud.ErrorCode(err); code != "" {
		return code
	}
	if azure.IsTransient(err) {
		return "transient"
	}
	return ""
}

// retry runs op until it succeeds, fails with a non-transient error, the
// attempts run out or ctx is done. onRetry is called before each wait.
func retry(ctx context.Context, cfg RetryConfig, op func(ctx context.Context) error, onRetry func(attempt int, err error, delay time.Duration)) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := cfg.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		if onRetry != nil {
			onRetry(attempt, lastErr, delay)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.MaxDelay > 0 && delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	if errors.Is(lastErr, ErrProviderUnavailable) {
		return lastErr
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrProviderUnavailable, attempts, lastErr)
}
