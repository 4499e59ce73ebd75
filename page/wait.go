package page

import (
	"context"
	"fmt"
	"time"
)

// DefaultPollInterval is used by Poll when interval is not positive.
const DefaultPollInterval = 100 * time.Millisecond

// Poll evaluates cond every interval until it returns true, it returns an
// error, ctx is done, or timeout elapses (ErrTimeout). A timeout <= 0
// evaluates cond once.
func Poll(ctx context.Context, timeout, interval time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			if timeout > 0 && ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w after %s: %w", ErrTimeout, timeout, err)
			}
			return fmt.Errorf("page: wait: %w", err)
		}
		if ok {
			return nil
		}
		if timeout <= 0 {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("%w after %s", ErrTimeout, timeout)
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// All combines conditions; it is true only when each one is.
func All(conds ...Condition) Condition {
	return func(ctx context.Context) (bool, error) {
		for _, c := range conds {
			ok, err := c(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}
