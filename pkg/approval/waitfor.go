package approval

import (
	"context"
	"fmt"
	"time"
)

// pollInterval is how often WaitFor re-checks the database for a decision
// made in another process, between in-process notifications.
const pollInterval = 5 * time.Second

// WaitFor blocks until approvalID reaches a terminal state, the deadline
// (now + timeout) passes, or ctx is cancelled. On deadline it expires the
// row and returns StateExpired. On ctx cancellation it returns
// StateCancelled without mutating the row, leaving it pending for operator
// cleanup.
func (s *Store) WaitFor(ctx context.Context, approvalID string, timeout time.Duration) (State, error) {
	select {
	case <-ctx.Done():
		return StateCancelled, nil
	default:
	}

	current, err := s.Get(ctx, approvalID)
	if err != nil {
		return "", err
	}
	if current.Status.Terminal() {
		return current.Status, nil
	}

	notifyCh, cancel := s.notifier.subscribe(approvalID)
	defer cancel()

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			expired, err := s.expire(ctx, approvalID)
			if err != nil {
				return "", fmt.Errorf("expire approval %s: %w", approvalID, err)
			}
			return expired.Status, nil
		}

		select {
		case <-ctx.Done():
			return StateCancelled, nil

		case state := <-notifyCh:
			return state, nil

		case <-ticker.C:
			current, err := s.Get(ctx, approvalID)
			if err != nil {
				return "", fmt.Errorf("poll approval %s: %w", approvalID, err)
			}
			if current.Status.Terminal() {
				return current.Status, nil
			}

		case <-time.After(remaining):
			// deadline reached between ticks; loop back and expire.
		}
	}
}
