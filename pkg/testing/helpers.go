package testing

import (
	"context"
	"testing"
	"time"
)

// AssertEventually fails the test if condition is not true within timeout
func AssertEventually(t *testing.T, condition func() bool, timeout time.Duration, message string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := WaitForCondition(ctx, condition, 5*time.Millisecond); err != nil {
		t.Fatalf("Condition not met within %s: %s", timeout, message)
	}
}

// AssertNever fails the test if condition becomes true during window
func AssertNever(t *testing.T, condition func() bool, window time.Duration, message string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), window)
	defer cancel()

	if err := WaitForCondition(ctx, condition, 5*time.Millisecond); err == nil {
		t.Fatalf("Condition unexpectedly met: %s", message)
	}
}

// CreateTestContext creates a context with a timeout for tests
func CreateTestContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}

// WaitForCondition polls condition until it holds or ctx is done
func WaitForCondition(ctx context.Context, condition func() bool, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if condition() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
