package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestPoller(t *testing.T) {
	t.Run("Runs Checks Periodically", func(t *testing.T) {
		var mu sync.Mutex
		checks := 0
		results := 0

		poller := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
			mu.Lock()
			checks++
			mu.Unlock()
			return nil
		}, func(err error) {
			mu.Lock()
			results++
			mu.Unlock()
		})

		poller.Start()
		time.Sleep(50 * time.Millisecond)
		poller.Stop()

		mu.Lock()
		defer mu.Unlock()
		if checks == 0 {
			t.Error("expected at least one check")
		}
		if results == 0 {
			t.Error("expected results reported")
		}
	})

	t.Run("Discards Results After Stop", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{}, 1)

		var mu sync.Mutex
		results := 0

		poller := NewPoller(5*time.Millisecond, func(ctx context.Context) error {
			select {
			case started <- struct{}{}:
			default:
			}
			<-release
			return nil
		}, func(err error) {
			mu.Lock()
			results++
			mu.Unlock()
		})

		poller.Start()
		<-started
		poller.Stop()
		close(release)

		time.Sleep(20 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if results != 0 {
			t.Errorf("expected in-flight result discarded after stop, got %d", results)
		}
	})

	t.Run("Start And Stop Are Idempotent", func(t *testing.T) {
		poller := NewPoller(time.Hour, func(ctx context.Context) error { return nil }, nil)

		poller.Start()
		poller.Start()
		poller.Stop()
		poller.Stop()
	})
}
