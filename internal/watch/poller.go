// Package watch runs change checks on a fixed interval, the delivery model for
// session and channel subscriptions.
package watch

import (
	"sync"
	"sync/atomic"
	"time"
)

// Start runs check once synchronously, then again every interval until the
// returned cancel func is called. A signal on wake runs check early; the
// interval stays the upper bound on how late a check can be. wake may be nil.
//
// cancel waits for the polling goroutine to exit, except when it is called
// from inside check, where it only stops further runs.
func Start(interval time.Duration, wake <-chan struct{}, check func()) func() {
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	var inCheck atomic.Bool

	run := func() {
		inCheck.Store(true)
		defer inCheck.Store(false)
		check()
	}

	run()

	go func() {
		defer close(doneCh)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
			case _, ok := <-wake:
				if !ok {
					wake = nil
					continue
				}
			}

			select {
			case <-stopCh:
				return
			default:
			}
			run()
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopCh) })
		if inCheck.Load() {
			return
		}
		<-doneCh
	}
}
