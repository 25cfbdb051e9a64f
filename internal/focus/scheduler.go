package focus

import (
	"sync"
	"time"
)

// Scheduler arms a recurring callback and returns the function that cancels
// it. Every must not call fn synchronously.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

type tickerScheduler struct{}

// TickerScheduler runs each stream on its own time.Ticker goroutine.
func TickerScheduler() Scheduler { return tickerScheduler{} }

func (tickerScheduler) Every(interval time.Duration, fn func()) func() {
	tk := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-done:
				return
			case <-tk.C:
				fn()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			tk.Stop()
			close(done)
		})
	}
}
