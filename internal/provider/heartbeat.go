package provider

import "time"

// startHeartbeat runs notify on every interval tick until the returned stop
// function is called. Stop is idempotent and returns immediately; the
// goroutine exits on its own and never holds up shutdown.
func startHeartbeat(interval time.Duration, notify func(elapsed time.Duration)) (stop func()) {
	if interval <= 0 || notify == nil {
		return func() {}
	}

	done := make(chan struct{})
	started := time.Now()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				notify(time.Since(started))
			}
		}
	}()

	stopped := false
	return func() {
		if stopped {
			return
		}
		stopped = true
		close(done)
	}
}
