package idle

import "time"

// Clock is the source of time for a Timer. Tests inject a manual clock.
type Clock interface {
	// AfterFunc calls f in its own goroutine once d has elapsed.
	AfterFunc(d time.Duration, f func()) Handle
	Now() time.Time
}

// Handle is a pending AfterFunc callback.
type Handle interface {
	// Stop reports whether the call was prevented from running.
	Stop() bool
}

// SystemClock is backed by the time package.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Handle {
	return time.AfterFunc(d, f)
}

func (systemClock) Now() time.Time {
	return time.Now()
}
