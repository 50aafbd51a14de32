// Package monitoring routes unexpected failures to the configured error
// tracker. The default monitor discards everything.
package monitoring

import (
	"fmt"
	"sync"
	"time"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic reports a recovered panic value.
	CapturePanic(v any, tags map[string]string)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

func get() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	get().CaptureException(err, tags)
}

// Go runs fn in a goroutine. A panic in fn is reported with tags and
// swallowed so a background worker cannot crash the process.
func Go(tags map[string]string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				get().CapturePanic(r, tags)
			}
		}()
		fn()
	}()
}

// Guard converts a panic in fn into an error that is also reported.
func Guard(tags map[string]string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			get().CapturePanic(r, tags)
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	get().Flush(d)
}

// Tags builds a tag set for a team and month. Empty values are omitted.
func Tags(component, team, month string) map[string]string {
	tags := map[string]string{"component": component}
	if team != "" {
		tags["team"] = team
	}
	if month != "" {
		tags["month"] = month
	}
	return tags
}
