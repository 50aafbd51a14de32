package monitoring

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	errs   []error
	panics []any
	tags   []map[string]string
}

func (r *recorder) CaptureException(err error, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}

func (r *recorder) CapturePanic(v any, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panics = append(r.panics, v)
	r.tags = append(r.tags, tags)
}

func (r *recorder) Flush(time.Duration) {}

func install(t *testing.T) *recorder {
	t.Helper()
	rec := &recorder{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })
	return rec
}

func TestCaptureException(t *testing.T) {
	rec := install(t)
	CaptureException(nil, nil)
	CaptureException(errors.New("boom"), Tags("schedule", "core", "2025-10"))
	require.Len(t, rec.errs, 1)
	assert.Equal(t, map[string]string{"component": "schedule", "team": "core", "month": "2025-10"}, rec.tags[0])
}

func TestGuardReportsPanic(t *testing.T) {
	rec := install(t)
	err := Guard(Tags("api", "", ""), func() error { panic("kaboom") })
	assert.EqualError(t, err, "panic: kaboom")
	assert.Equal(t, []any{"kaboom"}, rec.panics)
	assert.Equal(t, map[string]string{"component": "api"}, rec.tags[0])

	assert.NoError(t, Guard(nil, func() error { return nil }))
}

func TestGoRecovers(t *testing.T) {
	rec := install(t)
	done := make(chan struct{})
	Go(nil, func() {
		defer close(done)
		panic("worker")
	})
	<-done
	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.panics) == 1
	}, time.Second, 10*time.Millisecond)
}
