package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/model"
	coremon "github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/schedule"
	"github.com/kilianp07/oncall/internal/eventbus"
)

type recordMonitor struct {
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}
func (r *recordMonitor) CapturePanic(any, map[string]string) {}
func (r *recordMonitor) Flush(time.Duration)                 {}

func committed() schedule.Committed {
	return schedule.Committed{
		RunID:       "run-1",
		Team:        "core",
		Month:       model.MustMonth("2025-10"),
		Assignments: model.Assignments{"2025-10-04": {"alice"}, "2025-10-05": {}},
		Shortfalls:  []assignment.Shortfall{{Date: "2025-10-05", Capacity: 1, Assigned: 0}},
		Time:        time.Date(2025, 9, 20, 8, 0, 0, 0, time.UTC),
	}
}

func TestNewPublisherAnnouncesOnline(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id"})
	require.NoError(t, err)
	defer p.Disconnect()

	sent := mc.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "oncall/status", sent[0].topic)
	assert.Equal(t, "online", string(sent[0].payload))
	assert.True(t, sent[0].retained)
}

func TestNewPublisherConnectError(t *testing.T) {
	useMock(t, &mockClient{connectErr: fmt.Errorf("refused")})
	_, err := NewPublisher(Config{Broker: "tcp://localhost:1883"})
	assert.EqualError(t, err, "refused")
}

func TestPublishPayload(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", QoS: 1, Retain: true})
	require.NoError(t, err)

	require.NoError(t, p.Publish(committed()))
	sent := mc.sent()
	require.Len(t, sent, 2)
	msg := sent[1]
	assert.Equal(t, "oncall/schedule/core/2025-10", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var got Message
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, "2025-10", got.Month)
	assert.Equal(t, []string{"alice"}, got.Assignments["2025-10-04"])
	assert.Equal(t, []string{}, got.Assignments["2025-10-05"])
	require.Len(t, got.Shortfalls, 1)
}

func TestPublishRetry(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	mc.publishErrs = []error{fmt.Errorf("net fail"), nil}

	require.NoError(t, p.Publish(committed()))
	assert.Len(t, mc.sent(), 3, "status plus two attempts")
}

func TestPublishErrorCaptured(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(coremon.NopMonitor{})

	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", MaxRetries: 1, BackoffMS: 1})
	require.NoError(t, err)
	mc.publishErrs = []error{fmt.Errorf("net fail"), fmt.Errorf("net fail")}

	err = p.Publish(committed())
	require.Error(t, err)
	require.NotNil(t, mon.err)
	assert.Equal(t, "mqtt", mon.tags["component"])
	assert.Equal(t, "core", mon.tags["team"])
	assert.Equal(t, "oncall/schedule/core/2025-10", mon.tags["topic"])
}

func TestRunForwardsBusEvents(t *testing.T) {
	mc := &mockClient{}
	useMock(t, mc)
	p, err := NewPublisher(Config{Broker: "tcp://localhost:1883", ClientID: "id", TopicPrefix: "rota"})
	require.NoError(t, err)

	bus := eventbus.New[schedule.Committed](4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx, bus)
		close(done)
	}()

	require.Eventually(t, func() bool { return bus.Publish(committed()) == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, m := range mc.sent() {
			if m.topic == "rota/schedule/core/2025-10" {
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
