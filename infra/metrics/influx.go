package metrics

import (
	"context"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/infra/logger"
)

// InfluxSink writes schedule events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScheduleRun writes one point per committed team month.
func (s *InfluxSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	p := write.NewPointWithMeasurement("schedule_run").
		AddTag("team", ev.Team).
		AddTag("month", ev.Month).
		AddTag("run_id", ev.RunID).
		AddField("days", ev.Days).
		AddField("slots", ev.Slots).
		AddField("filled", ev.Filled).
		AddField("shortfalls", ev.Shortfalls).
		AddField("engineers", ev.Engineers).
		AddField("under_assigned", ev.UnderAssigned).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordRotation writes a priority resolution.
func (s *InfluxSink) RecordRotation(ev coremetrics.RotationEvent) error {
	p := write.NewPointWithMeasurement("priority_resolution").
		AddTag("team", ev.Team).
		AddTag("month", ev.Month).
		AddField("computed", ev.Computed).
		AddField("groups", ev.Groups).
		AddField("members", ev.Members).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordWhatIf writes a what-if analysis.
func (s *InfluxSink) RecordWhatIf(ev coremetrics.WhatIfEvent) error {
	p := write.NewPointWithMeasurement("whatif_request").
		AddTag("team", ev.Team).
		AddTag("month", ev.Month).
		AddTag("engineer", ev.Engineer).
		AddField("granted", ev.Granted).
		SetTime(ev.Time)
	return s.write(p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }
