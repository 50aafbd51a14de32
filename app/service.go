// Package app wires configuration into a running rota service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	scheduleapi "github.com/kilianp07/oncall/api/schedule"
	"github.com/kilianp07/oncall/config"
	coremetrics "github.com/kilianp07/oncall/core/metrics"
	"github.com/kilianp07/oncall/core/model"
	coremon "github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/runlog"
	"github.com/kilianp07/oncall/core/schedule"
	"github.com/kilianp07/oncall/core/store"
	"github.com/kilianp07/oncall/infra/logger"
	"github.com/kilianp07/oncall/infra/metrics"
	inframon "github.com/kilianp07/oncall/infra/monitoring"
	"github.com/kilianp07/oncall/infra/mqtt"
	_ "github.com/kilianp07/oncall/infra/store" // registers the sqlite store
	"github.com/kilianp07/oncall/internal/eventbus"
)

type publisher interface {
	Publish(ev schedule.Committed) error
	Run(ctx context.Context, bus *eventbus.Bus[schedule.Committed])
	Disconnect()
}

// Service owns the schedule service and the adapters around it.
type Service struct {
	Schedule  *schedule.Service
	cfg       *config.Config
	store     store.Store
	runs      runlog.Store
	sink      coremetrics.MetricsSink
	bus       *eventbus.Bus[schedule.Committed]
	publisher publisher
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logger.SetLevel(cfg.Logging.Level)
	logg := logger.New("service")

	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, err
	}
	coremon.Init(mon)

	st, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	runs, err := runlog.Open(cfg.RunLog)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("run log: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		_ = runs.Close()
		_ = st.Close()
		return nil, fmt.Errorf("metrics sink: %w", err)
	}

	svc := &Service{cfg: cfg, store: st, runs: runs, sink: sink, log: logg}
	if cfg.MQTT.Enabled {
		pub, err := mqtt.NewPublisher(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		svc.publisher = pub
		svc.bus = eventbus.New[schedule.Committed](eventbus.DefaultBuffer)
	}
	svc.Schedule = schedule.NewService(st, schedule.Options{
		Defaults: cfg.Schedule,
		Logger:   logger.New("schedule"),
		Metrics:  sink,
		RunLog:   runs,
		Bus:      svc.bus,
	})
	return svc, nil
}

// Handler returns the HTTP API of the service.
func (s *Service) Handler() http.Handler {
	return scheduleapi.NewHandler(s.Schedule, s.cfg.API.Token, logger.New("api"))
}

// Run serves the API, the metrics endpoint and the MQTT publisher until ctx
// is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.HasSink("prometheus") {
		coremon.Go(map[string]string{"component": "prom-server"}, func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		})
	}
	if s.publisher != nil {
		coremon.Go(map[string]string{"component": "mqtt"}, func() { s.publisher.Run(ctx, s.bus) })
	}

	srv := &http.Server{Addr: s.cfg.API.Addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", s.cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("api server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	timeout := time.Duration(s.cfg.API.ShutdownTimeoutSeconds) * time.Second
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.bus != nil {
		s.bus.Close()
	}
	if s.publisher != nil {
		s.publisher.Disconnect()
	}
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	var errs []error
	if err := s.runs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("run log: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	coremon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

// Generate runs month m for teams and, when MQTT is enabled, publishes the
// committed schedules before returning. It is the one-shot path of the CLI.
// Teams committed before a failing team are still published.
func (s *Service) Generate(ctx context.Context, m model.Month, teams ...string) (*schedule.Outcome, error) {
	if s.publisher == nil {
		return s.Schedule.Run(ctx, m, teams...)
	}
	sub := s.bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for ev := range sub {
			if err := s.publisher.Publish(ev); err != nil {
				s.log.Errorf("publish %s/%s: %v", ev.Team, ev.Month, err)
			}
		}
	}()
	out, err := s.Schedule.Run(ctx, m, teams...)
	// Run publishes synchronously, so every committed event is buffered or
	// already consumed once it returns.
	s.bus.Unsubscribe(sub)
	<-done
	if err != nil {
		return nil, err
	}
	return out, nil
}
