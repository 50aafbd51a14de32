package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/oncall/core/assignment"
	"github.com/kilianp07/oncall/core/model"
	"github.com/kilianp07/oncall/core/monitoring"
	"github.com/kilianp07/oncall/core/schedule"
	"github.com/kilianp07/oncall/infra/logger"
	"github.com/kilianp07/oncall/internal/eventbus"
)

// Message is the payload published for a committed team month.
type Message struct {
	RunID       string                 `json:"run_id"`
	Team        string                 `json:"team"`
	Month       string                 `json:"month"`
	Assignments model.Assignments      `json:"assignments"`
	Shortfalls  []assignment.Shortfall `json:"shortfalls"`
	CommittedAt time.Time              `json:"committed_at"`
}

// Publisher sends committed schedules to "<prefix>/schedule/<team>/<month>".
type Publisher struct {
	cli        pahoClient
	prefix     string
	qos        byte
	retain     bool
	maxRetries int
	backoff    time.Duration
	log        logger.Logger
}

// NewPublisher connects to the broker and announces the publisher as online.
func NewPublisher(cfg Config) (*Publisher, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt-publisher")
	status := cfg.StatusTopic()
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if token := c.Publish(status, cfg.QoS, true, "online"); token.Wait() && token.Error() != nil {
			log.Warnf("publish status: %v", token.Error())
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return &Publisher{
		cli:        c,
		prefix:     strings.TrimSuffix(cfg.TopicPrefix, "/"),
		qos:        cfg.QoS,
		retain:     cfg.Retain,
		maxRetries: cfg.MaxRetries,
		backoff:    time.Duration(cfg.BackoffMS) * time.Millisecond,
		log:        log,
	}, nil
}

// Topic returns the topic of a team's month.
func (p *Publisher) Topic(team string, m model.Month) string {
	return fmt.Sprintf("%s/schedule/%s/%s", p.prefix, team, m)
}

// Publish sends one committed schedule, retrying with exponential backoff.
func (p *Publisher) Publish(ev schedule.Committed) error {
	payload, err := json.Marshal(Message{
		RunID:       ev.RunID,
		Team:        ev.Team,
		Month:       ev.Month.String(),
		Assignments: ev.Assignments,
		Shortfalls:  ev.Shortfalls,
		CommittedAt: ev.Time,
	})
	if err != nil {
		return err
	}
	topic := p.Topic(ev.Team, ev.Month)
	var publishErr error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		token := p.cli.Publish(topic, p.qos, p.retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.log.Infof("published %s run %s", topic, ev.RunID)
			return nil
		}
		p.log.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.maxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	tags := monitoring.Tags("mqtt", ev.Team, ev.Month.String())
	tags["topic"] = topic
	monitoring.CaptureException(publishErr, tags)
	return publishErr
}

// Run publishes every event committed on bus until ctx is done.
func (p *Publisher) Run(ctx context.Context, bus *eventbus.Bus[schedule.Committed]) {
	sub := bus.Subscribe()
	defer bus.Unsubscribe(sub)
	eventbus.Consume(ctx, sub, func(ev schedule.Committed) {
		if err := p.Publish(ev); err != nil {
			p.log.Errorf("drop schedule %s/%s: %v", ev.Team, ev.Month, err)
		}
	})
}

// Disconnect gracefully closes the MQTT connection.
func (p *Publisher) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
