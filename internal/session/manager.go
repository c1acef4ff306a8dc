package session

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/dispatch"
	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/mqtt"
)

// defaultPumpTimeout is used when Config.PumpTimeout is not set.
const defaultPumpTimeout = time.Second

// subscribeQoS is the at-most-once delivery level used for every topic.
const subscribeQoS byte = 0

// Broker is the session handle. *mqtt.Client implements it.
type Broker interface {
	Connect() error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Pump(ctx context.Context, timeout time.Duration) (int, error)
	Close() error
}

// StateSource exposes the light state published after changes.
type StateSource interface {
	Snapshot() fade.Snapshot
}

// Logger is the logging interface used by the manager.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds per-session settings.
type Config struct {
	ClientID     string
	PumpTimeout  time.Duration
	PublishState bool
}

// Stats counts what a session did.
type Stats struct {
	Connected         bool
	Subscribed        int
	SubscribeFailures int
	Pumps             int64
	Delivered         int64
	PumpFailures      int64
	StatePublishes    int64
}

// Manager owns one broker session.
type Manager struct {
	broker Broker
	subs   []dispatch.Subscription
	cfg    Config
	topics mqtt.Topics
	state  StateSource
	logger Logger

	published *fade.Snapshot

	connected         atomic.Bool
	subscribed        atomic.Int32
	subscribeFailures atomic.Int32
	pumps             atomic.Int64
	delivered         atomic.Int64
	pumpFailures      atomic.Int64
	statePublishes    atomic.Int64
}

// New creates a manager for the given handle and routing table.
func New(broker Broker, subs []dispatch.Subscription, cfg Config) *Manager {
	if cfg.PumpTimeout <= 0 {
		cfg.PumpTimeout = defaultPumpTimeout
	}
	return &Manager{
		broker: broker,
		subs:   subs,
		cfg:    cfg,
		topics: mqtt.Topics{ClientID: cfg.ClientID},
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// SetStateSource enables state publication from src.
func (m *Manager) SetStateSource(src StateSource) {
	m.state = src
}

// Run connects, subscribes and pumps until ctx is cancelled, then closes
// the handle.
func (m *Manager) Run(ctx context.Context) error {
	defer func() {
		if err := m.broker.Close(); err != nil {
			m.logger.Warn("closing broker session failed", "error", err)
		}
	}()

	if err := m.broker.Connect(); err != nil {
		m.logger.Error("broker connect failed, continuing to subscribe",
			"client_id", m.cfg.ClientID,
			"error", err,
		)
	} else {
		m.connected.Store(true)
		m.logger.Info("broker connected", "client_id", m.cfg.ClientID)
	}

	for _, sub := range m.subs {
		if err := m.broker.Subscribe(sub.Topic, subscribeQoS, sub.Handler); err != nil {
			m.subscribeFailures.Add(1)
			m.logger.Warn("subscribe failed", "topic", sub.Topic, "error", err)
			continue
		}
		m.subscribed.Add(1)
		m.logger.Info("subscribed", "topic", sub.Topic)
	}

	m.publishState()

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := m.broker.Pump(ctx, m.cfg.PumpTimeout)
		m.pumps.Add(1)
		m.delivered.Add(int64(n))

		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			m.pumpFailures.Add(1)
			m.logger.Warn("pump failed", "error", err)
		}

		if n > 0 {
			m.publishState()
		}
	}
}

// publishState publishes the retained state topics when the snapshot moved
// since the last successful publish.
func (m *Manager) publishState() {
	if !m.cfg.PublishState || m.state == nil {
		return
	}

	snap := m.state.Snapshot()
	if m.published != nil && *m.published == snap {
		return
	}

	if err := m.broker.Publish(m.topics.SwitchState(), []byte(snap.State.String()), subscribeQoS, true); err != nil {
		m.logPublishError(m.topics.SwitchState(), err)
		return
	}
	if err := m.broker.Publish(m.topics.BrightnessState(), []byte(strconv.Itoa(snap.Target)), subscribeQoS, true); err != nil {
		m.logPublishError(m.topics.BrightnessState(), err)
		return
	}

	m.published = &snap
	m.statePublishes.Add(1)
}

func (m *Manager) logPublishError(topic string, err error) {
	if errors.Is(err, mqtt.ErrNotConnected) {
		m.logger.Debug("state not published, session down", "topic", topic)
		return
	}
	m.logger.Warn("state publish failed", "topic", topic, "error", err)
}

// Stats returns the session counters.
func (m *Manager) Stats() Stats {
	return Stats{
		Connected:         m.connected.Load(),
		Subscribed:        int(m.subscribed.Load()),
		SubscribeFailures: int(m.subscribeFailures.Load()),
		Pumps:             m.pumps.Load(),
		Delivered:         m.delivered.Load(),
		PumpFailures:      m.pumpFailures.Load(),
		StatePublishes:    m.statePublishes.Load(),
	}
}
