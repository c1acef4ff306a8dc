package dispatch

import (
	"fmt"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/mqtt"
)

// defaultPayloadCapacity is used when Config.PayloadCapacity is not set.
const defaultPayloadCapacity = 32

// Light is the part of the fade engine the dispatcher drives.
type Light interface {
	ApplyCommand(cmd fade.Command) error
	SetTarget(level int) error
	Clamp(level int) int
}

// Logger is the logging interface used by the dispatcher.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config names the relative command topics. An empty topic is not routed.
type Config struct {
	ClientID        string
	Switch          string
	Brightness      string
	Combined        string
	PayloadCapacity int
}

// Subscription pairs a full topic with the handler the session registers.
type Subscription struct {
	Topic   string
	Handler mqtt.MessageHandler
}

// payloadHandler interprets a bounded, copied payload.
type payloadHandler func(text string) error

type route struct {
	relative string
	handle   payloadHandler
}

// Dispatcher maps topics to handlers. It is driven from the session's pump
// goroutine and is not safe for concurrent use.
type Dispatcher struct {
	light    Light
	topics   mqtt.Topics
	capacity int
	buf      []byte
	routes   map[string]route
	order    []string
	logger   Logger
}

// New builds the routing table for one session.
func New(light Light, cfg Config) (*Dispatcher, error) {
	if light == nil {
		return nil, ErrNilLight
	}

	capacity := cfg.PayloadCapacity
	if capacity <= 0 {
		capacity = defaultPayloadCapacity
	}

	d := &Dispatcher{
		light:    light,
		topics:   mqtt.Topics{ClientID: cfg.ClientID},
		capacity: capacity,
		buf:      make([]byte, capacity),
		routes:   make(map[string]route),
		logger:   noopLogger{},
	}

	d.add(cfg.Switch, d.handleSwitch)
	d.add(cfg.Brightness, d.handleBrightness)
	d.add(cfg.Combined, d.handleCombined)

	if len(d.order) == 0 {
		return nil, ErrNoRoutes
	}

	return d, nil
}

func (d *Dispatcher) add(relative string, h payloadHandler) {
	if relative == "" {
		return
	}
	topic := d.topics.Topic(relative)
	if _, exists := d.routes[topic]; !exists {
		d.order = append(d.order, topic)
	}
	d.routes[topic] = route{relative: relative, handle: h}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// Subscriptions returns the routing table in registration order.
func (d *Dispatcher) Subscriptions() []Subscription {
	subs := make([]Subscription, 0, len(d.order))
	for _, topic := range d.order {
		subs = append(subs, Subscription{Topic: topic, Handler: d.Route})
	}
	return subs
}

// Topics returns the full subscribed topics in registration order.
func (d *Dispatcher) Topics() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Route copies payload into the bounded buffer and runs the topic's handler.
func (d *Dispatcher) Route(topic string, payload []byte) error {
	r, ok := d.routes[topic]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
	}

	// One slot stays reserved for the terminator of the wire format.
	if len(payload)+1 > d.capacity {
		d.logger.Warn("payload rejected",
			"topic", topic,
			"length", len(payload),
			"capacity", d.capacity,
		)
		return fmt.Errorf("%w: %d bytes on %s", ErrPayloadOverflow, len(payload), topic)
	}

	n := copy(d.buf, payload)
	text := string(d.buf[:n])

	d.logger.Debug("message routed", "topic", r.relative, "payload", text)

	return r.handle(text)
}

func (d *Dispatcher) handleSwitch(text string) error {
	cmd, ok := fade.ParseCommand(text)
	if !ok {
		d.logger.Debug("switch payload ignored", "payload", text)
		return nil
	}
	return d.light.ApplyCommand(cmd)
}

func (d *Dispatcher) handleBrightness(text string) error {
	return d.light.SetTarget(d.light.Clamp(ParseLevel(text)))
}

func (d *Dispatcher) handleCombined(text string) error {
	if cmd, ok := fade.ParseCommand(text); ok {
		return d.light.ApplyCommand(cmd)
	}
	return d.handleBrightness(text)
}
