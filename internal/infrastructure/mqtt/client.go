package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang as the handle for one broker session.
//
// Inbound messages never run on paho's goroutines: the paho callback only
// copies the message into a bounded inbox, and Pump delivers queued messages
// synchronously to their handlers on the caller's goroutine.
//
// Thread Safety:
//   - Connect, Subscribe, Publish, IsConnected and Close are safe for
//     concurrent use.
//   - Pump must be driven by exactly one goroutine.
//   - A Client is never reconnected; build a new one per session.
type Client struct {
	client   pahomqtt.Client
	options  *pahomqtt.ClientOptions
	cfg      config.MQTTConfig
	clientID string
	bootID   string
	timeout  time.Duration

	// inbox buffers messages between pumps.
	inbox chan inboundMessage

	// subscriptions tracks the handlers registered on this session.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// logger for error/panic logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// inboundMessage is one queued delivery waiting for the next pump.
type inboundMessage struct {
	topic   string
	payload []byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run synchronously inside Pump, one at a time, in arrival order.
//
// Parameters:
//   - topic: The topic the message was received on
//   - payload: The raw message payload
//
// Returns:
//   - error: Logged, never affects the session
type MessageHandler func(topic string, payload []byte) error

// New builds a session handle for clientID without touching the network.
//
// The connection uses MQTT 3.1.1, a clean session, no keep-alive, no
// automatic reconnect and a retained last-will on "<clientID>/status".
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - clientID: Resolved client identifier
//
// Returns:
//   - *Client: Disconnected client, call Connect next
func New(cfg config.MQTTConfig, clientID string) *Client {
	inboxSize := cfg.InboxSize
	if inboxSize <= 0 {
		inboxSize = defaultInboxSize
	}

	c := &Client{
		cfg:           cfg,
		clientID:      clientID,
		bootID:        uuid.NewString(),
		timeout:       commandTimeout(cfg),
		inbox:         make(chan inboundMessage, inboxSize),
		subscriptions: make(map[string]subscription),
	}

	opts := buildClientOptions(cfg, clientID)
	configureLWT(opts, clientID, c.bootID)

	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.options = opts
	c.client = pahomqtt.NewClient(opts)

	return c
}

// Connect performs the broker handshake once.
//
// Returns:
//   - error: ErrConnectionFailed wrapping the cause
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(c.timeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, c.timeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so the state is set here as well.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.publishOnlineStatus()
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	if logger := c.getLogger(); logger != nil {
		logger.Warn("MQTT connection lost", "client_id", c.clientID, "error", err)
	}
}

// publishOnlineStatus publishes the retained online status for this device.
func (c *Client) publishOnlineStatus() {
	topic := Topics{ClientID: c.clientID}.Status()
	payload := buildOnlinePayload(c.clientID, c.bootID)
	c.client.Publish(topic, defaultQoS, true, payload)
}

// Pump waits up to timeout for inbound traffic and delivers every queued
// message to its handler on the calling goroutine.
//
// Parameters:
//   - ctx: Cancels the wait
//   - timeout: Longest wait for the first message
//
// Returns:
//   - int: Number of messages delivered
//   - error: ctx.Err() when cancelled, ErrNotConnected when the session is down
func (c *Client) Pump(ctx context.Context, timeout time.Duration) (int, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var first inboundMessage
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
		if !c.IsConnected() {
			return 0, ErrNotConnected
		}
		return 0, nil
	case first = <-c.inbox:
	}

	c.deliver(first)
	delivered := 1

	for {
		select {
		case msg := <-c.inbox:
			c.deliver(msg)
			delivered++
		default:
			if !c.IsConnected() {
				return delivered, ErrNotConnected
			}
			return delivered, nil
		}
	}
}

// Pending returns the number of messages waiting for the next pump.
func (c *Client) Pending() int {
	return len(c.inbox)
}

// Close gracefully disconnects from the MQTT broker.
//
// It performs:
//  1. Publishes graceful offline status (different from LWT crash status)
//  2. Waits for the publish to complete
//  3. Disconnects from broker
//
// Returns:
//   - error: If disconnect fails (connection already closed is not an error)
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}

	if c.IsConnected() {
		topic := Topics{ClientID: c.clientID}.Status()
		payload := buildOfflinePayload(c.clientID, c.bootID)
		token := c.client.Publish(topic, defaultQoS, true, payload)
		token.WaitTimeout(c.timeout)

		c.client.Disconnect(defaultDisconnectQuiesce)
	}

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// ClientID returns the identifier presented to the broker.
func (c *Client) ClientID() string {
	return c.clientID
}

// BootID returns the per-process identifier carried in status payloads.
func (c *Client) BootID() string {
	return c.bootID
}

// SetLogger sets a logger for error and panic logging.
// If not set, errors in handlers are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}

// enqueue returns the paho callback for handler. It copies the message into
// the inbox and drops it when the inbox is full.
func (c *Client) enqueue(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		payload := make([]byte, len(msg.Payload()))
		copy(payload, msg.Payload())

		select {
		case c.inbox <- inboundMessage{topic: msg.Topic(), payload: payload, handler: handler}:
		default:
			if logger := c.getLogger(); logger != nil {
				logger.Warn("MQTT inbox full, message dropped",
					"topic", msg.Topic(),
					"inbox_size", cap(c.inbox),
				)
			}
		}
	}
}

// deliver runs one handler with panic recovery and optional logging.
func (c *Client) deliver(msg inboundMessage) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"topic", msg.topic,
					"panic", r,
				)
			}
		}
	}()

	if err := msg.handler(msg.topic, msg.payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT handler returned error",
				"topic", msg.topic,
				"error", err,
			)
		}
	}
}
