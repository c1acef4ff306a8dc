package mqtt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/config"
)

// testConfig returns an MQTT configuration pointing at a port nothing listens on.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host: "127.0.0.1",
			Port: 1,
		},
		Auth: config.MQTTAuthConfig{
			Username: "DVES_USER2",
			Password: "DVES_PASS2",
		},
		CommandTimeout: 1,
		PumpTimeoutMS:  50,
		InboxSize:      4,
	}
}

// fakeMessage implements pahomqtt.Message.
type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

// recordingLogger captures log messages.
type recordingLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *recordingLogger) Error(msg string, _ ...any) { l.record(msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.record(msg) }

func (l *recordingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *recordingLogger) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.messages {
		if m == msg {
			return true
		}
	}
	return false
}

// =============================================================================
// Construction Tests
// =============================================================================

func TestNew_DoesNotConnect(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	if client.IsConnected() {
		t.Error("IsConnected() = true before Connect")
	}
	if client.ClientID() != "ESP32ABCDEF" {
		t.Errorf("ClientID() = %q, want %q", client.ClientID(), "ESP32ABCDEF")
	}
	if client.BootID() == "" {
		t.Error("BootID() is empty")
	}
	if client.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", client.Pending())
	}
}

func TestNew_BootIDUniquePerClient(t *testing.T) {
	a := New(testConfig(), "ESP32ABCDEF")
	b := New(testConfig(), "ESP32ABCDEF")

	if a.BootID() == b.BootID() {
		t.Errorf("BootID() repeated across clients: %q", a.BootID())
	}
}

func TestConnect_BrokerRefused(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	err := client.Connect()
	if !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after failed Connect")
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestClose_NeverConnected(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")
	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

// =============================================================================
// Pump Tests
// =============================================================================

func TestPump_TimeoutWithoutTraffic(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	start := time.Now()
	n, err := client.Pump(context.Background(), 30*time.Millisecond)
	if n != 0 {
		t.Errorf("Pump() delivered %d, want 0", n)
	}
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Pump() error = %v, want ErrNotConnected", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Pump() returned after %v, want it to wait the full timeout", elapsed)
	}
}

func TestPump_ContextCancelled(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := client.Pump(ctx, time.Second)
	if n != 0 {
		t.Errorf("Pump() delivered %d, want 0", n)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Pump() error = %v, want context.Canceled", err)
	}
}

func TestPump_DeliversInOrderOnCaller(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	var got []string
	handler := func(topic string, payload []byte) error {
		got = append(got, topic+"="+string(payload))
		return nil
	}

	cb := client.enqueue(handler)
	cb(nil, fakeMessage{topic: "ESP32ABCDEF/light/switch", payload: []byte("ON")})
	cb(nil, fakeMessage{topic: "ESP32ABCDEF/light/brightness/set", payload: []byte("150")})

	if client.Pending() != 2 {
		t.Fatalf("Pending() = %d, want 2", client.Pending())
	}

	n, err := client.Pump(context.Background(), time.Second)
	if n != 2 {
		t.Errorf("Pump() delivered %d, want 2", n)
	}
	// Not connected: the messages are still delivered, then the state is reported.
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Pump() error = %v, want ErrNotConnected", err)
	}

	want := []string{"ESP32ABCDEF/light/switch=ON", "ESP32ABCDEF/light/brightness/set=150"}
	if len(got) != len(want) {
		t.Fatalf("delivered %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("delivery[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPump_PayloadIsCopied(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	var got string
	raw := []byte("ON")
	client.enqueue(func(_ string, payload []byte) error {
		got = string(payload)
		return nil
	})(nil, fakeMessage{topic: "t", payload: raw})

	raw[0] = 'X'

	client.Pump(context.Background(), time.Second) //nolint:errcheck // not connected
	if got != "ON" {
		t.Errorf("payload = %q, want %q", got, "ON")
	}
}

func TestEnqueue_FullInboxDrops(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")
	logger := &recordingLogger{}
	client.SetLogger(logger)

	delivered := 0
	cb := client.enqueue(func(string, []byte) error {
		delivered++
		return nil
	})

	for i := 0; i < 6; i++ {
		cb(nil, fakeMessage{topic: "t", payload: []byte(fmt.Sprint(i))})
	}

	if client.Pending() != 4 {
		t.Errorf("Pending() = %d, want 4", client.Pending())
	}
	if !logger.has("MQTT inbox full, message dropped") {
		t.Error("expected a dropped-message warning")
	}

	client.Pump(context.Background(), time.Second) //nolint:errcheck // not connected
	if delivered != 4 {
		t.Errorf("delivered = %d, want 4", delivered)
	}
}

func TestPump_HandlerPanicRecovered(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")
	logger := &recordingLogger{}
	client.SetLogger(logger)

	after := false
	client.enqueue(func(string, []byte) error {
		panic("boom")
	})(nil, fakeMessage{topic: "a"})
	client.enqueue(func(string, []byte) error {
		after = true
		return nil
	})(nil, fakeMessage{topic: "b"})

	n, _ := client.Pump(context.Background(), time.Second)
	if n != 2 {
		t.Errorf("Pump() delivered %d, want 2", n)
	}
	if !after {
		t.Error("handler after the panicking one did not run")
	}
	if !logger.has("MQTT handler panic recovered") {
		t.Error("expected panic to be logged")
	}
}

func TestPump_HandlerErrorLogged(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")
	logger := &recordingLogger{}
	client.SetLogger(logger)

	client.enqueue(func(string, []byte) error {
		return errors.New("handler error")
	})(nil, fakeMessage{topic: "a"})

	client.Pump(context.Background(), time.Second) //nolint:errcheck // not connected
	if !logger.has("MQTT handler returned error") {
		t.Error("expected handler error to be logged")
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestSubscribe_Validation(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")
	noop := func(string, []byte) error { return nil }

	tests := []struct {
		name    string
		topic   string
		qos     byte
		handler MessageHandler
		want    error
	}{
		{name: "empty topic", topic: "", handler: noop, want: ErrInvalidTopic},
		{name: "qos 1", topic: "a/b", qos: 1, handler: noop, want: ErrInvalidQoS},
		{name: "nil handler", topic: "a/b", handler: nil, want: ErrSubscribeFailed},
		{name: "disconnected", topic: "a/b", handler: noop, want: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Subscribe(tt.topic, tt.qos, tt.handler)
			if !errors.Is(err, tt.want) {
				t.Errorf("Subscribe() error = %v, want %v", err, tt.want)
			}
		})
	}

	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", client.SubscriptionCount())
	}
	if client.HasSubscription("a/b") {
		t.Error("HasSubscription() = true for rejected subscription")
	}
}

func TestPublish_Validation(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	tests := []struct {
		name    string
		topic   string
		payload []byte
		qos     byte
		want    error
	}{
		{name: "empty topic", topic: "", payload: []byte("ON"), want: ErrInvalidTopic},
		{name: "qos 2", topic: "a/b", payload: []byte("ON"), qos: 2, want: ErrInvalidQoS},
		{name: "oversize", topic: "a/b", payload: []byte(strings.Repeat("x", maxPayloadSize+1)), want: ErrPublishFailed},
		{name: "disconnected", topic: "a/b", payload: []byte("ON"), want: ErrNotConnected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := client.Publish(tt.topic, tt.payload, tt.qos, false)
			if !errors.Is(err, tt.want) {
				t.Errorf("Publish() error = %v, want %v", err, tt.want)
			}
		})
	}

	if err := client.PublishRetained("a/b", []byte("ON")); !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishRetained() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// HealthCheck Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	client := New(testConfig(), "ESP32ABCDEF")

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() cancelled error = %v, want context.Canceled", err)
	}
}
