//go:build integration

package mqtt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func brokerConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker:         config.MQTTBrokerConfig{Host: "127.0.0.1", Port: 1883},
		CommandTimeout: 5,
		InboxSize:      16,
	}
}

func connectOrFail(t *testing.T, clientID string) *Client {
	t.Helper()
	client := New(brokerConfig(), clientID)
	if err := client.Connect(); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestIntegration_ConnectAndClose(t *testing.T) {
	client := connectOrFail(t, "ESP32INTEG01")

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestIntegration_PumpRoundtrip(t *testing.T) {
	device := connectOrFail(t, "ESP32INTEG02")
	controller := connectOrFail(t, "ESP32INTEG02-ctl")

	topics := Topics{ClientID: device.ClientID()}

	var got []string
	err := device.Subscribe(topics.Switch(), 0, func(_ string, payload []byte) error {
		got = append(got, string(payload))
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	for _, p := range []string{"ON", "OFF", "TOGGLE"} {
		if err := controller.Publish(topics.Switch(), []byte(p), 0, false); err != nil {
			t.Fatalf("Publish(%q) error = %v", p, err)
		}
	}

	deadline := time.Now().Add(3 * time.Second)
	for len(got) < 3 && time.Now().Before(deadline) {
		if _, err := device.Pump(context.Background(), 200*time.Millisecond); err != nil {
			t.Fatalf("Pump() error = %v", err)
		}
	}

	want := []string{"ON", "OFF", "TOGGLE"}
	if len(got) != len(want) {
		t.Fatalf("received %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("received[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIntegration_RetainedStatus(t *testing.T) {
	device := connectOrFail(t, "ESP32INTEG03")
	watcher := connectOrFail(t, "ESP32INTEG03-watch")

	statuses := make(chan string, 4)
	err := watcher.Subscribe(Topics{ClientID: device.ClientID()}.Status(), 0, func(_ string, p []byte) error {
		statuses <- string(p)
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for len(statuses) == 0 {
		if _, err := watcher.Pump(ctx, 200*time.Millisecond); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				t.Fatal("no retained status received")
			}
			t.Fatalf("Pump() error = %v", err)
		}
	}
}
