package mqtt

import (
	"crypto/tls"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-dimmer/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultCommandTimeout bounds connect, subscribe and publish round trips
	// when the config does not set one.
	defaultCommandTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is the time to wait for pending operations on disconnect.
	defaultDisconnectQuiesce = 250 // milliseconds

	// defaultInboxSize is used when mqtt.inbox_size is not set.
	defaultInboxSize = 16

	// protocolVersion311 selects MQTT 3.1.1 on the wire.
	protocolVersion311 = 4

	// defaultQoS is the only delivery level used: at most once.
	defaultQoS byte = 0

	// maxQoS is the maximum QoS level accepted.
	maxQoS = 0

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// commandTimeout returns the configured command timeout or the default.
func commandTimeout(cfg config.MQTTConfig) time.Duration {
	if cfg.CommandTimeout <= 0 {
		return defaultCommandTimeout
	}
	return time.Duration(cfg.CommandTimeout) * time.Second
}

// buildClientOptions creates paho MQTT options for one session.
//
// This configures:
//   - Broker URL (tcp:// or ssl:// based on TLS setting)
//   - Client ID for identification
//   - Authentication credentials (if provided)
//   - MQTT 3.1.1, clean session, keep-alive disabled
//   - No automatic reconnect: the connectivity supervisor owns recovery
//   - TLS configuration (if enabled)
func buildClientOptions(cfg config.MQTTConfig, clientID string) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()

	// Broker URL
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}
	brokerURL := fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)
	opts.AddBroker(brokerURL)

	// Client identification
	opts.SetClientID(clientID)

	// Authentication (if credentials provided)
	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}

	opts.SetProtocolVersion(protocolVersion311)

	// Clean session - no subscription state survives a reconnect
	opts.SetCleanSession(true)

	// A broken session is observed, not repaired
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)

	opts.SetConnectTimeout(commandTimeout(cfg))

	// Zero disables keep-alive negotiation and pings
	opts.SetKeepAlive(0)

	// TLS configuration if enabled
	if cfg.Broker.TLS {
		tlsConfig := &tls.Config{
			MinVersion: tlsMinVersion,
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts
}

// configureLWT sets up Last Will and Testament for offline detection.
//
// The broker publishes the will if the device drops off without a graceful
// close, so anything watching "<clientID>/status" sees it go offline.
//
// QoS: 0
// Retained: true (new subscribers see last status)
func configureLWT(opts *pahomqtt.ClientOptions, clientID, bootID string) {
	willTopic := Topics{ClientID: clientID}.Status()
	willPayload := buildStatusPayload("offline", "unexpected_disconnect", clientID, bootID)

	opts.SetWill(willTopic, willPayload, defaultQoS, true)
}

// buildOnlinePayload creates the JSON payload for online status messages.
func buildOnlinePayload(clientID, bootID string) string {
	return buildStatusPayload("online", "", clientID, bootID)
}

// buildOfflinePayload creates the JSON payload for graceful offline status.
func buildOfflinePayload(clientID, bootID string) string {
	return buildStatusPayload("offline", "graceful_shutdown", clientID, bootID)
}

func buildStatusPayload(status, reason, clientID, bootID string) string {
	if reason == "" {
		return fmt.Sprintf(
			`{"status":"%s","client_id":"%s","boot_id":"%s","timestamp":"%s"}`,
			status,
			clientID,
			bootID,
			time.Now().UTC().Format(time.RFC3339),
		)
	}
	return fmt.Sprintf(
		`{"status":"%s","client_id":"%s","boot_id":"%s","reason":"%s","timestamp":"%s"}`,
		status,
		clientID,
		bootID,
		reason,
		time.Now().UTC().Format(time.RFC3339),
	)
}
