// Package mqtt provides the broker session handle for the dimmer.
//
// This package manages:
//   - One MQTT 3.1.1 connection per session (clean session, no keep-alive)
//   - QoS 0 subscriptions whose messages are queued in a bounded inbox
//   - Pump, which delivers queued messages synchronously to their handlers
//   - Retained availability status with a Last Will and Testament
//   - Device-scoped topic builders
//
// # Architecture
//
// paho delivers messages on its own goroutines. The dimmer needs every
// handler to run on the session goroutine, so the paho callback only copies
// the message into the inbox and Pump drains it:
//
//	broker → paho router → inbox (bounded) → Pump → handler → fade engine
//
// A Client is never reconnected. When the network drops, the connectivity
// supervisor ends the session and builds a new Client on the next address.
//
// # Security Considerations
//
//   - TLS is available via cfg.Broker.TLS
//   - Credentials are static; set them through DIMMER_MQTT_USERNAME and
//     DIMMER_MQTT_PASSWORD rather than the config file
//
// # Usage
//
//	client := mqtt.New(cfg.MQTT, clientID)
//	if err := client.Connect(); err != nil {
//	    log.Print(err)
//	}
//	defer client.Close()
//
//	topics := mqtt.Topics{ClientID: clientID}
//	client.Subscribe(topics.Switch(), 0, func(topic string, payload []byte) error {
//	    return nil
//	})
//
//	for {
//	    if _, err := client.Pump(ctx, time.Second); err != nil {
//	        log.Print(err)
//	    }
//	}
package mqtt
