// Package dispatch routes inbound MQTT messages to the fade engine.
//
// A Dispatcher owns a static routing table built once per session from
// (relative topic, handler) pairs. Each relative topic is prefixed with the
// client identifier, so the subscribed topics are "<client-id>/<relative>".
//
// Payloads are copied into a bounded buffer before interpretation. A payload
// that does not fit alongside its terminator slot is logged and dropped.
//
// Payload rules:
//   - switch: exact "ON", "OFF" or "TOGGLE"; anything else is ignored
//   - brightness: leading decimal integer, anything unparsable reads as 0
//   - combined (legacy): a switch word, otherwise a brightness value
package dispatch
