// Package influxdb records dimmer telemetry in InfluxDB.
//
// It wraps the official influxdb-client-go v2 library. Every ramp the fade
// engine issues becomes a point in the "light" measurement, and every
// finished broker session writes its counters to "session".
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	engine.AddListener(client.Listener(clientID))
//
// # Error Handling
//
// Writes are non-blocking. Batch failures are delivered to the callback
// set with SetOnError, wrapped in ErrWriteFailed. Connection and health
// check errors are returned directly.
package influxdb
