package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

// Measurement names.
const (
	measurementLight   = "light"
	measurementSession = "session"
)

// WriteLightChange records one issued ramp.
//
// Tags: client_id, cause, state. Fields: from, target.
func (c *Client) WriteLightChange(clientID string, change fade.Change) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(lightPoint(clientID, change))
}

// WriteSessionStats records the counters of a finished broker session.
func (c *Client) WriteSessionStats(clientID string, fields map[string]any) {
	if !c.IsConnected() || len(fields) == 0 {
		return
	}
	c.writeAPI.WritePoint(write.NewPoint(
		measurementSession,
		map[string]string{"client_id": clientID},
		fields,
		time.Now(),
	))
}

// Listener returns a fade.Listener writing every change for clientID.
func (c *Client) Listener(clientID string) fade.Listener {
	return fade.ListenerFunc(func(change fade.Change) {
		c.WriteLightChange(clientID, change)
	})
}

func lightPoint(clientID string, change fade.Change) *write.Point {
	at := change.At
	if at.IsZero() {
		at = time.Now()
	}
	return write.NewPoint(
		measurementLight,
		map[string]string{
			"client_id": clientID,
			"cause":     string(change.Cause),
			"state":     change.State.String(),
		},
		map[string]any{
			"from":   change.From,
			"target": change.Target,
		},
		at,
	)
}
