package dispatch

import "errors"

var (
	// ErrPayloadOverflow is returned when a payload does not fit the buffer.
	ErrPayloadOverflow = errors.New("dispatch: payload exceeds buffer capacity")

	// ErrUnknownTopic is returned when no route matches the topic.
	ErrUnknownTopic = errors.New("dispatch: no route for topic")

	// ErrNoRoutes is returned when a dispatcher would have an empty table.
	ErrNoRoutes = errors.New("dispatch: no command topics configured")

	// ErrNilLight is returned when no light is supplied.
	ErrNilLight = errors.New("dispatch: light is nil")
)
