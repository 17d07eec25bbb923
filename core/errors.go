package core

import "errors"

// ErrMalformedEvent is returned when a stored record cannot be turned into an Event.
var ErrMalformedEvent = errors.New("malformed event record")
