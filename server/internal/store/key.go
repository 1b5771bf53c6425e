package store

import (
	"errors"
	"fmt"
)

// ErrMissingField is returned when a route key component is empty.
var ErrMissingField = errors.New("missing required field")

// Key derives the route rating key for (origin, destination, routeID).
// The format is "<origin>-><destination>:<routeID>". Inputs containing the
// separators can produce ambiguous keys; callers accept that limitation.
func Key(origin, destination, routeID string) (string, error) {
	switch {
	case origin == "":
		return "", fmt.Errorf("route key: start: %w", ErrMissingField)
	case destination == "":
		return "", fmt.Errorf("route key: end: %w", ErrMissingField)
	case routeID == "":
		return "", fmt.Errorf("route key: route_id: %w", ErrMissingField)
	}
	return origin + "->" + destination + ":" + routeID, nil
}
