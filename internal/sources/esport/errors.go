package esport

import (
	"errors"
)

// Sentinel kinds for esport calendar errors.
var (
	ErrHTTPStatus = errors.New("unexpected HTTP status")
	ErrNoPages    = errors.New("no calendar pages fetched")
)
