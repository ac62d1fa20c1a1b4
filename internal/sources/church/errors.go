package church

import (
	"errors"
)

// ErrHTTPStatus marks a non-2xx response from the calendar API.
var ErrHTTPStatus = errors.New("unexpected HTTP status")
