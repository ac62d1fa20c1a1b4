package garden

import (
	"errors"
)

// ErrHTTPStatus marks a non-2xx response from the listing page.
var ErrHTTPStatus = errors.New("unexpected HTTP status")
