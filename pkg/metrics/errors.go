package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrNilManager = errors.New("nil metrics manager")
	ErrEmptyPath  = errors.New("empty textfile path")
)
