package feed

import (
	"errors"
)

// ErrCorruptFeed marks a previous feed file that exists but cannot be
// parsed. Callers must treat it as fatal rather than overwrite history.
var ErrCorruptFeed = errors.New("corrupt feed")
