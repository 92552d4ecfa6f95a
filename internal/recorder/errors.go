package recorder

import "errors"

// ErrAlreadyRunning is returned by Start when the sampling loop is active.
var ErrAlreadyRunning = errors.New("recorder: sampling loop already running")
