package state

import "errors"

// ErrNegativeWindSpeed is returned when an update carries a wind speed below
// zero. The update is rejected as a whole.
var ErrNegativeWindSpeed = errors.New("wind speed cannot be negative")
